package e2e

import (
	"github.com/cucumber/godog"

	"yeirin/e2e/steps/auth"
	"yeirin/e2e/steps/common"
	"yeirin/e2e/steps/consent"
	"yeirin/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	consent.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
