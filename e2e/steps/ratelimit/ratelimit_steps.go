package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

type TestContext interface {
	POST(path string, body any) error
	Unique(email string) string
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers per-address limit steps. Each scenario calls from
// its own client address, so the counts start at zero.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I fail login (\d+) times$`, steps.failLoginNTimes)
	ctx.Step(`^the next login attempt should return (\d+)$`, steps.nextLoginShouldReturn)
}

type ratelimitSteps struct {
	tc TestContext
}

func (s *ratelimitSteps) attempt() error {
	return s.tc.POST("/api/v1/auth/login", map[string]any{
		"email":    s.tc.Unique("nobody@example.com"),
		"password": "not-the-password",
	})
}

func (s *ratelimitSteps) failLoginNTimes(_ context.Context, n int) error {
	for i := range n {
		if err := s.attempt(); err != nil {
			return err
		}
		if got := s.tc.GetLastResponseStatus(); got != http.StatusUnauthorized {
			return fmt.Errorf("attempt %d: expected 401, got %d: %s", i+1, got, s.tc.GetLastResponseBody())
		}
	}
	return nil
}

func (s *ratelimitSteps) nextLoginShouldReturn(_ context.Context, status int) error {
	if err := s.attempt(); err != nil {
		return err
	}
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected %d, got %d: %s", status, got, s.tc.GetLastResponseBody())
	}
	return nil
}
