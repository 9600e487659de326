package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	Unique(email string) string
	StoreToken(alias, token string)
	UseToken(alias string) error
	ClearToken()
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetResponseString(field string) (string, error)
}

// RegisterSteps registers account and session steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^a guardian "([^"]*)" with password "([^"]*)" is registered$`, steps.registerGuardian)
	ctx.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, steps.login)
	ctx.Step(`^I am authenticated as guardian "([^"]*)"$`, steps.authenticateAsGuardian)
	ctx.Step(`^I act as "([^"]*)"$`, steps.actAs)
	ctx.Step(`^I log out$`, steps.logout)
	ctx.Step(`^I request my profile$`, steps.requestProfile)
	ctx.Step(`^I request my profile without a token$`, steps.requestProfileWithoutToken)
}

type authSteps struct {
	tc TestContext
}

const defaultPassword = "guardian-password"

func (s *authSteps) registerGuardian(_ context.Context, email, password string) error {
	err := s.tc.POST("/api/v1/auth/register", map[string]any{
		"email":    s.tc.Unique(email),
		"password": password,
		"name":     "보호자",
		"phone":    "010-0000-0000",
		"role":     "guardian",
	})
	if err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusCreated {
		return fmt.Errorf("register %s: status %d: %s", email, s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	return nil
}

// login keeps the token under the unadorned email so later steps can switch
// principals with "I act as".
func (s *authSteps) login(_ context.Context, email, password string) error {
	if err := s.tc.POST("/api/v1/auth/login", map[string]any{
		"email":    s.tc.Unique(email),
		"password": password,
	}); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusOK {
		return nil
	}
	token, err := s.tc.GetResponseString("access_token")
	if err != nil {
		return err
	}
	s.tc.StoreToken(email, token)
	return nil
}

func (s *authSteps) authenticateAsGuardian(ctx context.Context, email string) error {
	if err := s.registerGuardian(ctx, email, defaultPassword); err != nil {
		return err
	}
	if err := s.login(ctx, email, defaultPassword); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusOK {
		return fmt.Errorf("login %s: status %d", email, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *authSteps) actAs(_ context.Context, email string) error {
	return s.tc.UseToken(email)
}

func (s *authSteps) logout(context.Context) error {
	return s.tc.POST("/api/v1/auth/logout", nil)
}

func (s *authSteps) requestProfile(context.Context) error {
	return s.tc.GET("/api/v1/auth/me")
}

func (s *authSteps) requestProfileWithoutToken(context.Context) error {
	s.tc.ClearToken()
	return s.tc.GET("/api/v1/auth/me")
}
