package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

type TestContext interface {
	Do(method, path string, body any) error
	GET(path string) error
	Expand(s string) string
	Remember(key, value string)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastHeader(key string) string
	GetResponseField(field string) (any, error)
	GetResponseString(field string) (string, error)
}

// RegisterSteps registers generic request and response assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the API is running$`, steps.apiIsRunning)
	ctx.Step(`^I (GET|POST|DELETE) "([^"]*)"$`, steps.request)
	ctx.Step(`^I POST to "([^"]*)" with body:$`, steps.postWithBody)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response header "([^"]*)" should be present$`, steps.headerShouldBePresent)
	ctx.Step(`^I remember the response field "([^"]*)" as "([^"]*)"$`, steps.rememberField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsRunning(context.Context) error {
	if err := s.tc.GET("/health"); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusOK {
		return fmt.Errorf("health check returned %d: %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) request(_ context.Context, method, path string) error {
	return s.tc.Do(method, path, nil)
}

func (s *commonSteps) postWithBody(_ context.Context, path string, doc *godog.DocString) error {
	return s.tc.Do(http.MethodPost, path, json.RawMessage(s.tc.Expand(doc.Content)))
}

func (s *commonSteps) statusShouldBe(_ context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(_ context.Context, code string) error {
	got, err := s.tc.GetResponseString("error")
	if err != nil {
		return err
	}
	if got != code {
		return fmt.Errorf("expected error %q, got %q", code, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(_ context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != s.tc.Expand(expected) {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) headerShouldBePresent(_ context.Context, name string) error {
	if s.tc.GetLastHeader(name) == "" {
		return fmt.Errorf("response has no %s header", name)
	}
	return nil
}

func (s *commonSteps) rememberField(_ context.Context, field, key string) error {
	v, err := s.tc.GetResponseString(field)
	if err != nil {
		return err
	}
	s.tc.Remember(key, v)
	return nil
}
