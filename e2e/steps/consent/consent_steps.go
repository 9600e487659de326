package consent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	Remember(key, value string)
	Recall(key string) string
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetResponseString(field string) (string, error)
}

// RegisterSteps registers child and consent steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &consentSteps{tc: tc}

	ctx.Step(`^I register a child named "([^"]*)"$`, steps.registerChild)
	ctx.Step(`^I grant consent for purposes "([^"]*)"$`, steps.grant)
	ctx.Step(`^I revoke consent for purposes "([^"]*)"$`, steps.revoke)
	ctx.Step(`^I list consents for my child$`, steps.list)

	ctx.Step(`^the response should contain at least (\d+) consent records$`, steps.atLeastNConsents)
	ctx.Step(`^the consent for purpose "([^"]*)" should have status "([^"]*)"$`, steps.purposeHasStatus)
}

type consentSteps struct {
	tc TestContext
}

type consentRecord struct {
	ID      string `json:"id"`
	Purpose string `json:"purpose"`
	Status  string `json:"status"`
}

func (s *consentSteps) registerChild(_ context.Context, name string) error {
	if err := s.tc.POST("/api/v1/children", map[string]any{
		"name":      name,
		"birthDate": "2016-05-20",
		"gender":    "female",
	}); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusCreated {
		return fmt.Errorf("register child: status %d: %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	childID, err := s.tc.GetResponseString("id")
	if err != nil {
		return err
	}
	s.tc.Remember("childId", childID)
	return nil
}

func (s *consentSteps) grant(_ context.Context, purposes string) error {
	return s.tc.POST("/api/v1/consents", s.body(purposes))
}

func (s *consentSteps) revoke(_ context.Context, purposes string) error {
	return s.tc.POST("/api/v1/consents/revoke", s.body(purposes))
}

func (s *consentSteps) list(context.Context) error {
	return s.tc.GET("/api/v1/consents?childId=" + s.tc.Recall("childId"))
}

func (s *consentSteps) body(purposes string) map[string]any {
	return map[string]any{
		"childId":  s.tc.Recall("childId"),
		"purposes": strings.Split(purposes, ","),
	}
}

func (s *consentSteps) records() ([]consentRecord, error) {
	var resp struct {
		Consents []consentRecord `json:"consents"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &resp); err != nil {
		return nil, fmt.Errorf("decode consent list: %w", err)
	}
	return resp.Consents, nil
}

func (s *consentSteps) atLeastNConsents(_ context.Context, n int) error {
	records, err := s.records()
	if err != nil {
		return err
	}
	if len(records) < n {
		return fmt.Errorf("expected at least %d consents, got %d", n, len(records))
	}
	return nil
}

func (s *consentSteps) purposeHasStatus(_ context.Context, purpose, status string) error {
	records, err := s.records()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Purpose == purpose {
			if r.Status != status {
				return fmt.Errorf("consent %s has status %q, want %q", purpose, r.Status, status)
			}
			return nil
		}
	}
	return fmt.Errorf("no consent for purpose %s", purpose)
}
