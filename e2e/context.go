// Package e2e drives a running server through its public HTTP API using
// Gherkin feature files. Set E2E_BASE_URL to enable the suite.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

// TestContext carries per-scenario state: the last response, bearer tokens
// by alias and identifiers captured from earlier steps.
type TestContext struct {
	baseURL string
	client  *http.Client

	runID    string
	clientIP string
	token    string
	tokens   map[string]string
	vars     map[string]string

	lastStatus  int
	lastHeaders http.Header
	lastBody    []byte
}

func NewTestContext(baseURL string) *TestContext {
	tc := &TestContext{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	tc.Reset()
	return tc
}

// Reset gives each scenario fresh identities and its own client address so
// rate limit buckets do not leak between scenarios.
func (tc *TestContext) Reset() {
	tc.runID = fmt.Sprintf("%d%04d", time.Now().UnixMilli(), rand.IntN(10000))
	tc.clientIP = fmt.Sprintf("10.%d.%d.%d", rand.IntN(256), rand.IntN(256), 1+rand.IntN(254))
	tc.token = ""
	tc.tokens = map[string]string{}
	tc.vars = map[string]string{}
	tc.lastStatus = 0
	tc.lastHeaders = nil
	tc.lastBody = nil
}

// Unique makes an email address unique to this scenario run.
func (tc *TestContext) Unique(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email + "+" + tc.runID
	}
	return local + "+" + tc.runID + "@" + domain
}

func (tc *TestContext) SetClientIP(ip string) { tc.clientIP = ip }

func (tc *TestContext) UseToken(alias string) error {
	token, ok := tc.tokens[alias]
	if !ok {
		return fmt.Errorf("no token stored for %q", alias)
	}
	tc.token = token
	return nil
}

func (tc *TestContext) StoreToken(alias, token string) {
	tc.tokens[alias] = token
	tc.token = token
}

func (tc *TestContext) ClearToken() { tc.token = "" }

func (tc *TestContext) Remember(key, value string) { tc.vars[key] = value }

func (tc *TestContext) Recall(key string) string { return tc.vars[key] }

// Expand replaces {name} placeholders with remembered values.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.Do(http.MethodPost, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.Do(http.MethodGet, path, nil)
}

// Do sends one request with the current bearer token and records the response.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.baseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	req.Header.Set("X-Forwarded-For", tc.clientIP)

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetLastResponseStatus() int    { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte   { return tc.lastBody }
func (tc *TestContext) GetLastHeader(k string) string { return tc.lastHeaders.Get(k) }

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.lastBody)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, tc.lastBody)
	}
	return v, nil
}

// GetResponseString is GetResponseField for string values.
func (tc *TestContext) GetResponseString(field string) (string, error) {
	v, err := tc.GetResponseField(field)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is %T, not a string", field, v)
	}
	return s, nil
}
