package models

import (
	"strings"
	"time"
)

// EndpointClass groups routes that share one limit.
type EndpointClass string

const (
	// ClassMatching guards the upstream recommendation call.
	ClassMatching EndpointClass = "matching"
	// ClassAuth guards login and registration.
	ClassAuth EndpointClass = "auth"
)

func (c EndpointClass) IsValid() bool {
	return c == ClassMatching || c == ClassAuth
}

// Policy is the number of requests allowed per sliding window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of one limiter check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, set only when denied
}

// Key builds the bucket key for a class and client address. Delimiters in
// the address are escaped so a crafted value cannot land in another bucket.
func Key(class EndpointClass, ip string) string {
	return "rl:" + string(class) + ":" + SanitizeKeySegment(ip)
}

func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
