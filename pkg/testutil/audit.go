package testutil

import (
	"context"
	"sync"

	audit "yeirin/pkg/platform/audit"
)

// AuditRecorder captures emitted audit events for assertions.
type AuditRecorder struct {
	mu     sync.Mutex
	events []audit.Event
	Err    error
}

func (r *AuditRecorder) Emit(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Events returns a copy of everything emitted so far.
func (r *AuditRecorder) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

// Actions returns the action of every emitted event, in order.
func (r *AuditRecorder) Actions() []string {
	events := r.Events()
	actions := make([]string, len(events))
	for i, e := range events {
		actions[i] = e.Action
	}
	return actions
}
