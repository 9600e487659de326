package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL is a token revocation list for single-process deployments.
// Expired entries are pruned lazily on write.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

func NewInMemoryTRL(clock Clock) *InMemoryTRL {
	if clock == nil {
		clock = time.Now
	}
	return &InMemoryTRL{revoked: make(map[string]time.Time), clock: clock}
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if jti == "" {
		return nil
	}
	now := t.clock()
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, exp := range t.revoked {
		if now.After(exp) {
			delete(t.revoked, k)
		}
	}
	t.revoked[jti] = now.Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	exp, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	return !t.clock().After(exp), nil
}
