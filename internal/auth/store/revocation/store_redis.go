package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Redis key prefix for revoked tokens
const revokedTokenKeyPrefix = "trl:jti:"

// RedisTRL is a Redis-backed revocation list shared by every instance.
// Entries expire with the token, so Redis does the cleanup.
type RedisTRL struct {
	client          *redis.Client
	isRevokedMillis prometheus.Histogram
}

type RedisTRLOption func(*RedisTRL)

// WithRedisMetrics records IsRevoked latency on reg.
func WithRedisMetrics(reg prometheus.Registerer) RedisTRLOption {
	return func(t *RedisTRL) {
		t.isRevokedMillis = promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "yeirin_is_token_revoked_duration_ms",
			Help:    "Latency of token revocation checks in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		})
	}
}

func NewRedisTRL(client *redis.Client, opts ...RedisTRLOption) *RedisTRL {
	trl := &RedisTRL{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

// RevokeToken stores a marker key with the remaining token lifetime as TTL.
func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if jti == "" {
		return nil
	}
	return t.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err()
}

func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if t.isRevokedMillis != nil {
		start := time.Now()
		defer func() {
			t.isRevokedMillis.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
		}()
	}
	if jti == "" {
		return false, nil
	}
	_, err := t.client.Get(ctx, revokedTokenKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
