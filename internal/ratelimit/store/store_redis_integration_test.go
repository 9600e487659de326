//go:build integration

package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"yeirin/internal/ratelimit/models"
	"yeirin/pkg/testutil/containers"
)

type RedisLimiterStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *Redis
	ctx   context.Context
}

func TestRedisLimiterStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLimiterStoreSuite))
}

func (s *RedisLimiterStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedis(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisLimiterStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisLimiterStoreSuite) TestLimitAndHeaders() {
	p := models.Policy{Limit: 2, Window: time.Minute}
	first, err := s.store.Allow(s.ctx, "rl:test:a", p)
	s.Require().NoError(err)
	s.True(first.Allowed)
	s.Equal(1, first.Remaining)

	_, err = s.store.Allow(s.ctx, "rl:test:a", p)
	s.Require().NoError(err)
	denied, err := s.store.Allow(s.ctx, "rl:test:a", p)
	s.Require().NoError(err)
	s.False(denied.Allowed)
	s.Equal(0, denied.Remaining)
	s.GreaterOrEqual(denied.RetryAfter, 1)
	s.LessOrEqual(denied.RetryAfter, 60)

	ttl, err := s.redis.Client.PTTL(s.ctx, "rl:test:a").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0), "buckets expire on their own")
}

func (s *RedisLimiterStoreSuite) TestWindowExpires() {
	p := models.Policy{Limit: 1, Window: 200 * time.Millisecond}
	r, err := s.store.Allow(s.ctx, "rl:test:short", p)
	s.Require().NoError(err)
	s.True(r.Allowed)
	r, err = s.store.Allow(s.ctx, "rl:test:short", p)
	s.Require().NoError(err)
	s.False(r.Allowed)

	time.Sleep(250 * time.Millisecond)
	r, err = s.store.Allow(s.ctx, "rl:test:short", p)
	s.Require().NoError(err)
	s.True(r.Allowed)
}

func (s *RedisLimiterStoreSuite) TestConcurrentCallersShareTheLimit() {
	p := models.Policy{Limit: 5, Window: time.Minute}
	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.store.Allow(s.ctx, "rl:test:concurrent", p)
			if err == nil && r.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(p.Limit), allowed.Load())
}
