package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yeirin/internal/ratelimit/metrics"
	"yeirin/internal/ratelimit/models"
	"yeirin/internal/ratelimit/store"
)

type brokenStore struct{}

func (brokenStore) Allow(context.Context, string, models.Policy) (*models.Result, error) {
	return nil, errors.New("connection refused")
}

func TestDefaultPolicies(t *testing.T) {
	svc, err := New(store.NewInMemory())
	require.NoError(t, err)

	p, ok := svc.Policy(models.ClassMatching)
	require.True(t, ok)
	assert.Equal(t, DefaultMatchingPerMinute, p.Limit)
	p, _ = svc.Policy(models.ClassAuth)
	assert.Equal(t, DefaultAuthPerMinute, p.Limit)

	svc, err = New(store.NewInMemory(), WithPerMinute(models.ClassMatching, 0))
	require.NoError(t, err)
	p, _ = svc.Policy(models.ClassMatching)
	assert.Equal(t, DefaultMatchingPerMinute, p.Limit, "non-positive overrides are ignored")
}

func TestClassesAreSeparateBuckets(t *testing.T) {
	svc, err := New(store.NewInMemory(), WithPerMinute(models.ClassAuth, 1), WithPerMinute(models.ClassMatching, 1))
	require.NoError(t, err)
	ctx := context.Background()

	r, err := svc.Check(ctx, models.ClassAuth, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	r, err = svc.Check(ctx, models.ClassMatching, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	r, err = svc.Check(ctx, models.ClassAuth, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, r.Allowed)
}

func TestCheckErrors(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	svc, err := New(brokenStore{}, WithMetrics(m))
	require.NoError(t, err)

	_, err = svc.Check(context.Background(), models.ClassAuth, "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.StoreErrors))

	_, err = svc.Check(context.Background(), models.EndpointClass("unknown"), "10.0.0.1")
	assert.ErrorContains(t, err, "unknown endpoint class")
}
