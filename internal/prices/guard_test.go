package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardTripsOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	g := NewGuard(GuardOptions{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute})
	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		_, err = g.Do(context.Background(), req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http 502")
		assert.NotErrorIs(t, err, ErrDataUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = g.Do(context.Background(), req)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGuardNotFoundDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	g := NewGuard(GuardOptions{Name: "test", MaxFailures: 1})
	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		_, err = g.Do(context.Background(), req)
		assert.ErrorIs(t, err, ErrDataUnavailable)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
}

func TestGuardRateLimitHonoursDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	g := NewGuard(GuardOptions{Name: "test", RatePerSecond: 0.01, Burst: 1})

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	body, err := g.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Do(ctx, req)
	assert.ErrorIs(t, err, ErrTimeout)
}
