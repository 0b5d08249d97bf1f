package reaper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ofertas/pkg/requestcontext"
)

func TestRunOnce(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("runs every sweep with the same clock", func(t *testing.T) {
		var seen []time.Time
		sweep := func(n int) func(context.Context, time.Time) (int, error) {
			return func(ctx context.Context, at time.Time) (int, error) {
				seen = append(seen, at, requestcontext.Now(ctx))
				return n, nil
			}
		}
		m := NewMetrics(prometheus.NewRegistry())
		r, err := New([]Sweep{{Name: "status", Run: sweep(2)}, {Name: "daily_offers", Run: sweep(3)}}, WithMetrics(m))
		require.NoError(t, err)

		removed, err := r.RunOnce(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, 5, removed)
		for _, at := range seen {
			assert.True(t, now.Equal(at))
		}
		assert.Equal(t, 3.0, testutil.ToFloat64(m.Removed.WithLabelValues("daily_offers")))
	})

	t.Run("failing sweep does not stop the others", func(t *testing.T) {
		boom := errors.New("boom")
		m := NewMetrics(prometheus.NewRegistry())
		r, err := New([]Sweep{
			{Name: "status", Run: func(context.Context, time.Time) (int, error) { return 0, boom }},
			{Name: "ratelimit", Run: func(context.Context, time.Time) (int, error) { return 4, nil }},
		}, WithMetrics(m))
		require.NoError(t, err)

		removed, err := r.RunOnce(context.Background(), now)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 4, removed)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("status")))
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	r, err := New([]Sweep{{Name: "status", Run: func(context.Context, time.Time) (int, error) {
		calls.Add(1)
		return 0, nil
	}}}, WithInterval(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNewValidatesSweeps(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]Sweep{{Name: "status"}})
	assert.Error(t, err)
}
