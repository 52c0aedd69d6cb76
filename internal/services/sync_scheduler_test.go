package services_test

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

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/metrics"
	"github.com/ericfisherdev/projectsync/internal/services"
)

func newScheduler(t *testing.T) (*services.SyncScheduler, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s := services.NewSyncScheduler(services.SyncSchedulerConfig{Metrics: m, JobTimeout: 2 * time.Second})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s, m
}

func noop(context.Context) error { return nil }

func TestSyncScheduler_AddJob(t *testing.T) {
	s, _ := newScheduler(t)

	require.NoError(t, s.AddJob("tasks", "@every 5m", noop))
	require.NoError(t, s.AddJob("notifications", "*/10 * * * *", noop))

	tests := []struct {
		name    string
		job     string
		spec    string
		fn      services.SyncJob
		errType domain.ErrorType
	}{
		{"duplicate name", "tasks", "@every 1m", noop, domain.ConflictError},
		{"bad schedule", "broken", "every now and then", noop, domain.ValidationError},
		{"empty name", "", "@every 1m", noop, domain.ValidationError},
		{"nil job", "nil", "@every 1m", nil, domain.ValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddJob(tt.job, tt.spec, tt.fn)
			require.Error(t, err)
			if got := domain.ErrorTypeOf(err); got != tt.errType {
				t.Errorf("AddJob() error type = %v, want %v", got, tt.errType)
			}
		})
	}

	assert.Equal(t, []string{"notifications", "tasks"}, s.Jobs())
	assert.True(t, s.RemoveJob("tasks"))
	assert.False(t, s.RemoveJob("tasks"))
	assert.Equal(t, []string{"notifications"}, s.Jobs())
}

func TestSyncScheduler_RunNow(t *testing.T) {
	s, m := newScheduler(t)
	boom := errors.New("remote unavailable")

	require.NoError(t, s.AddJob("ok", "@every 1h", noop))
	require.NoError(t, s.AddJob("failing", "@every 1h", func(context.Context) error { return boom }))

	ctx := context.Background()
	assert.NoError(t, s.RunNow(ctx, "ok"))
	assert.ErrorIs(t, s.RunNow(ctx, "failing"), boom)
	assert.True(t, domain.IsNotFound(s.RunNow(ctx, "missing")))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncJobRuns.WithLabelValues("ok", metrics.OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncJobRuns.WithLabelValues("failing", metrics.OutcomeError)))
}

func TestSyncScheduler_RunsOnScheduleAndStops(t *testing.T) {
	s, m := newScheduler(t)

	var runs atomic.Int32
	require.NoError(t, s.AddJob("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return errors.New("still offline")
	}))

	blocked := make(chan struct{})
	var released atomic.Bool
	require.NoError(t, s.AddJob("slow", "@every 1s", func(ctx context.Context) error {
		select {
		case blocked <- struct{}{}:
		default:
		}
		<-ctx.Done()
		released.Store(true)
		return ctx.Err()
	}))

	s.Start()
	s.Start()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	select {
	case <-blocked:
	case <-time.After(3 * time.Second):
		t.Fatal("slow job never started")
	}

	// failures do not stop the schedule
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.SyncJobRuns.WithLabelValues("tick", metrics.OutcomeError)), float64(2))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.True(t, released.Load(), "stop cancels running jobs")

	after := runs.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}
