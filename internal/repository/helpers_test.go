package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/cache"
	"github.com/ericfisherdev/projectsync/internal/metrics"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

const waitFor = 5 * time.Second

type testEnv struct {
	store   *remote.MemoryStore
	db      *cache.DB
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := cache.Open(cache.MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &testEnv{
		store:   remote.NewMemoryStore(nil, nil),
		db:      db,
		metrics: metrics.NewWithRegistry(prometheus.NewRegistry()),
	}
}

func (e *testEnv) options() repository.Options {
	return repository.Options{Metrics: e.metrics}
}

func (e *testEnv) tasks(t *testing.T) *repository.TaskRepository {
	t.Helper()
	repo, err := repository.NewTaskRepository(e.store, e.db, e.options())
	require.NoError(t, err)
	return repo
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	t.Cleanup(cancel)
	return ctx
}

// settled returns the data of the first non-Loading emission and fails the
// test on an Error.
func settled[T any](t *testing.T, ctx context.Context, s resource.Stream[T]) T {
	t.Helper()
	r, err := resource.Settled(ctx, s)
	require.NoError(t, err)
	v, ok := r.Data()
	require.True(t, ok, "expected success, got %s", r)
	return v
}

// until reads emissions until a Success satisfies pred.
func until[T any](t *testing.T, ctx context.Context, s resource.Stream[T], pred func(T) bool) T {
	t.Helper()
	r, err := resource.Until(ctx, s, func(r resource.Resource[T]) bool {
		v, ok := r.Data()
		return r.IsError() || (ok && pred(v))
	})
	require.NoError(t, err)
	v, ok := r.Data()
	require.True(t, ok, "expected success, got %s", r)
	return v
}

// untilError reads emissions until an Error and returns its message.
func untilError[T any](t *testing.T, ctx context.Context, s resource.Stream[T]) string {
	t.Helper()
	r, err := resource.Until(ctx, s, resource.Resource[T].IsError)
	require.NoError(t, err)
	return r.Message()
}

func mustData[T any](t *testing.T, r resource.Resource[T]) T {
	t.Helper()
	v, ok := r.Data()
	require.True(t, ok, "expected success, got %s", r)
	return v
}

func yesterday() *time.Time {
	v := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Millisecond)
	return &v
}

func tomorrow() *time.Time {
	v := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Millisecond)
	return &v
}

func remoteAll() remote.Query {
	return remote.NewQuery()
}
