// Package repository composes the remote store and the local cache into one
// repository per entity kind. Every operation returns a resource.Resource or
// a resource.Stream; errors never cross this boundary any other way.
//
// Two read patterns are used, one per entity kind:
//
//   - cache-through (Task, Comment, Notification, User): list streams observe
//     the local cache, and a remote watch of the same query folds fresh
//     snapshots into the cache in the background;
//   - direct subscription (Project, Chat, Message, File): list streams forward
//     remote snapshots as they arrive.
//
// One-shot Get calls always go to the remote store.
package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/projectsync/internal/cache"
	"github.com/ericfisherdev/projectsync/internal/metrics"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// Entity is implemented by every stored domain type.
type Entity interface {
	GetID() string
	SetID(id string)
}

// Options carries the collaborators shared by all repositories.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) clock() func() time.Time {
	if o.Clock == nil {
		return time.Now
	}
	return o.Clock
}

// base implements the operations every entity shares. table is nil for
// direct-subscription entities.
type base[T Entity] struct {
	entity  string
	coll    *remote.Collection[T]
	table   *cache.Table[T]
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

func newBase[T Entity](entity string, coll *remote.Collection[T], table *cache.Table[T], opts Options) *base[T] {
	return &base[T]{
		entity:  entity,
		coll:    coll,
		table:   table,
		logger:  opts.logger().With("entity", entity),
		metrics: opts.Metrics,
		clock:   opts.clock(),
	}
}

func openTable[T Entity](db *cache.DB, name string) (*cache.Table[T], error) {
	return cache.NewTable(db, name, func(v T) string { return v.GetID() })
}

// now returns the current time at the precision the remote store keeps.
func (b *base[T]) now() time.Time {
	return b.clock().UTC().Truncate(time.Millisecond)
}

func (b *base[T]) observe(operation string, started time.Time, err error) {
	b.metrics.ObserveOperation(b.entity, operation, err, started)
	if err != nil {
		b.logger.Error("repository operation failed", "operation", operation, "error", err)
	}
}

func (b *base[T]) cachePut(ctx context.Context, operation string, items ...T) {
	if b.table == nil || len(items) == 0 {
		return
	}
	if err := b.table.UpsertMany(ctx, items); err != nil {
		b.metrics.CacheFailed(b.entity, operation)
		b.logger.Warn("cache write failed", "operation", operation, "error", err)
	}
}

func (b *base[T]) cacheDelete(ctx context.Context, operation, id string) {
	if b.table == nil {
		return
	}
	if err := b.table.DeleteByID(ctx, id); err != nil {
		b.metrics.CacheFailed(b.entity, operation)
		b.logger.Warn("cache delete failed", "operation", operation, "id", id, "error", err)
	}
}

func (b *base[T]) cacheReplace(ctx context.Context, scope cache.Query[T], items []T) {
	if err := b.table.Replace(ctx, scope, items); err != nil {
		b.metrics.CacheFailed(b.entity, "replace")
		b.logger.Warn("cache refresh failed", "error", err)
	}
}

// create stores item remotely and mirrors it into the cache on success.
func (b *base[T]) create(ctx context.Context, item T) resource.Resource[T] {
	started := time.Now()
	id, err := b.coll.Create(ctx, item)
	b.observe("create", started, err)
	if err != nil {
		return failure[T](b.entity, err)
	}
	item.SetID(id)
	b.cachePut(ctx, "create", item)
	return resource.Success(item)
}

// update overwrites the whole remote document. A failed remote write leaves
// the cache at its previous value.
func (b *base[T]) update(ctx context.Context, item T) resource.Resource[T] {
	id := item.GetID()
	if id == "" {
		return invalidID[T](b.entity)
	}
	started := time.Now()
	err := b.coll.Set(ctx, id, item)
	b.observe("update", started, err)
	if err != nil {
		return failure[T](b.entity, err)
	}
	b.cachePut(ctx, "update", item)
	return resource.Success(item)
}

// patch applies a partial update and returns the resulting entity.
func (b *base[T]) patch(ctx context.Context, operation, id string, patch remote.Patch) resource.Resource[T] {
	if id == "" {
		return invalidID[T](b.entity)
	}
	started := time.Now()
	err := b.coll.Update(ctx, id, patch)
	var item T
	if err == nil {
		item, err = b.coll.Get(ctx, id)
	}
	b.observe(operation, started, err)
	if err != nil {
		return failure[T](b.entity, err)
	}
	b.cachePut(ctx, operation, item)
	return resource.Success(item)
}

// Delete removes the entity remotely, then from the cache. The cache keeps
// the entity when the remote delete fails.
func (b *base[T]) Delete(ctx context.Context, id string) resource.Resource[bool] {
	if id == "" {
		return invalidID[bool](b.entity)
	}
	started := time.Now()
	err := b.coll.Delete(ctx, id)
	b.observe("delete", started, err)
	if err != nil {
		return failure[bool](b.entity, err)
	}
	b.cacheDelete(ctx, "delete", id)
	return resource.Success(true)
}

// Get fetches the entity from the remote store, bypassing the cache.
func (b *base[T]) Get(ctx context.Context, id string) resource.Resource[T] {
	if id == "" {
		return invalidID[T](b.entity)
	}
	started := time.Now()
	item, err := b.coll.Get(ctx, id)
	b.observe("get", started, err)
	if err != nil {
		return failure[T](b.entity, err)
	}
	return resource.Success(item)
}

// GetStream follows one remote document. Each change produces a Success;
// a missing document or a listener failure produces a final Error.
// Cache-through entities also mirror every version into the cache.
func (b *base[T]) GetStream(ctx context.Context, id string) resource.Stream[T] {
	if id == "" {
		return resource.Once(invalidID[T](b.entity))
	}
	out := make(chan resource.Resource[T], 1)
	out <- resource.Loading[T]()
	b.metrics.Emitted(b.entity, resource.StateLoading.String())

	go func() {
		defer close(out)
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		defer b.metrics.SubscriptionOpened(b.entity)()

		q := remote.NewQuery().Where("id", remote.Eq, id)
		for snap := range b.coll.Watch(ctx, q) {
			if snap.Err != nil {
				b.emit(ctx, out, failure[T](b.entity, snap.Err))
				return
			}
			if len(snap.Items) == 0 {
				b.cacheDelete(ctx, "mirror", id)
				b.emit(ctx, out, failure[T](b.entity, remote.ErrNotFound))
				return
			}
			item := snap.Items[0]
			b.cachePut(ctx, "mirror", item)
			if !b.emit(ctx, out, resource.Success(item)) {
				return
			}
		}
	}()

	return out
}

func (b *base[T]) emit(ctx context.Context, out chan<- resource.Resource[T], r resource.Resource[T]) bool {
	if !resource.Send(ctx, out, r) {
		return false
	}
	b.metrics.Emitted(b.entity, r.State().String())
	b.logger.Debug("stream emission", "state", r.State().String())
	return true
}

// query runs a one-shot remote query.
func (b *base[T]) query(ctx context.Context, operation string, q remote.Query) ([]T, error) {
	started := time.Now()
	items, err := b.coll.Query(ctx, q)
	b.observe(operation, started, err)
	return items, err
}

// watchList forwards remote snapshots of q. A listener failure is emitted
// once and ends the stream; there is no retry.
func (b *base[T]) watchList(ctx context.Context, q remote.Query) resource.Stream[[]T] {
	out := make(chan resource.Resource[[]T], 1)
	out <- resource.Loading[[]T]()
	b.metrics.Emitted(b.entity, resource.StateLoading.String())

	go func() {
		defer close(out)
		defer b.metrics.SubscriptionOpened(b.entity)()

		for snap := range b.coll.Watch(ctx, q) {
			next := resource.Success(snap.Items)
			if snap.Err != nil {
				next = failure[[]T](b.entity, snap.Err)
			}
			if !emitList(ctx, b, out, next) || snap.Err != nil {
				return
			}
		}
	}()

	return out
}

// watchCount maps a remote live query to its result size.
func (b *base[T]) watchCount(ctx context.Context, q remote.Query) resource.Stream[int] {
	out := make(chan resource.Resource[int], 1)
	out <- resource.Loading[int]()

	go func() {
		defer close(out)
		defer b.metrics.SubscriptionOpened(b.entity)()

		last := -1
		for snap := range b.coll.Watch(ctx, q) {
			if snap.Err != nil {
				resource.Send(ctx, out, failure[int](b.entity, snap.Err))
				return
			}
			if len(snap.Items) == last {
				continue
			}
			last = len(snap.Items)
			if !resource.Send(ctx, out, resource.Success(last)) {
				return
			}
		}
	}()

	return out
}

func emitList[T Entity](ctx context.Context, b *base[T], out chan<- resource.Resource[[]T], r resource.Resource[[]T]) bool {
	if !resource.Send(ctx, out, r) {
		return false
	}
	b.metrics.Emitted(b.entity, r.State().String())
	return true
}

// mirror keeps the cache rows selected by scope equal to the remote result
// of q until ctx is done. A listener failure stops the mirror; the cache
// keeps serving what it last held.
func (b *base[T]) mirror(ctx context.Context, scope cache.Query[T], q remote.Query) {
	for snap := range b.coll.Watch(ctx, q) {
		if snap.Err != nil {
			b.metrics.ObserveOperation(b.entity, "mirror", snap.Err, time.Now())
			b.logger.Warn("remote refresh stopped, serving cached data", "error", snap.Err)
			return
		}
		b.cacheReplace(ctx, scope, snap.Items)
	}
}

// cachedList serves scope from the cache and refreshes it from the remote
// query q for as long as ctx lives. scope and q must select the same set.
//
// A remote listener failure is never emitted: mirror logs it and stops, and
// the stream keeps emitting Success from the cache. The only Error a
// cache-through stream emits is a failure of the local cache itself.
func (b *base[T]) cachedList(ctx context.Context, scope cache.Query[T], q remote.Query) resource.Stream[[]T] {
	out := make(chan resource.Resource[[]T], 1)
	out <- resource.Loading[[]T]()
	b.metrics.Emitted(b.entity, resource.StateLoading.String())

	go b.mirror(ctx, scope, q)

	go func() {
		defer close(out)
		defer b.metrics.SubscriptionOpened(b.entity)()

		for rows := range b.table.Watch(ctx, scope) {
			next := resource.Success(rows.Items)
			if rows.Err != nil {
				next = resource.Error[[]T]("Local cache unavailable", rows.Err)
			}
			if !emitList(ctx, b, out, next) || rows.Err != nil {
				return
			}
		}
	}()

	return out
}

// cachedCount is cachedList reduced to the number of rows.
func (b *base[T]) cachedCount(ctx context.Context, scope cache.Query[T], q remote.Query) resource.Stream[int] {
	out := make(chan resource.Resource[int], 1)
	out <- resource.Loading[int]()

	go b.mirror(ctx, scope, q)

	go func() {
		defer close(out)
		defer b.metrics.SubscriptionOpened(b.entity)()

		for c := range b.table.WatchCount(ctx, scope) {
			next := resource.Success(c.N)
			if c.Err != nil {
				next = resource.Error[int]("Local cache unavailable", c.Err)
			}
			if !resource.Send(ctx, out, next) || c.Err != nil {
				return
			}
		}
	}()

	return out
}

// refresh runs q once and folds the result into the cache rows of scope.
func (b *base[T]) refresh(ctx context.Context, scope cache.Query[T], q remote.Query) resource.Resource[[]T] {
	items, err := b.query(ctx, "refresh", q)
	if err != nil {
		return failure[[]T](b.entity, err)
	}
	b.cacheReplace(ctx, scope, items)
	return resource.Success(items)
}
