package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/pocketbase/dbx"
)

// Query selects cached rows. Where is pushed down to SQLite; Match and Less
// run in Go on decoded values. All fields are optional.
type Query[T any] struct {
	Where dbx.Expression
	Match func(T) bool
	Less  func(a, b T) bool
	Limit int
}

// Rows is one emission of a live cache query.
type Rows[T any] struct {
	Items []T
	Err   error
}

// Count is one emission of a live count.
type Count struct {
	N   int
	Err error
}

type row struct {
	ID      string `db:"id"`
	Payload string `db:"payload"`
}

// Table is the cache table for one entity kind.
type Table[T any] struct {
	db     *DB
	name   string
	idOf   func(T) string
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan struct{}
}

// NewTable creates the table if needed. idOf extracts the primary key.
func NewTable[T any](db *DB, name string, idOf func(T) string) (*Table[T], error) {
	if err := db.createTable(name); err != nil {
		return nil, err
	}
	return &Table[T]{
		db:   db,
		name: name,
		idOf: idOf,
		subs: make(map[uint64]chan struct{}),
	}, nil
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

func (t *Table[T]) upsertSQL() string {
	return fmt.Sprintf(
		"INSERT INTO {{%s}} ([[id]], [[payload]], [[updated_at]]) VALUES ({:id}, {:payload}, {:ts}) "+
			"ON CONFLICT([[id]]) DO UPDATE SET [[payload]] = excluded.[[payload]], [[updated_at]] = excluded.[[updated_at]]",
		t.name)
}

func (t *Table[T]) upsertWith(ctx context.Context, b dbx.Builder, items []T) error {
	now := time.Now().UnixMilli()
	for _, item := range items {
		id := t.idOf(item)
		if id == "" {
			return fmt.Errorf("cache %s: cannot store an item without id", t.name)
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("cache %s: failed to encode %s: %w", t.name, id, err)
		}
		_, err = b.NewQuery(t.upsertSQL()).
			Bind(dbx.Params{"id": id, "payload": string(payload), "ts": now}).
			WithContext(ctx).
			Execute()
		if err != nil {
			return fmt.Errorf("cache %s: failed to upsert %s: %w", t.name, id, err)
		}
	}
	return nil
}

// Upsert inserts or replaces one item.
func (t *Table[T]) Upsert(ctx context.Context, item T) error {
	if err := t.upsertWith(ctx, t.db.db, []T{item}); err != nil {
		return err
	}
	t.notify()
	return nil
}

// UpsertMany inserts or replaces items in one transaction.
func (t *Table[T]) UpsertMany(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	err := t.db.db.TransactionalContext(ctx, nil, func(tx *dbx.Tx) error {
		return t.upsertWith(ctx, tx, items)
	})
	if err != nil {
		return err
	}
	t.notify()
	return nil
}

// DeleteByID removes one row. Removing an absent row succeeds.
func (t *Table[T]) DeleteByID(ctx context.Context, id string) error {
	_, err := t.db.db.Delete(t.name, dbx.HashExp{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("cache %s: failed to delete %s: %w", t.name, id, err)
	}
	t.notify()
	return nil
}

// Replace makes the rows selected by scope equal to items: rows in scope that
// are absent from items are deleted, items are upserted. It folds a fresh
// remote snapshot into the cache atomically.
func (t *Table[T]) Replace(ctx context.Context, scope Query[T], items []T) error {
	err := t.db.db.TransactionalContext(ctx, nil, func(tx *dbx.Tx) error {
		current, err := t.list(ctx, tx, Query[T]{Where: scope.Where, Match: scope.Match})
		if err != nil {
			return err
		}
		keep := make(map[string]bool, len(items))
		for _, item := range items {
			keep[t.idOf(item)] = true
		}
		for _, item := range current {
			id := t.idOf(item)
			if keep[id] {
				continue
			}
			if _, err := tx.Delete(t.name, dbx.HashExp{"id": id}).WithContext(ctx).Execute(); err != nil {
				return fmt.Errorf("cache %s: failed to delete %s: %w", t.name, id, err)
			}
		}
		return t.upsertWith(ctx, tx, items)
	})
	if err != nil {
		return err
	}
	t.notify()
	return nil
}

// Get returns the cached item with id; ok is false when absent.
func (t *Table[T]) Get(ctx context.Context, id string) (item T, ok bool, err error) {
	items, err := t.list(ctx, t.db.db, Query[T]{Where: dbx.HashExp{"id": id}})
	if err != nil || len(items) == 0 {
		return item, false, err
	}
	return items[0], true, nil
}

// List returns the items selected by q.
func (t *Table[T]) List(ctx context.Context, q Query[T]) ([]T, error) {
	return t.list(ctx, t.db.db, q)
}

func (t *Table[T]) list(ctx context.Context, b dbx.Builder, q Query[T]) ([]T, error) {
	query := b.Select("id", "payload").From(t.name).OrderBy("id").WithContext(ctx)
	if q.Where != nil {
		query = query.Where(q.Where)
	}

	var rows []row
	if err := query.All(&rows); err != nil {
		return nil, fmt.Errorf("cache %s: query failed: %w", t.name, err)
	}

	items := make([]T, 0, len(rows))
	for _, r := range rows {
		var item T
		if err := json.Unmarshal([]byte(r.Payload), &item); err != nil {
			return nil, fmt.Errorf("cache %s: failed to decode %s: %w", t.name, r.ID, err)
		}
		if q.Match != nil && !q.Match(item) {
			continue
		}
		items = append(items, item)
	}

	if q.Less != nil {
		sort.SliceStable(items, func(i, j int) bool { return q.Less(items[i], items[j]) })
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

// Count returns the number of items selected by q.
func (t *Table[T]) Count(ctx context.Context, q Query[T]) (int, error) {
	items, err := t.list(ctx, t.db.db, Query[T]{Where: q.Where, Match: q.Match})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Watch emits the result of q now and after every mutation of the table.
// Identical consecutive results are not re-emitted. The channel closes when
// ctx is cancelled or after an emission carrying an error.
func (t *Table[T]) Watch(ctx context.Context, q Query[T]) <-chan Rows[T] {
	out := make(chan Rows[T], 1)
	signal, unsubscribe := t.subscribe()

	go func() {
		defer close(out)
		defer unsubscribe()

		var last []T
		first := true
		for {
			items, err := t.List(ctx, q)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				t.db.logger.Warn("cache query failed", "table", t.name, "error", err)
				select {
				case out <- Rows[T]{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if first || !reflect.DeepEqual(items, last) {
				select {
				case out <- Rows[T]{Items: items}:
				case <-ctx.Done():
					return
				}
				last, first = items, false
			}
			select {
			case <-signal:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// WatchCount emits the number of items selected by q after every mutation.
func (t *Table[T]) WatchCount(ctx context.Context, q Query[T]) <-chan Count {
	q.Less, q.Limit = nil, 0
	in := t.Watch(ctx, q)
	out := make(chan Count, 1)

	go func() {
		defer close(out)
		last := -1
		for rows := range in {
			next := Count{N: len(rows.Items), Err: rows.Err}
			if next.Err == nil && next.N == last {
				continue
			}
			select {
			case out <- next:
			case <-ctx.Done():
				return
			}
			last = next.N
		}
	}()

	return out
}

// Subscribers returns the number of live queries on the table.
func (t *Table[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (t *Table[T]) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs[id] = ch
	t.mu.Unlock()

	return ch, func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *Table[T]) notify() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
