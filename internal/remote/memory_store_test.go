package remote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/remote"
)

func newStore() *remote.MemoryStore {
	return remote.NewMemoryStore(nil, nil)
}

func TestMemoryStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	id, err := s.Create(ctx, "tasks", remote.Document{"title": "Ship", "points": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, "tasks", id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID())
	assert.Equal(t, "Ship", doc["title"])
	assert.Equal(t, float64(3), doc["points"])

	_, err = s.Get(ctx, "tasks", "missing")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestMemoryStore_CallerAssignedID(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	id, err := s.Create(ctx, "users", remote.Document{"id": "u1", "email": "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	_, err = s.Create(ctx, "users", remote.Document{"id": "u1"})
	assert.ErrorIs(t, err, remote.ErrAlreadyExists)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	id, err := s.Create(ctx, "tasks", remote.Document{"tags": []string{"a"}})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "tasks", id)
	require.NoError(t, err)
	doc["tags"] = []any{"mutated"}

	again, err := s.Get(ctx, "tasks", id)
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, again["tags"])
}

func TestMemoryStore_UpdateTransforms(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	id, err := s.Create(ctx, "messages", remote.Document{
		"read_by":      []string{"alice"},
		"unread_count": map[string]int{"bob": 2},
		"views":        1,
	})
	require.NoError(t, err)

	err = s.Update(ctx, "messages", id, remote.Patch{
		"read_by":          remote.ArrayUnion("alice", "bob"),
		"unread_count.bob": 0,
		"views":            remote.Increment(2),
		"status":           "read",
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "messages", id)
	require.NoError(t, err)
	assert.Equal(t, []any{"alice", "bob"}, doc["read_by"])
	assert.Equal(t, map[string]any{"bob": float64(0)}, doc["unread_count"])
	assert.Equal(t, float64(3), doc["views"])
	assert.Equal(t, "read", doc["status"])

	require.NoError(t, s.Update(ctx, "messages", id, remote.Patch{"read_by": remote.ArrayRemove("alice")}))
	doc, err = s.Get(ctx, "messages", id)
	require.NoError(t, err)
	assert.Equal(t, []any{"bob"}, doc["read_by"])

	assert.ErrorIs(t, s.Update(ctx, "messages", "missing", remote.Patch{"x": 1}), remote.ErrNotFound)
}

func TestMemoryStore_SetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	doc := remote.Document{"title": "Same", "done": false}

	require.NoError(t, s.Set(ctx, "tasks", "t1", doc))
	first, err := s.Get(ctx, "tasks", "t1")
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "tasks", "t1", doc))
	second, err := s.Get(ctx, "tasks", "t1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	id, err := s.Create(ctx, "tasks", remote.Document{})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "tasks", id))
	require.NoError(t, s.Delete(ctx, "tasks", id))
	_, err = s.Get(ctx, "tasks", id)
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestMemoryStore_BatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.Set(ctx, "notifications", "n1", remote.Document{"is_read": false}))

	err := s.Batch(ctx, []remote.Write{
		remote.UpdateWrite("notifications", "n1", remote.Patch{"is_read": true}),
		remote.UpdateWrite("notifications", "missing", remote.Patch{"is_read": true}),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrNotFound)

	doc, err := s.Get(ctx, "notifications", "n1")
	require.NoError(t, err)
	assert.Equal(t, false, doc["is_read"], "failed batch must not leave partial writes")

	require.NoError(t, s.Batch(ctx, []remote.Write{
		remote.UpdateWrite("notifications", "n1", remote.Patch{"is_read": true}),
		remote.SetWrite("notifications", "n2", remote.Document{"is_read": true}),
		remote.DeleteWrite("notifications", "n3"),
	}))
	count, err := s.Count(ctx, "notifications", remote.NewQuery().Where("is_read", remote.Eq, true))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryStore_FailWith(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	offline := errors.New("offline")

	s.FailWith(offline)
	_, err := s.Create(ctx, "tasks", remote.Document{})
	assert.ErrorIs(t, err, offline)

	s.FailWith(nil)
	_, err = s.Create(ctx, "tasks", remote.Document{})
	assert.NoError(t, err)
}

func TestMemoryStore_WatchEmitsOnChange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := newStore()

	q := remote.NewQuery().Where("project_id", remote.Eq, "p1").OrderBy("title", false)
	snaps := s.Watch(ctx, "tasks", q)

	first := <-snaps
	require.NoError(t, first.Err)
	assert.Empty(t, first.Docs)

	_, err := s.Create(ctx, "tasks", remote.Document{"project_id": "p1", "title": "b"})
	require.NoError(t, err)
	next := <-snaps
	require.Len(t, next.Docs, 1)

	// unrelated documents do not produce a duplicate emission
	_, err = s.Create(ctx, "tasks", remote.Document{"project_id": "p2", "title": "z"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "tasks", remote.Document{"project_id": "p1", "title": "a"})
	require.NoError(t, err)

	next = <-snaps
	require.Len(t, next.Docs, 2)
	assert.Equal(t, "a", next.Docs[0]["title"])
}

func TestMemoryStore_WatchCancelReleasesListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newStore()

	snaps := s.Watch(ctx, "tasks", remote.NewQuery())
	<-snaps
	assert.Equal(t, 1, s.Hub().ListenerCount("tasks"))

	cancel()
	for range snaps {
	}
	assert.Equal(t, 0, s.Hub().ListenerCount("tasks"))

	_, err := s.Create(context.Background(), "tasks", remote.Document{"title": "after"})
	require.NoError(t, err)
	_, open := <-snaps
	assert.False(t, open)
}

func TestMemoryStore_WatchEndsOnError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := newStore()
	s.FailWith(errors.New("permission denied"))

	snaps := s.Watch(ctx, "tasks", remote.NewQuery())
	snap := <-snaps
	require.Error(t, snap.Err)

	_, open := <-snaps
	assert.False(t, open, "a failed listener does not retry")
	assert.Equal(t, 0, s.Hub().ListenerCount("tasks"))
}

func TestMemoryStore_FreshIDsProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("create without id never reuses an id", prop.ForAll(
		func(n int) bool {
			ctx := context.Background()
			s := newStore()
			seen := make(map[string]bool, n)
			for i := 0; i < n; i++ {
				id, err := s.Create(ctx, "tasks", remote.Document{"n": i})
				if err != nil || id == "" || seen[id] {
					return false
				}
				seen[id] = true
			}
			return true
		},
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}
