package remote

import (
	"context"
	"fmt"
)

// Items is one emission of a typed live query.
type Items[T any] struct {
	Items []T
	Err   error
}

// Collection is a typed view of one store collection. T is usually a
// pointer to a domain entity; values are mapped through their JSON form.
type Collection[T any] struct {
	store Store
	name  string
}

func NewCollection[T any](store Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Store returns the underlying store, for batched writes spanning collections.
func (c *Collection[T]) Store() Store { return c.store }

// Create persists v and returns the final id.
func (c *Collection[T]) Create(ctx context.Context, v T) (string, error) {
	doc, err := Encode(v)
	if err != nil {
		return "", err
	}
	return c.store.Create(ctx, c.name, doc)
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return zero, err
	}
	return c.decode(doc)
}

// Set overwrites the document with id using v.
func (c *Collection[T]) Set(ctx context.Context, id string, v T) error {
	doc, err := c.Document(v)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.name, id, doc)
}

func (c *Collection[T]) Update(ctx context.Context, id string, patch Patch) error {
	return c.store.Update(ctx, c.name, id, patch)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

func (c *Collection[T]) Query(ctx context.Context, q Query) ([]T, error) {
	docs, err := c.store.Query(ctx, c.name, q)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(docs)
}

func (c *Collection[T]) Count(ctx context.Context, q Query) (int, error) {
	return c.store.Count(ctx, c.name, q)
}

// Document encodes v for use in a batched Write.
func (c *Collection[T]) Document(v T) (Document, error) {
	return Encode(v)
}

// Watch maps a live query into typed items. Decoding failures end the
// subscription like any other listener error.
func (c *Collection[T]) Watch(ctx context.Context, q Query) <-chan Items[T] {
	ctx, cancel := context.WithCancel(ctx)
	in := c.store.Watch(ctx, c.name, q)
	out := make(chan Items[T], 1)

	go func() {
		defer close(out)
		defer cancel()
		for snap := range in {
			var next Items[T]
			if snap.Err != nil {
				next.Err = snap.Err
			} else {
				next.Items, next.Err = c.decodeAll(snap.Docs)
			}
			select {
			case out <- next:
			case <-ctx.Done():
				return
			}
			if next.Err != nil {
				return
			}
		}
	}()

	return out
}

func (c *Collection[T]) decode(doc Document) (T, error) {
	var v T
	if err := Decode(doc, &v); err != nil {
		return v, fmt.Errorf("collection %s: %w", c.name, err)
	}
	return v, nil
}

func (c *Collection[T]) decodeAll(docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := c.decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
