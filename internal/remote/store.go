// Package remote is the gateway to the authoritative document store. It
// defines a backend-neutral Store contract with an in-memory and a PocketBase
// implementation, a change Hub driving live queries, and a Redis bridge that
// carries changes between processes.
package remote

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("remote: document not found")

// ErrAlreadyExists is returned by Create for a caller-assigned id that is taken.
var ErrAlreadyExists = errors.New("remote: document already exists")

// WriteKind selects the mutation performed by a batched Write.
type WriteKind uint8

const (
	WriteSet WriteKind = iota + 1
	WriteUpdate
	WriteDelete
)

// Write is one element of a Batch.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Doc        Document
	Patch      Patch
}

// SetWrite overwrites (or creates) a document inside a batch.
func SetWrite(collection, id string, doc Document) Write {
	return Write{Kind: WriteSet, Collection: collection, ID: id, Doc: doc}
}

// UpdateWrite patches a document inside a batch.
func UpdateWrite(collection, id string, patch Patch) Write {
	return Write{Kind: WriteUpdate, Collection: collection, ID: id, Patch: patch}
}

// DeleteWrite removes a document inside a batch.
func DeleteWrite(collection, id string) Write {
	return Write{Kind: WriteDelete, Collection: collection, ID: id}
}

// Snapshot is one emission of a live query: the full current result set, or
// the error that ended the subscription.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Store is the authoritative document store.
type Store interface {
	// Create persists doc and returns its id. A non-empty doc["id"] is used
	// as a caller-assigned id; otherwise the store generates one.
	Create(ctx context.Context, collection string, doc Document) (string, error)
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Set overwrites every field of the document, creating it if absent.
	Set(ctx context.Context, collection, id string, doc Document) error
	// Update applies patch atomically; ErrNotFound if the document is absent.
	Update(ctx context.Context, collection, id string, patch Patch) error
	// Delete removes the document. Deleting an absent document succeeds.
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	Count(ctx context.Context, collection string, q Query) (int, error)
	// Batch applies all writes atomically.
	Batch(ctx context.Context, writes []Write) error
	// Watch emits the query result now and after every change to the
	// collection. The channel closes when ctx is cancelled or after a
	// Snapshot carrying an error; the listener is released in both cases.
	Watch(ctx context.Context, collection string, q Query) <-chan Snapshot
}

// watchQuery runs query once and again after every change published on hub
// for collection. Bursts of changes coalesce into a single re-run and
// identical consecutive results are not re-emitted.
func watchQuery(ctx context.Context, hub *Hub, collection string, logger *slog.Logger, run func(context.Context) ([]Document, error)) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	signal := make(chan struct{}, 1)

	cancel := hub.Listen(collection, func(Change) {
		select {
		case signal <- struct{}{}:
		default:
		}
	})

	go func() {
		defer close(out)
		defer cancel()

		var last []Document
		first := true
		for {
			docs, err := run(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				logger.Error("live query failed", "collection", collection, "error", err)
				select {
				case out <- Snapshot{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			if first || !reflect.DeepEqual(docs, last) {
				select {
				case out <- Snapshot{Docs: docs}:
				case <-ctx.Done():
					return
				}
				last = docs
				first = false
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
