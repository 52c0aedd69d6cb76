package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store. It is used by tests and by the
// offline demo mode of the CLI.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	hub         *Hub
	logger      *slog.Logger
	failWith    error
}

// NewMemoryStore creates an empty store publishing changes on hub. A nil hub
// gets a private one.
func NewMemoryStore(hub *Hub, logger *slog.Logger) *MemoryStore {
	if hub == nil {
		hub = NewHub()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
		hub:         hub,
		logger:      logger,
	}
}

// Hub returns the change hub the store publishes on.
func (s *MemoryStore) Hub() *Hub { return s.hub }

// FailWith makes every subsequent call return err until it is reset with nil.
// It simulates an unreachable backend.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failWith != nil {
		return s.failWith
	}
	return nil
}

func (s *MemoryStore) coll(name string) map[string]Document {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]Document)
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	s.mu.Lock()
	if err := s.check(ctx); err != nil {
		s.mu.Unlock()
		return "", err
	}
	stored := normalizeDocument(doc)
	id := stored.ID()
	c := s.coll(collection)
	if id == "" {
		id = uuid.NewString()
	} else if _, exists := c[id]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
	}
	stored["id"] = id
	c[id] = stored
	s.mu.Unlock()

	s.hub.Publish(Change{Collection: collection, ID: id, Op: OpCreate})
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc Document) error {
	s.mu.Lock()
	if err := s.check(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	op := s.setLocked(collection, id, doc)
	s.mu.Unlock()

	s.hub.Publish(Change{Collection: collection, ID: id, Op: op})
	return nil
}

func (s *MemoryStore) setLocked(collection, id string, doc Document) ChangeOp {
	c := s.coll(collection)
	op := OpUpdate
	if _, exists := c[id]; !exists {
		op = OpCreate
	}
	stored := normalizeDocument(doc)
	stored["id"] = id
	c[id] = stored
	return op
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, patch Patch) error {
	s.mu.Lock()
	if err := s.check(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	err := s.updateLocked(collection, id, patch)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.hub.Publish(Change{Collection: collection, ID: id, Op: OpUpdate})
	return nil
}

func (s *MemoryStore) updateLocked(collection, id string, patch Patch) error {
	current, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	next := current.Clone()
	if err := applyPatch(next, patch); err != nil {
		return err
	}
	s.collections[collection][id] = next
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	if err := s.check(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	_, existed := s.collections[collection][id]
	delete(s.collections[collection], id)
	s.mu.Unlock()

	if existed {
		s.hub.Publish(Change{Collection: collection, ID: id, Op: OpDelete})
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	all := make([]Document, 0, len(s.collections[collection]))
	for _, d := range s.collections[collection] {
		all = append(all, d.Clone())
	}
	return q.Apply(all), nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string, q Query) (int, error) {
	docs, err := s.Query(ctx, collection, q.WithLimit(0))
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Batch validates every write against a scratch copy before committing, so a
// failing write leaves the store untouched.
func (s *MemoryStore) Batch(ctx context.Context, writes []Write) error {
	s.mu.Lock()
	if err := s.check(ctx); err != nil {
		s.mu.Unlock()
		return err
	}

	scratch := make(map[string]map[string]Document, len(s.collections))
	for name, c := range s.collections {
		copied := make(map[string]Document, len(c))
		for id, d := range c {
			copied[id] = d
		}
		scratch[name] = copied
	}
	original := s.collections
	s.collections = scratch

	changes := make([]Change, 0, len(writes))
	for _, w := range writes {
		var err error
		switch w.Kind {
		case WriteSet:
			changes = append(changes, Change{Collection: w.Collection, ID: w.ID, Op: s.setLocked(w.Collection, w.ID, w.Doc)})
		case WriteUpdate:
			err = s.updateLocked(w.Collection, w.ID, w.Patch)
			changes = append(changes, Change{Collection: w.Collection, ID: w.ID, Op: OpUpdate})
		case WriteDelete:
			delete(s.coll(w.Collection), w.ID)
			changes = append(changes, Change{Collection: w.Collection, ID: w.ID, Op: OpDelete})
		default:
			err = fmt.Errorf("unknown write kind %d", w.Kind)
		}
		if err != nil {
			s.collections = original
			s.mu.Unlock()
			return fmt.Errorf("batch write %s/%s failed: %w", w.Collection, w.ID, err)
		}
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.hub.Publish(c)
	}
	return nil
}

func (s *MemoryStore) Watch(ctx context.Context, collection string, q Query) <-chan Snapshot {
	return watchQuery(ctx, s.hub, collection, s.logger, func(ctx context.Context) ([]Document, error) {
		return s.Query(ctx, collection, q)
	})
}

func normalizeDocument(doc Document) Document {
	if doc == nil {
		return Document{}
	}
	m, ok := normalize(map[string]any(doc)).(map[string]any)
	if !ok {
		return doc.Clone()
	}
	return m
}
