package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

// PocketBaseStore implements Store on top of a PocketBase application.
// Committed record changes reach the Hub through PocketBase record hooks,
// so writes made by other code paths in the same app (admin UI, REST API,
// migrations) also wake live queries.
type PocketBaseStore struct {
	app     core.App
	hub     *Hub
	logger  *slog.Logger
	hookIDs [3]string
}

// NewPocketBaseStore binds the change hooks on app. Call Close to unbind them.
func NewPocketBaseStore(app core.App, hub *Hub, logger *slog.Logger) *PocketBaseStore {
	if hub == nil {
		hub = NewHub()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &PocketBaseStore{app: app, hub: hub, logger: logger}

	s.hookIDs[0] = app.OnRecordAfterCreateSuccess().BindFunc(func(e *core.RecordEvent) error {
		s.publish(e.Record, OpCreate)
		return e.Next()
	})
	s.hookIDs[1] = app.OnRecordAfterUpdateSuccess().BindFunc(func(e *core.RecordEvent) error {
		s.publish(e.Record, OpUpdate)
		return e.Next()
	})
	s.hookIDs[2] = app.OnRecordAfterDeleteSuccess().BindFunc(func(e *core.RecordEvent) error {
		s.publish(e.Record, OpDelete)
		return e.Next()
	})

	return s
}

// Hub returns the change hub the store publishes on.
func (s *PocketBaseStore) Hub() *Hub { return s.hub }

// Close unbinds the record hooks.
func (s *PocketBaseStore) Close() {
	s.app.OnRecordAfterCreateSuccess().Unbind(s.hookIDs[0])
	s.app.OnRecordAfterUpdateSuccess().Unbind(s.hookIDs[1])
	s.app.OnRecordAfterDeleteSuccess().Unbind(s.hookIDs[2])
}

func (s *PocketBaseStore) publish(record *core.Record, op ChangeOp) {
	if record == nil || record.Collection() == nil {
		return
	}
	s.hub.Publish(Change{Collection: record.Collection().Name, ID: record.Id, Op: op})
}

func (s *PocketBaseStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	coll, err := s.app.FindCollectionByNameOrId(collection)
	if err != nil {
		return "", s.wrap("find collection", collection, err)
	}

	stored := normalizeDocument(doc)
	record := core.NewRecord(coll)
	if id := stored.ID(); id != "" {
		if _, err := s.app.FindRecordById(coll, id); err == nil {
			return "", fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
		}
		record.Id = id
	}
	if err := writeFields(record, stored, nil); err != nil {
		return "", err
	}
	if err := s.app.Save(record); err != nil {
		return "", s.wrap("create record", collection, err)
	}
	return record.Id, nil
}

func (s *PocketBaseStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, err := s.app.FindRecordById(collection, id)
	if err != nil {
		return nil, s.wrap("get record", collection, err)
	}
	return recordToDocument(record), nil
}

func (s *PocketBaseStore) Set(ctx context.Context, collection, id string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.app.RunInTransaction(func(tx core.App) error {
		return setRecord(tx, collection, id, normalizeDocument(doc))
	})
	return s.wrap("set record", collection, err)
}

func setRecord(app core.App, collection, id string, doc Document) error {
	record, err := app.FindRecordById(collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		coll, err := app.FindCollectionByNameOrId(collection)
		if err != nil {
			return err
		}
		record = core.NewRecord(coll)
		record.Id = id
	} else if err != nil {
		return err
	}
	if err := writeFields(record, doc, nil); err != nil {
		return err
	}
	return app.Save(record)
}

func (s *PocketBaseStore) Update(ctx context.Context, collection, id string, patch Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.app.RunInTransaction(func(tx core.App) error {
		return updateRecord(tx, collection, id, patch)
	})
	return s.wrap("update record", collection, err)
}

func updateRecord(app core.App, collection, id string, patch Patch) error {
	record, err := app.FindRecordById(collection, id)
	if err != nil {
		return err
	}
	doc := recordToDocument(record)
	if err := applyPatch(doc, patch); err != nil {
		return err
	}
	if err := writeFields(record, doc, topLevelFields(patch)); err != nil {
		return err
	}
	return app.Save(record)
}

func (s *PocketBaseStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := deleteRecord(s.app, collection, id)
	return s.wrap("delete record", collection, err)
}

func deleteRecord(app core.App, collection, id string) error {
	record, err := app.FindRecordById(collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return app.Delete(record)
}

// Query pushes the exact part of q down as a PocketBase filter and finishes
// filtering, ordering and limiting in Go so that results match MemoryStore.
func (s *PocketBaseStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter, params := buildFilter(q)
	records, err := s.app.FindRecordsByFilter(collection, filter, "", 0, 0, params)
	if err != nil {
		return nil, s.wrap("query records", collection, err)
	}
	docs := make([]Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, recordToDocument(r))
	}
	return q.Apply(docs), nil
}

func (s *PocketBaseStore) Count(ctx context.Context, collection string, q Query) (int, error) {
	docs, err := s.Query(ctx, collection, q.WithLimit(0))
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *PocketBaseStore) Batch(ctx context.Context, writes []Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.app.RunInTransaction(func(tx core.App) error {
		for _, w := range writes {
			var err error
			switch w.Kind {
			case WriteSet:
				err = setRecord(tx, w.Collection, w.ID, normalizeDocument(w.Doc))
			case WriteUpdate:
				err = updateRecord(tx, w.Collection, w.ID, w.Patch)
			case WriteDelete:
				err = deleteRecord(tx, w.Collection, w.ID)
			default:
				err = fmt.Errorf("unknown write kind %d", w.Kind)
			}
			if err != nil {
				return fmt.Errorf("batch write %s/%s failed: %w", w.Collection, w.ID, err)
			}
		}
		return nil
	})
	return s.wrap("batch write", "", err)
}

func (s *PocketBaseStore) Watch(ctx context.Context, collection string, q Query) <-chan Snapshot {
	return watchQuery(ctx, s.hub, collection, s.logger, func(ctx context.Context) ([]Document, error) {
		return s.Query(ctx, collection, q)
	})
}

func (s *PocketBaseStore) wrap(action, collection string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	s.logger.Warn("pocketbase call failed", "action", action, "collection", collection, "error", err)
	return domain.NewTransientNetworkError("REMOTE_CALL_FAILED", fmt.Sprintf("Failed to %s", action), err)
}

// recordToDocument converts a record into a JSON-normalized Document.
func recordToDocument(record *core.Record) Document {
	doc := Document{"id": record.Id}
	for _, f := range record.Collection().Fields {
		name := f.GetName()
		if name == "id" || f.Type() == core.FieldTypeAutodate {
			continue
		}
		doc[name] = fromRecordValue(record.Get(name))
	}
	return doc
}

func fromRecordValue(v any) any {
	switch t := v.(type) {
	case types.DateTime:
		if t.IsZero() {
			return nil
		}
		return t.Time().UTC().Format(time.RFC3339Nano)
	case types.JSONRaw:
		if len(t) == 0 {
			return nil
		}
		var out any
		if err := json.Unmarshal(t, &out); err != nil {
			return nil
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return normalize(v)
	}
}

// writeFields copies doc onto record. With only == nil every schema field is
// written and missing keys clear the field; otherwise only the listed fields.
func writeFields(record *core.Record, doc Document, only []string) error {
	include := func(string) bool { return true }
	if only != nil {
		set := make(map[string]bool, len(only))
		for _, name := range only {
			set[name] = true
		}
		include = func(name string) bool { return set[name] }
	}

	for _, f := range record.Collection().Fields {
		name := f.GetName()
		if name == "id" || f.Type() == core.FieldTypeAutodate || !include(name) {
			continue
		}
		value := doc[name]
		if f.Type() == core.FieldTypeDate {
			if str, ok := value.(string); ok && str != "" {
				t, err := time.Parse(time.RFC3339Nano, str)
				if err != nil {
					return fmt.Errorf("field %q: invalid timestamp %q: %w", name, str, err)
				}
				value = t
			}
		}
		record.Set(name, value)
	}
	return nil
}

// buildFilter translates the filters PocketBase can evaluate exactly, or as
// a superset of the exact answer, into filter syntax. Query.Apply re-checks
// every filter afterwards.
func buildFilter(q Query) (string, dbx.Params) {
	var clauses []string
	params := dbx.Params{}

	for i, f := range q.Filters {
		if !isIdentifier(f.Field) {
			continue
		}
		key := fmt.Sprintf("p%d", i)

		switch f.Op {
		case Eq, Neq:
			op := "="
			if f.Op == Neq {
				op = "!="
			}
			switch v := f.Value.(type) {
			case bool:
				clauses = append(clauses, fmt.Sprintf("%s %s %t", f.Field, op, v))
			case nil:
				clauses = append(clauses, fmt.Sprintf("%s %s null", f.Field, op))
			default:
				clauses = append(clauses, fmt.Sprintf("%s %s {:%s}", f.Field, op, key))
				params[key] = filterParam(v)
			}
		case Lt, Lte, Gt, Gte:
			if f.Value == nil {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s %s {:%s}", f.Field, string(f.Op), key))
			params[key] = filterParam(f.Value)
		case Contains:
			raw, err := json.Marshal(normalize(f.Value))
			if err != nil {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s ~ {:%s}", f.Field, key))
			params[key] = string(raw)
		}
	}

	return strings.Join(clauses, " && "), params
}

func filterParam(v any) any {
	switch t := v.(type) {
	case time.Time:
		dt, err := types.ParseDateTime(t.UTC())
		if err != nil {
			return t.UTC().Format(types.DefaultDateLayout)
		}
		return dt.String()
	case *time.Time:
		if t == nil {
			return nil
		}
		return filterParam(*t)
	case string:
		if parsed, ok := parseTime(t); ok {
			return filterParam(parsed)
		}
		return t
	default:
		return normalize(v)
	}
}

func isIdentifier(field string) bool {
	if field == "" {
		return false
	}
	for _, r := range field {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
