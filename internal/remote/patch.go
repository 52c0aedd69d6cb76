package remote

import (
	"fmt"
	"sort"
	"strings"
)

// Patch is a partial update. Keys are field paths (dotted for nested map
// entries); values are either plain values that overwrite the field or one
// of the transform operators below.
type Patch map[string]any

type arrayUnion struct{ values []any }

type arrayRemove struct{ values []any }

type increment struct{ delta float64 }

// ArrayUnion appends each value not already present in the array field.
func ArrayUnion(values ...any) any { return arrayUnion{values: values} }

// ArrayRemove removes every occurrence of each value from the array field.
func ArrayRemove(values ...any) any { return arrayRemove{values: values} }

// Increment adds delta to a numeric field; a missing field counts as zero.
func Increment(delta float64) any { return increment{delta: delta} }

// applyPatch mutates doc in place. Transforms are evaluated against the
// document as read, so callers must hold whatever lock or transaction makes
// the read-modify-write atomic.
func applyPatch(doc Document, patch Patch) error {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "id" {
			return fmt.Errorf("patch may not change the document id")
		}
		current, _ := doc.Lookup(key)

		var next any
		switch op := patch[key].(type) {
		case arrayUnion:
			items, _ := current.([]any)
			items = append([]any(nil), items...)
			for _, v := range op.values {
				nv := normalize(v)
				if !arrayContains(items, nv) {
					items = append(items, nv)
				}
			}
			next = items
		case arrayRemove:
			items, _ := current.([]any)
			kept := make([]any, 0, len(items))
			for _, item := range items {
				if !arrayContains(normalizeAll(op.values), item) {
					kept = append(kept, item)
				}
			}
			next = kept
		case increment:
			n, _ := current.(float64)
			next = n + op.delta
		default:
			next = normalize(op)
		}

		if err := setPath(doc, key, next); err != nil {
			return err
		}
	}
	return nil
}

func normalizeAll(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalize(v)
	}
	return out
}

func setPath(doc Document, path string, value any) error {
	parts := strings.Split(path, ".")
	cur := map[string]any(doc)
	for _, part := range parts[:len(parts)-1] {
		child, ok := cur[part]
		if !ok || child == nil {
			m := map[string]any{}
			cur[part] = m
			cur = m
			continue
		}
		m, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot set %q: %q is not an object", path, part)
		}
		cur = m
	}
	cur[parts[len(parts)-1]] = value
	return nil
}

// topLevelFields returns the distinct first path segments touched by patch.
func topLevelFields(patch Patch) []string {
	seen := map[string]bool{}
	var out []string
	for k := range patch {
		head, _, _ := strings.Cut(k, ".")
		if !seen[head] {
			seen[head] = true
			out = append(out, head)
		}
	}
	sort.Strings(out)
	return out
}
