package remote

import (
	"sort"
)

// Op is a filter operator.
type Op string

const (
	Eq          Op = "=="
	Neq         Op = "!="
	Lt          Op = "<"
	Lte         Op = "<="
	Gt          Op = ">"
	Gte         Op = ">="
	Contains    Op = "array-contains"
	NotContains Op = "array-not-contains"
	In          Op = "in"
)

// PrefixSentinel is the last code point of the BMP private use area.
// A range [q, q+PrefixSentinel) matches every string starting with q.
const PrefixSentinel = "\uf8ff"

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Sort struct {
	Field string
	Desc  bool
}

// Query is an immutable filter/order/limit description. Filters are ANDed.
type Query struct {
	Filters []Filter
	Sorts   []Sort
	Limit   int
}

// NewQuery returns an empty query matching every document.
func NewQuery() Query { return Query{} }

// Where returns a copy of q with an extra filter.
func (q Query) Where(field string, op Op, value any) Query {
	out := q.clone()
	out.Filters = append(out.Filters, Filter{Field: field, Op: op, Value: value})
	return out
}

// WherePrefix restricts field to the range [prefix, prefix+PrefixSentinel).
// InPrefixRange is the same test applied to a single value.
func (q Query) WherePrefix(field, prefix string) Query {
	return q.Where(field, Gte, prefix).Where(field, Lt, prefix+PrefixSentinel)
}

// InPrefixRange reports whether s falls in the range selected by
// WherePrefix. Strings that start with prefix followed by a code point above
// PrefixSentinel are outside it.
func InPrefixRange(s, prefix string) bool {
	return s >= prefix && s < prefix+PrefixSentinel
}

// OrderBy returns a copy of q with an extra sort key.
func (q Query) OrderBy(field string, desc bool) Query {
	out := q.clone()
	out.Sorts = append(out.Sorts, Sort{Field: field, Desc: desc})
	return out
}

// WithLimit returns a copy of q capped at n results; n <= 0 means unlimited.
func (q Query) WithLimit(n int) Query {
	out := q.clone()
	out.Limit = n
	return out
}

func (q Query) clone() Query {
	out := Query{Limit: q.Limit}
	out.Filters = append([]Filter(nil), q.Filters...)
	out.Sorts = append([]Sort(nil), q.Sorts...)
	return out
}

// Matches reports whether doc satisfies every filter. Range operators never
// match a missing or null field.
func (q Query) Matches(doc Document) bool {
	for _, f := range q.Filters {
		if !f.matches(doc) {
			return false
		}
	}
	return true
}

func (f Filter) matches(doc Document) bool {
	got, _ := doc.Lookup(f.Field)
	want := normalize(f.Value)

	switch f.Op {
	case Eq:
		return equal(got, want)
	case Neq:
		return !equal(got, want)
	case Lt, Lte, Gt, Gte:
		if got == nil || want == nil {
			return false
		}
		c, ok := compare(got, want)
		if !ok {
			return false
		}
		switch f.Op {
		case Lt:
			return c < 0
		case Lte:
			return c <= 0
		case Gt:
			return c > 0
		default:
			return c >= 0
		}
	case Contains:
		return arrayContains(got, want)
	case NotContains:
		return !arrayContains(got, want)
	case In:
		return arrayContains(want, got)
	default:
		return false
	}
}

func arrayContains(arr, v any) bool {
	items, ok := arr.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if equal(item, v) {
			return true
		}
	}
	return false
}

// Apply filters, sorts and limits docs in memory. The input slice is not modified.
func (q Query) Apply(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	q.sort(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// sort orders docs by the sort keys, falling back to id so that results are
// deterministic across stores.
func (q Query) sort(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range q.Sorts {
			a, _ := docs[i].Lookup(s.Field)
			b, _ := docs[j].Lookup(s.Field)
			c, ok := compare(a, b)
			if !ok || c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return docs[i].ID() < docs[j].ID()
	})
}
