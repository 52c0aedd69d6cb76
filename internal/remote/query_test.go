package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docs(t *testing.T, values ...any) []Document {
	t.Helper()
	out := make([]Document, 0, len(values))
	for _, v := range values {
		d, err := Encode(v)
		require.NoError(t, err)
		out = append(out, d)
	}
	return out
}

func ids(ds []Document) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.ID())
	}
	return out
}

func TestQuery_OverdueSemantics(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	all := docs(t,
		map[string]any{"id": "late", "is_completed": false, "due_date": yesterday},
		map[string]any{"id": "done", "is_completed": true, "due_date": yesterday},
		map[string]any{"id": "future", "is_completed": false, "due_date": tomorrow},
		map[string]any{"id": "undated", "is_completed": false, "due_date": nil},
	)

	q := NewQuery().Where("is_completed", Eq, false).Where("due_date", Lt, now)
	assert.Equal(t, []string{"late"}, ids(q.Apply(all)))
}

func TestQuery_TimeComparisonIgnoresFractionFormatting(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	all := docs(t,
		map[string]any{"id": "whole", "at": base},
		map[string]any{"id": "frac", "at": base.Add(500 * time.Millisecond)},
	)

	q := NewQuery().OrderBy("at", false)
	assert.Equal(t, []string{"whole", "frac"}, ids(q.Apply(all)))
}

func TestQuery_PrefixRange(t *testing.T) {
	all := docs(t,
		map[string]any{"id": "1", "name": "Apollo"},
		map[string]any{"id": "2", "name": "Apple"},
		map[string]any{"id": "3", "name": "Artemis"},
		map[string]any{"id": "4", "name": "Ap"},
	)

	q := NewQuery().WherePrefix("name", "Ap").OrderBy("name", false)
	assert.Equal(t, []string{"4", "1", "2"}, ids(q.Apply(all)))
}

func TestInPrefixRange_AgreesWithWherePrefix(t *testing.T) {
	names := []string{"Ann", "Annie", "Ann😀", "Ann\uff21", "Ann\uf8fe", "Anm", "Bob", ""}
	q := NewQuery().WherePrefix("name", "Ann")

	for _, name := range names {
		doc := Document{"id": name, "name": name}
		if got, want := InPrefixRange(name, "Ann"), q.Matches(doc); got != want {
			t.Errorf("InPrefixRange(%q) = %v, WherePrefix matches = %v", name, got, want)
		}
	}
	assert.False(t, InPrefixRange("Ann😀", "Ann"))
	assert.True(t, InPrefixRange("Annie", "Ann"))
}

func TestQuery_ArrayOperators(t *testing.T) {
	all := docs(t,
		map[string]any{"id": "m1", "read_by": []string{"alice"}, "sender_id": "bob"},
		map[string]any{"id": "m2", "read_by": []string{}, "sender_id": "bob"},
		map[string]any{"id": "m3", "read_by": nil, "sender_id": "alice"},
	)

	contains := NewQuery().Where("read_by", Contains, "alice")
	assert.Equal(t, []string{"m1"}, ids(contains.Apply(all)))

	unread := NewQuery().Where("sender_id", Neq, "alice").Where("read_by", NotContains, "alice")
	assert.Equal(t, []string{"m2"}, ids(unread.Apply(all)))

	in := NewQuery().Where("id", In, []string{"m1", "m3", "zz"})
	assert.Equal(t, []string{"m1", "m3"}, ids(in.Apply(all)))
}

func TestQuery_SortNullsFirstAndLimit(t *testing.T) {
	d1 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	all := docs(t,
		map[string]any{"id": "a", "due_date": d1},
		map[string]any{"id": "b", "due_date": nil},
		map[string]any{"id": "c", "due_date": d2},
	)

	asc := NewQuery().OrderBy("due_date", false)
	assert.Equal(t, []string{"b", "c", "a"}, ids(asc.Apply(all)))

	desc := NewQuery().OrderBy("due_date", true).WithLimit(2)
	assert.Equal(t, []string{"a", "c"}, ids(desc.Apply(all)))
}

func TestQuery_BuilderDoesNotAlias(t *testing.T) {
	base := NewQuery().Where("a", Eq, 1)
	left := base.Where("b", Eq, 2)
	right := base.Where("c", Eq, 3)

	assert.Len(t, base.Filters, 1)
	assert.Equal(t, "b", left.Filters[1].Field)
	assert.Equal(t, "c", right.Filters[1].Field)
}

func TestApplyPatch_RejectsIDChange(t *testing.T) {
	doc := Document{"id": "x"}
	assert.Error(t, applyPatch(doc, Patch{"id": "y"}))
}

func TestApplyPatch_NestedPathThroughScalar(t *testing.T) {
	doc := Document{"meta": "scalar"}
	assert.Error(t, applyPatch(doc, Patch{"meta.key": 1}))
}

func TestBuildFilter(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	q := NewQuery().
		Where("is_completed", Eq, false).
		Where("due_date", Lt, now).
		Where("member_ids", Contains, "alice").
		Where("read_by", NotContains, "bob").
		Where("unread_count.bob", Eq, 1)

	filter, params := buildFilter(q)

	assert.Equal(t, "is_completed = false && due_date < {:p1} && member_ids ~ {:p2}", filter)
	assert.Equal(t, "2026-05-10 12:00:00.000Z", params["p1"])
	assert.Equal(t, `"alice"`, params["p2"])
	assert.NotContains(t, params, "p3")
	assert.NotContains(t, params, "p4")
}

func TestTopLevelFields(t *testing.T) {
	fields := topLevelFields(Patch{"unread_count.a": 0, "unread_count.b": 1, "status": "read"})
	assert.Equal(t, []string{"status", "unread_count"}, fields)
}
