package cache

import (
	"fmt"
	"sync/atomic"

	"github.com/pocketbase/dbx"
)

var paramSeq atomic.Uint64

func nextParam() string {
	return fmt.Sprintf("c%d", paramSeq.Add(1))
}

// Field returns the SQL expression extracting a top-level payload field.
func Field(name string) string {
	if !validName(name) {
		panic(fmt.Sprintf("cache: invalid field name %q", name))
	}
	return fmt.Sprintf("json_extract([[payload]], '$.%s')", name)
}

func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

func compareExp(field, op string, v any) dbx.Expression {
	key := nextParam()
	return dbx.NewExp(fmt.Sprintf("%s %s {:%s}", Field(field), op, key), dbx.Params{key: sqlValue(v)})
}

// Eq matches rows whose payload field equals v.
func Eq(field string, v any) dbx.Expression { return compareExp(field, "=", v) }

// Neq matches rows whose payload field differs from v.
func Neq(field string, v any) dbx.Expression { return compareExp(field, "!=", v) }

// Contains matches rows whose array field holds v.
func Contains(field string, v any) dbx.Expression {
	if !validName(field) {
		panic(fmt.Sprintf("cache: invalid field name %q", field))
	}
	key := nextParam()
	return dbx.NewExp(
		fmt.Sprintf("EXISTS (SELECT 1 FROM json_each([[payload]], '$.%s') WHERE [[value]] = {:%s})", field, key),
		dbx.Params{key: sqlValue(v)},
	)
}

// In matches rows whose id is one of ids.
func In(ids ...string) dbx.Expression {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return dbx.In("id", values...)
}

// And combines expressions; nil entries are skipped.
func And(exps ...dbx.Expression) dbx.Expression {
	return dbx.And(exps...)
}
