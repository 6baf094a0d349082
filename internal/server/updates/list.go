// Package updates implements the list-update algebra applied to stored
// field values, plus the record-level primitives (field removal and
// replace-subset merge) the key-record stores build on.
//
// The package does no I/O.
package updates

import (
	"reflect"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
)

// List is the ordered value list stored under one field.
type List []any

// Null returns the explicit-null list.
func Null() List { return List{common.NullValue} }

// IsNull reports whether l is the explicit-null list. An empty list is not
// null.
func (l List) IsNull() bool {
	if len(l) != 1 {
		return false
	}
	s, ok := l[0].(string)
	return ok && s == common.NullValue
}

// Contains reports whether v is an element of l.
func (l List) Contains(v any) bool {
	return l.indexOf(v) >= 0
}

// Strings returns the string elements of l, skipping anything else.
func (l List) Strings() []string {
	out := make([]string, 0, len(l))
	for _, v := range l {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (l List) indexOf(v any) int {
	for i, e := range l {
		if equal(e, v) {
			return i
		}
	}
	return -1
}

func (l List) clone() List {
	if l == nil {
		return List{}
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Strings builds a List from strings.
func Strings(values ...string) List {
	out := make(List, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// AsList converts a decoded field value into a List. Nil yields an empty
// list; anything that is not a list reports false.
func AsList(v any) (List, bool) {
	switch value := v.(type) {
	case nil:
		return List{}, true
	case List:
		return value, true
	case []any:
		return List(value), true
	case []string:
		return Strings(value...), true
	default:
		return nil, false
	}
}

func equal(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// normalize folds Go integer kinds into float64 so values coming from JSON
// compare equal to values built in code.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return v
	}
}

func sameList(a, b List) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
