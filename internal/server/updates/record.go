package updates

import (
	"strings"

	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
)

// ApplyToRecord applies u to the field at dotted path field inside record,
// mutating record in place. It reports whether record was modified; stores
// persist only dirty records.
//
// An absent field reads as an empty list. Fields holding anything but a list
// yield BadField unless the operation does not depend on the stored value.
func ApplyToRecord(record map[string]any, field string, u Update) (bool, responsecode.Code) {
	switch u.Op {
	case RemoveField:
		if field == "" {
			return false, responsecode.BadField
		}
		return DeletePath(record, field), responsecode.NoError

	case ReplaceSubset:
		return mergeInto(record, field, u.Document)
	}

	if field == "" {
		return false, responsecode.BadField
	}

	var current List
	raw, found := GetPath(record, field)
	if found && !u.Op.SkipsRead() {
		l, ok := AsList(raw)
		if !ok {
			return false, responsecode.BadField
		}
		current = l
	}

	next, changed := Apply(current, u)
	if !changed && found && sameList(current, next) {
		return false, responsecode.NoError
	}
	if !changed && !found && len(next) == 0 {
		return false, responsecode.NoError
	}
	if !SetPath(record, field, []any(next)) {
		return false, responsecode.BadField
	}
	return true, responsecode.NoError
}

// mergeInto replaces, key by key, the values of doc inside the map found at
// root (the record itself when root is empty). Keys containing dots address
// nested paths; keys doc omits are left alone.
func mergeInto(record map[string]any, root string, doc map[string]any) (bool, responsecode.Code) {
	target := record
	if root != "" {
		raw, found := GetPath(record, root)
		switch m := raw.(type) {
		case map[string]any:
			target = m
		case nil:
			if found {
				return false, responsecode.BadField
			}
			target = map[string]any{}
			if !SetPath(record, root, target) {
				return false, responsecode.BadField
			}
		default:
			return false, responsecode.BadField
		}
	}

	dirty := false
	for key, value := range doc {
		if !SetPath(target, key, DeepCopy(value)) {
			return dirty, responsecode.BadField
		}
		dirty = true
	}
	return dirty, responsecode.NoError
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// GetPath looks up a dotted path inside doc.
func GetPath(doc map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	parts := splitPath(path)
	cur := doc
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// SetPath stores v at a dotted path, creating intermediate maps. It refuses
// to descend through a non-map value.
func SetPath(doc map[string]any, path string, v any) bool {
	if path == "" {
		return false
	}
	parts := splitPath(path)
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p]
		if !ok || next == nil {
			m := map[string]any{}
			cur[p] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return false
		}
		cur = m
	}
	cur[parts[len(parts)-1]] = v
	return true
}

// DeletePath removes the value at a dotted path and reports whether anything
// was removed.
func DeletePath(doc map[string]any, path string) bool {
	if path == "" {
		return false
	}
	parts := splitPath(path)
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return false
		}
		cur = next
	}
	last := parts[len(parts)-1]
	if _, ok := cur[last]; !ok {
		return false
	}
	delete(cur, last)
	return true
}

// DeepCopy clones maps and slices of a decoded JSON value.
func DeepCopy(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, e := range value {
			out[k] = DeepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, e := range value {
			out[i] = DeepCopy(e)
		}
		return out
	case List:
		out := make([]any, len(value))
		for i, e := range value {
			out[i] = DeepCopy(e)
		}
		return out
	case []string:
		out := make([]any, len(value))
		for i, e := range value {
			out[i] = e
		}
		return out
	default:
		return v
	}
}

// CopyRecord deep-copies a whole record.
func CopyRecord(record map[string]any) map[string]any {
	if record == nil {
		return nil
	}
	return DeepCopy(record).(map[string]any)
}
