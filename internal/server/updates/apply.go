package updates

// Apply returns the list that results from applying u to current and whether
// the stored value changed. current is never modified.
//
// RemoveField and ReplaceSubset are record-level primitives; Apply leaves the
// list untouched for them (see ApplyToRecord).
func Apply(current List, u Update) (List, bool) {
	switch u.Op {
	case Clear:
		return List{}, true

	case Create, ReplaceAll, ReplaceAllOrCreate:
		return u.Values.clone(), true

	case AppendWithDuplication:
		if len(u.Values) == 0 {
			return current.clone(), false
		}
		base := current.clone()
		if base.IsNull() {
			base = List{}
		}
		return append(base, u.Values...), true

	case Append, AppendOrCreate:
		base := current
		if base.IsNull() {
			base = List{}
		}
		out := make(List, 0, len(base)+len(u.Values))
		for _, v := range base {
			if !out.Contains(v) {
				out = append(out, v)
			}
		}
		for _, v := range u.Values {
			if !out.Contains(v) {
				out = append(out, v)
			}
		}
		return out, !sameList(current, out)

	case Remove:
		if current.IsNull() {
			return List{}, false
		}
		out := make(List, 0, len(current))
		for _, v := range current {
			if !u.Values.Contains(v) {
				out = append(out, v)
			}
		}
		return out, len(out) != len(current)

	case Substitute:
		if current.IsNull() {
			return current.clone(), false
		}
		out := current.clone()
		pairs := min(len(u.OldValues), len(u.Values))
		for i := 0; i < pairs; i++ {
			for j := range out {
				if equal(out[j], u.OldValues[i]) {
					out[j] = u.Values[i]
				}
			}
		}
		return out, !sameList(current, out)

	case Set:
		if current.IsNull() || len(u.Values) == 0 || u.Index < 0 || u.Index >= len(current) {
			return current.clone(), false
		}
		out := current.clone()
		out[u.Index] = u.Values[0]
		return out, true

	case SetFieldNull:
		if current.IsNull() {
			return current.clone(), false
		}
		return Null(), true

	case ReplaceSingleton:
		if len(u.Values) == 0 {
			return List{}, true
		}
		return List{u.Values[0]}, true

	default:
		return current.clone(), false
	}
}
