package grpc

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

// Request and response documents use these keys.
const (
	wireKey       = "key"
	wireField     = "field"
	wireRecord    = "record"
	wireOp        = "op"
	wireValues    = "values"
	wireOldValues = "old_values"
	wireIndex     = "index"
	wireDocument  = "document"

	wireCode    = "code"
	wireValue   = "value"
	wireMessage = "message"
	wireKeys    = "keys"
)

var errBadRequest = errors.New("malformed record request")

func encodeUpdate(u updates.Update) map[string]any {
	m := map[string]any{
		wireOp:    u.Op.String(),
		wireIndex: u.Index,
	}
	if u.Values != nil {
		m[wireValues] = plain(u.Values)
	}
	if u.OldValues != nil {
		m[wireOldValues] = plain(u.OldValues)
	}
	if u.Document != nil {
		m[wireDocument] = plain(u.Document)
	}
	return m
}

func decodeUpdate(m map[string]any) (updates.Update, error) {
	name, _ := m[wireOp].(string)
	op, err := updates.ParseOperation(name)
	if err != nil {
		return updates.Update{}, err
	}
	u := updates.Update{Op: op}
	if v, ok := m[wireValues]; ok {
		if u.Values, ok = updates.AsList(v); !ok {
			return updates.Update{}, fmt.Errorf("%w: values", errBadRequest)
		}
	}
	if v, ok := m[wireOldValues]; ok {
		if u.OldValues, ok = updates.AsList(v); !ok {
			return updates.Update{}, fmt.Errorf("%w: old_values", errBadRequest)
		}
	}
	if f, ok := m[wireIndex].(float64); ok {
		u.Index = int(f)
	}
	if d, ok := m[wireDocument].(map[string]any); ok {
		u.Document = d
	}
	return u, nil
}

func encodeResult(res store.Result) (*structpb.Struct, error) {
	m := map[string]any{wireCode: res.Code.Name()}
	if res.Value != nil {
		m[wireValue] = plain(res.Value)
	}
	if res.Record != nil {
		m[wireRecord] = plain(res.Record)
	}
	if res.Err != nil {
		m[wireMessage] = res.Err.Error()
	}
	return structpb.NewStruct(m)
}

func decodeResult(s *structpb.Struct) store.Result {
	m := s.AsMap()
	name, _ := m[wireCode].(string)
	code, ok := responsecode.ParseName(name)
	if !ok {
		return store.Failure(fmt.Errorf("unknown response code %q", name))
	}
	res := store.Result{Code: code, Value: m[wireValue]}
	if rec, ok := m[wireRecord].(map[string]any); ok {
		res.Record = rec
	}
	if msg, ok := m[wireMessage].(string); ok && msg != "" {
		res.Err = errors.New(msg)
	}
	return res
}

func stringArg(m map[string]any, key string) (string, error) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s is required", errBadRequest, key)
	}
	return s, nil
}

// plain strips named container types such as updates.List so structpb
// accepts the value.
func plain(v any) any {
	switch t := v.(type) {
	case updates.List:
		return plain([]any(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	default:
		return v
	}
}
