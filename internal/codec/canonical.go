// Package codec produces the byte-stable canonical form commands are signed
// over: CBOR with Core Deterministic Encoding (sorted map keys, shortest
// encodings, no indefinite-length items).
package codec

import (
	"math"

	"github.com/fxamacker/cbor/v2"
)

// SignatureField is the command key holding the signature itself.
const SignatureField = "signature"

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
}

// Canonical encodes command without the signature field and without any key
// listed in exclude. Whole-valued floats are encoded as integers so a command
// decoded from JSON and one built in code produce the same bytes.
func Canonical(command map[string]any, exclude ...string) ([]byte, error) {
	skip := map[string]struct{}{SignatureField: {}}
	for _, k := range exclude {
		skip[k] = struct{}{}
	}

	clean := make(map[string]any, len(command))
	for k, v := range command {
		if _, drop := skip[k]; drop {
			continue
		}
		clean[k] = normalize(v)
	}
	return encMode.Marshal(clean)
}

func normalize(v any) any {
	switch value := v.(type) {
	case float64:
		if value == math.Trunc(value) && math.Abs(value) < 1<<53 {
			return int64(value)
		}
		return value
	case float32:
		return normalize(float64(value))
	case int:
		return int64(value)
	case int32:
		return int64(value)
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, e := range value {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, e := range value {
			out[i] = normalize(e)
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
