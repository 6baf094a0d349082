package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical_IgnoresSignatureAndKeyOrder(t *testing.T) {
	a := map[string]any{"guid": "G1", "field": "email", "signature": "AB"}
	b := map[string]any{"field": "email", "guid": "G1"}

	ca, err := Canonical(a)
	require.NoError(t, err)
	cb, err := Canonical(b)
	require.NoError(t, err)

	assert.Equal(t, ca, cb)
}

func TestCanonical_JSONNumbersMatchGoInts(t *testing.T) {
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"n":3,"nested":{"list":[1,2.5]}}`), &decoded))

	built := map[string]any{"n": 3, "nested": map[string]any{"list": []any{1, 2.5}}}

	c1, err := Canonical(decoded)
	require.NoError(t, err)
	c2, err := Canonical(built)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestCanonical_Exclude(t *testing.T) {
	withTS := map[string]any{"guid": "G", "timestamp": "2024"}
	without := map[string]any{"guid": "G"}

	c1, _ := Canonical(withTS, "timestamp")
	c2, _ := Canonical(without)
	assert.Equal(t, c1, c2)

	c3, _ := Canonical(withTS)
	assert.NotEqual(t, c1, c3)
}
