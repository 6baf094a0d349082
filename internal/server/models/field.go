package models

import (
	"encoding/json"
	"fmt"
)

// ToField converts a model into the decoded-JSON shape stored in a record.
func ToField(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal field: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal field: %w", err)
	}
	return out, nil
}

// FromField decodes a stored field value into out.
func FromField(v any, out any) error {
	if v == nil {
		return fmt.Errorf("decode field: empty value")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("decode field: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode field: %w", err)
	}
	return nil
}
