package models

import "time"

// RecordRow is one key-record as persisted by the SQL store.
type RecordRow struct {
	Key       string
	Doc       map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}
