// Package store defines the contract of the replicated key-record store the
// directory sits on. Every call returns a Result: a duplicate create is an
// ordinary value the caller branches on, not an error.
package store

import (
	"context"

	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

// Record is a decoded JSON document stored at one key.
type Record = map[string]any

// RemoteStore offers single-key create/read/update/delete. Calls may be
// retried by the caller and a retried create may report DuplicateID even
// though the original call landed.
type RemoteStore interface {
	// CreateRecord stores record at key. NoError, DuplicateID or a failure.
	CreateRecord(ctx context.Context, key string, record Record) Result
	// ReadField returns the value at a dotted field path in Result.Value.
	// BadGuid when the record is missing, FieldNotFound when the field is.
	ReadField(ctx context.Context, key, field string) Result
	// ReadRecord returns the whole record in Result.Record.
	ReadRecord(ctx context.Context, key string) Result
	// UpdateField applies u to field. A missing record is created only for
	// upsert operations; otherwise BadGuid.
	UpdateField(ctx context.Context, key, field string, u updates.Update) Result
	// DeleteRecord removes key. Deleting a missing key reports BadGuid.
	DeleteRecord(ctx context.Context, key string) Result
}

// Scanner enumerates keys whose record carries a given top-level field.
// Used by maintenance sweeps only.
type Scanner interface {
	KeysWithField(ctx context.Context, field string) ([]string, error)
}

// Result is the outcome of one store call.
type Result struct {
	Code   responsecode.Code
	Value  any
	Record Record
	// Err keeps the underlying infrastructure error, if any, for logging.
	Err error
}

func (r Result) OK() bool          { return r.Code == responsecode.NoError }
func (r Result) IsDuplicate() bool { return r.Code == responsecode.DuplicateID }

// IsNotFound is true for a missing record or a missing field.
func (r Result) IsNotFound() bool {
	return r.Code == responsecode.BadGuid || r.Code == responsecode.FieldNotFound
}

// Response converts a failed result into a response, keeping the cause.
func (r Result) Response() responsecode.Response {
	if r.Err != nil {
		return responsecode.New(r.Code, r.Err.Error())
	}
	return responsecode.New(r.Code, "")
}

func ok() Result { return Result{Code: responsecode.NoError} }

func failed(code responsecode.Code) Result { return Result{Code: code} }

// Failure wraps an infrastructure error as UnspecifiedError.
func Failure(err error) Result { return Result{Code: responsecode.UnspecifiedError, Err: err} }

// Coded reports code together with its cause.
func Coded(code responsecode.Code, err error) Result { return Result{Code: code, Err: err} }

// Value is a successful read of one field.
func Value(v any) Result { return Result{Code: responsecode.NoError, Value: v} }

// WithRecord is a successful read of a whole record.
func WithRecord(rec Record) Result { return Result{Code: responsecode.NoError, Record: rec} }

// Mutate applies u to field of rec, which is nil when the key has no record.
// It returns the record to persist and whether anything must be written.
// Backends that read-modify-write share it with Memory.
func Mutate(rec Record, field string, u updates.Update) (Record, bool, responsecode.Code) {
	exists := rec != nil
	if !exists {
		if !u.Op.Upsert() {
			return nil, false, responsecode.BadGuid
		}
		rec = Record{}
	}
	working := updates.CopyRecord(rec)
	dirty, code := updates.ApplyToRecord(working, field, u)
	if code.IsError() {
		return nil, false, code
	}
	return working, dirty || !exists, responsecode.NoError
}

// FieldOf reads a dotted field path out of a loaded record.
func FieldOf(rec Record, field string) Result {
	v, found := updates.GetPath(rec, field)
	if !found {
		return failed(responsecode.FieldNotFound)
	}
	return Value(updates.DeepCopy(v))
}
