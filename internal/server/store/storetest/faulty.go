// Package storetest provides a fault-injecting RemoteStore wrapper for tests
// of the sagas and cascades built on the store.
package storetest

import (
	"context"
	"sync"

	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

// Op names a RemoteStore method.
type Op string

const (
	OpCreate     Op = "create"
	OpReadField  Op = "readField"
	OpReadRecord Op = "readRecord"
	OpUpdate     Op = "update"
	OpDelete     Op = "delete"
)

// Call is one recorded store invocation.
type Call struct {
	Op    Op
	Key   string
	Field string
}

type fault struct {
	op    Op
	key   string
	field string
	code  responsecode.Code
	times int
}

// Faulty wraps a RemoteStore, records calls, and fails the ones matching
// registered faults.
type Faulty struct {
	store.RemoteStore

	mu     sync.Mutex
	faults []*fault
	calls  []Call
}

func New(inner store.RemoteStore) *Faulty {
	return &Faulty{RemoteStore: inner}
}

// Fail makes every call of op on key fail with code. An empty field matches
// any field.
func (f *Faulty) Fail(op Op, key, field string, code responsecode.Code) {
	f.FailTimes(op, key, field, code, -1)
}

// FailTimes is Fail limited to the first n matching calls.
func (f *Faulty) FailTimes(op Op, key, field string, code responsecode.Code, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, &fault{op: op, key: key, field: field, code: code, times: n})
}

// Reset drops all faults and recorded calls.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = nil
	f.calls = nil
}

// Calls returns the recorded invocations in order.
func (f *Faulty) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *Faulty) check(op Op, key, field string) (store.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Op: op, Key: key, Field: field})
	for _, ft := range f.faults {
		if ft.op != op || ft.key != key || (ft.field != "" && ft.field != field) || ft.times == 0 {
			continue
		}
		if ft.times > 0 {
			ft.times--
		}
		return store.Coded(ft.code, nil), true
	}
	return store.Result{}, false
}

func (f *Faulty) CreateRecord(ctx context.Context, key string, record store.Record) store.Result {
	if res, hit := f.check(OpCreate, key, ""); hit {
		return res
	}
	return f.RemoteStore.CreateRecord(ctx, key, record)
}

func (f *Faulty) ReadField(ctx context.Context, key, field string) store.Result {
	if res, hit := f.check(OpReadField, key, field); hit {
		return res
	}
	return f.RemoteStore.ReadField(ctx, key, field)
}

func (f *Faulty) ReadRecord(ctx context.Context, key string) store.Result {
	if res, hit := f.check(OpReadRecord, key, ""); hit {
		return res
	}
	return f.RemoteStore.ReadRecord(ctx, key)
}

func (f *Faulty) UpdateField(ctx context.Context, key, field string, u updates.Update) store.Result {
	if res, hit := f.check(OpUpdate, key, field); hit {
		return res
	}
	return f.RemoteStore.UpdateField(ctx, key, field, u)
}

func (f *Faulty) DeleteRecord(ctx context.Context, key string) store.Result {
	if res, hit := f.check(OpDelete, key, ""); hit {
		return res
	}
	return f.RemoteStore.DeleteRecord(ctx, key)
}
