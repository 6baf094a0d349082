package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
)

type sagaState int

const (
	pendingFirst sagaState = iota
	firstDone
	committed
	rolledBack
)

func (s sagaState) String() string {
	switch s {
	case pendingFirst:
		return "PENDING_FIRST"
	case firstDone:
		return "FIRST_DONE"
	case committed:
		return "COMMITTED"
	default:
		return "ROLLED_BACK"
	}
}

// saga tracks the records one operation has created so far. Once the first
// record exists the saga must end in commit or rollback. Records found
// already in place by an earlier call are reconciled, never created, and a
// rollback leaves them alone.
type saga struct {
	d          *Directory
	op         string
	log        logging.Logger
	state      sagaState
	created    []string
	reconciled []string
	name, guid string
}

func (d *Directory) newSaga(op string) *saga {
	return &saga{
		d:     d,
		op:    op,
		log:   d.log.With("saga", op, "saga_id", uuid.NewString()),
		state: pendingFirst,
	}
}

// own records key as created by this saga, to be deleted on rollback.
func (s *saga) own(key string) {
	s.created = append(s.created, key)
	s.advance()
}

// reconcile records key as already present before this saga ran.
func (s *saga) reconcile(key string) {
	s.reconciled = append(s.reconciled, key)
	s.advance()
}

func (s *saga) advance() {
	if s.state == pendingFirst {
		s.state = firstDone
	}
}

func (s *saga) owns(key string) bool {
	for _, k := range s.created {
		if k == key {
			return true
		}
	}
	return false
}

func (s *saga) commit(ctx context.Context) {
	s.state = committed
	s.d.observer.ObserveSaga(s.op, "committed")
	s.log.Debug(ctx, "saga committed", "records", s.created)
}

// fail ends a saga that never created anything.
func (s *saga) fail(ctx context.Context, resp responsecode.Response) responsecode.Response {
	s.d.observer.ObserveSaga(s.op, "failed")
	s.log.Debug(ctx, "saga failed", "state", s.state.String(), "code", resp.Code.Name())
	return resp
}

// rollback deletes every record the saga created, newest first, and returns
// resp annotated with what was undone. It is the only compensation path of
// every saga.
//
// When the name binding was reconciled and the GUID record it points at
// already carries that name, an earlier call completed the identity and the
// saga commits instead.
func (s *saga) rollback(ctx context.Context, resp responsecode.Response) responsecode.Response {
	if len(s.reconciled) > 0 && s.guid != "" && !s.owns(s.guid) && s.d.guidNamed(ctx, s.guid, s.name) {
		s.log.Info(ctx, "identity already complete, keeping it", "name", s.name, "guid", s.guid, "code", resp.Code.Name())
		s.commit(ctx)
		return responsecode.OK("")
	}
	for i := len(s.created) - 1; i >= 0; i-- {
		key := s.created[i]
		res := s.d.store.DeleteRecord(ctx, key)
		if res.OK() || res.Code == responsecode.BadGuid {
			resp = resp.Append("removed " + key)
			continue
		}
		s.log.Error(ctx, "rollback step failed", "key", key, "code", res.Code.Name(), "err", res.Err)
		resp = resp.Append("unable to remove " + key)
	}
	s.state = rolledBack
	s.d.observer.ObserveSaga(s.op, "rolled_back")
	s.d.observer.ObserveRollback(s.op)
	s.log.Info(ctx, "saga rolled back", "code", resp.Code.Name(), "records", s.created, "kept", s.reconciled)
	return resp
}

// bindName creates the name binding name -> guid. A duplicate is accepted
// when the existing binding already points at guid.
func (s *saga) bindName(ctx context.Context, name, guid string) responsecode.Response {
	s.name, s.guid = name, guid
	res := s.d.store.CreateRecord(ctx, name, store.Record{common.HRNGuidField: guid})
	switch {
	case res.OK():
	case res.IsDuplicate():
		if !s.d.nameBoundTo(ctx, name, guid) {
			return responsecode.New(responsecode.DuplicateName, name)
		}
		s.log.Debug(ctx, "name binding already present", "name", name, "guid", guid)
		s.reconcile(name)
		return responsecode.OK("")
	default:
		s.log.Warn(ctx, "name binding failed", "name", name, "code", res.Code.Name(), "err", res.Err)
		return res.Response()
	}
	s.own(name)
	return responsecode.OK("")
}

// createGuidRecord creates the record at guid. A duplicate is accepted when
// the existing record carries the same name. fresh is false in that case.
func (s *saga) createGuidRecord(ctx context.Context, guid, name string, rec store.Record) (fresh bool, resp responsecode.Response) {
	res := s.d.store.CreateRecord(ctx, guid, rec)
	switch {
	case res.OK():
		s.own(guid)
		return true, responsecode.OK("")
	case res.IsDuplicate():
		if !s.d.guidNamed(ctx, guid, name) {
			return false, responsecode.New(responsecode.ConflictingGuid, guid)
		}
		s.log.Debug(ctx, "guid record already present", "guid", guid, "name", name)
		s.reconcile(guid)
		return false, responsecode.OK("")
	default:
		s.log.Warn(ctx, "guid record create failed", "guid", guid, "code", res.Code.Name(), "err", res.Err)
		return false, res.Response()
	}
}

func (d *Directory) nameBoundTo(ctx context.Context, name, guid string) bool {
	res := d.store.ReadField(ctx, name, common.HRNGuidField)
	if !res.OK() {
		return false
	}
	bound, _ := res.Value.(string)
	return bound == guid
}

func (d *Directory) guidNamed(ctx context.Context, guid, name string) bool {
	res := d.store.ReadField(ctx, guid, common.HRNField)
	if !res.OK() {
		return false
	}
	stored, _ := res.Value.(string)
	return stored == name
}
