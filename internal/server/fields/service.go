// Package fields is the record-update entry point shared by ordinary field
// updates and the directory: ACL check first, then one store call.
package fields

import (
	"context"
	"sort"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/access"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

// Gate decides field access. *access.Checker implements it.
type Gate interface {
	Check(ctx context.Context, t access.Type, req access.Request) responsecode.Code
}

type Service struct {
	store store.RemoteStore
	gate  Gate
	log   logging.Logger
}

func NewService(st store.RemoteStore, gate Gate, log logging.Logger) *Service {
	return &Service{store: st, gate: gate, log: log.With("module", "fields")}
}

// Update applies u to field of req.Target after a write check. field may be
// empty for a ReplaceSubset rooted at the record itself.
func (s *Service) Update(ctx context.Context, req access.Request, field string, u updates.Update) responsecode.Response {
	touched := touchedFields(field, u)
	if !req.Header.Internal {
		for _, f := range touched {
			if common.IsInternalField(f) {
				return responsecode.New(responsecode.BadField, f)
			}
		}
	}

	req.Fields = touched
	if code := s.gate.Check(ctx, access.Write, req); code.IsError() {
		return responsecode.New(code, "")
	}

	res := s.store.UpdateField(ctx, req.Target, field, u)
	if !res.OK() {
		s.log.Debug(ctx, "field update failed",
			"guid", req.Target, "field", field, "op", u.Op.String(), "code", res.Code.Name(), "err", res.Err)
		return res.Response()
	}
	return responsecode.OK("")
}

// Read returns the requested fields of req.Target after a read check. No
// fields, or the entire-record marker, returns the whole record. Internal
// fields are stripped for external callers.
func (s *Service) Read(ctx context.Context, req access.Request) (store.Record, responsecode.Response) {
	if !req.Header.Internal {
		for _, f := range req.Fields {
			if common.IsInternalField(f) {
				return nil, responsecode.New(responsecode.BadField, f)
			}
		}
	}

	if code := s.gate.Check(ctx, access.Read, req); code.IsError() {
		return nil, responsecode.New(code, "")
	}

	if wholeRecord(req.Fields) {
		res := s.store.ReadRecord(ctx, req.Target)
		if !res.OK() {
			return nil, res.Response()
		}
		return access.StripInternal(req.Header, res.Record), responsecode.OK("")
	}

	out := make(store.Record, len(req.Fields))
	for _, f := range req.Fields {
		res := s.store.ReadField(ctx, req.Target, f)
		if !res.OK() {
			if res.Code == responsecode.FieldNotFound {
				return nil, responsecode.New(responsecode.FieldNotFound, f)
			}
			return nil, res.Response()
		}
		out[f] = res.Value
	}
	return out, responsecode.OK("")
}

func wholeRecord(fields []string) bool {
	return len(fields) == 0 || (len(fields) == 1 && fields[0] == common.EntireRecord)
}

// touchedFields lists the fields an update writes, for ACL purposes.
func touchedFields(field string, u updates.Update) []string {
	if u.Op != updates.ReplaceSubset || field != "" {
		return []string{field}
	}
	keys := make([]string, 0, len(u.Document))
	for k := range u.Document {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
