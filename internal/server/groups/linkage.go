// Package groups keeps group membership symmetric: a group's GROUP list and
// each member's GROUPS list are only ever changed together, here.
package groups

import (
	"context"
	"strings"

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

type Linkage struct {
	store store.RemoteStore
	gate  Gate
	log   logging.Logger
}

func NewLinkage(st store.RemoteStore, gate Gate, log logging.Logger) *Linkage {
	return &Linkage{store: st, gate: gate, log: log.With("module", "groups")}
}

// Report lists the records a best-effort cascade updated and those it could
// not reach.
type Report struct {
	Updated []string
	Failed  []string
}

func (r Report) OK() bool { return len(r.Failed) == 0 }

func (r *Report) note(key string, res store.Result) {
	if res.OK() || res.Code == responsecode.BadGuid {
		r.Updated = append(r.Updated, key)
		return
	}
	r.Failed = append(r.Failed, key)
}

// AddMembers appends members to the GROUP list of req.Target, then adds
// req.Target to each member's GROUPS. Back-link failures are reported but
// not retried.
func (l *Linkage) AddMembers(ctx context.Context, req access.Request, members ...string) responsecode.Response {
	group := req.Target
	if resp := l.authorize(ctx, access.Write, req, common.GroupField); !resp.IsOK() {
		return resp
	}
	if len(members) == 0 {
		return responsecode.OK("")
	}

	res := l.store.UpdateField(ctx, group, common.GroupField, updates.With(updates.AppendWithDuplication, anyOf(members)...))
	if !res.OK() {
		return res.Response()
	}

	var failed []string
	for _, m := range members {
		res := l.store.UpdateField(ctx, m, common.GroupsField, updates.With(updates.Append, group))
		if !res.OK() {
			l.log.Warn(ctx, "group back-link failed", "group", group, "member", m, "code", res.Code.Name(), "err", res.Err)
			failed = append(failed, m)
		}
	}
	return partial(failed)
}

// AddMember is AddMembers for one member.
func (l *Linkage) AddMember(ctx context.Context, req access.Request, member string) responsecode.Response {
	return l.AddMembers(ctx, req, member)
}

// RemoveMembers drops members from the GROUP list of req.Target, then drops
// req.Target from each member's GROUPS.
func (l *Linkage) RemoveMembers(ctx context.Context, req access.Request, members ...string) responsecode.Response {
	group := req.Target
	if resp := l.authorize(ctx, access.Write, req, common.GroupField); !resp.IsOK() {
		return resp
	}
	if len(members) == 0 {
		return responsecode.OK("")
	}

	res := l.store.UpdateField(ctx, group, common.GroupField, updates.With(updates.Remove, anyOf(members)...))
	if !res.OK() {
		return res.Response()
	}

	var failed []string
	for _, m := range members {
		res := l.store.UpdateField(ctx, m, common.GroupsField, updates.With(updates.Remove, group))
		if !res.OK() && res.Code != responsecode.BadGuid {
			l.log.Warn(ctx, "group back-link removal failed", "group", group, "member", m, "code", res.Code.Name(), "err", res.Err)
			failed = append(failed, m)
		}
	}
	return partial(failed)
}

// RemoveMember is RemoveMembers for one member.
func (l *Linkage) RemoveMember(ctx context.Context, req access.Request, member string) responsecode.Response {
	return l.RemoveMembers(ctx, req, member)
}

// Members returns the GROUP list of req.Target.
func (l *Linkage) Members(ctx context.Context, req access.Request) (updates.List, responsecode.Response) {
	return l.readList(ctx, req, common.GroupField)
}

// Groups returns the GROUPS list of req.Target.
func (l *Linkage) Groups(ctx context.Context, req access.Request) (updates.List, responsecode.Response) {
	return l.readList(ctx, req, common.GroupsField)
}

// CleanupForDelete removes guid from every group listed in its GROUPS and
// clears that list. Unreachable groups are skipped so a delete never blocks
// on them.
func (l *Linkage) CleanupForDelete(ctx context.Context, guid string) Report {
	var report Report
	for _, group := range l.list(ctx, guid, common.GroupsField) {
		res := l.store.UpdateField(ctx, group, common.GroupField, updates.With(updates.Remove, guid))
		report.note(group, res)
	}
	report.note(guid, l.store.UpdateField(ctx, guid, common.GroupsField, updates.With(updates.Clear)))
	l.logReport(ctx, "group cleanup", guid, report)
	return report
}

// RemoveAllMembers drops group from the GROUPS list of every member and
// clears its own GROUP list.
func (l *Linkage) RemoveAllMembers(ctx context.Context, group string) Report {
	var report Report
	for _, m := range l.list(ctx, group, common.GroupField) {
		res := l.store.UpdateField(ctx, m, common.GroupsField, updates.With(updates.Remove, group))
		report.note(m, res)
	}
	report.note(group, l.store.UpdateField(ctx, group, common.GroupField, updates.With(updates.Clear)))
	l.logReport(ctx, "group member removal", group, report)
	return report
}

func (l *Linkage) authorize(ctx context.Context, t access.Type, req access.Request, field string) responsecode.Response {
	req.Fields = []string{field}
	if code := l.gate.Check(ctx, t, req); code.IsError() {
		return responsecode.New(code, "")
	}
	return responsecode.OK("")
}

func (l *Linkage) readList(ctx context.Context, req access.Request, field string) (updates.List, responsecode.Response) {
	if resp := l.authorize(ctx, access.Read, req, field); !resp.IsOK() {
		return nil, resp
	}
	res := l.store.ReadField(ctx, req.Target, field)
	switch {
	case res.OK():
	case res.Code == responsecode.FieldNotFound:
		return updates.List{}, responsecode.OK("")
	default:
		return nil, res.Response()
	}
	list, ok := updates.AsList(res.Value)
	if !ok {
		return nil, responsecode.New(responsecode.BadField, field)
	}
	return list, responsecode.OK("")
}

// list reads a GUID list, treating any failure as empty.
func (l *Linkage) list(ctx context.Context, key, field string) []string {
	res := l.store.ReadField(ctx, key, field)
	if !res.OK() {
		if !res.IsNotFound() {
			l.log.Warn(ctx, "group list unreadable", "guid", key, "field", field, "code", res.Code.Name(), "err", res.Err)
		}
		return nil
	}
	list, _ := updates.AsList(res.Value)
	return list.Strings()
}

func (l *Linkage) logReport(ctx context.Context, msg, guid string, r Report) {
	if r.OK() {
		l.log.Debug(ctx, msg, "guid", guid, "updated", len(r.Updated))
		return
	}
	l.log.Warn(ctx, msg+" incomplete", "guid", guid, "failed", r.Failed)
}

func partial(failed []string) responsecode.Response {
	if len(failed) == 0 {
		return responsecode.OK("")
	}
	return responsecode.Errorf(responsecode.UpdateError, "unable to update groups of %s", strings.Join(failed, ","))
}

func anyOf(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
