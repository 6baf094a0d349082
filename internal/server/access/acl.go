package access

import (
	"context"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

// ACL is an accessor-list document under construction, embedded in new
// records under the ACL field.
type ACL map[MetaDataType]map[string][]string

// NewACL returns an empty ACL.
func NewACL() ACL { return ACL{} }

// Grant adds accessors to the (md, field) list.
func (a ACL) Grant(md MetaDataType, field string, accessors ...string) ACL {
	if a[md] == nil {
		a[md] = map[string][]string{}
	}
	a[md][field] = append(a[md][field], accessors...)
	return a
}

// Document renders the ACL as the nested map stored under the ACL field.
func (a ACL) Document() map[string]any {
	doc := map[string]any{}
	for md, byField := range a {
		for field, accessors := range byField {
			updates.SetPath(doc, md.String()+"."+field+"."+common.ACLLeaf, []any(updates.Strings(accessors...)))
		}
	}
	return doc
}

// AddEntry appends accessor to the (md, field) list of target's record.
func (c *Checker) AddEntry(ctx context.Context, md MetaDataType, target, field, accessor string) responsecode.Code {
	res := c.store.UpdateField(ctx, target, Path(md, field), updates.With(updates.Append, accessor))
	if !res.OK() {
		c.log.Warn(ctx, "acl add failed", "guid", target, "field", field, "acl", md.String(), "code", res.Code.Name(), "err", res.Err)
	}
	return res.Code
}

// RemoveEntry removes accessor from the (md, field) list of target's record.
func (c *Checker) RemoveEntry(ctx context.Context, md MetaDataType, target, field, accessor string) responsecode.Code {
	res := c.store.UpdateField(ctx, target, Path(md, field), updates.With(updates.Remove, accessor))
	if !res.OK() {
		c.log.Warn(ctx, "acl remove failed", "guid", target, "field", field, "acl", md.String(), "code", res.Code.Name(), "err", res.Err)
	}
	return res.Code
}

// Lookup returns the (md, field) list of target's record. A field without
// an ACL yields an empty list.
func (c *Checker) Lookup(ctx context.Context, md MetaDataType, target, field string) (updates.List, responsecode.Code) {
	res := c.store.ReadField(ctx, target, Path(md, field))
	switch {
	case res.OK():
	case res.Code == responsecode.FieldNotFound:
		return updates.List{}, responsecode.NoError
	default:
		return nil, res.Code
	}
	l, ok := updates.AsList(res.Value)
	if !ok {
		return nil, responsecode.BadField
	}
	return l, responsecode.NoError
}

// StripInternal removes bookkeeping fields from record unless the caller is
// internal. record is not modified.
func StripInternal(h Header, record store.Record) store.Record {
	if h.Internal || record == nil {
		return record
	}
	out := make(store.Record, len(record))
	for k, v := range record {
		if common.IsInternalField(k) {
			continue
		}
		out[k] = v
	}
	return out
}
