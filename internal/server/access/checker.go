package access

import (
	"context"
	"crypto"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/MobilityFirst/GNS-sub011/internal/clock"
	"github.com/MobilityFirst/GNS-sub011/internal/codec"
	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/cryptox"
	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/config"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

const (
	keyCacheCapacity = 1000
	defaultKeyTTL    = 5 * time.Minute
	publicKeyField   = common.GuidInfoField + ".publicKey"
)

// Observer is told the outcome of every check.
type Observer interface {
	ObserveAccessCheck(t Type, code responsecode.Code)
}

// Checker evaluates access requests against the records in a store. It
// keeps no state besides a bounded cache of accessor public keys.
type Checker struct {
	store    store.RemoteStore
	cfg      config.Directory
	clock    clock.Clock
	log      logging.Logger
	keys     *ttlcache.Cache[string, crypto.PublicKey]
	observer Observer
}

type Option func(*Checker)

func WithClock(c clock.Clock) Option { return func(ch *Checker) { ch.clock = c } }

func WithObserver(o Observer) Option { return func(ch *Checker) { ch.observer = o } }

func NewChecker(st store.RemoteStore, cfg config.Directory, log logging.Logger, opts ...Option) *Checker {
	ttl := cfg.PublicKeyCacheTTL
	if ttl <= 0 {
		ttl = defaultKeyTTL
	}
	c := &Checker{
		store: st,
		cfg:   cfg,
		clock: clock.Real(),
		log:   log.With("module", "access"),
		keys: ttlcache.New[string, crypto.PublicKey](
			ttlcache.WithTTL[string, crypto.PublicKey](ttl),
			ttlcache.WithCapacity[string, crypto.PublicKey](keyCacheCapacity),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs expiry of cached keys until ctx is done.
func (c *Checker) Start(ctx context.Context) {
	go c.keys.Start()
	go func() {
		<-ctx.Done()
		c.keys.Stop()
	}()
}

// ForgetKey drops the cached public key of guid.
func (c *Checker) ForgetKey(guid string) {
	c.keys.Delete(guid)
}

// Check decides whether req may access its fields of the target record.
// The outcome is always a code; NoError grants access.
func (c *Checker) Check(ctx context.Context, t Type, req Request) responsecode.Code {
	code := c.check(ctx, t, req)
	if c.observer != nil {
		c.observer.ObserveAccessCheck(t, code)
	}
	if code.IsError() {
		c.log.Debug(ctx, "access refused",
			"type", t.String(), "guid", req.Target, "accessor", req.Accessor,
			"fields", req.Fields, "code", code.Name(), "request_id", req.Header.RequestID)
	}
	return code
}

func (c *Checker) check(ctx context.Context, t Type, req Request) responsecode.Code {
	if c.stale(req.Timestamp) {
		return responsecode.StaleCommand
	}
	if req.Header.Internal || req.Header.MutualAuth {
		return responsecode.NoError
	}

	if req.Signature == "" {
		if c.cfg.SignatureAuthEnabled || req.Accessor == "" {
			return c.evaluate(ctx, t, req.Target, req.fields(), []string{common.Everyone})
		}
		return c.checkAccessor(ctx, t, req)
	}
	if req.Accessor == "" {
		return responsecode.AccessDenied
	}

	pub, found := c.publicKey(ctx, req.Accessor)
	if !found {
		if req.Accessor == req.Target {
			return responsecode.BadGuid
		}
		return responsecode.AccessDenied
	}

	if c.cfg.SignatureAuthEnabled {
		msg, err := codec.Canonical(req.Command)
		if err != nil {
			c.log.Warn(ctx, "canonical form failed", "err", err)
			return responsecode.SignatureError
		}
		if err := cryptox.Verify(pub, req.Signature, msg); err != nil {
			return responsecode.SignatureError
		}
	}
	return c.checkAccessor(ctx, t, req)
}

func (c *Checker) checkAccessor(ctx context.Context, t Type, req Request) responsecode.Code {
	if req.Accessor == req.Target {
		return responsecode.NoError
	}
	return c.evaluate(ctx, t, req.Target, req.fields(), c.identities(ctx, req.Accessor))
}

func (c *Checker) stale(ts time.Time) bool {
	if ts.IsZero() || c.cfg.StaleCommandWindow <= 0 {
		return false
	}
	return c.clock.Now().Sub(ts) > c.cfg.StaleCommandWindow
}

// evaluate grants access when, for every field, no blacklist along the
// field's hierarchy names one of ids and the nearest defined whitelist does.
func (c *Checker) evaluate(ctx context.Context, t Type, target string, fields []string, ids []string) responsecode.Code {
	white, code := c.loadACL(ctx, target, Whitelist(t))
	if code.IsError() {
		return code
	}
	black, code := c.loadACL(ctx, target, Blacklist(t))
	if code.IsError() {
		return code
	}

	for _, field := range fields {
		for _, key := range candidates(field) {
			if l, ok := aclList(black, key); ok && containsAny(l, ids) {
				return responsecode.AccessDenied
			}
		}
		granted := false
		for _, key := range candidates(field) {
			if l, ok := aclList(white, key); ok {
				granted = containsAny(l, ids)
				break
			}
		}
		if !granted {
			return responsecode.AccessDenied
		}
	}
	return responsecode.NoError
}

// loadACL reads the (md) subtree of target's ACL. A record without one
// yields an empty document.
func (c *Checker) loadACL(ctx context.Context, target string, md MetaDataType) (map[string]any, responsecode.Code) {
	res := c.store.ReadField(ctx, target, common.ACLField+"."+md.String())
	switch {
	case res.OK():
		doc, _ := res.Value.(map[string]any)
		return doc, responsecode.NoError
	case res.Code == responsecode.FieldNotFound:
		return nil, responsecode.NoError
	default:
		if res.Err != nil {
			c.log.Warn(ctx, "acl read failed", "guid", target, "acl", md.String(), "err", res.Err)
		}
		return nil, res.Code
	}
}

func aclList(doc map[string]any, field string) (updates.List, bool) {
	if doc == nil {
		return nil, false
	}
	raw, found := updates.GetPath(doc, field+"."+common.ACLLeaf)
	if !found {
		return nil, false
	}
	return updates.AsList(raw)
}

func containsAny(l updates.List, ids []string) bool {
	for _, id := range ids {
		if l.Contains(id) {
			return true
		}
	}
	return false
}

// identities lists who the accessor counts as: itself, every group it
// belongs to, and everyone.
func (c *Checker) identities(ctx context.Context, accessor string) []string {
	ids := []string{accessor, common.Everyone}
	res := c.store.ReadField(ctx, accessor, common.GroupsField)
	if !res.OK() {
		return ids
	}
	groups, _ := updates.AsList(res.Value)
	return append(ids, groups.Strings()...)
}

func (c *Checker) publicKey(ctx context.Context, guid string) (crypto.PublicKey, bool) {
	if item := c.keys.Get(guid); item != nil {
		return item.Value(), true
	}

	res := c.store.ReadField(ctx, guid, publicKeyField)
	if !res.OK() {
		return nil, false
	}
	encoded, _ := res.Value.(string)
	pub, err := cryptox.ParsePublicKey(encoded)
	if err != nil {
		c.log.Warn(ctx, "stored public key unusable", "guid", guid, "err", err)
		return nil, false
	}
	c.keys.Set(guid, pub, ttlcache.DefaultTTL)
	return pub, true
}
