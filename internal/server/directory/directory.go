// Package directory binds human-readable names to GUIDs and manages the
// account and sub-GUID records behind them. Every multi-key operation is a
// saga over single-key store calls: duplicate responses are reconciled by
// reading back, and partial creations are rolled back.
package directory

import (
	"context"

	"github.com/MobilityFirst/GNS-sub011/internal/clock"
	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/access"
	"github.com/MobilityFirst/GNS-sub011/internal/server/config"
	"github.com/MobilityFirst/GNS-sub011/internal/server/groups"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

// Updater is the record-update entry point. *fields.Service implements it.
type Updater interface {
	Update(ctx context.Context, req access.Request, field string, u updates.Update) responsecode.Response
}

// Linker maintains group links on delete. *groups.Linkage implements it.
type Linker interface {
	CleanupForDelete(ctx context.Context, guid string) groups.Report
	RemoveAllMembers(ctx context.Context, group string) groups.Report
}

// KeyCache is told when a GUID's public key changes or goes away.
type KeyCache interface {
	ForgetKey(guid string)
}

// Observer receives saga outcomes. metrics.Collector implements it.
type Observer interface {
	ObserveSaga(op, outcome string)
	ObserveRollback(op string)
	ObserveOrphans(relinked, removed int)
}

type nopObserver struct{}

func (nopObserver) ObserveSaga(string, string) {}
func (nopObserver) ObserveRollback(string)     {}
func (nopObserver) ObserveOrphans(int, int)    {}

type nopKeyCache struct{}

func (nopKeyCache) ForgetKey(string) {}

// Directory is the GUID directory. It holds no mutable state of its own;
// concurrent calls for different GUIDs only meet in the store.
type Directory struct {
	store    store.RemoteStore
	scanner  store.Scanner
	fields   Updater
	groups   Linker
	mailer   Mailer
	keys     KeyCache
	cfg      config.Directory
	clock    clock.Clock
	log      logging.Logger
	observer Observer
}

type Option func(*Directory)

func WithClock(c clock.Clock) Option { return func(d *Directory) { d.clock = c } }

func WithObserver(o Observer) Option { return func(d *Directory) { d.observer = o } }

func WithKeyCache(k KeyCache) Option { return func(d *Directory) { d.keys = k } }

func New(st store.RemoteStore, upd Updater, links Linker, mailer Mailer, cfg config.Directory, log logging.Logger, opts ...Option) *Directory {
	d := &Directory{
		store:    st,
		fields:   upd,
		groups:   links,
		mailer:   mailer,
		keys:     nopKeyCache{},
		cfg:      cfg,
		clock:    clock.Real(),
		log:      log.With("module", "directory"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func internalRequest(target string) access.Request {
	return access.Request{Header: access.InternalHeader(), Target: target}
}
