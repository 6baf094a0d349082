package directory

import (
	"context"
	"errors"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
)

// ErrNoScanner is returned by ReconcileOrphans when the store cannot
// enumerate keys.
var ErrNoScanner = errors.New("directory: store does not support key enumeration")

// WithScanner enables ReconcileOrphans.
func WithScanner(s store.Scanner) Option { return func(d *Directory) { d.scanner = s } }

// SweepResult counts what one orphan sweep did.
type SweepResult struct {
	Scanned  int
	Relinked int
	Removed  int
	Failed   int
}

// ReconcileOrphans finds sub-GUIDs whose account does not list them. Those
// whose account still exists are linked back into it; those whose account is
// gone are deleted together with their name binding.
func (d *Directory) ReconcileOrphans(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	if d.scanner == nil {
		return result, ErrNoScanner
	}

	keys, err := d.scanner.KeysWithField(ctx, common.PrimaryGuidField)
	if err != nil {
		return result, err
	}

	for _, guid := range keys {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++

		primary, resp := d.LookupPrimaryGuid(ctx, guid)
		if !resp.IsOK() {
			continue
		}

		account, resp := d.LookupAccount(ctx, primary)
		switch {
		case resp.IsOK():
			if account.ContainsGuid(guid) {
				continue
			}
			account.AddGuid(guid)
			account.NoteUpdate(d.clock.Now())
			if resp := d.updateAccount(ctx, account); !resp.IsOK() {
				result.Failed++
				continue
			}
			result.Relinked++
			d.log.Info(ctx, "orphan guid relinked", "guid", guid, "account", primary)

		case resp.Code == responsecode.BadAccount:
			if resp := d.removeGuid(ctx, guid, nil, true); !resp.IsOK() {
				result.Failed++
				continue
			}
			result.Removed++
			d.log.Info(ctx, "orphan guid removed", "guid", guid, "account", primary)

		default:
			result.Failed++
		}
	}

	d.observer.ObserveOrphans(result.Relinked, result.Removed)
	d.log.Debug(ctx, "orphan sweep finished",
		"scanned", result.Scanned, "relinked", result.Relinked, "removed", result.Removed, "failed", result.Failed)
	return result, nil
}
