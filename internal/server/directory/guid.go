package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/cryptox"
	"github.com/MobilityFirst/GNS-sub011/internal/server/access"
	"github.com/MobilityFirst/GNS-sub011/internal/server/models"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
)

// AddGuid creates a sub-GUID of account: the name binding, then the GUID
// record pointing back at the account, then the account's GUID list. A
// failure of that last update leaves the sub-GUID unlinked; ReconcileOrphans
// repairs it later.
func (d *Directory) AddGuid(ctx context.Context, account *models.AccountInfo, name, guid, publicKey string) responsecode.Response {
	if d.cfg.MaxGuidsPerAccount > 0 && !account.ContainsGuid(guid) && len(account.Guids) >= d.cfg.MaxGuidsPerAccount {
		return responsecode.Errorf(responsecode.TooManyGuids, "account %s already has %d guids", account.Name, len(account.Guids))
	}

	s := d.newSaga("add_guid")
	if resp := d.createSubGuid(ctx, s, account, name, guid, publicKey); !resp.IsOK() {
		return resp
	}

	account.AddGuid(guid)
	account.NoteUpdate(d.clock.Now())
	if resp := d.updateAccount(ctx, account); !resp.IsOK() {
		s.commit(ctx)
		d.observer.ObserveSaga("add_guid", "unlinked")
		d.log.Warn(ctx, "sub-guid left unlinked", "account", account.Guid, "guid", guid, "code", resp.Code.Name())
		return responsecode.New(responsecode.UpdateError, "created name; created guid; failed to update account info")
	}

	s.commit(ctx)
	d.log.Info(ctx, "guid added", "account", account.Guid, "name", name, "guid", guid)
	return responsecode.OK("")
}

// AddGuids creates several sub-GUIDs, deriving each GUID from its public
// key, and links all created ones with a single account update.
func (d *Directory) AddGuids(ctx context.Context, account *models.AccountInfo, names, publicKeys []string) responsecode.Response {
	if len(names) != len(publicKeys) {
		return responsecode.New(responsecode.BadField, "names and public keys differ in number")
	}
	if d.cfg.MaxGuidsPerAccount > 0 && len(account.Guids)+len(names) > d.cfg.MaxGuidsPerAccount {
		return responsecode.Errorf(responsecode.TooManyGuids, "account %s would exceed %d guids", account.Name, d.cfg.MaxGuidsPerAccount)
	}

	var (
		sagas   []*saga
		failed  []string
		first   responsecode.Code
		created int
	)
	for i, name := range names {
		guid, err := cryptox.GuidFromPublicKey(publicKeys[i])
		resp := responsecode.New(responsecode.BadGuid, fmt.Sprintf("bad public key for %s", name))
		if err == nil {
			s := d.newSaga("add_guid")
			if resp = d.createSubGuid(ctx, s, account, name, guid, publicKeys[i]); resp.IsOK() {
				sagas = append(sagas, s)
				account.AddGuid(guid)
				created++
				continue
			}
		}
		if first == responsecode.NoError {
			first = resp.Code
		}
		failed = append(failed, name+": "+resp.Code.Name())
	}

	if created > 0 {
		account.NoteUpdate(d.clock.Now())
		resp := d.updateAccount(ctx, account)
		for _, s := range sagas {
			s.commit(ctx)
		}
		if !resp.IsOK() {
			d.log.Warn(ctx, "batch sub-guids left unlinked", "account", account.Guid, "count", created)
			return responsecode.Errorf(responsecode.UpdateError, "created %d guids; failed to update account info", created)
		}
	}

	if len(failed) > 0 {
		return responsecode.Errorf(first, "created %d of %d guids; %s", created, len(names), strings.Join(failed, "; "))
	}
	return responsecode.OK("")
}

// createSubGuid runs the two-record part of the sub-GUID saga and leaves s
// in FIRST_DONE with both records owned, or ended.
func (d *Directory) createSubGuid(ctx context.Context, s *saga, account *models.AccountInfo, name, guid, publicKey string) responsecode.Response {
	if resp := s.bindName(ctx, name, guid); !resp.IsOK() {
		return s.fail(ctx, resp)
	}

	acl := access.NewACL().
		Grant(access.WriteWhitelist, common.EntireRecord, account.Guid).
		Grant(access.ReadWhitelist, common.EntireRecord, common.Everyone, account.Guid)
	rec, err := guidRecord(models.NewGuidInfo(name, guid, publicKey, d.clock.Now()), acl)
	if err != nil {
		return s.rollback(ctx, responsecode.New(responsecode.JSONParseError, err.Error()))
	}
	rec[common.PrimaryGuidField] = account.Guid

	if _, resp := s.createGuidRecord(ctx, guid, name, rec); !resp.IsOK() {
		return s.rollback(ctx, resp)
	}
	return responsecode.OK("")
}

// RemoveGuid deletes a sub-GUID and unlinks it from its account. account may
// be nil, in which case it is resolved from the GUID's primary link. Account
// GUIDs are refused; they go through RemoveAccount.
func (d *Directory) RemoveGuid(ctx context.Context, guid string, account *models.AccountInfo) responsecode.Response {
	return d.removeGuid(ctx, guid, account, false)
}

func (d *Directory) removeGuid(ctx context.Context, guid string, account *models.AccountInfo, cascade bool) responsecode.Response {
	info, resp := d.LookupGuidInfo(ctx, guid)
	if !resp.IsOK() {
		if cascade && resp.Code == responsecode.BadGuid {
			return responsecode.OK("")
		}
		return resp
	}

	if !cascade {
		if _, resp := d.LookupAccount(ctx, guid); resp.IsOK() {
			return responsecode.New(responsecode.BadAccount, "account guids are removed with their account")
		} else if resp.Code != responsecode.BadAccount {
			return resp
		}
		if account == nil {
			owner, resp := d.owningAccount(ctx, guid)
			if !resp.IsOK() {
				return resp
			}
			account = owner
		}
	}

	var r Report
	r.groups("groups of "+guid, d.groups.CleanupForDelete(ctx, guid))
	r.delete("guid "+guid, d.store.DeleteRecord(ctx, guid))
	d.keys.ForgetKey(guid)
	if d.nameBoundTo(ctx, info.Name, guid) {
		r.delete("name "+info.Name, d.store.DeleteRecord(ctx, info.Name))
	}

	if !cascade && account != nil && account.RemoveGuid(guid) {
		account.NoteUpdate(d.clock.Now())
		r.response("account "+account.Guid, d.updateAccount(ctx, account))
	}

	if cascade {
		return r.Response()
	}
	return d.finishCascade(ctx, "remove_guid", guid, r)
}

// owningAccount resolves the account of a sub-GUID through its primary link.
// A GUID without a resolvable account is BAD_ACCOUNT; store failures are
// returned as they are.
func (d *Directory) owningAccount(ctx context.Context, guid string) (*models.AccountInfo, responsecode.Response) {
	primary, resp := d.LookupPrimaryGuid(ctx, guid)
	if resp.Code == responsecode.BadGuid {
		return nil, responsecode.New(responsecode.BadAccount, "no account owns "+guid)
	}
	if !resp.IsOK() {
		return nil, resp
	}
	return d.LookupAccount(ctx, primary)
}
