package directory

import (
	"context"

	"github.com/MobilityFirst/GNS-sub011/internal/server/models"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
)

// AddAlias binds alias to the account GUID and records it in the account.
// If the account update fails the binding is rolled back.
func (d *Directory) AddAlias(ctx context.Context, account *models.AccountInfo, alias string) responsecode.Response {
	if d.cfg.MaxAliasesPerAccount > 0 && len(account.Aliases) >= d.cfg.MaxAliasesPerAccount {
		return responsecode.Errorf(responsecode.TooManyAliases, "account %s already has %d aliases", account.Name, len(account.Aliases))
	}
	if alias == account.Name || account.ContainsAlias(alias) {
		return responsecode.New(responsecode.DuplicateName, alias)
	}

	s := d.newSaga("add_alias")
	if resp := s.bindName(ctx, alias, account.Guid); !resp.IsOK() {
		return s.fail(ctx, resp)
	}

	account.AddAlias(alias)
	account.NoteUpdate(d.clock.Now())
	if resp := d.updateAccount(ctx, account); !resp.IsOK() {
		account.RemoveAlias(alias)
		return s.rollback(ctx, responsecode.New(responsecode.UpdateError, "Unable to update account info"))
	}

	s.commit(ctx)
	return responsecode.OK("")
}

// RemoveAlias deletes the alias binding, then drops the alias from the
// account.
func (d *Directory) RemoveAlias(ctx context.Context, account *models.AccountInfo, alias string) responsecode.Response {
	if !account.ContainsAlias(alias) {
		return responsecode.New(responsecode.BadAlias, alias)
	}

	if !d.nameBoundTo(ctx, alias, account.Guid) {
		d.log.Warn(ctx, "alias binding missing or foreign", "alias", alias, "account", account.Guid)
	} else if res := d.store.DeleteRecord(ctx, alias); !res.OK() && res.Code != responsecode.BadGuid {
		return res.Response()
	}

	account.RemoveAlias(alias)
	account.NoteUpdate(d.clock.Now())
	if resp := d.updateAccount(ctx, account); !resp.IsOK() {
		return responsecode.New(responsecode.UpdateError, "Unable to update account info")
	}
	return responsecode.OK("")
}
