package directory

import (
	"context"
	"time"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/cryptox"
	"github.com/MobilityFirst/GNS-sub011/internal/server/access"
	"github.com/MobilityFirst/GNS-sub011/internal/server/models"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

// AddAccount creates the name binding name -> guid and the account record at
// guid. guid must be the GUID derived from publicKey. With email
// verification on, the account starts unverified and a code is mailed to
// name; a mail failure undoes both records.
func (d *Directory) AddAccount(ctx context.Context, name, guid, publicKey, password string) responsecode.Response {
	s := d.newSaga("add_account")
	now := d.clock.Now()

	if resp := s.bindName(ctx, name, guid); !resp.IsOK() {
		return s.fail(ctx, resp)
	}

	account := models.NewAccountInfo(name, guid, encodePassword(password), now)
	var code string
	if d.cfg.EmailVerificationEnabled {
		code = newVerificationCode(name)
		account.SetVerificationCode(code, now)
	} else {
		account.MarkVerified()
	}

	acl := access.NewACL().Grant(access.ReadWhitelist, common.EntireRecord, common.Everyone)
	rec, err := guidRecord(models.NewGuidInfo(name, guid, publicKey, now), acl)
	if err == nil {
		err = addAccountInfo(rec, account)
	}
	if err != nil {
		return s.rollback(ctx, responsecode.New(responsecode.JSONParseError, err.Error()))
	}

	fresh, resp := s.createGuidRecord(ctx, guid, name, rec)
	if !resp.IsOK() {
		return s.rollback(ctx, resp)
	}

	if d.cfg.EmailVerificationEnabled && fresh {
		if err := d.sendVerification(ctx, name, guid, code); err != nil {
			return s.rollback(ctx, responsecode.New(responsecode.VerificationError, "Unable to send verification email"))
		}
	}

	s.commit(ctx)
	d.log.Info(ctx, "account added", "name", name, "guid", guid, "verified", account.Verified)
	return responsecode.OK("")
}

// RemoveAccount deletes an account and everything it owns: group links, the
// name binding, the account record, alias bindings and every sub-GUID. A
// failure to delete the name binding aborts; later failures are recorded
// and the cascade carries on.
func (d *Directory) RemoveAccount(ctx context.Context, account *models.AccountInfo) responsecode.Response {
	var r Report
	guid := account.Guid

	r.groups("groups of "+guid, d.groups.CleanupForDelete(ctx, guid))
	r.groups("members of "+guid, d.groups.RemoveAllMembers(ctx, guid))

	if !r.delete("name "+account.Name, d.store.DeleteRecord(ctx, account.Name)) {
		r.Aborted = true
		return d.finishCascade(ctx, "remove_account", guid, r)
	}

	r.delete("guid "+guid, d.store.DeleteRecord(ctx, guid))
	d.keys.ForgetKey(guid)

	for _, alias := range account.Aliases {
		r.delete("alias "+alias, d.store.DeleteRecord(ctx, alias))
	}
	for _, sub := range account.Guids {
		r.response("sub-guid "+sub, d.removeGuid(ctx, sub, account, true))
	}

	return d.finishCascade(ctx, "remove_account", guid, r)
}

func (d *Directory) finishCascade(ctx context.Context, op, guid string, r Report) responsecode.Response {
	d.observer.ObserveSaga(op, r.outcome())
	if r.OK() {
		d.log.Info(ctx, op+" completed", "guid", guid)
	} else {
		d.log.Warn(ctx, op+" incomplete", "guid", guid, "failed", r.Failed, "aborted", r.Aborted)
	}
	return r.Response()
}

// SetPassword replaces the account password.
func (d *Directory) SetPassword(ctx context.Context, account *models.AccountInfo, password string) responsecode.Response {
	account.Password = encodePassword(password)
	account.NoteUpdate(d.clock.Now())
	if resp := d.updateAccount(ctx, account); !resp.IsOK() {
		return responsecode.New(responsecode.UpdateError, "Unable to update account info")
	}
	return responsecode.OK("")
}

// guidRecord is the initial record stored at a GUID.
func guidRecord(info *models.GuidInfo, acl access.ACL) (store.Record, error) {
	field, err := models.ToField(info)
	if err != nil {
		return nil, err
	}
	return store.Record{
		common.GuidInfoField: field,
		common.ACLField:      acl.Document(),
	}, nil
}

func addAccountInfo(rec store.Record, account *models.AccountInfo) error {
	field, err := models.ToField(account)
	if err != nil {
		return err
	}
	rec[common.AccountInfoField] = field
	return nil
}

func (d *Directory) updateAccount(ctx context.Context, account *models.AccountInfo) responsecode.Response {
	return d.replaceInternal(ctx, account.Guid, common.AccountInfoField, account)
}

func (d *Directory) updateGuidInfo(ctx context.Context, info *models.GuidInfo) responsecode.Response {
	return d.replaceInternal(ctx, info.Guid, common.GuidInfoField, info)
}

// replaceInternal overwrites one bookkeeping field of guid's record.
func (d *Directory) replaceInternal(ctx context.Context, guid, field string, v any) responsecode.Response {
	doc, err := models.ToField(v)
	if err != nil {
		return responsecode.New(responsecode.JSONParseError, err.Error())
	}
	u := updates.Update{Op: updates.ReplaceSubset, Document: map[string]any{field: doc}}
	resp := d.fields.Update(ctx, internalRequest(guid), "", u)
	if !resp.IsOK() {
		d.log.Warn(ctx, "bookkeeping update failed", "guid", guid, "field", field, "code", resp.Code.Name(), "msg", resp.Message)
	}
	return resp
}

func encodePassword(password string) string {
	if password == "" || cryptox.IsHashedPassword(password) {
		return password
	}
	return cryptox.HashPassword(password)
}

func (d *Directory) codeExpired(account *models.AccountInfo, now time.Time) bool {
	return d.cfg.VerificationCodeTTL > 0 && now.Sub(account.CodeCreatedAt) > d.cfg.VerificationCodeTTL
}
