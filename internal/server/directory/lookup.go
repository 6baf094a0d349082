package directory

import (
	"context"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/server/models"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
)

// LookupGuid returns the GUID name is bound to.
func (d *Directory) LookupGuid(ctx context.Context, name string) (string, responsecode.Response) {
	res := d.store.ReadField(ctx, name, common.HRNGuidField)
	if res.IsNotFound() {
		return "", responsecode.New(responsecode.BadAccount, "no guid bound to "+name)
	}
	if !res.OK() {
		return "", res.Response()
	}
	guid, ok := res.Value.(string)
	if !ok {
		return "", responsecode.New(responsecode.JSONParseError, "bad name binding for "+name)
	}
	return guid, responsecode.OK("")
}

// LookupPrimaryGuid returns the account GUID a sub-GUID belongs to.
func (d *Directory) LookupPrimaryGuid(ctx context.Context, guid string) (string, responsecode.Response) {
	res := d.store.ReadField(ctx, guid, common.PrimaryGuidField)
	if res.IsNotFound() {
		return "", responsecode.New(responsecode.BadGuid, guid)
	}
	if !res.OK() {
		return "", res.Response()
	}
	primary, ok := res.Value.(string)
	if !ok {
		return "", responsecode.New(responsecode.JSONParseError, "bad primary guid for "+guid)
	}
	return primary, responsecode.OK("")
}

// LookupGuidInfo returns the GUID info stored at guid.
func (d *Directory) LookupGuidInfo(ctx context.Context, guid string) (*models.GuidInfo, responsecode.Response) {
	res := d.store.ReadField(ctx, guid, common.GuidInfoField)
	if res.IsNotFound() {
		return nil, responsecode.New(responsecode.BadGuid, guid)
	}
	if !res.OK() {
		return nil, res.Response()
	}
	info := &models.GuidInfo{}
	if err := models.FromField(res.Value, info); err != nil {
		return nil, responsecode.New(responsecode.JSONParseError, err.Error())
	}
	return info, responsecode.OK("")
}

// LookupAccount returns the account info stored at an account GUID.
func (d *Directory) LookupAccount(ctx context.Context, guid string) (*models.AccountInfo, responsecode.Response) {
	res := d.store.ReadField(ctx, guid, common.AccountInfoField)
	if res.IsNotFound() {
		return nil, responsecode.New(responsecode.BadAccount, "Not an account guid")
	}
	if !res.OK() {
		return nil, res.Response()
	}
	info := &models.AccountInfo{}
	if err := models.FromField(res.Value, info); err != nil {
		return nil, responsecode.New(responsecode.JSONParseError, err.Error())
	}
	return info, responsecode.OK("")
}

// LookupAccountFor returns the account owning guid, which may be the
// account GUID itself or one of its sub-GUIDs.
func (d *Directory) LookupAccountFor(ctx context.Context, guid string) (*models.AccountInfo, responsecode.Response) {
	if primary, resp := d.LookupPrimaryGuid(ctx, guid); resp.IsOK() {
		guid = primary
	}
	return d.LookupAccount(ctx, guid)
}

// LookupAccountByName resolves name and returns its account.
func (d *Directory) LookupAccountByName(ctx context.Context, name string) (*models.AccountInfo, responsecode.Response) {
	guid, resp := d.LookupGuid(ctx, name)
	if !resp.IsOK() {
		return nil, resp
	}
	return d.LookupAccount(ctx, guid)
}
