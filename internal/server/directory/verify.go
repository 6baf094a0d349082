package directory

import (
	"context"

	"github.com/MobilityFirst/GNS-sub011/internal/cryptox"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
)

// VerifyAccount checks code against the pending verification code of the
// account at guid and marks the account verified on a match. Codes older
// than the configured TTL are rejected even when they match.
func (d *Directory) VerifyAccount(ctx context.Context, guid, code string) responsecode.Response {
	account, resp := d.LookupAccount(ctx, guid)
	if !resp.IsOK() {
		return responsecode.New(responsecode.VerificationError, "Unable to read account info")
	}
	if account.Verified {
		return responsecode.New(responsecode.AlreadyVerified, "Account already verified")
	}
	if account.VerificationCode == "" {
		return responsecode.New(responsecode.VerificationError, "Bad verification code")
	}
	if account.CodeCreatedAt.IsZero() {
		return responsecode.New(responsecode.VerificationError, "Cannot retrieve account code time")
	}
	now := d.clock.Now()
	if d.codeExpired(account, now) {
		return responsecode.New(responsecode.VerificationError, "Account code no longer valid")
	}
	if account.VerificationCode != code {
		return responsecode.New(responsecode.VerificationError, "Code not correct")
	}

	account.MarkVerified()
	account.NoteUpdate(now)
	if resp := d.updateAccount(ctx, account); !resp.IsOK() {
		return responsecode.New(responsecode.UpdateError, "Unable to update account info")
	}
	d.log.Info(ctx, "account verified", "guid", guid)
	return responsecode.OK("Your account has been verified.")
}

// ResendVerification issues a fresh code for an unverified account and
// mails it.
func (d *Directory) ResendVerification(ctx context.Context, guid string) responsecode.Response {
	if !d.cfg.EmailVerificationEnabled {
		return responsecode.New(responsecode.VerificationError, "Email verification is disabled.")
	}
	account, resp := d.LookupAccount(ctx, guid)
	if !resp.IsOK() {
		return resp
	}
	if account.Verified {
		return responsecode.New(responsecode.AlreadyVerified, "Account already verified")
	}

	code := newVerificationCode(account.Name)
	if err := d.sendVerification(ctx, account.Name, guid, code); err != nil {
		return responsecode.New(responsecode.VerificationError, "Unable to send verification email")
	}

	now := d.clock.Now()
	account.SetVerificationCode(code, now)
	account.NoteUpdate(now)
	if resp := d.updateAccount(ctx, account); !resp.IsOK() {
		return responsecode.New(responsecode.UpdateError, "Unable to update account info")
	}
	return responsecode.OK("")
}

// ResetPublicKey replaces the public key of a verified account after
// checking its password.
func (d *Directory) ResetPublicKey(ctx context.Context, guid, password, publicKey string) responsecode.Response {
	account, resp := d.LookupAccount(ctx, guid)
	if !resp.IsOK() {
		return responsecode.New(responsecode.BadAccount, "Not an account guid")
	}
	if !account.Verified {
		return responsecode.New(responsecode.VerificationError, "Account not verified")
	}
	if !passwordMatches(account.Password, password) {
		return responsecode.New(responsecode.VerificationError, "Password mismatch")
	}

	info, resp := d.LookupGuidInfo(ctx, guid)
	if !resp.IsOK() {
		return responsecode.New(responsecode.BadAccount, "Unable to read guid info")
	}
	info.PublicKey = publicKey
	info.NoteUpdate(d.clock.Now())
	if resp := d.updateGuidInfo(ctx, info); !resp.IsOK() {
		return responsecode.New(responsecode.UpdateError, "Unable to update guid info")
	}
	d.keys.ForgetKey(guid)
	return responsecode.OK("Public key has been updated.")
}

func passwordMatches(stored, supplied string) bool {
	if !cryptox.IsHashedPassword(stored) {
		return stored == supplied
	}
	ok, err := cryptox.CheckPassword(stored, supplied)
	return err == nil && ok
}
