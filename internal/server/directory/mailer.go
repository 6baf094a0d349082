package directory

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/url"
	"strings"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers verification email. Account names are email addresses.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

const verifyCommand = "account_verify"

const verificationBody = "Hi %[2]s,\n\n" +
	"This is an automated message informing you that %[1]s has created\n" +
	"an account for %[2]s. You were sent this message to insure that the\n" +
	"person that created this account actually has access to this email address.\n\n" +
	"To verify this is your email address you can click on the link below.\n" +
	"If you are unable to click on the link, you can complete your email address\n" +
	"verification by copying and pasting the URL into your web browser:\n\n" +
	"%[3]s/VerifyAccount?guid=%[4]s&code=%[5]s\n\n" +
	"If you did not create this account you can just ignore this email and nothing bad will happen.\n\n" +
	"Thank you,\nThe %[1]s Team."

const verificationCLI = "\n\nFor GNS CLI users only: enter this command into the CLI that you used to create the account:\n\n" +
	verifyCommand + " %s %s\n\n"

// verificationCodeBytes is how much of the digest is kept: six hex characters.
const verificationCodeBytes = 3

func newVerificationCode(name string) string {
	seed := append([]byte(name), common.GenerateRandByteArray(128)...)
	sum := sha1.Sum(seed)
	return strings.ToUpper(fmt.Sprintf("%x", sum[:verificationCodeBytes]))
}

func (d *Directory) verificationMessage(name, guid, code string) Message {
	app := d.cfg.ApplicationName
	base := strings.TrimRight(d.cfg.VerificationURLBase, "/")
	body := fmt.Sprintf(verificationBody, app, name, base, url.QueryEscape(guid), url.QueryEscape(code))
	body += fmt.Sprintf(verificationCLI, name, code)
	return Message{
		To:      name,
		Subject: app + " Account Authentication",
		Body:    body,
	}
}

func (d *Directory) sendVerification(ctx context.Context, name, guid, code string) error {
	if err := d.mailer.Send(ctx, d.verificationMessage(name, guid, code)); err != nil {
		d.log.Error(ctx, "verification email not sent", "name", name, "guid", guid, "err", err)
		return err
	}
	d.log.Info(ctx, "verification email sent", "name", name, "guid", guid)
	return nil
}
