package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/directory"
)

type sendCall struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func stubSend(t *testing.T, err error) *[]sendCall {
	t.Helper()
	var calls []sendCall
	orig := sendMail
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls = append(calls, sendCall{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return err
	}
	t.Cleanup(func() { sendMail = orig })
	return &calls
}

var verification = directory.Message{
	To:      "alice@example.com",
	Subject: "GNS Account Authentication",
	Body:    "Hi alice@example.com,\n\nline two",
}

func TestSMTPMailer_Send(t *testing.T) {
	calls := stubSend(t, nil)
	m, err := NewSMTPMailer("smtp.example.com:587", "gns@example.com", "gns", "pw", logging.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), verification))

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	assert.Equal(t, "smtp.example.com:587", c.addr)
	assert.NotNil(t, c.auth)
	assert.Equal(t, "gns@example.com", c.from)
	assert.Equal(t, []string{"alice@example.com"}, c.to)
	assert.True(t, strings.HasPrefix(c.msg, "From: gns@example.com\r\nTo: alice@example.com\r\nSubject: GNS Account Authentication\r\n"))
	assert.True(t, strings.HasSuffix(c.msg, "\r\n\r\nHi alice@example.com,\r\n\r\nline two"))
}

func TestSMTPMailer_NoAuthWithoutUser(t *testing.T) {
	calls := stubSend(t, nil)
	m, err := NewSMTPMailer("127.0.0.1:25", "gns@localhost", "", "", logging.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), verification))
	assert.Nil(t, (*calls)[0].auth)
}

func TestSMTPMailer_Errors(t *testing.T) {
	_, err := NewSMTPMailer("no-port", "gns@localhost", "", "", logging.NopLogger{})
	assert.Error(t, err)

	calls := stubSend(t, errors.New("relay refused"))
	m, err := NewSMTPMailer("127.0.0.1:25", "gns@localhost", "", "", logging.NopLogger{})
	require.NoError(t, err)

	err = m.Send(context.Background(), verification)
	assert.ErrorContains(t, err, "relay refused")

	injected := verification
	injected.Subject = "hi\r\nBcc: eve@example.com"
	assert.Error(t, m.Send(context.Background(), injected))
	assert.Len(t, *calls, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, verification), context.Canceled)
}

func TestLogMailer(t *testing.T) {
	var m directory.Mailer = NewLogMailer(logging.NopLogger{})
	assert.NoError(t, m.Send(context.Background(), verification))
}
