package email

import (
	"context"
	"errors"
	"testing"

	"github.com/AzielCF/az-crm/messaging/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubSendMail(t *testing.T, fn func(ctx context.Context, cfg Config, to string, msg []byte) error) {
	t.Helper()
	orig := sendMail
	t.Cleanup(func() { sendMail = orig })
	sendMail = fn
}

func TestSend_BuildsMultipartMessage(t *testing.T) {
	var (
		gotTo  string
		gotMsg string
		gotCfg Config
	)
	stubSendMail(t, func(_ context.Context, cfg Config, to string, msg []byte) error {
		gotCfg, gotTo, gotMsg = cfg, to, string(msg)
		return nil
	})

	ch := NewChannel(Config{Host: "smtp.example.com", Port: 587, User: "crm@example.com"})
	err := ch.Send(context.Background(), domain.MessagePayload{
		Recipient: " denis@example.com ",
		Subject:   "Follow-up failed",
		Body:      "Customer: Ana <Perez>\nError: boom",
	})
	require.NoError(t, err)

	assert.Equal(t, "denis@example.com", gotTo)
	assert.Equal(t, "crm@example.com", gotCfg.From)
	assert.Contains(t, gotMsg, "From: crm@example.com\r\n")
	assert.Contains(t, gotMsg, "To: denis@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: Follow-up failed\r\n")
	assert.Contains(t, gotMsg, "multipart/alternative")
	assert.Contains(t, gotMsg, "Customer: Ana &lt;Perez&gt;<br>\nError: boom")
	assert.Contains(t, gotMsg, "Customer: Ana <Perez>\nError: boom")
}

func TestSend_DefaultSubjectAndEncoding(t *testing.T) {
	var gotMsg string
	stubSendMail(t, func(_ context.Context, _ Config, _ string, msg []byte) error {
		gotMsg = string(msg)
		return nil
	})

	ch := NewChannel(Config{From: "crm@example.com"})
	require.NoError(t, ch.Send(context.Background(), domain.MessagePayload{Recipient: "a@example.com", Body: "x"}))
	assert.Contains(t, gotMsg, "Subject: "+defaultSubject+"\r\n")

	require.NoError(t, ch.Send(context.Background(), domain.MessagePayload{Recipient: "a@example.com", Subject: "Seguimiento • Ana", Body: "x"}))
	assert.Contains(t, gotMsg, "Subject: =?utf-8?q?")
}

func TestSend_RejectsInvalidRecipient(t *testing.T) {
	called := false
	stubSendMail(t, func(context.Context, Config, string, []byte) error {
		called = true
		return nil
	})

	ch := NewChannel(Config{From: "crm@example.com"})
	err := ch.Send(context.Background(), domain.MessagePayload{Recipient: "not-an-email", Body: "x"})

	assert.ErrorIs(t, err, domain.ErrInvalidRecipient)
	assert.False(t, called)
}

func TestSend_WrapsTransportError(t *testing.T) {
	stubSendMail(t, func(context.Context, Config, string, []byte) error {
		return errors.New("421 service not available")
	})

	ch := NewChannel(Config{From: "crm@example.com"})
	err := ch.Send(context.Background(), domain.MessagePayload{Recipient: "a@example.com", Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "421")
	assert.Equal(t, domain.ChannelInternalEmail, ch.Kind())
}

func TestFormatHTML(t *testing.T) {
	assert.Equal(t, "a<br>\nb &amp; c", FormatHTML("a\r\nb & c"))
}
