package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/AzielCF/az-crm/messaging/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

type notifierStub struct {
	sent []domain.MessagePayload
	err  error
}

func (n *notifierStub) Kind() domain.ChannelKind { return domain.ChannelInternalEmail }

func (n *notifierStub) Send(_ context.Context, p domain.MessagePayload) error {
	n.sent = append(n.sent, p)
	return n.err
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

// stubTransport replays responses in order and records every request.
func stubTransport(t *testing.T, responses ...*http.Response) *[]capturedRequest {
	t.Helper()
	var reqs []capturedRequest

	origClient := httpClient
	t.Cleanup(func() { httpClient = origClient })

	httpClient = &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			captured := capturedRequest{Method: req.Method, Path: req.URL.Path, Header: req.Header.Clone()}
			if req.Body != nil {
				b, _ := io.ReadAll(req.Body)
				_ = json.Unmarshal(b, &captured.Body)
			}
			reqs = append(reqs, captured)
			if len(reqs) > len(responses) {
				t.Fatalf("unexpected request #%d to %s", len(reqs), req.URL.Path)
			}
			return responses[len(reqs)-1], nil
		}),
	}
	return &reqs
}

func newTestChannel(notifier domain.Channel) *Channel {
	dir := domain.NewAssigneeDirectory(
		map[string]string{"DENIS": "denis@example.com"},
		map[string]string{"DENIS": "+5493804000001"},
		"crm@example.com",
	)
	return NewChannel(Config{
		BaseURL:       "https://api.ycloud.test/v2/",
		APIKey:        "key-123",
		DefaultSender: "+5493804000000",
	}, dir, notifier)
}

func payload() domain.MessagePayload {
	return domain.MessagePayload{
		Recipient: "+5493804345688",
		Body:      "Hola Ana",
		Metadata: map[string]string{
			domain.MetaAssignee:     "denis",
			domain.MetaCustomerID:   "cust-1",
			domain.MetaCustomerName: "Ana Perez",
			domain.MetaTemplateID:   "NO_RESPONSE_24H",
		},
	}
}

func TestSend_TextMessageWithAssigneeSender(t *testing.T) {
	reqs := stubTransport(t, jsonResponse(http.StatusOK, `{"id":"wamid-1","status":"accepted"}`))

	err := newTestChannel(nil).Send(context.Background(), payload())
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/v2/whatsapp/messages/sendDirectly", got.Path)
	assert.Equal(t, "key-123", got.Header.Get("X-API-Key"))
	assert.Equal(t, "+5493804000001", got.Body["from"])
	assert.Equal(t, "+5493804345688", got.Body["to"])
	assert.Equal(t, "text", got.Body["type"])
	assert.Equal(t, map[string]any{"body": "Hola Ana"}, got.Body["text"])
}

func TestSend_TemplateReferenceAndBearerAuth(t *testing.T) {
	reqs := stubTransport(t, jsonResponse(http.StatusOK, `{}`))

	ch := newTestChannel(nil)
	ch.cfg.AuthScheme = "bearer"
	p := payload()
	p.Metadata[domain.MetaAssignee] = "MARTIN"
	p.Template = &domain.TemplateRef{Name: "no_response_24h"}

	require.NoError(t, ch.Send(context.Background(), p))

	got := (*reqs)[0]
	assert.Equal(t, "Bearer key-123", got.Header.Get("Authorization"))
	assert.Empty(t, got.Header.Get("X-API-Key"))
	assert.Equal(t, "+5493804000000", got.Body["from"])
	assert.Equal(t, "template", got.Body["type"])
	assert.Equal(t, map[string]any{"name": "no_response_24h", "language": map[string]any{"code": "es"}}, got.Body["template"])
	assert.Nil(t, got.Body["text"])
}

func TestSend_CreatesContactAndRetriesOnce(t *testing.T) {
	reqs := stubTransport(t,
		jsonResponse(http.StatusNotFound, `{"error":{"code":"CONTACT_NOT_FOUND","message":"Contact not found"}}`),
		jsonResponse(http.StatusOK, `{"id":"contact-1"}`),
		jsonResponse(http.StatusOK, `{"id":"wamid-2"}`),
	)

	require.NoError(t, newTestChannel(nil).Send(context.Background(), payload()))

	require.Len(t, *reqs, 3)
	assert.Equal(t, "/v2/contacts", (*reqs)[1].Path)
	assert.Equal(t, "+5493804345688", (*reqs)[1].Body["phone"])
	assert.Equal(t, "/v2/whatsapp/messages/sendDirectly", (*reqs)[2].Path)
}

func TestSend_SecondContactNotFoundIsSurfacedAndEscalated(t *testing.T) {
	stubTransport(t,
		jsonResponse(http.StatusNotFound, `{"code":"CONTACT_NOT_FOUND","message":"contact not found"}`),
		jsonResponse(http.StatusOK, `{}`),
		jsonResponse(http.StatusNotFound, `{"code":"CONTACT_NOT_FOUND","message":"contact not found"}`),
	)
	notifier := &notifierStub{}

	err := newTestChannel(notifier).Send(context.Background(), payload())

	assert.ErrorIs(t, err, domain.ErrContactNotFound)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "denis@example.com", notifier.sent[0].Recipient)
	assert.Contains(t, notifier.sent[0].Subject, "Ana Perez")
	assert.Contains(t, notifier.sent[0].Body, "Hola Ana")
	assert.Contains(t, notifier.sent[0].Body, "cust-1")
}

func TestSend_UnavailableIsTransientAndNotEscalated(t *testing.T) {
	stubTransport(t, jsonResponse(http.StatusServiceUnavailable, `upstream down`))
	notifier := &notifierStub{}

	err := newTestChannel(notifier).Send(context.Background(), payload())

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Empty(t, notifier.sent)
}

func TestSend_NetworkErrorIsTransient(t *testing.T) {
	origClient := httpClient
	t.Cleanup(func() { httpClient = origClient })
	httpClient = &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}

	err := newTestChannel(nil).Send(context.Background(), payload())
	assert.True(t, domain.IsTransient(err))
}

func TestSend_PermanentErrorEscalatesEvenIfNotifierFails(t *testing.T) {
	stubTransport(t, jsonResponse(http.StatusBadRequest, `{"code":"INVALID_PHONE","message":"invalid to"}`))
	notifier := &notifierStub{err: errors.New("smtp down")}

	err := newTestChannel(notifier).Send(context.Background(), payload())

	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
	assert.Contains(t, err.Error(), "INVALID_PHONE")
	assert.Len(t, notifier.sent, 1)
}

func TestSend_MissingSender(t *testing.T) {
	reqs := stubTransport(t)
	notifier := &notifierStub{}

	ch := NewChannel(Config{BaseURL: "https://api.ycloud.test/v2", APIKey: "k"}, domain.NewAssigneeDirectory(nil, nil, "crm@example.com"), notifier)
	err := ch.Send(context.Background(), payload())

	assert.ErrorIs(t, err, domain.ErrMissingSender)
	assert.Empty(t, *reqs)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "crm@example.com", notifier.sent[0].Recipient)
}
