package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AzielCF/az-crm/messaging/domain"
	"github.com/sirupsen/logrus"
)

const httpTimeout = 20 * time.Second

var httpClient = &http.Client{Timeout: httpTimeout}

// Config for the WhatsApp Business HTTP API (YCloud compatible).
type Config struct {
	BaseURL          string
	APIKey           string
	AuthScheme       string // "apikey" (X-API-Key) or "bearer"
	DefaultSender    string
	TemplateLanguage string
}

// Channel sends follow-ups through the WhatsApp HTTP API. Unrecoverable
// failures are reported to the assignee through notifier.
type Channel struct {
	cfg       Config
	directory *domain.AssigneeDirectory
	notifier  domain.Channel
}

// NewChannel crea el canal de WhatsApp API. notifier puede ser nil.
func NewChannel(cfg Config, directory *domain.AssigneeDirectory, notifier domain.Channel) *Channel {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TemplateLanguage == "" {
		cfg.TemplateLanguage = "es"
	}
	return &Channel{cfg: cfg, directory: directory, notifier: notifier}
}

func (c *Channel) Kind() domain.ChannelKind {
	return domain.ChannelWhatsAppAPI
}

// Send delivers payload, creating the contact and retrying once when the
// API does not know the recipient yet.
func (c *Channel) Send(ctx context.Context, payload domain.MessagePayload) error {
	assignee := payload.Meta(domain.MetaAssignee)
	from := c.directory.Sender(assignee, c.cfg.DefaultSender)
	to := strings.TrimSpace(payload.Recipient)

	var err error
	switch {
	case from == "":
		err = fmt.Errorf("%w for assignee %s", domain.ErrMissingSender, domain.NormalizeAssignee(assignee))
	case to == "":
		err = fmt.Errorf("%w: empty phone", domain.ErrInvalidRecipient)
	default:
		err = c.sendMessage(ctx, from, to, payload)
		if errors.Is(err, domain.ErrContactNotFound) {
			logrus.Infof("[WHATSAPP_API] Contact %s unknown, creating it and retrying", to)
			if cerr := c.createContact(ctx, to); cerr != nil {
				err = fmt.Errorf("create contact %s: %w", to, cerr)
			} else {
				err = c.sendMessage(ctx, from, to, payload)
			}
		}
	}

	if err == nil {
		return nil
	}

	if !domain.IsTransient(err) {
		c.notifyFailure(ctx, payload, from, err)
	}
	return err
}

type textBody struct {
	Body string `json:"body"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateBody struct {
	Name     string           `json:"name"`
	Language templateLanguage `json:"language"`
}

type sendRequest struct {
	From     string        `json:"from"`
	To       string        `json:"to"`
	Type     string        `json:"type"`
	Text     *textBody     `json:"text,omitempty"`
	Template *templateBody `json:"template,omitempty"`
}

type sendResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Channel) sendMessage(ctx context.Context, from, to string, payload domain.MessagePayload) error {
	req := sendRequest{From: from, To: to}
	if ref := payload.Template; ref != nil && ref.Name != "" {
		lang := ref.Language
		if lang == "" {
			lang = c.cfg.TemplateLanguage
		}
		req.Type = "template"
		req.Template = &templateBody{Name: ref.Name, Language: templateLanguage{Code: lang}}
	} else {
		req.Type = "text"
		req.Text = &textBody{Body: payload.Body}
	}

	var resp sendResponse
	if err := c.jsonRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/whatsapp/messages/sendDirectly", req, &resp); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"message_id":  resp.ID,
		"status":      resp.Status,
		"to":          to,
		"customer_id": payload.Meta(domain.MetaCustomerID),
	}).Info("[WHATSAPP_API] Message accepted")
	return nil
}

func (c *Channel) createContact(ctx context.Context, phone string) error {
	return c.jsonRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/contacts", map[string]string{"phone": phone}, nil)
}

func (c *Channel) notifyFailure(ctx context.Context, payload domain.MessagePayload, from string, cause error) {
	assignee := payload.Meta(domain.MetaAssignee)
	recipient := c.directory.NotificationEmail(assignee)
	if c.notifier == nil || recipient == "" {
		logrus.WithError(cause).Warn("[WHATSAPP_API] Delivery failed and no internal notifier is configured")
		return
	}

	name := payload.Meta(domain.MetaCustomerName)
	if name == "" {
		name = payload.Recipient
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", domain.DisplayName(assignee))
	fmt.Fprintf(&b, "The WhatsApp follow-up for %s could not be delivered.\n\n", name)
	fmt.Fprintf(&b, "Phone: %s\n", payload.Recipient)
	fmt.Fprintf(&b, "Sender: %s\n", from)
	if id := payload.Meta(domain.MetaCustomerID); id != "" {
		fmt.Fprintf(&b, "Customer ID: %s\n", id)
	}
	if tpl := payload.Meta(domain.MetaTemplateID); tpl != "" {
		fmt.Fprintf(&b, "Template: %s\n", tpl)
	}
	fmt.Fprintf(&b, "Error: %s\n\n", cause.Error())
	b.WriteString("Message:\n")
	b.WriteString(payload.Body)

	err := c.notifier.Send(ctx, domain.MessagePayload{
		Recipient: recipient,
		Subject:   "[WhatsApp] Delivery failed for " + name,
		Body:      b.String(),
		Metadata:  payload.Metadata,
	})
	if err != nil {
		logrus.WithError(err).Errorf("[WHATSAPP_API] Could not notify %s about failed delivery", recipient)
	}
}

// apiError is a non-2xx answer from the API.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("whatsapp api status=%d code=%s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("whatsapp api status=%d: %s", e.Status, e.Message)
}

// classify maps API errors onto the messaging sentinels.
func classify(e *apiError) error {
	text := strings.ToLower(e.Code + " " + e.Message)
	switch {
	case strings.Contains(text, "contact_not_found") || strings.Contains(text, "contact not found"):
		return fmt.Errorf("%w: %w", domain.ErrContactNotFound, e)
	case e.Status == http.StatusTooManyRequests,
		e.Status == http.StatusBadGateway,
		e.Status == http.StatusServiceUnavailable,
		e.Status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w", domain.ErrTemporarilyUnavailable, e)
	}
	return e
}

func parseAPIError(status int, data []byte) *apiError {
	out := &apiError{Status: status}
	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		out.Code, out.Message = envelope.Code, envelope.Message
		if envelope.Error != nil {
			out.Code, out.Message = envelope.Error.Code, envelope.Error.Message
		}
	}
	if out.Message == "" {
		out.Message = strings.TrimSpace(string(data))
	}
	return out
}

// jsonRequest unifica la creación, ejecución y decodificación de peticiones API.
func (c *Channel) jsonRequest(ctx context.Context, method, url string, body any, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.AuthScheme == "bearer" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	} else {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTemporarilyUnavailable, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if resp.StatusCode >= 400 {
		return classify(parseAPIError(resp.StatusCode, data))
	}

	if dest != nil && len(data) > 0 {
		return json.Unmarshal(data, dest)
	}
	return nil
}
