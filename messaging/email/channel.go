package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/AzielCF/az-crm/messaging/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultSubject = "CRM notification"
	dialTimeout    = 15 * time.Second
)

// Config is the SMTP account used for internal notifications.
type Config struct {
	Host     string
	Port     int
	Secure   bool // implicit TLS (usually port 465); otherwise STARTTLS when offered
	User     string
	Password string
	From     string
}

// Channel delivers payloads to internal recipients (assignees) over SMTP.
type Channel struct {
	cfg Config
}

// sendMail is swapped in tests.
var sendMail = deliver

// NewChannel crea el canal de email interno
func NewChannel(cfg Config) *Channel {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &Channel{cfg: cfg}
}

func (c *Channel) Kind() domain.ChannelKind {
	return domain.ChannelInternalEmail
}

func (c *Channel) Send(ctx context.Context, payload domain.MessagePayload) error {
	to := strings.TrimSpace(payload.Recipient)
	if err := validation.Validate(to, validation.Required, is.EmailFormat); err != nil {
		return fmt.Errorf("%w %q: %v", domain.ErrInvalidRecipient, to, err)
	}

	subject := payload.Subject
	if strings.TrimSpace(subject) == "" {
		subject = defaultSubject
	}

	msg := buildMessage(c.cfg.From, to, subject, payload.Body)
	if err := sendMail(ctx, c.cfg, to, msg); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}

	logrus.WithFields(logrus.Fields{
		"to":          to,
		"customer_id": payload.Meta(domain.MetaCustomerID),
	}).Debug("[EMAIL] Message sent")
	return nil
}

// Verify dials the server and authenticates without sending anything.
func (c *Channel) Verify(ctx context.Context) error {
	client, conn, err := dial(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	return client.Quit()
}

// FormatHTML renders a plain-text body as minimal HTML.
func FormatHTML(text string) string {
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br>\n")
}

func buildMessage(from, to, subject, body string) []byte {
	boundary := "azcrm-" + uuid.NewString()

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=\"" + boundary + "\"\r\n")
	b.WriteString("\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(body + "\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString("<div style=\"font-family: Arial, sans-serif; font-size: 14px;\">" + FormatHTML(body) + "</div>\r\n")

	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}

func dial(ctx context.Context, cfg Config) (*smtp.Client, net.Conn, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: dialTimeout}

	var (
		conn net.Conn
		err  error
	)
	if cfg.Secure {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: cfg.Host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	if !cfg.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("starttls: %w", err)
			}
		}
	}

	if cfg.User != "" {
		if err := client.Auth(smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("auth: %w", err)
		}
	}
	return client, conn, nil
}

func deliver(ctx context.Context, cfg Config, to string, msg []byte) error {
	client, conn, err := dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := client.Mail(cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
