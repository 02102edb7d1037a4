package email

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/crimson-sun/paperscout/internal/digest"
	"github.com/crimson-sun/paperscout/internal/model"
)

const fromName = "Paper Discovery"

// Config holds SMTP delivery settings. User doubles as the From
// address, matching how most providers authenticate.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string
}

// Option configures an email Notifier.
type Option func(*Notifier)

// WithInterests sets a callback providing the user's top categories for
// the digest header. Called once per send.
func WithInterests(f func() []string) Option {
	return func(n *Notifier) { n.interests = f }
}

// WithSendFunc replaces the SMTP transport, for tests.
func WithSendFunc(f SendFunc) Option {
	return func(n *Notifier) { n.send = f }
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Notifier delivers digests over SMTP as multipart/alternative mail
// with plain-text and HTML bodies.
type Notifier struct {
	cfg       Config
	interests func() []string
	send      SendFunc
}

// New creates an email notifier. Returns an error when the config is
// missing the fields needed to deliver mail.
func New(cfg Config, opts ...Option) (*Notifier, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("email: SMTP host and port required")
	}
	if cfg.User == "" || cfg.Password == "" {
		return nil, fmt.Errorf("email: SMTP credentials not configured")
	}
	if cfg.To == "" {
		return nil, fmt.Errorf("email: recipient address required")
	}
	n := &Notifier{cfg: cfg, send: smtp.SendMail}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// FromPreferences builds a Config from stored preferences.
func FromPreferences(prefs model.Preferences) Config {
	return Config{
		Host:     prefs.SMTPHost,
		Port:     prefs.SMTPPort,
		User:     prefs.SMTPUser,
		Password: prefs.SMTPPassword,
		To:       prefs.Email,
	}
}

// Send renders and delivers the digest.
func (n *Notifier) Send(ctx context.Context, d model.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var top []string
	if n.interests != nil {
		top = n.interests()
	}
	html, err := digest.HTML(d, top)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	msg := n.message(d.Subject, digest.PlainText(d), html)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	if err := n.send(addr, auth, n.cfg.User, []string{n.cfg.To}, msg); err != nil {
		return fmt.Errorf("email: send to %s: %w", n.cfg.To, err)
	}
	return nil
}

func (n *Notifier) Close() error { return nil }

// message assembles a multipart/alternative MIME message. The plain
// part comes first so clients that render the last supported part pick
// HTML.
func (n *Notifier) message(subject, plain, html string) []byte {
	const boundary = "=_paperscout_alt"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, n.cfg.User)
	fmt.Fprintf(&b, "To: %s\r\n", n.cfg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	part := func(contentType, body string) {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s; charset=utf-8\r\n", contentType)
		b.WriteString("\r\n")
		b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
		b.WriteString("\r\n")
	}
	part("text/plain", plain)
	part("text/html", html)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}
