// Package mail sends transactional email.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"ku-isoko/internal/config"

	"github.com/rs/zerolog"
)

// Mailer sends the account emails.
type Mailer interface {
	SendOTP(ctx context.Context, to, code, subject string) error
	SendWelcome(ctx context.Context, to, name string) error
}

const (
	SubjectVerify = "Verify your Ku-isoko account"
	SubjectLogin  = "Your Ku-isoko login code"
	SubjectReset  = "Password Reset OTP"
)

var (
	otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>{{.Subject}}</h1>
  <p>Hello,</p>
  <p>Please use the code below to proceed with your request on Ku-isoko:</p>
  <p style="font-size: 32px; font-weight: bold; letter-spacing: 5px;">{{.Code}}</p>
  <p><strong>Important:</strong> This code expires in {{.Minutes}} minutes. If you didn't request it, ignore this email.</p>
  <p>Never share this code with anyone.</p>
  <p>The Ku-isoko Team</p>
  <p style="font-size: 12px; color: #666;">&copy; {{.Year}} Ku-isoko</p>
</body>
</html>`))

	welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>Welcome to Ku-isoko, {{.Name}}!</h1>
  <p>Your account is verified. You can now shop from sellers across Rwanda.</p>
  <p>The Ku-isoko Team</p>
  <p style="font-size: 12px; color: #666;">&copy; {{.Year}} Ku-isoko</p>
</body>
</html>`))
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer renders HTML templates and delivers them over SMTP.
type SMTPMailer struct {
	addr   string
	auth   smtp.Auth
	from   string
	otpTTL time.Duration
	send   sendFunc
	logger zerolog.Logger
}

// NewSMTPMailer creates an SMTP mailer using PLAIN auth when a user is set.
func NewSMTPMailer(cfg config.MailConfig, otpTTL time.Duration, logger zerolog.Logger) *SMTPMailer {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:   auth,
		from:   cfg.From,
		otpTTL: otpTTL,
		send:   smtp.SendMail,
		logger: logger.With().Str("component", "mailer").Logger(),
	}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, code, subject string) error {
	body, err := render(otpTemplate, map[string]any{
		"Subject": subject,
		"Code":    code,
		"Minutes": int(m.otpTTL.Minutes()),
		"Year":    time.Now().Year(),
	})
	if err != nil {
		return err
	}
	return m.deliver(ctx, to, subject, body)
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name string) error {
	body, err := render(welcomeTemplate, map[string]any{
		"Name": name,
		"Year": time.Now().Year(),
	})
	if err != nil {
		return err
	}
	return m.deliver(ctx, to, "Welcome to Ku-isoko", body)
}

func (m *SMTPMailer) deliver(ctx context.Context, to, subject string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.from, to, subject, body)
	if err := m.send(m.addr, m.auth, envelopeAddress(m.from), []string{to}, msg); err != nil {
		m.logger.Error().Err(err).Str("to", to).Str("subject", subject).Msg("failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

func render(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s email: %w", tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

func buildMessage(from, to, subject string, body []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	buf.Write(body)
	return buf.Bytes()
}

// envelopeAddress extracts the bare address from "Name <addr>".
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		return strings.TrimSuffix(from[i+1:], ">")
	}
	return from
}

// LogMailer writes codes to the log instead of sending mail.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a mailer for environments without SMTP.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) SendOTP(_ context.Context, to, code, subject string) error {
	m.logger.Debug().Str("to", to).Str("subject", subject).Str("code", code).Msg("otp email not sent, smtp disabled")
	return nil
}

func (m *LogMailer) SendWelcome(_ context.Context, to, name string) error {
	m.logger.Debug().Str("to", to).Str("name", name).Msg("welcome email not sent, smtp disabled")
	return nil
}

// New returns an SMTP mailer when a host is configured, otherwise a LogMailer.
func New(cfg config.MailConfig, otpTTL time.Duration, logger zerolog.Logger) Mailer {
	if cfg.Host == "" {
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg, otpTTL, logger)
}
