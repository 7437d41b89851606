package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// SMTPMailer sends the confirmation-link emails over plain SMTP.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     strings.TrimSpace(host),
		port:     strings.TrimSpace(port),
		username: username,
		password: password,
		from:     strings.TrimSpace(from),
	}
}

func (m *SMTPMailer) SendVerificationLink(ctx context.Context, email, link string) error {
	body := fmt.Sprintf(`<h2>Email verification</h2>
<p>Click the button below to verify your account:</p>
<a href=%q style="display:inline-block;padding:10px 16px;background:#2563eb;color:#fff;text-decoration:none;border-radius:6px;">Verify email</a>
<p>This link expires in 30 minutes.</p>`, link)
	return m.send(ctx, email, "Verify your email", body)
}

func (m *SMTPMailer) SendPasswordResetLink(ctx context.Context, email, link string) error {
	body := fmt.Sprintf(`<h2>Password recovery</h2>
<p>Click to reset your password:</p>
<a href=%q style="display:inline-block;padding:10px 16px;background:#16a34a;color:#fff;text-decoration:none;border-radius:6px;">Reset password</a>
<p>This link expires in 30 minutes.</p>
<p>If this wasn't you, ignore this email.</p>`, link)
	return m.send(ctx, email, "Password recovery", body)
}

func (m *SMTPMailer) SendEmailChangeLink(ctx context.Context, email, link string) error {
	body := fmt.Sprintf(`<h2>Confirm your new email</h2>
<p>Click to confirm this address for your account:</p>
<a href=%q style="display:inline-block;padding:10px 16px;background:#2563eb;color:#fff;text-decoration:none;border-radius:6px;">Confirm email</a>
<p>This link expires in 30 minutes.</p>
<p>If you did not request this change, ignore this email.</p>`, link)
	return m.send(ctx, email, "Confirm your new email", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if m == nil {
		return errors.New("mailer not configured")
	}
	if m.host == "" || m.port == "" || m.from == "" {
		return errors.New("mailer missing configuration")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	message := strings.Builder{}
	message.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	message.WriteString(fmt.Sprintf("To: %s\r\n", to))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	message.WriteString(htmlBody)
	message.WriteString("\r\n")

	addr := net.JoinHostPort(m.host, m.port)
	var auth smtp.Auth
	if m.username != "" || m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(message.String()))
}
