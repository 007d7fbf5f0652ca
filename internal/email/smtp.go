package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// SMTPMailer sends plain-text mail over a single SMTP account. It is built
// once at process start from configuration and injected wherever mail is
// sent; nothing else in the codebase touches SMTP.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Send delivers one message and returns a message id for logging. The context
// bounds connection setup; an established session runs to completion.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) (string, error) {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)

	client, err := m.connect(ctx, addr)
	if err != nil {
		return "", err
	}
	defer client.Close()

	if m.Username != "" {
		auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
		if err := client.Auth(auth); err != nil {
			return "", fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.From); err != nil {
		return "", fmt.Errorf("smtp from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return "", fmt.Errorf("smtp rcpt: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("smtp data: %w", err)
	}

	messageID := uuid.NewString()
	msg := buildMessage(m.From, to, subject, messageID, body)
	if _, err := writer.Write([]byte(msg)); err != nil {
		return "", fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("smtp close: %w", err)
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return "", fmt.Errorf("smtp quit: %w", err)
	}
	return messageID, nil
}

func (m *SMTPMailer) connect(ctx context.Context, addr string) (*smtp.Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}

	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		cfg := &tls.Config{ServerName: m.Host, MinVersion: tls.VersionTLS12}
		if err := client.StartTLS(cfg); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	return client, nil
}

func buildMessage(from, to, subject, messageID, body string) string {
	lines := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"Message-Id: <" + messageID + "@forkfast>",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}
	return strings.Join(lines, "\r\n")
}
