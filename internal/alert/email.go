package alert

import (
	"context"
	"fmt"
	"net/smtp"
	"os/exec"
	"strings"
	"time"

	"docstack/internal/config"
)

// EmailSink delivers an event by mail. Mechanisms are tried in a fixed
// preference order, first success wins: configured SMTP relay, then a local
// sendmail binary.
type EmailSink struct {
	cfg config.EmailConfig

	// sendSMTP and lookSendmail are replaceable for tests
	sendSMTP     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	lookSendmail func() (string, error)
}

// NewEmailSink creates a sink from the alerting email configuration
func NewEmailSink(cfg config.EmailConfig) *EmailSink {
	return &EmailSink{
		cfg:          cfg,
		sendSMTP:     smtp.SendMail,
		lookSendmail: func() (string, error) { return exec.LookPath("sendmail") },
	}
}

// Name identifies the sink in logs and error messages
func (s *EmailSink) Name() string {
	return "email " + s.cfg.To
}

// Send delivers the event
func (s *EmailSink) Send(ctx context.Context, event Event) error {
	if s.cfg.To == "" {
		return fmt.Errorf("no recipient configured")
	}

	msg := s.message(event)

	var errs []string
	if s.cfg.SMTPHost != "" {
		if err := s.viaSMTP(msg); err == nil {
			return nil
		} else {
			errs = append(errs, fmt.Sprintf("smtp: %v", err))
		}
	}
	if err := s.viaSendmail(ctx, msg); err == nil {
		return nil
	} else {
		errs = append(errs, fmt.Sprintf("sendmail: %v", err))
	}

	return fmt.Errorf("all mail mechanisms failed: %s", strings.Join(errs, "; "))
}

func (s *EmailSink) viaSMTP(msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}
	return s.sendSMTP(addr, auth, s.from(), []string{s.cfg.To}, msg)
}

func (s *EmailSink) viaSendmail(ctx context.Context, msg []byte) error {
	path, err := s.lookSendmail()
	if err != nil {
		return fmt.Errorf("sendmail not installed")
	}
	cmd := exec.CommandContext(ctx, path, "-t")
	cmd.Stdin = strings.NewReader(string(msg))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%v: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (s *EmailSink) from() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return "docstack@localhost"
}

func (s *EmailSink) message(event Event) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from())
	fmt.Fprintf(&b, "To: %s\r\n", s.cfg.To)
	fmt.Fprintf(&b, "Subject: [docstack %s] %s\r\n", event.Severity, event.Title)
	fmt.Fprintf(&b, "Date: %s\r\n", event.Timestamp.Format(time.RFC1123Z))
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Host: %s\r\n\r\n%s\r\n", event.Host, event.Body)
	return []byte(b.String())
}
