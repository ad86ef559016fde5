package sender

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/smartbrew/outreach/internal/config"
)

type Message struct {
	To       string
	From     string
	Cc       string // executive address copied for reply attribution
	Subject  string
	Body     string // plain text part
	HTMLBody string // optional HTML alternative
}

type Result struct {
	Success   bool
	MessageID string
	Error     error
}

type Sender interface {
	Send(ctx context.Context, msg Message) Result
	Name() string
}

func NewSender(cfg config.Delivery) (Sender, error) {
	switch cfg.Provider {
	case "", "smtp":
		return NewSMTPSender(cfg.SMTP, cfg.From), nil
	case "sendgrid":
		return NewSendGridSender(cfg.APIKey, cfg.From), nil
	case "resend":
		return NewResendSender(cfg.APIKey, cfg.From), nil
	}
	return nil, fmt.Errorf("unknown delivery provider: %s (smtp, sendgrid, resend)", cfg.Provider)
}

// ValidateEmail checks for injection characters and RFC 5322 compliance
func ValidateEmail(email string) error {
	if strings.ContainsAny(email, "\r\n,;") {
		return fmt.Errorf("email contains invalid characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}

func validateMessage(msg Message) error {
	if err := ValidateEmail(msg.From); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := ValidateEmail(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	if msg.Cc != "" {
		if err := ValidateEmail(msg.Cc); err != nil {
			return fmt.Errorf("invalid cc: %w", err)
		}
	}
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("subject contains invalid characters")
	}
	return nil
}
