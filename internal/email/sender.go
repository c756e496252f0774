// Package email delivers supplier-facing mail: the solicitation order that
// asks a supplier to quote a requirement.
package email

import (
	"context"

	"procurement_backend/platform/config"
)

// SolicitationData carries everything the solicitation template renders.
type SolicitationData struct {
	SupplierName string
	ContactName  string
	OrderNumber  string
	RequestCode  string
	BuyerName    string
	Terms        string
	Lines        []SolicitationLine
	ReplyToEmail string
}

// SolicitationLine is one requirement line listed in the order email.
type SolicitationLine struct {
	Description string
	Quantity    string
	Unit        string
	Kind        string
}

// Sender delivers procurement mail.
type Sender interface {
	SendSolicitationEmail(ctx context.Context, toEmail string, data SolicitationData) error
}

// NewSender returns the configured Sender implementation: SMTP when email
// delivery is enabled, a no-op otherwise.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}

// NoopSender is used when email delivery is disabled; sends succeed silently
// so the workflow can still be exercised in development.
type NoopSender struct{}

// SendSolicitationEmail does nothing.
func (NoopSender) SendSolicitationEmail(ctx context.Context, toEmail string, data SolicitationData) error {
	return nil
}
