package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskman-api/internal/config"
)

// Supported channel providers
const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

var (
	// ErrTransport wraps any failure to hand a message to the provider.
	// The job runner retries these.
	ErrTransport = errors.New("notification transport failed")

	// ErrUnknownProvider is returned by NewChannel for an unsupported provider.
	ErrUnknownProvider = errors.New("unknown notification provider")

	// ErrInvalidRecipient is returned when the recipient address is empty.
	ErrInvalidRecipient = errors.New("recipient address is required")

	// ErrInvalidAddress is returned when a sender or recipient address
	// cannot be parsed. Retrying cannot fix it.
	ErrInvalidAddress = errors.New("invalid email address")
)

// Channel delivers a single HTML email.
type Channel interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NewChannel builds the channel selected by cfg.Provider.
func NewChannel(cfg config.NotifyConfig, logger *slog.Logger) (Channel, error) {
	switch cfg.Provider {
	case ProviderSMTP:
		return NewSMTPChannel(cfg, logger)
	case ProviderSendGrid:
		return NewSendGridChannel(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
