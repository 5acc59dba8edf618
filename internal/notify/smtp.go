package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 30 * time.Second

// SMTPChannel sends mail through an SMTP relay, using STARTTLS unless
// SMTPInsecure is set.
// A new connection is dialed per message.
type SMTPChannel struct {
	from   string
	client *mail.Client
	logger *slog.Logger
}

var _ Channel = (*SMTPChannel)(nil)

// NewSMTPChannel creates an SMTP channel. Authentication is only configured
// when a username is set.
func NewSMTPChannel(cfg config.NotifyConfig, log *slog.Logger) (*SMTPChannel, error) {
	if log == nil {
		log = slog.Default()
	}

	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	tlsPolicy := mail.TLSMandatory
	if cfg.SMTPInsecure {
		tlsPolicy = mail.NoTLS
		log.Warn("smtp STARTTLS disabled")
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(tlsPolicy),
		mail.WithTimeout(defaultSMTPTimeout),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPChannel{
		from:   cfg.From,
		client: client,
		logger: log.With(slog.String("component", "smtp_channel")),
	}, nil
}

// Send implements Channel.
func (c *SMTPChannel) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return ErrInvalidRecipient
	}

	msg := mail.NewMsg()
	if err := msg.From(c.from); err != nil {
		return fmt.Errorf("%w: sender: %w", ErrInvalidAddress, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: recipient: %w", ErrInvalidAddress, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := c.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: smtp: %w", ErrTransport, err)
	}

	logger.FromContextOrDefault(ctx, c.logger).Debug("email sent",
		slog.String("provider", ProviderSMTP),
		slog.String("subject", subject))
	return nil
}
