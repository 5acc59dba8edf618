package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// DefaultSendGridEndpoint is the v3 mail send API.
const DefaultSendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

const (
	maxErrorBodyBytes   = 1024
	sendGridSendTimeout = 30 * time.Second
)

// SendGridChannel delivers messages through the SendGrid v3 mail send API.
type SendGridChannel struct {
	from     *mail.Email
	client   *sendgrid.Client
	endpoint string
	timeout  time.Duration
	logger   *slog.Logger
}

var _ Channel = (*SendGridChannel)(nil)

// NewSendGridChannel creates a SendGrid channel. An empty SendGridEndpoint
// uses the public API.
func NewSendGridChannel(cfg config.NotifyConfig, log *slog.Logger) (*SendGridChannel, error) {
	if cfg.SendGridAPIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	endpoint := cfg.SendGridEndpoint
	if endpoint == "" {
		endpoint = DefaultSendGridEndpoint
	}

	client := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	client.BaseURL = endpoint

	return &SendGridChannel{
		from:     mail.NewEmail("", cfg.From),
		client:   client,
		endpoint: endpoint,
		timeout:  sendGridSendTimeout,
		logger:   log.With(slog.String("component", "sendgrid_channel")),
	}, nil
}

// Send implements Channel. Any non-2xx response is a transport error.
func (c *SendGridChannel) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return ErrInvalidRecipient
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg := mail.NewSingleEmail(c.from, subject, mail.NewEmail("", to), "", htmlBody)
	resp, err := c.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := strings.TrimSpace(resp.Body)
		if len(body) > maxErrorBodyBytes {
			body = body[:maxErrorBodyBytes]
		}
		return fmt.Errorf("%w: sendgrid returned status %d: %s", ErrTransport, resp.StatusCode, body)
	}

	logger.FromContextOrDefault(ctx, c.logger).Debug("email sent",
		slog.String("provider", ProviderSendGrid),
		slog.Int("status", resp.StatusCode))
	return nil
}
