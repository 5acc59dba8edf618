package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// NewClient parses a redis:// URL, connects and verifies the connection with
// PING. The caller owns the returned client and must Close it.
func NewClient(ctx context.Context, url string, logger *slog.Logger) (*goredis.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	return client, nil
}
