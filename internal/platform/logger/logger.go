package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/phrazzld/taskman-api/internal/config"
)

type contextKey struct{}

// LoggerConfig holds the subset of settings that shape the root logger.
type LoggerConfig struct {
	Level string

	// FilePath adds a rotated file sink next to stdout when non-empty.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ConfigFromServer extracts logger settings from the server configuration.
func ConfigFromServer(cfg config.ServerConfig) LoggerConfig {
	return LoggerConfig{
		Level:      cfg.LogLevel,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogFileMaxSizeMB,
		MaxBackups: cfg.LogFileBackups,
		MaxAgeDays: cfg.LogFileMaxAgeDay,
	}
}

// Setup creates the application's JSON logger, installs it as the slog
// default and returns it together with a closer for any file sink. The
// closer is never nil.
func Setup(cfg LoggerConfig) (*slog.Logger, io.Closer, error) {
	return setup(cfg, os.Stdout)
}

func setup(cfg LoggerConfig, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	var (
		out    = stdout
		closer io.Closer = nopCloser{}
	)

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, nil, err
		}
		rotated := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, rotated)
		closer = rotated
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, closer, nil
}

// ParseLevel maps a configured level name to a slog.Level, case-insensitively.
// Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithLogger returns a copy of ctx carrying the given logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOrDefault(ctx, slog.Default())
}

// FromContextOrDefault returns the logger stored in ctx, or fallback when
// the context carries none.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
