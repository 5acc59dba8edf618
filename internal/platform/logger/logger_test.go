package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskman-api/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetup_WritesJSONAtConfiguredLevel(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var buf bytes.Buffer
	l, closer, err := setup(LoggerConfig{Level: "warn"}, &buf)
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	l.Info("dropped")
	l.Warn("kept", slog.String("component", "test"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "test", entry["component"])
	assert.Same(t, l, slog.Default())
}

func TestSetup_FileSink(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	var buf bytes.Buffer
	l, closer, err := setup(LoggerConfig{Level: "info", FilePath: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	l.Info("to both sinks")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both sinks")
	assert.Contains(t, buf.String(), "to both sinks")
}

func TestConfigFromServer(t *testing.T) {
	cfg := ConfigFromServer(config.ServerConfig{
		LogLevel:         "debug",
		LogFile:          "/tmp/app.log",
		LogFileMaxSizeMB: 10,
		LogFileBackups:   2,
		LogFileMaxAgeDay: 7,
	})
	assert.Equal(t, LoggerConfig{
		Level:      "debug",
		FilePath:   "/tmp/app.log",
		MaxSizeMB:  10,
		MaxBackups: 2,
		MaxAgeDays: 7,
	}, cfg)
}

func TestContextLogger(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	scoped := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))

	ctx := WithLogger(context.Background(), scoped)
	assert.Same(t, scoped, FromContextOrDefault(ctx, fallback))
	assert.Same(t, scoped, FromContext(ctx))
	assert.Same(t, slog.Default(), FromContextOrDefault(context.Background(), nil))
}
