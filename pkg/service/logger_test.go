package service

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/romashorodok/watch-together/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	for level, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	} {
		assert.Equal(t, want, logLevel(level), level)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.Log{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("room removed", slog.String("room", "AB12"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "room removed", record["msg"])
	assert.Equal(t, "AB12", record["room"])
	assert.Equal(t, "WARN", record["level"])
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.Log{Level: "debug", Format: "text"})

	logger.Debug("session closed", slog.String("peer", "p1"))
	assert.Contains(t, buf.String(), `msg="session closed" peer=p1`)
}
