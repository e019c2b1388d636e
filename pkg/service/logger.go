package service

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/romashorodok/watch-together/pkg/config"
	"go.uber.org/fx"
)

var loggerWriter io.Writer = os.Stdout

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func newLogger(w io.Writer, cfg config.Log) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevel(cfg.Level),
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func logger(cfg *config.Config) *slog.Logger {
	return newLogger(loggerWriter, cfg.Log)
}

var LoggerModule = fx.Module("logger", fx.Provide(
	logger,
))
