// Package bootstrap wires configuration and logging for the binaries.
package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"memkv/pkg/config"
	"memkv/pkg/dberrors"
)

// InitConfig loads the YAML config at path. If the file is not found,
// config.Default() is used.
func InitConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Info("config file not found, using default config", "path", path)
	}

	return config.Load(path)
}

// InitLogger installs a text or JSON slog logger writing to w as the default
// logger.
func InitLogger(cfg config.LoggerConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{AddSource: true, Level: level}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	logger.Debug("logger initialized", "level", level, "json", cfg.JSON)

	return logger, nil
}

// ParseLevel accepts slog level names in any case, with optional offsets
// such as "warn+2". An empty string means INFO.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", dberrors.ErrInvalidArgument, s)
	}
	return level, nil
}
