// Package logging builds the zap loggers used by the CLI and pipeline.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects the level and encoding of a logger.
type Config struct {
	Level  string `yaml:"level" json:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" default:"console" validate:"oneof=console json"`
}

// New builds a logger: the development preset for console output and the
// production preset for JSON.
func New(c Config) (*zap.Logger, error) {
	var cfg zap.Config
	switch c.Format {
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	case FormatConsole, "":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}

	if c.Level != "" {
		level, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	return cfg.Build()
}

// NewDevLogger returns a debug-level console logger.
func NewDevLogger() *zap.Logger {
	logger, err := New(Config{Level: "debug", Format: FormatConsole})
	if err != nil {
		panic(err)
	}
	return logger
}
