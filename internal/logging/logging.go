// Package logging builds the zap logger shared by the CLI, the scenarios and the mock gateway.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FormatJSON selects the production (JSON) encoder.
const FormatJSON = "json"

// New builds a logger for level ("debug", "info", ...) and format. An empty or
// unparseable level falls back to info. Any format other than "json" uses the
// development console encoder with colored levels.
func New(level, format string) (*zap.Logger, error) {
	var zapConfig zap.Config
	if strings.EqualFold(format, FormatJSON) {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapConfig.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// ParseLevel parses a level name, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	if level == "" {
		return zapcore.InfoLevel
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
