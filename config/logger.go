package config

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *zap.Logger

// InitLogger builds the process logger at the given level. Deployed builds
// (GIN_MODE=release) log structured JSON; local runs get the readable
// development encoder.
func InitLogger(logLevelStr string) (*zap.Logger, error) {
	zapConfig := zap.NewDevelopmentConfig()
	if os.Getenv("GIN_MODE") == "release" {
		zapConfig = zap.NewProductionConfig()
	}

	var level zapcore.Level
	switch strings.ToLower(logLevelStr) {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "warn", "warning":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	default:
		level = zap.InfoLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	// Kept for Cleanup on shutdown
	globalLogger = logger

	return logger, nil
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if globalLogger != nil {
		globalLogger.Sync()
	}
}
