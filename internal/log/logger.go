// Package log holds the process-wide structured logger.
package log

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu          sync.RWMutex
	innerLogger = zap.NewNop()
)

// ParseLevel parses one of debug, info, warn or error
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel, nil
	case "", "info":
		return zap.InfoLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("parseLevel: unknown level %q", level)
	}
}

// New builds a JSON logger writing to stderr and installs it as the
// process-wide logger returned by Provide.
func New(level zapcore.Level) (*zap.Logger, error) {
	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	Set(logger)
	return logger, nil
}

// Set installs logger as the process-wide logger
func Set(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	innerLogger = logger
}

// Provide returns the process-wide logger. Until New or Set is called
// this is a no-op logger.
func Provide() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return innerLogger
}
