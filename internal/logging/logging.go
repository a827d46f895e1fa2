// =============================================================================
// Store Sale Reconciliation - Logging
// =============================================================================
//
// Builds the zap logger shared by every component. Logs are JSON on stderr so
// that stdout stays reserved for the status channel; an optional log file
// receives the same entries.
//
// =============================================================================

package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production JSON logger at the given level.
//
// PARAMETERS:
//   - level: "debug", "info", "warn" or "error".
//   - file: An optional extra output path. Its directory is created.
//
// RETURNS:
//   - The logger. Call Sync before exiting.
//   - An error if the level is unknown or the file cannot be opened.
func New(level, file string) (*zap.Logger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = atomic
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, file)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
