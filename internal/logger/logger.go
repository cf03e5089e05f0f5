// Package logger holds the process-wide zap logger.
package logger

import "go.uber.org/zap"

// Log is no-op until Initialize is called.
var Log = zap.NewNop()

// Initialize builds a production logger with the given level and installs
// it into Log.
func Initialize(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = logger
	return nil
}
