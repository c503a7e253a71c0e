// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// The level is held in a zap.AtomicLevel so the persisted debug-mode flag
// can raise or lower verbosity at runtime without rebuilding the logger.
// While debug mode is off, debug entries are dropped; warn and error
// entries are always written.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.SetDebug(true)
//	logger.Debug("classified batch", zap.Strings("tags", tags))
//	logger.Log("warn", "player element missing", map[string]interface{}{"tab": 7})
package logging
