// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *zap.Logger named after themselves (see Component),
// so "reconcile", "retention" and "http" lines can be filtered apart.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Component("retention").Info("Sweep complete", zap.Int64("deleted", n))
package logging
