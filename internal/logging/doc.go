// Package logging provides structured logging utilities for the mahakaal backend.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "agent.run")
//	logger.Info("round finished",
//	    logging.Round(2),
//	    logging.Status(logging.StatusSuccess))
//
// Tokens are never logged directly; use SanitizeToken.
package logging
