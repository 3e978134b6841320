// Package logging provides structured logging utilities for agendarouter.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - Query anonymization, so raw user requests never reach the logs
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithBackend(slog.Default(), "openai")
//	logger.Info("intent classified",
//	    logging.Provider("reclaim"),
//	    logging.QueryHash(query))
//
// # Security Considerations
//
//   - Queries are hashed to prevent leaking what users asked while allowing correlation
//   - API keys are never logged directly, use SanitizeKey
package logging
