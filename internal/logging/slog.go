package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation  = "operation"
	KeyTool       = "tool"
	KeyBackend    = "backend"
	KeyProvider   = "provider"
	KeyIntent     = "intent_type"
	KeySource     = "source"
	KeyReason     = "reason"
	KeyQueryHash  = "query_hash"
	KeyDuration   = "duration"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyFallback   = "fallback"
	KeyApproval   = "approval_required"
	KeyRemoteAddr = "remote_addr"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// New returns a text logger writing to stderr. Debug enables debug level.
// stdout stays free for the MCP stdio transport.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithBackend returns a logger with the classifier backend attribute set.
func WithBackend(logger *slog.Logger, backend string) *slog.Logger {
	return logger.With(slog.String(KeyBackend, backend))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Backend returns a slog attribute for the classifier backend.
func Backend(backend string) slog.Attr {
	return slog.String(KeyBackend, backend)
}

// Provider returns a slog attribute for the chosen provider.
func Provider(provider string) slog.Attr {
	return slog.String(KeyProvider, provider)
}

// Intent returns a slog attribute for the intent type.
func Intent(intentType string) slog.Attr {
	return slog.String(KeyIntent, intentType)
}

// Source returns a slog attribute for the classifier that answered.
func Source(source string) slog.Attr {
	return slog.String(KeySource, source)
}

// Reason returns a slog attribute for a failure reason.
func Reason(reason string) slog.Attr {
	return slog.String(KeyReason, reason)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeQuery returns a hashed representation of a query for logging.
// Equal queries hash equally, so log lines can be correlated without
// exposing what the user asked. Case and surrounding space are ignored.
func AnonymizeQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(q))
	return "query:" + hex.EncodeToString(hash[:8])
}

// QueryHash returns a slog attribute with the anonymized query.
//
// Usage:
//
//	logger.Info("intent classified", logging.QueryHash(query))
func QueryHash(query string) slog.Attr {
	return slog.String(KeyQueryHash, AnonymizeQuery(query))
}

// SanitizeKey returns a masked version of an API key for logging.
// It returns a length indicator without exposing any key content.
func SanitizeKey(key string) string {
	if key == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[key:%d chars]", len(key))
}
