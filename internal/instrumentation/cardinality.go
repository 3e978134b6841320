package instrumentation

import (
	"errors"
	"slices"

	"github.com/teemow/agendarouter/internal/intent"
)

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// Remote classifiers may return intent types outside the known set. Recording
// them verbatim lets a misbehaving model create unbounded label values.

// IntentOther replaces unknown intent types in metric labels.
const IntentOther = "other"

// NormalizeIntentType returns intentType if it is a known intent type (or
// detailed is set), and IntentOther otherwise.
//
// Example:
//
//	NormalizeIntentType("create", false)      // "create"
//	NormalizeIntentType("summarize", false)   // "other"
//	NormalizeIntentType("summarize", true)    // "summarize"
func NormalizeIntentType(intentType string, detailed bool) string {
	if intentType == IntentNone || detailed || slices.Contains(intent.KnownIntentTypes, intentType) {
		return intentType
	}
	return IntentOther
}

// BackendStatus maps a backend attempt error to a status label.
//
// Example:
//
//	BackendStatus(nil)                          // "success"
//	BackendStatus(intent.ErrBackendTimeout)     // "timeout"
//	BackendStatus(errors.New("dial tcp: ..."))  // "unreachable"
func BackendStatus(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, intent.ErrBackendTimeout):
		return intent.ReasonTimeout
	case errors.Is(err, intent.ErrMalformedResponse):
		return intent.ReasonMalformed
	default:
		return intent.ReasonUnreachable
	}
}
