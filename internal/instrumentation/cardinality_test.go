package instrumentation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/agendarouter/internal/intent"
)

func TestNormalizeIntentType(t *testing.T) {
	tests := []struct {
		intentType string
		detailed   bool
		expected   string
	}{
		{"create", false, "create"},
		{"reschedule", false, "reschedule"},
		{"query", false, "query"},
		{"summarize", false, IntentOther},
		{"summarize", true, "summarize"},
		{IntentNone, false, IntentNone},
		{"", false, IntentOther},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.intentType, tt.detailed), func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeIntentType(tt.intentType, tt.detailed))
		})
	}
}

func TestBackendStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"success", nil, StatusSuccess},
		{"timeout", fmt.Errorf("wrapped: %w", intent.ErrBackendTimeout), intent.ReasonTimeout},
		{"malformed", intent.MalformedError("no provider"), intent.ReasonMalformed},
		{"transport", errors.New("dial tcp: connection refused"), intent.ReasonUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BackendStatus(tt.err))
		})
	}
}
