package logging

import (
	"errors"
	"strings"
	"testing"
)

func TestWithHelpers(t *testing.T) {
	logger := Discard()
	if WithOperation(logger, "classify") == nil {
		t.Error("WithOperation returned nil")
	}
	if WithTool(logger, "classify_intent") == nil {
		t.Error("WithTool returned nil")
	}
	if WithBackend(logger, "openai") == nil {
		t.Error("WithBackend returned nil")
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		gotKey  string
		gotText string
	}{
		{"operation", KeyOperation, "classify", Operation("classify").Key, Operation("classify").Value.String()},
		{"tool", KeyTool, "classify_intent", Tool("classify_intent").Key, Tool("classify_intent").Value.String()},
		{"backend", KeyBackend, "gemini", Backend("gemini").Key, Backend("gemini").Value.String()},
		{"provider", KeyProvider, "nylas", Provider("nylas").Key, Provider("nylas").Value.String()},
		{"intent", KeyIntent, "schedule", Intent("schedule").Key, Intent("schedule").Value.String()},
		{"source", KeySource, "heuristic", Source("heuristic").Key, Source("heuristic").Value.String()},
		{"reason", KeyReason, "timeout", Reason("timeout").Key, Reason("timeout").Value.String()},
		{"status", KeyStatus, StatusSuccess, Status(StatusSuccess).Key, Status(StatusSuccess).Value.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.gotKey != tt.key {
				t.Errorf("key = %q, want %q", tt.gotKey, tt.key)
			}
			if tt.gotText != tt.value {
				t.Errorf("value = %q, want %q", tt.gotText, tt.value)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// Empty Group has empty key
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeQuery(t *testing.T) {
	tests := []struct {
		query    string
		wantLen  int
		hasValue bool
	}{
		{"Create a task to review the budget", 22, true}, // "query:" + 16 hex chars
		{"Schedule a meeting tomorrow at 2pm", 22, true},
		{"", 0, false},
		{"   ", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			result := AnonymizeQuery(tt.query)
			if !tt.hasValue {
				if result != "" {
					t.Errorf("AnonymizeQuery(%q) = %q, want empty string", tt.query, result)
				}
				return
			}
			if len(result) != tt.wantLen {
				t.Errorf("AnonymizeQuery(%q) length = %d, want %d", tt.query, len(result), tt.wantLen)
			}
			if !strings.HasPrefix(result, "query:") {
				t.Errorf("AnonymizeQuery(%q) should start with 'query:', got %q", tt.query, result)
			}
			if strings.Contains(result, "task") || strings.Contains(result, "meeting") {
				t.Errorf("AnonymizeQuery(%q) leaks query text: %q", tt.query, result)
			}
		})
	}

	if AnonymizeQuery("Book a call") != AnonymizeQuery("  book a CALL ") {
		t.Error("AnonymizeQuery should ignore case and surrounding space")
	}
	if AnonymizeQuery("Book a call") == AnonymizeQuery("Book a room") {
		t.Error("Different queries should produce different hashes")
	}
}

func TestQueryHash(t *testing.T) {
	attr := QueryHash("Add a todo")
	if attr.Key != KeyQueryHash {
		t.Errorf("QueryHash key = %q, want %q", attr.Key, KeyQueryHash)
	}
	if len(attr.Value.String()) != 22 {
		t.Errorf("QueryHash value length = %d, want 22", len(attr.Value.String()))
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"", "<empty>"},
		{"sk-123", "[key:6 chars]"},
		{"a_very_long_api_key_value", "[key:25 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeKey(tt.key); got != tt.expected {
				t.Errorf("SanitizeKey(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestStatusConstants(t *testing.T) {
	if StatusSuccess != "success" {
		t.Errorf("StatusSuccess = %q, want %q", StatusSuccess, "success")
	}
	if StatusError != "error" {
		t.Errorf("StatusError = %q, want %q", StatusError, "error")
	}
}
