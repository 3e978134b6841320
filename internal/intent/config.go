package intent

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// FallbackMode selects what the router does when the remote classifier fails.
type FallbackMode string

const (
	// FallbackHeuristic runs the keyword classifier once after a backend failure.
	FallbackHeuristic FallbackMode = "heuristic"
	// FallbackNone surfaces the backend failure as a ClassificationError.
	FallbackNone FallbackMode = "none"
)

// Router defaults.
const (
	DefaultTimeout              = 10 * time.Second
	DefaultMaxRetries           = 2
	DefaultRetryInitialInterval = 200 * time.Millisecond
)

// OperationKeywords maps an intent type to the words that signal it.
type OperationKeywords struct {
	Intent   string   `mapstructure:"intent" json:"intent"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
}

// Vocabulary holds the keyword tables used by the heuristic classifier.
// Terms are matched on whole words, case-insensitively. Multi-word terms
// match consecutive words.
type Vocabulary struct {
	TaskTerms          []string            `mapstructure:"task_terms" json:"task_terms"`
	CalendarTerms      []string            `mapstructure:"calendar_terms" json:"calendar_terms"`
	CollaborativeTerms []string            `mapstructure:"collaborative_terms" json:"collaborative_terms"`
	BulkTerms          []string            `mapstructure:"bulk_terms" json:"bulk_terms"`
	Operations         []OperationKeywords `mapstructure:"operations" json:"operations"`
}

// DefaultVocabulary returns the built-in keyword tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		TaskTerms: []string{
			"task", "tasks", "todo", "todos", "to-do", "to-dos", "reminder", "reminders",
			"remind me",
		},
		CalendarTerms: []string{
			"meeting", "meetings", "schedule", "scheduled", "reschedule",
			"appointment", "appointments", "calendar", "event", "events",
			"call", "conference", "standup", "stand-up", "interview",
			"1:1", "one-on-one", "all-hands", "available", "availability",
			"am i free", "are we free",
		},
		CollaborativeTerms: []string{
			"team", "standup", "stand-up", "all-hands", "interview", "1:1",
			"one-on-one", "sync with", "review with", "meet with", "demo",
			"workshop", "staff meeting", "everyone", "attendees",
		},
		BulkTerms: []string{
			"all tasks", "all my tasks", "every task", "all of them",
			"multiple tasks", "many tasks", "everything", "all the",
			"all events", "all meetings", "all my meetings",
		},
		Operations: []OperationKeywords{
			{Intent: IntentReschedule, Keywords: []string{"reschedule", "rescheduling", "postpone", "move", "push back"}},
			{Intent: IntentCancel, Keywords: []string{"cancel", "call off"}},
			{Intent: IntentDelete, Keywords: []string{"delete", "remove", "erase", "clear", "drop"}},
			{Intent: IntentComplete, Keywords: []string{"complete", "completed", "finish", "finished", "done", "check off"}},
			{Intent: IntentUpdate, Keywords: []string{"update", "change", "edit", "rename", "modify", "adjust"}},
			{Intent: IntentQuery, Keywords: []string{
				"am i free", "are we free", "what's", "what", "show", "list", "find",
				"check", "when", "do i have", "is there", "how many", "search",
			}},
			{Intent: IntentSchedule, Keywords: []string{"schedule", "book", "set up", "arrange", "plan", "block"}},
			{Intent: IntentCreate, Keywords: []string{"create", "add", "new", "make", "need", "remind me", "log"}},
		},
	}
}

// Config is the routing configuration. It is copied into the Router at
// construction and never changed afterwards.
type Config struct {
	// TaskProvider handles discrete actionable items.
	TaskProvider string
	// CalendarProvider handles time-bound coordination.
	CalendarProvider string
	// ExtraProviders are reserved identifiers remote classifiers may return.
	ExtraProviders []string
	// DefaultProvider is used by the heuristic when no vocabulary matches,
	// and is what remote classifiers are told to pick in that case. Empty
	// means such queries fail with a ClassificationError.
	DefaultProvider string

	Vocabulary Vocabulary

	// Timeout bounds the whole remote classification stage, retries included.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int
	// RetryInitialInterval is the first backoff delay between attempts.
	RetryInitialInterval time.Duration
	Fallback             FallbackMode
}

// DefaultConfig returns a Config with the built-in providers and vocabulary.
func DefaultConfig() Config {
	return Config{
		TaskProvider:         ProviderReclaim,
		CalendarProvider:     ProviderNylas,
		DefaultProvider:      ProviderReclaim,
		Vocabulary:           DefaultVocabulary(),
		Timeout:              DefaultTimeout,
		MaxRetries:           DefaultMaxRetries,
		RetryInitialInterval: DefaultRetryInitialInterval,
		Fallback:             FallbackHeuristic,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if strings.TrimSpace(c.TaskProvider) == "" {
		return fmt.Errorf("task provider is required")
	}
	if strings.TrimSpace(c.CalendarProvider) == "" {
		return fmt.Errorf("calendar provider is required")
	}
	seen := make(map[string]bool)
	for _, p := range c.Providers() {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("provider identifiers must not be empty")
		}
		if seen[p] {
			return fmt.Errorf("duplicate provider %q", p)
		}
		seen[p] = true
	}
	if c.DefaultProvider != "" && !seen[c.DefaultProvider] {
		return fmt.Errorf("default provider %q is not a configured provider", c.DefaultProvider)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.RetryInitialInterval < 0 {
		return fmt.Errorf("retry interval must not be negative, got %s", c.RetryInitialInterval)
	}
	switch c.Fallback {
	case FallbackHeuristic, FallbackNone:
	default:
		return fmt.Errorf("invalid fallback mode %q, must be one of: heuristic, none", c.Fallback)
	}
	if len(c.Vocabulary.TaskTerms) == 0 || len(c.Vocabulary.CalendarTerms) == 0 {
		return fmt.Errorf("vocabulary needs at least one task term and one calendar term")
	}
	return nil
}

// Providers returns the closed set of provider identifiers.
func (c Config) Providers() []string {
	out := make([]string, 0, 2+len(c.ExtraProviders))
	out = append(out, c.TaskProvider, c.CalendarProvider)
	return append(out, c.ExtraProviders...)
}

// IsKnownProvider reports whether p belongs to the configured set.
func (c Config) IsKnownProvider(p string) bool {
	return slices.Contains(c.Providers(), p)
}

// DomainFor returns the domain served by a provider. Extra providers serve
// DomainOther.
func (c Config) DomainFor(provider string) string {
	switch provider {
	case c.TaskProvider:
		return DomainTask
	case c.CalendarProvider:
		return DomainCalendar
	default:
		return DomainOther
	}
}

// Domains returns the domains a decision may name. DomainOther is only
// offered when extra providers are configured.
func (c Config) Domains() []string {
	if len(c.ExtraProviders) == 0 {
		return []string{DomainTask, DomainCalendar}
	}
	return []string{DomainTask, DomainCalendar, DomainOther}
}

// resolveDomain picks the domain of a decision routed to provider. The task
// and calendar providers always serve their own domain. Extra providers keep
// the claimed domain when it is one of Domains.
func (c Config) resolveDomain(provider, claimed string) string {
	if provider == c.TaskProvider || provider == c.CalendarProvider {
		return c.DomainFor(provider)
	}
	if slices.Contains(c.Domains(), claimed) {
		return claimed
	}
	return c.DomainFor(provider)
}

func (c Config) clone() Config {
	out := c
	out.ExtraProviders = slices.Clone(c.ExtraProviders)
	v := c.Vocabulary
	out.Vocabulary = Vocabulary{
		TaskTerms:          slices.Clone(v.TaskTerms),
		CalendarTerms:      slices.Clone(v.CalendarTerms),
		CollaborativeTerms: slices.Clone(v.CollaborativeTerms),
		BulkTerms:          slices.Clone(v.BulkTerms),
		Operations:         make([]OperationKeywords, len(v.Operations)),
	}
	for i, op := range v.Operations {
		out.Vocabulary.Operations[i] = OperationKeywords{Intent: op.Intent, Keywords: slices.Clone(op.Keywords)}
	}
	return out
}
