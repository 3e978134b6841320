package intent

import (
	"fmt"
	"strings"
	"time"
)

// Default provider identifiers.
const (
	// ProviderReclaim is the task-management provider.
	ProviderReclaim = "reclaim"
	// ProviderNylas is the calendar-management provider.
	ProviderNylas = "nylas"
)

// Domains a request can belong to.
const (
	DomainTask     = "task"
	DomainCalendar = "calendar"
	// DomainOther is reported for providers outside the task and calendar pair.
	DomainOther = "other"
)

// Known intent types. The set is open: remote classifiers may return others.
const (
	IntentCreate     = "create"
	IntentUpdate     = "update"
	IntentComplete   = "complete"
	IntentDelete     = "delete"
	IntentCancel     = "cancel"
	IntentSchedule   = "schedule"
	IntentReschedule = "reschedule"
	IntentQuery      = "query"
)

// KnownIntentTypes lists the intent types the keyword classifier can produce.
var KnownIntentTypes = []string{
	IntentCreate,
	IntentUpdate,
	IntentComplete,
	IntentDelete,
	IntentCancel,
	IntentSchedule,
	IntentReschedule,
	IntentQuery,
}

// Classifier source names.
const (
	SourceHeuristic = "heuristic"
	SourceOpenAI    = "openai"
	SourceGemini    = "gemini"
)

// Accepted layouts for Context.CurrentDate and Context.CurrentTime.
const (
	DateLayout       = "2006-01-02"
	TimeLayout       = "15:04:05"
	TimeLayoutMinute = "15:04"
)

// Context is the situational information supplied with a query.
type Context struct {
	Timezone    string `json:"timezone"`
	CurrentDate string `json:"current_date"`
	CurrentTime string `json:"current_time"`
}

// NewContext builds a Context for the given clock reading in the named
// timezone. An empty timezone means UTC.
func NewContext(timezone string, now time.Time) (Context, error) {
	if strings.TrimSpace(timezone) == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Context{}, &InvalidInputError{Field: "timezone", Reason: fmt.Sprintf("unknown timezone %q", timezone)}
	}
	local := now.In(loc)
	return Context{
		Timezone:    timezone,
		CurrentDate: local.Format(DateLayout),
		CurrentTime: local.Format(TimeLayout),
	}, nil
}

// Location loads the context's timezone.
func (c Context) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return nil, &InvalidInputError{Field: "timezone", Reason: "timezone is required"}
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, &InvalidInputError{Field: "timezone", Reason: fmt.Sprintf("unknown timezone %q", c.Timezone)}
	}
	return loc, nil
}

// Now returns the context's date and time as an instant in its timezone.
func (c Context) Now() (time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	if strings.TrimSpace(c.CurrentDate) == "" {
		return time.Time{}, &InvalidInputError{Field: "current_date", Reason: "current date is required"}
	}
	if strings.TrimSpace(c.CurrentTime) == "" {
		return time.Time{}, &InvalidInputError{Field: "current_time", Reason: "current time is required"}
	}
	date, err := time.ParseInLocation(DateLayout, c.CurrentDate, loc)
	if err != nil {
		return time.Time{}, &InvalidInputError{Field: "current_date", Reason: fmt.Sprintf("expected YYYY-MM-DD, got %q", c.CurrentDate)}
	}
	clock, err := time.Parse(TimeLayout, c.CurrentTime)
	if err != nil {
		clock, err = time.Parse(TimeLayoutMinute, c.CurrentTime)
		if err != nil {
			return time.Time{}, &InvalidInputError{Field: "current_time", Reason: fmt.Sprintf("expected HH:MM:SS, got %q", c.CurrentTime)}
		}
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, loc), nil
}

// Validate checks that the context is complete and parseable.
func (c Context) Validate() error {
	_, err := c.Now()
	return err
}

// Request is what a Classifier receives for one classification.
type Request struct {
	Query   string
	Context Context
	// Note is optional caller-supplied context about the request.
	Note string
}

// TimeInfo is time-related information extracted from a query.
type TimeInfo struct {
	HasSpecificTime bool `json:"has_specific_time"`
	DurationMinutes int  `json:"duration_minutes,omitempty"`
}

// Decision is the raw output of a Classifier, before the router checks it.
type Decision struct {
	Provider       string   `json:"provider"`
	Domain         string   `json:"domain,omitempty"`
	IntentType     string   `json:"intent_type"`
	Confidence     float64  `json:"confidence,omitempty"`
	Reasoning      string   `json:"reasoning,omitempty"`
	InvolvesOthers bool     `json:"involves_others"`
	Time           TimeInfo `json:"extracted_time"`
}

// Result is the router's answer for one query.
type Result struct {
	Provider         string   `json:"provider"`
	IntentType       string   `json:"intent_type"`
	Domain           string   `json:"domain"`
	Reasoning        string   `json:"reasoning"`
	Confidence       float64  `json:"confidence"`
	InvolvesOthers   bool     `json:"involves_others"`
	Time             TimeInfo `json:"extracted_time"`
	ApprovalRequired bool     `json:"approval_required"`
	Warning          string   `json:"warning,omitempty"`
	Source           string   `json:"source"`
	Fallback         bool     `json:"fallback"`
}

// ResolveContext builds a Context from caller-supplied fields. Missing fields
// are filled from now in the given timezone (UTC when empty). Supplied fields
// are kept verbatim and checked by Validate.
func ResolveContext(timezone, currentDate, currentTime string, now time.Time) (Context, error) {
	base, err := NewContext(timezone, now)
	if err != nil {
		return Context{}, err
	}
	if s := strings.TrimSpace(currentDate); s != "" {
		base.CurrentDate = s
	}
	if s := strings.TrimSpace(currentTime); s != "" {
		base.CurrentTime = s
	}
	if err := base.Validate(); err != nil {
		return Context{}, err
	}
	return base, nil
}
