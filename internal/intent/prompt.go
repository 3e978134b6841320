package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DecisionToolName is the function name remote classifiers are forced to call.
const DecisionToolName = "analyze_intent"

// DecisionToolDescription describes the decision function to the model.
const DecisionToolDescription = "Classify the request and detect if it involves other people."

// SystemPrompt returns the instructions sent to remote classifiers. Provider
// names come from cfg, so renamed providers keep the same rules. The last
// rule names the default provider, or the task provider when none is set.
func SystemPrompt(cfg Config) string {
	otherwise := cfg.DefaultProvider
	if otherwise == "" {
		otherwise = cfg.TaskProvider
	}
	var b strings.Builder
	fmt.Fprintf(&b, `You are a request classifier for a productivity system.

CLASSIFICATION RULES:
RULE 1: If the query contains the word "task" (or "todo", "to-do", "reminder") -> provider=%[1]q, domain="task".
RULE 2: Otherwise, if it mentions meetings, appointments or the calendar, OR names a specific time (like "at 3pm", "tomorrow morning", "Monday at 10am") -> provider=%[2]q, domain="calendar".
RULE 3: Otherwise -> provider=%[5]q, domain=%[6]q.

CRITICAL: The word "task" ALWAYS means %[1]s. No exceptions.

OPERATION (intent_type): the first decisive verb of the request. One of: %[3]s.
Questions about availability or existing items ("am I free", "what's on", "show", "list") are "query".

PARTICIPANT DETECTION for involves_others:
Set involves_others=true if the request clearly involves multiple people:
- Event types that imply groups: team standup, team meeting, all-hands, staff meeting
- Named participants: "with John", "and Sarah", "the marketing team"
- Collaborative terms: interview, review with, sync with, 1:1, one-on-one, demo, workshop
Set involves_others=false for solo activities such as personal appointments, deep work or focus time.

TIME RULES:
- "at 3pm", "tomorrow at 10am", "Monday morning" = specific time -> calendar event
- "by Friday", "end of week", "next month" = due date -> task
- "tomorrow morning" = specific time (defaults to 9am) -> calendar event

You must call %[4]s for every request.`,
		cfg.TaskProvider, cfg.CalendarProvider, strings.Join(KnownIntentTypes, ", "), DecisionToolName,
		otherwise, cfg.DomainFor(otherwise))
	return b.String()
}

// UserPrompt renders the query and its context for remote classifiers.
func UserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current user time: %s\n", orUnknown(req.Context.CurrentTime))
	fmt.Fprintf(&b, "User timezone: %s\n", orUnknown(req.Context.Timezone))
	fmt.Fprintf(&b, "Current date: %s\n", orUnknown(req.Context.CurrentDate))
	if note := strings.TrimSpace(req.Note); note != "" {
		fmt.Fprintf(&b, "Additional context: %s\n", note)
	}
	fmt.Fprintf(&b, "\nUser request: %s", req.Query)
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

// DecisionSchema returns the JSON schema of a decision. It is strict: every
// property is required and no others are allowed.
func DecisionSchema(cfg Config) map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"provider": map[string]interface{}{
				"type": "string",
				"enum": cfg.Providers(),
			},
			"domain": map[string]interface{}{
				"type": "string",
				"enum": cfg.Domains(),
			},
			"intent_type": map[string]interface{}{
				"type": "string",
				"enum": KnownIntentTypes,
			},
			"involves_others": map[string]interface{}{
				"type":        "boolean",
				"description": "True if the event or task involves other people (team standup, meeting with someone, group activity). False for solo activities.",
			},
			"confidence": map[string]interface{}{
				"type":        "number",
				"description": "Confidence in the routing decision, from 0 to 1.",
			},
			"reasoning": map[string]interface{}{
				"type":        "string",
				"description": "One sentence explaining the decision.",
			},
		},
		"required": []string{"provider", "domain", "intent_type", "involves_others", "confidence", "reasoning"},
	}
}

type wireDecision struct {
	Provider       string    `json:"provider"`
	Domain         string    `json:"domain"`
	IntentType     string    `json:"intent_type"`
	Operation      string    `json:"operation"`
	Confidence     *float64  `json:"confidence"`
	Reasoning      string    `json:"reasoning"`
	InvolvesOthers bool      `json:"involves_others"`
	Time           *TimeInfo `json:"extracted_time"`
	Text           string    `json:"text"`
}

// DecodeDecision parses a remote classifier's answer. Output that is almost
// JSON (code fences, trailing commas, single quotes) is repaired first. A
// decision wrapped in a "text" field is unwrapped. The provider must belong
// to cfg's closed set.
//
// The older wire shape, where intent_type carried the domain and operation
// carried the intent type, is accepted as well.
func DecodeDecision(raw string, cfg Config) (Decision, error) {
	w, err := decodeWire(raw)
	if err != nil {
		return Decision{}, err
	}
	if w.Provider == "" && w.Text != "" {
		if w, err = decodeWire(w.Text); err != nil {
			return Decision{}, err
		}
	}

	provider := strings.ToLower(strings.TrimSpace(w.Provider))
	if provider == "" {
		return Decision{}, MalformedError("decision has no provider")
	}
	if !cfg.IsKnownProvider(provider) {
		return Decision{}, MalformedError("unknown provider %q", w.Provider)
	}

	domain := strings.ToLower(strings.TrimSpace(w.Domain))
	intentType := strings.ToLower(strings.TrimSpace(w.IntentType))
	if domain == "" && (intentType == DomainTask || intentType == DomainCalendar) {
		domain, intentType = intentType, strings.ToLower(strings.TrimSpace(w.Operation))
	}
	domain = cfg.resolveDomain(provider, domain)

	d := Decision{
		Provider:       provider,
		Domain:         domain,
		IntentType:     intentType,
		Confidence:     0.5,
		Reasoning:      strings.TrimSpace(w.Reasoning),
		InvolvesOthers: w.InvolvesOthers,
	}
	if w.Confidence != nil {
		d.Confidence = clampConfidence(*w.Confidence)
	}
	if w.Time != nil {
		d.Time = *w.Time
	}
	return d, nil
}

func decodeWire(raw string) (wireDecision, error) {
	s := stripCodeFence(strings.TrimSpace(raw))
	if s == "" {
		return wireDecision{}, MalformedError("empty response")
	}

	var w wireDecision
	if err := json.Unmarshal([]byte(s), &w); err == nil {
		return w, nil
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return wireDecision{}, MalformedError("response is not JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(repaired), &w); err != nil {
		return wireDecision{}, MalformedError("response is not a decision object: %v", err)
	}
	return w, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
