package intent

import (
	"context"
	"fmt"
)

// KeywordClassifier is the deterministic rule-based classifier. It does no
// I/O and always returns the same decision for the same query.
//
// Rules, in order:
//  1. A task term routes to the task provider, even when calendar terms or
//     clock times are present.
//  2. A calendar term or an explicit clock time routes to the calendar provider.
//  3. Otherwise the configured default provider is used, if any.
//  4. Otherwise the query is undecided.
type KeywordClassifier struct {
	cfg           Config
	taskTerms     phraseSet
	calendarTerms phraseSet
	collaborative phraseSet
	bulk          phraseSet
	operations    operationTable
}

// NewKeywordClassifier compiles the vocabulary in cfg.
func NewKeywordClassifier(cfg Config) *KeywordClassifier {
	cfg = cfg.clone()
	v := cfg.Vocabulary
	return &KeywordClassifier{
		cfg:           cfg,
		taskTerms:     newPhraseSet(v.TaskTerms),
		calendarTerms: newPhraseSet(v.CalendarTerms),
		collaborative: newPhraseSet(v.CollaborativeTerms),
		bulk:          newPhraseSet(v.BulkTerms),
		operations:    newOperationTable(v.Operations),
	}
}

// Name implements Classifier.
func (k *KeywordClassifier) Name() string { return SourceHeuristic }

// Classify implements Classifier. The context is not consulted.
func (k *KeywordClassifier) Classify(_ context.Context, req Request) (Decision, error) {
	tokens := tokenize(req.Query)

	_, taskTerm, hasTask := k.taskTerms.first(tokens)
	_, calTerm, hasCal := k.calendarTerms.first(tokens)
	specificTime := hasSpecificTime(req.Query)

	d := Decision{
		InvolvesOthers: k.involvesOthers(req.Query, tokens),
		Time: TimeInfo{
			HasSpecificTime: specificTime,
			DurationMinutes: durationMinutes(req.Query),
		},
	}

	switch {
	case hasTask && hasCal:
		d.Provider, d.Domain, d.Confidence = k.cfg.TaskProvider, DomainTask, 0.75
		d.Reasoning = fmt.Sprintf("task vocabulary (%q) takes precedence over calendar vocabulary (%q)", taskTerm, calTerm)
	case hasTask:
		d.Provider, d.Domain, d.Confidence = k.cfg.TaskProvider, DomainTask, 0.9
		d.Reasoning = fmt.Sprintf("query uses task vocabulary (%q)", taskTerm)
	case hasCal:
		d.Provider, d.Domain, d.Confidence = k.cfg.CalendarProvider, DomainCalendar, 0.9
		d.Reasoning = fmt.Sprintf("query uses calendar vocabulary (%q)", calTerm)
	case specificTime:
		d.Provider, d.Domain, d.Confidence = k.cfg.CalendarProvider, DomainCalendar, 0.7
		d.Reasoning = "query names a specific time, which implies a calendar event"
	case k.cfg.DefaultProvider != "":
		d.Provider, d.Domain, d.Confidence = k.cfg.DefaultProvider, k.cfg.DomainFor(k.cfg.DefaultProvider), 0.5
		d.Reasoning = "no task or calendar vocabulary; using the default provider"
	default:
		return Decision{}, fmt.Errorf("%w: query has neither task nor calendar vocabulary", ErrUndecided)
	}

	d.IntentType = k.DetectIntent(req.Query, d.Domain)
	return d, nil
}

// DetectIntent returns the operation named by the earliest operation keyword,
// or the domain default (create for tasks, schedule for calendar).
func (k *KeywordClassifier) DetectIntent(query, domain string) string {
	if intent, _, ok := k.operations.detect(tokenize(query)); ok {
		return intent
	}
	if domain == DomainCalendar {
		return IntentSchedule
	}
	return IntentCreate
}

// IsBulk reports whether the query addresses many items at once.
func (k *KeywordClassifier) IsBulk(query string) bool {
	_, _, ok := k.bulk.first(tokenize(query))
	return ok
}

func (k *KeywordClassifier) involvesOthers(query string, tokens []string) bool {
	if _, _, ok := k.collaborative.first(tokens); ok {
		return true
	}
	return mentionsParticipant(query)
}

var _ Classifier = (*KeywordClassifier)(nil)
