package intent

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	tokenPattern = regexp.MustCompile(`[a-z0-9]+(?:['’:\-][a-z0-9]+)*`)

	// Clock times: "2pm", "10:30 am", "at 3", "14:00".
	clockTimePattern = regexp.MustCompile(`\b\d{1,2}(?::\d{2})?\s*(?:(?:am|pm)\b|[ap]\.m\.)|\bat\s+\d{1,2}(?::\d{2})?\b|\b\d{1,2}:\d{2}\b|\b(?:noon|midnight)\b`)

	// Day part expressions that imply a slot: "tomorrow morning", "monday at".
	dayPartPattern = regexp.MustCompile(`\b(?:today|tomorrow|tonight|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\s+(?:morning|afternoon|evening|night|at)\b`)

	durationPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?|an?|one|two|three|four|half an?)\s*(hours?|hrs?|minutes?|mins?)\b`)

	// Named participants: "with John", "and Sarah". Matched on the original casing.
	participantPattern = regexp.MustCompile(`\b(?:with|and)\s+[A-Z][a-z]+`)
)

var wordNumbers = map[string]float64{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "half a": 0.5, "half an": 0.5,
}

// words lowercases s and splits it into words. Apostrophes, colons and
// hyphens inside a word are kept, so "what's", "1:1" and "to-do" stay whole.
func words(s string) []string {
	s = strings.ReplaceAll(strings.ToLower(s), "’", "'")
	return tokenPattern.FindAllString(s, -1)
}

// tokenize is words with every hyphen- or colon-joined word followed by its
// parts: "sub-task" yields "sub-task", "sub", "task". Terms match either the
// whole word or a run of its parts.
func tokenize(s string) []string {
	ws := words(s)
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w)
		if strings.ContainsAny(w, "-:") {
			out = append(out, strings.FieldsFunc(w, isJoiner)...)
		}
	}
	return out
}

func isJoiner(r rune) bool {
	return r == '-' || r == ':'
}

// phraseSet matches whole-word terms against a token stream.
type phraseSet struct {
	terms   []string
	phrases [][]string
}

func newPhraseSet(terms []string) phraseSet {
	ps := phraseSet{}
	for _, t := range terms {
		phrase := words(t)
		if len(phrase) == 0 {
			continue
		}
		ps.terms = append(ps.terms, t)
		ps.phrases = append(ps.phrases, phrase)
	}
	return ps
}

// first returns the position and term of the earliest match. When two terms
// start at the same position the longer one wins.
func (ps phraseSet) first(tokens []string) (int, string, bool) {
	bestPos, bestLen, bestTerm := -1, 0, ""
	for i, phrase := range ps.phrases {
		pos := indexPhrase(tokens, phrase)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(phrase) > bestLen) {
			bestPos, bestLen, bestTerm = pos, len(phrase), ps.terms[i]
		}
	}
	return bestPos, bestTerm, bestPos >= 0
}

func indexPhrase(tokens, phrase []string) int {
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, w := range phrase {
			if tokens[i+j] != w {
				continue outer
			}
		}
		return i
	}
	return -1
}

// operationTable finds the earliest operation keyword in a token stream.
type operationTable struct {
	intents []string
	sets    []phraseSet
}

func newOperationTable(ops []OperationKeywords) operationTable {
	t := operationTable{}
	for _, op := range ops {
		if strings.TrimSpace(op.Intent) == "" {
			continue
		}
		t.intents = append(t.intents, op.Intent)
		t.sets = append(t.sets, newPhraseSet(op.Keywords))
	}
	return t
}

// detect returns the intent whose keyword appears first. Ties on position
// go to the longer keyword, then to table order.
func (t operationTable) detect(tokens []string) (string, string, bool) {
	bestPos, bestLen := -1, 0
	var bestIntent, bestTerm string
	for i, set := range t.sets {
		pos, term, ok := set.first(tokens)
		if !ok {
			continue
		}
		n := len(words(term))
		if bestPos < 0 || pos < bestPos || (pos == bestPos && n > bestLen) {
			bestPos, bestLen, bestIntent, bestTerm = pos, n, t.intents[i], term
		}
	}
	return bestIntent, bestTerm, bestPos >= 0
}

// hasSpecificTime reports whether the query names a clock time or a day part.
func hasSpecificTime(query string) bool {
	q := strings.ToLower(query)
	return clockTimePattern.MatchString(q) || dayPartPattern.MatchString(q)
}

// durationMinutes sums every duration phrase in the query.
func durationMinutes(query string) int {
	total := 0.0
	for _, m := range durationPattern.FindAllStringSubmatch(strings.ToLower(query), -1) {
		amount, ok := wordNumbers[m[1]]
		if !ok {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			amount = v
		}
		if strings.HasPrefix(m[2], "h") {
			amount *= 60
		}
		total += amount
	}
	return int(total + 0.5)
}

func mentionsParticipant(query string) bool {
	return participantPattern.MatchString(query)
}
