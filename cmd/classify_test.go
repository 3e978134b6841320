package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendarouter/internal/intent"
)

// heuristicEnv pins the router to the keyword classifier.
func heuristicEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ROUTER_BACKEND", "heuristic")
	t.Setenv("ROUTER_DEFAULT_PROVIDER", "")
	t.Setenv("ROUTER_FALLBACK", "heuristic")
}

func executeClassify(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newClassifyCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCmd_SmokeQueries(t *testing.T) {
	heuristicEnv(t)

	out, err := executeClassify(t)
	require.NoError(t, err)

	for _, q := range smokeQueries {
		assert.Contains(t, out, "Query: "+q)
	}
	assert.Contains(t, out, "Provider: reclaim")
	assert.Contains(t, out, "Provider: nylas")
	assert.NotContains(t, out, "ERROR")
}

func TestClassifyCmd_JSON(t *testing.T) {
	heuristicEnv(t)

	out, err := executeClassify(t, "--json", "--timezone=Europe/Berlin", "Schedule a meeting tomorrow at 2pm")
	require.NoError(t, err)

	var outcomes []classifyOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 1)
	require.NotNil(t, outcomes[0].Result)
	assert.Equal(t, intent.ProviderNylas, outcomes[0].Result.Provider)
	assert.Equal(t, intent.IntentSchedule, outcomes[0].Result.IntentType)
	assert.Empty(t, outcomes[0].Violation)
}

func TestClassifyCmd_UndecidedFails(t *testing.T) {
	heuristicEnv(t)

	out, err := executeClassify(t, "--default-provider=none", "hello there")
	require.ErrorIs(t, err, errRoutingViolation)
	assert.Contains(t, out, "Error:")
}

func TestClassifyCmd_NoVocabularyGoesToTaskProvider(t *testing.T) {
	heuristicEnv(t)

	out, err := executeClassify(t, "--json", "I need 2 hours for deep work on the proposal")
	require.NoError(t, err)

	var outcomes []classifyOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 1)
	require.NotNil(t, outcomes[0].Result)
	assert.Equal(t, intent.ProviderReclaim, outcomes[0].Result.Provider)
	assert.Equal(t, intent.DomainTask, outcomes[0].Result.Domain)
}

func TestClassifyCmd_InvalidTimezone(t *testing.T) {
	heuristicEnv(t)

	_, err := executeClassify(t, "--timezone=Nowhere/Land", "add a task")
	assert.ErrorIs(t, err, intent.ErrInvalidInput)
}

func TestRoutingViolation(t *testing.T) {
	cfg := intent.DefaultConfig()

	tests := []struct {
		name     string
		query    string
		provider string
		violated bool
	}{
		{name: "task to task provider", query: "Create a task", provider: intent.ProviderReclaim},
		{name: "task to calendar provider", query: "Create a task", provider: intent.ProviderNylas, violated: true},
		{name: "meeting to calendar provider", query: "Book a meeting", provider: intent.ProviderNylas},
		{name: "meeting to task provider", query: "Book a meeting", provider: intent.ProviderReclaim, violated: true},
		{name: "task wins over meeting", query: "Task to prepare the meeting", provider: intent.ProviderReclaim},
		{name: "neither term", query: "Lunch at noon", provider: intent.ProviderNylas},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := routingViolation(cfg, tt.query, intent.Result{Provider: tt.provider})
			assert.Equal(t, tt.violated, got != "", got)
		})
	}
}
