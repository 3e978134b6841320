package intent

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDecision(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Decision
	}{
		{
			name: "strict json",
			raw:  `{"provider":"nylas","domain":"calendar","intent_type":"schedule","involves_others":true,"confidence":0.92,"reasoning":"meeting with a time"}`,
			want: Decision{Provider: ProviderNylas, Domain: DomainCalendar, IntentType: IntentSchedule, InvolvesOthers: true, Confidence: 0.92, Reasoning: "meeting with a time"},
		},
		{
			name: "code fence and trailing comma",
			raw:  "```json\n{\"provider\": \"reclaim\", \"domain\": \"task\", \"intent_type\": \"create\", \"involves_others\": false,}\n```",
			want: Decision{Provider: ProviderReclaim, Domain: DomainTask, IntentType: IntentCreate, Confidence: 0.5},
		},
		{
			name: "single quotes",
			raw:  `{'provider': 'reclaim', 'domain': 'task', 'intent_type': 'delete', 'involves_others': false}`,
			want: Decision{Provider: ProviderReclaim, Domain: DomainTask, IntentType: IntentDelete, Confidence: 0.5},
		},
		{
			name: "nested text field",
			raw:  `{"text": "{\"provider\":\"nylas\",\"domain\":\"calendar\",\"intent_type\":\"query\",\"involves_others\":false}"}`,
			want: Decision{Provider: ProviderNylas, Domain: DomainCalendar, IntentType: IntentQuery, Confidence: 0.5},
		},
		{
			name: "legacy shape with domain in intent_type",
			raw:  `{"provider":"reclaim","intent_type":"task","operation":"complete","involves_others":false}`,
			want: Decision{Provider: ProviderReclaim, Domain: DomainTask, IntentType: IntentComplete, Confidence: 0.5},
		},
		{
			name: "provider case and missing domain",
			raw:  `{"provider":" Nylas ","intent_type":"cancel","confidence":1.7}`,
			want: Decision{Provider: ProviderNylas, Domain: DomainCalendar, IntentType: IntentCancel, Confidence: 1},
		},
		{
			name: "extracted time",
			raw:  `{"provider":"nylas","domain":"calendar","intent_type":"schedule","extracted_time":{"has_specific_time":true,"duration_minutes":45}}`,
			want: Decision{Provider: ProviderNylas, Domain: DomainCalendar, IntentType: IntentSchedule, Confidence: 0.5, Time: TimeInfo{HasSpecificTime: true, DurationMinutes: 45}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDecision(tt.raw, DefaultConfig())
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeDecision() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeDecision_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"unknown provider", `{"provider":"outlook","intent_type":"create"}`},
		{"missing provider", `{"intent_type":"create"}`},
		{"prose", `I think this should go to the calendar.`},
		{"array", `["reclaim"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDecision(tt.raw, DefaultConfig())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestDecodeDecision_ExtraProviders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtraProviders = []string{"motion"}

	d, err := DecodeDecision(`{"provider":"motion","intent_type":"create"}`, cfg)
	require.NoError(t, err)
	assert.Equal(t, "motion", d.Provider)
	assert.Equal(t, DomainOther, d.Domain)
}

func TestDecodeDecision_DomainFollowsProvider(t *testing.T) {
	d, err := DecodeDecision(`{"provider":"reclaim","domain":"calendar","intent_type":"create"}`, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, DomainTask, d.Domain)

	d, err = DecodeDecision(`{"provider":"nylas","domain":"task","intent_type":"schedule"}`, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, DomainCalendar, d.Domain)
}

func TestSystemPrompt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TaskProvider = "todoist"
	cfg.DefaultProvider = "todoist"

	p := SystemPrompt(cfg)
	assert.Contains(t, p, `provider="todoist"`)
	assert.Contains(t, p, `provider="nylas"`)
	assert.Contains(t, p, "ALWAYS means todoist")
	assert.Contains(t, p, DecisionToolName)
	assert.NotContains(t, p, "%!")
}

func TestSystemPrompt_LastRuleNamesDefaultProvider(t *testing.T) {
	assert.Contains(t, SystemPrompt(DefaultConfig()), `RULE 3: Otherwise -> provider="reclaim", domain="task".`)

	cfg := DefaultConfig()
	cfg.DefaultProvider = ProviderNylas
	assert.Contains(t, SystemPrompt(cfg), `RULE 3: Otherwise -> provider="nylas", domain="calendar".`)

	cfg.DefaultProvider = ""
	assert.Contains(t, SystemPrompt(cfg), `RULE 3: Otherwise -> provider="reclaim", domain="task".`)
}

func TestUserPrompt(t *testing.T) {
	req := Request{
		Query:   "Schedule a meeting tomorrow at 2pm",
		Context: Context{Timezone: "America/New_York", CurrentDate: "2025-07-29", CurrentTime: "11:00:00"},
		Note:    "calling from the mobile app",
	}

	p := UserPrompt(req)
	assert.Contains(t, p, "User timezone: America/New_York")
	assert.Contains(t, p, "Current date: 2025-07-29")
	assert.Contains(t, p, "Current user time: 11:00:00")
	assert.Contains(t, p, "Additional context: calling from the mobile app")
	assert.Contains(t, p, "User request: Schedule a meeting tomorrow at 2pm")

	assert.Contains(t, UserPrompt(Request{Query: "x"}), "User timezone: Unknown")
}

func TestDecisionSchema(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtraProviders = []string{"motion"}

	schema := DecisionSchema(cfg)
	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)

	provider, ok := props["provider"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []string{ProviderReclaim, ProviderNylas, "motion"}, provider["enum"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Len(t, schema["required"], len(props))
}
