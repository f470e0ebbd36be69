package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagehq/request-triage/internal/domain"
)

func TestDecodeVerdict(t *testing.T) {
	raw := `{
		"assignedTeam": "Network Ops",
		"priority": "high",
		"knowledgeSuggestions": [
			{"title": "VPN split tunnel setup", "reason": "matches VPN keyword"},
			{"title": "", "reason": "dropped"}
		],
		"aiSummaryProblem": "VPN drops every few minutes",
		"aiSummaryImpact": "Remote staff cannot work",
		"aiSummaryAction": "Investigate VPN concentrator"
	}`

	result, err := decodeVerdict(raw)
	require.NoError(t, err)

	assert.Equal(t, "Network Ops", result.AssignedTeam)
	assert.Equal(t, domain.TicketPriorityHigh, result.Priority)
	require.Len(t, result.KnowledgeSuggestions, 1)
	assert.Equal(t, "VPN split tunnel setup", result.KnowledgeSuggestions[0].Title)
	assert.Equal(t, "VPN drops every few minutes", result.SummaryProblem)
}

func TestDecodeVerdictStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"assignedTeam\":\"HR / People Ops\",\"priority\":\"LOW\"}\n```"

	result, err := decodeVerdict(raw)
	require.NoError(t, err)
	assert.Equal(t, "HR / People Ops", result.AssignedTeam)
	assert.Equal(t, domain.TicketPriorityLow, result.Priority)
}

func TestDecodeVerdictRejectsGarbage(t *testing.T) {
	_, err := decodeVerdict("sorry, I cannot help with that")
	assert.Error(t, err)
}

func TestNormalizeClampsUnknownValues(t *testing.T) {
	result := Normalize(&Result{Priority: domain.TicketPriority("CRITICAL")})
	assert.Equal(t, domain.TicketPriorityMedium, result.Priority)
	assert.Equal(t, FallbackTeam, result.AssignedTeam)

	assert.Equal(t, Fallback(), Normalize(nil))
}

func TestFallbackIsDeterministic(t *testing.T) {
	fb := Fallback()
	assert.Equal(t, FallbackTeam, fb.AssignedTeam)
	assert.Equal(t, domain.TicketPriorityMedium, fb.Priority)
	assert.Empty(t, fb.KnowledgeSuggestions)
}
