package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/triagehq/request-triage/internal/config"
	"github.com/triagehq/request-triage/internal/domain"
	"github.com/triagehq/request-triage/internal/repository"
	"github.com/triagehq/request-triage/internal/sla"
)

func newAnalyticsFixture(t *testing.T) (*AnalyticsService, *repository.MemoryStore, time.Time) {
	t.Helper()
	store := repository.NewMemoryStore()
	policy := sla.NewPolicy(config.SLAConfig{HighHours: 4, MediumHours: 24, LowHours: 72, AtRiskWindowMin: 60})
	svc := NewAnalyticsService(store.Tickets(), policy, nil, 0, zap.NewNop())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }
	return svc, store, now
}

func seedTicket(t *testing.T, store *repository.MemoryStore, ticket domain.Ticket) {
	t.Helper()
	require.NoError(t, store.Tickets().Create(context.Background(), &ticket))
}

func TestAggregateKPIs(t *testing.T) {
	svc, store, now := newAnalyticsFixture(t)

	seedTicket(t, store, domain.Ticket{
		Status: domain.TicketStatusNew, Priority: domain.TicketPriorityHigh,
		AssignedTeam: "Network", RequesterEmail: "sam@example.com",
		SLADueAt: now.Add(-time.Hour), // overdue and open
	})
	seedTicket(t, store, domain.Ticket{
		Status: domain.TicketStatusInProgress, Priority: domain.TicketPriorityMedium,
		AssignedTeam: "IT Support", RequesterEmail: "lee@example.com",
		SLADueAt: now.Add(20 * time.Hour),
	})
	seedTicket(t, store, domain.Ticket{
		Status: domain.TicketStatusClosed, Priority: domain.TicketPriorityLow,
		AssignedTeam: "IT Support", RequesterEmail: "sam@example.com",
		SLADueAt: now.Add(-48 * time.Hour), // overdue but closed, never breached
	})

	snapshot, err := svc.Aggregate(context.Background(), Scope{Kind: ScopeAll})
	require.NoError(t, err)

	assert.Equal(t, 3, snapshot.KPIs.Total)
	assert.Equal(t, 2, snapshot.KPIs.Open)
	assert.Equal(t, 1, snapshot.KPIs.Breached)
}

func TestAggregateChartsAreSparse(t *testing.T) {
	svc, store, now := newAnalyticsFixture(t)

	seedTicket(t, store, domain.Ticket{
		Status: domain.TicketStatusNew, Priority: domain.TicketPriorityHigh,
		AssignedTeam: "Network", RequesterEmail: "sam@example.com",
		SLADueAt: now.Add(2 * time.Hour),
	})

	snapshot, err := svc.Aggregate(context.Background(), Scope{Kind: ScopeAll})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"NEW": 1}, snapshot.Charts.ByStatus)
	assert.Equal(t, map[string]int{"HIGH": 1}, snapshot.Charts.ByPriority)
	assert.Equal(t, map[string]int{"ON_TRACK": 1}, snapshot.Charts.BySLA)
	assert.Equal(t, map[string]int{"Network": 1}, snapshot.Charts.ByTeam)

	// categories with zero tickets never get a key
	assert.NotContains(t, snapshot.Charts.ByStatus, "CLOSED")
	assert.NotContains(t, snapshot.Charts.BySLA, "BREACHED")
}

func TestAggregateAppliesScopeBeforeCounting(t *testing.T) {
	svc, store, now := newAnalyticsFixture(t)

	seedTicket(t, store, domain.Ticket{
		Status: domain.TicketStatusNew, Priority: domain.TicketPriorityHigh,
		AssignedTeam: "Network", RequesterEmail: "sam@example.com",
		SLADueAt: now.Add(-time.Hour),
	})
	seedTicket(t, store, domain.Ticket{
		Status: domain.TicketStatusNew, Priority: domain.TicketPriorityLow,
		AssignedTeam: "IT Support", RequesterEmail: "lee@example.com",
		SLADueAt: now.Add(time.Hour * 48),
	})

	mine, err := svc.Aggregate(context.Background(), Scope{Kind: ScopeMine, Email: "sam@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, mine.KPIs.Total)
	assert.Equal(t, 1, mine.KPIs.Breached)

	team, err := svc.Aggregate(context.Background(), Scope{Kind: ScopeTeam, Team: "IT Support"})
	require.NoError(t, err)
	assert.Equal(t, 1, team.KPIs.Total)
	assert.Equal(t, 0, team.KPIs.Breached)
}

func TestAggregateEmptyScope(t *testing.T) {
	svc, _, _ := newAnalyticsFixture(t)

	snapshot, err := svc.Aggregate(context.Background(), Scope{Kind: ScopeMine, Email: "nobody@example.com"})
	require.NoError(t, err)

	assert.Equal(t, KPIs{}, snapshot.KPIs)
	assert.Empty(t, snapshot.Charts.ByStatus)
	assert.Empty(t, snapshot.Charts.ByTeam)
}

func TestParseScope(t *testing.T) {
	scope, err := ParseScope("all", "", "")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, scope.Kind)

	scope, err = ParseScope("", "", "")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, scope.Kind)

	scope, err = ParseScope("my", "sam@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, ScopeMine, scope.Kind)
	assert.Equal(t, "sam@example.com", scope.Email)

	_, err = ParseScope("my", "", "")
	assert.Error(t, err)

	scope, err = ParseScope("team", "", "Network")
	require.NoError(t, err)
	assert.Equal(t, ScopeTeam, scope.Kind)

	_, err = ParseScope("team", "", "")
	assert.Error(t, err)

	_, err = ParseScope("everything", "", "")
	assert.Error(t, err)
}
