package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/triagehq/request-triage/internal/classifier"
	"github.com/triagehq/request-triage/internal/config"
	"github.com/triagehq/request-triage/internal/domain"
	"github.com/triagehq/request-triage/internal/events"
	"github.com/triagehq/request-triage/internal/observability"
	"github.com/triagehq/request-triage/internal/repository"
	"github.com/triagehq/request-triage/internal/sla"
	apperrors "github.com/triagehq/request-triage/pkg/util"
)

type stubClassifier struct {
	result *classifier.Result
	err    error
}

func (s *stubClassifier) Classify(_ context.Context, _ classifier.Input) (*classifier.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type ticketFixture struct {
	svc     *TicketService
	store   *repository.MemoryStore
	metrics *observability.Metrics
	now     time.Time
}

func newTicketFixture(t *testing.T, clf classifier.Classifier) *ticketFixture {
	t.Helper()
	fx := &ticketFixture{
		store:   repository.NewMemoryStore(),
		metrics: observability.NewMetrics(),
		now:     time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	logger := zap.NewNop()
	fx.svc = NewTicketService(TicketDependencies{
		TicketRepo:   fx.store.Tickets(),
		CommentRepo:  fx.store.Comments(),
		ActivityRepo: fx.store.Activity(),
		Identity:     NewIdentityService(fx.store.Users(), logger),
		Classifier:   clf,
		SLAPolicy:    sla.NewPolicy(config.SLAConfig{HighHours: 4, MediumHours: 24, LowHours: 72, AtRiskWindowMin: 60}),
		Dispatcher:   events.NewInMemoryDispatcher(),
		Metrics:      fx.metrics,
		Logger:       logger,
		Clock:        func() time.Time { return fx.now },
	})
	return fx
}

func (fx *ticketFixture) submit(t *testing.T, email string) *domain.Ticket {
	t.Helper()
	result, err := fx.svc.Submit(context.Background(), SubmitInput{
		Email:       email,
		Title:       "VPN drops every few minutes",
		Description: "Connection resets under load",
	})
	require.NoError(t, err)
	return result.Ticket
}

func (fx *ticketFixture) addUser(t *testing.T, email string, role domain.UserRole) {
	t.Helper()
	err := fx.store.Users().Create(context.Background(), &domain.User{Email: email, Role: role})
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func priorityPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }

func TestSubmitUsesClassifierVerdict(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: &classifier.Result{
		AssignedTeam: "Network",
		Priority:     domain.TicketPriorityHigh,
		KnowledgeSuggestions: []domain.KnowledgeSuggestion{
			{Title: "VPN troubleshooting", Reason: "matches symptom"},
		},
		SummaryProblem: "VPN instability",
	}})

	result, err := fx.svc.Submit(context.Background(), SubmitInput{
		Email:       "sam@example.com",
		Name:        "Sam",
		Department:  "Finance",
		Title:       "VPN drops every few minutes",
		Description: "Connection resets under load",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusNew, result.Ticket.Status)
	assert.Equal(t, "Network", result.Ticket.AssignedTeam)
	assert.Equal(t, domain.TicketPriorityHigh, result.Ticket.Priority)
	assert.Equal(t, fx.now.Add(4*time.Hour), result.Ticket.SLADueAt)
	assert.Equal(t, domain.SLAOnTrack, result.SLAStatus)
	assert.Len(t, result.KnowledgeSuggestions, 1)
	assert.Equal(t, "VPN instability", result.Ticket.AISummaryProblem)

	// first-touch provisioning
	user, err := fx.store.Users().GetByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRequester, user.Role)

	entries, err := fx.svc.ListActivity(context.Background(), result.Ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActivityTicketCreated, entries[0].Type)
}

func TestSubmitFallsBackWhenClassifierFails(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{err: errors.New("upstream timeout")})

	ticket := fx.submit(t, "sam@example.com")

	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, classifier.FallbackTeam, ticket.AssignedTeam)
	assert.Equal(t, fx.now.Add(24*time.Hour), ticket.SLADueAt)
	assert.Equal(t, int64(1), fx.metrics.ClassifierFallbacks())
}

func TestSubmitNormalizesOutOfContractVerdict(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: &classifier.Result{
		AssignedTeam: "",
		Priority:     domain.TicketPriority("URGENT"),
	}})

	ticket := fx.submit(t, "sam@example.com")

	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, classifier.FallbackTeam, ticket.AssignedTeam)
}

func TestSubmitValidation(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})

	_, err := fx.svc.Submit(context.Background(), SubmitInput{Email: "sam@example.com", Title: " ", Description: "x"})
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))

	_, err = fx.svc.Submit(context.Background(), SubmitInput{Email: "sam@example.com", Title: "x", Description: "y", RequestedTimeline: "WHENEVER"})
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))

	_, err = fx.svc.Submit(context.Background(), SubmitInput{Email: "not-an-email", Title: "x", Description: "y"})
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestUpdateStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    domain.TicketStatus
		to      domain.TicketStatus
		allowed bool
	}{
		{"new to in_progress", domain.TicketStatusNew, domain.TicketStatusInProgress, true},
		{"new to waiting", domain.TicketStatusNew, domain.TicketStatusWaiting, false},
		{"new to resolved", domain.TicketStatusNew, domain.TicketStatusResolved, false},
		{"new to closed", domain.TicketStatusNew, domain.TicketStatusClosed, false},
		{"in_progress to waiting", domain.TicketStatusInProgress, domain.TicketStatusWaiting, true},
		{"in_progress to resolved", domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{"in_progress to closed", domain.TicketStatusInProgress, domain.TicketStatusClosed, false},
		{"waiting to in_progress", domain.TicketStatusWaiting, domain.TicketStatusInProgress, true},
		{"waiting to resolved", domain.TicketStatusWaiting, domain.TicketStatusResolved, false},
		{"resolved to closed", domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{"resolved to in_progress", domain.TicketStatusResolved, domain.TicketStatusInProgress, false},
		{"closed to in_progress", domain.TicketStatusClosed, domain.TicketStatusInProgress, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
			ticket := fx.submit(t, "sam@example.com")
			require.NoError(t, fx.forceStatus(ticket.ID, tc.from))

			result, err := fx.svc.Update(context.Background(), ticket.ID, "sam@example.com", UpdatePatch{
				Status: statusPtr(tc.to),
			})
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, result.Ticket.Status)
			} else {
				assert.True(t, apperrors.HasCode(err, "INVALID_TRANSITION"))
				current, _, getErr := fx.svc.GetTicket(context.Background(), ticket.ID)
				require.NoError(t, getErr)
				assert.Equal(t, tc.from, current.Status)
			}
		})
	}
}

func (fx *ticketFixture) forceStatus(ticketID string, status domain.TicketStatus) error {
	_, err := fx.store.Tickets().UpdateAtomic(context.Background(), ticketID, func(t *domain.Ticket) (*repository.UpdateSideEffects, error) {
		t.Status = status
		return nil, nil
	})
	return err
}

func TestUpdateSameStatusIsNoOp(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
	ticket := fx.submit(t, "sam@example.com")

	result, err := fx.svc.Update(context.Background(), ticket.ID, "sam@example.com", UpdatePatch{
		Status: statusPtr(domain.TicketStatusNew),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, result.Ticket.Status)

	entries, err := fx.svc.ListActivity(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1) // only the creation entry
}

func TestUpdateRequesterCannotSetTriageFields(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
	ticket := fx.submit(t, "sam@example.com")

	_, err := fx.svc.Update(context.Background(), ticket.ID, "sam@example.com", UpdatePatch{
		Priority: priorityPtr(domain.TicketPriorityHigh),
	})
	assert.True(t, apperrors.HasCode(err, "FORBIDDEN_FIELD"))

	// authorization is checked before value equality
	_, err = fx.svc.Update(context.Background(), ticket.ID, "sam@example.com", UpdatePatch{
		Priority: priorityPtr(ticket.Priority),
	})
	assert.True(t, apperrors.HasCode(err, "FORBIDDEN_FIELD"))
}

func TestUpdateMixedPatchCommitsPermittedFields(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
	ticket := fx.submit(t, "sam@example.com")

	result, err := fx.svc.Update(context.Background(), ticket.ID, "sam@example.com", UpdatePatch{
		Status:       statusPtr(domain.TicketStatusInProgress),
		Priority:     priorityPtr(domain.TicketPriorityHigh),
		AssignedTeam: strPtr("Network"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusInProgress, result.Ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, result.Ticket.Priority)
	assert.Equal(t, classifier.FallbackTeam, result.Ticket.AssignedTeam)
	assert.Equal(t, map[string]string{
		"priority":     "FORBIDDEN_FIELD",
		"assignedTeam": "FORBIDDEN_FIELD",
	}, result.RejectedFields)
}

func TestUpdateAgentSetsTriageFields(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
	ticket := fx.submit(t, "sam@example.com")
	fx.addUser(t, "agent@example.com", domain.RoleAgent)

	result, err := fx.svc.Update(context.Background(), ticket.ID, "agent@example.com", UpdatePatch{
		Priority:     priorityPtr(domain.TicketPriorityHigh),
		AssignedTeam: strPtr("Network"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, result.Ticket.Priority)
	assert.Equal(t, "Network", result.Ticket.AssignedTeam)
	assert.Empty(t, result.RejectedFields)

	entries, err := fx.svc.ListActivity(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	update := entries[1]
	assert.Equal(t, domain.ActivityTicketUpdated, update.Type)
	assert.Equal(t, domain.TicketPriorityMedium, update.OldValue["priority"])
	assert.Equal(t, domain.TicketPriorityHigh, update.NewValue["priority"])
	assert.Contains(t, update.Summary, "priority MEDIUM -> HIGH")
	assert.Contains(t, update.Summary, "team Unassigned -> Network")
}

func TestUpdateClosedTicketTriageFieldsRejected(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
	ticket := fx.submit(t, "sam@example.com")
	fx.addUser(t, "admin@example.com", domain.RoleAdmin)
	require.NoError(t, fx.forceStatus(ticket.ID, domain.TicketStatusClosed))

	_, err := fx.svc.Update(context.Background(), ticket.ID, "admin@example.com", UpdatePatch{
		Priority: priorityPtr(domain.TicketPriorityHigh),
	})
	assert.True(t, apperrors.HasCode(err, "TERMINAL_STATE"))

	_, err = fx.svc.Update(context.Background(), ticket.ID, "admin@example.com", UpdatePatch{
		AssignedTeam: strPtr("Network"),
	})
	assert.True(t, apperrors.HasCode(err, "TERMINAL_STATE"))
}

func TestUpdateCommentAllowedOnClosedTicket(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
	ticket := fx.submit(t, "sam@example.com")
	require.NoError(t, fx.forceStatus(ticket.ID, domain.TicketStatusClosed))

	result, err := fx.svc.Update(context.Background(), ticket.ID, "sam@example.com", UpdatePatch{
		Comment: strPtr("still seeing this after reopening my laptop"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Comment)
	assert.Equal(t, "sam@example.com", result.Comment.AuthorEmail)

	comments, err := fx.svc.ListComments(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "still seeing this after reopening my laptop", comments[0].Body)
}

func TestUpdateBlankCommentIgnored(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
	ticket := fx.submit(t, "sam@example.com")

	result, err := fx.svc.Update(context.Background(), ticket.ID, "sam@example.com", UpdatePatch{
		Status:  statusPtr(domain.TicketStatusInProgress),
		Comment: strPtr("   "),
	})
	require.NoError(t, err)
	assert.Nil(t, result.Comment)

	comments, err := fx.svc.ListComments(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestUpdateUnknownTicket(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
	fx.addUser(t, "agent@example.com", domain.RoleAgent)

	_, err := fx.svc.Update(context.Background(), "no-such-id", "agent@example.com", UpdatePatch{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	assert.True(t, apperrors.HasCode(err, "NOT_FOUND"))
}

func TestUpdateUnknownEnumValues(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
	ticket := fx.submit(t, "sam@example.com")

	_, err := fx.svc.Update(context.Background(), ticket.ID, "sam@example.com", UpdatePatch{
		Status: statusPtr(domain.TicketStatus("ARCHIVED")),
	})
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))

	_, err = fx.svc.Update(context.Background(), ticket.ID, "sam@example.com", UpdatePatch{
		Priority: priorityPtr(domain.TicketPriority("SEV1")),
	})
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestSLAStatusMovesWithClock(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: &classifier.Result{
		AssignedTeam: "Network",
		Priority:     domain.TicketPriorityHigh,
	}})
	ticket := fx.submit(t, "sam@example.com")

	assert.Equal(t, domain.SLAOnTrack, fx.svc.SLAStatus(ticket))

	fx.now = fx.now.Add(3*time.Hour + 30*time.Minute)
	assert.Equal(t, domain.SLAAtRisk, fx.svc.SLAStatus(ticket))

	fx.now = fx.now.Add(time.Hour)
	assert.Equal(t, domain.SLABreached, fx.svc.SLAStatus(ticket))

	// resolving clears the breach signal
	require.NoError(t, fx.forceStatus(ticket.ID, domain.TicketStatusResolved))
	resolved, slaStatus, err := fx.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.Equal(t, domain.SLAOnTrack, slaStatus)
}

func TestListTicketsScoping(t *testing.T) {
	fx := newTicketFixture(t, &stubClassifier{result: classifier.Fallback()})
	fx.submit(t, "sam@example.com")
	fx.submit(t, "sam@example.com")
	other := fx.submit(t, "lee@example.com")
	fx.addUser(t, "agent@example.com", domain.RoleAgent)
	_, err := fx.svc.Update(context.Background(), other.ID, "agent@example.com", UpdatePatch{
		AssignedTeam: strPtr("Network"),
	})
	require.NoError(t, err)

	all, err := fx.svc.ListTickets(context.Background(), Scope{Kind: ScopeAll})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := fx.svc.ListTickets(context.Background(), Scope{Kind: ScopeMine, Email: "sam@example.com"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	team, err := fx.svc.ListTickets(context.Background(), Scope{Kind: ScopeTeam, Team: "Network"})
	require.NoError(t, err)
	require.Len(t, team, 1)
	assert.Equal(t, other.ID, team[0].ID)
}
