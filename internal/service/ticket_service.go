package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triagehq/request-triage/internal/classifier"
	"github.com/triagehq/request-triage/internal/domain"
	"github.com/triagehq/request-triage/internal/events"
	"github.com/triagehq/request-triage/internal/observability"
	"github.com/triagehq/request-triage/internal/repository"
	"github.com/triagehq/request-triage/internal/sla"
	apperrors "github.com/triagehq/request-triage/pkg/util"
)

// allowedTransitions is the lifecycle adjacency map. CLOSED is terminal.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusWaiting, domain.TicketStatusResolved},
	domain.TicketStatusWaiting:    {domain.TicketStatusInProgress},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// canSetField is the single field-level permission check. Authorization is
// evaluated before any value-equality short circuit: the client disabling a
// control is a convenience, not a security boundary.
func canSetField(role domain.UserRole, field string) bool {
	switch field {
	case "priority", "assignedTeam":
		return role == domain.RoleAgent || role == domain.RoleAdmin
	case "status", "comment":
		return true
	}
	return false
}

// TicketService owns the ticket lifecycle: submission, classified intake,
// SLA stamping, and role-checked patch updates.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	activity   repository.ActivityRepository
	identity   *IdentityService
	classifier classifier.Classifier
	policy     *sla.Policy
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	clock      func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.CommentRepository
	ActivityRepo repository.ActivityRepository
	Identity     *IdentityService
	Classifier   classifier.Classifier
	SLAPolicy    *sla.Policy
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		activity:   deps.ActivityRepo,
		identity:   deps.Identity,
		classifier: deps.Classifier,
		policy:     deps.SLAPolicy,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		clock:      clock,
	}
}

// SubmitInput describes a ticket submission.
type SubmitInput struct {
	Email             string
	Name              string
	Department        string
	Title             string
	Description       string
	AffectedSystem    string
	IsBlocking        bool
	TryKBFirst        bool
	RequestedTimeline domain.RequestedTimeline
}

// SubmitResult is the submission response: the stored ticket plus the
// classifier's KB suggestions, which are returned but not persisted.
type SubmitResult struct {
	Ticket               *domain.Ticket
	SLAStatus            domain.SLAStatus
	KnowledgeSuggestions []domain.KnowledgeSuggestion
}

// Submit creates a ticket in state NEW. The classifier proposes team and
// priority; when it fails or times out the deterministic fallback applies
// and the submission still succeeds.
func (s *TicketService) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	if input.RequestedTimeline == "" {
		input.RequestedTimeline = domain.TimelineASAP
	}
	if !domain.ValidTimeline(input.RequestedTimeline) {
		return nil, apperrors.NewValidationError("unknown requested timeline",
			map[string]any{"requestedTimeline": input.RequestedTimeline})
	}

	requester, err := s.identity.ResolveWithProfile(ctx, input.Email, input.Name, input.Department)
	if err != nil {
		return nil, err
	}

	verdict := s.classify(ctx, input)

	now := s.clock()
	ticket := &domain.Ticket{
		Title:             strings.TrimSpace(input.Title),
		Description:       strings.TrimSpace(input.Description),
		AffectedSystem:    strings.TrimSpace(input.AffectedSystem),
		RequestedTimeline: input.RequestedTimeline,
		IsBlocking:        input.IsBlocking,
		TryKBFirst:        input.TryKBFirst,
		AssignedTeam:      verdict.AssignedTeam,
		Priority:          verdict.Priority,
		Status:            domain.TicketStatusNew,
		RequesterEmail:    requester.Email,
		RequesterName:     requester.Name,
		RequesterDept:     requester.Department,
		AISummaryProblem:  verdict.SummaryProblem,
		AISummaryImpact:   verdict.SummaryImpact,
		AISummaryAction:   verdict.SummaryAction,
		SLADueAt:          s.policy.DueAt(verdict.Priority, now),
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	entry := &domain.ActivityEntry{
		TicketID:   ticket.ID,
		ActorEmail: requester.Email,
		ActorName:  requester.Name,
		Type:       domain.ActivityTicketCreated,
		NewValue: map[string]any{
			"status":        ticket.Status,
			"priority":      ticket.Priority,
			"assigned_team": ticket.AssignedTeam,
		},
		Summary: fmt.Sprintf("ticket created, routed to %s at %s priority", ticket.AssignedTeam, ticket.Priority),
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		s.logger.Warn("record creation activity", zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketSubmitted,
		TicketID: ticket.ID,
		Actor:    events.Actor{Email: requester.Email, Name: requester.Name, Role: string(requester.Role)},
		Payload: events.TicketSubmittedPayload{
			Title:        ticket.Title,
			AssignedTeam: ticket.AssignedTeam,
			Priority:     ticket.Priority,
			SLADueAt:     ticket.SLADueAt,
		},
	})

	return &SubmitResult{
		Ticket:               ticket,
		SLAStatus:            s.SLAStatus(ticket),
		KnowledgeSuggestions: verdict.KnowledgeSuggestions,
	}, nil
}

func (s *TicketService) classify(ctx context.Context, input SubmitInput) *classifier.Result {
	if s.classifier == nil {
		return classifier.Fallback()
	}
	verdict, err := s.classifier.Classify(ctx, classifier.Input{
		Title:             input.Title,
		Description:       input.Description,
		AffectedSystem:    input.AffectedSystem,
		IsBlocking:        input.IsBlocking,
		RequestedTimeline: input.RequestedTimeline,
	})
	if err != nil {
		s.logger.Warn("classifier unavailable, using fallback", zap.Error(err))
		s.metrics.RecordClassifierFallback()
		return classifier.Fallback()
	}
	return classifier.Normalize(verdict)
}

// UpdatePatch is a batched set of field changes for one save action.
type UpdatePatch struct {
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	AssignedTeam *string
	Comment      *string
}

// UpdateResult reports the committed snapshot plus field-level rejections
// for role-forbidden fields in a mixed patch.
type UpdateResult struct {
	Ticket         *domain.Ticket
	SLAStatus      domain.SLAStatus
	Comment        *domain.Comment
	RejectedFields map[string]string
}

// Update applies a patch to a ticket on behalf of actorEmail.
//
// Invalid transitions and priority/team mutation on a CLOSED ticket abort
// the whole patch. Role-forbidden fields are rejected per field while the
// rest commits atomically; a patch whose only effect would be forbidden
// fields fails outright. One activity record summarizes the applied diff.
func (s *TicketService) Update(ctx context.Context, ticketID, actorEmail string, patch UpdatePatch) (*UpdateResult, error) {
	actor, err := s.identity.Resolve(ctx, actorEmail)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil && !validStatus(*patch.Status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *patch.Status})
	}
	if patch.Priority != nil && !domain.ValidPriority(*patch.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *patch.Priority})
	}
	if patch.AssignedTeam != nil && strings.TrimSpace(*patch.AssignedTeam) == "" {
		return nil, apperrors.NewValidationError("assignedTeam must not be blank", nil)
	}

	rejected := map[string]string{}
	var committedComment *domain.Comment
	var activityEntry *domain.ActivityEntry

	ticket, err := s.tickets.UpdateAtomic(ctx, ticketID, func(t *domain.Ticket) (*repository.UpdateSideEffects, error) {
		oldValue := map[string]any{}
		newValue := map[string]any{}
		var changes []string

		// Terminal-state guard comes first: a closed ticket's triage
		// fields can never change, regardless of actor role.
		if t.Status == domain.TicketStatusClosed {
			if patch.Priority != nil {
				return nil, apperrors.NewTerminalState("priority")
			}
			if patch.AssignedTeam != nil {
				return nil, apperrors.NewTerminalState("assignedTeam")
			}
		}

		if patch.Priority != nil {
			if !canSetField(actor.Role, "priority") {
				rejected["priority"] = "FORBIDDEN_FIELD"
			} else if *patch.Priority != t.Priority {
				oldValue["priority"] = t.Priority
				newValue["priority"] = *patch.Priority
				changes = append(changes, fmt.Sprintf("priority %s -> %s", t.Priority, *patch.Priority))
				t.Priority = *patch.Priority
			}
		}
		if patch.AssignedTeam != nil {
			team := strings.TrimSpace(*patch.AssignedTeam)
			if !canSetField(actor.Role, "assignedTeam") {
				rejected["assignedTeam"] = "FORBIDDEN_FIELD"
			} else if team != t.AssignedTeam {
				oldValue["assigned_team"] = t.AssignedTeam
				newValue["assigned_team"] = team
				changes = append(changes, fmt.Sprintf("team %s -> %s", t.AssignedTeam, team))
				t.AssignedTeam = team
			}
		}
		if patch.Status != nil && *patch.Status != t.Status {
			if !isValidTransition(t.Status, *patch.Status) {
				return nil, apperrors.NewInvalidTransition(string(t.Status), string(*patch.Status))
			}
			oldValue["status"] = t.Status
			newValue["status"] = *patch.Status
			changes = append(changes, fmt.Sprintf("status %s -> %s", t.Status, *patch.Status))
			t.Status = *patch.Status
		}

		effects := &repository.UpdateSideEffects{}
		if patch.Comment != nil {
			if body := strings.TrimSpace(*patch.Comment); body != "" {
				effects.Comment = &domain.Comment{
					TicketID:    t.ID,
					AuthorID:    actor.ID,
					AuthorEmail: actor.Email,
					AuthorName:  actor.Name,
					Body:        body,
				}
				changes = append(changes, "comment added")
			}
		}

		if len(changes) == 0 && len(rejected) > 0 {
			// Nothing would commit; surface the rejection as the error.
			for field := range rejected {
				return nil, apperrors.NewForbiddenField(field, string(actor.Role))
			}
		}

		if len(changes) > 0 {
			effects.Activity = &domain.ActivityEntry{
				TicketID:   t.ID,
				ActorEmail: actor.Email,
				ActorName:  actor.Name,
				Type:       domain.ActivityTicketUpdated,
				OldValue:   oldValue,
				NewValue:   newValue,
				Summary:    strings.Join(changes, "; "),
			}
		}
		committedComment = effects.Comment
		activityEntry = effects.Activity
		return effects, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	if activityEntry != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: ticket.ID,
			Actor:    events.Actor{Email: actor.Email, Name: actor.Name, Role: string(actor.Role)},
			Payload: events.TicketUpdatedPayload{
				OldValue: activityEntry.OldValue,
				NewValue: activityEntry.NewValue,
				Summary:  activityEntry.Summary,
			},
		})
	}
	if committedComment != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketCommentAdded,
			TicketID: ticket.ID,
			Actor:    events.Actor{Email: actor.Email, Name: actor.Name, Role: string(actor.Role)},
			Payload: events.TicketCommentAddedPayload{
				CommentID:   committedComment.ID,
				BodyPreview: bodyPreview(committedComment.Body, 120),
			},
		})
	}

	result := &UpdateResult{
		Ticket:    ticket,
		SLAStatus: s.SLAStatus(ticket),
		Comment:   committedComment,
	}
	if len(rejected) > 0 {
		result.RejectedFields = rejected
	}
	return result, nil
}

// GetTicket fetches a ticket with its derived SLA status.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, domain.SLAStatus, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, "", apperrors.MapError(err)
	}
	return ticket, s.SLAStatus(ticket), nil
}

// ListTickets returns the scoped ticket collection, newest first.
func (s *TicketService) ListTickets(ctx context.Context, scope Scope) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, scope.Filter())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListComments returns a ticket's comment thread in creation order.
func (s *TicketService) ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	if _, _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// ListActivity returns a ticket's timeline in creation order.
func (s *TicketService) ListActivity(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	if _, _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.activity.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// SLAStatus derives the current SLA state of a ticket. Recomputed on every
// read so the passage of time alone moves tickets into AT_RISK or BREACHED.
func (s *TicketService) SLAStatus(t *domain.Ticket) domain.SLAStatus {
	return s.policy.StatusAt(t.SLADueAt, s.clock(), t.Status)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validStatus(status domain.TicketStatus) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func bodyPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
