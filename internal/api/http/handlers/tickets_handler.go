package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/request-triage/internal/api/dto"
	"github.com/triagehq/request-triage/internal/domain"
	"github.com/triagehq/request-triage/internal/service"
	apperrors "github.com/triagehq/request-triage/pkg/util"
)

// TicketsHandler manages ticket submission, listing and patch endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// SubmitTicket POST /api/tickets.
func (h *TicketsHandler) SubmitTicket(c *fiber.Ctx) error {
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.tickets.Submit(c.UserContext(), service.SubmitInput{
		Email:             req.Email,
		Name:              req.Name,
		Department:        req.Department,
		Title:             req.Title,
		Description:       req.Description,
		AffectedSystem:    req.AffectedSystem,
		IsBlocking:        req.IsBlocking,
		TryKBFirst:        req.TryKBFirst,
		RequestedTimeline: domain.RequestedTimeline(strings.TrimSpace(req.RequestedTimeline)),
	})
	if err != nil {
		return err
	}

	suggestions := make([]dto.KnowledgeSuggestionResponse, 0, len(result.KnowledgeSuggestions))
	for _, s := range result.KnowledgeSuggestions {
		suggestions = append(suggestions, dto.KnowledgeSuggestionResponse{Title: s.Title, Reason: s.Reason})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SubmitTicketResponse{
		ID:                   result.Ticket.ID,
		Status:               result.Ticket.Status,
		AssignedTeam:         result.Ticket.AssignedTeam,
		Priority:             result.Ticket.Priority,
		SLADueAt:             result.Ticket.SLADueAt,
		SLAStatus:            result.SLAStatus,
		KnowledgeSuggestions: suggestions,
	})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	scope, err := service.ParseScope(c.Query("scope"), c.Query("email"), c.Query("team"))
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), scope)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], h.tickets.SLAStatus(&tickets[i])))
	}
	return c.JSON(dto.ListTicketsResponse{Tickets: items})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, slaStatus, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(ticket, slaStatus))
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ActorEmail) == "" {
		return apperrors.NewValidationError("actorEmail required", nil)
	}

	patch := service.UpdatePatch{
		AssignedTeam: req.AssignedTeam,
		Comment:      req.Comment,
	}
	if req.Status != nil {
		status := domain.TicketStatus(strings.TrimSpace(*req.Status))
		patch.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(strings.TrimSpace(*req.Priority))
		patch.Priority = &priority
	}

	result, err := h.tickets.Update(c.UserContext(), c.Params("id"), req.ActorEmail, patch)
	if err != nil {
		return err
	}

	resp := dto.UpdateTicketResponse{
		Ticket:         ticketResponse(result.Ticket, result.SLAStatus),
		RejectedFields: result.RejectedFields,
	}
	if result.Comment != nil {
		comment := commentResponse(result.Comment)
		resp.Comment = &comment
	}
	return c.JSON(resp)
}

// ListComments GET /api/tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.tickets.ListComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(dto.ListCommentsResponse{Comments: items})
}

// ListActivity GET /api/tickets/:id/activity.
func (h *TicketsHandler) ListActivity(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	entries, err := h.tickets.ListActivity(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	timeline := make([]dto.ActivityEntryResponse, 0, len(entries))
	for _, entry := range entries {
		timeline = append(timeline, dto.ActivityEntryResponse{
			ID:        entry.ID,
			Type:      entry.Type,
			Actor:     dto.ActivityActor{Email: entry.ActorEmail, Name: entry.ActorName},
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			Summary:   entry.Summary,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(dto.ActivityResponse{TicketID: ticketID, Timeline: timeline})
}

func ticketResponse(ticket *domain.Ticket, slaStatus domain.SLAStatus) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                  ticket.ID,
		Title:               ticket.Title,
		Description:         ticket.Description,
		AffectedSystem:      ticket.AffectedSystem,
		RequestedTimeline:   ticket.RequestedTimeline,
		IsBlocking:          ticket.IsBlocking,
		TryKBFirst:          ticket.TryKBFirst,
		AssignedTeam:        ticket.AssignedTeam,
		Priority:            ticket.Priority,
		Status:              ticket.Status,
		RequesterEmail:      ticket.RequesterEmail,
		RequesterName:       ticket.RequesterName,
		RequesterDepartment: ticket.RequesterDept,
		AISummaryProblem:    ticket.AISummaryProblem,
		AISummaryImpact:     ticket.AISummaryImpact,
		AISummaryAction:     ticket.AISummaryAction,
		SLADueAt:            ticket.SLADueAt,
		SLAStatus:           slaStatus,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID: comment.ID,
		Author: dto.CommentAuthor{
			ID:    comment.AuthorID,
			Email: comment.AuthorEmail,
			Name:  comment.AuthorName,
		},
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}
