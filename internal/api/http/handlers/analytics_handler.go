package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/request-triage/internal/service"
)

// AnalyticsHandler serves the dashboard aggregation endpoint.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analyticsService}
}

// GetAnalytics GET /api/analytics.
func (h *AnalyticsHandler) GetAnalytics(c *fiber.Ctx) error {
	scope, err := service.ParseScope(c.Query("scope"), c.Query("email"), c.Query("team"))
	if err != nil {
		return err
	}
	snapshot, err := h.analytics.Aggregate(c.UserContext(), scope)
	if err != nil {
		return err
	}
	return c.JSON(snapshot)
}
