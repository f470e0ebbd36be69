package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/request-triage/internal/api/dto"
	"github.com/triagehq/request-triage/internal/domain"
	"github.com/triagehq/request-triage/internal/service"
)

// IdentityHandler resolves the calling user.
type IdentityHandler struct {
	identity *service.IdentityService
}

// NewIdentityHandler constructs handler.
func NewIdentityHandler(identityService *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identity: identityService}
}

// Me GET /api/me. Unknown emails are provisioned as REQUESTER on the spot,
// so the endpoint always answers with a concrete role.
func (h *IdentityHandler) Me(c *fiber.Ctx) error {
	user, err := h.identity.Resolve(c.UserContext(), c.Query("email"))
	if err != nil {
		return err
	}
	return c.JSON(dto.MeResponse{User: userResponse(user)})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
		Department: user.Department,
	}
}
