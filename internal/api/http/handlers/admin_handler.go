package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/request-triage/internal/api/dto"
	"github.com/triagehq/request-triage/internal/domain"
	"github.com/triagehq/request-triage/internal/service"
	apperrors "github.com/triagehq/request-triage/pkg/util"
)

// adminKeyHeader carries the admin credential on every admin request.
const adminKeyHeader = "x-admin-key"

// AdminHandler serves credential-gated role administration endpoints.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: adminService}
}

// SearchUsers GET /api/admin/users.
func (h *AdminHandler) SearchUsers(c *fiber.Ctx) error {
	users, err := h.admin.SearchUsers(c.UserContext(), c.Get(adminKeyHeader), c.Query("query"))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(dto.ListUsersResponse{Users: items})
}

// SetUserRole PATCH /api/admin/users/role.
func (h *AdminHandler) SetUserRole(c *fiber.Ctx) error {
	var req dto.SetUserRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.admin.SetUserRole(c.UserContext(), c.Get(adminKeyHeader),
		req.Email, domain.UserRole(req.Role), req.Name, req.Department)
	if err != nil {
		return err
	}
	return c.JSON(dto.SetUserRoleResponse{OK: true, User: userResponse(user)})
}
