package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triagehq/request-triage/internal/auth"
	"github.com/triagehq/request-triage/internal/domain"
	"github.com/triagehq/request-triage/internal/events"
	"github.com/triagehq/request-triage/internal/repository"
	apperrors "github.com/triagehq/request-triage/pkg/util"
)

// adminSearchLimit bounds an empty-query search.
const adminSearchLimit = 100

// AdminService is the credential-gated role administration surface. It is
// the only path by which a user's role changes from the default REQUESTER.
type AdminService struct {
	users      repository.UserRepository
	verifier   *auth.AdminVerifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAdminService constructs the service.
func NewAdminService(users repository.UserRepository, verifier *auth.AdminVerifier, dispatcher events.Dispatcher, logger *zap.Logger) *AdminService {
	return &AdminService{users: users, verifier: verifier, dispatcher: dispatcher, logger: logger}
}

// SearchUsers matches query case-insensitively against email and name
// substrings. An empty query returns all users up to the page bound.
func (s *AdminService) SearchUsers(ctx context.Context, credential, query string) ([]domain.User, error) {
	if !s.verifier.Verify(credential) {
		return nil, apperrors.NewUnauthorized("invalid admin credential")
	}
	users, err := s.users.Search(ctx, query, adminSearchLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// SetUserRole overwrites role, name and department of an existing user.
func (s *AdminService) SetUserRole(ctx context.Context, credential, email string, role domain.UserRole, name, department string) (*domain.User, error) {
	if !s.verifier.Verify(credential) {
		return nil, apperrors.NewUnauthorized("invalid admin credential")
	}
	if !domain.ValidRole(role) {
		return nil, apperrors.NewValidationError("role must be REQUESTER, AGENT or ADMIN",
			map[string]any{"role": role})
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, apperrors.NewValidationError("email required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}

	oldRole := user.Role
	user.Role = role
	user.Name = strings.TrimSpace(name)
	user.Department = strings.TrimSpace(department)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	if oldRole != role {
		s.logger.Info("role changed",
			zap.String("email", user.Email),
			zap.String("old_role", string(oldRole)),
			zap.String("new_role", string(role)))
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserRoleChanged,
			Actor:     events.Actor{Email: user.Email, Role: string(role)},
			Timestamp: time.Now().UTC(),
			Payload: events.UserRoleChangedPayload{
				Email:   user.Email,
				OldRole: oldRole,
				NewRole: role,
			},
		})
	}
	return user, nil
}
