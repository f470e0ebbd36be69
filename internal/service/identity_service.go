package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/triagehq/request-triage/internal/domain"
	"github.com/triagehq/request-triage/internal/repository"
	apperrors "github.com/triagehq/request-triage/pkg/util"
)

// IdentityService resolves actor emails to user records, provisioning
// unknown requesters on first touch.
type IdentityService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewIdentityService constructs the service.
func NewIdentityService(users repository.UserRepository, logger *zap.Logger) *IdentityService {
	return &IdentityService{users: users, logger: logger}
}

// Resolve returns the user for an email, creating a REQUESTER record with an
// empty profile when none exists.
func (s *IdentityService) Resolve(ctx context.Context, email string) (*domain.User, error) {
	return s.ResolveWithProfile(ctx, email, "", "")
}

// ResolveWithProfile is Resolve with profile fields applied when the record
// is first provisioned. An existing record is never overwritten here; role
// and profile changes go through role administration only.
func (s *IdentityService) ResolveWithProfile(ctx context.Context, email, name, department string) (*domain.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	user = &domain.User{
		Email:      normalized,
		Name:       strings.TrimSpace(name),
		Department: strings.TrimSpace(department),
		Role:       domain.RoleRequester,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("provisioned user", zap.String("email", user.Email))
	return user, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", apperrors.NewValidationError("email required", nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperrors.NewValidationError("malformed email", map[string]any{"email": email})
	}
	return email, nil
}
