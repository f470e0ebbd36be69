package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

// NewInvalidTransition reports a status change outside the allowed-next set.
func NewInvalidTransition(current, requested string) error {
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("cannot transition from %s to %s", current, requested),
		http.StatusConflict,
		map[string]any{"current": current, "requested": requested})
}

// NewForbiddenField reports a role lacking permission for a patched field.
func NewForbiddenField(field, role string) error {
	return NewDomainError("FORBIDDEN_FIELD",
		fmt.Sprintf("role %s may not change %s", role, field),
		http.StatusForbidden,
		map[string]any{"field": field, "role": role})
}

// NewTerminalState reports a mutation attempted on a closed ticket.
func NewTerminalState(field string) error {
	return NewDomainError("TERMINAL_STATE",
		fmt.Sprintf("ticket is closed; %s can no longer change", field),
		http.StatusConflict,
		map[string]any{"field": field})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

// NewUpstreamAdapter wraps a classifier failure. Recovered at submission,
// never returned from the submit endpoint.
func NewUpstreamAdapter(err error) error {
	return &DomainError{
		Code:       "UPSTREAM_ADAPTER",
		Message:    "classifier adapter unavailable",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError carrying the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
