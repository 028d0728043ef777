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

// NewConfigIncomplete reports a tenant whose settings cannot support ticket creation yet.
func NewConfigIncomplete(tenantID string) error {
	return NewDomainError("CONFIG_INCOMPLETE", "tenant configuration is missing or incomplete", http.StatusConflict, map[string]any{
		"tenant_id": tenantID,
	})
}

// NewUnknownTicketType reports a ticket type absent from the tenant's configured types.
func NewUnknownTicketType(ticketType string) error {
	return NewDomainError("UNKNOWN_TICKET_TYPE", "ticket type is not configured for this tenant", http.StatusBadRequest, map[string]any{
		"ticket_type": ticketType,
	})
}

// NewQuotaExceeded reports an admission refusal.
func NewQuotaExceeded(ownerID uint64, max int) error {
	return NewDomainError("QUOTA_EXCEEDED", "maximum concurrent tickets reached for user", http.StatusConflict, map[string]any{
		"owner_id":    ownerID,
		"max_tickets": max,
	})
}

// NewInvalidState reports an operation attempted against a session in the wrong state.
func NewInvalidState(operation, state string) error {
	return NewDomainError("INVALID_STATE", fmt.Sprintf("%s is not allowed while ticket is %s", operation, state), http.StatusConflict, map[string]any{
		"state": state,
	})
}

// NewDuplicateSession reports a registry key collision.
func NewDuplicateSession(channelID uint64) error {
	return NewDomainError("DUPLICATE_SESSION", "a ticket session already exists for this channel", http.StatusConflict, map[string]any{
		"channel_id": channelID,
	})
}

// NewCollaboratorError wraps a failure from the chat platform or storage backend.
func NewCollaboratorError(operation string, err error) error {
	return &DomainError{
		Code:       "COLLABORATOR_FAILED",
		Message:    fmt.Sprintf("%s failed", operation),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
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
