// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrConflict      = errors.New("conflict")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")

	// Authorization and gating errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrLocked       = errors.New("feature locked")
	ErrQuotaReached = errors.New("quota reached")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "profile", "verification", "quota"
	Op      string // Operation that failed, e.g., "Request", "Confirm"
	Kind    error  // Base error type for errors.Is() checking
	Code    string // Machine-readable code surfaced to clients
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Domain == t.Domain && e.Code == t.Code && e.Op == t.Op
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, code, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Wrap returns a copy of e carrying err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	cp := *e
	cp.Err = err
	return &cp
}

// Profile domain errors
var (
	ErrProfileNotFound   = NewDomainError("profile", "Find", ErrNotFound, "profile_not_found", "profile not found")
	ErrTooManyObjectives = NewDomainError("profile", "Validate", ErrValueOutOfRange, "too_many_objectives", "at most 3 objectives can be selected")
	ErrInvalidUserID     = NewDomainError("profile", "Validate", ErrInvalidID, "invalid_user_id", "invalid user id")
)

// Integration (checklist/documents) domain errors
var (
	ErrUnknownItem = NewDomainError("integration", "Toggle", ErrInvalidInput, "unknown_item", "unknown checklist item or document")
	ErrPhaseLocked = NewDomainError("integration", "Toggle", ErrLocked, "locked", "this phase is shown in preview and cannot be edited")
	ErrPhaseAbsent = NewDomainError("integration", "Toggle", ErrNotFound, "phase_unavailable", "this phase does not apply to your profile")
)

// Verification domain errors
var (
	ErrInvalidEmailDomain       = NewDomainError("verification", "Submit", ErrValidation, "invalid_email_domain", "please use your university email address")
	ErrEmptyEmail               = NewDomainError("verification", "Submit", ErrEmptyValue, "invalid_input", "email is required")
	ErrTooManyAttempts          = NewDomainError("verification", "Request", ErrRateLimited, "too_many_attempts", "too many verification requests, try again in 24 hours")
	ErrEmailTaken               = NewDomainError("verification", "Request", ErrConflict, "email_already_used", "this email is already verified by another account")
	ErrEmailDeliveryFailed      = NewDomainError("verification", "Request", ErrExternalService, "email_delivery_failed", "the confirmation email could not be sent")
	ErrVerificationTokenInvalid = NewDomainError("verification", "Confirm", ErrNotFound, "invalid_token", "verification link is invalid")
	ErrVerificationTokenExpired = NewDomainError("verification", "Confirm", ErrExpired, "expired_token", "verification link has expired")
	ErrInvalidWorkflowStep      = NewDomainError("verification", "Transition", ErrStateTransition, "invalid_transition", "invalid verification step")
)

// Quota and gating errors
var (
	ErrLimitReached  = NewDomainError("quota", "Consume", ErrQuotaReached, "limit_reached", "free message limit reached")
	ErrFeatureLocked = NewDomainError("gate", "Check", ErrLocked, "locked", "this feature is locked for your profile")
)

// External service errors
var (
	ErrLLMUnavailable       = NewDomainError("llm", "Stream", ErrExternalService, "upstream_error", "the coach is temporarily unavailable")
	ErrSearchUnavailable    = NewDomainError("search", "Query", ErrExternalService, "upstream_error", "city information is temporarily unavailable")
	ErrAuthAdminUnavailable = NewDomainError("auth", "DeleteUser", ErrExternalService, "auth_delete_failed", "the account identity could not be deleted")
	ErrBillingUnavailable   = NewDomainError("billing", "Checkout", ErrExternalService, "upstream_error", "payments are temporarily unavailable")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// CodeOf returns the client-facing code carried by err, or fallback.
func CodeOf(err error, fallback string) string {
	var de *DomainError
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	return fallback
}

// MessageOf returns the client-facing message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var de *DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}
