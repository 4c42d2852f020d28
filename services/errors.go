package services

import (
	"errors"
	"fmt"

	"github.com/upb/llm-tenant-gateway/services/providers"
	"github.com/upb/llm-tenant-gateway/utils"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeExternal    ErrorType = "external"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

var (
	ErrUserNotFound     = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrUnknownOperation = NewDomainError(ErrorTypeNotFound, "unknown operation", nil)

	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	ErrArchiveUnavailable = NewDomainError(ErrorTypeUnavailable, "audit archive not configured", nil)
	ErrFeatureUnavailable = NewDomainError(ErrorTypeUnavailable, "provider does not support this feature", nil)
)

func isType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool { return isType(err, ErrorTypeRateLimit) }

// IsUnavailableError checks if an error reports a missing optional component
func IsUnavailableError(err error) bool { return isType(err, ErrorTypeUnavailable) }

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool { return isType(err, ErrorTypeInternal) }

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool { return isType(err, ErrorTypeExternal) }

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external provider error. Provider
// errors carry their code and upstream status into the details, and an
// upstream 429 is reported as a rate limit.
func WrapExternal(message string, err error) error {
	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		return NewDomainError(ErrorTypeExternal, message, err)
	}

	errType := ErrorTypeExternal
	if provErr.StatusCode == 429 {
		errType = ErrorTypeRateLimit
	}
	return NewDomainError(errType, message, err).
		WithDetail("provider", provErr.Provider).
		WithDetail("code", provErr.Code).
		WithDetail("status_code", provErr.StatusCode).
		WithDetail("retryable", provErr.Retryable)
}

// Classify converts errors returned by services and validators into
// DomainErrors. Errors that are already classified pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	if utils.IsValidationError(err) {
		out := NewDomainError(ErrorTypeValidation, "validation failed", err)
		for field, msg := range utils.GetValidationFields(err) {
			out.WithDetail(field, msg)
		}
		return out
	}

	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return WrapExternal("LLM provider error", err)
	}

	return WrapInternal("unexpected error", err)
}
