package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates insufficient permissions
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrExternal indicates an upstream/external service failure
	ErrExternal = errors.New("external service error")
)

// A2A protocol errors

var (
	// ErrTaskNotFound indicates the referenced task does not exist
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotCancelable indicates the task is already in a terminal state
	ErrTaskNotCancelable = errors.New("task cannot be canceled")

	// ErrUnsupportedOperation indicates the agent does not support the requested operation
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrContentTypeNotSupported indicates none of the accepted output modes are supported
	ErrContentTypeNotSupported = errors.New("content type not supported")

	// ErrPushNotificationsUnsupported indicates push notification config was sent to an agent without support
	ErrPushNotificationsUnsupported = errors.New("push notifications not supported")
)

// Agent and AI provider errors

var (
	// ErrProviderUnavailable indicates no AI provider is configured or reachable
	ErrProviderUnavailable = errors.New("ai provider unavailable")

	// ErrRateLimitExceeded indicates API rate limit exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrRouteUndecided indicates the router could not classify the request
	ErrRouteUndecided = errors.New("route could not be decided")

	// ErrAgentUnreachable indicates a downstream agent did not respond
	ErrAgentUnreachable = errors.New("downstream agent unreachable")

	// ErrMalformedPlan indicates the model returned a plan that does not match the schema
	ErrMalformedPlan = errors.New("malformed plan response")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
