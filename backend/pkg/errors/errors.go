package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeStore represents graph store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConflict represents a write that kept losing to concurrent writers
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeNotFound represents a mutation against an entity that does not exist
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation represents rejected input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Store Errors

// ErrStoreUnavailable is returned when the graph store cannot serve a request,
// either because the connection failed or because the query itself failed.
type ErrStoreUnavailable struct {
	*BaseError
	Operation string
}

func NewStoreUnavailable(operation string, err error) *ErrStoreUnavailable {
	return &ErrStoreUnavailable{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store unavailable: %s", operation), err),
		Operation: operation,
	}
}

// Unwrap exposes the base error so errors.As can reach both layers.
func (e *ErrStoreUnavailable) Unwrap() error {
	return e.BaseError
}

// ErrConflict is returned when a write transaction still conflicts with
// concurrent writers after the store's retry budget is spent. The store is
// healthy; the caller may retry.
type ErrConflict struct {
	*BaseError
	Operation string
}

func NewConflict(operation string, err error) *ErrConflict {
	return &ErrConflict{
		BaseError: NewBaseError(ErrorTypeConflict, fmt.Sprintf("write conflict: %s", operation), err),
		Operation: operation,
	}
}

func (e *ErrConflict) Unwrap() error {
	return e.BaseError
}

// Not Found Errors

// ErrNotFound is returned when a mutation targets an entity that does not exist.
// Lookups never return it; they return nil or an empty slice.
type ErrNotFound struct {
	*BaseError
	Kind string
	ID   string
}

func NewNotFound(kind, id string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", kind, id), nil),
		Kind:      kind,
		ID:        id,
	}
}

func (e *ErrNotFound) Unwrap() error {
	return e.BaseError
}

// Validation Errors

// ErrValidation is returned when caller input is rejected
type ErrValidation struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidation(field, reason string) *ErrValidation {
	return &ErrValidation{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

func (e *ErrValidation) Unwrap() error {
	return e.BaseError
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

func (e *ErrContextCancelled) Unwrap() error {
	return e.BaseError
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

func (e *ErrConfigValidationFailed) Unwrap() error {
	return e.BaseError
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

func (e *ErrConfigMissingRequired) Unwrap() error {
	return e.BaseError
}

// Helper functions

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var baseErr *BaseError
	if stderrors.As(err, &baseErr) {
		return baseErr.Type == errType
	}
	return false
}

// IsStoreUnavailable reports whether err signals a store failure
func IsStoreUnavailable(err error) bool {
	return IsErrorType(err, ErrorTypeStore)
}

// IsConflict reports whether err signals an exhausted write-conflict retry
func IsConflict(err error) bool {
	return IsErrorType(err, ErrorTypeConflict)
}

// IsNotFound reports whether err signals a missing entity
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsValidation reports whether err signals rejected input
func IsValidation(err error) bool {
	return IsErrorType(err, ErrorTypeValidation)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	// Store errors and write conflicts are retryable at the caller's discretion
	return IsErrorType(err, ErrorTypeStore) || IsErrorType(err, ErrorTypeConflict)
}
