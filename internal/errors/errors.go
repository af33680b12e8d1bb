package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrTypeNotFound represents catalog or track absent errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeTimeout represents a timed operation exceeding its bound
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeRemoteStore represents backend object-store faults
	ErrTypeRemoteStore ErrorType = "remote_store"
	// ErrTypeNetwork represents connectivity/transport faults
	ErrTypeNetwork ErrorType = "network"
	// ErrTypeCache represents local persisted-store read/write faults
	ErrTypeCache ErrorType = "cache"
	// ErrTypeValidation represents invalid input errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeUnknown represents uncategorized errors
	ErrTypeUnknown ErrorType = "unknown"
)

// StoreCode sub-classifies remote store errors
type StoreCode string

const (
	StoreCodePermissionDenied StoreCode = "permission_denied"
	StoreCodeUnauthenticated  StoreCode = "unauthenticated"
	StoreCodeGeneric          StoreCode = "generic"
)

// AppError represents an application error with context.
// The type is assigned at the point the failing call returns, never
// inferred later from message text.
type AppError struct {
	Type      ErrorType
	Code      StoreCode // set only for ErrTypeRemoteStore
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:      ErrTypeNotFound,
		Message:   message,
		Retryable: false,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:      ErrTypeTimeout,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewRemoteStoreError creates a new remote store error with a sub-code
func NewRemoteStoreError(code StoreCode, message string, cause error) *AppError {
	// Permission problems do not resolve themselves on retry.
	retryable := code == StoreCodeGeneric
	return &AppError{
		Type:      ErrTypeRemoteStore,
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewCacheError creates a new cache error
func NewCacheError(message string, cause error) *AppError {
	return &AppError{
		Type:      ErrTypeCache,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:      ErrTypeValidation,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetErrorType returns the error type from an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeUnknown
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return GetErrorType(err) == ErrTypeNotFound
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return GetErrorType(err) == ErrTypeTimeout
}

// IsRemoteStore checks if an error is a remote store error
func IsRemoteStore(err error) bool {
	return GetErrorType(err) == ErrTypeRemoteStore
}

// IsNetwork checks if an error is a network error
func IsNetwork(err error) bool {
	return GetErrorType(err) == ErrTypeNetwork
}

// IsCache checks if an error is a cache error
func IsCache(err error) bool {
	return GetErrorType(err) == ErrTypeCache
}
