package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("listing artists failed", cause)

	msg := err.Error()
	if !strings.Contains(msg, "network") {
		t.Errorf("Error() = %q, want it to contain %q", msg, "network")
	}
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("Error() = %q, want it to contain the cause", msg)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewTimeoutError("album listing exceeded 8s", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the wrapped cause")
	}
}

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
	}{
		{"not found", NewNotFoundError("no albums"), ErrTypeNotFound},
		{"timeout", NewTimeoutError("deadline", nil), ErrTypeTimeout},
		{"remote store", NewRemoteStoreError(StoreCodeGeneric, "bucket fault", nil), ErrTypeRemoteStore},
		{"network", NewNetworkError("transport", nil), ErrTypeNetwork},
		{"cache", NewCacheError("write failed", nil), ErrTypeCache},
		{"validation", NewValidationError("empty id"), ErrTypeValidation},
		{"plain error", errors.New("plain"), ErrTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorType(tt.err); got != tt.wantType {
				t.Errorf("GetErrorType() = %v, want %v", got, tt.wantType)
			}
		})
	}
}

func TestGetErrorType_Wrapped(t *testing.T) {
	err := fmt.Errorf("sync failed: %w", NewNotFoundError("no albums resolved"))
	if got := GetErrorType(err); got != ErrTypeNotFound {
		t.Errorf("GetErrorType(wrapped) = %v, want %v", got, ErrTypeNotFound)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound(wrapped) = false, want true")
	}
}

func TestRemoteStoreError_Retryable(t *testing.T) {
	tests := []struct {
		code StoreCode
		want bool
	}{
		{StoreCodeGeneric, true},
		{StoreCodePermissionDenied, false},
		{StoreCodeUnauthenticated, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := NewRemoteStoreError(tt.code, "fault", nil)
			if got := IsRetryable(err); got != tt.want {
				t.Errorf("IsRetryable(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsRetryable_NonAppError(t *testing.T) {
	if IsRetryable(errors.New("plain")) {
		t.Error("IsRetryable(plain error) = true, want false")
	}
}
