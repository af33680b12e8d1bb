package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"

	apperrors "github.com/robinradio/robincore/internal/errors"
)

func TestMapError_APICodes(t *testing.T) {
	tests := []struct {
		code     string
		wantType apperrors.ErrorType
		wantCode apperrors.StoreCode
	}{
		{"AccessDenied", apperrors.ErrTypeRemoteStore, apperrors.StoreCodePermissionDenied},
		{"InvalidAccessKeyId", apperrors.ErrTypeRemoteStore, apperrors.StoreCodeUnauthenticated},
		{"SignatureDoesNotMatch", apperrors.ErrTypeRemoteStore, apperrors.StoreCodeUnauthenticated},
		{"NoSuchBucket", apperrors.ErrTypeNotFound, ""},
		{"NoSuchKey", apperrors.ErrTypeNotFound, ""},
		{"SlowDown", apperrors.ErrTypeRemoteStore, apperrors.StoreCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			src := &smithy.GenericAPIError{Code: tt.code, Message: "fault"}
			err := mapError("list", src)

			if got := apperrors.GetErrorType(err); got != tt.wantType {
				t.Errorf("GetErrorType = %v, want %v", got, tt.wantType)
			}
			if tt.wantCode != "" {
				var appErr *apperrors.AppError
				if !errors.As(err, &appErr) {
					t.Fatal("expected *AppError")
				}
				if appErr.Code != tt.wantCode {
					t.Errorf("Code = %v, want %v", appErr.Code, tt.wantCode)
				}
			}
		})
	}
}

func TestMapError_ContextDeadline(t *testing.T) {
	err := mapError("list", fmt.Errorf("call: %w", context.DeadlineExceeded))
	if !apperrors.IsTimeout(err) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestMapError_PlainTransport(t *testing.T) {
	err := mapError("presign", errors.New("connection reset"))
	if !apperrors.IsNetwork(err) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestMapError_Nil(t *testing.T) {
	if mapError("list", nil) != nil {
		t.Error("mapError(nil) should be nil")
	}
}

func TestKeyPrefix(t *testing.T) {
	s := &S3Store{root: "Artist"}

	tests := []struct {
		path string
		want string
	}{
		{"", "Artist/"},
		{"Artist/Nina Simone", "Artist/Nina Simone/"},
		{"/Artist/Nina Simone/", "Artist/Nina Simone/"},
	}

	for _, tt := range tests {
		if got := s.keyPrefix(tt.path); got != tt.want {
			t.Errorf("keyPrefix(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestKeyPrefix_NoRoot(t *testing.T) {
	s := &S3Store{}
	if got := s.keyPrefix(""); got != "" {
		t.Errorf("keyPrefix(\"\") with empty root = %q, want \"\"", got)
	}
}
