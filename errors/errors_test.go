package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTransport, "dropped")
	if !err.Retryable {
		t.Error("TRANSPORT_ERROR should be retryable")
	}
	err = New(ErrCodePatchApplication, "bad patch")
	if err.Retryable {
		t.Error("PATCH_APPLICATION_FAILED should not be retryable")
	}
}

func TestAppError_Transport(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Transport(cause, true)
	if err.Code != ErrCodeTransport {
		t.Errorf("expected TRANSPORT_ERROR, got %s", err.Code)
	}
	if !err.Retryable {
		t.Error("expected retryable transport error")
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
}

func TestAppError_RetriesExhausted(t *testing.T) {
	err := RetriesExhausted(5, fmt.Errorf("refused"))
	if err.Retryable {
		t.Error("exhausted retries should not be retryable")
	}
	if err.Details["attempts"] != 5 {
		t.Errorf("expected attempts=5, got %v", err.Details["attempts"])
	}
	if !strings.Contains(err.Message, "5 attempts") {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestAppError_PatchApplication(t *testing.T) {
	err := PatchApplication(3, fmt.Errorf("missing key"))
	if err.Code != ErrCodePatchApplication {
		t.Errorf("expected PATCH_APPLICATION_FAILED, got %s", err.Code)
	}
	if err.Details["patch_index"] != 3 {
		t.Errorf("expected patch_index=3, got %v", err.Details["patch_index"])
	}

	noIndex := PatchApplication(-1, nil)
	if noIndex.Details != nil {
		t.Errorf("expected no details without index, got %v", noIndex.Details)
	}
}

func TestAppError_Auth(t *testing.T) {
	err := Auth("", nil)
	if err.Code != ErrCodeAuth {
		t.Errorf("expected AUTH_FAILED, got %s", err.Code)
	}
	if err.Message != "Authentication required." {
		t.Errorf("expected default message, got %q", err.Message)
	}

	custom := Auth("token provider failed", fmt.Errorf("boom"))
	if custom.Message != "token provider failed" {
		t.Errorf("expected custom message, got %q", custom.Message)
	}
}

func TestAppError_TokenExpired(t *testing.T) {
	err := TokenExpired()
	if err.Code != ErrCodeTokenExpired {
		t.Errorf("expected TOKEN_EXPIRED, got %s", err.Code)
	}
}

func TestAppError_InvalidInput(t *testing.T) {
	err := InvalidInput("query", "must not be empty")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if err.Details["field"] != "query" {
		t.Errorf("expected field=query, got %v", err.Details["field"])
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := MalformedPayload("not json", nil).WithCause(cause)
	if err.Cause != cause {
		t.Error("expected cause to be set via WithCause")
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := RetriesExhausted(2, nil).WithDetails(map[string]any{"extra": "info"})
	if err.Details["extra"] != "info" {
		t.Errorf("expected extra=info in details")
	}
	if err.Details["attempts"] != 2 {
		t.Error("expected original details to be preserved")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("key", "value")
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}
}

func TestAppError_Error_Format(t *testing.T) {
	s := TokenExpired().Error()
	if !strings.Contains(s, "TOKEN_EXPIRED") {
		t.Errorf("expected error string to contain code, got %q", s)
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("subscribe: %w", PatchApplication(0, nil))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AppError to be found in chain")
	}
	if appErr.Code != ErrCodePatchApplication {
		t.Errorf("unexpected code %s", appErr.Code)
	}
	if !IsAppError(wrapped) {
		t.Error("IsAppError should report true for wrapped AppError")
	}
	if IsAppError(fmt.Errorf("plain")) {
		t.Error("IsAppError should report false for plain errors")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Auth("", nil))
	if !HasCode(err, ErrCodeAuth) {
		t.Error("expected HasCode to match AUTH_FAILED")
	}
	if HasCode(err, ErrCodeTransport) {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(nil, ErrCodeAuth) {
		t.Error("HasCode(nil) should be false")
	}
}
