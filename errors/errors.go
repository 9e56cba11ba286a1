package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified livequery error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// Transport creates an error for a connection-level failure. Retryable
// reports whether the failure was transient when it happened; a surfaced
// transport error is always final for the subscription that reports it.
func Transport(cause error, retryable bool) *AppError {
	return &AppError{
		Code: ErrCodeTransport, Message: "The event channel failed.",
		Retryable: retryable, Cause: cause,
	}
}

// RetriesExhausted creates a transport error for a channel that could not be
// re-established.
func RetriesExhausted(attempts int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTransport, Message: fmt.Sprintf("The event channel could not be re-established after %d attempts.", attempts),
		Retryable: false, Cause: cause,
		Details: map[string]any{"attempts": attempts},
	}
}

// Timeout creates an error for an operation that took too long.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long.",
		Retryable: true,
		Details:   map[string]any{"operation": operation},
	}
}

// MalformedPayload creates an error for an inbound message that is not valid.
func MalformedPayload(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeMalformedPayload, Message: fmt.Sprintf("Malformed payload: %s", reason),
		Retryable: false, Cause: cause,
	}
}

// PatchApplication creates an error for a patch that could not be applied.
// Index is the position of the offending patch in the stream (-1 if unknown).
func PatchApplication(index int, cause error) *AppError {
	e := &AppError{
		Code: ErrCodePatchApplication, Message: "The patch could not be applied to the current snapshot.",
		Retryable: false, Cause: cause,
	}
	if index >= 0 {
		e.Details = map[string]any{"patch_index": index}
	}
	return e
}

// Auth creates an error for a credential that could not be obtained or is absent.
func Auth(reason string, cause error) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return &AppError{
		Code: ErrCodeAuth, Message: reason,
		Retryable: false, Cause: cause,
	}
}

// TokenExpired creates an error for an expired credential.
func TokenExpired() *AppError {
	return &AppError{
		Code: ErrCodeTokenExpired, Message: "The credential has expired.",
		Retryable: false,
	}
}

// InvalidInput creates an error for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Retryable: false, Details: details,
	}
}

// Validation creates an error for configuration validation failures.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		Retryable: false,
	}
}

// Internal creates an error for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Retryable: false, Cause: cause,
	}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
