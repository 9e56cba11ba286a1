package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Transport errors
const (
	// ErrCodeTransport indicates a connection-level failure of the event channel
	// or the request/response path.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Payload errors
const (
	// ErrCodeMalformedPayload indicates an inbound message could not be decoded.
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"
	// ErrCodePatchApplication indicates a patch could not be applied to the
	// current snapshot.
	ErrCodePatchApplication ErrorCode = "PATCH_APPLICATION_FAILED"
)

// Authentication errors
const (
	// ErrCodeAuth indicates the credential could not be retrieved or is absent.
	ErrCodeAuth ErrorCode = "AUTH_FAILED"
	// ErrCodeTokenExpired indicates the credential has expired.
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
)

// Validation and internal errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransport: true,
	ErrCodeTimeout:   true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
