package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent      = "component"
	FieldSubscriptionID = "subscription_id"
	FieldOperationName  = "operation_name"
	FieldTransport      = "transport"
	FieldState          = "state"
	FieldAttempt        = "attempt"
	FieldBackoff        = "backoff_ms"
	FieldEventID        = "event_id"
	FieldRevision       = "revision"
	FieldURL            = "url"
	FieldError          = "error"
	FieldDuration       = "duration_ms"
	FieldStep           = "step"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("done", logger.Fields("op", "save", "id", 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for a step that failed.
func ErrorFields(step string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldStep:  step,
		FieldError: err.Error(),
	}
}

// MergeWithError adds an error field to an existing map.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldError] = err.Error()
	return fields
}

// MergeWithDuration adds a duration field to an existing map.
func MergeWithDuration(fields map[string]interface{}, d time.Duration) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}
