package logger

import (
	"time"
)

// Standard field names.
const (
	FieldComponent   = "component"
	FieldExecutionID = "execution_id"
	FieldOperation   = "operation"
	FieldReader      = "reader"
	FieldSteps       = "steps"
	FieldCommand     = "command"
	FieldRecords     = "records"
	FieldErrors      = "errors"
	FieldPayloadSize = "payload_bytes"
	FieldStatus      = "status"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
)

// Fields builds a field map from alternating key/value pairs.
// Non-string keys and a trailing odd value are ignored.
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields returns the operation and error fields.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// MergeWithDuration adds the duration field to fields, allocating if nil.
func MergeWithDuration(fields map[string]interface{}, d time.Duration) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}
