package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Local serialization errors, raised before anything is sent.
const (
	// ErrCodeNotSerializable indicates user logic or captured state could not be encoded.
	ErrCodeNotSerializable ErrorCode = "NOT_SERIALIZABLE"
	// ErrCodeUnknownHandler indicates a Func names a handler that is not registered.
	ErrCodeUnknownHandler ErrorCode = "UNKNOWN_HANDLER"
)

// Decode errors
const (
	// ErrCodeDecodeFailed indicates a payload, reply or record could not be decoded.
	ErrCodeDecodeFailed ErrorCode = "DECODE_FAILED"
	// ErrCodeInvalidBootstrap indicates the bootstrap text does not have the expected shape.
	ErrCodeInvalidBootstrap ErrorCode = "INVALID_BOOTSTRAP"
)

// Execution errors
const (
	// ErrCodeNoRuntime indicates a remote capability was used without a runtime.
	ErrCodeNoRuntime ErrorCode = "NO_RUNTIME"
	// ErrCodeUnknownReader indicates the engine has no reader with the requested name.
	ErrCodeUnknownReader ErrorCode = "UNKNOWN_READER"
	// ErrCodeTypeMismatch indicates a handler returned a value of the wrong type for its operator.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
)

// Configuration and connection errors
const (
	// ErrCodeInvalidInput indicates invalid input or configuration.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeConnectionFailed indicates a failed connection to the remote engine.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
