package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type.
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

// NotSerializable reports user logic or state that cannot be captured for transport.
func NotSerializable(what string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeNotSerializable, Message: fmt.Sprintf("%s is not serializable", what),
		Details: map[string]any{"subject": what}, Cause: cause,
	}
}

// UnknownHandler reports a Func whose handler name is not registered.
func UnknownHandler(name string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownHandler, Message: fmt.Sprintf("handler %q is not registered", name),
		Details: map[string]any{"handler": name},
	}
}

// DecodeFailed reports a payload or record that could not be decoded.
func DecodeFailed(what string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("failed to decode %s", what),
		Details: map[string]any{"subject": what}, Cause: cause,
	}
}

// InvalidBootstrap reports bootstrap text that does not match the generated shape.
func InvalidBootstrap(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidBootstrap, Message: fmt.Sprintf("invalid bootstrap: %s", reason),
	}
}

// NoRuntime reports a remote capability invoked without a runtime.
func NoRuntime(capability string) *AppError {
	return &AppError{
		Code: ErrCodeNoRuntime, Message: fmt.Sprintf("%s requires a remote runtime", capability),
		Details: map[string]any{"capability": capability},
	}
}

// UnknownReader reports a reader name the engine cannot serve.
func UnknownReader(name string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownReader, Message: fmt.Sprintf("reader %q is not available", name),
		Details: map[string]any{"reader": name},
	}
}

// TypeMismatch reports a handler result of the wrong type for its operator.
func TypeMismatch(op string, want string, got any) *AppError {
	return &AppError{
		Code: ErrCodeTypeMismatch, Message: fmt.Sprintf("%s expects %s, got %T", op, want, got),
		Details: map[string]any{"operator": op},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// ConnectionFailed creates a new AppError for a failed connection to a service.
func ConnectionFailed(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("Unable to connect to %s.", service),
		Retryable: true, Details: map[string]any{"service": service}, Cause: cause,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.", Cause: cause,
	}
}

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

// Is reports whether any AppError in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		appErr, ok := AsAppError(err)
		if !ok {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}
