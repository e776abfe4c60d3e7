// Package errors provides the structured error type used across the gears
// client, the reference engine and the remote executor.
//
// Every failure the client raises itself carries an ErrorCode so callers can
// tell a local serialization problem from a decode failure without string
// matching. Transport errors returned by the connection are never wrapped.
//
//	if errors.Is(err, errors.ErrCodeNotSerializable) {
//	    // nothing was sent
//	}
package errors
