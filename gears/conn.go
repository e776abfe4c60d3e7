package gears

import "context"

// Conn sends one command and returns the server's raw reply. Arrays come
// back as []any, bulk strings as string.
type Conn interface {
	Do(ctx context.Context, args ...any) (any, error)
}
