package gearstest

import (
	"context"
	"sync"

	"github.com/kbukum/gearsclient/gears"
)

// RecordingConn is a gears.Conn that records commands and answers with a
// canned reply.
type RecordingConn struct {
	// Reply and Err are returned by Do unless ReplyFunc is set.
	Reply any
	Err   error
	// ReplyFunc computes the reply from the command arguments.
	ReplyFunc func(args []any) (any, error)

	mu    sync.Mutex
	calls [][]any
}

var _ gears.Conn = (*RecordingConn)(nil)

// Do implements gears.Conn.
func (c *RecordingConn) Do(_ context.Context, args ...any) (any, error) {
	c.mu.Lock()
	c.calls = append(c.calls, append([]any(nil), args...))
	c.mu.Unlock()
	if c.ReplyFunc != nil {
		return c.ReplyFunc(args)
	}
	return c.Reply, c.Err
}

// Calls returns how many commands were sent.
func (c *RecordingConn) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// Args returns the arguments of command i.
func (c *RecordingConn) Args(i int) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.calls) {
		return nil
	}
	return c.calls[i]
}

// Script returns the script sent with command i, or "".
func (c *RecordingConn) Script(i int) string {
	args := c.Args(i)
	if len(args) < 2 {
		return ""
	}
	s, _ := args[1].(string)
	return s
}

// Pipeline decodes the pipeline sent with command i.
func (c *RecordingConn) Pipeline(i int) (*gears.Pipeline, error) {
	payload, err := gears.ParseBootstrap(c.Script(i))
	if err != nil {
		return nil, err
	}
	return gears.DecodePipeline(payload)
}
