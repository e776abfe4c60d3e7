package gears

import (
	stderrors "errors"

	"github.com/kbukum/gearsclient/errors"
	"github.com/kbukum/gearsclient/logger"
)

// DefaultLogLevel is used by Log when no level is given.
const DefaultLogLevel = "notice"

// Runtime is the capability set of the node executing a pipeline.
type Runtime interface {
	// Log writes msg to the node's log at level (debug, verbose, notice, warning).
	Log(msg, level string)
	// ConfigGet looks up a node configuration value.
	ConfigGet(key string) (any, bool)
	// Execute runs a store command on the node.
	Execute(args ...any) (any, error)
	// HashTag returns a hash tag that routes keys to the node's shard.
	HashTag() string
	// Atomic returns a context that blocks other commands while entered.
	Atomic() AtomicContext
}

// AtomicContext guards a block of store commands.
type AtomicContext interface {
	Enter() error
	Exit() error
}

// Log writes msg through rt at level, or at DefaultLogLevel when level is
// empty. Without a runtime the message goes to the local logger.
func Log(rt Runtime, msg string, level ...string) {
	lvl := DefaultLogLevel
	if len(level) > 0 && level[0] != "" {
		lvl = level[0]
	}
	if rt == nil {
		logger.WithComponent("gears").LogAt(lvl, msg)
		return
	}
	rt.Log(msg, lvl)
}

// ConfigGet returns the node configuration value for key, or def when the
// key is missing or nil.
func ConfigGet(rt Runtime, key string, def any) any {
	if rt == nil {
		return def
	}
	if v, ok := rt.ConfigGet(key); ok && v != nil {
		return v
	}
	return def
}

// Execute runs a store command on the executing node.
func Execute(rt Runtime, args ...any) (any, error) {
	if rt == nil {
		return nil, errors.NoRuntime("execute")
	}
	return rt.Execute(args...)
}

// HashTag returns the executing node's shard hash tag.
func HashTag(rt Runtime) (string, error) {
	if rt == nil {
		return "", errors.NoRuntime("hashtag")
	}
	return rt.HashTag(), nil
}

// Atomic runs fn inside the node's atomic context. The context is exited
// even when fn fails or panics.
func Atomic(rt Runtime, fn func() error) (err error) {
	if rt == nil {
		return errors.NoRuntime("atomic")
	}
	actx := rt.Atomic()
	if enterErr := actx.Enter(); enterErr != nil {
		return enterErr
	}
	defer func() {
		if exitErr := actx.Exit(); exitErr != nil {
			err = stderrors.Join(err, exitErr)
		}
	}()
	return fn()
}
