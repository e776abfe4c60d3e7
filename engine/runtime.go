package engine

import (
	"sync"

	"github.com/kbukum/gearsclient/errors"
	"github.com/kbukum/gearsclient/gears"
	"github.com/kbukum/gearsclient/logger"
)

// DefaultHashTag is the hash tag of a single-shard engine.
const DefaultHashTag = "{06S}"

// RuntimeConfig configures a Runtime.
type RuntimeConfig struct {
	Log     *logger.Logger
	Config  map[string]any
	Execute func(args ...any) (any, error)
	HashTag string
}

// Runtime is the gears.Runtime of an Engine.
type Runtime struct {
	cfg    RuntimeConfig
	atomic sync.Mutex
}

var _ gears.Runtime = (*Runtime)(nil)

// NewRuntime creates a Runtime. Execute fails with NO_RUNTIME unless
// cfg.Execute is set.
func NewRuntime(cfg RuntimeConfig) *Runtime {
	if cfg.Log == nil {
		cfg.Log = logger.WithComponent("engine")
	}
	if cfg.HashTag == "" {
		cfg.HashTag = DefaultHashTag
	}
	return &Runtime{cfg: cfg}
}

func (r *Runtime) Log(msg, level string) {
	r.cfg.Log.LogAt(level, msg, logger.Fields("source", "handler"))
}

func (r *Runtime) ConfigGet(key string) (any, bool) {
	v, ok := r.cfg.Config[key]
	return v, ok
}

func (r *Runtime) Execute(args ...any) (any, error) {
	if r.cfg.Execute == nil {
		return nil, errors.NoRuntime("execute")
	}
	return r.cfg.Execute(args...)
}

func (r *Runtime) HashTag() string { return r.cfg.HashTag }

// Atomic returns a context that serializes blocks entered on this runtime.
func (r *Runtime) Atomic() gears.AtomicContext {
	return &atomicContext{mu: &r.atomic}
}

type atomicContext struct {
	mu      *sync.Mutex
	entered bool
}

func (a *atomicContext) Enter() error {
	if a.entered {
		return errors.InvalidInput("atomic", "already entered")
	}
	a.mu.Lock()
	a.entered = true
	return nil
}

func (a *atomicContext) Exit() error {
	if !a.entered {
		return errors.InvalidInput("atomic", "exit without enter")
	}
	a.entered = false
	a.mu.Unlock()
	return nil
}
