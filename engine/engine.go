package engine

import (
	"context"
	"path"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/gearsclient/errors"
	"github.com/kbukum/gearsclient/gears"
	"github.com/kbukum/gearsclient/logger"
)

// Reader produces the records a pipeline starts from.
type Reader func(ctx context.Context, arg any, kwargs map[string]any) (Iterator[any], error)

// Registration is a pipeline installed by Register. It runs once per
// Trigger whose key matches Prefix.
type Registration struct {
	ID           string
	Reader       string
	Prefix       string
	ConvertToStr bool
	Collect      bool
	Kwargs       map[string]any

	stages []stage
}

// Engine executes replayed pipelines on a single partition.
type Engine struct {
	mu            sync.RWMutex
	readers       map[string]Reader
	registrations []*Registration

	registry *gears.Registry
	runtime  gears.Runtime
	log      *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry resolves handlers in reg instead of gears.DefaultRegistry.
func WithRegistry(reg *gears.Registry) Option {
	return func(e *Engine) { e.registry = reg }
}

// WithRuntime sets the Runtime handed to handlers.
func WithRuntime(rt gears.Runtime) Option {
	return func(e *Engine) { e.runtime = rt }
}

// WithLogger sets the engine's logger.
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithReader registers a reader under name.
func WithReader(name string, r Reader) Option {
	return func(e *Engine) { e.readers[name] = r }
}

// New creates an Engine. Without WithRuntime handlers get a Runtime backed
// by the engine's logger and an empty configuration.
func New(opts ...Option) *Engine {
	e := &Engine{
		readers:  make(map[string]Reader),
		registry: gears.DefaultRegistry,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.WithComponent("engine")
	}
	if e.runtime == nil {
		e.runtime = NewRuntime(RuntimeConfig{Log: e.log})
	}
	return e
}

// RegisterReader adds or replaces the reader for name.
func (e *Engine) RegisterReader(name string, r Reader) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readers[name] = r
}

// Readers returns sorted reader names.
func (e *Engine) Readers() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.readers))
	for name := range e.readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) reader(name string) (Reader, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.readers[name]
	if !ok {
		return nil, errors.UnknownReader(name)
	}
	return r, nil
}

// Runtime returns the Runtime handed to handlers.
func (e *Engine) Runtime() gears.Runtime { return e.runtime }

// Factory returns a gears.EngineFactory whose builders run under ctx.
func (e *Engine) Factory(ctx context.Context) gears.EngineFactory {
	return func(reader string, defaultArg any) gears.EngineBuilder {
		return e.NewBuilder(ctx, reader, defaultArg)
	}
}

// Execute replays p onto a fresh builder and returns its outcome.
func (e *Engine) Execute(ctx context.Context, p *gears.Pipeline) (*Outcome, error) {
	var b *Builder
	p.CreateAndRun(func(reader string, defaultArg any) gears.EngineBuilder {
		b = e.NewBuilder(ctx, reader, defaultArg)
		return b
	})
	return b.Outcome()
}

// Registrations returns the installed registrations in install order.
func (e *Engine) Registrations() []*Registration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Registration, len(e.registrations))
	copy(out, e.registrations)
	return out
}

// Unregister removes the registration with id.
func (e *Engine) Unregister(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.registrations {
		if r.ID == id {
			e.registrations = append(e.registrations[:i], e.registrations[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Engine) register(r *Registration) {
	r.ID = uuid.NewString()
	e.mu.Lock()
	e.registrations = append(e.registrations, r)
	e.mu.Unlock()
	e.log.Info("Registration installed", logger.Fields(
		"registration_id", r.ID,
		"prefix", r.Prefix,
		logger.FieldReader, r.Reader,
		logger.FieldSteps, len(r.stages),
	))
}

// Trigger runs every registration whose prefix matches key against the
// record {key, value}. Outcomes are returned in registration order.
func (e *Engine) Trigger(ctx context.Context, key string, value any) []*Outcome {
	var outcomes []*Outcome
	for _, r := range e.Registrations() {
		if ok, _ := path.Match(r.Prefix, key); !ok {
			continue
		}
		x := &execution{engine: e}
		src := FromSlice([]any{KeyRecord(key, value)})
		results, err := Collect(ctx, x.chain(src, r.stages))
		out := &Outcome{Errors: x.errors()}
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
		}
		if r.Collect {
			out.Results = finish(results, r.ConvertToStr)
		}
		e.log.Debug("Registration triggered", logger.Fields(
			"registration_id", r.ID,
			"key", key,
			logger.FieldRecords, len(results),
			logger.FieldErrors, len(out.Errors),
		))
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// KeyRecord is the record shape produced by key readers.
func KeyRecord(key string, value any) map[string]any {
	return map[string]any{"key": key, "value": value}
}
