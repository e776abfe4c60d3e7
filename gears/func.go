package gears

import (
	"fmt"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/kbukum/gearsclient/errors"
)

// Handler is user logic addressable by name. in holds the operator's inputs:
// one record for map-like operators, (accumulator, record) for aggregate
// sequence functions and (accumulator, accumulator) for combine functions.
type Handler func(env *Env, in ...any) (any, error)

// Env is what a Handler sees besides its inputs.
type Env struct {
	// Runtime is the executing node's capability set. Nil when a Func is
	// invoked outside an engine.
	Runtime Runtime

	name string
	args []json.RawMessage
}

// Name returns the handler name being invoked.
func (e *Env) Name() string { return e.name }

// NumArgs returns the number of captured arguments.
func (e *Env) NumArgs() int { return len(e.args) }

// Arg decodes captured argument i into v.
func (e *Env) Arg(i int, v any) error {
	if i < 0 || i >= len(e.args) {
		return errors.InvalidInput("args", fmt.Sprintf("func %q has %d captured args, asked for %d", e.name, len(e.args), i))
	}
	if err := json.Unmarshal(e.args[i], v); err != nil {
		return errors.DecodeFailed(fmt.Sprintf("argument %d of func %q", i, e.name), err)
	}
	return nil
}

// Func is a transportable reference to user logic: a registered handler
// name plus the values it captures.
type Func struct {
	name string
	raw  []json.RawMessage
	err  error
}

// Fn references the handler registered under name, capturing values.
// The values are encoded immediately, so later changes to them are not
// seen. A value that cannot be encoded is reported when the Func is
// serialized or called.
func Fn(name string, captured ...any) Func {
	f := Func{name: name, raw: make([]json.RawMessage, len(captured))}
	for i, v := range captured {
		b, err := json.Marshal(v)
		if err != nil {
			f.raw = nil
			f.err = errors.NotSerializable(fmt.Sprintf("argument %d of func %q", i, name), err)
			break
		}
		f.raw[i] = b
	}
	return f
}

// Name returns the handler name.
func (f Func) Name() string { return f.name }

// IsZero reports whether f references nothing.
func (f Func) IsZero() bool { return f.name == "" }

// Call invokes f through the default registry.
func (f Func) Call(rt Runtime, in ...any) (any, error) {
	return DefaultRegistry.Call(f, rt, in...)
}

// encodedArgs returns the captured values in wire form. In-process calls
// decode the same bytes a remote node would.
func (f Func) encodedArgs() ([]json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

// check reports why f cannot be shipped to a node that links reg.
func (f Func) check(reg *Registry) error {
	if f.IsZero() {
		return errors.NotSerializable("empty func", nil)
	}
	if !reg.Has(f.name) {
		return errors.NotSerializable(fmt.Sprintf("func %q", f.name), errors.UnknownHandler(f.name))
	}
	_, err := f.encodedArgs()
	return err
}

type funcWire struct {
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (f Func) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return nil, errors.NotSerializable("empty func", nil)
	}
	args, err := f.encodedArgs()
	if err != nil {
		return nil, err
	}
	return json.Marshal(funcWire{Name: f.name, Args: args})
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Func) UnmarshalJSON(b []byte) error {
	var w funcWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Name == "" {
		return fmt.Errorf("func without name")
	}
	f.name = w.Name
	f.err = nil
	f.raw = w.Args
	if f.raw == nil {
		f.raw = []json.RawMessage{}
	}
	return nil
}

// invoke runs h, turning a panic into an INTERNAL_ERROR.
func invoke(h Handler, env *Env, in ...any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, errors.Internal(fmt.Errorf("handler %q panicked: %v", env.name, r))
		}
	}()
	return h(env, in...)
}

// Registry maps handler names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// DefaultRegistry is consulted by Func.Call and by pipeline serialization.
var DefaultRegistry = NewRegistry()

// RegisterFunc registers h under name in the default registry.
func RegisterFunc(name string, h Handler) {
	DefaultRegistry.Register(name, h)
}

// Register adds or replaces the handler for name.
func (r *Registry) Register(name string, h Handler) {
	if name == "" || h == nil {
		panic("gears: Register requires a name and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Get retrieves a handler by name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns sorted names of all registered handlers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call resolves f in r and invokes it.
func (r *Registry) Call(f Func, rt Runtime, in ...any) (any, error) {
	h, ok := r.Get(f.name)
	if !ok {
		return nil, errors.UnknownHandler(f.name)
	}
	args, err := f.encodedArgs()
	if err != nil {
		return nil, err
	}
	return invoke(h, &Env{Runtime: rt, name: f.name, args: args}, in...)
}
