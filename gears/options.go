package gears

import (
	"maps"

	"github.com/kbukum/gearsclient/logger"
	"github.com/kbukum/gearsclient/observability"
)

// BuilderOption configures a RemoteBuilder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	reader     string
	defaultArg any
	conn       Conn
	command    string
	log        *logger.Logger
	metrics    *observability.Metrics
}

// WithReader sets the reader the pipeline starts from.
func WithReader(reader string) BuilderOption {
	return func(o *builderOptions) { o.reader = reader }
}

// WithDefaultArg sets the reader argument used when Run gets none.
func WithDefaultArg(arg any) BuilderOption {
	return func(o *builderOptions) { o.defaultArg = arg }
}

// WithConn sets the connection commands are sent on.
func WithConn(conn Conn) BuilderOption {
	return func(o *builderOptions) { o.conn = conn }
}

// WithCommand overrides the server command that executes a bootstrap script.
func WithCommand(command string) BuilderOption {
	return func(o *builderOptions) { o.command = command }
}

// WithLogger sets the builder's logger.
func WithLogger(log *logger.Logger) BuilderOption {
	return func(o *builderOptions) { o.log = log }
}

// WithMetrics records submissions on m.
func WithMetrics(m *observability.Metrics) BuilderOption {
	return func(o *builderOptions) { o.metrics = m }
}

// TerminalOption configures Run or Register.
type TerminalOption func(*terminalOptions)

type terminalOptions struct {
	prefix       string
	convertToStr bool
	collect      bool
	kwargs       map[string]any
}

// WithCollect controls whether results are gathered from all shards.
func WithCollect(collect bool) TerminalOption {
	return func(o *terminalOptions) { o.collect = collect }
}

// WithConvertToStr controls whether a registration stringifies its output.
// Run always ships records in wire form and ignores it.
func WithConvertToStr(convert bool) TerminalOption {
	return func(o *terminalOptions) { o.convertToStr = convert }
}

// WithPrefix sets the key pattern a registration fires on.
func WithPrefix(prefix string) TerminalOption {
	return func(o *terminalOptions) { o.prefix = prefix }
}

// WithKwarg passes one reader-specific keyword argument.
func WithKwarg(key string, value any) TerminalOption {
	return func(o *terminalOptions) {
		if o.kwargs == nil {
			o.kwargs = make(map[string]any)
		}
		o.kwargs[key] = value
	}
}

// WithKwargs passes reader-specific keyword arguments.
func WithKwargs(kwargs map[string]any) TerminalOption {
	return func(o *terminalOptions) {
		if o.kwargs == nil {
			o.kwargs = make(map[string]any, len(kwargs))
		}
		maps.Copy(o.kwargs, kwargs)
	}
}

func newTerminalOptions(opts []TerminalOption) terminalOptions {
	o := terminalOptions{prefix: DefaultPrefix, convertToStr: true, collect: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
