// Package gearstest provides an in-process gears endpoint and connection
// stubs for tests.
package gearstest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/alicebob/miniredis/v2/server"

	"github.com/kbukum/gearsclient/component"
	"github.com/kbukum/gearsclient/engine"
	"github.com/kbukum/gearsclient/gears"
	"github.com/kbukum/gearsclient/logger"
	"github.com/kbukum/gearsclient/redis"
	"github.com/kbukum/gearsclient/remote"
)

var errNotStarted = errors.New("gearstest: server not started")

// Server is a miniredis instance that answers the gears execute command
// by running scripts on an engine over its own keyspace.
type Server struct {
	name    string
	command string
	log     *logger.Logger
	opts    []engine.Option

	mu     sync.Mutex
	mini   *miniredis.Miniredis
	engine *engine.Engine
	exec   *remote.Executor
	conn   *redis.Client

	executions atomic.Int64
}

// Fixture is a component whose state tests can reset, capture and
// restore between cases.
type Fixture interface {
	component.Component
	Reset(ctx context.Context) error
	Snapshot(ctx context.Context) (any, error)
	Restore(ctx context.Context, snapshot any) error
}

var (
	_ Fixture               = (*Server)(nil)
	_ component.Describable = (*Server)(nil)
)

// New creates a stopped Server. opts are applied to its engine after the
// KeysReader and runtime defaults.
func New(log *logger.Logger, opts ...engine.Option) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		name:    "gears-test",
		command: gears.DefaultCommand,
		log:     log.WithComponent("gearstest"),
		opts:    opts,
	}
}

// NewServer starts a Server and stops it when t finishes.
func NewServer(t testing.TB, opts ...engine.Option) *Server {
	t.Helper()
	s := New(logger.Nop(), opts...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("gearstest: start: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

// Name implements component.Component.
func (s *Server) Name() string { return s.name }

// Start implements component.Component.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mini != nil {
		return nil
	}

	mini := miniredis.NewMiniRedis()
	if err := mini.Start(); err != nil {
		return fmt.Errorf("starting miniredis: %w", err)
	}
	conn, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr()}, s.log)
	if err != nil {
		mini.Close()
		return err
	}

	rt := engine.NewRuntime(engine.RuntimeConfig{
		Log: s.log,
		Execute: func(args ...any) (any, error) {
			return conn.Do(context.Background(), args...)
		},
	})
	opts := append([]engine.Option{
		engine.WithLogger(s.log),
		engine.WithRuntime(rt),
		engine.WithReader(gears.DefaultReader, engine.KeysReader(s.snapshot)),
	}, s.opts...)
	s.engine = engine.New(opts...)
	s.exec = remote.NewExecutor(s.engine, s.log)

	if err := mini.Server().Register(s.command, s.handleExecute); err != nil {
		_ = conn.Close()
		mini.Close()
		return fmt.Errorf("registering %s: %w", s.command, err)
	}
	s.mini = mini
	s.conn = conn
	s.log.Debug("Gears test server started", logger.Fields("addr", mini.Addr()))
	return nil
}

// Stop implements component.Component.
func (s *Server) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mini == nil {
		return nil
	}
	err := s.conn.Close()
	s.mini.Close()
	s.mini = nil
	return err
}

// Health implements component.Component.
func (s *Server) Health(ctx context.Context) component.Health {
	h := component.Health{Name: s.name, Status: component.StatusHealthy}
	s.mu.Lock()
	conn := s.conn
	running := s.mini != nil
	s.mu.Unlock()
	if !running {
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
		return h
	}
	if err := conn.Ping(ctx); err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = err.Error()
	}
	return h
}

// Describe implements component.Describable.
func (s *Server) Describe() component.Description {
	return component.Description{
		Name:    "Gears test server",
		Type:    "engine",
		Details: fmt.Sprintf("%s command=%s", s.Addr(), s.command),
	}
}

// Addr returns the server address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mini == nil {
		return ""
	}
	return s.mini.Addr()
}

// Conn returns a client connected to the server.
func (s *Server) Conn() *redis.Client { return s.conn }

// Engine returns the engine scripts run on.
func (s *Server) Engine() *engine.Engine { return s.engine }

// Miniredis returns the backing store, or nil when stopped.
func (s *Server) Miniredis() *miniredis.Miniredis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mini
}

// Executions returns how many scripts the server received.
func (s *Server) Executions() int { return int(s.executions.Load()) }

// Seed stores string values.
func (s *Server) Seed(values map[string]string) {
	for k, v := range values {
		_ = s.mini.Set(k, v)
	}
}

// Set stores a string value and fires matching registrations.
func (s *Server) Set(ctx context.Context, key, value string) []*engine.Outcome {
	_ = s.mini.Set(key, value)
	return s.engine.Trigger(ctx, key, value)
}

// Reset empties the keyspace and removes every registration.
func (s *Server) Reset(_ context.Context) error {
	if s.Miniredis() == nil {
		return errNotStarted
	}
	s.mini.FlushAll()
	for _, r := range s.engine.Registrations() {
		s.engine.Unregister(r.ID)
	}
	return nil
}

// Snapshot captures the string keys as a map[string]string.
// Registrations are not captured.
func (s *Server) Snapshot(ctx context.Context) (any, error) {
	if s.Miniredis() == nil {
		return nil, errNotStarted
	}
	data, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k], _ = v.(string)
	}
	return out, nil
}

// Restore replaces the keyspace with a value returned by Snapshot.
func (s *Server) Restore(_ context.Context, snapshot any) error {
	if s.Miniredis() == nil {
		return errNotStarted
	}
	data, ok := snapshot.(map[string]string)
	if !ok {
		return fmt.Errorf("gearstest: unexpected snapshot type %T", snapshot)
	}
	s.mini.FlushAll()
	s.Seed(data)
	return nil
}

func (s *Server) snapshot(_ context.Context) (map[string]any, error) {
	out := make(map[string]any)
	for _, k := range s.mini.Keys() {
		if s.mini.Type(k) != "string" {
			continue
		}
		v, err := s.mini.Get(k)
		if err != nil {
			continue
		}
		out[k] = v
	}
	return out, nil
}

func (s *Server) handleExecute(c *server.Peer, cmd string, args []string) {
	s.executions.Add(1)
	if len(args) != 1 {
		c.WriteError(fmt.Sprintf("ERR wrong number of arguments for '%s' command", cmd))
		return
	}
	reply, err := s.exec.Execute(context.Background(), args[0])
	if err != nil {
		c.WriteError("ERR " + err.Error())
		return
	}
	if reply.IsRegistration() {
		if ack, ok := reply.Ack.(string); ok {
			c.WriteInline(ack)
			return
		}
		writeValue(c, reply.Ack)
		return
	}
	c.WriteLen(2)
	writeValue(c, reply.Results)
	writeValue(c, reply.Errors)
}

func writeValue(c *server.Peer, v any) {
	switch t := v.(type) {
	case nil:
		c.WriteNull()
	case string:
		c.WriteBulk(t)
	case []byte:
		c.WriteBulk(string(t))
	case bool:
		if t {
			c.WriteInt(1)
		} else {
			c.WriteInt(0)
		}
	case int:
		c.WriteInt(t)
	case int64:
		c.WriteInt(int(t))
	case float64:
		c.WriteBulk(strconv.FormatFloat(t, 'f', -1, 64))
	case []any:
		c.WriteLen(len(t))
		for _, e := range t {
			writeValue(c, e)
		}
	default:
		b, err := gears.EncodeRecord(t)
		if err != nil {
			c.WriteBulk(fmt.Sprint(t))
			return
		}
		c.WriteBulk(string(b))
	}
}
