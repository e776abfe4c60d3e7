package gears

import (
	"context"

	"github.com/kbukum/gearsclient/errors"
	"github.com/kbukum/gearsclient/logger"
	"github.com/kbukum/gearsclient/observability"
	"github.com/kbukum/gearsclient/redis"
)

// Client owns a connection shared by the builders it creates.
type Client struct {
	cfg     Config
	conn    Conn
	closer  func() error
	log     *logger.Logger
	metrics *observability.Metrics
}

// NewClient connects to the server described by cfg.
func NewClient(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(&cfg.Logging, "gears").WithComponent("gears")
	rc, err := redis.New(cfg.Redis, log)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewMetrics(observability.Meter("gears"))
	if err != nil {
		_ = rc.Close()
		return nil, err
	}

	log.Info("Gears client created", logger.Fields(
		"addr", rc.Addr(),
		logger.FieldReader, cfg.Reader,
		logger.FieldCommand, cfg.Command,
	))
	return &Client{cfg: cfg, conn: rc, closer: rc.Close, log: log, metrics: metrics}, nil
}

// NewClientWithConn creates a client over an existing connection. Close
// does not close conn.
func NewClientWithConn(cfg Config, conn Conn) *Client {
	cfg.ApplyDefaults()
	log := logger.New(&cfg.Logging, "gears").WithComponent("gears")
	metrics, err := observability.NewMetrics(observability.Meter("gears"))
	if err != nil {
		log.Warn("Metrics disabled", logger.Fields(logger.FieldError, err.Error()))
	}
	return &Client{cfg: cfg, conn: conn, log: log, metrics: metrics}
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Conn returns the shared connection.
func (c *Client) Conn() Conn { return c.conn }

// Builder returns a new RemoteBuilder on the client's connection. opts
// override the configured reader and command.
func (c *Client) Builder(opts ...BuilderOption) *RemoteBuilder {
	base := []BuilderOption{
		WithReader(c.cfg.Reader),
		WithDefaultArg(c.cfg.DefaultArg),
		WithCommand(c.cfg.Command),
		WithConn(c.conn),
		WithLogger(c.log),
		WithMetrics(c.metrics),
	}
	return NewRemoteBuilder(append(base, opts...)...)
}

// Ping checks that the server answers. A failure is reported as
// CONNECTION_FAILED.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.conn.Do(ctx, "PING"); err != nil {
		c.log.Warn("Gears server unreachable", logger.Fields(logger.FieldError, err.Error()))
		return errors.ConnectionFailed("gears server", err)
	}
	return nil
}

// Close releases the connection if the client created it.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
