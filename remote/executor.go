// Package remote executes bootstrap scripts the way a gears node does:
// it extracts the pipeline payload, decodes it and replays it onto an
// engine builder.
package remote

import (
	"context"
	"time"

	"github.com/kbukum/gearsclient/engine"
	"github.com/kbukum/gearsclient/gears"
	"github.com/kbukum/gearsclient/logger"
	"github.com/kbukum/gearsclient/observability"
)

// Reply is the result of executing one script.
type Reply struct {
	// Results and Errors are set for run pipelines.
	Results []any
	Errors  []any
	// Ack is set for register pipelines.
	Ack any
}

// IsRegistration reports whether the script installed a registration.
func (r *Reply) IsRegistration() bool { return r.Ack != nil }

// Executor runs bootstrap scripts against an Engine.
type Executor struct {
	engine *engine.Engine
	log    *logger.Logger
}

// NewExecutor creates an Executor over eng.
func NewExecutor(eng *engine.Engine, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.WithComponent("remote")
	}
	return &Executor{engine: eng, log: log}
}

// Execute parses src, decodes the embedded pipeline and replays it.
// Malformed scripts fail with INVALID_BOOTSTRAP, malformed payloads with
// DECODE_FAILED.
func (x *Executor) Execute(ctx context.Context, src string) (*Reply, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanExecute)
	defer span.End()

	payload, err := gears.ParseBootstrap(src)
	if err != nil {
		observability.SetSpanError(ctx, err)
		x.log.Warn("Rejected script", logger.Fields(logger.FieldError, err.Error()))
		return nil, err
	}
	p, err := gears.DecodePipeline(payload)
	if err != nil {
		observability.SetSpanError(ctx, err)
		x.log.Warn("Rejected pipeline", logger.Fields(logger.FieldError, err.Error()))
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrReader, p.Reader())
	observability.SetSpanAttribute(ctx, observability.AttrSteps, p.Len())

	start := time.Now()
	out, err := x.engine.Execute(ctx, p)
	if err != nil {
		observability.SetSpanError(ctx, err)
		x.log.Error("Pipeline failed", logger.MergeWithDuration(logger.Fields(
			logger.FieldReader, p.Reader(),
			logger.FieldError, err.Error(),
		), time.Since(start)))
		return nil, err
	}
	x.log.Debug("Pipeline executed", logger.MergeWithDuration(logger.Fields(
		logger.FieldReader, p.Reader(),
		logger.FieldSteps, p.Len(),
		logger.FieldRecords, len(out.Results),
		logger.FieldErrors, len(out.Errors),
	), time.Since(start)))
	return &Reply{Results: out.Results, Errors: out.Errors, Ack: out.Ack}, nil
}
