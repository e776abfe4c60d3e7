package gears

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/gearsclient/errors"
	"github.com/kbukum/gearsclient/logger"
	"github.com/kbukum/gearsclient/observability"
	"github.com/kbukum/gearsclient/redis"
)

// RemoteBuilder records operator calls into a Pipeline and submits it over
// a Conn. Operator calls never touch the network. A RemoteBuilder is not
// safe for concurrent use.
type RemoteBuilder struct {
	pipe    *Pipeline
	conn    Conn
	command string
	log     *logger.Logger
	metrics *observability.Metrics
}

var _ Operators[*RemoteBuilder] = (*RemoteBuilder)(nil)

// Result is the reply of Run: decoded records and the engine's per-record
// errors, passed through as received.
type Result struct {
	Records []any
	Errors  []any
}

// NewRemoteBuilder creates a builder over KeysReader with argument "*"
// that talks to a local server unless WithConn is given.
func NewRemoteBuilder(opts ...BuilderOption) *RemoteBuilder {
	o := builderOptions{
		reader:     DefaultReader,
		defaultArg: DefaultReaderArg,
		command:    DefaultCommand,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.WithComponent("gears")
	}
	if o.conn == nil {
		o.conn = redis.NewLocal(o.log)
	}
	return &RemoteBuilder{
		pipe:    NewPipeline(o.reader, o.defaultArg),
		conn:    o.conn,
		command: o.command,
		log:     o.log,
		metrics: o.metrics,
	}
}

// Pipeline returns a copy of the accumulated pipeline.
func (b *RemoteBuilder) Pipeline() *Pipeline { return b.pipe.Clone() }

// Repartition moves records to the shard owning the extracted key.
func (b *RemoteBuilder) Repartition(extractor Func) *RemoteBuilder {
	b.pipe.Repartition(extractor)
	return b
}

// Map replaces each record with the callback's result.
func (b *RemoteBuilder) Map(callback Func) *RemoteBuilder {
	b.pipe.Map(callback)
	return b
}

// Foreach runs the callback on each record and keeps the record.
func (b *RemoteBuilder) Foreach(callback Func) *RemoteBuilder {
	b.pipe.Foreach(callback)
	return b
}

// FlatMap expands each record into the list the callback returns.
func (b *RemoteBuilder) FlatMap(callback Func) *RemoteBuilder {
	b.pipe.FlatMap(callback)
	return b
}

// Filter keeps records for which the callback returns true.
func (b *RemoteBuilder) Filter(callback Func) *RemoteBuilder {
	b.pipe.Filter(callback)
	return b
}

// CountBy counts records per extracted key. Pass a zero Func to count
// records by value.
func (b *RemoteBuilder) CountBy(extractor Func) *RemoteBuilder {
	b.pipe.CountBy(extractor)
	return b
}

// Avg averages numeric records. Pass a zero Func to average the records
// themselves.
func (b *RemoteBuilder) Avg(callback Func) *RemoteBuilder {
	b.pipe.Avg(callback)
	return b
}

// Count reduces the records to their number.
func (b *RemoteBuilder) Count() *RemoteBuilder {
	b.pipe.Count()
	return b
}

// Distinct drops duplicate records.
func (b *RemoteBuilder) Distinct() *RemoteBuilder {
	b.pipe.Distinct()
	return b
}

// Aggregate folds records into a copy of zero with seqOp and merges partial results with combOp.
func (b *RemoteBuilder) Aggregate(zero any, seqOp, combOp Func) *RemoteBuilder {
	b.pipe.Aggregate(zero, seqOp, combOp)
	return b
}

// AggregateBy is Aggregate applied per key returned by extractor.
func (b *RemoteBuilder) AggregateBy(extractor Func, zero any, seqOp, combOp Func) *RemoteBuilder {
	b.pipe.AggregateBy(extractor, zero, seqOp, combOp)
	return b
}

// Sort orders records; the engine's conventional default is reverse=true.
func (b *RemoteBuilder) Sort(reverse bool) *RemoteBuilder {
	b.pipe.Sort(reverse)
	return b
}

// Limit keeps count records after skipping offset.
func (b *RemoteBuilder) Limit(count, offset int) *RemoteBuilder {
	b.pipe.Limit(count, offset)
	return b
}

// Run executes the pipeline once over arg, or the default reader argument
// when arg is nil, and decodes the returned records.
//
// Records are shipped back in wire form, so WithConvertToStr is ignored.
// The accumulated pipeline is left untouched and Run may be called again.
func (b *RemoteBuilder) Run(ctx context.Context, arg any, opts ...TerminalOption) (*Result, error) {
	o := newTerminalOptions(opts)
	p := b.pipe.Clone()
	p.Map(Fn(EncodeRecordFunc))
	p.Run(arg, false, o.collect, o.kwargs)

	ctx, span := observability.StartSpan(ctx, observability.SpanRun)
	defer span.End()

	reply, err := b.submit(ctx, KindRun, p)
	if err != nil {
		return nil, err
	}

	res, err := decodeRunReply(reply)
	if err != nil {
		observability.SetSpanError(ctx, err)
		b.log.Error("Run reply rejected", logger.ErrorFields(KindRun, err))
		return nil, err
	}

	observability.SetSpanAttribute(ctx, observability.AttrRecords, len(res.Records))
	observability.SetSpanAttribute(ctx, observability.AttrErrors, len(res.Errors))
	b.metrics.RecordResult(ctx, len(res.Records), len(res.Errors))
	if len(res.Errors) > 0 {
		b.log.Warn("Run completed with record errors", logger.Fields(
			logger.FieldRecords, len(res.Records),
			logger.FieldErrors, len(res.Errors),
		))
	}
	return res, nil
}

// Register installs the pipeline as an event-driven registration on the
// server and returns the server's acknowledgement unchanged. Defaults:
// prefix "*", convertToStr true, collect true.
func (b *RemoteBuilder) Register(ctx context.Context, opts ...TerminalOption) (any, error) {
	o := newTerminalOptions(opts)
	p := b.pipe.Clone()
	p.Register(o.prefix, o.convertToStr, o.collect, o.kwargs)

	ctx, span := observability.StartSpan(ctx, observability.SpanRegister)
	defer span.End()

	return b.submit(ctx, KindRegister, p)
}

// submit serializes p and sends it as one command. Connection errors are
// returned as is.
func (b *RemoteBuilder) submit(ctx context.Context, op string, p *Pipeline) (any, error) {
	executionID := uuid.NewString()
	log := b.log.WithFields(logger.Fields(
		logger.FieldExecutionID, executionID,
		logger.FieldOperation, op,
		logger.FieldReader, p.Reader(),
		logger.FieldSteps, p.Len(),
	))
	observability.SetSpanAttribute(ctx, observability.AttrExecutionID, executionID)
	observability.SetSpanAttribute(ctx, observability.AttrReader, p.Reader())
	observability.SetSpanAttribute(ctx, observability.AttrSteps, p.Len())
	observability.SetSpanAttribute(ctx, observability.AttrCommand, b.command)

	payload, err := EncodePipeline(p)
	if err != nil {
		observability.SetSpanError(ctx, err)
		log.Error("Pipeline not serializable", logger.Fields(logger.FieldError, err.Error()))
		return nil, err
	}
	script := Bootstrap(payload)
	b.metrics.RecordPayload(ctx, op, len(payload))
	observability.SetSpanAttribute(ctx, observability.AttrPayloadSize, len(payload))

	log.Debug("Submitting pipeline", logger.Fields(
		logger.FieldCommand, b.command,
		logger.FieldPayloadSize, len(payload),
	))

	start := time.Now()
	reply, err := b.conn.Do(ctx, b.command, script)
	elapsed := time.Since(start)
	if err != nil {
		observability.SetSpanError(ctx, err)
		observability.SetSpanAttribute(ctx, observability.AttrStatus, "error")
		b.metrics.RecordExecution(ctx, op, "error", elapsed)
		log.Error("Pipeline submission failed", logger.MergeWithDuration(
			logger.Fields(logger.FieldError, err.Error()), elapsed))
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrStatus, "ok")
	b.metrics.RecordExecution(ctx, op, "ok", elapsed)
	log.Debug("Pipeline submitted", logger.MergeWithDuration(nil, elapsed))
	return reply, nil
}

// decodeRunReply splits a run reply into decoded records and raw errors.
func decodeRunReply(reply any) (*Result, error) {
	pair, ok := reply.([]any)
	if !ok || len(pair) != 2 {
		return nil, errors.DecodeFailed("run reply", fmt.Errorf("expected [records, errors], got %T", reply))
	}

	var raw []any
	switch v := pair[0].(type) {
	case nil:
	case []any:
		raw = v
	default:
		return nil, errors.DecodeFailed("run reply", fmt.Errorf("records: expected array, got %T", pair[0]))
	}

	res := &Result{Records: make([]any, 0, len(raw)), Errors: []any{}}
	for i, r := range raw {
		var data []byte
		switch v := r.(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		default:
			return nil, errors.DecodeFailed(fmt.Sprintf("record %d", i), fmt.Errorf("expected string, got %T", r))
		}
		rec, err := DecodeRecord(data)
		if err != nil {
			return nil, errors.DecodeFailed(fmt.Sprintf("record %d", i), err)
		}
		res.Records = append(res.Records, rec)
	}

	switch v := pair[1].(type) {
	case nil:
	case []any:
		res.Errors = v
	default:
		res.Errors = []any{v}
	}
	return res, nil
}
