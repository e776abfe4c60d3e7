package engine

import (
	"context"
	"fmt"
	"maps"

	"github.com/kbukum/gearsclient/errors"
	"github.com/kbukum/gearsclient/gears"
	"github.com/kbukum/gearsclient/logger"
)

// Outcome is what a terminal step produced: the records and per-record
// errors of a run, or the acknowledgement of a registration.
type Outcome struct {
	Results []any
	Errors  []any
	Ack     any
}

// Builder is the engine's native builder. Operator calls add stages; the
// terminal call executes or installs them.
type Builder struct {
	ctx        context.Context
	engine     *Engine
	reader     string
	defaultArg any
	stages     []stage

	outcome *Outcome
	err     error
}

var _ gears.EngineBuilder = (*Builder)(nil)

// NewBuilder creates a builder over reader. Executions started by Run use ctx.
func (e *Engine) NewBuilder(ctx context.Context, reader string, defaultArg any) *Builder {
	return &Builder{ctx: ctx, engine: e, reader: reader, defaultArg: defaultArg}
}

// Outcome returns the terminal step's result.
func (b *Builder) Outcome() (*Outcome, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.outcome == nil {
		return nil, errors.InvalidInput("pipeline", "no run or register step was applied")
	}
	return b.outcome, nil
}

func (b *Builder) add(s stage) {
	b.stages = append(b.stages, s)
}

func (b *Builder) Repartition(extractor gears.Func) { b.add(repartitionStage(extractor)) }
func (b *Builder) Map(callback gears.Func) { b.add(mapStage(callback)) }
func (b *Builder) Foreach(callback gears.Func) { b.add(foreachStage(callback)) }
func (b *Builder) FlatMap(callback gears.Func) { b.add(flatMapStage(callback)) }
func (b *Builder) Filter(callback gears.Func) { b.add(filterStage(callback)) }
func (b *Builder) CountBy(extractor gears.Func) { b.add(countByStage(extractor)) }
func (b *Builder) Avg(callback gears.Func) { b.add(avgStage(callback)) }
func (b *Builder) Count() { b.add(countStage()) }
func (b *Builder) Distinct() { b.add(distinctStage()) }
func (b *Builder) Sort(reverse bool) { b.add(sortStage(reverse)) }
func (b *Builder) Limit(count, offset int) { b.add(limitStage(count, offset)) }

func (b *Builder) Aggregate(zero any, seqOp, combOp gears.Func) {
	b.add(aggregateStage(zero, seqOp, combOp))
}

func (b *Builder) AggregateBy(extractor gears.Func, zero any, seqOp, combOp gears.Func) {
	b.add(aggregateByStage(extractor, zero, seqOp, combOp))
}

// Run executes the stages over the reader. A nil arg falls back to the
// builder's default argument. The engine has a single partition, so
// collect does not change the result.
func (b *Builder) Run(arg any, convertToStr, collect bool, kwargs map[string]any) {
	if b.outcome != nil || b.err != nil {
		b.err = errors.InvalidInput("pipeline", "terminal step applied twice")
		return
	}
	if arg == nil {
		arg = b.defaultArg
	}
	log := b.engine.log.WithFields(logger.Fields(
		logger.FieldReader, b.reader,
		logger.FieldSteps, len(b.stages),
	))

	read, err := b.engine.reader(b.reader)
	if err != nil {
		b.err = err
		return
	}
	src, err := read(b.ctx, arg, kwargs)
	if err != nil {
		b.err = fmt.Errorf("reader %s: %w", b.reader, err)
		return
	}

	x := &execution{engine: b.engine}
	results, err := Collect(b.ctx, x.chain(From(src), b.stages))
	if err != nil {
		b.err = err
		return
	}
	b.outcome = &Outcome{Results: finish(results, convertToStr), Errors: x.errors()}
	log.Debug("Execution finished", logger.Fields(
		logger.FieldRecords, len(b.outcome.Results),
		logger.FieldErrors, len(b.outcome.Errors),
		"collect", collect,
	))
}

// Register installs the stages as a registration triggered by keys
// matching prefix and acknowledges with "OK".
func (b *Builder) Register(prefix string, convertToStr, collect bool, kwargs map[string]any) {
	if b.outcome != nil || b.err != nil {
		b.err = errors.InvalidInput("pipeline", "terminal step applied twice")
		return
	}
	if _, err := b.engine.reader(b.reader); err != nil {
		b.err = err
		return
	}
	b.engine.register(&Registration{
		Reader:       b.reader,
		Prefix:       prefix,
		ConvertToStr: convertToStr,
		Collect:      collect,
		Kwargs:       maps.Clone(kwargs),
		stages:       b.stages,
	})
	b.outcome = &Outcome{Ack: "OK"}
}
