package gears

import "maps"

// Default reader configuration.
const (
	DefaultReader    = "KeysReader"
	DefaultReaderArg = "*"
	DefaultCommand   = "RG.PYEXECUTE"
	DefaultPrefix    = "*"
)

// Operators is the closed operator set shared by Pipeline and RemoteBuilder.
// Each call records one Step and returns B for chaining.
type Operators[B any] interface {
	Repartition(extractor Func) B
	Map(callback Func) B
	Foreach(callback Func) B
	FlatMap(callback Func) B
	Filter(callback Func) B
	CountBy(extractor Func) B
	Avg(callback Func) B
	Count() B
	Distinct() B
	Aggregate(zero any, seqOp, combOp Func) B
	AggregateBy(extractor Func, zero any, seqOp, combOp Func) B
	Sort(reverse bool) B
	Limit(count, offset int) B
}

// EngineBuilder is the executing node's native builder. Steps replay
// themselves onto it.
type EngineBuilder interface {
	Repartition(extractor Func)
	Map(callback Func)
	Foreach(callback Func)
	FlatMap(callback Func)
	Filter(callback Func)
	CountBy(extractor Func)
	Avg(callback Func)
	Count()
	Distinct()
	Aggregate(zero any, seqOp, combOp Func)
	AggregateBy(extractor Func, zero any, seqOp, combOp Func)
	Sort(reverse bool)
	Limit(count, offset int)
	Run(arg any, convertToStr, collect bool, kwargs map[string]any)
	Register(prefix string, convertToStr, collect bool, kwargs map[string]any)
}

// EngineFactory creates a native builder for a reader. defaultArg is used
// by the engine when Run is given a nil argument.
type EngineFactory func(reader string, defaultArg any) EngineBuilder

// Pipeline is the ordered record of operator calls plus the reader they
// start from. It is the unit that travels to the remote node.
type Pipeline struct {
	reader     string
	defaultArg any
	steps      []Step
}

var _ Operators[*Pipeline] = (*Pipeline)(nil)

// NewPipeline creates an empty pipeline over reader.
func NewPipeline(reader string, defaultArg any) *Pipeline {
	return &Pipeline{reader: reader, defaultArg: defaultArg}
}

// Reader returns the reader identifier.
func (p *Pipeline) Reader() string { return p.reader }

// DefaultArg returns the default reader argument.
func (p *Pipeline) DefaultArg() any { return p.defaultArg }

// Steps returns a copy of the recorded steps in call order.
func (p *Pipeline) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Len returns the number of recorded steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// Clone returns an independent copy of p.
func (p *Pipeline) Clone() *Pipeline {
	return &Pipeline{reader: p.reader, defaultArg: p.defaultArg, steps: p.Steps()}
}

func (p *Pipeline) add(s Step) *Pipeline {
	p.steps = append(p.steps, s)
	return p
}

// Repartition appends a repartition step.
func (p *Pipeline) Repartition(extractor Func) *Pipeline {
	return p.add(RepartitionStep{Extractor: extractor})
}

// Map appends a map step.
func (p *Pipeline) Map(callback Func) *Pipeline {
	return p.add(MapStep{Callback: callback})
}

// Foreach appends a foreach step.
func (p *Pipeline) Foreach(callback Func) *Pipeline {
	return p.add(ForeachStep{Callback: callback})
}

// FlatMap appends a flatmap step.
func (p *Pipeline) FlatMap(callback Func) *Pipeline {
	return p.add(FlatMapStep{Callback: callback})
}

// Filter appends a filter step.
func (p *Pipeline) Filter(callback Func) *Pipeline {
	return p.add(FilterStep{Callback: callback})
}

// CountBy counts records per extracted key. A zero extractor counts
// records by their own value.
func (p *Pipeline) CountBy(extractor Func) *Pipeline {
	if extractor.IsZero() {
		extractor = Fn(IdentityFunc)
	}
	return p.add(CountByStep{Extractor: extractor})
}

// Avg averages the callback's numeric result. A zero callback converts
// each record itself to a number.
func (p *Pipeline) Avg(callback Func) *Pipeline {
	if callback.IsZero() {
		callback = Fn(ToFloatFunc)
	}
	return p.add(AvgStep{Callback: callback})
}

// Count appends a count step.
func (p *Pipeline) Count() *Pipeline {
	return p.add(CountStep{})
}

// Distinct appends a distinct step.
func (p *Pipeline) Distinct() *Pipeline {
	return p.add(DistinctStep{})
}

// Aggregate appends an aggregate step. zero is copied, so later changes to it are not seen.
func (p *Pipeline) Aggregate(zero any, seqOp, combOp Func) *Pipeline {
	return p.add(AggregateStep{Zero: snapshot(zero), SeqOp: seqOp, CombOp: combOp})
}

// AggregateBy appends an aggregateby step. zero is copied like in Aggregate.
func (p *Pipeline) AggregateBy(extractor Func, zero any, seqOp, combOp Func) *Pipeline {
	return p.add(AggregateByStep{Extractor: extractor, Zero: snapshot(zero), SeqOp: seqOp, CombOp: combOp})
}

// Sort appends a sort step.
func (p *Pipeline) Sort(reverse bool) *Pipeline {
	return p.add(SortStep{Reverse: reverse})
}

// Limit appends a limit step.
func (p *Pipeline) Limit(count, offset int) *Pipeline {
	return p.add(LimitStep{Count: count, Offset: offset})
}

// Run appends the run terminal.
func (p *Pipeline) Run(arg any, convertToStr, collect bool, kwargs map[string]any) {
	p.add(RunStep{Arg: arg, ConvertToStr: convertToStr, Collect: collect, Kwargs: maps.Clone(kwargs)})
}

// Register appends the register terminal.
func (p *Pipeline) Register(prefix string, convertToStr, collect bool, kwargs map[string]any) {
	p.add(RegisterStep{Prefix: prefix, ConvertToStr: convertToStr, Collect: collect, Kwargs: maps.Clone(kwargs)})
}

// CreateAndRun creates a native builder for the pipeline's reader and
// replays every step onto it in order.
func (p *Pipeline) CreateAndRun(factory EngineFactory) EngineBuilder {
	gb := factory(p.reader, p.defaultArg)
	for _, s := range p.steps {
		s.ApplyTo(gb)
	}
	return gb
}

// check reports the first step whose user logic cannot be shipped.
func (p *Pipeline) check(reg *Registry) error {
	for _, s := range p.steps {
		for _, f := range s.funcs() {
			if err := f.check(reg); err != nil {
				return err
			}
		}
	}
	return nil
}

// snapshot copies v in wire form so a step does not share state with the
// caller. A value that cannot be encoded is kept as is and rejected by
// EncodePipeline.
func snapshot(v any) any {
	b, err := EncodeRecord(v)
	if err != nil {
		return v
	}
	out, err := DecodeRecord(b)
	if err != nil {
		return v
	}
	return out
}
