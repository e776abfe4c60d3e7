package gears

// Step is one recorded operator call. Applying a Step to an EngineBuilder
// replays the call with the same arguments.
type Step interface {
	ApplyTo(b EngineBuilder)
	// Kind names the operator on the wire.
	Kind() string

	funcs() []Func
}

// Operator kinds.
const (
	KindRepartition = "repartition"
	KindMap         = "map"
	KindForeach     = "foreach"
	KindFlatMap     = "flatmap"
	KindFilter      = "filter"
	KindCountBy     = "countby"
	KindAvg         = "avg"
	KindCount       = "count"
	KindDistinct    = "distinct"
	KindAggregate   = "aggregate"
	KindAggregateBy = "aggregateby"
	KindSort        = "sort"
	KindLimit       = "limit"
	KindRun         = "run"
	KindRegister    = "register"
)

// RepartitionStep moves records to the shard owning the key Extractor returns.
type RepartitionStep struct {
	Extractor Func `json:"extractor"`
}

func (s RepartitionStep) ApplyTo(b EngineBuilder) { b.Repartition(s.Extractor) }
func (RepartitionStep) Kind() string { return KindRepartition }
func (s RepartitionStep) funcs() []Func { return []Func{s.Extractor} }

// MapStep replaces each record with Callback's result.
type MapStep struct {
	Callback Func `json:"callback"`
}

func (s MapStep) ApplyTo(b EngineBuilder) { b.Map(s.Callback) }
func (MapStep) Kind() string { return KindMap }
func (s MapStep) funcs() []Func { return []Func{s.Callback} }

// ForeachStep calls Callback on each record for its side effects and keeps the record.
type ForeachStep struct {
	Callback Func `json:"callback"`
}

func (s ForeachStep) ApplyTo(b EngineBuilder) { b.Foreach(s.Callback) }
func (ForeachStep) Kind() string { return KindForeach }
func (s ForeachStep) funcs() []Func { return []Func{s.Callback} }

// FlatMapStep replaces each record with the elements of the list Callback returns.
type FlatMapStep struct {
	Callback Func `json:"callback"`
}

func (s FlatMapStep) ApplyTo(b EngineBuilder) { b.FlatMap(s.Callback) }
func (FlatMapStep) Kind() string { return KindFlatMap }
func (s FlatMapStep) funcs() []Func { return []Func{s.Callback} }

// FilterStep keeps the records for which Callback returns true.
type FilterStep struct {
	Callback Func `json:"callback"`
}

func (s FilterStep) ApplyTo(b EngineBuilder) { b.Filter(s.Callback) }
func (FilterStep) Kind() string { return KindFilter }
func (s FilterStep) funcs() []Func { return []Func{s.Callback} }

// CountByStep counts records per key returned by Extractor.
type CountByStep struct {
	Extractor Func `json:"extractor"`
}

func (s CountByStep) ApplyTo(b EngineBuilder) { b.CountBy(s.Extractor) }
func (CountByStep) Kind() string { return KindCountBy }
func (s CountByStep) funcs() []Func { return []Func{s.Extractor} }

// AvgStep averages the numbers Callback returns.
type AvgStep struct {
	Callback Func `json:"callback"`
}

func (s AvgStep) ApplyTo(b EngineBuilder) { b.Avg(s.Callback) }
func (AvgStep) Kind() string { return KindAvg }
func (s AvgStep) funcs() []Func { return []Func{s.Callback} }

// CountStep counts all records.
type CountStep struct{}

func (CountStep) ApplyTo(b EngineBuilder) { b.Count() }
func (CountStep) Kind() string { return KindCount }
func (CountStep) funcs() []Func { return nil }

// DistinctStep drops duplicate records.
type DistinctStep struct{}

func (DistinctStep) ApplyTo(b EngineBuilder) { b.Distinct() }
func (DistinctStep) Kind() string { return KindDistinct }
func (DistinctStep) funcs() []Func { return nil }

// AggregateStep folds all records into Zero with SeqOp, then merges partial
// accumulators with CombOp.
type AggregateStep struct {
	Zero   any  `json:"zero"`
	SeqOp  Func `json:"seq_op"`
	CombOp Func `json:"comb_op"`
}

func (s AggregateStep) ApplyTo(b EngineBuilder) { b.Aggregate(s.Zero, s.SeqOp, s.CombOp) }
func (AggregateStep) Kind() string { return KindAggregate }
func (s AggregateStep) funcs() []Func { return []Func{s.SeqOp, s.CombOp} }

// AggregateByStep is AggregateStep applied per key returned by Extractor.
type AggregateByStep struct {
	Extractor Func `json:"extractor"`
	Zero      any  `json:"zero"`
	SeqOp     Func `json:"seq_op"`
	CombOp    Func `json:"comb_op"`
}

func (s AggregateByStep) ApplyTo(b EngineBuilder) {
	b.AggregateBy(s.Extractor, s.Zero, s.SeqOp, s.CombOp)
}
func (AggregateByStep) Kind() string { return KindAggregateBy }
func (s AggregateByStep) funcs() []Func { return []Func{s.Extractor, s.SeqOp, s.CombOp} }

// SortStep orders records, descending when Reverse is set.
type SortStep struct {
	Reverse bool `json:"reverse"`
}

func (s SortStep) ApplyTo(b EngineBuilder) { b.Sort(s.Reverse) }
func (SortStep) Kind() string { return KindSort }
func (SortStep) funcs() []Func { return nil }

// LimitStep keeps Count records after skipping Offset.
type LimitStep struct {
	Count  int `json:"count"`
	Offset int `json:"offset"`
}

func (s LimitStep) ApplyTo(b EngineBuilder) { b.Limit(s.Count, s.Offset) }
func (LimitStep) Kind() string { return KindLimit }
func (LimitStep) funcs() []Func { return nil }

// RunStep executes the pipeline once over the reader.
type RunStep struct {
	Arg          any            `json:"arg"`
	ConvertToStr bool           `json:"convert_to_str"`
	Collect      bool           `json:"collect"`
	Kwargs       map[string]any `json:"kwargs,omitempty"`
}

func (s RunStep) ApplyTo(b EngineBuilder) { b.Run(s.Arg, s.ConvertToStr, s.Collect, s.Kwargs) }
func (RunStep) Kind() string { return KindRun }
func (RunStep) funcs() []Func { return nil }

// RegisterStep installs the pipeline as an event-driven registration.
type RegisterStep struct {
	Prefix       string         `json:"prefix"`
	ConvertToStr bool           `json:"convert_to_str"`
	Collect      bool           `json:"collect"`
	Kwargs       map[string]any `json:"kwargs,omitempty"`
}

func (s RegisterStep) ApplyTo(b EngineBuilder) {
	b.Register(s.Prefix, s.ConvertToStr, s.Collect, s.Kwargs)
}
func (RegisterStep) Kind() string { return KindRegister }
func (RegisterStep) funcs() []Func { return nil }
