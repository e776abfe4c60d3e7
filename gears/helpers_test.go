package gears

import (
	"context"
	"fmt"
	"sync"
)

func init() {
	RegisterFunc("test.is_even", func(_ *Env, in ...any) (any, error) {
		n, err := recordInt(in[0])
		if err != nil {
			return nil, err
		}
		return n%2 == 0, nil
	})
	RegisterFunc("test.square", func(_ *Env, in ...any) (any, error) {
		n, err := recordInt(in[0])
		if err != nil {
			return nil, err
		}
		return n * n, nil
	})
	RegisterFunc("test.add", func(env *Env, in ...any) (any, error) {
		var delta int64
		if err := env.Arg(0, &delta); err != nil {
			return nil, err
		}
		n, err := ToInt(in[0])
		if err != nil {
			return nil, err
		}
		return n + delta, nil
	})
	RegisterFunc("test.panic", func(_ *Env, _ ...any) (any, error) {
		panic("boom")
	})
	RegisterFunc("test.sum", func(_ *Env, in ...any) (any, error) {
		a, err := ToInt(in[0])
		if err != nil {
			return nil, err
		}
		b, err := recordInt(in[1])
		if err != nil {
			return nil, err
		}
		return a + b, nil
	})
}

// recordInt reads an integer from a key record or a bare value.
func recordInt(rec any) (int64, error) {
	if m, ok := rec.(map[string]any); ok {
		rec = m["value"]
	}
	return ToInt(rec)
}

// call is one method invocation seen by recordingBuilder.
type call struct {
	op   string
	args []any
}

// recordingBuilder is an EngineBuilder that records every call.
type recordingBuilder struct {
	reader     string
	defaultArg any
	calls      []call
}

func (r *recordingBuilder) rec(op string, args ...any) {
	r.calls = append(r.calls, call{op: op, args: args})
}

func (r *recordingBuilder) Repartition(f Func) { r.rec(KindRepartition, f) }
func (r *recordingBuilder) Map(f Func) { r.rec(KindMap, f) }
func (r *recordingBuilder) Foreach(f Func) { r.rec(KindForeach, f) }
func (r *recordingBuilder) FlatMap(f Func) { r.rec(KindFlatMap, f) }
func (r *recordingBuilder) Filter(f Func) { r.rec(KindFilter, f) }
func (r *recordingBuilder) CountBy(f Func) { r.rec(KindCountBy, f) }
func (r *recordingBuilder) Avg(f Func) { r.rec(KindAvg, f) }
func (r *recordingBuilder) Count() { r.rec(KindCount) }
func (r *recordingBuilder) Distinct() { r.rec(KindDistinct) }
func (r *recordingBuilder) Sort(reverse bool) { r.rec(KindSort, reverse) }
func (r *recordingBuilder) Limit(count, offset int) {
	r.rec(KindLimit, count, offset)
}
func (r *recordingBuilder) Aggregate(zero any, seqOp, combOp Func) {
	r.rec(KindAggregate, zero, seqOp, combOp)
}
func (r *recordingBuilder) AggregateBy(extractor Func, zero any, seqOp, combOp Func) {
	r.rec(KindAggregateBy, extractor, zero, seqOp, combOp)
}
func (r *recordingBuilder) Run(arg any, convertToStr, collect bool, kwargs map[string]any) {
	r.rec(KindRun, arg, convertToStr, collect, kwargs)
}
func (r *recordingBuilder) Register(prefix string, convertToStr, collect bool, kwargs map[string]any) {
	r.rec(KindRegister, prefix, convertToStr, collect, kwargs)
}

func (r *recordingBuilder) ops() []string {
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.op
	}
	return out
}

func replay(p *Pipeline) *recordingBuilder {
	var rb *recordingBuilder
	p.CreateAndRun(func(reader string, defaultArg any) EngineBuilder {
		rb = &recordingBuilder{reader: reader, defaultArg: defaultArg}
		return rb
	})
	return rb
}

// fakeConn answers every command with reply/err and keeps the arguments.
type fakeConn struct {
	mu    sync.Mutex
	reply any
	err   error
	calls [][]any
}

func (c *fakeConn) Do(_ context.Context, args ...any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, args)
	return c.reply, c.err
}

// sentPipeline decodes the pipeline carried by command i.
func (c *fakeConn) sentPipeline(i int) (*Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.calls) {
		return nil, fmt.Errorf("no call %d", i)
	}
	payload, err := ParseBootstrap(c.calls[i][1].(string))
	if err != nil {
		return nil, err
	}
	return DecodePipeline(payload)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
