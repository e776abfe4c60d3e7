package gears

import (
	"reflect"
	"testing"
)

func TestPipelineRecordsCallsInOrder(t *testing.T) {
	p := NewPipeline(DefaultReader, DefaultReaderArg)
	p.Map(Fn("test.square")).Filter(Fn("test.is_even")).Sort(false).Limit(3, 0)
	p.Run("key:*", true, false, nil)

	rb := replay(p)
	want := []string{KindMap, KindFilter, KindSort, KindLimit, KindRun}
	if !stringsEqual(rb.ops(), want) {
		t.Fatalf("expected %v, got %v", want, rb.ops())
	}
	if rb.reader != DefaultReader || rb.defaultArg != DefaultReaderArg {
		t.Errorf("factory got reader %q arg %v", rb.reader, rb.defaultArg)
	}

	run := rb.calls[4]
	if run.args[0] != "key:*" || run.args[1] != true || run.args[2] != false {
		t.Errorf("run arguments not forwarded: %v", run.args)
	}
}

func TestPipelineDefaults(t *testing.T) {
	p := NewPipeline(DefaultReader, DefaultReaderArg).CountBy(Func{}).Avg(Func{})
	steps := p.Steps()

	if got := steps[0].(CountByStep).Extractor.Name(); got != IdentityFunc {
		t.Errorf("expected countby default %q, got %q", IdentityFunc, got)
	}
	if got := steps[1].(AvgStep).Callback.Name(); got != ToFloatFunc {
		t.Errorf("expected avg default %q, got %q", ToFloatFunc, got)
	}
}

func TestPipelineCountDistinctTakeNoArgs(t *testing.T) {
	rb := replay(NewPipeline("R", nil).Count().Distinct())
	for _, c := range rb.calls {
		if len(c.args) != 0 {
			t.Errorf("%s: expected no args, got %v", c.op, c.args)
		}
	}
}

func TestPipelineStepsIsCopy(t *testing.T) {
	p := NewPipeline("R", nil).Count()
	steps := p.Steps()
	steps[0] = DistinctStep{}
	if p.Steps()[0].Kind() != KindCount {
		t.Error("Steps exposed internal slice")
	}
}

func TestPipelineClone(t *testing.T) {
	p := NewPipeline("R", nil).Count()
	c := p.Clone()
	c.Distinct()
	if p.Len() != 1 || c.Len() != 2 {
		t.Errorf("clone shares steps: original %d, clone %d", p.Len(), c.Len())
	}
}

func TestPipelineRunCopiesKwargs(t *testing.T) {
	kwargs := map[string]any{"a": 1}
	p := NewPipeline("R", nil)
	p.Register("*", true, true, kwargs)
	kwargs["a"] = 2

	reg := p.Steps()[0].(RegisterStep)
	if reg.Kwargs["a"] != 1 {
		t.Errorf("register step mutated through caller map: %v", reg.Kwargs)
	}
}

func TestPipelineStepsDoNotShareCallerState(t *testing.T) {
	zero := map[string]any{"n": int64(0)}
	captured := map[string]any{"delta": int64(1)}
	p := NewPipeline("R", nil).
		Aggregate(zero, Fn("test.sum", captured), Fn("test.sum")).
		AggregateBy(Fn(IdentityFunc), zero, Fn("test.sum"), Fn("test.sum"))
	zero["n"] = int64(99)
	captured["delta"] = int64(99)
	p.Run(nil, false, true, nil)

	payload, err := EncodePipeline(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodePipeline(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	steps := decoded.Steps()

	want := map[string]any{"n": int64(0)}
	if got := steps[0].(AggregateStep).Zero; !reflect.DeepEqual(got, want) {
		t.Errorf("aggregate zero changed after construction: %v", got)
	}
	if got := steps[1].(AggregateByStep).Zero; !reflect.DeepEqual(got, want) {
		t.Errorf("aggregateby zero changed after construction: %v", got)
	}

	args, err := steps[0].(AggregateStep).SeqOp.encodedArgs()
	if err != nil {
		t.Fatalf("args: %v", err)
	}
	var arg struct {
		Delta int64 `json:"delta"`
	}
	if err := (&Env{name: "test.sum", args: args}).Arg(0, &arg); err != nil {
		t.Fatalf("arg: %v", err)
	}
	if arg.Delta != 1 {
		t.Errorf("captured value changed after construction: %d", arg.Delta)
	}
}

func TestPipelineDefersUnencodableZero(t *testing.T) {
	p := NewPipeline("R", nil).Aggregate(make(chan int), Fn("test.sum"), Fn("test.sum"))
	if p.Len() != 1 {
		t.Fatalf("expected the step to be recorded, got %d steps", p.Len())
	}
	if _, err := EncodePipeline(p); err == nil {
		t.Error("expected encoding to fail")
	}
}
