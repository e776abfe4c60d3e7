package gears

import (
	"bytes"
	"fmt"
	"math"

	json "github.com/goccy/go-json"

	"github.com/kbukum/gearsclient/errors"
)

// wireVersion is bumped on incompatible pipeline encoding changes.
const wireVersion = 1

type pipelineWire struct {
	Version    int        `json:"v"`
	Reader     string     `json:"reader"`
	DefaultArg any        `json:"default_arg"`
	Steps      []stepWire `json:"steps"`
}

type stepWire struct {
	Op   string          `json:"op"`
	Step json.RawMessage `json:"step"`
}

// EncodePipeline serializes p, user logic included. It fails with
// NOT_SERIALIZABLE if any Func is unregistered or captures a value that
// cannot be encoded.
func EncodePipeline(p *Pipeline) ([]byte, error) {
	if err := p.check(DefaultRegistry); err != nil {
		return nil, err
	}
	w := pipelineWire{
		Version:    wireVersion,
		Reader:     p.reader,
		DefaultArg: p.defaultArg,
		Steps:      make([]stepWire, 0, len(p.steps)),
	}
	for i, s := range p.steps {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, notSerializable(fmt.Sprintf("step %d (%s)", i, s.Kind()), err)
		}
		w.Steps = append(w.Steps, stepWire{Op: s.Kind(), Step: b})
	}
	out, err := json.Marshal(w)
	if err != nil {
		return nil, notSerializable("pipeline", err)
	}
	return out, nil
}

// notSerializable keeps an AppError raised inside a marshaler intact.
func notSerializable(what string, err error) error {
	if errors.Is(err, errors.ErrCodeNotSerializable) {
		return err
	}
	return errors.NotSerializable(what, err)
}

var stepDecoders = map[string]func(json.RawMessage) (Step, error){
	KindRepartition: decodeStep[RepartitionStep],
	KindMap:         decodeStep[MapStep],
	KindForeach:     decodeStep[ForeachStep],
	KindFlatMap:     decodeStep[FlatMapStep],
	KindFilter:      decodeStep[FilterStep],
	KindCountBy:     decodeStep[CountByStep],
	KindAvg:         decodeStep[AvgStep],
	KindCount:       decodeStep[CountStep],
	KindDistinct:    decodeStep[DistinctStep],
	KindAggregate:   decodeStep[AggregateStep],
	KindAggregateBy: decodeStep[AggregateByStep],
	KindSort:        decodeStep[SortStep],
	KindLimit:       decodeStep[LimitStep],
	KindRun:         decodeStep[RunStep],
	KindRegister:    decodeStep[RegisterStep],
}

func decodeStep[S Step](raw json.RawMessage) (Step, error) {
	var s S
	if err := unmarshalNumbers(raw, &s); err != nil {
		return nil, err
	}
	return normalizeStep(s), nil
}

// normalizeStep converts decoded numbers held in untyped fields.
func normalizeStep(s Step) Step {
	switch v := s.(type) {
	case AggregateStep:
		v.Zero = normalize(v.Zero)
		return v
	case AggregateByStep:
		v.Zero = normalize(v.Zero)
		return v
	case RunStep:
		v.Arg = normalize(v.Arg)
		v.Kwargs = normalizeMap(v.Kwargs)
		return v
	case RegisterStep:
		v.Kwargs = normalizeMap(v.Kwargs)
		return v
	}
	return s
}

// DecodePipeline is the inverse of EncodePipeline.
func DecodePipeline(data []byte) (*Pipeline, error) {
	var w pipelineWire
	if err := unmarshalNumbers(data, &w); err != nil {
		return nil, errors.DecodeFailed("pipeline", err)
	}
	if w.Version != wireVersion {
		return nil, errors.DecodeFailed("pipeline", fmt.Errorf("unsupported wire version %d", w.Version))
	}
	p := &Pipeline{
		reader:     w.Reader,
		defaultArg: normalize(w.DefaultArg),
		steps:      make([]Step, 0, len(w.Steps)),
	}
	for i, sw := range w.Steps {
		decode, ok := stepDecoders[sw.Op]
		if !ok {
			return nil, errors.DecodeFailed(fmt.Sprintf("step %d", i), fmt.Errorf("unknown operator %q", sw.Op))
		}
		s, err := decode(sw.Step)
		if err != nil {
			return nil, errors.DecodeFailed(fmt.Sprintf("step %d (%s)", i, sw.Op), err)
		}
		p.steps = append(p.steps, s)
	}
	return p, nil
}

// EncodeRecord renders a record in the wire form the client decodes.
func EncodeRecord(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.NotSerializable(fmt.Sprintf("record of type %T", v), err)
	}
	return b, nil
}

// DecodeRecord is the inverse of EncodeRecord. Integral numbers decode as
// int64, other numbers as float64.
func DecodeRecord(data []byte) (any, error) {
	var v any
	if err := unmarshalNumbers(data, &v); err != nil {
		return nil, errors.DecodeFailed("record", err)
	}
	return normalize(v), nil
}

func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			if !math.IsInf(f, 0) {
				return f
			}
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case map[string]any:
		return normalizeMap(t)
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalize(v)
	}
	return m
}
