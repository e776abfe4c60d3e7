package engine

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/kbukum/gearsclient/errors"
	"github.com/kbukum/gearsclient/gears"
)

// stage appends one operator to a stream of records.
type stage func(x *execution, s *Stream[any]) *Stream[any]

// execution carries per-run state: handler resolution and the errors
// collected from records that failed.
type execution struct {
	engine *Engine
	errs   []any
}

func (x *execution) chain(src *Stream[any], stages []stage) *Stream[any] {
	s := src
	for _, st := range stages {
		s = st(x, s)
	}
	return s
}

func (x *execution) call(f gears.Func, in ...any) (any, error) {
	return x.engine.registry.Call(f, x.engine.runtime, in...)
}

// fail records a per-record failure. The record is dropped by the caller.
func (x *execution) fail(op string, err error) {
	x.errs = append(x.errs, fmt.Sprintf("%s: %v", op, err))
}

func (x *execution) errors() []any {
	if x.errs == nil {
		return []any{}
	}
	return x.errs
}

// each applies fn to every record and flattens its output; a failing
// record is dropped and its error recorded.
func (x *execution) each(op string, s *Stream[any], fn func(rec any) ([]any, error)) *Stream[any] {
	return FlatMap(s, func(_ context.Context, rec any) ([]any, error) {
		out, err := fn(rec)
		if err != nil {
			x.fail(op, err)
			return nil, nil
		}
		return out, nil
	})
}

// emitted is one record's result in a one-to-one stage.
type emitted struct {
	value any
	keep  bool
}

// apply maps every record with fn and drops the ones fn does not keep.
// A failing record is dropped and its error recorded.
func (x *execution) apply(op string, s *Stream[any], fn func(rec any) (any, bool, error)) *Stream[any] {
	results := Map(s, func(_ context.Context, rec any) (emitted, error) {
		out, keep, err := fn(rec)
		if err != nil {
			x.fail(op, err)
			return emitted{}, nil
		}
		return emitted{value: out, keep: keep}, nil
	})
	kept := Filter(results, func(e emitted) bool { return e.keep })
	return Map(kept, func(_ context.Context, e emitted) (any, error) { return e.value, nil })
}

func repartitionStage(extractor gears.Func) stage {
	return func(x *execution, s *Stream[any]) *Stream[any] {
		return x.apply(gears.KindRepartition, s, func(rec any) (any, bool, error) {
			if _, err := x.call(extractor, rec); err != nil {
				return nil, false, err
			}
			return rec, true, nil
		})
	}
}

func mapStage(callback gears.Func) stage {
	return func(x *execution, s *Stream[any]) *Stream[any] {
		return x.apply(gears.KindMap, s, func(rec any) (any, bool, error) {
			out, err := x.call(callback, rec)
			return out, err == nil, err
		})
	}
}

func foreachStage(callback gears.Func) stage {
	return func(x *execution, s *Stream[any]) *Stream[any] {
		return x.apply(gears.KindForeach, s, func(rec any) (any, bool, error) {
			if _, err := x.call(callback, rec); err != nil {
				return nil, false, err
			}
			return rec, true, nil
		})
	}
}

func flatMapStage(callback gears.Func) stage {
	return func(x *execution, s *Stream[any]) *Stream[any] {
		return x.each(gears.KindFlatMap, s, func(rec any) ([]any, error) {
			out, err := x.call(callback, rec)
			if err != nil {
				return nil, err
			}
			return toSlice(gears.KindFlatMap, out)
		})
	}
}

func filterStage(callback gears.Func) stage {
	return func(x *execution, s *Stream[any]) *Stream[any] {
		return x.apply(gears.KindFilter, s, func(rec any) (any, bool, error) {
			out, err := x.call(callback, rec)
			if err != nil {
				return nil, false, err
			}
			keep, ok := out.(bool)
			if !ok {
				return nil, false, errors.TypeMismatch(gears.KindFilter, "bool", out)
			}
			return rec, keep, nil
		})
	}
}

func countByStage(extractor gears.Func) stage {
	return func(x *execution, s *Stream[any]) *Stream[any] {
		return Materialize(s, func(_ context.Context, recs []any) ([]any, error) {
			g := newGroups()
			for _, rec := range recs {
				key, err := x.call(extractor, rec)
				if err != nil {
					x.fail(gears.KindCountBy, err)
					continue
				}
				n, _ := g.lookup(key)
				c, _ := n.(int64)
				g.set(key, c+1)
			}
			return g.records(), nil
		})
	}
}

func avgStage(callback gears.Func) stage {
	return func(x *execution, s *Stream[any]) *Stream[any] {
		return Materialize(s, func(_ context.Context, recs []any) ([]any, error) {
			var sum float64
			var n int
			for _, rec := range recs {
				out, err := x.call(callback, rec)
				if err != nil {
					x.fail(gears.KindAvg, err)
					continue
				}
				f, err := gears.ToFloat(out)
				if err != nil {
					x.fail(gears.KindAvg, err)
					continue
				}
				sum += f
				n++
			}
			if n == 0 {
				return nil, nil
			}
			return []any{sum / float64(n)}, nil
		})
	}
}

func countStage() stage {
	return func(_ *execution, s *Stream[any]) *Stream[any] {
		return Materialize(s, func(_ context.Context, recs []any) ([]any, error) {
			return []any{int64(len(recs))}, nil
		})
	}
}

func distinctStage() stage {
	return func(_ *execution, s *Stream[any]) *Stream[any] {
		return Materialize(s, func(_ context.Context, recs []any) ([]any, error) {
			seen := make(map[string]struct{}, len(recs))
			out := make([]any, 0, len(recs))
			for _, rec := range recs {
				k := identity(rec)
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				out = append(out, rec)
			}
			return out, nil
		})
	}
}

// aggregateStage folds records into a copy of zero with seqOp, then
// merges the partition's accumulator into another copy with combOp.
func aggregateStage(zero any, seqOp, combOp gears.Func) stage {
	return func(x *execution, s *Stream[any]) *Stream[any] {
		return Materialize(s, func(_ context.Context, recs []any) ([]any, error) {
			acc := cloneValue(zero)
			for _, rec := range recs {
				next, err := x.call(seqOp, acc, rec)
				if err != nil {
					x.fail(gears.KindAggregate, err)
					continue
				}
				acc = next
			}
			total, err := x.call(combOp, cloneValue(zero), acc)
			if err != nil {
				x.fail(gears.KindAggregate, err)
				return nil, nil
			}
			return []any{total}, nil
		})
	}
}

func aggregateByStage(extractor gears.Func, zero any, seqOp, combOp gears.Func) stage {
	return func(x *execution, s *Stream[any]) *Stream[any] {
		return Materialize(s, func(_ context.Context, recs []any) ([]any, error) {
			g := newGroups()
			for _, rec := range recs {
				key, err := x.call(extractor, rec)
				if err != nil {
					x.fail(gears.KindAggregateBy, err)
					continue
				}
				acc, ok := g.lookup(key)
				if !ok {
					acc = cloneValue(zero)
				}
				next, err := x.call(seqOp, acc, rec)
				if err != nil {
					x.fail(gears.KindAggregateBy, err)
					continue
				}
				g.set(key, next)
			}
			for i := range g.values {
				total, err := x.call(combOp, cloneValue(zero), g.values[i])
				if err != nil {
					x.fail(gears.KindAggregateBy, err)
					continue
				}
				g.values[i] = total
			}
			return g.records(), nil
		})
	}
}

func sortStage(reverse bool) stage {
	return func(_ *execution, s *Stream[any]) *Stream[any] {
		return Materialize(s, func(_ context.Context, recs []any) ([]any, error) {
			out := append([]any(nil), recs...)
			sort.SliceStable(out, func(i, j int) bool {
				if reverse {
					return compare(out[i], out[j]) > 0
				}
				return compare(out[i], out[j]) < 0
			})
			return out, nil
		})
	}
}

func limitStage(count, offset int) stage {
	if count < 0 {
		count = 0
	}
	if offset < 0 {
		offset = 0
	}
	return func(_ *execution, s *Stream[any]) *Stream[any] {
		return Take(Skip(s, offset), count)
	}
}

// groups keeps per-key accumulators in first-seen key order.
type groups struct {
	index  map[string]int
	order  []any
	values []any
}

func newGroups() *groups {
	return &groups{index: make(map[string]int)}
}

func (g *groups) lookup(key any) (any, bool) {
	if i, ok := g.index[identity(key)]; ok {
		return g.values[i], true
	}
	return nil, false
}

func (g *groups) set(key, v any) {
	id := identity(key)
	if i, ok := g.index[id]; ok {
		g.values[i] = v
		return
	}
	g.index[id] = len(g.order)
	g.order = append(g.order, key)
	g.values = append(g.values, v)
}

func (g *groups) records() []any {
	out := make([]any, len(g.order))
	for i, k := range g.order {
		out[i] = map[string]any{"key": k, "value": g.values[i]}
	}
	return out
}

// identity is a comparable key for a record. fmt prints maps with sorted
// keys, so equal records always agree.
func identity(v any) string {
	return fmt.Sprintf("%T:%v", v, v)
}

// cloneValue returns a deep copy of a JSON-shaped value.
func cloneValue(v any) any {
	b, err := gears.EncodeRecord(v)
	if err != nil {
		return v
	}
	out, err := gears.DecodeRecord(b)
	if err != nil {
		return v
	}
	return out
}

func toSlice(op string, v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.TypeMismatch(op, "slice", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// compare orders numbers numerically, strings lexically and everything
// else by its string form. Numbers sort before other values.
func compare(a, b any) int {
	an, bn := isNumber(a), isNumber(b)
	switch {
	case an && bn:
		fa, _ := gears.ToFloat(a)
		fb, _ := gears.ToFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	return strings.Compare(toString(a), toString(b))
}

// toString renders a record for convertToStr output.
func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case nil:
		return ""
	case fmt.Stringer:
		return t.String()
	}
	if isNumber(v) {
		return fmt.Sprint(v)
	}
	if b, ok := v.(bool); ok {
		return fmt.Sprint(b)
	}
	if enc, err := gears.EncodeRecord(v); err == nil {
		return string(enc)
	}
	return fmt.Sprint(v)
}

// finish shapes collected records for the reply.
func finish(results []any, convertToStr bool) []any {
	out := make([]any, 0, len(results))
	for _, r := range results {
		if convertToStr {
			r = toString(r)
		}
		out = append(out, r)
	}
	return out
}
