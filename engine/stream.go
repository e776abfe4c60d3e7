package engine

import "context"

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Stream is a lazy, pull-based sequence of values. No work happens until
// values are pulled via Collect.
type Stream[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// From creates a stream from an existing Iterator.
func From[T any](iter Iterator[T]) *Stream[T] {
	return &Stream[T]{
		create: func(_ context.Context) Iterator[T] {
			return iter
		},
	}
}

// FromSlice creates a stream from a slice of values.
func FromSlice[T any](items []T) *Stream[T] {
	return &Stream[T]{
		create: func(_ context.Context) Iterator[T] {
			return &sliceIter[T]{items: items}
		},
	}
}

// Collect runs the stream and returns all values as a slice.
func Collect[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	iter := s.create(ctx)
	defer iter.Close()
	var result []T
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			return result, nil
		}
		result = append(result, val)
	}
}

// Map transforms each value using fn.
func Map[I, O any](s *Stream[I], fn func(context.Context, I) (O, error)) *Stream[O] {
	return &Stream[O]{
		create: func(ctx context.Context) Iterator[O] {
			return &mapIter[I, O]{source: s.create(ctx), fn: fn}
		},
	}
}

// FlatMap transforms each value into a slice and flattens the results.
func FlatMap[I, O any](s *Stream[I], fn func(context.Context, I) ([]O, error)) *Stream[O] {
	return &Stream[O]{
		create: func(ctx context.Context) Iterator[O] {
			return &flatMapIter[I, O]{source: s.create(ctx), fn: fn}
		},
	}
}

// Filter keeps only values that satisfy the predicate.
func Filter[T any](s *Stream[T], fn func(T) bool) *Stream[T] {
	return &Stream[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &filterIter[T]{source: s.create(ctx), fn: fn}
		},
	}
}

// Skip drops the first n values.
func Skip[T any](s *Stream[T], n int) *Stream[T] {
	return &Stream[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &skipIter[T]{source: s.create(ctx), n: n}
		},
	}
}

// Take yields at most n values and stops pulling afterwards.
func Take[T any](s *Stream[T], n int) *Stream[T] {
	return &Stream[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &takeIter[T]{source: s.create(ctx), n: n}
		},
	}
}

// Materialize pulls the whole source, hands it to fn, and yields fn's result.
// Used for operators that need every value before emitting any.
func Materialize[I, O any](s *Stream[I], fn func(context.Context, []I) ([]O, error)) *Stream[O] {
	return &Stream[O]{
		create: func(ctx context.Context) Iterator[O] {
			return &materializeIter[I, O]{source: s, fn: fn}
		},
	}
}

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		var zero O
		return zero, false, err
	}
	out, err := it.fn(ctx, val)
	if err != nil {
		var zero O
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type flatMapIter[I, O any] struct {
	source  Iterator[I]
	fn      func(context.Context, I) ([]O, error)
	pending []O
}

func (it *flatMapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	for {
		if len(it.pending) > 0 {
			val := it.pending[0]
			it.pending = it.pending[1:]
			return val, true, nil
		}
		in, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero O
			return zero, false, err
		}
		out, err := it.fn(ctx, in)
		if err != nil {
			var zero O
			return zero, false, err
		}
		it.pending = out
	}
}

func (it *flatMapIter[I, O]) Close() error { return it.source.Close() }

type filterIter[T any] struct {
	source Iterator[T]
	fn     func(T) bool
}

func (it *filterIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		if it.fn(val) {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }

type skipIter[T any] struct {
	source  Iterator[T]
	n       int
	skipped bool
}

func (it *skipIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if !it.skipped {
		it.skipped = true
		for i := 0; i < it.n; i++ {
			if _, ok, err := it.source.Next(ctx); err != nil || !ok {
				var zero T
				return zero, false, err
			}
		}
	}
	return it.source.Next(ctx)
}

func (it *skipIter[T]) Close() error { return it.source.Close() }

type takeIter[T any] struct {
	source Iterator[T]
	n      int
	taken  int
}

func (it *takeIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if it.taken >= it.n {
		var zero T
		return zero, false, nil
	}
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, false, err
	}
	it.taken++
	return val, true, nil
}

func (it *takeIter[T]) Close() error { return it.source.Close() }

type materializeIter[I, O any] struct {
	source *Stream[I]
	fn     func(context.Context, []I) ([]O, error)
	out    []O
	done   bool
}

func (it *materializeIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	if !it.done {
		it.done = true
		in, err := Collect(ctx, it.source)
		if err != nil {
			var zero O
			return zero, false, err
		}
		if it.out, err = it.fn(ctx, in); err != nil {
			var zero O
			return zero, false, err
		}
	}
	if len(it.out) == 0 {
		var zero O
		return zero, false, nil
	}
	val := it.out[0]
	it.out = it.out[1:]
	return val, true, nil
}

func (it *materializeIter[I, O]) Close() error { return nil }
