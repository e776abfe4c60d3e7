package engine

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/kbukum/gearsclient/errors"
)

// Snapshot returns the key/value pairs a KeysReader scans.
type Snapshot func(ctx context.Context) (map[string]any, error)

// KeysReader scans the keys returned by snap that match the glob pattern
// given as the reader argument, in key order. Records have the shape
// {"key": k, "value": v}.
func KeysReader(snap Snapshot) Reader {
	return func(ctx context.Context, arg any, _ map[string]any) (Iterator[any], error) {
		pattern, ok := arg.(string)
		if !ok {
			return nil, errors.InvalidInput("arg", fmt.Sprintf("KeysReader expects a glob pattern, got %T", arg))
		}
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, errors.InvalidInput("arg", err.Error())
		}
		data, err := snap(ctx)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(data))
		for k := range data {
			if ok, _ := path.Match(pattern, k); ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		recs := make([]any, len(keys))
		for i, k := range keys {
			recs[i] = KeyRecord(k, data[k])
		}
		return &sliceIter[any]{items: recs}, nil
	}
}

// ValuesReader yields values as records regardless of the argument.
func ValuesReader(values ...any) Reader {
	return func(_ context.Context, _ any, _ map[string]any) (Iterator[any], error) {
		return &sliceIter[any]{items: values}, nil
	}
}
