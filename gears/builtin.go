package gears

import (
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/kbukum/gearsclient/errors"
)

// Handlers every node registers.
const (
	// IdentityFunc returns its input. CountBy uses it when no extractor is given.
	IdentityFunc = "gears.identity"
	// ToFloatFunc converts its input to float64. Avg uses it when no callback is given.
	ToFloatFunc = "gears.to_float"
	// EncodeRecordFunc turns a record into its wire form. Run appends it.
	EncodeRecordFunc = "gears.encode_record"
)

func init() {
	RegisterFunc(IdentityFunc, func(_ *Env, in ...any) (any, error) {
		if len(in) == 0 {
			return nil, nil
		}
		return in[0], nil
	})
	RegisterFunc(ToFloatFunc, func(_ *Env, in ...any) (any, error) {
		if len(in) == 0 {
			return nil, errors.InvalidInput("record", "missing")
		}
		return ToFloat(in[0])
	})
	RegisterFunc(EncodeRecordFunc, func(_ *Env, in ...any) (any, error) {
		if len(in) == 0 {
			return nil, errors.InvalidInput("record", "missing")
		}
		b, err := EncodeRecord(in[0])
		if err != nil {
			return nil, err
		}
		return string(b), nil
	})
}

// ToFloat converts numeric records, numeric strings and booleans to float64.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, errors.TypeMismatch("to_float", "number", v).WithCause(err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, errors.TypeMismatch("to_float", "number", v).WithCause(err)
		}
		return f, nil
	case []byte:
		return ToFloat(string(n))
	default:
		return 0, errors.TypeMismatch("to_float", "number", v)
	}
}

// ToInt converts integral records to int64.
func ToInt(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errors.TypeMismatch("to_int", "integer", v).WithCause(err)
		}
		return i, nil
	case []byte:
		return ToInt(string(n))
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, errors.TypeMismatch("to_int", "integer", v)
	}
	if f != float64(int64(f)) {
		return 0, errors.TypeMismatch("to_int", "integer", v)
	}
	return int64(f), nil
}
