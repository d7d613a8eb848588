package lucindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one application-level record: field name to value. Nil values
// are skipped when indexing.
type Record map[string]any

// Range is an inclusive range condition for numeric and date fields. A nil
// bound is open.
type Range struct {
	Min any
	Max any
}

var errNotNumeric = errors.New("not a number")

// rangeOf recognizes Range values and {"min": ..., "max": ...} maps.
func rangeOf(v any) (Range, bool) {
	switch v := v.(type) {
	case Range:
		return v, true
	case *Range:
		if v != nil {
			return *v, true
		}
	case map[string]any:
		lo, hasMin := v["min"]
		hi, hasMax := v["max"]
		if hasMin || hasMax {
			return Range{Min: lo, Max: hi}, true
		}
	}
	return Range{}, false
}

// unwrapValue turns {"value": x} condition maps into x.
func unwrapValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, found := m["value"]; found && len(m) == 1 {
			return inner
		}
	}
	return v
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, errNotNumeric
		}
		return floatToInt64(f)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errNotNumeric
		}
		return floatToInt64(f)
	default:
		return 0, errNotNumeric
	}
}

func uintToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%d overflows int64", v)
	}
	return int64(v), nil
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", f)
	}
	return int64(f), nil
}

func toInt32(v any) (int32, error) {
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%d overflows int32", n)
	}
	return int32(n), nil
}

func toFloat64(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, errNotNumeric
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errNotNumeric
		}
		return f, nil
	default:
		n, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		return float64(n), nil
	}
}

// ensureString converts scalars to their string form.
func ensureString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case json.Number:
		return v.String(), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	if n, err := toInt64(v); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	return "", fmt.Errorf("cannot convert %T to string", v)
}
