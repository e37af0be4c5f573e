package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

var (
	errNotInteger = errors.New("non-integer numeric for integer field")
	errOverflow   = errors.New("value out of range")
)

// intToInt64 widens any Go integer to int64, rejecting unsigned values above
// math.MaxInt64.
func intToInt64[T constraints.Integer](x T) (int64, error) {
	if x < 0 {
		return int64(x), nil
	}
	if uint64(x) > math.MaxInt64 {
		return 0, errOverflow
	}
	return int64(x), nil
}

// intToUint64 widens any non-negative Go integer to uint64.
func intToUint64[T constraints.Integer](x T) (uint64, error) {
	if x < 0 {
		return 0, errOverflow
	}
	return uint64(x), nil
}

// signed narrows v to T when it fits.
func signed[T constraints.Signed](v interface{}) (T, error) {
	n, err := coerceToInt64(v)
	if err != nil {
		return 0, err
	}
	if int64(T(n)) != n {
		return 0, fmt.Errorf("%w: %d", errOverflow, n)
	}
	return T(n), nil
}

// unsigned narrows v to T when it fits.
func unsigned[T constraints.Unsigned](v interface{}) (T, error) {
	n, err := coerceToUint64(v)
	if err != nil {
		return 0, err
	}
	if uint64(T(n)) != n {
		return 0, fmt.Errorf("%w: %d", errOverflow, n)
	}
	return T(n), nil
}

func integral[F constraints.Float](f F) bool {
	x := float64(f)
	return !math.IsInf(x, 0) && !math.IsNaN(x) && x == math.Trunc(x)
}

// longBits reads a {low, high, unsigned} object as the 64 bits it describes.
func longBits(m map[string]interface{}) (bits uint64, isUnsigned, ok bool) {
	low, okLow := m["low"]
	high, okHigh := m["high"]
	if !okLow || !okHigh {
		return 0, false, false
	}
	lo, err := coerceToInt64(low)
	if err != nil {
		return 0, false, false
	}
	hi, err := coerceToInt64(high)
	if err != nil {
		return 0, false, false
	}
	isUnsigned, _ = m["unsigned"].(bool)
	return uint64(uint32(hi))<<32 | uint64(uint32(lo)), isUnsigned, true
}

// Helpers to coerce JSON inputs to integers (accept exponent/float forms if integral)
func coerceToInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int:
		return intToInt64(t)
	case int8:
		return intToInt64(t)
	case int16:
		return intToInt64(t)
	case int32:
		return intToInt64(t)
	case int64:
		return t, nil
	case uint:
		return intToInt64(t)
	case uint8:
		return intToInt64(t)
	case uint16:
		return intToInt64(t)
	case uint32:
		return intToInt64(t)
	case uint64:
		return intToInt64(t)
	case float32:
		return floatToInt64(float64(t))
	case float64:
		return floatToInt64(t)
	case json.Number:
		// Try integer first
		if iv, err := t.Int64(); err == nil {
			return iv, nil
		}
		return stringToInt64(t.String())
	case string:
		return stringToInt64(t)
	case map[string]interface{}:
		if bits, _, ok := longBits(t); ok {
			return int64(bits), nil
		}
	}
	return 0, fmt.Errorf("expected integer-like, got %T", v)
}

func coerceToUint64(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case int:
		return intToUint64(t)
	case int8:
		return intToUint64(t)
	case int16:
		return intToUint64(t)
	case int32:
		return intToUint64(t)
	case int64:
		return intToUint64(t)
	case uint:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	case float32:
		return floatToUint64(float64(t))
	case float64:
		return floatToUint64(t)
	case json.Number:
		if uv, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return uv, nil
		}
		return stringToUint64(t.String())
	case string:
		return stringToUint64(t)
	case map[string]interface{}:
		if bits, _, ok := longBits(t); ok {
			return bits, nil
		}
	}
	return 0, fmt.Errorf("expected unsigned-integer-like, got %T", v)
}

func floatToInt64(f float64) (int64, error) {
	if !integral(f) {
		return 0, errNotInteger
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errOverflow
	}
	return int64(f), nil
}

func floatToUint64(f float64) (uint64, error) {
	if !integral(f) {
		return 0, errNotInteger
	}
	if f < 0 || f >= math.MaxUint64 {
		return 0, errOverflow
	}
	return uint64(f), nil
}

func stringToInt64(s string) (int64, error) {
	s = strings.TrimSpace(s)
	// allow explicit integer strings
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return floatToInt64(f)
	}
	return strconv.ParseInt(s, 10, 64)
}

func stringToUint64(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return floatToUint64(f)
	}
	return strconv.ParseUint(s, 10, 64)
}

// coerceToFloat64 accepts any Go number, json.Number, numeric strings and the
// JSON spellings of the non-finite values.
func coerceToFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		return strconv.ParseFloat(t.String(), 64)
	case string:
		switch t {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	if isGoInteger(v) {
		if n, err := coerceToInt64(v); err == nil {
			return float64(n), nil
		}
		n, err := coerceToUint64(v)
		return float64(n), err
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func isGoInteger(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isGoNumber(v interface{}) bool {
	switch v.(type) {
	case float32, float64, json.Number:
		return true
	}
	return isGoInteger(v)
}
