package ir

import (
	"fmt"
	"math"
	"strconv"
)

// IRValue is a sealed interface representing literal values inside expressions.
// Only IRNull, IRString, IRInt, IRFloat and IRBool implement this.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents SQL NULL.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string literal.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer literal.
type IRInt int64

func (IRInt) irValue() {}

// IRFloat represents a floating point literal.
// NaN and infinities are rejected by FromAny.
type IRFloat float64

func (IRFloat) irValue() {}

// IRBool represents a boolean literal.
type IRBool bool

func (IRBool) irValue() {}

// FromAny converts a decoded YAML/JSON scalar to an IRValue.
// Returns an error for nested structures and non-finite floats.
func FromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return IRInt(val), nil
	case float32:
		return FromAny(float64(val))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("non-finite float %v cannot be a literal", val)
		}
		return IRFloat(val), nil
	default:
		return nil, fmt.Errorf("unsupported literal type %T", v)
	}
}

// Text returns the source form of a literal, as it would be written in an
// expression. Strings are single-quoted without escaping.
func Text(v IRValue) string {
	switch val := v.(type) {
	case IRNull:
		return "NULL"
	case IRString:
		return "'" + string(val) + "'"
	case IRInt:
		return strconv.FormatInt(int64(val), 10)
	case IRFloat:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case IRBool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", v)
	}
}
