package bytecode

import (
	"fmt"
	"math"
	"strconv"
)

// ValueType tags the variant held by a Value.
type ValueType uint8

const (
	// ValNumber is a 64-bit floating point number.
	ValNumber ValueType = iota
)

func (t ValueType) String() string {
	switch t {
	case ValNumber:
		return "number"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// Value is a tagged union of the runtime values the VM operates on. Only
// numbers exist today; new variants get a ValueType and a payload field.
type Value struct {
	typ ValueType
	num float64
}

// NumberValue wraps a float64.
func NumberValue(n float64) Value {
	return Value{typ: ValNumber, num: n}
}

// Type returns the variant tag.
func (v Value) Type() ValueType {
	return v.typ
}

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool {
	return v.typ == ValNumber
}

// AsNumber returns the numeric payload. The result is meaningless unless
// IsNumber is true.
func (v Value) AsNumber() float64 {
	return v.num
}

// Equal compares two values by variant and payload.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case ValNumber:
		return v.num == other.num || (math.IsNaN(v.num) && math.IsNaN(other.num))
	}
	return false
}

// String formats the value the way results are printed: numbers use the
// shortest decimal representation that round-trips.
func (v Value) String() string {
	switch v.typ {
	case ValNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return fmt.Sprintf("<%s>", v.typ)
	}
}
