package expr

import "strconv"

// Value is a numeric result: either an integer or a float. Operator
// semantics decide promotion — division and non-integer powers yield
// floats, everything else preserves integer operands.
type Value struct {
	isFloat bool
	i       int64
	f       float64
}

// IntValue creates an integer Value.
func IntValue(i int64) Value {
	return Value{i: i}
}

// FloatValue creates a float Value.
func FloatValue(f float64) Value {
	return Value{isFloat: true, f: f}
}

// IsFloat reports whether the value is a float.
func (v Value) IsFloat() bool { return v.isFloat }

// Int returns the value as an int64. Floats are truncated.
func (v Value) Int() int64 {
	if v.isFloat {
		return int64(v.f)
	}
	return v.i
}

// Float returns the value as a float64.
func (v Value) Float() float64 {
	if v.isFloat {
		return v.f
	}
	return float64(v.i)
}

// String renders the value for replies: integers without a decimal point,
// floats in Go's shortest form.
func (v Value) String() string {
	if v.isFloat {
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	return strconv.FormatInt(v.i, 10)
}
