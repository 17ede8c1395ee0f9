package expr

import (
	"errors"
	"fmt"
	"math"
)

// maxIntExponent bounds integer exponentiation. Larger exponents either
// overflow int64 long before this or take unbounded time, so they are
// rejected instead of computed.
const maxIntExponent = 1 << 20

// EvalError is the single failure kind the evaluator produces. Malformed
// syntax, disallowed constructs, and arithmetic faults (division by zero,
// overflow) all collapse into it; callers only learn that the input was
// invalid.
type EvalError struct {
	Input string
	err   error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("invalid expression %q: %v", e.Input, e.err)
}

func (e *EvalError) Unwrap() error { return e.err }

// Evaluate parses and evaluates input. It is pure and stateless: safe for
// concurrent use, no side effects on failure.
func Evaluate(input string) (Value, error) {
	node, err := Parse(input)
	if err != nil {
		return Value{}, &EvalError{Input: input, err: err}
	}
	v, err := eval(node)
	if err != nil {
		return Value{}, &EvalError{Input: input, err: err}
	}
	return v, nil
}

var (
	errDivisionByZero = errors.New("division by zero")
	errOverflow       = errors.New("numeric overflow")
)

func eval(node Node) (Value, error) {
	switch n := node.(type) {
	case *Literal:
		return n.Value, nil
	case *Unary:
		operand, err := eval(n.Operand)
		if err != nil {
			return Value{}, err
		}
		return negate(operand)
	case *Binary:
		left, err := eval(n.Left)
		if err != nil {
			return Value{}, err
		}
		right, err := eval(n.Right)
		if err != nil {
			return Value{}, err
		}
		return apply(n.Op, left, right)
	default:
		// Unreachable: Node is sealed to the three shapes above.
		return Value{}, fmt.Errorf("unsupported node %T", node)
	}
}

func negate(v Value) (Value, error) {
	if v.IsFloat() {
		return FloatValue(-v.Float()), nil
	}
	if v.Int() == math.MinInt64 {
		return Value{}, errOverflow
	}
	return IntValue(-v.Int()), nil
}

// apply dispatches on the operator tag. The switch is exhaustive over the
// whitelisted set; the parser cannot produce any other tag.
func apply(op BinaryOp, a, b Value) (Value, error) {
	switch op {
	case OpAdd:
		return add(a, b)
	case OpSub:
		return sub(a, b)
	case OpMul:
		return mul(a, b)
	case OpDiv:
		return div(a, b)
	case OpMod:
		return mod(a, b)
	case OpPow:
		return pow(a, b)
	case OpFloorDiv:
		return floorDiv(a, b)
	default:
		return Value{}, fmt.Errorf("unsupported operator %q", op)
	}
}

func bothInt(a, b Value) bool {
	return !a.IsFloat() && !b.IsFloat()
}

func add(a, b Value) (Value, error) {
	if bothInt(a, b) {
		sum := a.Int() + b.Int()
		if (sum > a.Int()) != (b.Int() > 0) {
			return Value{}, errOverflow
		}
		return IntValue(sum), nil
	}
	return finite(a.Float() + b.Float())
}

func sub(a, b Value) (Value, error) {
	if bothInt(a, b) {
		diff := a.Int() - b.Int()
		if (diff < a.Int()) != (b.Int() > 0) {
			return Value{}, errOverflow
		}
		return IntValue(diff), nil
	}
	return finite(a.Float() - b.Float())
}

func mul(a, b Value) (Value, error) {
	if bothInt(a, b) {
		x, y := a.Int(), b.Int()
		if x == 0 || y == 0 {
			return IntValue(0), nil
		}
		prod := x * y
		if prod/y != x || (x == math.MinInt64 && y == -1) {
			return Value{}, errOverflow
		}
		return IntValue(prod), nil
	}
	return finite(a.Float() * b.Float())
}

// div is true division: the result is always a float.
func div(a, b Value) (Value, error) {
	if b.Float() == 0 {
		return Value{}, errDivisionByZero
	}
	return finite(a.Float() / b.Float())
}

// mod uses floored semantics: the result takes the sign of the divisor,
// so 7%2 is 1 and -7%2 is also 1.
func mod(a, b Value) (Value, error) {
	if b.Float() == 0 {
		return Value{}, errDivisionByZero
	}
	if bothInt(a, b) {
		r := a.Int() % b.Int()
		if r != 0 && (r < 0) != (b.Int() < 0) {
			r += b.Int()
		}
		return IntValue(r), nil
	}
	r := math.Mod(a.Float(), b.Float())
	if r != 0 && (r < 0) != (b.Float() < 0) {
		r += b.Float()
	}
	return finite(r)
}

// floorDiv rounds the quotient toward negative infinity. Integer operands
// stay integral.
func floorDiv(a, b Value) (Value, error) {
	if b.Float() == 0 {
		return Value{}, errDivisionByZero
	}
	if bothInt(a, b) {
		if a.Int() == math.MinInt64 && b.Int() == -1 {
			return Value{}, errOverflow
		}
		q := a.Int() / b.Int()
		if a.Int()%b.Int() != 0 && (a.Int() < 0) != (b.Int() < 0) {
			q--
		}
		return IntValue(q), nil
	}
	return finite(math.Floor(a.Float() / b.Float()))
}

// pow keeps integer results for non-negative integer exponents and falls
// back to float exponentiation otherwise. Exponent magnitude is capped and
// non-finite results are rejected rather than returned.
func pow(a, b Value) (Value, error) {
	if bothInt(a, b) && b.Int() >= 0 {
		if b.Int() > maxIntExponent {
			return Value{}, errOverflow
		}
		return intPow(a.Int(), b.Int())
	}
	if a.Float() == 0 && b.Float() < 0 {
		return Value{}, errDivisionByZero
	}
	return finite(math.Pow(a.Float(), b.Float()))
}

func intPow(base, exp int64) (Value, error) {
	result := IntValue(1)
	factor := IntValue(base)
	for exp > 0 {
		var err error
		if exp&1 == 1 {
			result, err = mul(result, factor)
			if err != nil {
				return Value{}, err
			}
		}
		exp >>= 1
		if exp > 0 {
			factor, err = mul(factor, factor)
			if err != nil {
				return Value{}, err
			}
		}
	}
	return result, nil
}

func finite(f float64) (Value, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, errOverflow
	}
	return FloatValue(f), nil
}
