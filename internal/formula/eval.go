package formula

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Bindings maps field keys to raw submitted or sample values. A value may
// be a string, any Go numeric type, a json.Number, or a cty.Value. A nil
// value is treated the same as an absent key.
type Bindings map[string]any

// Clone returns a shallow copy of b.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Evaluate computes the value of node against bindings. It interprets the
// tree only through the four arithmetic operators and never returns NaN
// or an infinity.
func Evaluate(node Node, bindings Bindings) (float64, error) {
	switch n := node.(type) {
	case *Number:
		return n.Value, nil

	case *FieldRef:
		raw, ok := bindings[n.Key]
		if !ok || raw == nil {
			return 0, &MissingDependencyError{Key: n.Key}
		}
		value, ok := toNumber(raw)
		if !ok {
			return 0, &InvalidOperandError{Key: n.Key}
		}
		return value, nil

	case *UnaryMinus:
		value, err := Evaluate(n.Operand, bindings)
		if err != nil {
			return 0, err
		}
		return -value, nil

	case *BinaryOp:
		left, err := Evaluate(n.Left, bindings)
		if err != nil {
			return 0, err
		}
		right, err := Evaluate(n.Right, bindings)
		if err != nil {
			return 0, err
		}
		return apply(n.Op, left, right)

	case nil:
		return 0, ErrNoFormula
	}

	return 0, fmt.Errorf("unsupported expression node %T", node)
}

func apply(op Operator, left, right float64) (float64, error) {
	var result float64
	switch op {
	case OpAdd:
		result = left + right
	case OpSub:
		result = left - right
	case OpMul:
		result = left * right
	case OpDiv:
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		result = left / right
	default:
		return 0, fmt.Errorf("unsupported operator %q", op)
	}

	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, ErrNumericOverflow
	}
	return result, nil
}

// toNumber coerces a raw binding value to a finite float64 using cty's
// string-to-number conversion rules.
func toNumber(raw any) (float64, bool) {
	var val cty.Value

	switch v := raw.(type) {
	case cty.Value:
		val = v
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		val = cty.StringVal(s)
	case json.Number:
		return toNumber(string(v))
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		val = cty.NumberFloatVal(v)
	case float32:
		return toNumber(float64(v))
	default:
		var err error
		val, err = gocty.ToCtyValue(raw, cty.Number)
		if err != nil {
			return 0, false
		}
	}

	val, _ = val.Unmark()
	if val.IsNull() || !val.IsKnown() {
		return 0, false
	}

	num, err := convert.Convert(val, cty.Number)
	if err != nil || num.IsNull() {
		return 0, false
	}

	f, _ := num.AsBigFloat().Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
