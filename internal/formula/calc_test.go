package formula

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFormula(t *testing.T) {
	t.Run("empty formula is valid", func(t *testing.T) {
		assert.Equal(t, Validation{IsValid: true}, ValidateFormula(""))
		assert.Equal(t, Validation{IsValid: true}, ValidateFormula("  \t "))
	})

	t.Run("well-formed formula is valid", func(t *testing.T) {
		v := ValidateFormula("{loanAmount} * {interestRate} / 100")
		assert.True(t, v.IsValid)
		assert.Empty(t, v.Error)
		assert.Nil(t, v.Position)
	})

	t.Run("references to unknown fields are still valid", func(t *testing.T) {
		assert.True(t, ValidateFormula("{doesnotexist} + 1").IsValid)
	})

	t.Run("trailing operator points at the operator", func(t *testing.T) {
		v := ValidateFormula("{a} + ")
		assert.False(t, v.IsValid)
		require.NotNil(t, v.Position)
		assert.Equal(t, 4, *v.Position)
		assert.Equal(t, "Missing operand after operator '+' at position 4", v.Error)
	})

	t.Run("message is user-ready", func(t *testing.T) {
		v := ValidateFormula("{price} * $7")
		assert.False(t, v.IsValid)
		assert.Equal(t, "Unexpected character '$' at position 10", v.Error)
	})

	t.Run("repeated calls agree", func(t *testing.T) {
		for _, text := range []string{"{a} + ", "{a} + {b}", "", "(("} {
			first := ValidateFormula(text)
			for range 10 {
				assert.Equal(t, first, ValidateFormula(text))
			}
		}
	})
}

func TestExtractDependencies(t *testing.T) {
	testCases := []struct {
		formula  string
		expected []string
	}{
		{formula: "{a} + {b} * {a}", expected: []string{"a", "b"}},
		{formula: "{zeta} - {alpha} / {mid}", expected: []string{"alpha", "mid", "zeta"}},
		{formula: "-(-{x})", expected: []string{"x"}},
		{formula: "1 + 2", expected: []string{}},
		{formula: "", expected: []string{}},
		{formula: "{a} + ", expected: []string{}},
		{formula: "{a} + {b", expected: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.formula, func(t *testing.T) {
			deps := ExtractDependencies(tc.formula)
			require.NotNil(t, deps)
			assert.Equal(t, tc.expected, deps)
		})
	}
}

func TestCalculateValue(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		calc := CalculateValue("{a} * {b}", Bindings{"a": "6", "b": 7})
		require.NoError(t, calc.Err)
		require.NotNil(t, calc.Result)
		assert.Equal(t, 42.0, *calc.Result)
		assert.Empty(t, calc.Kind())
	})

	t.Run("division by zero", func(t *testing.T) {
		calc := CalculateValue("{a} / {b}", Bindings{"a": "10", "b": "0"})
		assert.Nil(t, calc.Result)
		assert.ErrorIs(t, calc.Err, ErrDivisionByZero)
		assert.Equal(t, KindDivisionByZero, calc.Kind())
	})

	t.Run("missing dependency", func(t *testing.T) {
		calc := CalculateValue("{a} + {b}", Bindings{"a": "10"})
		assert.Nil(t, calc.Result)
		var missing *MissingDependencyError
		require.ErrorAs(t, calc.Err, &missing)
		assert.Equal(t, "b", missing.Key)
	})

	t.Run("no formula is distinct", func(t *testing.T) {
		calc := CalculateValue("   ", Bindings{"a": "10"})
		assert.Nil(t, calc.Result)
		assert.ErrorIs(t, calc.Err, ErrNoFormula)
		assert.NotErrorIs(t, calc.Err, ErrDivisionByZero)
		assert.Equal(t, KindNoFormula, calc.Kind())
	})

	t.Run("syntax error", func(t *testing.T) {
		calc := CalculateValue("{a} +* 1", Bindings{"a": "1"})
		assert.Nil(t, calc.Result)
		assert.Equal(t, KindSyntax, calc.Kind())
	})

	t.Run("complete bindings always yield a result", func(t *testing.T) {
		formulas := []string{"{a}", "{a} + {b} - {c}", "({a} * {b}) / ({c} + 100)", "-{a} * -{b}"}
		for _, f := range formulas {
			bindings := Bindings{}
			for i, dep := range ExtractDependencies(f) {
				bindings[dep] = fmt.Sprintf("%d.5", i+1)
			}
			first := CalculateValue(f, bindings)
			require.NoError(t, first.Err, f)
			require.NotNil(t, first.Result, f)

			second := CalculateValue(f, bindings)
			assert.Equal(t, *first.Result, *second.Result, f)
		}
	})
}

func TestErrorKindsAndMessages(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		kind        ErrorKind
		userMessage string
	}{
		{name: "syntax", err: &SyntaxError{Position: 3, Message: "Unexpected character '$'"}, kind: KindSyntax, userMessage: "Unexpected character '$' at position 3"},
		{name: "missing", err: &MissingDependencyError{Key: "rate"}, kind: KindMissingDependency, userMessage: "Enter field values to see result"},
		{name: "invalid", err: &InvalidOperandError{Key: "rate"}, kind: KindInvalidOperand, userMessage: "Field 'rate' must contain a number"},
		{name: "division", err: ErrDivisionByZero, kind: KindDivisionByZero, userMessage: "Cannot divide by zero"},
		{name: "overflow", err: ErrNumericOverflow, kind: KindNumericOverflow, userMessage: "Result is too large to display"},
		{name: "no formula", err: ErrNoFormula, kind: KindNoFormula, userMessage: "No formula configured"},
		{name: "wrapped", err: fmt.Errorf("field monthly: %w", ErrDivisionByZero), kind: KindDivisionByZero, userMessage: "Cannot divide by zero"},
		{name: "foreign", err: errors.New("boom"), kind: KindUnknown, userMessage: "boom"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, KindOf(tc.err))
			assert.Equal(t, tc.userMessage, UserMessage(tc.err))
		})
	}

	assert.Empty(t, UserMessage(nil))
}
