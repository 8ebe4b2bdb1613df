package formula

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable, transport-friendly name for a class of failure.
type ErrorKind string

const (
	KindSyntax             ErrorKind = "syntax"
	KindMissingDependency  ErrorKind = "missing_dependency"
	KindInvalidOperand     ErrorKind = "invalid_operand"
	KindDivisionByZero     ErrorKind = "division_by_zero"
	KindNumericOverflow    ErrorKind = "numeric_overflow"
	KindNoFormula          ErrorKind = "no_formula"
	KindCircularDependency ErrorKind = "circular_dependency"
	KindUnknown            ErrorKind = "unknown"
)

// kinded is implemented by every error this module produces.
type kinded interface {
	Kind() ErrorKind
}

// userFacing is implemented by errors that carry a message meant for form
// authors and respondents rather than for logs.
type userFacing interface {
	UserMessage() string
}

// SyntaxError reports malformed formula text. Position is the zero-based
// rune offset of the first offending token.
type SyntaxError struct {
	Position int
	Message  string
}

func newSyntaxError(pos int, msg string) *SyntaxError {
	return &SyntaxError{Position: pos, Message: msg}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Position)
}

func (e *SyntaxError) Kind() ErrorKind { return KindSyntax }

func (e *SyntaxError) UserMessage() string { return e.Error() }

// MissingDependencyError reports a referenced field with no value yet.
type MissingDependencyError struct {
	Key string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing value for field %q", e.Key)
}

func (e *MissingDependencyError) Kind() ErrorKind { return KindMissingDependency }

func (e *MissingDependencyError) UserMessage() string {
	return "Enter field values to see result"
}

// InvalidOperandError reports a referenced value that is not a finite number.
type InvalidOperandError struct {
	Key string
}

func (e *InvalidOperandError) Error() string {
	return fmt.Sprintf("value of field %q is not a number", e.Key)
}

func (e *InvalidOperandError) Kind() ErrorKind { return KindInvalidOperand }

func (e *InvalidOperandError) UserMessage() string {
	return fmt.Sprintf("Field '%s' must contain a number", e.Key)
}

// sentinelError is the shared shape of the argument-less failures.
type sentinelError struct {
	kind ErrorKind
	msg  string
	user string
}

func (e *sentinelError) Error() string       { return e.msg }
func (e *sentinelError) Kind() ErrorKind     { return e.kind }
func (e *sentinelError) UserMessage() string { return e.user }

var (
	// ErrDivisionByZero is returned when a divisor evaluates to exactly zero.
	ErrDivisionByZero error = &sentinelError{
		kind: KindDivisionByZero,
		msg:  "division by zero",
		user: "Cannot divide by zero",
	}

	// ErrNumericOverflow is returned when an intermediate result leaves the
	// finite float64 range.
	ErrNumericOverflow error = &sentinelError{
		kind: KindNumericOverflow,
		msg:  "numeric overflow",
		user: "Result is too large to display",
	}

	// ErrNoFormula is returned when a computed field has no formula configured.
	ErrNoFormula error = &sentinelError{
		kind: KindNoFormula,
		msg:  "no formula configured",
		user: "No formula configured",
	}
)

// KindOf returns the ErrorKind of err, or KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// UserMessage returns the text to show in place of a result. Errors that do
// not come from this module fall back to their Error() text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var u userFacing
	if errors.As(err, &u) {
		return u.UserMessage()
	}
	return err.Error()
}
