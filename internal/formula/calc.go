package formula

import (
	"sort"
	"strings"
)

// Validation is the outcome of ValidateFormula.
type Validation struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
	// Position is the offending rune offset when IsValid is false.
	Position *int `json:"position,omitempty"`
}

// ValidateFormula reports whether text is well-formed. An empty formula is
// valid: it means no computation has been configured yet. Whether the
// referenced fields exist is not checked here.
func ValidateFormula(text string) Validation {
	if strings.TrimSpace(text) == "" {
		return Validation{IsValid: true}
	}
	if _, err := Parse(text); err != nil {
		v := Validation{IsValid: false, Error: err.Error()}
		if se, ok := err.(*SyntaxError); ok {
			pos := se.Position
			v.Position = &pos
		}
		return v
	}
	return Validation{IsValid: true}
}

// ExtractDependencies returns the sorted, de-duplicated set of field keys
// referenced by text. Malformed formulas yield an empty set rather than a
// best-effort guess.
func ExtractDependencies(text string) []string {
	root, err := Parse(text)
	if err != nil {
		return []string{}
	}
	return Dependencies(root)
}

// Dependencies returns the sorted, de-duplicated field keys referenced
// anywhere under node.
func Dependencies(node Node) []string {
	seen := make(map[string]struct{})
	walkRefs(node, seen)

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func walkRefs(node Node, seen map[string]struct{}) {
	switch n := node.(type) {
	case *FieldRef:
		seen[n.Key] = struct{}{}
	case *UnaryMinus:
		walkRefs(n.Operand, seen)
	case *BinaryOp:
		walkRefs(n.Left, seen)
		walkRefs(n.Right, seen)
	}
}

// Calculation is the outcome of CalculateValue. Result is nil whenever the
// value could not be computed, in which case Err says why.
type Calculation struct {
	Result *float64
	Err    error
}

// Kind returns the error kind, or the empty string on success.
func (c Calculation) Kind() ErrorKind {
	if c.Err == nil {
		return ""
	}
	return KindOf(c.Err)
}

// ParseFunc parses formula text. Parse is the reference implementation;
// callers may substitute a caching one.
type ParseFunc func(text string) (Node, error)

// CalculateValue parses and evaluates text in one step. It never panics
// and never returns a non-finite result.
func CalculateValue(text string, bindings Bindings) Calculation {
	return CalculateWith(Parse, text, bindings)
}

// CalculateWith is CalculateValue with a caller-supplied parser.
func CalculateWith(parse ParseFunc, text string, bindings Bindings) Calculation {
	if strings.TrimSpace(text) == "" {
		return Calculation{Err: ErrNoFormula}
	}
	root, err := parse(text)
	if err != nil {
		return Calculation{Err: err}
	}
	value, err := Evaluate(root, bindings)
	if err != nil {
		return Calculation{Err: err}
	}
	return Calculation{Result: &value}
}
