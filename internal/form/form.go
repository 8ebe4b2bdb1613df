package form

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/specialistvlad/calcfield/internal/dag"
	"github.com/specialistvlad/calcfield/internal/format"
	"github.com/specialistvlad/calcfield/internal/formula"
)

// FieldType names the kind of input a field collects.
type FieldType string

const (
	Text        FieldType = "text"
	Email       FieldType = "email"
	Phone       FieldType = "phone"
	Rating      FieldType = "rating"
	Number      FieldType = "number"
	Textarea    FieldType = "textarea"
	Select      FieldType = "select"
	Checkbox    FieldType = "checkbox"
	Date        FieldType = "date"
	Calculation FieldType = "calculation"
)

// Field is one field of a form. Only Calculation fields carry a formula.
type Field struct {
	Key        string       `json:"key" yaml:"key"`
	Label      string       `json:"label" yaml:"label"`
	Type       FieldType    `json:"type" yaml:"type"`
	Formula    string       `json:"formula,omitempty" yaml:"formula,omitempty"`
	Formatting *format.Spec `json:"format,omitempty" yaml:"format,omitempty"`
}

// ResolveType parses a configured type name. An empty name means
// Calculation when a formula is present and Text otherwise.
func ResolveType(name, expr string) FieldType {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		if strings.TrimSpace(expr) != "" {
			return Calculation
		}
		return Text
	}
	return FieldType(name)
}

// IsComputed reports whether the field's value comes from its formula.
func (f Field) IsComputed() bool {
	return f.Type == Calculation
}

// acceptsSample reports whether the editor preview feeds this field a
// sample value. Choice and date inputs never hold numbers.
func (f Field) acceptsSample() bool {
	switch f.Type {
	case Text, Email, Phone, Rating, Number:
		return true
	}
	return false
}

// FormatSpec returns the field's formatting, or format.DefaultSpec when none
// is configured.
func (f Field) FormatSpec() format.Spec {
	if f.Formatting == nil {
		return format.DefaultSpec()
	}
	return f.Formatting.Normalize()
}

// Form is an ordered list of fields.
type Form struct {
	Name   string  `json:"name" yaml:"name"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// NormalizeKey derives a field key from its label: lower-cased with all
// whitespace removed, so "Loan Amount" becomes "loanamount".
func NormalizeKey(label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, label)
}

// Field returns the field with the given key.
func (f *Form) Field(key string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Key == key {
			return field, true
		}
	}
	return Field{}, false
}

// Computed returns the calculation fields in form order.
func (f *Form) Computed() []Field {
	var out []Field
	for _, field := range f.Fields {
		if field.IsComputed() {
			out = append(out, field)
		}
	}
	return out
}

// ComputedDefinitions projects the calculation fields onto the resolver's
// input.
func (f *Form) ComputedDefinitions() []dag.Definition {
	computed := f.Computed()
	defs := make([]dag.Definition, 0, len(computed))
	for _, field := range computed {
		defs = append(defs, dag.Definition{Key: field.Key, Formula: field.Formula})
	}
	return defs
}

// EvaluationOrder returns the calculation field keys in dependency order.
func (f *Form) EvaluationOrder() ([]string, error) {
	return dag.ResolveEvaluationOrder(f.ComputedDefinitions())
}

// FieldError ties a validation problem to the field that caused it.
type FieldError struct {
	Key string
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Key, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ErrEmptyKey is reported for a field with neither a key nor a label.
var ErrEmptyKey = errors.New("field has no key")

// UnknownReferenceError reports a formula naming a field the form lacks.
type UnknownReferenceError struct {
	Ref string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("formula references unknown field %q", e.Ref)
}

// Validate reports every problem that would keep the form from being
// saved: empty or duplicate keys, malformed formulas, and circular
// dependencies. The problems are joined with errors.Join; use errors.As to
// inspect them. References to fields the form lacks are not errors; see
// Warnings.
func (f *Form) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(f.Fields))

	for i, field := range f.Fields {
		if field.Key == "" {
			errs = append(errs, &FieldError{Key: fmt.Sprintf("#%d", i), Err: ErrEmptyKey})
			continue
		}
		if seen[field.Key] {
			errs = append(errs, &FieldError{Key: field.Key, Err: &dag.DuplicateKeyError{Key: field.Key}})
			continue
		}
		seen[field.Key] = true
	}

	for _, field := range f.Computed() {
		if strings.TrimSpace(field.Formula) == "" {
			continue
		}
		if _, err := formula.Parse(field.Formula); err != nil {
			errs = append(errs, &FieldError{Key: field.Key, Err: err})
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if _, err := f.EvaluationOrder(); err != nil {
		return err
	}
	return nil
}

// Warnings returns a *FieldError wrapping an *UnknownReferenceError for
// every formula reference to a key the form lacks. Such a form still runs;
// the affected field reports a missing dependency when evaluated.
func (f *Form) Warnings() []error {
	keys := make(map[string]bool, len(f.Fields))
	for _, field := range f.Fields {
		keys[field.Key] = true
	}

	var warnings []error
	for _, field := range f.Computed() {
		node, err := formula.Parse(field.Formula)
		if err != nil {
			continue
		}
		for _, ref := range formula.Dependencies(node) {
			if !keys[ref] {
				warnings = append(warnings, &FieldError{Key: field.Key, Err: &UnknownReferenceError{Ref: ref}})
			}
		}
	}
	return warnings
}

// Normalize fills in missing keys from labels. It is the step collaborators
// run before handing a form to the engine.
func (f *Form) Normalize() {
	for i := range f.Fields {
		if f.Fields[i].Key == "" {
			f.Fields[i].Key = NormalizeKey(f.Fields[i].Label)
		}
	}
}
