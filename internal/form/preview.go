package form

import (
	"strings"

	"github.com/specialistvlad/calcfield/internal/format"
	"github.com/specialistvlad/calcfield/internal/formula"
)

// SampleValue is what the editor preview substitutes for every input field
// a formula reads.
const SampleValue = "100"

// PreviewBindings returns sample bindings for text: every dependency that
// names a non-computed field of the form (matched case-insensitively on
// the field's key) is bound to SampleValue. Other dependencies stay
// unbound, so the preview reports them as missing.
func (f *Form) PreviewBindings(text string) formula.Bindings {
	bindings := make(formula.Bindings)
	for _, dep := range formula.ExtractDependencies(text) {
		want := strings.ToLower(dep)
		for _, field := range f.Fields {
			if field.acceptsSample() && strings.ToLower(field.Key) == want {
				bindings[dep] = SampleValue
				break
			}
		}
	}
	return bindings
}

// Preview is what the formula editor shows under a calculation field.
type Preview struct {
	Validation   formula.Validation `json:"validation"`
	Dependencies []string           `json:"dependencies"`
	// Text is empty when the formula is empty or invalid.
	Text string `json:"text"`
}

// Preview validates text and evaluates it against sample values, rendering
// the outcome with spec.
func (f *Form) Preview(text string, spec format.Spec) Preview {
	p := Preview{
		Validation:   formula.ValidateFormula(text),
		Dependencies: formula.ExtractDependencies(text),
	}
	if !p.Validation.IsValid || strings.TrimSpace(text) == "" {
		return p
	}

	calc := formula.CalculateValue(text, f.PreviewBindings(text))
	if calc.Result == nil {
		p.Text = "Preview: Enter field values to see result"
		return p
	}
	p.Text = "Preview: " + format.Format(*calc.Result, spec)
	return p
}
