package form

import (
	"errors"
	"testing"

	"github.com/specialistvlad/calcfield/internal/dag"
	"github.com/specialistvlad/calcfield/internal/format"
	"github.com/specialistvlad/calcfield/internal/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loanForm() *Form {
	return &Form{
		Name: "loan",
		Fields: []Field{
			{Key: "loanamount", Label: "Loan Amount", Type: Number},
			{Key: "rate", Label: "Rate", Type: Text},
			{Key: "email", Label: "Email", Type: Email},
			{Key: "start", Label: "Start", Type: Date},
			{
				Key:     "interest",
				Label:   "Interest",
				Type:    Calculation,
				Formula: "{loanamount} * {rate} / 100",
			},
			{
				Key:        "total",
				Label:      "Total",
				Type:       Calculation,
				Formula:    "{loanamount} + {interest}",
				Formatting: &format.Spec{Type: format.Currency, Precision: 2, CurrencyCode: "usd"},
			},
		},
	}
}

func TestNormalizeKey(t *testing.T) {
	testCases := []struct {
		label    string
		expected string
	}{
		{"Loan Amount", "loanamount"},
		{"  Interest\tRate ", "interestrate"},
		{"price", "price"},
		{"Größe", "größe"},
		{"", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeKey(tc.label))
		})
	}
}

func TestForm_Normalize(t *testing.T) {
	f := &Form{Fields: []Field{
		{Label: "Loan Amount", Type: Number},
		{Key: "keep", Label: "Something Else", Type: Number},
	}}
	f.Normalize()
	assert.Equal(t, "loanamount", f.Fields[0].Key)
	assert.Equal(t, "keep", f.Fields[1].Key)
}

func TestField_FormatSpec(t *testing.T) {
	f := loanForm()

	interest, ok := f.Field("interest")
	require.True(t, ok)
	assert.Equal(t, format.DefaultSpec(), interest.FormatSpec())

	total, ok := f.Field("total")
	require.True(t, ok)
	assert.Equal(t, format.Spec{Type: format.Currency, Precision: 2, CurrencyCode: "USD"}, total.FormatSpec())

	_, ok = f.Field("dne")
	assert.False(t, ok)
}

func TestForm_ComputedDefinitions(t *testing.T) {
	f := loanForm()
	expected := []dag.Definition{
		{Key: "interest", Formula: "{loanamount} * {rate} / 100"},
		{Key: "total", Formula: "{loanamount} + {interest}"},
	}
	assert.Equal(t, expected, f.ComputedDefinitions())

	order, err := f.EvaluationOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"interest", "total"}, order)
}

func TestForm_Validate(t *testing.T) {
	t.Run("valid form", func(t *testing.T) {
		assert.NoError(t, loanForm().Validate())
	})

	t.Run("empty formula is allowed", func(t *testing.T) {
		f := &Form{Fields: []Field{{Key: "c", Type: Calculation}}}
		assert.NoError(t, f.Validate())
	})

	t.Run("every problem is reported", func(t *testing.T) {
		f := &Form{Fields: []Field{
			{Key: "a", Type: Number},
			{Key: "a", Type: Number},
			{Label: "", Type: Text},
			{Key: "bad", Type: Calculation, Formula: "{a} +"},
			{Key: "ghost", Type: Calculation, Formula: "{nope} * 2"},
		}}
		err := f.Validate()
		require.Error(t, err)

		var dupErr *dag.DuplicateKeyError
		assert.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "a", dupErr.Key)

		assert.ErrorIs(t, err, ErrEmptyKey)

		var synErr *formula.SyntaxError
		require.ErrorAs(t, err, &synErr)
		assert.Equal(t, "Missing operand after operator '+'", synErr.Message)

		var refErr *UnknownReferenceError
		assert.False(t, errors.As(err, &refErr), "unknown references are warnings")

		assert.Contains(t, err.Error(), `field "bad"`)
		assert.NotContains(t, err.Error(), `field "ghost"`)
	})

	t.Run("unknown reference is not an error", func(t *testing.T) {
		f := &Form{Fields: []Field{
			{Key: "a", Type: Number},
			{Key: "total", Type: Calculation, Formula: "{a} + {discount}"},
			{Key: "c2", Type: Calculation, Formula: "{total} * 2"},
		}}
		assert.NoError(t, f.Validate())
	})

	t.Run("cycle blocks the form", func(t *testing.T) {
		f := &Form{Fields: []Field{
			{Key: "A", Type: Calculation, Formula: "{B}+1"},
			{Key: "B", Type: Calculation, Formula: "{A}+1"},
		}}
		err := f.Validate()
		var cycleErr *dag.CircularDependencyError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{"A", "B", "A"}, cycleErr.Cycle)
	})

	t.Run("field error unwraps", func(t *testing.T) {
		fe := &FieldError{Key: "x", Err: ErrEmptyKey}
		assert.True(t, errors.Is(fe, ErrEmptyKey))
	})
}

func TestForm_Warnings(t *testing.T) {
	assert.Empty(t, loanForm().Warnings())

	f := &Form{Fields: []Field{
		{Key: "a", Type: Number},
		{Key: "total", Type: Calculation, Formula: "{a} + {discount} + {tip}"},
		{Key: "broken", Type: Calculation, Formula: "{nope} +"},
		{Key: "c2", Type: Calculation, Formula: "{total} * 2"},
	}}
	warnings := f.Warnings()
	require.Len(t, warnings, 2)

	var refErr *UnknownReferenceError
	require.ErrorAs(t, warnings[0], &refErr)
	assert.Equal(t, "discount", refErr.Ref)
	assert.EqualError(t, warnings[1], `field "total": formula references unknown field "tip"`)
}

func TestForm_PreviewBindings(t *testing.T) {
	f := loanForm()

	b := f.PreviewBindings("{LoanAmount} + {rate} + {interest} + {start} + {unknown}")
	assert.Equal(t, formula.Bindings{"LoanAmount": "100", "rate": "100"}, b)

	assert.Empty(t, f.PreviewBindings("{a} +"))
}

func TestForm_Preview(t *testing.T) {
	f := loanForm()
	spec := format.Spec{Type: format.Currency, Precision: 2, CurrencyCode: "USD"}

	t.Run("sample values", func(t *testing.T) {
		p := f.Preview("{loanamount} * {rate} / 100", spec)
		assert.True(t, p.Validation.IsValid)
		assert.Equal(t, []string{"loanamount", "rate"}, p.Dependencies)
		assert.Equal(t, "Preview: $100.00", p.Text)
	})

	t.Run("missing sample", func(t *testing.T) {
		p := f.Preview("{interest} * 2", spec)
		assert.Equal(t, "Preview: Enter field values to see result", p.Text)
	})

	t.Run("invalid formula has no preview", func(t *testing.T) {
		p := f.Preview("{rate} * (2", spec)
		assert.False(t, p.Validation.IsValid)
		assert.Empty(t, p.Text)
	})

	t.Run("empty formula has no preview", func(t *testing.T) {
		p := f.Preview("  ", spec)
		assert.True(t, p.Validation.IsValid)
		assert.Empty(t, p.Text)
	})
}

func TestResolveType(t *testing.T) {
	assert.Equal(t, Calculation, ResolveType("", "{a} + 1"))
	assert.Equal(t, Text, ResolveType("", " "))
	assert.Equal(t, Number, ResolveType(" Number ", ""))
	assert.Equal(t, Calculation, ResolveType("calculation", ""))
}
