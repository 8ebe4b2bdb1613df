package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/calcfield/internal/ctxlog"
	"github.com/specialistvlad/calcfield/internal/dag"
	"github.com/specialistvlad/calcfield/internal/form"
	"github.com/specialistvlad/calcfield/internal/format"
	"github.com/specialistvlad/calcfield/internal/formula"
	"github.com/specialistvlad/calcfield/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func invoiceForm() *form.Form {
	currency := &format.Spec{Type: format.Currency, Precision: 2, CurrencyCode: "USD"}
	return &form.Form{
		Name: "invoice",
		Fields: []form.Field{
			{Key: "price", Type: form.Number},
			{Key: "qty", Type: form.Number},
			{Key: "taxrate", Type: form.Number},
			{Key: "total", Type: form.Calculation, Formula: "{subtotal} + {tax}", Formatting: currency},
			{Key: "subtotal", Type: form.Calculation, Formula: "{price} * {qty}", Formatting: currency},
			{Key: "tax", Type: form.Calculation, Formula: "{subtotal} * {taxrate} / 100", Formatting: currency},
			{Key: "perunit", Type: form.Calculation, Formula: "{total} / {qty}"},
		},
	}
}

func TestRun(t *testing.T) {
	values := formula.Bindings{"price": "12.5", "qty": 4, "taxrate": "10"}

	res, err := New(4).Run(context.Background(), invoiceForm(), values)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"subtotal"}, {"tax"}, {"total"}, {"perunit"}}, res.Levels)
	assert.Equal(t, []string{"subtotal", "tax", "total", "perunit"}, res.Order)
	assert.Zero(t, res.Failed())

	require.NotNil(t, res.Fields["total"].Value)
	assert.InDelta(t, 55.0, *res.Fields["total"].Value, 1e-9)
	assert.Equal(t, "$55.00", res.Fields["total"].Formatted)
	assert.Equal(t, "$5.00", res.Fields["tax"].Formatted)
	assert.Equal(t, "13.75", res.Fields["perunit"].Formatted)

	assert.Len(t, values, 3, "caller's bindings must not be modified")
}

func TestRun_FieldErrorsDoNotAbort(t *testing.T) {
	values := formula.Bindings{"price": "abc", "qty": 0, "taxrate": "10"}

	res, err := New(2).Run(context.Background(), invoiceForm(), values)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Failed())

	var opErr *formula.InvalidOperandError
	require.ErrorAs(t, res.Fields["subtotal"].Err, &opErr)
	assert.Equal(t, "price", opErr.Key)
	assert.Nil(t, res.Fields["subtotal"].Value)
	assert.Equal(t, format.Placeholder, res.Fields["subtotal"].Formatted)

	var missErr *formula.MissingDependencyError
	require.ErrorAs(t, res.Fields["tax"].Err, &missErr)
	assert.Equal(t, "subtotal", missErr.Key)

	require.ErrorAs(t, res.Fields["perunit"].Err, &missErr)
	assert.Equal(t, "total", missErr.Key)
}

func TestRun_LogsBlockedDependents(t *testing.T) {
	logs := &testutil.SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	_, err := New(2).Run(ctx, invoiceForm(), formula.Bindings{"price": "abc", "qty": 1, "taxrate": "10"})
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "computed=4")
	assert.Contains(t, out, `msg="Dependent fields will miss a value." field=subtotal dependents="[tax total]"`)
}

func TestRun_DivisionByZero(t *testing.T) {
	values := formula.Bindings{"price": 1, "qty": 0, "taxrate": 0}

	res, err := New(2).Run(context.Background(), invoiceForm(), values)
	require.NoError(t, err)
	assert.NoError(t, res.Fields["total"].Err)
	assert.ErrorIs(t, res.Fields["perunit"].Err, formula.ErrDivisionByZero)
}

func TestRun_SubmittedComputedValuesAreIgnored(t *testing.T) {
	f := &form.Form{Fields: []form.Field{
		{Key: "a", Type: form.Calculation, Formula: "{b} * 2"},
		{Key: "b", Type: form.Calculation, Formula: "{missing}"},
	}}
	res, err := New(1).Run(context.Background(), f, formula.Bindings{"b": 21})
	require.NoError(t, err)

	var missErr *formula.MissingDependencyError
	require.ErrorAs(t, res.Fields["a"].Err, &missErr)
	assert.Equal(t, "b", missErr.Key)
}

func TestRun_NoFormula(t *testing.T) {
	f := &form.Form{Fields: []form.Field{{Key: "empty", Type: form.Calculation}}}
	res, err := New(1).Run(context.Background(), f, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Fields["empty"].Err, formula.ErrNoFormula)
}

func TestRun_CycleBlocksRun(t *testing.T) {
	f := &form.Form{Fields: []form.Field{
		{Key: "A", Type: form.Calculation, Formula: "{B}+1"},
		{Key: "B", Type: form.Calculation, Formula: "{A}+1"},
	}}
	res, err := New(1).Run(context.Background(), f, formula.Bindings{})
	assert.Nil(t, res)

	var cycleErr *dag.CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A", "B", "A"}, cycleErr.Cycle)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(2).Run(ctx, invoiceForm(), formula.Bindings{})
	assert.ErrorIs(t, err, context.Canceled)
}

// wideForm has width independent fields per level and depth levels.
func wideForm(width, depth int) (*form.Form, formula.Bindings) {
	f := &form.Form{Name: "wide"}
	values := formula.Bindings{}
	for w := 0; w < width; w++ {
		in := fmt.Sprintf("in%d", w)
		f.Fields = append(f.Fields, form.Field{Key: in, Type: form.Number})
		values[in] = w + 1
		prev := in
		for d := 0; d < depth; d++ {
			key := fmt.Sprintf("c%dx%d", w, d)
			f.Fields = append(f.Fields, form.Field{
				Key:     key,
				Type:    form.Calculation,
				Formula: fmt.Sprintf("{%s} * 2 + {in0} - %d", prev, d),
			})
			prev = key
		}
	}
	return f, values
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	f, values := wideForm(16, 6)

	sequential, err := New(1).Run(context.Background(), f, values)
	require.NoError(t, err)
	parallel, err := New(8).Run(context.Background(), f, values)
	require.NoError(t, err)

	flatten := func(r *Result) map[string]string {
		out := make(map[string]string, len(r.Fields))
		for k, fr := range r.Fields {
			out[k] = fr.Formatted
		}
		return out
	}
	if diff := cmp.Diff(flatten(sequential), flatten(parallel)); diff != "" {
		t.Errorf("parallel run differs from sequential run (-seq +par):\n%s", diff)
	}
	assert.Equal(t, sequential.Order, parallel.Order)
	assert.Len(t, parallel.Levels, 6)
}

func TestNew(t *testing.T) {
	assert.Equal(t, 3, New(3).Workers)
	assert.Positive(t, New(0).Workers)
}

func TestRun_CustomParser(t *testing.T) {
	var calls atomic.Int32
	e := New(2)
	e.Parse = func(text string) (formula.Node, error) {
		calls.Add(1)
		return formula.Parse(text)
	}

	res, err := e.Run(context.Background(), invoiceForm(), formula.Bindings{"price": 1, "qty": 2, "taxrate": 0})
	require.NoError(t, err)
	assert.Zero(t, res.Failed())
	assert.Equal(t, int32(4), calls.Load())

	zero := &Executor{Workers: 1}
	res, err = zero.Run(context.Background(), invoiceForm(), formula.Bindings{"price": 1, "qty": 2, "taxrate": 0})
	require.NoError(t, err)
	assert.Equal(t, "$2.00", res.Fields["total"].Formatted)
}
