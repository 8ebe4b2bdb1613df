// Package executor evaluates every computed field of a form against one set
// of submitted values.
package executor

import (
	"context"
	"runtime"

	"github.com/specialistvlad/calcfield/internal/ctxlog"
	"github.com/specialistvlad/calcfield/internal/dag"
	"github.com/specialistvlad/calcfield/internal/form"
	"github.com/specialistvlad/calcfield/internal/formula"
)

// Executor runs the computed fields of a form level by level. Fields of one
// level never read each other and are evaluated concurrently on at most
// Workers goroutines.
type Executor struct {
	Workers int
	// Parse parses field formulas. Nil means formula.Parse.
	Parse formula.ParseFunc
}

// New creates an executor. A non-positive worker count means one worker
// per CPU.
func New(workers int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{Workers: workers, Parse: formula.Parse}
}

// FieldResult is the outcome of one computed field.
type FieldResult struct {
	Key   string   `json:"key"`
	Value *float64 `json:"value"`
	// Formatted is the display text, or format.Placeholder without a value.
	Formatted string `json:"formatted"`
	Err       error  `json:"-"`
}

// Result is the outcome of a whole run.
type Result struct {
	// Order is the evaluation order of the computed fields.
	Order  []string
	Levels [][]string
	Fields map[string]*FieldResult
}

// InOrder returns the field results in evaluation order.
func (r *Result) InOrder() []*FieldResult {
	out := make([]*FieldResult, 0, len(r.Order))
	for _, key := range r.Order {
		out = append(out, r.Fields[key])
	}
	return out
}

// Failed returns the number of fields that produced no value.
func (r *Result) Failed() int {
	n := 0
	for _, fr := range r.Fields {
		if fr.Err != nil {
			n++
		}
	}
	return n
}

// Run evaluates the computed fields of f against values. It fails only if
// the form cannot be ordered (a *dag.CircularDependencyError or a
// *dag.DuplicateKeyError) or ctx is cancelled; a field that cannot be
// computed records its error in its FieldResult and the run goes on.
//
// Each computed value is bound for the fields that read it, so a field
// whose dependency failed reports a *formula.MissingDependencyError. Values
// submitted under a computed field's key are ignored.
func (e *Executor) Run(ctx context.Context, f *form.Form, values formula.Bindings) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	graph, err := dag.Build(f.ComputedDefinitions())
	if err != nil {
		return nil, err
	}
	levels, err := graph.Levels()
	if err != nil {
		logger.Debug("Form has a circular dependency.", "error", err)
		return nil, err
	}

	bindings := values.Clone()
	fields := make(map[string]form.Field)
	for _, field := range f.Computed() {
		fields[field.Key] = field
		delete(bindings, field.Key)
	}

	logger.Debug("Form ordered.", "computed", graph.Len(), "levels", len(levels))

	result := &Result{
		Levels: levels,
		Fields: make(map[string]*FieldResult, len(fields)),
	}
	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Debug("Evaluating level.", "level", i, "fields", level)

		outcomes, err := e.runLevel(ctx, level, fields, bindings)
		if err != nil {
			return nil, err
		}
		for _, fr := range outcomes {
			if fr.Value != nil {
				bindings[fr.Key] = *fr.Value
			} else if dependents, _ := graph.Dependents(fr.Key); len(dependents) > 0 {
				logger.Debug("Dependent fields will miss a value.", "field", fr.Key, "dependents", dependents)
			}
			result.Fields[fr.Key] = fr
			result.Order = append(result.Order, fr.Key)
		}
	}

	logger.Debug("Run finished.", "fields", len(result.Fields), "failed", result.Failed())
	return result, nil
}
