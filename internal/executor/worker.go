package executor

import (
	"context"

	"github.com/specialistvlad/calcfield/internal/ctxlog"
	"github.com/specialistvlad/calcfield/internal/form"
	"github.com/specialistvlad/calcfield/internal/format"
	"github.com/specialistvlad/calcfield/internal/formula"
	"golang.org/x/sync/errgroup"
)

// runLevel evaluates one level on the worker pool. bindings is only read
// while the level runs; the caller writes the outcomes back afterwards.
// Outcomes are returned in the order of level.
func (e *Executor) runLevel(
	ctx context.Context,
	level []string,
	fields map[string]form.Field,
	bindings formula.Bindings,
) ([]*FieldResult, error) {
	outcomes := make([]*FieldResult, len(level))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Workers, 1))
	for i, key := range level {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.evaluate(gctx, fields[key], bindings)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// evaluate computes a single field.
func (e *Executor) evaluate(ctx context.Context, field form.Field, bindings formula.Bindings) *FieldResult {
	logger := ctxlog.FromContext(ctx).With("field", field.Key)

	parse := e.Parse
	if parse == nil {
		parse = formula.Parse
	}
	calc := formula.CalculateWith(parse, field.Formula, bindings)
	fr := &FieldResult{
		Key:       field.Key,
		Value:     calc.Result,
		Err:       calc.Err,
		Formatted: format.FormatPtr(calc.Result, field.FormatSpec()),
	}
	if calc.Err != nil {
		logger.Debug("Field has no value.", "kind", formula.KindOf(calc.Err), "error", calc.Err)
	} else {
		logger.Debug("Field computed.", "value", *calc.Result)
	}
	return fr
}
