package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/calcfield/internal/config"
	"github.com/specialistvlad/calcfield/internal/ctxlog"
	"github.com/specialistvlad/calcfield/internal/dag"
	"github.com/specialistvlad/calcfield/internal/executor"
	"github.com/specialistvlad/calcfield/internal/form"
	"github.com/specialistvlad/calcfield/internal/fsutil"
	"github.com/specialistvlad/calcfield/internal/hclform"
)

type fieldOutput struct {
	Key       string     `json:"key"`
	Value     *float64   `json:"value"`
	Formatted string     `json:"formatted"`
	Error     *errorBody `json:"error,omitempty"`
}

func toOutput(res *executor.Result) []fieldOutput {
	out := make([]fieldOutput, 0, len(res.Order))
	for _, fr := range res.InOrder() {
		out = append(out, fieldOutput{
			Key:       fr.Key,
			Value:     fr.Value,
			Formatted: fr.Formatted,
			Error:     newErrorBody(fr.Err),
		})
	}
	return out
}

// Run evaluates every computed field of the configured form against the
// configured values and prints the results. It returns ErrIncomplete
// (wrapped) when some fields could not be computed, and the resolver's
// error when the form cannot be ordered.
func (a *App) Run(ctx context.Context) (*executor.Result, error) {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Run method started.")

	f, err := a.LoadForm(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid form %q: %w", f.Name, err)
	}
	a.logWarnings(f)
	values, err := a.LoadValues(ctx)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Evaluating form.", "form", f.Name, "computed", len(f.Computed()), "workers", a.executor.Workers)
	res, err := a.executor.Run(ctx, f, values)
	if err != nil {
		return nil, err
	}

	if err := a.printResult(res); err != nil {
		return nil, err
	}
	a.logger.Info("Evaluation finished.", "failed", res.Failed())

	if n := res.Failed(); n > 0 {
		return res, fmt.Errorf("%d of %d fields: %w", n, len(res.Fields), ErrIncomplete)
	}
	return res, nil
}

func (a *App) printResult(res *executor.Result) error {
	rows := toOutput(res)
	if a.config.Output == "json" {
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE\tERROR")
	for _, row := range rows {
		msg := ""
		if row.Error != nil {
			msg = row.Error.Message
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Key, row.Formatted, msg)
	}
	return tw.Flush()
}

// Order prints the evaluation order of the configured form, one level per
// line. Fields on the same line do not depend on each other.
func (a *App) Order(ctx context.Context) error {
	ctx = a.withLogger(ctx)

	f, err := a.LoadForm(ctx)
	if err != nil {
		return err
	}
	levels, err := a.levels(ctx, f.ComputedDefinitions())
	if err != nil {
		return err
	}
	for i, level := range levels {
		fmt.Fprintf(a.outW, "%d: %s\n", i+1, strings.Join(level, " "))
	}
	return nil
}

// Check loads and validates every form file beneath root, printing one
// line per file. It returns the joined failures.
func (a *App) Check(ctx context.Context, root string) error {
	ctx = a.withLogger(ctx)

	files, err := fsutil.FindFilesByExtension(root, config.Extensions...)
	if err != nil {
		return fmt.Errorf("failed to search %s: %w", root, err)
	}
	a.logger.Debug("Discovered form files.", "root", root, "count", len(files))

	var errs []error
	for _, path := range files {
		f, err := loadForm(ctx, path)
		if errors.Is(err, hclform.ErrNoForm) {
			fmt.Fprintf(a.outW, "skip %s (no form)\n", path)
			continue
		}
		if err == nil {
			err = f.Validate()
		}
		if err != nil {
			fmt.Fprintf(a.outW, "FAIL %s\n", path)
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Fprintf(a.outW, "     %s\n", line)
			}
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(a.outW, "ok   %s (%d computed)\n", path, len(f.Computed()))
		for _, w := range f.Warnings() {
			fmt.Fprintf(a.outW, "     warning: %v\n", w)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// logWarnings reports references to fields the form lacks. They do not
// block a run; the affected fields report a missing dependency instead.
func (a *App) logWarnings(f *form.Form) {
	for _, w := range f.Warnings() {
		a.logger.Warn("Formula references a field the form does not define.", "form", f.Name, "warning", w)
	}
}

// levels orders defs into evaluation waves.
func (a *App) levels(ctx context.Context, defs []dag.Definition) ([][]string, error) {
	graph, err := dag.Build(defs)
	if err != nil {
		return nil, err
	}
	levels, err := graph.Levels()
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Form cannot be ordered.", "error", err)
		return nil, err
	}
	return levels, nil
}
