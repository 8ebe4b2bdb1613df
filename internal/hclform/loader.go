package hclform

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/calcfield/internal/ctxlog"
	"github.com/specialistvlad/calcfield/internal/form"
	"github.com/specialistvlad/calcfield/internal/formula"
	"github.com/specialistvlad/calcfield/internal/fsutil"
)

// ErrNoForm is returned when none of the loaded files declares a form.
var ErrNoForm = errors.New("no form block found")

// Loader reads forms and values from HCL files.
type Loader struct{}

// NewLoader creates a new HCL form loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForm reads the single form declared in path. The path may be a file
// or a directory, in which case every .hcl file beneath it is parsed and
// exactly one of them must declare the form.
func (l *Loader) LoadForm(ctx context.Context, path string) (*form.Form, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL form loader started.", "path", path)

	files, err := findHCLFiles(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var found []*formBlock
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		found = append(found, root.Forms...)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%s: %w", path, ErrNoForm)
	case 1:
	default:
		return nil, fmt.Errorf("%s: expected one form block, found %d", path, len(found))
	}

	f, err := translateForm(ctx, found[0])
	if err != nil {
		return nil, err
	}
	logger.Debug("HCL form loaded.", "form", f.Name, "fields", len(f.Fields))
	return f, nil
}

// LoadValues reads a flat HCL attribute file into bindings. Values keep
// their cty form; a null attribute is bound to nil and so counts as
// missing.
func (l *Loader) LoadValues(ctx context.Context, path string) (formula.Bindings, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	attrs, diags := hclFile.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read values from %s: %w", path, diags)
	}

	bindings := make(formula.Bindings, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate value %q in %s: %w", name, path, diags)
		}
		if val.IsNull() {
			bindings[name] = nil
			continue
		}
		bindings[name] = val
	}

	logger.Debug("HCL values loaded.", "path", path, "count", len(bindings))
	return bindings, nil
}

// findHCLFiles returns path itself when it is a file, or every .hcl file
// beneath it when it is a directory.
func findHCLFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return fsutil.FindFilesByExtension(path, ".hcl")
}
