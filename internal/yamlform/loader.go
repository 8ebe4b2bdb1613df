// Package yamlform loads form definitions and submitted values written in
// YAML.
package yamlform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/calcfield/internal/ctxlog"
	"github.com/specialistvlad/calcfield/internal/form"
	"github.com/specialistvlad/calcfield/internal/format"
	"github.com/specialistvlad/calcfield/internal/formula"
	"gopkg.in/yaml.v3"
)

type formDoc struct {
	Name   string     `yaml:"name"`
	Fields []fieldDoc `yaml:"fields"`
}

type fieldDoc struct {
	Key     string     `yaml:"key"`
	Label   string     `yaml:"label"`
	Type    string     `yaml:"type"`
	Formula string     `yaml:"formula"`
	Format  *formatDoc `yaml:"format"`
}

type formatDoc struct {
	Type      string `yaml:"type"`
	Precision *int   `yaml:"precision"`
	Currency  string `yaml:"currency"`
}

// Loader reads forms and values from YAML files.
type Loader struct{}

// NewLoader creates a new YAML form loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForm reads the form document at path. Unknown keys are rejected.
func (l *Loader) LoadForm(ctx context.Context, path string) (*form.Form, error) {
	logger := ctxlog.FromContext(ctx)

	var doc formDoc
	if err := decodeFile(path, &doc, true); err != nil {
		return nil, err
	}

	f := &form.Form{Name: doc.Name, Fields: make([]form.Field, 0, len(doc.Fields))}
	for _, fd := range doc.Fields {
		field := form.Field{
			Key:     fd.Key,
			Label:   fd.Label,
			Type:    form.ResolveType(fd.Type, fd.Formula),
			Formula: fd.Formula,
		}
		if fd.Format != nil {
			spec := format.FromParts(fd.Format.Type, fd.Format.Precision, fd.Format.Currency)
			field.Formatting = &spec
		}
		f.Fields = append(f.Fields, field)
	}
	f.Normalize()

	logger.Debug("YAML form loaded.", "path", path, "form", f.Name, "fields", len(f.Fields))
	return f, nil
}

// LoadValues reads a flat YAML mapping into bindings. Scalars keep the Go
// type yaml.v3 gives them; a null value counts as missing.
func (l *Loader) LoadValues(ctx context.Context, path string) (formula.Bindings, error) {
	var values map[string]any
	if err := decodeFile(path, &values, false); err != nil {
		return nil, err
	}

	bindings := make(formula.Bindings, len(values))
	for k, v := range values {
		bindings[k] = v
	}
	ctxlog.FromContext(ctx).Debug("YAML values loaded.", "path", path, "count", len(bindings))
	return bindings, nil
}

func decodeFile(path string, out any, strict bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error accessing path %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(strict)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode YAML file %s: document is empty", path)
		}
		return fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}
	return nil
}
