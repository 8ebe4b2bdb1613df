package config

import (
	"context"

	"github.com/specialistvlad/calcfield/internal/form"
	"github.com/specialistvlad/calcfield/internal/formula"
)

// Loader is the interface for a format-specific form loader.
type Loader interface {
	// LoadForm reads a form definition from path and returns it with every
	// field key filled in.
	LoadForm(ctx context.Context, path string) (*form.Form, error)

	// LoadValues reads one set of submitted values keyed by field key.
	LoadValues(ctx context.Context, path string) (formula.Bindings, error)
}
