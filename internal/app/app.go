package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/calcfield/internal/config"
	"github.com/specialistvlad/calcfield/internal/ctxlog"
	"github.com/specialistvlad/calcfield/internal/executor"
	"github.com/specialistvlad/calcfield/internal/form"
	"github.com/specialistvlad/calcfield/internal/formula"
	"github.com/specialistvlad/calcfield/internal/parsecache"
)

// ErrNoFormPath is returned by commands that need a form when none is
// configured.
var ErrNoFormPath = errors.New("no form path configured")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	executor *executor.Executor
	parser   *parsecache.Cache
}

// NewApp is the constructor for the main application. Results are written
// to outW and logs to logW.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	parser := parsecache.New()
	exec := executor.New(cfg.Workers)
	exec.Parse = parser.Parse

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		executor: exec,
		parser:   parser,
	}
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// withLogger attaches the application's logger to ctx.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// LoadForm reads the configured form and fills in missing keys.
func (a *App) LoadForm(ctx context.Context) (*form.Form, error) {
	if a.config.FormPath == "" {
		return nil, ErrNoFormPath
	}
	return loadForm(a.withLogger(ctx), a.config.FormPath)
}

func loadForm(ctx context.Context, path string) (*form.Form, error) {
	loader, err := config.LoaderFor(path)
	if err != nil {
		return nil, err
	}
	f, err := loader.LoadForm(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	return f, nil
}

// LoadValues reads the configured values file. Without one, every input
// field is missing.
func (a *App) LoadValues(ctx context.Context) (formula.Bindings, error) {
	if a.config.ValuesPath == "" {
		return formula.Bindings{}, nil
	}
	loader, err := config.LoaderFor(a.config.ValuesPath)
	if err != nil {
		return nil, err
	}
	values, err := loader.LoadValues(a.withLogger(ctx), a.config.ValuesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load values: %w", err)
	}
	return values, nil
}
