package cli

import (
	"context"
	"errors"
	"io"

	"github.com/specialistvlad/calcfield/internal/dag"
)

// Exit codes returned through ExitError.
const (
	ExitFailure = 1 // evaluation or I/O failure
	ExitUsage   = 2 // bad flags, arguments or configuration
	ExitCycle   = 3 // the form has a circular dependency
)

// EnvLogLevel overrides the default of --log-level.
const EnvLogLevel = "CALCFIELD_LOG_LEVEL"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Execute runs the command line in args. Output goes to outW and
// diagnostics to errW. Every failure is returned as an *ExitError.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, getenv func(string) string) error {
	st := &state{outW: outW, errW: errW, getenv: getenv}
	root := newRootCmd(st)
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(outW)
	root.SetErr(errW)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	return toExitError(err, st.started)
}

// toExitError maps err onto an exit code. Errors raised before any
// command started running are usage errors.
func toExitError(err error, started bool) *ExitError {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	var cycleErr *dag.CircularDependencyError
	if errors.As(err, &cycleErr) {
		return &ExitError{Code: ExitCycle, Message: err.Error()}
	}
	if !started {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return &ExitError{Code: ExitFailure, Message: err.Error()}
}
