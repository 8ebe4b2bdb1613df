package app

import (
	"errors"

	"github.com/specialistvlad/calcfield/internal/dag"
	"github.com/specialistvlad/calcfield/internal/formula"
)

// ErrIncomplete is returned by Run when at least one computed field has no
// value.
var ErrIncomplete = errors.New("some computed fields have no value")

// errorBody is the JSON shape of an error, shared by the server and the
// JSON output of Run.
type errorBody struct {
	Kind     formula.ErrorKind `json:"kind"`
	Message  string            `json:"message"`
	Position *int              `json:"position,omitempty"`
	Cycle    []string          `json:"cycle,omitempty"`
}

func newErrorBody(err error) *errorBody {
	if err == nil {
		return nil
	}
	body := &errorBody{
		Kind:    formula.KindOf(err),
		Message: formula.UserMessage(err),
	}

	var synErr *formula.SyntaxError
	if errors.As(err, &synErr) {
		pos := synErr.Position
		body.Position = &pos
	}
	var cycleErr *dag.CircularDependencyError
	if errors.As(err, &cycleErr) {
		body.Cycle = cycleErr.Cycle
	}
	return body
}
