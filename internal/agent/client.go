package agent

import (
	"context"
	"encoding/json"
	"errors"
)

// Client is a JSON-mode language model. system carries the instructions and
// user the per-request content; the result is a single JSON document.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error)
}

var ErrInvalidJSON = errors.New("agent: invalid JSON from model")

// PermanentError marks a failure that retrying will not fix, such as a
// rejected API key or an unknown model.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

const (
	PhaseExtraction = "extraction"
	PhaseDiagnosis  = "diagnosis"
)

type phaseKey struct{}

// WithPhase tags ctx with the pipeline step making the call.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey{}, phase)
}

// PhaseFrom returns the phase stored in ctx, or "unknown".
func PhaseFrom(ctx context.Context) string {
	if v, ok := ctx.Value(phaseKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// validJSON returns content as raw JSON or ErrInvalidJSON.
func validJSON(content string) (json.RawMessage, error) {
	if content == "" || !json.Valid([]byte(content)) {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(content), nil
}
