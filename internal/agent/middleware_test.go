package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// scriptedClient returns the queued results in order, repeating the last.
type scriptedClient struct {
	calls   int32
	results []scripted
}

type scripted struct {
	raw string
	err error
}

func (s *scriptedClient) Name() string { return "scripted" }

func (s *scriptedClient) GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	n := int(atomic.AddInt32(&s.calls, 1)) - 1
	if n >= len(s.results) {
		n = len(s.results) - 1
	}
	r := s.results[n]
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(r.raw), nil
}

func TestRetry(t *testing.T) {
	transient := errors.New("connection reset")

	tests := []struct {
		name      string
		results   []scripted
		attempts  int
		wantErr   error
		wantCalls int32
	}{
		{
			name:      "succeeds_after_transient",
			results:   []scripted{{err: transient}, {raw: `{"ok":true}`}},
			attempts:  3,
			wantCalls: 2,
		},
		{
			name:      "gives_up",
			results:   []scripted{{err: transient}},
			attempts:  3,
			wantErr:   transient,
			wantCalls: 3,
		},
		{
			name:      "permanent_not_retried",
			results:   []scripted{{err: &PermanentError{Err: errors.New("401")}}},
			attempts:  3,
			wantCalls: 1,
		},
		{
			name:      "zero_attempts_means_one",
			results:   []scripted{{err: transient}},
			attempts:  0,
			wantErr:   transient,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &scriptedClient{results: tt.results}
			c := Wrap(inner, Retry(tt.attempts, time.Millisecond))

			raw, err := c.GenerateJSON(context.Background(), "sys", "user")

			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&inner.calls))
			if tt.name == "permanent_not_retried" {
				var perm *PermanentError
				assert.ErrorAs(t, err, &perm)
				return
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, `{"ok":true}`, string(raw))
		})
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	inner := &scriptedClient{results: []scripted{{err: errors.New("timeout")}}}
	c := Wrap(inner, Retry(5, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.GenerateJSON(ctx, "s", "u")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))
}

func TestCache(t *testing.T) {
	inner := &scriptedClient{results: []scripted{{raw: `{"n":1}`}}}
	c := Wrap(inner, Cache(8))

	first, err := c.GenerateJSON(context.Background(), "sys", "same")
	require.NoError(t, err)
	second, err := c.GenerateJSON(context.Background(), "sys", "same")
	require.NoError(t, err)
	_, err = c.GenerateJSON(context.Background(), "sys", "different")
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestCache_ErrorsNotCached(t *testing.T) {
	inner := &scriptedClient{results: []scripted{{err: errors.New("boom")}, {raw: `{}`}}}
	c := Wrap(inner, Cache(8))

	_, err := c.GenerateJSON(context.Background(), "s", "u")
	require.Error(t, err)
	_, err = c.GenerateJSON(context.Background(), "s", "u")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestCache_DisabledPassesThrough(t *testing.T) {
	inner := &scriptedClient{results: []scripted{{raw: `{}`}}}
	c := Wrap(inner, Cache(0))

	assert.Same(t, Client(inner), c)
}

func TestWithLogging_PassesResultsThrough(t *testing.T) {
	inner := &scriptedClient{results: []scripted{{raw: `{"a":1}`}, {err: errors.New("nope")}}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := Wrap(inner, WithLogging(logger))

	raw, err := c.GenerateJSON(WithPhase(context.Background(), PhaseDiagnosis), "s", "u")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))

	_, err = c.GenerateJSON(context.Background(), "s", "u")
	assert.EqualError(t, err, "nope")
	assert.Equal(t, "scripted", c.Name())
}

func TestWithTracing_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	inner := &scriptedClient{results: []scripted{{raw: `{"a":1}`}, {err: errors.New("nope")}}}
	c := Wrap(inner, WithTracing(tp, "test"))

	_, err := c.GenerateJSON(WithPhase(context.Background(), PhaseDiagnosis), "sys", "user")
	require.NoError(t, err)
	_, err = c.GenerateJSON(WithPhase(context.Background(), PhaseExtraction), "s", "u")
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "llm.diagnosis", ok.Name())
	assert.Equal(t, codes.Unset, ok.Status().Code)
	assert.Contains(t, ok.Attributes(), attribute.String("llm.client", "scripted"))
	assert.Contains(t, ok.Attributes(), attribute.Int("llm.request_bytes", 7))

	failed := spans[1]
	assert.Equal(t, "llm.extraction", failed.Name())
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "nope", failed.Status().Description)
	require.Len(t, failed.Events(), 1)
	assert.Equal(t, "exception", failed.Events()[0].Name)
}

func TestPhaseFrom(t *testing.T) {
	assert.Equal(t, "unknown", PhaseFrom(context.Background()))
	assert.Equal(t, PhaseExtraction, PhaseFrom(WithPhase(context.Background(), PhaseExtraction)))
}
