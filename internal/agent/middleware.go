package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Middleware decorates a Client with a cross-cutting concern.
type Middleware func(Client) Client

// Wrap applies middlewares left to right: Wrap(c, A, B) == A(B(c)).
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Retry --------

// Retry retries GenerateJSON up to attempts times with exponential backoff
// starting at base. Permanent errors and context cancellation stop it.
func Retry(attempts int, base time.Duration) Middleware {
	if attempts < 1 {
		attempts = 1
	}
	if base <= 0 {
		base = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, attempts: attempts, base: base}
	}
}

type retrying struct {
	next     Client
	attempts int
	base     time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	var last error
	for i := 0; i < r.attempts; i++ {
		raw, err := r.next.GenerateJSON(ctx, system, user)
		if err == nil {
			return raw, nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return nil, err
		}
		last = err
		if i == r.attempts-1 {
			break
		}
		timer := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, last
}

// -------- Cache --------

// Cache memoizes successful responses keyed by client, system and user
// prompt. Calls run at temperature 0, so repeats of the same intake return
// the same document. size <= 0 disables caching.
func Cache(size int) Middleware {
	return func(next Client) Client {
		if size <= 0 {
			return next
		}
		c, err := lru.New[string, json.RawMessage](size)
		if err != nil {
			return next
		}
		return &cached{next: next, lru: c}
	}
}

type cached struct {
	next Client
	lru  *lru.Cache[string, json.RawMessage]
}

func (c *cached) Name() string { return c.next.Name() }

func (c *cached) GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	key := cacheKey(c.next.Name(), system, user)
	if raw, ok := c.lru.Get(key); ok {
		return append(json.RawMessage(nil), raw...), nil
	}
	raw, err := c.next.GenerateJSON(ctx, system, user)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, append(json.RawMessage(nil), raw...))
	return raw, nil
}

func cacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// -------- Logging --------

// WithLogging logs request size, latency and errors. nil uses
// slog.Default().
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *slog.Logger
}

func (l *logging) Name() string { return l.next.Name() }

func (l *logging) GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	start := time.Now()
	raw, err := l.next.GenerateJSON(ctx, system, user)
	attrs := []any{
		"client", l.next.Name(),
		"phase", PhaseFrom(ctx),
		"request_bytes", len(system) + len(user),
		"duration", time.Since(start),
	}
	if err != nil {
		l.log.Warn("llm request failed", append(attrs, "error", err)...)
		return nil, err
	}
	l.log.Debug("llm request", append(attrs, "response_bytes", len(raw))...)
	return raw, nil
}

// -------- Tracing --------

// WithTracing opens a span per call on tp. A nil tp uses the global
// provider.
func WithTracing(tp trace.TracerProvider, tracerName string) Middleware {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return func(next Client) Client {
		return &traced{next: next, tracer: tp.Tracer(tracerName)}
	}
}

type traced struct {
	next   Client
	tracer trace.Tracer
}

func (t *traced) Name() string { return t.next.Name() }

func (t *traced) GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	ctx, span := t.tracer.Start(ctx, "llm."+PhaseFrom(ctx))
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.client", t.next.Name()),
		attribute.Int("llm.request_bytes", len(system)+len(user)),
	)
	raw, err := t.next.GenerateJSON(ctx, system, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return raw, nil
}
