package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"ruralclinic/internal/config"
)

// New builds the configured model client wrapped with tracing, logging,
// caching and retries. A nil tp traces on the global provider. Retries sit innermost so one logical call is
// logged and traced once.
func New(ctx context.Context, cfg config.LLMConfig, tp trace.TracerProvider, logger *slog.Logger) (Client, error) {
	var base Client
	switch cfg.Provider {
	case config.ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("llm provider %q requires GROQ_API_KEY", cfg.Provider)
		}
		base = NewGroqClient(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel, cfg.Timeout)
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("llm provider %q requires GEMINI_API_KEY", cfg.Provider)
		}
		g, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		base = g
	case config.ProviderFake, "":
		base = NewFakeClient()
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	return Wrap(base,
		WithTracing(tp, "ruralclinic/agent"),
		WithLogging(logger),
		Cache(cfg.CacheSize),
		Retry(cfg.RetryAttempts, 300*time.Millisecond),
	), nil
}
