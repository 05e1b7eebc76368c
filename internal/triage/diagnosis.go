package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SuppressionThreshold is the lowest confidence score a non-critical
// inferred diagnosis may carry and still be shown.
const SuppressionThreshold = 40

const (
	InsufficientDataDiagnosis = "Insufficient Clinical Data"
	FallbackDiagnosis         = "Unspecified Clinical Presentation"
	ManualTriageAction        = "Manual Triage Required"
)

var (
	ErrNoInference      = errors.New("triage: no inference service configured")
	ErrMalformedVerdict = errors.New("triage: malformed diagnosis verdict")
)

// InferenceSymptom is the slice of a symptom sent to inference.
type InferenceSymptom struct {
	Name          string `json:"name"`
	SeverityScale int    `json:"severity_scale"`
}

type InferenceRequest struct {
	Symptoms     []InferenceSymptom `json:"symptoms"`
	Demographics *Demographics      `json:"demographics"`
}

// InferenceService produces a probabilistic differential diagnosis. Any
// returned error is treated as an unavailable service.
type InferenceService interface {
	Infer(ctx context.Context, req InferenceRequest) (DiagnosisVerdict, error)
}

// InferenceFunc adapts a function to InferenceService.
type InferenceFunc func(ctx context.Context, req InferenceRequest) (DiagnosisVerdict, error)

func (f InferenceFunc) Infer(ctx context.Context, req InferenceRequest) (DiagnosisVerdict, error) {
	return f(ctx, req)
}

// Coordinator layers the critical rules over probabilistic inference.
type Coordinator struct {
	inference InferenceService
	patterns  []CriticalPattern
	timeout   time.Duration
	log       *slog.Logger
}

type CoordinatorOption func(*Coordinator)

// WithTimeout bounds each inference call. Zero leaves the caller's
// deadline in charge.
func WithTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.timeout = d }
}

func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithCriticalPatterns replaces the default critical pattern list.
func WithCriticalPatterns(p []CriticalPattern) CoordinatorOption {
	return func(c *Coordinator) { c.patterns = p }
}

func NewCoordinator(inference InferenceService, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		inference: inference,
		patterns:  CriticalPatterns,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Diagnose always returns a well-formed verdict. A critical pattern match
// is returned as-is without consulting inference; an inference failure
// yields FallbackVerdict.
func (c *Coordinator) Diagnose(ctx context.Context, symptoms []Symptom, demographics *Demographics) DiagnosisVerdict {
	if v, ok := matchPatterns(c.patterns, symptoms); ok {
		return v
	}

	verdict, err := c.infer(ctx, NewInferenceRequest(symptoms, demographics))
	if err != nil {
		c.log.Warn("diagnostic inference failed, using fallback verdict", "error", err)
		return FallbackVerdict()
	}
	return Suppress(verdict)
}

func (c *Coordinator) infer(ctx context.Context, req InferenceRequest) (verdict DiagnosisVerdict, err error) {
	if c.inference == nil {
		return DiagnosisVerdict{}, ErrNoInference
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			verdict, err = DiagnosisVerdict{}, fmt.Errorf("triage: inference panicked: %v", r)
		}
	}()

	verdict, err = c.inference.Infer(ctx, req)
	if err != nil {
		return DiagnosisVerdict{}, err
	}
	if strings.TrimSpace(verdict.PrimaryDiagnosis) == "" {
		return DiagnosisVerdict{}, fmt.Errorf("%w: missing primary diagnosis", ErrMalformedVerdict)
	}
	if verdict.ConfidenceScore < 0 || verdict.ConfidenceScore > 100 {
		return DiagnosisVerdict{}, fmt.Errorf("%w: confidence %d out of range", ErrMalformedVerdict, verdict.ConfidenceScore)
	}
	return verdict, nil
}

// NewInferenceRequest reduces symptoms to normalized name and severity.
func NewInferenceRequest(symptoms []Symptom, demographics *Demographics) InferenceRequest {
	req := InferenceRequest{
		Symptoms:     make([]InferenceSymptom, 0, len(symptoms)),
		Demographics: demographics,
	}
	for _, s := range symptoms {
		req.Symptoms = append(req.Symptoms, InferenceSymptom{
			Name:          s.NormalizedName(),
			SeverityScale: s.SeverityScale,
		})
	}
	return req
}

// Suppress hides a low-confidence, non-critical inferred diagnosis behind
// the insufficient-data verdict. The confidence score itself is kept.
func Suppress(v DiagnosisVerdict) DiagnosisVerdict {
	if v.ConfidenceScore >= SuppressionThreshold || v.flaggedCritical() {
		return v
	}
	v.PrimaryDiagnosis = InsufficientDataDiagnosis
	v.ReasoningSummary = "The reported symptoms are too vague to form a reliable differential diagnosis. Please gather more history (duration, severity, location)."
	v.RecommendedAction = "Conduct detailed patient interview."
	v.Differentials = []Differential{}
	v.DietaryAdvice = &DietaryAdvice{
		RecommendedFoods: []string{},
		FoodsToAvoid:     []string{},
		DailyHabit:       "We do not have enough symptoms to provide specific dietary advice.",
	}
	return v
}

func (v DiagnosisVerdict) flaggedCritical() bool {
	if v.IsCritical {
		return true
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(v.PrimaryDiagnosis)), "CRITICAL")
}

// FallbackVerdict is returned when inference is unavailable.
func FallbackVerdict() DiagnosisVerdict {
	return DiagnosisVerdict{
		PrimaryDiagnosis:  FallbackDiagnosis,
		ConfidenceScore:   0,
		Differentials:     []Differential{},
		ReasoningSummary:  "AI Service Unavailable. Clinical judgment required.",
		RecommendedAction: ManualTriageAction,
	}
}
