package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ruralclinic/internal/triage"
)

// Diagnoser implements triage.InferenceService on top of an LLM.
type Diagnoser struct {
	llm Client
}

func NewDiagnoser(llm Client) *Diagnoser {
	return &Diagnoser{llm: llm}
}

func (d *Diagnoser) Infer(ctx context.Context, req triage.InferenceRequest) (triage.DiagnosisVerdict, error) {
	ctx = WithPhase(ctx, PhaseDiagnosis)
	raw, err := d.llm.GenerateJSON(ctx, DiagnosisPrompt, diagnosisInput(req))
	if err != nil {
		return triage.DiagnosisVerdict{}, fmt.Errorf("diagnosis request: %w", err)
	}
	return decodeVerdict(raw)
}

func diagnosisInput(req triage.InferenceRequest) string {
	demo := "Demographics unknown"
	if d := req.Demographics; d != nil {
		age := "unknown"
		if d.Age != nil {
			age = strconv.Itoa(*d.Age)
		}
		sex := d.Sex
		if sex == "" {
			sex = "unknown"
		}
		demo = fmt.Sprintf("Age: %s, Sex: %s", age, sex)
	}

	parts := make([]string, 0, len(req.Symptoms))
	for _, s := range req.Symptoms {
		parts = append(parts, fmt.Sprintf("%s (Severity: %d)", s.Name, s.SeverityScale))
	}
	symptoms := strings.Join(parts, ", ")
	if symptoms == "" {
		symptoms = "none reported"
	}

	in, _ := json.MarshalIndent(req, "", "  ")
	return fmt.Sprintf("Patient Demographics: %s\nSymptoms: %s\n\nProvide Differential Diagnosis JSON.\n\n[INPUT JSON]\n%s", demo, symptoms, in)
}

type wireVerdict struct {
	PrimaryDiagnosis  string             `json:"primary_diagnosis"`
	ConfidenceScore   json.RawMessage    `json:"confidence_score"`
	Differentials     []wireDifferential `json:"differentials"`
	ReasoningSummary  string             `json:"reasoning_summary"`
	RecommendedAction string             `json:"recommended_action"`
	IsCritical        json.RawMessage    `json:"is_critical"`
	DietaryAdvice     json.RawMessage    `json:"dietary_advice"`
}

type wireDifferential struct {
	Condition   string          `json:"condition"`
	Probability json.RawMessage `json:"probability"`
	Reasoning   string          `json:"reasoning"`
}

// decodeVerdict reads a model verdict, tolerating numbers sent as strings
// ("85", "85%") and a dietary advice block of the wrong shape.
func decodeVerdict(raw json.RawMessage) (triage.DiagnosisVerdict, error) {
	var w wireVerdict
	if err := json.Unmarshal(raw, &w); err != nil {
		return triage.DiagnosisVerdict{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	v := triage.DiagnosisVerdict{
		PrimaryDiagnosis:  strings.TrimSpace(w.PrimaryDiagnosis),
		ConfidenceScore:   lenientFloor(w.ConfidenceScore),
		Differentials:     make([]triage.Differential, 0, len(w.Differentials)),
		ReasoningSummary:  w.ReasoningSummary,
		RecommendedAction: w.RecommendedAction,
		IsCritical:        lenientBool(w.IsCritical),
	}
	for _, d := range w.Differentials {
		v.Differentials = append(v.Differentials, triage.Differential{
			Condition:   d.Condition,
			Probability: lenientInt(d.Probability),
			Reasoning:   d.Reasoning,
		})
	}
	if t := bytes.TrimSpace(w.DietaryAdvice); len(t) > 0 && !bytes.Equal(t, []byte("null")) {
		var advice triage.DietaryAdvice
		if err := json.Unmarshal(t, &advice); err == nil {
			v.DietaryAdvice = &advice
		}
	}
	return v, nil
}

// lenientFloor truncates toward negative infinity so a score just under
// the suppression threshold (39.6) stays under it.
func lenientFloor(raw json.RawMessage) int {
	f, ok := lenientNumber(raw)
	if !ok {
		return 0
	}
	return int(math.Floor(f))
}

func lenientInt(raw json.RawMessage) int {
	f, ok := lenientNumber(raw)
	if !ok {
		return 0
	}
	return int(math.Round(f))
}

func lenientNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		f, err = strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
		if err != nil {
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func lenientBool(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		b, _ = strconv.ParseBool(strings.TrimSpace(s))
	}
	return b
}
