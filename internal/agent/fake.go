package agent

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// FakeClient returns deterministic JSON per phase for offline runs and
// tests. Extraction uses a small phrase table; diagnosis always answers
// with a low-confidence verdict.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "fake" }

type fakePhrase struct {
	phrases []string
	name    string
	system  string
}

var fakePhrases = []fakePhrase{
	{[]string{"chest pain", "chest hurts"}, "chest_pain", "cardiovascular"},
	{[]string{"short of breath", "shortness of breath", "can't breathe", "breathless"}, "shortness_of_breath", "respiratory"},
	{[]string{"sweating", "sweaty"}, "sweating", "cardiovascular"},
	{[]string{"cough"}, "cough", "respiratory"},
	{[]string{"runny nose"}, "runny_nose", "respiratory"},
	{[]string{"fever", "temperature"}, "fever", "general"},
	{[]string{"headache"}, "headache", "neurological"},
	{[]string{"dizzy", "dizziness"}, "dizziness", "neurological"},
	{[]string{"face drooping", "facial droop"}, "facial_droop", "neurological"},
	{[]string{"arm weakness", "weak arm"}, "arm_weakness", "neurological"},
	{[]string{"bleeding"}, "active_bleeding", "general"},
	{[]string{"vomiting"}, "vomiting", "gastrointestinal"},
	{[]string{"diarrhea", "diarrhoea", "loose motion"}, "diarrhea", "gastrointestinal"},
	{[]string{"broken", "fracture"}, "fracture", "musculoskeletal"},
	{[]string{"kill myself", "suicid", "end my life"}, "suicidal_ideation", "mental_health"},
}

var (
	reTemperature = regexp.MustCompile(`\b(9[5-9]|10[0-9])(\.\d+)?\b`)
	severeWords   = []string{"severe", "crushing", "unbearable", "worst", "a lot"}
	mildWords     = []string{"mild", "slight", "little"}
)

func (f *FakeClient) GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var obj any
	switch PhaseFrom(ctx) {
	case PhaseExtraction:
		obj = fakeExtraction(user)
	case PhaseDiagnosis:
		obj = map[string]any{
			"primary_diagnosis":  "Undifferentiated Illness",
			"confidence_score":   30,
			"differentials":      []any{},
			"reasoning_summary":  "offline model",
			"recommended_action": "Clinical review",
			"dietary_advice":     nil,
		}
	default:
		obj = map[string]any{}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func fakeExtraction(text string) map[string]any {
	lower := strings.ToLower(text)
	severity := 0
	switch {
	case containsWord(lower, severeWords):
		severity = 9
	case containsWord(lower, mildWords):
		severity = 2
	}
	onset := any(nil)
	if strings.Contains(lower, "sudden") {
		onset = "sudden"
	}

	systems := map[string][]map[string]any{}
	for _, p := range fakePhrases {
		if !containsWord(lower, p.phrases) {
			continue
		}
		s := map[string]any{
			"name":           p.name,
			"value":          nil,
			"severity_scale": severity,
			"onset":          onset,
			"body_system":    p.system,
		}
		if p.name == "fever" {
			if m := reTemperature.FindString(lower); m != "" {
				s["value"] = m
			}
		}
		systems[p.system] = append(systems[p.system], s)
	}

	summary := truncateRunes(strings.TrimSpace(text), 120)
	return map[string]any{
		"patient_input_summary": summary,
		"extracted_timestamp":   time.Unix(0, 0).UTC().Format(time.RFC3339),
		"body_systems":          systems,
		"flags": map[string]any{
			"uncertainty_detected":  len(systems) == 0,
			"missing_critical_info": []string{},
		},
	}
}

func containsWord(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
