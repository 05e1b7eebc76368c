package triage

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Priority is the clinical urgency tier assigned to an intake.
type Priority string

const (
	PriorityRed   Priority = "RED"
	PriorityAmber Priority = "AMBER"
	PriorityGreen Priority = "GREEN"
)

type BodySystem string

const (
	SystemGeneral          BodySystem = "general"
	SystemRespiratory      BodySystem = "respiratory"
	SystemCardiovascular   BodySystem = "cardiovascular"
	SystemGastrointestinal BodySystem = "gastrointestinal"
	SystemNeurological     BodySystem = "neurological"
	SystemGenitourinary    BodySystem = "genitourinary"
	SystemMusculoskeletal  BodySystem = "musculoskeletal"
	SystemMentalHealth     BodySystem = "mental_health"
)

// BodySystems lists the known tags in the order records are flattened.
var BodySystems = []BodySystem{
	SystemGeneral,
	SystemRespiratory,
	SystemCardiovascular,
	SystemGastrointestinal,
	SystemNeurological,
	SystemGenitourinary,
	SystemMusculoskeletal,
	SystemMentalHealth,
}

// UnknownSymptom is the normalized name of an entry that carried no name.
const UnknownSymptom = "unknown"

const (
	MinSeverity = 0
	MaxSeverity = 10
)

// Symptom is one reported clinical finding as produced by extraction.
// Name and Alias hold the raw keys ("name" and "symptom"); rule code reads
// NormalizedName instead.
type Symptom struct {
	Name          string     `json:"name"`
	Alias         string     `json:"symptom,omitempty"`
	Value         string     `json:"value,omitempty"`
	SeverityScale int        `json:"severity_scale"`
	Onset         string     `json:"onset,omitempty"`
	BodySystem    BodySystem `json:"body_system,omitempty"`

	DurationValue *float64 `json:"duration_value,omitempty"`
	DurationUnit  string   `json:"duration_unit,omitempty"`
	Certainty     string   `json:"certainty,omitempty"`
	Negated       bool     `json:"negated,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// NormalizedName lower-cases the symptom name and joins words with
// underscores. "name" takes precedence over "symptom"; an entry with
// neither normalizes to UnknownSymptom.
func (s Symptom) NormalizedName() string {
	raw := strings.TrimSpace(s.Name)
	if raw == "" {
		raw = strings.TrimSpace(s.Alias)
	}
	if raw == "" {
		return UnknownSymptom
	}
	return strings.ReplaceAll(strings.ToLower(raw), " ", "_")
}

// ValueText is the measured value as text, "0" when none was reported.
func (s Symptom) ValueText() string {
	if s.Value == "" {
		return "0"
	}
	return s.Value
}

// UnmarshalJSON decodes a symptom leniently. Mistyped fields fall back to
// neutral values and a non-object entry becomes an unnamed symptom, so a
// bad entry never fails the surrounding record.
func (s *Symptom) UnmarshalJSON(data []byte) error {
	*s = Symptom{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	s.Name = rawText(raw["name"])
	s.Alias = rawText(raw["symptom"])
	s.Value = rawText(raw["value"])
	s.SeverityScale = clampSeverity(rawNumber(raw["severity_scale"]))
	s.Onset = rawText(raw["onset"])
	s.BodySystem = BodySystem(strings.ToLower(rawText(raw["body_system"])))
	if v, ok := rawFloat(raw["duration_value"]); ok {
		s.DurationValue = &v
	}
	s.DurationUnit = rawText(raw["duration_unit"])
	s.Certainty = rawText(raw["certainty"])
	s.Negated = rawBool(raw["negated"])
	s.Notes = rawText(raw["notes"])
	return nil
}

// Demographics are optional patient facts passed to inference.
type Demographics struct {
	Age *int   `json:"age,omitempty" validate:"omitempty,min=0,max=130"`
	Sex string `json:"sex,omitempty" validate:"max=32"`
}

// UnmarshalJSON accepts "age" or the extractor's "age_value".
func (d *Demographics) UnmarshalJSON(data []byte) error {
	*d = Demographics{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	age, ok := rawFloat(raw["age"])
	if !ok {
		age, ok = rawFloat(raw["age_value"])
	}
	if ok {
		n := int(math.Round(age))
		d.Age = &n
	}
	d.Sex = rawText(raw["sex"])
	return nil
}

// SymptomRecord is the structured intake handed to the engine. The engine
// only reads it.
type SymptomRecord struct {
	BodySystems  map[BodySystem][]Symptom `json:"body_systems"`
	Demographics *Demographics            `json:"demographics,omitempty"`
}

// UnmarshalJSON decodes body systems leniently and accepts the extractor's
// "patient_demographics" key when "demographics" is absent.
func (r *SymptomRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		BodySystems         map[string]json.RawMessage `json:"body_systems"`
		Demographics        json.RawMessage            `json:"demographics"`
		PatientDemographics json.RawMessage            `json:"patient_demographics"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.BodySystems = make(map[BodySystem][]Symptom, len(raw.BodySystems))
	for tag, entries := range raw.BodySystems {
		r.BodySystems[BodySystem(strings.ToLower(tag))] = decodeSymptoms(entries)
	}
	r.Demographics = nil
	demo := raw.Demographics
	if isNull(demo) {
		demo = raw.PatientDemographics
	}
	if !isNull(demo) {
		var d Demographics
		_ = json.Unmarshal(demo, &d)
		if d.Age != nil || d.Sex != "" {
			r.Demographics = &d
		}
	}
	return nil
}

func decodeSymptoms(data json.RawMessage) []Symptom {
	var list []Symptom
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}
	// a lone object instead of a list
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var s Symptom
		_ = json.Unmarshal(data, &s)
		return []Symptom{s}
	}
	return nil
}

// Flatten returns every symptom in a fixed order: known body systems in
// BodySystems order, then unrecognized tags alphabetically, each keeping
// extraction order. Returned symptoms are copies with BodySystem filled in
// from their tag when the entry did not carry one.
func (r SymptomRecord) Flatten() []Symptom {
	out := make([]Symptom, 0, r.Len())
	for _, tag := range r.systemOrder() {
		for _, s := range r.BodySystems[tag] {
			if s.BodySystem == "" {
				s.BodySystem = tag
			}
			out = append(out, s)
		}
	}
	return out
}

// Len is the total number of symptoms across body systems.
func (r SymptomRecord) Len() int {
	n := 0
	for _, list := range r.BodySystems {
		n += len(list)
	}
	return n
}

func (r SymptomRecord) systemOrder() []BodySystem {
	order := make([]BodySystem, 0, len(r.BodySystems))
	known := make(map[BodySystem]bool, len(BodySystems))
	for _, tag := range BodySystems {
		known[tag] = true
		if _, ok := r.BodySystems[tag]; ok {
			order = append(order, tag)
		}
	}
	var extra []BodySystem
	for tag := range r.BodySystems {
		if !known[tag] {
			extra = append(extra, tag)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(order, extra...)
}

// PriorityVerdict is the output of the priority rules.
type PriorityVerdict struct {
	Priority  Priority `json:"priority" validate:"required,oneof=RED AMBER GREEN"`
	Action    string   `json:"action"`
	Rationale string   `json:"rationale"`
}

type Differential struct {
	Condition   string `json:"condition"`
	Probability int    `json:"probability"`
	Reasoning   string `json:"reasoning"`
}

// DietaryAdvice is plain-language food guidance attached to a diagnosis.
type DietaryAdvice struct {
	RecommendedFoods []string `json:"recommended_foods"`
	FoodsToAvoid     []string `json:"foods_to_avoid"`
	DailyHabit       string   `json:"daily_habit"`
}

// DiagnosisVerdict is the differential diagnosis summary for an intake.
type DiagnosisVerdict struct {
	PrimaryDiagnosis  string         `json:"primary_diagnosis"`
	ConfidenceScore   int            `json:"confidence_score" validate:"min=0,max=100"`
	Differentials     []Differential `json:"differentials"`
	ReasoningSummary  string         `json:"reasoning_summary"`
	RecommendedAction string         `json:"recommended_action"`
	IsCritical        bool           `json:"is_critical,omitempty"`
	DietaryAdvice     *DietaryAdvice `json:"dietary_advice"`
}

// MarshalJSON keeps differentials a list even when empty.
func (v DiagnosisVerdict) MarshalJSON() ([]byte, error) {
	type plain DiagnosisVerdict
	if v.Differentials == nil {
		v.Differentials = []Differential{}
	}
	return json.Marshal(plain(v))
}

// Response is the final triage response: the priority verdict with the
// diagnosis nested under "diagnosis".
type Response struct {
	PriorityVerdict
	Diagnosis DiagnosisVerdict `json:"diagnosis"`
}

// clampSeverity truncates fractional scores so 6.5 stays below a >= 7 rule.
func clampSeverity(v float64) int {
	n := int(math.Floor(v))
	if n < MinSeverity {
		return MinSeverity
	}
	if n > MaxSeverity {
		return MaxSeverity
	}
	return n
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// rawText renders strings as-is and numbers/bools by their literal text.
func rawText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	t := bytes.TrimSpace(raw)
	switch t[0] {
	case '{', '[':
		return ""
	}
	return string(t)
}

func rawFloat(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func rawNumber(raw json.RawMessage) float64 {
	f, _ := rawFloat(raw)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func rawBool(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	b, _ = strconv.ParseBool(rawText(raw))
	return b
}
