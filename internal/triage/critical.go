package triage

import "strings"

// CriticalPattern is a life-threatening symptom combination. It matches
// only when every symptom in Symptoms is present.
type CriticalPattern struct {
	Symptoms  []string
	Condition string
	Severity  int
}

const criticalAction = "IMMEDIATE ER TRANSFER / AMBULANCE"

// CriticalPatterns are checked in order; the first full match wins.
var CriticalPatterns = []CriticalPattern{
	{Symptoms: []string{"chest_pain", "shortness_of_breath"}, Condition: "Possible Myocardial Infarction", Severity: 10},
	{Symptoms: []string{"chest_pain", "sweating"}, Condition: "Possible Myocardial Infarction", Severity: 10},
	{Symptoms: []string{"facial_droop", "arm_weakness"}, Condition: "Possible Stroke", Severity: 10},
	{Symptoms: []string{"active_bleeding", "dizziness"}, Condition: "Hemorrhagic Shock", Severity: 10},
}

// MatchCritical returns the critical verdict for the first pattern whose
// required symptoms are all present. ok is false when nothing matches.
func MatchCritical(symptoms []Symptom) (verdict DiagnosisVerdict, ok bool) {
	return matchPatterns(CriticalPatterns, symptoms)
}

func matchPatterns(patterns []CriticalPattern, symptoms []Symptom) (DiagnosisVerdict, bool) {
	present := make(map[string]struct{}, len(symptoms))
	for _, s := range symptoms {
		present[s.NormalizedName()] = struct{}{}
	}
	for _, p := range patterns {
		if p.containedIn(present) {
			return criticalVerdict(p), true
		}
	}
	return DiagnosisVerdict{}, false
}

func (p CriticalPattern) containedIn(present map[string]struct{}) bool {
	if len(p.Symptoms) == 0 {
		return false
	}
	for _, req := range p.Symptoms {
		if _, ok := present[strings.ToLower(req)]; !ok {
			return false
		}
	}
	return true
}

func criticalVerdict(p CriticalPattern) DiagnosisVerdict {
	return DiagnosisVerdict{
		PrimaryDiagnosis:  p.Condition,
		ConfidenceScore:   100,
		Differentials:     []Differential{},
		ReasoningSummary:  "CRITICAL EMERGENCY: Symptoms match strict clinical protocol for " + p.Condition,
		RecommendedAction: criticalAction,
		IsCritical:        true,
	}
}
