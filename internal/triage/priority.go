package triage

import (
	"fmt"
	"strings"
)

var defaultVerdict = PriorityVerdict{
	Priority:  PriorityGreen,
	Action:    "ROUTINE: Schedule standard intake.",
	Rationale: "No critical red flags detected.",
}

// traumaMarkers flag a symptom as possible trauma when they appear anywhere
// in its name. Imaging is scarce in rural clinics, so any mention escalates.
var traumaMarkers = []string{"fracture", "bone", "deformity"}

// EvaluatePriority classifies a record as RED, AMBER or GREEN.
//
// RED rules are resolved over the whole record before any AMBER rule is
// considered, so a RED finding always wins regardless of where it appears.
// Within the AMBER pass a high fever only sets the working result while
// suicidal ideation returns at once.
func EvaluatePriority(record SymptomRecord) PriorityVerdict {
	symptoms := record.Flatten()

	for _, s := range symptoms {
		if v, ok := redVerdict(s); ok {
			return v
		}
	}

	result := defaultVerdict
	for _, s := range symptoms {
		name := s.NormalizedName()
		switch name {
		case "fever":
			val := s.ValueText()
			if strings.Contains(val, "104") || strings.Contains(val, "105") {
				result = PriorityVerdict{
					Priority:  PriorityAmber,
					Action:    "URGENT: High Grade Fever. Evaluate within 1 hour.",
					Rationale: "High fever detected: " + val,
				}
			}
		case "suicidal_ideation":
			return PriorityVerdict{
				Priority:  PriorityAmber,
				Action:    "URGENT: Mental Health Crisis. Monitor Patient 1:1.",
				Rationale: "Suicidal ideation flagged.",
			}
		}
	}
	return result
}

func redVerdict(s Symptom) (PriorityVerdict, bool) {
	name := s.NormalizedName()
	switch {
	case name == "chest_pain" && s.SeverityScale >= 7:
		return PriorityVerdict{
			Priority:  PriorityRed,
			Action:    "CRITICAL: Potential ACS. Dispatch Ambulance / ER Transfer.",
			Rationale: fmt.Sprintf("Detected severe chest pain (Severity: %d)", s.SeverityScale),
		}, true
	case name == "shortness_of_breath" && s.Onset == "sudden":
		return PriorityVerdict{
			Priority:  PriorityRed,
			Action:    "CRITICAL: Respiratory Distress. Immediate Evaluation.",
			Rationale: "Sudden onset shortness of breath detected.",
		}, true
	case containsAny(name, traumaMarkers):
		return PriorityVerdict{
			Priority:  PriorityRed,
			Action:    "CRITICAL: Possible Fracture/Trauma. Immobilize & Transfer.",
			Rationale: "Detected potential fracture symptom: " + name,
		}, true
	}
	return PriorityVerdict{}, false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
