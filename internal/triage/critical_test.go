package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchCritical(t *testing.T) {
	tests := []struct {
		name      string
		symptoms  []Symptom
		condition string
		matched   bool
	}{
		{
			name:      "myocardial_infarction_breath",
			symptoms:  []Symptom{{Name: "chest_pain", SeverityScale: 2}, {Name: "shortness_of_breath"}},
			condition: "Possible Myocardial Infarction",
			matched:   true,
		},
		{
			name:      "myocardial_infarction_sweating",
			symptoms:  []Symptom{{Name: "sweating"}, {Name: "Chest Pain"}},
			condition: "Possible Myocardial Infarction",
			matched:   true,
		},
		{
			name:      "stroke",
			symptoms:  []Symptom{{Name: "FACIAL_DROOP"}, {Name: "arm weakness"}, {Name: "headache"}},
			condition: "Possible Stroke",
			matched:   true,
		},
		{
			name:      "hemorrhagic_shock_via_symptom_key",
			symptoms:  []Symptom{{Alias: "active bleeding"}, {Name: "dizziness"}},
			condition: "Hemorrhagic Shock",
			matched:   true,
		},
		{
			name:     "partial_overlap",
			symptoms: []Symptom{{Name: "chest_pain", SeverityScale: 10}},
		},
		{
			name:     "no_fuzzy_matching",
			symptoms: []Symptom{{Name: "chest_pains"}, {Name: "shortness_of_breath_on_exertion"}},
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchCritical(tt.symptoms)
			require.Equal(t, tt.matched, ok)
			if !tt.matched {
				assert.Equal(t, DiagnosisVerdict{}, got)
				return
			}
			assert.Equal(t, tt.condition, got.PrimaryDiagnosis)
			assert.Equal(t, 100, got.ConfidenceScore)
			assert.True(t, got.IsCritical)
			assert.Empty(t, got.Differentials)
			assert.NotNil(t, got.Differentials)
			assert.Nil(t, got.DietaryAdvice)
			assert.Contains(t, got.RecommendedAction, "IMMEDIATE ER TRANSFER")
			assert.Equal(t, "CRITICAL EMERGENCY: Symptoms match strict clinical protocol for "+tt.condition, got.ReasoningSummary)
		})
	}
}

func TestMatchCritical_DeclarationOrderWins(t *testing.T) {
	patterns := []CriticalPattern{
		{Symptoms: []string{"dizziness"}, Condition: "first"},
		{Symptoms: []string{"dizziness", "active_bleeding"}, Condition: "second"},
	}

	got, ok := matchPatterns(patterns, []Symptom{{Name: "active_bleeding"}, {Name: "dizziness"}})

	require.True(t, ok)
	assert.Equal(t, "first", got.PrimaryDiagnosis)
}

func TestMatchCritical_EmptyPatternNeverFires(t *testing.T) {
	_, ok := matchPatterns([]CriticalPattern{{Condition: "vacuous"}}, []Symptom{{Name: "cough"}})
	assert.False(t, ok)
}
