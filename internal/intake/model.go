package intake

import (
	"time"

	"github.com/google/uuid"

	"ruralclinic/internal/triage"
)

// Flags report extraction quality concerns.
type Flags struct {
	UncertaintyDetected bool     `json:"uncertainty_detected"`
	MissingCriticalInfo []string `json:"missing_critical_info"`
}

// Extraction is the structured result of reading a free-text complaint.
type Extraction struct {
	Summary     string               `json:"patient_input_summary"`
	ExtractedAt time.Time            `json:"extracted_timestamp"`
	Flags       Flags                `json:"flags"`
	Record      triage.SymptomRecord `json:"payload"`
}

// IngestResult is returned to the caller of /api/ingest. Payload can be
// posted unchanged to /api/triage.
type IngestResult struct {
	IntakeID uuid.UUID `json:"intake_id"`
	Extraction
}

type IngestRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type TriageRequest struct {
	Payload *triage.SymptomRecord `json:"payload" validate:"required"`
}
