package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ruralclinic/internal/intake"
	"ruralclinic/internal/triage"
)

// Extractor implements intake.Extractor on top of an LLM.
type Extractor struct {
	llm Client
	now func() time.Time
}

func NewExtractor(llm Client) *Extractor {
	return &Extractor{llm: llm, now: time.Now}
}

func (e *Extractor) Extract(ctx context.Context, text string) (intake.Extraction, error) {
	ctx = WithPhase(ctx, PhaseExtraction)
	raw, err := e.llm.GenerateJSON(ctx, ExtractionPrompt, text)
	if err != nil {
		return intake.Extraction{}, fmt.Errorf("extraction request: %w", err)
	}

	var doc struct {
		Summary     string       `json:"patient_input_summary"`
		ExtractedAt string       `json:"extracted_timestamp"`
		Flags       intake.Flags `json:"flags"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		// flags of the wrong shape should not sink the whole extraction
		doc.Flags = intake.Flags{UncertaintyDetected: true}
		var loose struct {
			Summary     string `json:"patient_input_summary"`
			ExtractedAt string `json:"extracted_timestamp"`
		}
		if err := json.Unmarshal(raw, &loose); err != nil {
			return intake.Extraction{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		doc.Summary, doc.ExtractedAt = loose.Summary, loose.ExtractedAt
	}
	var record triage.SymptomRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return intake.Extraction{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	out := intake.Extraction{
		Summary:     strings.TrimSpace(doc.Summary),
		ExtractedAt: e.now().UTC(),
		Flags:       doc.Flags,
		Record:      record,
	}
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(doc.ExtractedAt)); err == nil {
		out.ExtractedAt = ts.UTC()
	}
	if out.Flags.MissingCriticalInfo == nil {
		out.Flags.MissingCriticalInfo = []string{}
	}
	return out, nil
}
