package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ruralclinic/internal/triage"
)

var (
	ErrEmptyText        = errors.New("intake: text is empty")
	ErrExtractionFailed = errors.New("intake: extraction failed")
	ErrSlipUnavailable  = errors.New("intake: referral slips are not configured")
)

// Extractor turns free text into a symptom record.
type Extractor interface {
	Extract(ctx context.Context, text string) (Extraction, error)
}

// Evaluator produces the final triage response for a record.
type Evaluator interface {
	Evaluate(ctx context.Context, record triage.SymptomRecord) triage.Response
}

// Referrals renders slips and notifies the on-call doctor.
type Referrals interface {
	RenderSlip(resp triage.Response) ([]byte, error)
	SendReferralAlert(ctx context.Context, resp triage.Response) error
}

type Service interface {
	Ingest(ctx context.Context, text string) (*IngestResult, error)
	Triage(ctx context.Context, record triage.SymptomRecord) triage.Response
	ReferralSlip(ctx context.Context, resp triage.Response) ([]byte, error)
	// Wait blocks until background alerts have finished.
	Wait()
}

const alertTimeout = 30 * time.Second

type service struct {
	extractor Extractor
	evaluator Evaluator
	referrals Referrals
	alerts    bool
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewService wires the intake pipeline. referrals may be nil; alerting
// controls whether RED results are pushed to the doctor chat.
func NewService(ex Extractor, ev Evaluator, referrals Referrals, alerting bool, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		extractor: ex,
		evaluator: ev,
		referrals: referrals,
		alerts:    alerting && referrals != nil,
		logger:    logger,
	}
}

func (s *service) Ingest(ctx context.Context, text string) (*IngestResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	ex, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	res := &IngestResult{IntakeID: uuid.New(), Extraction: ex}
	s.logger.Info("intake extracted",
		"intake_id", res.IntakeID,
		"symptoms", ex.Record.Len(),
		"uncertain", ex.Flags.UncertaintyDetected,
	)
	return res, nil
}

func (s *service) Triage(ctx context.Context, record triage.SymptomRecord) triage.Response {
	resp := s.evaluator.Evaluate(ctx, record)
	s.logger.Info("triage complete",
		"priority", resp.Priority,
		"diagnosis", resp.Diagnosis.PrimaryDiagnosis,
		"confidence", resp.Diagnosis.ConfidenceScore,
	)
	if resp.Priority == triage.PriorityRed && s.alerts {
		s.wg.Add(1)
		go func(r triage.Response) {
			defer s.wg.Done()
			// detached from the request so the alert outlives the response
			bgCtx, cancel := context.WithTimeout(context.Background(), alertTimeout)
			defer cancel()
			if err := s.referrals.SendReferralAlert(bgCtx, r); err != nil {
				s.logger.Warn("referral alert failed", "error", err)
				return
			}
			s.logger.Info("referral alert sent", "priority", r.Priority)
		}(resp)
	}
	return resp
}

func (s *service) ReferralSlip(ctx context.Context, resp triage.Response) ([]byte, error) {
	if s.referrals == nil {
		return nil, ErrSlipUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.referrals.RenderSlip(resp)
}

func (s *service) Wait() { s.wg.Wait() }
