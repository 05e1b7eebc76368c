package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/signintech/gopdf"

	"ruralclinic/internal/triage"
)

type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error
}

var ErrNoFont = errors.New("report: no usable TTF font found")

// DefaultFontPaths are tried in order after any configured font.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

const (
	fontFamily = "DejaVu"
	pageMargin = 40.0
	textWidth  = 515.0
	pageBottom = 800.0
)

type Service struct {
	tgClient     TelegramClient
	doctorChatID int64
	fontPaths    []string
	logger       *slog.Logger
	now          func() time.Time
}

// NewService builds the referral service. tg may be nil when only slips
// are needed; fontPath, when set, is tried before DefaultFontPaths.
func NewService(tg TelegramClient, doctorChatID int64, fontPath string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	paths := DefaultFontPaths
	if fontPath != "" {
		paths = append([]string{fontPath}, DefaultFontPaths...)
	}
	return &Service{
		tgClient:     tg,
		doctorChatID: doctorChatID,
		fontPaths:    paths,
		logger:       logger,
		now:          time.Now,
	}
}

// Line is one row of a referral slip.
type Line struct {
	Size float64
	Text string
	Gap  float64 // extra space after the line
}

// SlipLines lays out a triage response top to bottom.
func SlipLines(resp triage.Response, at time.Time) []Line {
	d := resp.Diagnosis
	lines := []Line{
		{Size: 20, Text: "Referral Slip", Gap: 10},
		{Size: 10, Text: "Issued: " + at.Format("02 Jan 2006 15:04 MST"), Gap: 10},
		{Size: 16, Text: "Priority: " + string(resp.Priority)},
		{Size: 12, Text: "Action: " + resp.Action},
		{Size: 12, Text: "Rationale: " + resp.Rationale, Gap: 12},
		{Size: 14, Text: "Assessment"},
		{Size: 11, Text: fmt.Sprintf("Primary: %s (confidence %d%%)", d.PrimaryDiagnosis, d.ConfidenceScore)},
	}
	if d.IsCritical {
		lines = append(lines, Line{Size: 11, Text: "Flagged critical"})
	}
	if d.RecommendedAction != "" {
		lines = append(lines, Line{Size: 11, Text: "Recommended: " + d.RecommendedAction})
	}
	if d.ReasoningSummary != "" {
		lines = append(lines, Line{Size: 11, Text: "Reasoning: " + d.ReasoningSummary})
	}
	lines[len(lines)-1].Gap = 12

	if len(d.Differentials) > 0 {
		lines = append(lines, Line{Size: 14, Text: "Differentials"})
		for _, diff := range d.Differentials {
			text := fmt.Sprintf("- %s (%d%%)", diff.Condition, diff.Probability)
			if diff.Reasoning != "" {
				text += ": " + diff.Reasoning
			}
			lines = append(lines, Line{Size: 11, Text: text})
		}
		lines[len(lines)-1].Gap = 12
	}

	if a := d.DietaryAdvice; a != nil {
		lines = append(lines, Line{Size: 14, Text: "Dietary advice"})
		if len(a.RecommendedFoods) > 0 {
			lines = append(lines, Line{Size: 11, Text: "Eat: " + strings.Join(a.RecommendedFoods, ", ")})
		}
		if len(a.FoodsToAvoid) > 0 {
			lines = append(lines, Line{Size: 11, Text: "Avoid: " + strings.Join(a.FoodsToAvoid, ", ")})
		}
		if a.DailyHabit != "" {
			lines = append(lines, Line{Size: 11, Text: "Daily habit: " + a.DailyHabit})
		}
	}
	return lines
}

// RenderSlip draws the response onto an A4 PDF.
func (s *Service) RenderSlip(resp triage.Response) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetMargins(pageMargin, pageMargin, pageMargin, pageMargin)
	pdf.AddPage()

	if err := s.loadFont(&pdf); err != nil {
		return nil, err
	}

	for _, line := range SlipLines(resp, s.now()) {
		if err := pdf.SetFont(fontFamily, "", line.Size); err != nil {
			return nil, err
		}
		wrapped, err := pdf.SplitText(line.Text, textWidth)
		if err != nil {
			// SplitText rejects empty text
			wrapped = []string{line.Text}
		}
		for _, w := range wrapped {
			if pdf.GetY() > pageBottom {
				pdf.AddPage()
			}
			pdf.SetX(pageMargin)
			if err := pdf.Cell(nil, w); err != nil {
				return nil, err
			}
			pdf.Br(line.Size + 4)
		}
		pdf.Br(line.Gap)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont(fontFamily, path); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: last error: %v", ErrNoFont, lastErr)
}

// AlertText is the chat summary of a referral.
func AlertText(resp triage.Response, ref uuid.UUID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s triage alert\n", resp.Priority)
	fmt.Fprintf(&b, "Action: %s\n", resp.Action)
	fmt.Fprintf(&b, "Rationale: %s\n", resp.Rationale)
	fmt.Fprintf(&b, "Assessment: %s (confidence %d%%)\n", resp.Diagnosis.PrimaryDiagnosis, resp.Diagnosis.ConfidenceScore)
	fmt.Fprintf(&b, "Ref: %s", ref)
	return b.String()
}

// SendReferralAlert posts the summary to the doctor chat and attaches the
// slip. The text goes first so a font problem cannot swallow the alert.
func (s *Service) SendReferralAlert(ctx context.Context, resp triage.Response) error {
	if s.tgClient == nil || s.doctorChatID == 0 {
		return errors.New("report: telegram alerts are not configured")
	}
	ref := uuid.New()
	if err := s.tgClient.SendMessage(ctx, s.doctorChatID, AlertText(resp, ref)); err != nil {
		return err
	}

	pdf, err := s.RenderSlip(resp)
	if err != nil {
		return fmt.Errorf("render referral slip: %w", err)
	}
	fileName := fmt.Sprintf("referral_%s.pdf", ref)
	if err := s.tgClient.SendDocument(ctx, s.doctorChatID, pdf, fileName); err != nil {
		return err
	}
	s.logger.Info("referral slip sent", "ref", ref, "chat_id", s.doctorChatID)
	return nil
}
