package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ruralclinic/internal/triage"
)

type mockTelegram struct{ mock.Mock }

func (m *mockTelegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

func (m *mockTelegram) SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error {
	return m.Called(ctx, chatID, fileData, fileName).Error(0)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResponse() triage.Response {
	return triage.Assemble(
		triage.PriorityVerdict{
			Priority:  triage.PriorityRed,
			Action:    "IMMEDIATE: Transfer to ER",
			Rationale: "Severe chest pain reported",
		},
		triage.DiagnosisVerdict{
			PrimaryDiagnosis:  "Acute Coronary Syndrome",
			ConfidenceScore:   82,
			Differentials:     []triage.Differential{{Condition: "GERD", Probability: 10, Reasoning: "burning"}},
			ReasoningSummary:  "Crushing pain with sweating",
			RecommendedAction: "ECG and aspirin",
			DietaryAdvice:     &triage.DietaryAdvice{RecommendedFoods: []string{"Oats"}, DailyHabit: "Walk daily"},
		},
	)
}

func fontAvailable() string {
	for _, p := range DefaultFontPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func TestSlipLines(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	lines := SlipLines(sampleResponse(), at)

	var texts []string
	for _, l := range lines {
		texts = append(texts, l.Text)
	}
	assert.Equal(t, "Referral Slip", texts[0])
	assert.Contains(t, texts, "Issued: 01 Jun 2025 09:30 UTC")
	assert.Contains(t, texts, "Priority: RED")
	assert.Contains(t, texts, "Primary: Acute Coronary Syndrome (confidence 82%)")
	assert.Contains(t, texts, "- GERD (10%): burning")
	assert.Contains(t, texts, "Eat: Oats")
	assert.Contains(t, texts, "Daily habit: Walk daily")
	assert.NotContains(t, texts, "Avoid: ")
}

func TestSlipLines_FallbackVerdict(t *testing.T) {
	resp := triage.Assemble(triage.PriorityVerdict{Priority: triage.PriorityGreen}, triage.FallbackVerdict())

	lines := SlipLines(resp, time.Unix(0, 0).UTC())

	for _, l := range lines {
		assert.NotEqual(t, "Differentials", l.Text)
		assert.NotEqual(t, "Dietary advice", l.Text)
	}
}

func TestAlertText(t *testing.T) {
	ref := uuid.MustParse("6f1c1f0e-0000-4000-8000-000000000001")

	text := AlertText(sampleResponse(), ref)

	assert.True(t, strings.HasPrefix(text, "RED triage alert\n"))
	assert.Contains(t, text, "Assessment: Acute Coronary Syndrome (confidence 82%)")
	assert.Contains(t, text, ref.String())
}

func TestRenderSlip(t *testing.T) {
	font := fontAvailable()
	if font == "" {
		t.Skip("DejaVuSans.ttf not installed")
	}
	svc := NewService(nil, 0, font, quietLogger())

	pdf, err := svc.RenderSlip(sampleResponse())

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
}

func TestRenderSlip_NoFont(t *testing.T) {
	svc := NewService(nil, 0, "", quietLogger())
	svc.fontPaths = []string{"/nonexistent/font.ttf"}

	_, err := svc.RenderSlip(sampleResponse())

	assert.ErrorIs(t, err, ErrNoFont)
}

func TestSendReferralAlert_TextBeforeSlip(t *testing.T) {
	tg := new(mockTelegram)
	tg.On("SendMessage", mock.Anything, int64(77), mock.MatchedBy(func(s string) bool {
		return strings.HasPrefix(s, "RED triage alert")
	})).Return(nil).Once()
	svc := NewService(tg, 77, "", quietLogger())
	svc.fontPaths = []string{"/nonexistent/font.ttf"}

	err := svc.SendReferralAlert(context.Background(), sampleResponse())

	assert.ErrorIs(t, err, ErrNoFont)
	tg.AssertExpectations(t)
	tg.AssertNotCalled(t, "SendDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendReferralAlert_AttachesSlip(t *testing.T) {
	font := fontAvailable()
	if font == "" {
		t.Skip("DejaVuSans.ttf not installed")
	}
	tg := new(mockTelegram)
	tg.On("SendMessage", mock.Anything, int64(77), mock.Anything).Return(nil)
	tg.On("SendDocument", mock.Anything, int64(77), mock.Anything, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "referral_") && strings.HasSuffix(name, ".pdf")
	})).Return(nil)
	svc := NewService(tg, 77, font, quietLogger())

	require.NoError(t, svc.SendReferralAlert(context.Background(), sampleResponse()))
	tg.AssertExpectations(t)
}

func TestSendReferralAlert_Errors(t *testing.T) {
	err := NewService(nil, 0, "", quietLogger()).SendReferralAlert(context.Background(), sampleResponse())
	assert.Error(t, err)

	tg := new(mockTelegram)
	tg.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("chat not found"))
	err = NewService(tg, 1, "", quietLogger()).SendReferralAlert(context.Background(), sampleResponse())
	assert.EqualError(t, err, "chat not found")
}
