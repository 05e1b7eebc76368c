package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ruralclinic/internal/triage"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	svc    Service
	ready  Pinger
	logger *slog.Logger
}

// NewHandler builds the HTTP surface. ready may be nil when no database is
// configured.
func NewHandler(svc Service, ready Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, ready: ready, logger: logger}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "active",
		"system": "RuralClinic AI",
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready.PingContext(ctx); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Ingest(r.Context(), req.Text)
	switch {
	case errors.Is(err, ErrEmptyText):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Warn("ingest failed", "error", err)
		writeError(w, http.StatusBadGateway, "Extraction failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Triage(w http.ResponseWriter, r *http.Request) {
	var req TriageRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Triage(r.Context(), *req.Payload))
}

// ReferralSlip renders a triage response posted back by the client as a
// printable PDF.
func (h *Handler) ReferralSlip(w http.ResponseWriter, r *http.Request) {
	var resp triage.Response
	if !h.decode(w, r, &resp) {
		return
	}
	pdf, err := h.svc.ReferralSlip(r.Context(), resp)
	switch {
	case errors.Is(err, ErrSlipUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		h.logger.Warn("referral slip failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to render referral slip")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="referral-%s.pdf"`, uuid.NewString()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// decode reads and validates a JSON body, answering 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return false
	}
	if err := validateRequest(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.Index)
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest", h.Ingest)
		r.Post("/triage", h.Triage)
		r.Post("/triage/report", h.ReferralSlip)
	})
}
