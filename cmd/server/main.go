package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ruralclinic/internal/agent"
	"ruralclinic/internal/config"
	"ruralclinic/internal/intake"
	"ruralclinic/internal/platform/postgres"
	"ruralclinic/internal/platform/telegram"
	"ruralclinic/internal/report"
	"ruralclinic/internal/telemetry"
	"ruralclinic/internal/triage"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Infrastructure
	var ready intake.Pinger
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.ConnectAttempts, logger)
		if err != nil {
			logger.Warn("database unavailable, readiness will report it", "error", err)
		} else {
			defer db.Close()
			ready = db
			logger.Info("connected to database")
		}
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry unavailable, tracing disabled", "error", err)
		tel = &telemetry.Telemetry{}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown", "error", err)
		}
	}()

	// 2. Clients
	llm, err := agent.New(ctx, cfg.LLM, tel.TracerProvider(), logger)
	if err != nil {
		logger.Error("llm client", "error", err)
		os.Exit(1)
	}
	logger.Info("llm client ready", "client", llm.Name())

	var tgClient report.TelegramClient
	if cfg.Telegram.Enabled() {
		tgClient = telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.BaseURL)
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN or DOCTOR_CHAT_ID not set, RED alerts disabled")
	}

	// 3. Services
	engine := triage.NewEngine(agent.NewDiagnoser(llm),
		triage.WithTimeout(cfg.LLM.Timeout),
		triage.WithLogger(logger),
	)
	reportSvc := report.NewService(tgClient, cfg.Telegram.DoctorChatID, cfg.Report.FontPath, logger)
	intakeSvc := intake.NewService(agent.NewExtractor(llm), engine, reportSvc, cfg.Telegram.Enabled(), logger)
	intakeHandler := intake.NewHandler(intakeSvc, ready, logger)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for the intake frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	intake.RegisterRoutes(r, intakeHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	intakeSvc.Wait()
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler).With("service", "ruralclinic", "environment", cfg.Server.Environment)
}
