package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Telegram  TelegramConfig
	Database  DatabaseConfig
	Report    ReportConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LLMConfig selects and tunes the model behind extraction and diagnosis.
type LLMConfig struct {
	Provider      string // groq, gemini or fake
	GroqAPIKey    string
	GroqModel     string
	GroqBaseURL   string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	Timeout       time.Duration
	RetryAttempts int
	CacheSize     int
}

type TelegramConfig struct {
	Token        string
	BaseURL      string
	DoctorChatID int64
}

// Enabled reports whether RED alerts can be delivered.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.DoctorChatID != 0
}

type DatabaseConfig struct {
	URL             string
	ConnectAttempts int
}

type ReportConfig struct {
	FontPath string
}

// TelemetryConfig controls OTLP trace export. Export is off without an
// exporter endpoint.
type TelemetryConfig struct {
	ExporterURL    string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRatio  float64
}

func (t TelemetryConfig) Enabled() bool {
	return t.ExporterURL != ""
}

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderFake   = "fake"
)

// Load reads .env when present and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("APP_ENV", "development"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_PROVIDER", "")),
			GroqAPIKey:    getEnv("GROQ_API_KEY", ""),
			GroqModel:     getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			GroqBaseURL:   getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),
			Timeout:       getEnvDuration("LLM_TIMEOUT", 20*time.Second),
			RetryAttempts: getEnvInt("LLM_RETRY_ATTEMPTS", 2),
			CacheSize:     getEnvInt("LLM_CACHE_SIZE", 256),
		},
		Telegram: TelegramConfig{
			Token:        getEnv("TELEGRAM_BOT_TOKEN", ""),
			BaseURL:      getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			DoctorChatID: getEnvInt64("DOCTOR_CHAT_ID", 0),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			ConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		},
		Report: ReportConfig{
			FontPath: getEnv("REPORT_FONT_PATH", ""),
		},
		Telemetry: TelemetryConfig{
			ExporterURL:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "ruralclinic"),
			ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
			SamplingRatio:  getEnvFloat("OTEL_SAMPLING_RATIO", 1.0),
		},
	}
	cfg.Telemetry.Environment = cfg.Server.Environment

	if cfg.LLM.Provider == "" {
		switch {
		case cfg.LLM.GroqAPIKey != "":
			cfg.LLM.Provider = ProviderGroq
		case cfg.LLM.GeminiAPIKey != "":
			cfg.LLM.Provider = ProviderGemini
		default:
			cfg.LLM.Provider = ProviderFake
		}
	}
	return cfg
}

// IsProduction reports whether the service runs with production logging.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
