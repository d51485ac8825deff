package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	OCR        OCRConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Valuation  ValuationConfig
	LogLevel   slog.Level
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	RequestTimeout time.Duration
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftotext     string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	MaxPages      int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	BaseURL      string
	Model        string
	APIKey       string
	Temperature  float32
	Timeout      time.Duration
	RateLimitRPS float64
	CacheTTL     time.Duration
	Retries      int
}

// ExtractionConfig controls the AI/regex dispatch.
type ExtractionConfig struct {
	Mode           string
	AITimeout      time.Duration
	KeywordsFile   string
	DefaultVATRate float64
}

// ValuationConfig points at an optional model artifact overriding the embedded one.
type ValuationConfig struct {
	ModelFile string
}

// LoadConfig loads configuration from environment variables, after reading a .env file if present.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config.dotenv_unreadable", "error", err)
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "household.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":9090"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 20)) << 20,
			RateLimitRPS:   getEnvAsFloat64("RATE_LIMIT_RPS", 10),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),
		},
		OCR: OCRConfig{
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		LLM: LLMConfig{
			BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			Temperature:  getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:      getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			RateLimitRPS: getEnvAsFloat64("OPENAI_RATE_LIMIT_RPS", 2),
			CacheTTL:     getEnvAsDuration("OPENAI_CACHE_TTL", 15*time.Minute),
			Retries:      getEnvAsInt("OPENAI_RETRIES", 2),
		},
		Extraction: ExtractionConfig{
			Mode:           getEnv("EXTRACTION_MODE", "auto"),
			AITimeout:      getEnvAsDuration("AI_TIMEOUT", 20*time.Second),
			KeywordsFile:   getEnv("KEYWORDS_FILE", ""),
			DefaultVATRate: getEnvAsFloat64("DEFAULT_VAT_RATE", 0),
		},
		Valuation: ValuationConfig{
			ModelFile: getEnv("VALUATION_MODEL_FILE", ""),
		},
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres driver", ErrInvalidInput)
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return NewAppError("CONFIG_ERROR", "SQLITE_PATH is required for the sqlite driver", ErrInvalidInput)
		}
	case "none":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres, sqlite or none", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.Extraction.Mode {
	case "auto", "ai", "regex":
	default:
		return NewAppError("CONFIG_ERROR", "EXTRACTION_MODE must be auto, ai or regex", ErrInvalidInput)
	}
	if c.Extraction.DefaultVATRate < 0 || c.Extraction.DefaultVATRate >= 1 {
		return NewAppError("CONFIG_ERROR", "DEFAULT_VAT_RATE must be a fraction in [0,1)", ErrInvalidInput)
	}
	return nil
}

// AIEnabled reports whether an LLM client can be built from this config.
func (c *Config) AIEnabled() bool {
	return c.LLM.APIKey != "" && c.Extraction.Mode != "regex"
}
