package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/fleet-tracker/constants"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" or "sqlite"
	DSN              string
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
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	PdftoppmPath  string
	TesseractPath string
	TessdataDir   string
	Lang          string
	DPI           int
	MaxPages      int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// PipelineConfig holds document pipeline limits.
type PipelineConfig struct {
	MaxUploadBytes     int64
	MinTextLength      int
	MaxMileageIncrease int64 // 0 disables the plausibility ceiling
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables, after merging
// a .env file from the working directory when one exists.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config.dotenv.load_failed", "err", err)
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":9090"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 2*time.Minute),
		},
		OCR: OCRConfig{
			PdftoppmPath:  getEnv("OCR_PDFTOPPM", "pdftoppm"),
			TesseractPath: getEnv("OCR_TESSERACT", "tesseract"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			Lang:          getEnv("OCR_LANG", "eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 10),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			MaxUploadBytes:     getEnvAsInt64("MAX_UPLOAD_BYTES", constants.MaxUploadBytes),
			MinTextLength:      getEnvAsInt("MIN_TEXT_LENGTH", constants.MinTextLength),
			MaxMileageIncrease: getEnvAsInt64("MILEAGE_MAX_INCREASE", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// AIEnabled reports whether an LLM key is configured.
func (c *Config) AIEnabled() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

// Validate validates the loaded configuration. A missing OPENAI_API_KEY is
// not an error: extraction then runs on the pattern strategy alone.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewKindError(KindConfig, "DB_URL is required", nil)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewKindError(KindConfig, "DB_DRIVER must be postgres or sqlite", nil)
	}
	if c.Pipeline.MaxUploadBytes <= 0 {
		return NewKindError(KindConfig, "MAX_UPLOAD_BYTES must be positive", nil)
	}
	if c.Pipeline.MinTextLength < 0 || c.Pipeline.MaxMileageIncrease < 0 {
		return NewKindError(KindConfig, "pipeline limits must not be negative", nil)
	}
	if c.LLM.Timeout <= 0 {
		return NewKindError(KindConfig, "LLM_TIMEOUT must be positive", nil)
	}
	return nil
}

// NewLogger builds the process logger from LogConfig.
func NewLogger(cfg LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
