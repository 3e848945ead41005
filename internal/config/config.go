package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	Reconcile ReconcileConfig
	Recognize RecognizeConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// ReconcileConfig is the single explicit options structure that every
// reconciliation session derives from. One parameter set instead of
// hand-forked per-station rule variants.
type ReconcileConfig struct {
	Prefixes            []string
	CodeLength          int
	SimilarityThreshold float64
	TopN                int
	FlushInterval       time.Duration
}

// RecognizeConfig selects and configures the recognition engine.
type RecognizeConfig struct {
	Engine       string // "tesseract" or "gemini"
	GeminiAPIKey string
	GeminiModel  string
	Languages    []string
	Contrast     float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3210"),
		JWTSecret: jwtSecret,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "lhswms"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		Reconcile: ReconcileConfig{
			Prefixes:            splitList(getEnv("ALLOWED_PREFIXES", "2M")),
			CodeLength:          getEnvInt("CODE_LENGTH", 14),
			SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.7),
			TopN:                getEnvInt("CANDIDATE_TOP_N", 5),
			FlushInterval:       getEnvDuration("FLUSH_INTERVAL", 5*time.Second),
		},
		Recognize: RecognizeConfig{
			Engine:       getEnv("OCR_ENGINE", "tesseract"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  os.Getenv("GEMINI_MODEL"),
			Languages:    splitList(getEnv("OCR_LANGUAGES", "eng")),
			Contrast:     getEnvFloat("OCR_CONTRAST", 20),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
