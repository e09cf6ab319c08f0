package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingGeminiKey = errors.New("config: GEMINI_API_KEY is required")
	ErrMissingGHLKey    = errors.New("config: GHL_API_KEY is required")
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Gemini classification
	GeminiAPIKey           string
	GeminiModelID          string
	LLMTimeout             time.Duration
	FallbackClassification string

	// GoHighLevel CRM
	GHLAPIKey          string
	GHLBaseURL         string
	GHLMessagesVersion string
	GHLTagsVersion     string
	GHLMessageType     string
	CRMTimeout         time.Duration

	// Tracing; spans are exported only when OTLPEndpoint is set.
	ServiceName      string
	OTLPEndpoint     string
	TraceSampleRatio float64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "5000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey:  strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-1.5-flash-latest"),
		LLMTimeout:    getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
		// The historical fallback label is kept byte-for-byte; see DESIGN.md.
		FallbackClassification: getEnv("FALLBACK_CLASSIFICATION", "continuar_conerva"),

		GHLAPIKey:          strings.TrimSpace(getEnv("GHL_API_KEY", "")),
		GHLBaseURL:         strings.TrimRight(getEnv("GHL_BASE_URL", "https://services.leadconnectorhq.com"), "/"),
		GHLMessagesVersion: getEnv("GHL_MESSAGES_VERSION", "2021-07-28"),
		GHLTagsVersion:     getEnv("GHL_TAGS_VERSION", "2021-04-15"),
		GHLMessageType:     getEnv("GHL_MESSAGE_TYPE", "SMS"),
		CRMTimeout:         getEnvAsDuration("CRM_TIMEOUT", 10*time.Second),

		ServiceName:      getEnv("OTEL_SERVICE_NAME", "ghl-lead-relay"),
		OTLPEndpoint:     strings.TrimSpace(getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")),
		TraceSampleRatio: getEnvAsFloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
	}
}

// Validate reports the first missing credential. The relay must not start without them.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingGeminiKey
	}
	if c.GHLAPIKey == "" {
		return ErrMissingGHLKey
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value >= 0 && value <= 1 {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	// Bare integers are read as seconds.
	if secs := getEnvAsInt(key, 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
