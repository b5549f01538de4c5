package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	// Server
	Port        string
	Environment string
	BaseURL     string
	LogLevel    string
	CORSOrigins []string

	// Auth
	APIKey    string
	JWTSecret string

	// Store
	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	// Leonardo
	LeonardoAPIURL        string
	LeonardoAPIKey        string
	LeonardoModelID       string
	LeonardoPresetStyle   string
	LeonardoWidth         int
	LeonardoHeight        int
	LeonardoNumImages     int
	LeonardoWebhookSecret string

	// ElevenLabs
	ElevenLabsAPIURL  string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	ElevenLabsModelID string

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string
	RealtimeEventsTable   string

	// Generation lifecycle
	GenerationTimeout time.Duration
	SweepInterval     time.Duration
}

// Load reads an optional .env file, then the environment, and validates the
// result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a Config from the process environment without validating it.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		APIKey:    getEnv("API_KEY", ""),
		JWTSecret: getEnv("JWT_SECRET", ""),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "ai-videos"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		LeonardoAPIURL:        getEnv("LEONARDO_API_URL", "https://cloud.leonardo.ai/api/rest/v1/"),
		LeonardoAPIKey:        getEnv("LEONARDO_API_KEY", ""),
		LeonardoModelID:       getEnv("LEONARDO_MODEL_ID", "1dd50843-d653-4516-a8e3-f0238ee453ff"),
		LeonardoPresetStyle:   getEnv("LEONARDO_PRESET_STYLE", "DYNAMIC"),
		LeonardoWebhookSecret: getEnv("LEONARDO_WEBHOOK_SECRET", ""),

		ElevenLabsAPIURL:  getEnv("ELEVENLABS_API_URL", "https://api.elevenlabs.io/v1/"),
		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", ""),
		ElevenLabsModelID: getEnv("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),

		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "ai-videos"),
		RealtimeEventsTable:   getEnv("REALTIME_EVENTS_TABLE", "generation_events"),
	}

	var err error
	if cfg.LeonardoWidth, err = getEnvInt("LEONARDO_WIDTH", 664); err != nil {
		return nil, err
	}
	if cfg.LeonardoHeight, err = getEnvInt("LEONARDO_HEIGHT", 1184); err != nil {
		return nil, err
	}
	if cfg.LeonardoNumImages, err = getEnvInt("LEONARDO_NUM_IMAGES", 1); err != nil {
		return nil, err
	}
	if cfg.GenerationTimeout, err = getEnvDuration("GENERATION_TIMEOUT", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER=%s", DriverMongo)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.LeonardoAPIKey == "" {
		return fmt.Errorf("LEONARDO_API_KEY is required")
	}
	if c.APIKey == "" && c.JWTSecret == "" {
		return fmt.Errorf("API_KEY or JWT_SECRET is required")
	}
	if c.LeonardoNumImages < 1 || c.LeonardoNumImages > 8 {
		return fmt.Errorf("LEONARDO_NUM_IMAGES must be between 1 and 8")
	}
	if c.LeonardoWidth <= 0 || c.LeonardoHeight <= 0 {
		return fmt.Errorf("LEONARDO_WIDTH and LEONARDO_HEIGHT must be positive")
	}
	if c.GenerationTimeout < 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must not be negative")
	}
	if c.GenerationTimeout > 0 && c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	return nil
}

// StorageEnabled reports whether Supabase storage is configured. Audio and
// download endpoints answer 503 without it.
func (c *Config) StorageEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

func (c *Config) SpeechEnabled() bool {
	return c.ElevenLabsAPIKey != "" && c.ElevenLabsVoiceID != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

// getEnvDuration accepts Go durations ("90s", "15m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
