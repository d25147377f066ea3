package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr     string
	DBDriver string
	DBPath   string
	// DatabaseURL is used when DBDriver is "postgres".
	DatabaseURL string
	LogLevel    string
	LogFormat   string
	LogColors   bool
	Timezone    string

	ScanDays        int
	ScheduleRetries int
	SessionRetries  int

	JWTSecret string
	JWTIssuer string

	CreativeBaseURL string
	CreativeAPIKey  string
	CaptionTimeout  time.Duration
	RemixTimeout    time.Duration
	GenerateTimeout time.Duration
	ImageWidth      int
	ImageHeight     int

	PipelineWorkerCount int
	PipelineQueueSize   int

	NATSURL           string
	NATSSubjectPrefix string
	SSEHeartbeat      time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                envOr("ADDR", ":8080"),
		DBDriver:            strings.ToLower(envOr("DB_DRIVER", "sqlite")),
		DBPath:              envOr("DB_PATH", "file:realorai.db"),
		DatabaseURL:         envOr("DATABASE_URL", ""),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
		LogFormat:           strings.ToLower(envOr("LOG_FORMAT", "text")),
		LogColors:           envBoolOr("LOG_COLORS", true),
		Timezone:            envOr("TIMEZONE", "America/New_York"),
		ScanDays:            envIntOr("MAX_PAIRS_SCAN_DAYS", 365),
		ScheduleRetries:     envIntOr("SCHEDULE_RETRIES", 5),
		SessionRetries:      envIntOr("SESSION_UPDATE_RETRIES", 3),
		JWTSecret:           envOr("JWT_SECRET", ""),
		JWTIssuer:           envOr("JWT_ISSUER", "realorai"),
		CreativeBaseURL:     envOr("CREATIVE_BASE_URL", ""),
		CreativeAPIKey:      envOr("CREATIVE_API_KEY", ""),
		CaptionTimeout:      envDurationOr("CAPTION_TIMEOUT", 30*time.Second),
		RemixTimeout:        envDurationOr("REMIX_TIMEOUT", 30*time.Second),
		GenerateTimeout:     envDurationOr("GENERATE_TIMEOUT", 2*time.Minute),
		ImageWidth:          envIntOr("IMAGE_WIDTH", 1024),
		ImageHeight:         envIntOr("IMAGE_HEIGHT", 1024),
		PipelineWorkerCount: envIntOr("PIPELINE_WORKER_COUNT", 1),
		PipelineQueueSize:   envIntOr("PIPELINE_QUEUE_SIZE", 16),
		NATSURL:             envOr("NATS_URL", ""),
		NATSSubjectPrefix:   envOr("NATS_SUBJECT_PREFIX", "realorai"),
		SSEHeartbeat:        envDurationOr("SSE_HEARTBEAT", 15*time.Second),
	}
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Addr == "" {
		add("ADDR cannot be empty")
	}
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			add("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			add("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		add("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		add("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		add("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if _, err := time.LoadLocation(c.Timezone); c.Timezone == "" || err != nil {
		add("TIMEZONE %q is not a known IANA zone", c.Timezone)
	}
	if c.ScanDays < 1 {
		add("MAX_PAIRS_SCAN_DAYS must be at least 1")
	}
	if c.ScheduleRetries < 1 {
		add("SCHEDULE_RETRIES must be at least 1")
	}
	if c.SessionRetries < 1 {
		add("SESSION_UPDATE_RETRIES must be at least 1")
	}
	if len(c.JWTSecret) < 16 {
		add("JWT_SECRET must be at least 16 characters")
	}
	if c.CaptionTimeout <= 0 || c.RemixTimeout <= 0 || c.GenerateTimeout <= 0 {
		add("CAPTION_TIMEOUT, REMIX_TIMEOUT and GENERATE_TIMEOUT must be positive")
	}
	if c.ImageWidth < 64 || c.ImageHeight < 64 {
		add("IMAGE_WIDTH and IMAGE_HEIGHT must be at least 64")
	}
	if c.PipelineWorkerCount < 1 {
		add("PIPELINE_WORKER_COUNT must be at least 1")
	}
	if c.PipelineQueueSize < 1 {
		add("PIPELINE_QUEUE_SIZE must be at least 1")
	}
	if c.SSEHeartbeat <= 0 {
		add("SSE_HEARTBEAT must be positive")
	}

	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	}
	return def
}
