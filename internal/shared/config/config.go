package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ThrottleRule is the sliding-window admission budget for one channel.
type ThrottleRule struct {
	Window time.Duration
	Limit  int
}

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	DatabaseURL     string
	RedisURL        string
	Env             string

	// Scoring
	SurfacingThreshold float64
	SimilarityFloor    float64
	MatchQueueCapacity int

	// Feedback learning
	FeedbackActivation int
	LearningRate       float64

	// Dispatch
	MaxSendAttempts  int
	ThrottleEmail    ThrottleRule
	ThrottleLinkedIn ThrottleRule
	SMTPHost         string
	SMTPPort         string
	SMTPFrom         string
	SMTPPassword     string
	LinkedInAPIBase  string
	LinkedInToken    string

	// Scheduler cron specs
	ScoringInterval  string
	DispatchInterval string
	LearningInterval string

	// API rate limiting (token bucket per caller)
	APIRateLimit float64
	APIRateBurst int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	if env == "production" && os.Getenv("THROTTLE_EMAIL_LIMIT") == "" {
		log.Printf("THROTTLE_EMAIL_LIMIT unset in production; using dev default")
	}
	if env == "production" && os.Getenv("THROTTLE_LINKEDIN_LIMIT") == "" {
		log.Printf("THROTTLE_LINKEDIN_LIMIT unset in production; using dev default")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,
		RedisURL:        os.Getenv("REDIS_URL"),
		Env:             env,

		SurfacingThreshold: getEnvFloat("SURFACING_THRESHOLD", 80),
		SimilarityFloor:    getEnvFloat("SIMILARITY_FLOOR", 0.30),
		MatchQueueCapacity: getEnvInt("MATCH_QUEUE_CAPACITY", 10),

		FeedbackActivation: getEnvInt("FEEDBACK_ACTIVATION", 10),
		LearningRate:       getEnvFloat("LEARNING_RATE", 0.10),

		MaxSendAttempts: getEnvInt("MAX_SEND_ATTEMPTS", 3),
		ThrottleEmail: ThrottleRule{
			Window: getEnvDuration("THROTTLE_EMAIL_WINDOW", time.Hour),
			Limit:  getEnvInt("THROTTLE_EMAIL_LIMIT", 5),
		},
		ThrottleLinkedIn: ThrottleRule{
			Window: getEnvDuration("THROTTLE_LINKEDIN_WINDOW", time.Hour),
			Limit:  getEnvInt("THROTTLE_LINKEDIN_LIMIT", 3),
		},
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPFrom:        getEnv("SMTP_FROM", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		LinkedInAPIBase: getEnv("LINKEDIN_API_BASE", "https://api.linkedin.com"),
		LinkedInToken:   getEnv("LINKEDIN_TOKEN", ""),

		ScoringInterval:  getEnv("SCORING_INTERVAL", "@every 30m"),
		DispatchInterval: getEnv("DISPATCH_INTERVAL", "@every 1m"),
		LearningInterval: getEnv("LEARNING_INTERVAL", "@every 10m"),

		APIRateLimit: getEnvFloat("API_RATE_LIMIT", 10),
		APIRateBurst: getEnvInt("API_RATE_BURST", 20),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		log.Printf("config %s invalid int %q; using default %d", key, raw, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float %q; using default %g", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q; using default %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
