package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

// DatePolicy decides what happens to a detection that carries no renewal date.
type DatePolicy string

const (
	DatePolicyStrict  DatePolicy = "strict"  // no extracted date, no record
	DatePolicyLenient DatePolicy = "lenient" // today + one billing cycle
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// Neo4j
	Neo4jURL      string
	Neo4jUsername string
	Neo4jPassword string

	// JWT
	JWTSecret string

	// Token encryption at rest (falls back to JWTSecret)
	EncryptionKey string

	// OpenAI (optional review hints)
	OpenAIAPIKey  string
	LLMModel      string
	LLMTimeoutSec int

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	FrontendURL        string

	// Worker
	WorkerID          string
	WorkerCount       int
	WorkerQueueSize   int
	JobMaxRetries     int
	ScanJobTimeoutSec int

	// Consumer (Redis Stream)
	ConsumerBatchSize       int
	ConsumerBlockMS         int
	ConsumerMaxRetries      int
	ConsumerPendingCheckSec int

	// Scan
	Scan ScanConfig

	// Reminders
	ReminderInterval        time.Duration
	ReminderDefaultDaysLead int
	NotificationRetention   time.Duration

	// CORS
	AllowedOrigins []string

	// Scheduler
	SchedulerEnabled bool
}

// ScanConfig holds the mailbox scan knobs.
type ScanConfig struct {
	MaxResults         int
	MessageLimit       int
	WindowDays         int
	BodyLimit          int
	DatePolicy         DatePolicy
	IncludePenalty     bool
	MessageTimeout     time.Duration
	LockTTL            time.Duration
	StaleRunAfter      time.Duration
	ScheduleInterval   time.Duration
	ArchiveRetention   time.Duration
	ReviewHintsEnabled bool
}

// DefaultScanConfig mirrors the production defaults.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		MaxResults:       200,
		MessageLimit:     150,
		WindowDays:       365,
		BodyLimit:        2000,
		DatePolicy:       DatePolicyStrict,
		MessageTimeout:   15 * time.Second,
		LockTTL:          15 * time.Minute,
		StaleRunAfter:    30 * time.Minute,
		ArchiveRetention: 30 * 24 * time.Hour,
	}
}

func Load() (*Config, error) {
	def := DefaultScanConfig()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "subscriptions"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// Neo4j
		Neo4jURL:      getEnv("NEO4J_URL", ""),
		Neo4jUsername: getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),

		JWTSecret: getEnv("JWT_SECRET", getEnv("SUPABASE_JWT_SECRET", "")),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeoutSec: getEnvInt("LLM_TIMEOUT_SEC", 20),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Worker
		WorkerID:          getEnv("WORKER_ID", generateWorkerID()),
		WorkerCount:       getEnvInt("WORKER_COUNT", 8),
		WorkerQueueSize:   getEnvInt("WORKER_QUEUE_SIZE", 500),
		JobMaxRetries:     getEnvInt("JOB_MAX_RETRIES", 2),
		ScanJobTimeoutSec: getEnvInt("SCAN_JOB_TIMEOUT_SEC", 600),

		// Consumer
		ConsumerBatchSize:       getEnvInt("CONSUMER_BATCH_SIZE", 10),
		ConsumerBlockMS:         getEnvInt("CONSUMER_BLOCK_MS", 5000),
		ConsumerMaxRetries:      getEnvInt("CONSUMER_MAX_RETRIES", 3),
		ConsumerPendingCheckSec: getEnvInt("CONSUMER_PENDING_CHECK_SEC", 30),

		Scan: ScanConfig{
			MaxResults:         getEnvInt("SCAN_MAX_RESULTS", def.MaxResults),
			MessageLimit:       getEnvInt("SCAN_MESSAGE_LIMIT", def.MessageLimit),
			WindowDays:         getEnvInt("SCAN_WINDOW_DAYS", def.WindowDays),
			BodyLimit:          getEnvInt("SCAN_BODY_LIMIT", def.BodyLimit),
			DatePolicy:         DatePolicy(getEnv("SCAN_DATE_POLICY", string(def.DatePolicy))),
			IncludePenalty:     getEnvBool("SCAN_INCLUDE_PENALTY_REASON", false),
			MessageTimeout:     time.Duration(getEnvInt("SCAN_MESSAGE_TIMEOUT_SEC", 15)) * time.Second,
			LockTTL:            time.Duration(getEnvInt("SCAN_LOCK_TTL_MIN", 15)) * time.Minute,
			StaleRunAfter:      time.Duration(getEnvInt("SCAN_STALE_RUN_MIN", 30)) * time.Minute,
			ScheduleInterval:   time.Duration(getEnvInt("SCAN_SCHEDULE_INTERVAL_MIN", 0)) * time.Minute,
			ArchiveRetention:   time.Duration(getEnvInt("SCAN_ARCHIVE_RETENTION_DAYS", 30)) * 24 * time.Hour,
			ReviewHintsEnabled: getEnvBool("SCAN_REVIEW_HINTS", true),
		},

		ReminderInterval:        time.Duration(getEnvInt("REMINDER_INTERVAL_MIN", 60)) * time.Minute,
		ReminderDefaultDaysLead: getEnvInt("REMINDER_DAYS_BEFORE", 3),
		NotificationRetention:   time.Duration(getEnvInt("NOTIFICATION_RETENTION_DAYS", 90)) * 24 * time.Hour,

		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the scan pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Scan.DatePolicy {
	case DatePolicyStrict, DatePolicyLenient:
	default:
		return fmt.Errorf("invalid SCAN_DATE_POLICY %q (want strict or lenient)", c.Scan.DatePolicy)
	}
	if c.Scan.MaxResults <= 0 || c.Scan.MessageLimit <= 0 {
		return fmt.Errorf("scan limits must be positive (max_results=%d, message_limit=%d)", c.Scan.MaxResults, c.Scan.MessageLimit)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
