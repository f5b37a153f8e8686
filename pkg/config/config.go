package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process configuration for the macro engine
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// Model inputs
	CatalogPath string // 지표 카탈로그 YAML
	ModelPath   string // 모델 설정 YAML (비어 있으면 내장 기본값)

	// Fetch phase
	Fetch FetchConfig

	// Database (optional: 비어 있으면 저장 생략)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External data providers
	FRED   FREDConfig
	FINRA  FINRAConfig
	Manual ManualConfig

	// Alert delivery
	Telegram TelegramConfig

	// Scheduler daemon
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled     bool
	MetricsPushgateway string
}

// FetchConfig bounds the concurrent fetch phase
type FetchConfig struct {
	Concurrency   int
	Timeout       time.Duration // per indicator
	RatePerSecond float64
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether report persistence is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// FREDConfig holds St. Louis Fed (FRED) API configuration
type FREDConfig struct {
	APIKey  string
	BaseURL string
}

// FINRAConfig holds the FINRA margin statistics page location
type FINRAConfig struct {
	MarginURL string
}

// ManualConfig points at the manually maintained readings file
type ManualConfig struct {
	Path string
}

// TelegramConfig holds alert delivery configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Enabled reports whether Telegram delivery is configured
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// SchedulerConfig holds cron expressions (with seconds) for the daemon
type SchedulerConfig struct {
	DailyReport string
	AlertScan   string
	Timezone    string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		CatalogPath: getEnv("MACRO_CATALOG_PATH", "config/catalog.yaml"),
		ModelPath:   getEnv("MACRO_MODEL_PATH", ""),

		Fetch: FetchConfig{
			Concurrency:   getEnvAsInt("FETCH_CONCURRENCY", 4),
			Timeout:       getEnvAsDuration("FETCH_TIMEOUT", "15s"),
			RatePerSecond: getEnvAsFloat("FETCH_RATE_PER_SEC", 5),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		FRED: FREDConfig{
			APIKey:  getEnv("FRED_API_KEY", ""),
			BaseURL: getEnv("FRED_BASE_URL", "https://api.stlouisfed.org/fred"),
		},

		FINRA: FINRAConfig{
			MarginURL: getEnv("FINRA_MARGIN_URL", "https://www.finra.org/rules-guidance/key-topics/margin-accounts/margin-statistics"),
		},

		Manual: ManualConfig{
			Path: getEnv("MANUAL_READINGS_PATH", "config/manual_readings.yaml"),
		},

		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},

		Scheduler: SchedulerConfig{
			DailyReport: getEnv("SCHEDULE_DAILY_REPORT", "0 0 22 * * 1-5"), // 미국 장 마감 후 (UTC)
			AlertScan:   getEnv("SCHEDULE_ALERT_SCAN", "0 0 * * * *"),
			Timezone:    getEnv("SCHEDULE_TIMEZONE", "UTC"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", false),
		MetricsPushgateway: getEnv("METRICS_PUSHGATEWAY_URL", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.CatalogPath == "" {
		return fmt.Errorf("MACRO_CATALOG_PATH is required")
	}

	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be >= 1, got %d", c.Fetch.Concurrency)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be > 0")
	}
	if c.Fetch.RatePerSecond <= 0 {
		return fmt.Errorf("FETCH_RATE_PER_SEC must be > 0")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULE_TIMEZONE is invalid: %w", err)
	}

	if c.MetricsEnabled && c.MetricsPushgateway == "" {
		return fmt.Errorf("METRICS_PUSHGATEWAY_URL is required when METRICS_ENABLED=true")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
