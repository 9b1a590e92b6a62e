package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName = "MarketPulse"
	Version = "1.0.0"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Data sources
const (
	SourceYahoo        = "yahoo"
	SourceAlphaVantage = "alpha_vantage"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage
	Store    StoreConfig
	Database DatabaseConfig

	// Redis (fetch cache)
	Redis RedisConfig

	// Market data
	Fetch FetchConfig

	// Pipeline
	Pipeline PipelineConfig

	// Reports
	Report ReportConfig

	// Cron expression (with seconds) for the schedule command
	Schedule string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Monitoring
	MetricsEnabled bool
}

// StoreConfig selects the backing store for stock_prices
type StoreConfig struct {
	Driver string // sqlite, postgres, memory
	Path   string // sqlite file path
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

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

// FetchConfig holds market data provider configuration
type FetchConfig struct {
	Source          string
	AlphaVantageKey string
	Period          string
	RateLimit       float64 // requests per second
	Timeout         time.Duration
}

// PipelineConfig holds the transformation settings
type PipelineConfig struct {
	Symbols   []string
	MAWindow  int
	VolWindow int
	Workers   int
}

// ReportConfig holds report output settings
type ReportConfig struct {
	Dir     string
	Formats []string // csv, html, xlsx, parquet
}

// DefaultTickers is used when no symbols are given on the command line
var DefaultTickers = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA"}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
			Path:   getEnv("DB_PATH", filepath.Join("data", "market_data.db")),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
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
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", "6h"),
		},

		Fetch: FetchConfig{
			Source:          strings.ToLower(getEnv("DATA_SOURCE", SourceYahoo)),
			AlphaVantageKey: getEnv("ALPHA_VANTAGE_API_KEY", ""),
			Period:          getEnv("FETCH_PERIOD", "1mo"),
			RateLimit:       getEnvAsFloat("FETCH_RATE_LIMIT", 5),
			Timeout:         getEnvAsDuration("FETCH_TIMEOUT", "30s"),
		},

		Pipeline: PipelineConfig{
			Symbols:   getEnvAsList("DEFAULT_TICKERS", DefaultTickers),
			MAWindow:  getEnvAsInt("MOVING_AVERAGE_WINDOW", 5),
			VolWindow: getEnvAsInt("VOLATILITY_WINDOW", 5),
			Workers:   getEnvAsInt("PIPELINE_WORKERS", 4),
		},

		Report: ReportConfig{
			Dir:     getEnv("REPORTS_DIR", "reports"),
			Formats: getEnvAsList("REPORT_FORMATS", []string{"csv", "html"}),
		},

		Schedule: getEnv("SCHEDULE", "0 30 17 * * MON-FRI"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		LogFile:   getEnv("LOG_FILE", filepath.Join("logs", "pipeline.log")),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	for i, format := range cfg.Report.Formats {
		cfg.Report.Formats[i] = strings.ToLower(format)
	}
	for i, symbol := range cfg.Pipeline.Symbols {
		cfg.Pipeline.Symbols[i] = strings.ToUpper(symbol)
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

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of: sqlite, postgres, memory")
	}

	switch c.Fetch.Source {
	case SourceYahoo:
	case SourceAlphaVantage:
		if c.Fetch.AlphaVantageKey == "" {
			return fmt.Errorf("ALPHA_VANTAGE_API_KEY is required when DATA_SOURCE=alpha_vantage")
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be one of: yahoo, alpha_vantage")
	}

	if c.Fetch.RateLimit <= 0 {
		return fmt.Errorf("FETCH_RATE_LIMIT must be positive")
	}

	// sample standard deviation needs at least two observations
	if c.Pipeline.MAWindow < 2 || c.Pipeline.VolWindow < 2 {
		return fmt.Errorf("MOVING_AVERAGE_WINDOW and VOLATILITY_WINDOW must be at least 2")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1")
	}

	for _, format := range c.Report.Formats {
		switch format {
		case "csv", "html", "xlsx", "parquet":
		default:
			return fmt.Errorf("unknown report format: %s (valid: csv, html, xlsx, parquet)", format)
		}
	}

	return nil
}

// Dirs returns the directories the pipeline writes into
func (c *Config) Dirs() []string {
	dirs := []string{c.Report.Dir}
	if c.LogFile != "" {
		dirs = append(dirs, filepath.Dir(c.LogFile))
	}
	if c.Store.Driver == DriverSQLite {
		dirs = append(dirs, filepath.Dir(c.Store.Path))
	}
	return dirs
}

// EnsureDirs creates the log, report and data directories if they don't exist
func (c *Config) EnsureDirs() error {
	for _, dir := range c.Dirs() {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

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

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return append([]string(nil), defaultValue...)
	}

	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return values
}
