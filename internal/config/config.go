package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	DBMaxConns  int32
	AutoMigrate bool
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string

	LogLevel  string
	LogFormat string

	// CompanyName is printed on invoice PDFs.
	CompanyName string

	// ReportPendingStatus is the status key counted as "pending" in report summaries.
	ReportPendingStatus string

	LowStockInterval      time.Duration
	ReportRefreshInterval time.Duration
	ProductCacheTTL       time.Duration
	ReportCacheTTL        time.Duration

	// RateLimitRequests per RateLimitWindow per tenant; 0 disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from the environment, after loading a .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DBMaxConns:          int32(getEnvInt("DB_MAX_CONNS", 10)),
		AutoMigrate:         getEnvBool("AUTO_MIGRATE", false),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		RedisAddr:           strings.TrimPrefix(strings.TrimPrefix(getEnv("REDIS_ADDR", "localhost:6379"), "redis://"), "rediss://"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		MinioEndpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:      getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:      getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:         getEnvBool("MINIO_USE_SSL", false),
		MinioBucket:         getEnv("MINIO_BUCKET", "invoices"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		CompanyName:         getEnv("COMPANY_NAME", "StockBill"),
		ReportPendingStatus: getEnv("REPORT_PENDING_STATUS", "PENDING"),
		RateLimitRequests:   getEnvInt("RATE_LIMIT_REQUESTS", 300),
	}

	var err error
	if cfg.LowStockInterval, err = getEnvDuration("LOW_STOCK_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReportRefreshInterval, err = getEnvDuration("REPORT_REFRESH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ProductCacheTTL, err = getEnvDuration("PRODUCT_CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReportCacheTTL, err = getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
