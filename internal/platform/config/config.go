package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	JWTSecret          string
	DataEncryptionKey  string
	Environment        string
	RunMigrations      bool
	MigrationsDir      string
	RunSeed            bool
	MaxBodyBytes       int64
	RateLimitPerMinute int
	MetricsEnabled     bool
	CORSOrigins        []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	KafkaBrokers       []string
	KafkaTopic         string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	StorageDir     string
	PayslipBaseURL string
	CompanyName    string
	Currency       string

	PayrollPeriodsPerYear   int
	PayrollFYStartMonth     time.Month
	PayrollWorkingDaysMode  string
	PayrollBatchConcurrency int
	TaxDeductionCapOld      decimal.Decimal
	TaxDeductionCapNew      decimal.Decimal
}

// Load reads the environment, after applying an optional .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		DataEncryptionKey:  getEnv("DATA_ENCRYPTION_KEY", ""),
		Environment:        getEnv("APP_ENV", "development"),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", "migrations"),
		RunSeed:            getEnvBool("RUN_SEED", true),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		CORSOrigins:        getEnvList("CORS_ALLOWED_ORIGINS", nil),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 30*time.Minute),

		KafkaBrokers:       getEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:         getEnv("KAFKA_PAYROLL_TOPIC", "payroll.events"),
		OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", 3*time.Second),
		OutboxBatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 50),

		StorageDir:     getEnv("STORAGE_DIR", "data"),
		PayslipBaseURL: getEnv("PAYSLIP_BASE_URL", "http://localhost:8080"),
		CompanyName:    getEnv("COMPANY_NAME", "HRM"),
		Currency:       getEnv("PAYROLL_CURRENCY", "INR"),

		PayrollPeriodsPerYear:   getEnvInt("PAYROLL_PERIODS_PER_YEAR", 12),
		PayrollFYStartMonth:     time.Month(getEnvInt("PAYROLL_FY_START_MONTH", int(time.April))),
		PayrollWorkingDaysMode:  getEnv("PAYROLL_WORKING_DAYS_MODE", "weekdays"),
		PayrollBatchConcurrency: getEnvInt("PAYROLL_BATCH_CONCURRENCY", 4),
		TaxDeductionCapOld:      getEnvDecimal("TAX_DEDUCTION_CAP_OLD", decimal.NewFromInt(150000)),
		TaxDeductionCapNew:      getEnvDecimal("TAX_DEDUCTION_CAP_NEW", decimal.Zero),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.PayrollPeriodsPerYear <= 0 {
		return fmt.Errorf("PAYROLL_PERIODS_PER_YEAR must be positive")
	}
	if c.PayrollFYStartMonth < time.January || c.PayrollFYStartMonth > time.December {
		return fmt.Errorf("PAYROLL_FY_START_MONTH must be between 1 and 12")
	}
	switch c.PayrollWorkingDaysMode {
	case "weekdays", "calendar":
	default:
		return fmt.Errorf("PAYROLL_WORKING_DAYS_MODE must be weekdays or calendar")
	}
	if c.TaxDeductionCapOld.IsNegative() || c.TaxDeductionCapNew.IsNegative() {
		return fmt.Errorf("TAX_DEDUCTION_CAP_* must not be negative")
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		return fmt.Errorf("KAFKA_PAYROLL_TOPIC must be set when KAFKA_BROKERS is configured")
	}
	return nil
}
