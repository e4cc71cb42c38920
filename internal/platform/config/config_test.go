package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:            "postgres://localhost/payroll",
		Environment:            "development",
		MaxBodyBytes:           4096,
		RateLimitPerMinute:     60,
		PayrollPeriodsPerYear:  12,
		PayrollFYStartMonth:    time.April,
		PayrollWorkingDaysMode: "weekdays",
		TaxDeductionCapOld:     decimal.NewFromInt(150000),
	}
}

func TestLoadReadsPayrollSettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/payroll")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PAYROLL_FY_START_MONTH", "1")
	t.Setenv("TAX_DEDUCTION_CAP_OLD", "200000.50")
	t.Setenv("OUTBOX_POLL_INTERVAL", "10s")
	t.Setenv("PAYROLL_PERIODS_PER_YEAR", "not-a-number")

	cfg := Load()

	assert.Equal(t, "postgres://db/payroll", cfg.DatabaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, time.January, cfg.PayrollFYStartMonth)
	assert.True(t, cfg.TaxDeductionCapOld.Equal(decimal.RequireFromString("200000.50")))
	assert.True(t, cfg.TaxDeductionCapNew.IsZero())
	assert.Equal(t, 10*time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 12, cfg.PayrollPeriodsPerYear)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"missing database":    func(c *Config) { c.DatabaseURL = "" },
		"production secrets":  func(c *Config) { c.Environment = "production" },
		"small body limit":    func(c *Config) { c.MaxBodyBytes = 10 },
		"zero periods":        func(c *Config) { c.PayrollPeriodsPerYear = 0 },
		"bad fy month":        func(c *Config) { c.PayrollFYStartMonth = 13 },
		"bad working days":    func(c *Config) { c.PayrollWorkingDaysMode = "fortnight" },
		"negative cap":        func(c *Config) { c.TaxDeductionCapNew = decimal.NewFromInt(-1) },
		"kafka without topic": func(c *Config) { c.KafkaBrokers = []string{"k:9092"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
