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
	Database  DatabaseConfig
	JWT       JWTConfig
	App       AppConfig
	AutoClose AutoCloseConfig
	Payroll   PayrollConfig
	Amendment AmendmentConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// AutoCloseConfig holds the decision engine policy. The numeric values are
// policy knobs, not constants; the defaults match the acceptance scenarios.
type AutoCloseConfig struct {
	MaxShiftDuration     time.Duration
	MonthlyCap           int
	Rolling14Cap         int
	ConsecutiveBlockDays int
	SweepInterval        time.Duration
	SweepConcurrency     int
	WorkerTimeout        time.Duration
}

// PayrollConfig holds aggregation and export settings.
type PayrollConfig struct {
	WeekStartDay   time.Weekday
	LabourAccount  string
	ExpenseAccount string
	TaxCode        string
}

// AmendmentConfig holds amendment workflow policy.
type AmendmentConfig struct {
	// ResubmitCooldown blocks a new amendment on a session for this long
	// after a rejection. Zero allows immediate resubmission.
	ResubmitCooldown time.Duration
}

func Load() (*Config, error) {
	// A missing .env file is fine in deployed environments.
	_ = godotenv.Load()

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "shiftline-timeclock"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Auto clock-out policy
	maxShift, err := time.ParseDuration(getEnv("AUTOCLOSE_MAX_SHIFT", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOCLOSE_MAX_SHIFT: %w", err)
	}
	sweepInterval, err := time.ParseDuration(getEnv("AUTOCLOSE_SWEEP_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOCLOSE_SWEEP_INTERVAL: %w", err)
	}
	workerTimeout, err := time.ParseDuration(getEnv("AUTOCLOSE_WORKER_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOCLOSE_WORKER_TIMEOUT: %w", err)
	}
	monthlyCap, err := strconv.Atoi(getEnv("AUTOCLOSE_MONTHLY_CAP", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOCLOSE_MONTHLY_CAP: %w", err)
	}
	rollingCap, err := strconv.Atoi(getEnv("AUTOCLOSE_ROLLING14_CAP", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOCLOSE_ROLLING14_CAP: %w", err)
	}
	consecutiveBlock, err := strconv.Atoi(getEnv("AUTOCLOSE_CONSECUTIVE_BLOCK", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOCLOSE_CONSECUTIVE_BLOCK: %w", err)
	}
	sweepConcurrency, err := strconv.Atoi(getEnv("AUTOCLOSE_SWEEP_CONCURRENCY", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOCLOSE_SWEEP_CONCURRENCY: %w", err)
	}

	config.AutoClose = AutoCloseConfig{
		MaxShiftDuration:     maxShift,
		MonthlyCap:           monthlyCap,
		Rolling14Cap:         rollingCap,
		ConsecutiveBlockDays: consecutiveBlock,
		SweepInterval:        sweepInterval,
		SweepConcurrency:     sweepConcurrency,
		WorkerTimeout:        workerTimeout,
	}

	// Payroll configuration
	weekStart, err := parseWeekday(getEnv("PAYROLL_WEEK_START", "monday"))
	if err != nil {
		return nil, err
	}

	config.Payroll = PayrollConfig{
		WeekStartDay:   weekStart,
		LabourAccount:  getEnv("PAYROLL_LABOUR_ACCOUNT", "6000"),
		ExpenseAccount: getEnv("PAYROLL_EXPENSE_ACCOUNT", "6100"),
		TaxCode:        getEnv("PAYROLL_TAX_CODE", "T0"),
	}

	// Amendment configuration
	cooldown, err := time.ParseDuration(getEnv("AMENDMENT_RESUBMIT_COOLDOWN", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid AMENDMENT_RESUBMIT_COOLDOWN: %w", err)
	}
	config.Amendment = AmendmentConfig{ResubmitCooldown: cooldown}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.AutoClose.MaxShiftDuration <= 0 {
		return fmt.Errorf("AUTOCLOSE_MAX_SHIFT must be positive")
	}
	if c.AutoClose.MonthlyCap < 1 || c.AutoClose.Rolling14Cap < 1 {
		return fmt.Errorf("auto clock-out caps must be at least 1")
	}
	if c.AutoClose.SweepConcurrency < 1 {
		return fmt.Errorf("AUTOCLOSE_SWEEP_CONCURRENCY must be at least 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(s) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("invalid PAYROLL_WEEK_START: %q", s)
}
