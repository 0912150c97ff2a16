package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/api-sage/customer-ledger/src/internal/domain"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=customer_ledger_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"

// EnvPath is the directory searched for an optional .env file.
var EnvPath = "."

type Config struct {
	DatabaseDSN    string `mapstructure:"DATABASE_DSN" validate:"required"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS" validate:"gte=1"`
	DBMaxIdleConns int    `mapstructure:"DB_MAX_IDLE_CONNS" validate:"gte=0,ltefield=DBMaxOpenConns"`
	MigrateOnStart bool   `mapstructure:"MIGRATE_ON_START"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	// DailyLimitWindow bounds the debit history counted against a customer's
	// daily limit. Zero counts the entire history.
	DailyLimitWindow  time.Duration `mapstructure:"TRANSFER_DAILY_LIMIT_WINDOW" validate:"gte=0"`
	CreditBeneficiary bool          `mapstructure:"TRANSFER_CREDIT_BENEFICIARY"`

	CustomerDefaultDailyLimit string          `mapstructure:"CUSTOMER_DEFAULT_DAILY_LIMIT" validate:"required,numeric"`
	DefaultDailyLimit         decimal.Decimal `mapstructure:"-"`
}

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DATABASE_DSN", defaultConnectionString)
	v.SetDefault("DB_MAX_OPEN_CONNS", 30)
	v.SetDefault("DB_MAX_IDLE_CONNS", 20)
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("TRANSFER_DAILY_LIMIT_WINDOW", "24h")
	v.SetDefault("TRANSFER_CREDIT_BENEFICIARY", true)
	v.SetDefault("CUSTOMER_DEFAULT_DAILY_LIMIT", "1000")

	v.AddConfigPath(EnvPath)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.DatabaseDSN = normalizeConnectionString(strings.TrimSpace(cfg.DatabaseDSN))
	cfg.CustomerDefaultDailyLimit = strings.TrimSpace(cfg.CustomerDefaultDailyLimit)

	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	limit, err := decimal.NewFromString(cfg.CustomerDefaultDailyLimit)
	if err != nil {
		return fmt.Errorf("invalid config: CUSTOMER_DEFAULT_DAILY_LIMIT: %w", err)
	}
	if limit.IsNegative() {
		return fmt.Errorf("invalid config: CUSTOMER_DEFAULT_DAILY_LIMIT must not be negative")
	}
	if !domain.FitsMoneyScale(limit) {
		return fmt.Errorf("invalid config: CUSTOMER_DEFAULT_DAILY_LIMIT allows at most %d decimal places", domain.MoneyScale)
	}
	cfg.DefaultDailyLimit = limit

	return nil
}

// Redact returns a copy safe to log: the DSN password is masked.
func (c Config) Redact() Config {
	redacted := c
	redacted.DatabaseDSN = redactPassword(c.DatabaseDSN)
	return redacted
}

func redactPassword(dsn string) string {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "****"
		}
		return u.Redacted()
	}

	fields := strings.Fields(dsn)
	for i, field := range fields {
		if strings.HasPrefix(strings.ToLower(field), "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}

func normalizeConnectionString(raw string) string {
	if !strings.Contains(raw, ";") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host", "server":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username", "user id":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode", "ssl mode":
			hasSSLMode = true
			out = append(out, "sslmode="+strings.ToLower(val))
		default:
			out = append(out, strings.ReplaceAll(key, " ", "_")+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
