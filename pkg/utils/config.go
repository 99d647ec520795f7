package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Business defaults. Every trial length, discount threshold and fee in the
// service is read from here or from the environment overriding it.
const (
	DefaultTrialLengthDays  = 30
	DefaultTrialWarningDays = 7
	DefaultDiscountTiers    = "6:5"
	DefaultAddOnFees        = "storage_handling:20,shipping_handling:15"
	DefaultCommissionTiers  = "basic:4,premium:7"
	DefaultMaxUnitPrice     = "1000"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Marketplace MarketplaceConfig
	Trial       TrialConfig
	Pricing     PricingConfig
	Scheduler   SchedulerConfig
	Notify      NotifyConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Driver   string // postgres | memory
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether a redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// MarketplaceConfig describes the opening of the marketplace. When Enabled is
// false the marketplace counts as already open.
type MarketplaceConfig struct {
	OpeningEnabled bool
	OpeningAt      time.Time
}

// IsOpen reports whether the marketplace is open at the given instant.
func (c MarketplaceConfig) IsOpen(now time.Time) bool {
	if !c.OpeningEnabled {
		return true
	}
	return !now.Before(c.OpeningAt)
}

type TrialConfig struct {
	LengthDays  int
	WarningDays int
}

// PricingConfig holds the raw pricing tables. Amounts and percentages are
// kept as strings so they reach the calculator without float rounding.
type PricingConfig struct {
	DiscountTiers   map[int]string    // months threshold -> percent
	AddOnFees       map[string]string // add-on -> monthly fee
	CommissionTiers map[string]string // package tier -> percent
	MaxUnitPrice    string
}

type SchedulerConfig struct {
	Enabled           bool
	ActivateTrials    string
	ExpireTrials      string
	SendTrialWarnings string
	ActivateContracts string
	EndContracts      string
}

type NotifyConfig struct {
	QueueSize     int
	Workers       int
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	RatePerSec    float64
	Channel       string
	DeadLetterKey string
}

// DefaultPricingConfig returns the pricing tables built from the package defaults.
func DefaultPricingConfig() PricingConfig {
	cfg, err := parsePricing(DefaultDiscountTiers, DefaultAddOnFees, DefaultCommissionTiers, DefaultMaxUnitPrice)
	if err != nil {
		panic(err)
	}
	return cfg
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "rental-marketplace")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_CACHE_TTL", "3m")
	viper.SetDefault("MARKETPLACE_OPENING_ENABLED", false)
	viper.SetDefault("TRIAL_LENGTH_DAYS", DefaultTrialLengthDays)
	viper.SetDefault("TRIAL_WARNING_DAYS", DefaultTrialWarningDays)
	viper.SetDefault("PRICING_DISCOUNT_TIERS", DefaultDiscountTiers)
	viper.SetDefault("PRICING_ADDON_FEES", DefaultAddOnFees)
	viper.SetDefault("PRICING_COMMISSION_TIERS", DefaultCommissionTiers)
	viper.SetDefault("PRICING_MAX_UNIT_PRICE", DefaultMaxUnitPrice)
	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("CRON_ACTIVATE_TRIALS", "0 */5 * * * *")
	viper.SetDefault("CRON_EXPIRE_TRIALS", "0 0 * * * *")
	viper.SetDefault("CRON_TRIAL_WARNINGS", "0 0 8 * * *")
	viper.SetDefault("CRON_ACTIVATE_CONTRACTS", "0 */5 * * * *")
	viper.SetDefault("CRON_END_CONTRACTS", "0 30 0 * * *")
	viper.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	viper.SetDefault("NOTIFY_WORKERS", 2)
	viper.SetDefault("NOTIFY_MAX_ATTEMPTS", 5)
	viper.SetDefault("NOTIFY_BASE_BACKOFF", "1s")
	viper.SetDefault("NOTIFY_MAX_BACKOFF", "1m")
	viper.SetDefault("NOTIFY_RATE_PER_SEC", 10)
	viper.SetDefault("NOTIFY_CHANNEL", "marketplace-events")
	viper.SetDefault("NOTIFY_DEAD_LETTER_KEY", "marketplace-events:dead")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	var openingAt time.Time
	if raw := viper.GetString("MARKETPLACE_OPENING_AT"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parse MARKETPLACE_OPENING_AT: %w", err)
		}
		openingAt = t
	}

	pricing, err := parsePricing(
		viper.GetString("PRICING_DISCOUNT_TIERS"),
		viper.GetString("PRICING_ADDON_FEES"),
		viper.GetString("PRICING_COMMISSION_TIERS"),
		viper.GetString("PRICING_MAX_UNIT_PRICE"),
	)
	if err != nil {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASS"),
			DB:       viper.GetInt("REDIS_DB"),
			CacheTTL: viper.GetDuration("REDIS_CACHE_TTL"),
		},
		Marketplace: MarketplaceConfig{
			OpeningEnabled: viper.GetBool("MARKETPLACE_OPENING_ENABLED"),
			OpeningAt:      openingAt,
		},
		Trial: TrialConfig{
			LengthDays:  viper.GetInt("TRIAL_LENGTH_DAYS"),
			WarningDays: viper.GetInt("TRIAL_WARNING_DAYS"),
		},
		Pricing: pricing,
		Scheduler: SchedulerConfig{
			Enabled:           viper.GetBool("SCHEDULER_ENABLED"),
			ActivateTrials:    viper.GetString("CRON_ACTIVATE_TRIALS"),
			ExpireTrials:      viper.GetString("CRON_EXPIRE_TRIALS"),
			SendTrialWarnings: viper.GetString("CRON_TRIAL_WARNINGS"),
			ActivateContracts: viper.GetString("CRON_ACTIVATE_CONTRACTS"),
			EndContracts:      viper.GetString("CRON_END_CONTRACTS"),
		},
		Notify: NotifyConfig{
			QueueSize:     viper.GetInt("NOTIFY_QUEUE_SIZE"),
			Workers:       viper.GetInt("NOTIFY_WORKERS"),
			MaxAttempts:   viper.GetInt("NOTIFY_MAX_ATTEMPTS"),
			BaseBackoff:   viper.GetDuration("NOTIFY_BASE_BACKOFF"),
			MaxBackoff:    viper.GetDuration("NOTIFY_MAX_BACKOFF"),
			RatePerSec:    viper.GetFloat64("NOTIFY_RATE_PER_SEC"),
			Channel:       viper.GetString("NOTIFY_CHANNEL"),
			DeadLetterKey: viper.GetString("NOTIFY_DEAD_LETTER_KEY"),
		},
	}

	if config.Trial.LengthDays <= 0 {
		return nil, fmt.Errorf("TRIAL_LENGTH_DAYS must be positive, got %d", config.Trial.LengthDays)
	}

	return config, nil
}

func parsePricing(discounts, addOns, commissions, maxUnitPrice string) (PricingConfig, error) {
	tiers, err := parsePairs(discounts)
	if err != nil {
		return PricingConfig{}, fmt.Errorf("parse discount tiers: %w", err)
	}

	discountTiers := make(map[int]string, len(tiers))
	for months, percent := range tiers {
		m, err := strconv.Atoi(months)
		if err != nil || m <= 0 {
			return PricingConfig{}, fmt.Errorf("parse discount tiers: invalid months %q", months)
		}
		discountTiers[m] = percent
	}

	fees, err := parsePairs(addOns)
	if err != nil {
		return PricingConfig{}, fmt.Errorf("parse add-on fees: %w", err)
	}

	rates, err := parsePairs(commissions)
	if err != nil {
		return PricingConfig{}, fmt.Errorf("parse commission tiers: %w", err)
	}

	return PricingConfig{
		DiscountTiers:   discountTiers,
		AddOnFees:       fees,
		CommissionTiers: rates,
		MaxUnitPrice:    strings.TrimSpace(maxUnitPrice),
	}, nil
}

// parsePairs reads "key:value,key:value" lists.
func parsePairs(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("invalid entry %q", part)
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out, nil
}
