package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PlatformConfig carries the platform-wide financial fallbacks. Merchant
// packages and overrides take precedence over every field here; these values
// only apply when nothing more specific is configured.
type PlatformConfig struct {
	DefaultVariableFeeBps  int    `mapstructure:"defaultVariableFeeBps"`
	DefaultFixedFeePaise   int64  `mapstructure:"defaultFixedFeePaise"`
	DefaultFeeCapPaise     int64  `mapstructure:"defaultFeeCapPaise"`
	DefaultPayoutFrequency string `mapstructure:"defaultPayoutFrequency"`
	GSTRatePercent         int64  `mapstructure:"gstRatePercent"`
	InvoicePrefix          string `mapstructure:"invoicePrefix"`
	InvoiceSeriesFormat    string `mapstructure:"invoiceSeriesFormat"`
	InvoiceSequencePadding int    `mapstructure:"invoiceSequencePadding"`
	OrderNumberPrefix      string `mapstructure:"orderNumberPrefix"`
	CounterTimeoutSeconds  int    `mapstructure:"counterTimeoutSeconds"`
	BillingCycleGraceDays  int    `mapstructure:"billingCycleGraceDays"`
}

func DefaultPlatformConfig() PlatformConfig {
	return PlatformConfig{
		DefaultVariableFeeBps:  200,
		DefaultFixedFeePaise:   500,
		DefaultFeeCapPaise:     2500,
		DefaultPayoutFrequency: "WEEKLY",
		GSTRatePercent:         18,
		InvoicePrefix:          "VEN",
		InvoiceSeriesFormat:    "{PREFIX}-{FY}-{NNNNN}",
		InvoiceSequencePadding: 5,
		OrderNumberPrefix:      "ORD",
		CounterTimeoutSeconds:  5,
		BillingCycleGraceDays:  3,
	}
}

// PlatformConfigHolder serves the current platform config and hot-reloads it
// when the backing file changes. Reads are lock-free.
type PlatformConfigHolder struct {
	current atomic.Value // holds PlatformConfig
}

func NewPlatformConfigHolder() (*PlatformConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("platform")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/vendra/config")
	v.AddConfigPath("/etc/vendra")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VENDRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPlatformConfig()
		v.SetDefault("platform.defaultVariableFeeBps", defaults.DefaultVariableFeeBps)
		v.SetDefault("platform.defaultFixedFeePaise", defaults.DefaultFixedFeePaise)
		v.SetDefault("platform.defaultFeeCapPaise", defaults.DefaultFeeCapPaise)
		v.SetDefault("platform.defaultPayoutFrequency", defaults.DefaultPayoutFrequency)
		v.SetDefault("platform.gstRatePercent", defaults.GSTRatePercent)
		v.SetDefault("platform.invoicePrefix", defaults.InvoicePrefix)
		v.SetDefault("platform.invoiceSeriesFormat", defaults.InvoiceSeriesFormat)
		v.SetDefault("platform.invoiceSequencePadding", defaults.InvoiceSequencePadding)
		v.SetDefault("platform.orderNumberPrefix", defaults.OrderNumberPrefix)
		v.SetDefault("platform.counterTimeoutSeconds", defaults.CounterTimeoutSeconds)
		v.SetDefault("platform.billingCycleGraceDays", defaults.BillingCycleGraceDays)
	}

	var cfg PlatformConfig
	if err := v.UnmarshalKey("platform", &cfg); err != nil {
		return nil, err
	}
	if err := validatePlatformConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PlatformConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlatformConfig
		if err := v.UnmarshalKey("platform", &updated); err != nil {
			log.Printf("[platform-config] reload failed: %v", err)
			return
		}
		if err := validatePlatformConfig(updated); err != nil {
			log.Printf("[platform-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[platform-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// StaticPlatformConfigHolder wraps a fixed config, bypassing viper. Used by
// tests and one-shot tools.
func StaticPlatformConfigHolder(cfg PlatformConfig) *PlatformConfigHolder {
	holder := &PlatformConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PlatformConfigHolder) Get() PlatformConfig {
	return h.current.Load().(PlatformConfig)
}

func validatePlatformConfig(cfg PlatformConfig) error {
	if cfg.DefaultVariableFeeBps < 0 {
		return errors.New("platform.defaultVariableFeeBps cannot be negative")
	}
	if cfg.DefaultFixedFeePaise < 0 {
		return errors.New("platform.defaultFixedFeePaise cannot be negative")
	}
	if cfg.DefaultFeeCapPaise < 0 {
		return errors.New("platform.defaultFeeCapPaise cannot be negative")
	}
	if cfg.GSTRatePercent < 0 || cfg.GSTRatePercent > 100 {
		return errors.New("platform.gstRatePercent must be within 0..100")
	}
	if cfg.InvoiceSequencePadding <= 0 {
		return errors.New("platform.invoiceSequencePadding must be positive")
	}
	if cfg.CounterTimeoutSeconds <= 0 {
		return errors.New("platform.counterTimeoutSeconds must be positive")
	}
	return nil
}
