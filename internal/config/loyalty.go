package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LoyaltyConfig is the hot-reloadable part of the configuration. It covers
// the points accrual rules that operators tune without redeploying.
type LoyaltyConfig struct {
	// EarnRate is the number of points earned per unit of currency spent.
	EarnRate float64 `mapstructure:"earnRate"`
	// RoundingMode is one of "floor", "round", "ceil".
	RoundingMode string `mapstructure:"roundingMode"`
	// TierThresholds maps tier names to the lifetime points needed to reach them.
	TierThresholds []TierThreshold `mapstructure:"tierThresholds"`
	// PointsExpiryDays is how long earned points stay redeemable. Zero means never.
	PointsExpiryDays int `mapstructure:"pointsExpiryDays"`
}

type TierThreshold struct {
	Name      string `mapstructure:"name"`
	MinPoints int64  `mapstructure:"minPoints"`
}

func DefaultLoyaltyConfig() LoyaltyConfig {
	return LoyaltyConfig{
		EarnRate:     1,
		RoundingMode: "floor",
		TierThresholds: []TierThreshold{
			{Name: "bronze", MinPoints: 0},
			{Name: "silver", MinPoints: 5_000},
			{Name: "gold", MinPoints: 25_000},
		},
		PointsExpiryDays: 0,
	}
}

type LoyaltyConfigHolder struct {
	current atomic.Value // holds LoyaltyConfig
}

func NewLoyaltyConfigHolder(cfg Config) (*LoyaltyConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("loyalty")
	v.SetConfigType("yml")
	if cfg.LoyaltyConfigPath != "" {
		v.AddConfigPath(cfg.LoyaltyConfigPath)
	}
	v.AddConfigPath("/var/lib/perkdesk/config") // Volume-mounted config
	v.AddConfigPath("/etc/perkdesk")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("PERKDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultLoyaltyConfig()
		v.SetDefault("loyalty.earnRate", defaults.EarnRate)
		v.SetDefault("loyalty.roundingMode", defaults.RoundingMode)
		v.SetDefault("loyalty.tierThresholds", defaults.TierThresholds)
		v.SetDefault("loyalty.pointsExpiryDays", defaults.PointsExpiryDays)
	}

	var loaded LoyaltyConfig
	if err := v.UnmarshalKey("loyalty", &loaded); err != nil {
		return nil, err
	}
	if err := validateLoyaltyConfig(loaded); err != nil {
		return nil, err
	}

	holder := &LoyaltyConfigHolder{}
	holder.current.Store(loaded)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LoyaltyConfig
		if err := v.UnmarshalKey("loyalty", &updated); err != nil {
			log.Printf("[loyalty-config] reload failed: %v", err)
			return
		}
		if err := validateLoyaltyConfig(updated); err != nil {
			log.Printf("[loyalty-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[loyalty-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *LoyaltyConfigHolder) Get() LoyaltyConfig {
	return h.current.Load().(LoyaltyConfig)
}

// StaticLoyaltyConfigHolder wraps a fixed config with no file watching.
func StaticLoyaltyConfigHolder(cfg LoyaltyConfig) *LoyaltyConfigHolder {
	holder := &LoyaltyConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateLoyaltyConfig(cfg LoyaltyConfig) error {
	if cfg.EarnRate < 0 {
		return errors.New("loyalty.earnRate cannot be negative")
	}
	switch cfg.RoundingMode {
	case "floor", "round", "ceil":
	default:
		return errors.New("loyalty.roundingMode must be floor, round or ceil")
	}
	if len(cfg.TierThresholds) == 0 {
		return errors.New("loyalty.tierThresholds cannot be empty")
	}
	if cfg.PointsExpiryDays < 0 {
		return errors.New("loyalty.pointsExpiryDays cannot be negative")
	}
	return nil
}
