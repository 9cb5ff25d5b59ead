// Package config defines the run configuration loaded by the command
// layer and validated before anything starts.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds everything a run needs. All knobs are explicit so test
// and production configurations (sanity bands, throttle delays) can
// coexist without process-wide defaults.
type Config struct {
	ListingURL string `mapstructure:"listing_url" validate:"required,url"`
	Source     string `mapstructure:"source" validate:"required"`
	Brand      string `mapstructure:"brand" validate:"required"`

	UserAgent    string        `mapstructure:"user_agent"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"min=0"`

	Enrich      string        `mapstructure:"enrich" validate:"oneof=all missing-price none"`
	DetailDelay time.Duration `mapstructure:"detail_delay" validate:"min=0"`
	Limit       int           `mapstructure:"limit" validate:"min=0"`

	// Price sanity bands in whole dollars, bounds exclusive.
	ListingPriceMin int64 `mapstructure:"listing_price_min" validate:"min=0"`
	ListingPriceMax int64 `mapstructure:"listing_price_max" validate:"gtfield=ListingPriceMin"`
	DetailPriceMin  int64 `mapstructure:"detail_price_min" validate:"min=0"`
	DetailPriceMax  int64 `mapstructure:"detail_price_max" validate:"gtfield=DetailPriceMin"`

	RulesFile string `mapstructure:"rules_file"`

	DatabaseURL string `mapstructure:"database_url"`

	// serve mode
	HTTPAddr       string        `mapstructure:"http_addr" validate:"required"`
	ScrapeInterval time.Duration `mapstructure:"scrape_interval" validate:"min=0"` // 0 disables the cron job
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		ListingURL:      "https://www.prevost-stuff.com/forsale/public_list_ads.php",
		Source:          "prevost-stuff.com",
		Brand:           "Prevost",
		FetchTimeout:    30 * time.Second,
		Enrich:          "missing-price",
		DetailDelay:     500 * time.Millisecond,
		ListingPriceMin: 10_000,
		ListingPriceMax: 5_000_000,
		DetailPriceMin:  50_000,
		DetailPriceMax:  5_000_000,
		HTTPAddr:        ":8080",
		ScrapeInterval:  6 * time.Hour,
	}
}

// Load reads the configuration from viper (config file, env, bound
// flags) on top of the defaults and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
