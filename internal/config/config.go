// Package config loads the market daemon configuration: built-in defaults,
// optionally overlaid by a TOML file, then by DYNMARKET_* environment
// variables (a .env file is honored when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the full daemon configuration.
type Config struct {
	Market Market `toml:"market"`
	Jobs   Jobs   `toml:"jobs"`
	DB     DB     `toml:"db"`
	API    API    `toml:"api"`
}

// Market holds the price-model tuning.
type Market struct {
	MinPrice       float64 `toml:"min_price"`
	MaxPrice       float64 `toml:"max_price"`
	AdjustmentRate float64 `toml:"adjustment_rate"`
}

// Jobs holds the scheduler intervals.
type Jobs struct {
	AutosaveInterval duration `toml:"autosave_interval"`
	DecayInterval    duration `toml:"decay_interval"`
	AnalysisInterval duration `toml:"analysis_interval"`
	Retention        duration `toml:"retention"`
}

// DB holds the persistence settings.
type DB struct {
	Path string `toml:"path"`
}

// API holds the observation API settings.
type API struct {
	Addr       string `toml:"addr"`
	AdminKey   string `toml:"admin_key"`
	TradeBurst int    `toml:"trade_burst"` // trades per actor per minute; 0 disables the cap
}

// duration lets TOML carry values like "5m" or "24h".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d duration) Std() time.Duration { return time.Duration(d) }

// Defaults returns the stock configuration.
func Defaults() Config {
	return Config{
		Market: Market{
			MinPrice:       0.1,
			MaxPrice:       1000.0,
			AdjustmentRate: 0.005,
		},
		Jobs: Jobs{
			AutosaveInterval: duration(5 * time.Minute),
			DecayInterval:    duration(5 * time.Minute),
			AnalysisInterval: duration(time.Hour),
			Retention:        0, // keep the full transaction log
		},
		DB:  DB{Path: "data/market.db"},
		API: API{Addr: ":8380", TradeBurst: 30},
	}
}

// Load reads the TOML file at path (skipped when path is empty), merges it
// over the defaults, applies environment overrides, and returns the final
// Config. Call Validate before using it.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// .env is optional; ignore a missing file.
	_ = godotenv.Load()
	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setFloat(&cfg.Market.MinPrice, "DYNMARKET_MIN_PRICE")
	setFloat(&cfg.Market.MaxPrice, "DYNMARKET_MAX_PRICE")
	setFloat(&cfg.Market.AdjustmentRate, "DYNMARKET_ADJUSTMENT_RATE")

	setDuration(&cfg.Jobs.AutosaveInterval, "DYNMARKET_AUTOSAVE_INTERVAL")
	setDuration(&cfg.Jobs.DecayInterval, "DYNMARKET_DECAY_INTERVAL")
	setDuration(&cfg.Jobs.AnalysisInterval, "DYNMARKET_ANALYSIS_INTERVAL")
	setDuration(&cfg.Jobs.Retention, "DYNMARKET_RETENTION")

	setStr(&cfg.DB.Path, "DYNMARKET_DB_PATH")
	setStr(&cfg.API.Addr, "DYNMARKET_API_ADDR")
	setStr(&cfg.API.AdminKey, "DYNMARKET_ADMIN_KEY")
	setInt(&cfg.API.TradeBurst, "DYNMARKET_TRADE_BURST")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = duration(d)
		}
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Market.MinPrice <= 0 {
		return errors.New("market.min_price must be positive")
	}
	if c.Market.MaxPrice <= c.Market.MinPrice {
		return errors.New("market.max_price must exceed market.min_price")
	}
	if c.Market.AdjustmentRate <= 0 || c.Market.AdjustmentRate >= 1 {
		return errors.New("market.adjustment_rate must be in (0, 1)")
	}
	if c.DB.Path == "" {
		return errors.New("db.path must be set")
	}
	// Zero disables a job; negative intervals are always a mistake.
	if c.Jobs.AutosaveInterval < 0 || c.Jobs.DecayInterval < 0 ||
		c.Jobs.AnalysisInterval < 0 || c.Jobs.Retention < 0 {
		return errors.New("jobs intervals must not be negative")
	}
	return nil
}
