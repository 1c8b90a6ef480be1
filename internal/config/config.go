package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"solarb/internal/logging"
)

// Config materialises application configuration. The flat top-level keys
// mirror the operator-facing JSON document; nested sections cover subsystem
// wiring.
type Config struct {
	RPC            string        `mapstructure:"rpc"`
	WalletPath     string        `mapstructure:"walletPath"`
	MinProfitBps   int64         `mapstructure:"minProfitBps"`
	MaxSlippageBps int64         `mapstructure:"maxSlippageBps"`
	MaxPositionUsd float64       `mapstructure:"maxPositionUsd"`
	NotionalUsd    float64       `mapstructure:"notionalUsd"`
	Pairs          []string      `mapstructure:"pairs"`
	ScanIntervalMs int           `mapstructure:"scanIntervalMs"`
	QuoteTimeout   time.Duration `mapstructure:"quoteTimeout"`
	SwapTimeout    time.Duration `mapstructure:"swapTimeout"`

	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Venues    VenuesConfig    `mapstructure:"venues"`
	Funding   FundingConfig   `mapstructure:"funding"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the trade journal.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// DashboardConfig governs the read-only HTTP/WebSocket dashboard.
type DashboardConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Listen       string        `mapstructure:"listen"`
	PushInterval time.Duration `mapstructure:"push_interval"`
	RatesLimit   int           `mapstructure:"rates_limit"`
	TradesLimit  int           `mapstructure:"trades_limit"`
}

// VenuesConfig carries per-venue API endpoints.
type VenuesConfig struct {
	Jupiter VenueEndpoint `mapstructure:"jupiter"`
	Raydium VenueEndpoint `mapstructure:"raydium"`
	Orca    VenueEndpoint `mapstructure:"orca"`
	Meteora VenueEndpoint `mapstructure:"meteora"`
}

// VenueEndpoint configures a single venue client.
type VenueEndpoint struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// FundingConfig covers the perp funding-rate data source.
type FundingConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Markets        []string      `mapstructure:"markets"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AlertingConfig defines optional trade-outcome notifications.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram delivery channel.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults. The config
// file is JSON, resolved from the explicit path, the CONFIG_PATH environment
// variable, or config/default.json; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SOLARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
	} else {
		v.SetConfigName("default")
		v.SetConfigType("json")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
	}

	if err := readConfig(v, path != ""); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper, explicit bool) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && !explicit {
			return nil
		}
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc", "https://api.mainnet-beta.solana.com")
	v.SetDefault("minprofitbps", int64(10))
	v.SetDefault("maxslippagebps", int64(50))
	v.SetDefault("maxpositionusd", 100.0)
	v.SetDefault("notionalusd", 100.0)
	v.SetDefault("pairs", []string{"SOL/USDC"})
	v.SetDefault("scanintervalms", 1000)
	v.SetDefault("quotetimeout", "5s")
	v.SetDefault("swaptimeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.advisory_lock_key", int64(0x534f4c41))

	v.SetDefault("dashboard.enabled", true)
	v.SetDefault("dashboard.listen", ":3000")
	v.SetDefault("dashboard.push_interval", "30s")
	v.SetDefault("dashboard.rates_limit", 15)
	v.SetDefault("dashboard.trades_limit", 20)

	v.SetDefault("venues.jupiter.enabled", true)
	v.SetDefault("venues.jupiter.base_url", "https://quote-api.jup.ag/v6")
	v.SetDefault("venues.raydium.enabled", true)
	v.SetDefault("venues.raydium.base_url", "https://api-v3.raydium.io")
	v.SetDefault("venues.orca.enabled", true)
	v.SetDefault("venues.orca.base_url", "https://api.orca.so/v2/solana")
	v.SetDefault("venues.meteora.enabled", true)
	v.SetDefault("venues.meteora.base_url", "https://amm-v2.meteora.ag")

	v.SetDefault("funding.base_url", "https://data.api.drift.trade")
	v.SetDefault("funding.markets", []string{"SOL-PERP", "BTC-PERP", "ETH-PERP", "JUP-PERP"})
	v.SetDefault("funding.request_timeout", "10s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if len(c.Pairs) == 0 {
		return fmt.Errorf("pairs must not be empty")
	}
	if c.MinProfitBps < 0 {
		return fmt.Errorf("minProfitBps cannot be negative")
	}
	if c.MaxSlippageBps < 0 {
		return fmt.Errorf("maxSlippageBps cannot be negative")
	}
	if c.MaxPositionUsd < 0 {
		return fmt.Errorf("maxPositionUsd cannot be negative")
	}
	if c.NotionalUsd <= 0 {
		return fmt.Errorf("notionalUsd must be greater than zero")
	}
	if c.ScanIntervalMs <= 0 {
		return fmt.Errorf("scanIntervalMs must be greater than zero")
	}
	if c.Alerting.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be configured")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be configured")
		}
	}
	return nil
}

// ScanInterval returns the scan cadence as a duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMs) * time.Millisecond
}
