// Package config defines the top-level configuration for the KIS auto-trader
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by KISTRADER_* environment variables.
type Config struct {
	Broker   BrokerConfig   `toml:"broker"`
	Trading  TradingConfig  `toml:"trading"`
	Quotes   QuotesConfig   `toml:"quotes"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// BrokerConfig holds KIS Open API credentials and environment selection.
// AccountNo is the 8-digit account prefix; AccountCode the 2-digit product
// code that follows it.
type BrokerConfig struct {
	Mode        string `toml:"mode"` // "paper" or "live"
	AppKey      string `toml:"app_key"`
	AppSecret   string `toml:"app_secret"`
	AccountNo   string `toml:"account_no"`
	AccountCode string `toml:"account_code"`
	TokenPath   string `toml:"token_path"`
	Realtime    bool   `toml:"realtime"` // subscribe to the KIS websocket tick feed
}

// TradingConfig holds the threshold-trading parameters for the monitored
// instrument. A zero target disables the corresponding condition.
type TradingConfig struct {
	Symbol       string   `toml:"symbol"`
	TargetBuy    float64  `toml:"target_buy"`
	TargetSell   float64  `toml:"target_sell"`
	Quantity     int      `toml:"quantity"`
	PollInterval duration `toml:"poll_interval"`
}

// QuotesConfig holds the price/history source parameters.
type QuotesConfig struct {
	BaseURL  string   `toml:"base_url"`
	CacheTTL duration `toml:"cache_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters for the watchlist
// store.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the quote cache.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "3s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "3s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Broker: BrokerConfig{
			Mode:        "paper",
			AccountCode: "01",
			TokenPath:   "token.json",
		},
		Trading: TradingConfig{
			Quantity:     1,
			PollInterval: duration{3 * time.Second},
		},
		Quotes: QuotesConfig{
			BaseURL:  "https://query1.finance.yahoo.com",
			CacheTTL: duration{5 * time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "kistrader",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"order_filled", "order_failed", "price_unavailable"},
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"server":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// isDigits reports whether s is non-empty and consists only of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	switch strings.ToLower(c.Broker.Mode) {
	case "paper", "live":
	default:
		errs = append(errs, fmt.Sprintf("broker: unknown mode %q (valid: paper, live)", c.Broker.Mode))
	}

	// Broker credentials are required for any mode that talks to KIS.
	needsBroker := c.Mode == "trade" || c.Mode == "server"
	if needsBroker {
		if c.Broker.AppKey == "" {
			errs = append(errs, "broker: app_key must not be empty for mode "+c.Mode)
		}
		if c.Broker.AppSecret == "" {
			errs = append(errs, "broker: app_secret must not be empty for mode "+c.Mode)
		}
		if !isDigits(c.Broker.AccountNo) || len(c.Broker.AccountNo) != 8 {
			errs = append(errs, fmt.Sprintf("broker: account_no must be the 8-digit account prefix, got %q", c.Broker.AccountNo))
		}
		if !isDigits(c.Broker.AccountCode) || len(c.Broker.AccountCode) != 2 {
			errs = append(errs, fmt.Sprintf("broker: account_code must be the 2-digit product code, got %q", c.Broker.AccountCode))
		}
	}
	if c.Broker.TokenPath == "" {
		errs = append(errs, "broker: token_path must not be empty")
	}

	if c.Mode == "trade" || c.Mode == "monitor" {
		if c.Trading.Symbol == "" {
			errs = append(errs, "trading: symbol must not be empty for mode "+c.Mode)
		}
		if c.Trading.Quantity < 1 {
			errs = append(errs, fmt.Sprintf("trading: quantity must be >= 1, got %d", c.Trading.Quantity))
		}
		if c.Trading.PollInterval.Duration <= 0 {
			errs = append(errs, "trading: poll_interval must be positive")
		}
		if c.Trading.TargetBuy < 0 || c.Trading.TargetSell < 0 {
			errs = append(errs, "trading: targets must not be negative")
		}
	}

	if c.Quotes.BaseURL == "" {
		errs = append(errs, "quotes: base_url must not be empty")
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Warnings returns non-fatal configuration problems worth surfacing at
// startup. A sell target at or below the buy target means the sell condition
// can never fire: the buy branch is evaluated first every cycle.
func (c *Config) Warnings() []string {
	var warns []string
	if c.Trading.TargetBuy > 0 && c.Trading.TargetSell > 0 && c.Trading.TargetSell <= c.Trading.TargetBuy {
		warns = append(warns, fmt.Sprintf(
			"trading: target_sell (%.2f) <= target_buy (%.2f); buy takes precedence and sell will be shadowed",
			c.Trading.TargetSell, c.Trading.TargetBuy,
		))
	}
	if c.Trading.TargetBuy == 0 && c.Trading.TargetSell == 0 && (c.Mode == "trade" || c.Mode == "monitor") {
		warns = append(warns, "trading: both targets are 0; the controller will only watch")
	}
	return warns
}
