package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies KISTRADER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known KISTRADER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject the app key/secret at deploy time
// without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Broker ──
	setStr(&cfg.Broker.Mode, "KISTRADER_BROKER_MODE")
	setStr(&cfg.Broker.AppKey, "KISTRADER_BROKER_APP_KEY")
	setStr(&cfg.Broker.AppSecret, "KISTRADER_BROKER_APP_SECRET")
	setStr(&cfg.Broker.AccountNo, "KISTRADER_BROKER_ACCOUNT_NO")
	setStr(&cfg.Broker.AccountCode, "KISTRADER_BROKER_ACCOUNT_CODE")
	setStr(&cfg.Broker.TokenPath, "KISTRADER_BROKER_TOKEN_PATH")
	setBool(&cfg.Broker.Realtime, "KISTRADER_BROKER_REALTIME")

	// ── Trading ──
	setStr(&cfg.Trading.Symbol, "KISTRADER_TRADING_SYMBOL")
	setFloat64(&cfg.Trading.TargetBuy, "KISTRADER_TRADING_TARGET_BUY")
	setFloat64(&cfg.Trading.TargetSell, "KISTRADER_TRADING_TARGET_SELL")
	setInt(&cfg.Trading.Quantity, "KISTRADER_TRADING_QUANTITY")
	setDuration(&cfg.Trading.PollInterval, "KISTRADER_TRADING_POLL_INTERVAL")

	// ── Quotes ──
	setStr(&cfg.Quotes.BaseURL, "KISTRADER_QUOTES_BASE_URL")
	setDuration(&cfg.Quotes.CacheTTL, "KISTRADER_QUOTES_CACHE_TTL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "KISTRADER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "KISTRADER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "KISTRADER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "KISTRADER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "KISTRADER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "KISTRADER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "KISTRADER_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "KISTRADER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "KISTRADER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "KISTRADER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "KISTRADER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "KISTRADER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "KISTRADER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "KISTRADER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "KISTRADER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "KISTRADER_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "KISTRADER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "KISTRADER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "KISTRADER_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "KISTRADER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "KISTRADER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "KISTRADER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "KISTRADER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "KISTRADER_MODE")
	setStr(&cfg.LogLevel, "KISTRADER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
