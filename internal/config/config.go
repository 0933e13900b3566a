package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"wallet-bot/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Pricefeed PricefeedConfig `mapstructure:"pricefeed"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Session   SessionConfig   `mapstructure:"session"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Chains    ChainsConfig    `mapstructure:"chains"`
	Health    HealthConfig    `mapstructure:"health"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig covers the optional shared price cache.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PriceTTL time.Duration `mapstructure:"price_ttl"`
}

// TelegramConfig describes Bot API connectivity.
type TelegramConfig struct {
	BotToken    string        `mapstructure:"bot_token"`
	APIBase     string        `mapstructure:"api_base"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// PricefeedConfig covers spot price access.
type PricefeedConfig struct {
	APIBase        string            `mapstructure:"api_base"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	TokenIDs       map[string]string `mapstructure:"token_ids"`
}

// MonitorConfig governs the price alert loop.
type MonitorConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	Symbols      []string      `mapstructure:"symbols"`
}

// SessionConfig tunes the conversation state machine.
type SessionConfig struct {
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	DefaultBuyAmount float64       `mapstructure:"default_buy_amount"`
}

// RetryConfig parameterises the resilient call wrapper.
type RetryConfig struct {
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// ChainsConfig groups per-chain collaborator endpoints.
type ChainsConfig struct {
	Ton    TonConfig    `mapstructure:"ton"`
	Solana SolanaConfig `mapstructure:"solana"`
}

// TonConfig covers TON token metadata access.
type TonConfig struct {
	APIBase        string        `mapstructure:"api_base"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SolanaConfig covers Solana token metadata access.
type SolanaConfig struct {
	APIBase        string        `mapstructure:"api_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HealthConfig sets the liveness endpoint address.
type HealthConfig struct {
	Addr string `mapstructure:"addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("WALLETBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
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

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "wallet-bot")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.price_ttl", "1m")

	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", "30s")

	v.SetDefault("pricefeed.api_base", "https://api.coingecko.com/api/v3")
	v.SetDefault("pricefeed.request_timeout", "10s")

	v.SetDefault("monitor.interval", "1m")
	v.SetDefault("monitor.startup_delay", "0s")
	v.SetDefault("monitor.symbols", []string{"SOL/USDT", "TON/USDT"})

	v.SetDefault("session.idle_timeout", "15m")
	v.SetDefault("session.sweep_interval", "1m")
	v.SetDefault("session.default_buy_amount", 0.01)

	v.SetDefault("retry.base_delay", "2s")
	v.SetDefault("retry.max_attempts", 5)

	v.SetDefault("chains.ton.api_base", "https://tonapi.io/v2")
	v.SetDefault("chains.ton.request_timeout", "10s")
	v.SetDefault("chains.solana.api_base", "https://public-api.solscan.io")
	v.SetDefault("chains.solana.request_timeout", "10s")

	v.SetDefault("health.addr", ":3000")

	v.SetDefault("export.max_data_points", 100000)
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
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be greater than zero")
	}
	if len(c.Monitor.Symbols) == 0 {
		return fmt.Errorf("monitor.symbols must not be empty")
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be greater than zero")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be greater than zero")
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session.idle_timeout must be greater than zero")
	}
	if c.Session.DefaultBuyAmount <= 0 {
		return fmt.Errorf("session.default_buy_amount must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
