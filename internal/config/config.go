package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"p2pool-monitor/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Logging  logging.Config          `mapstructure:"logging"`
	P2Pool   EndpointConfig          `mapstructure:"p2pool"`
	Observer EndpointConfig          `mapstructure:"observer"`
	HTTP     HTTPConfig              `mapstructure:"http"`
	Polling  PollingConfig           `mapstructure:"polling"`
	Sources  map[string]SourceConfig `mapstructure:"sources"`
	Payouts  PayoutsConfig           `mapstructure:"payouts"`
	Proxy    ProxyConfig             `mapstructure:"proxy"`
	Database DatabaseConfig          `mapstructure:"database"`
	Alerting AlertingConfig          `mapstructure:"alerting"`
	Export   ExportConfig            `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// EndpointConfig points at a remote HTTP API. An empty base URL on the
// observer disables payout history.
type EndpointConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// HTTPConfig applies to every outgoing request.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// PollingConfig is the default cadence for every data source.
type PollingConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
}

// SourceConfig overrides PollingConfig for one source. Nil fields inherit.
type SourceConfig struct {
	Enabled  *bool         `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// PayoutsConfig tunes the observer payout lookup.
type PayoutsConfig struct {
	Limit   int    `mapstructure:"limit"`
	Address string `mapstructure:"address"`
}

// ProxyConfig serves a p2pool data-api directory over HTTP.
type ProxyConfig struct {
	Listen string `mapstructure:"listen"`
	Root   string `mapstructure:"root"`
	Prefix string `mapstructure:"prefix"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AlertingConfig routes source failure and recovery notices.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Cooldown time.Duration  `mapstructure:"cooldown"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	Dir        string `mapstructure:"dir"`
	MaxBars    int    `mapstructure:"max_bars"`
	ChartWidth int    `mapstructure:"chart_width"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("P2POOLMON")
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
	v.SetDefault("app.name", "p2poolmon")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("p2pool.base_url", "http://localhost:3001")
	v.SetDefault("observer.base_url", "")

	v.SetDefault("http.timeout", "10s")
	v.SetDefault("http.user_agent", "p2poolmon/1.0")

	v.SetDefault("polling.enabled", true)
	v.SetDefault("polling.interval", "30s")
	v.SetDefault("polling.align_to_interval", false)

	v.SetDefault("payouts.limit", 50)

	v.SetDefault("proxy.listen", ":3001")
	v.SetDefault("proxy.prefix", "/api")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.cooldown", "10m")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.max_bars", 40)
	v.SetDefault("export.chart_width", 1280)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
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
	if err := validateURL("p2pool.base_url", c.P2Pool.BaseURL, true); err != nil {
		return err
	}
	if err := validateURL("observer.base_url", c.Observer.BaseURL, false); err != nil {
		return err
	}
	if _, ok := logging.ParseLevel(c.Logging.Level); c.Logging.Level != "" && !ok {
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval must be greater than zero")
	}
	for name, src := range c.Sources {
		if src.Interval < 0 {
			return fmt.Errorf("sources.%s.interval cannot be negative", name)
		}
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be greater than zero")
	}
	if c.Payouts.Limit <= 0 {
		return fmt.Errorf("payouts.limit must be greater than zero")
	}
	if c.Export.MaxBars <= 0 {
		return fmt.Errorf("export.max_bars must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

func validateURL(key, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", key)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}

// Source resolves the effective settings of one data source.
func (c *Config) Source(name string) (enabled bool, interval time.Duration) {
	enabled, interval = c.Polling.Enabled, c.Polling.Interval
	// viper lowercases map keys
	src, ok := c.Sources[strings.ToLower(name)]
	if !ok {
		return enabled, interval
	}
	if src.Enabled != nil {
		enabled = *src.Enabled
	}
	if src.Interval > 0 {
		interval = src.Interval
	}
	return enabled, interval
}

// ResolveMaxBars returns either the CLI override or config default.
func (c *Config) ResolveMaxBars(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxBars
}
