// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Account Account       `mapstructure:"account" yaml:"account"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Pacing  PacingConfig  `mapstructure:"pacing" yaml:"pacing"`
}

// Account identifies the one account this process drives. The password is
// expected from the environment, never from the config file on disk.
type Account struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
	// JarKey overrides the cookie store key; defaults to the username.
	JarKey string `mapstructure:"jar_key" yaml:"jar_key"`
}

// ResolveJarKey returns the cookie store key for this account.
func (a Account) ResolveJarKey() string {
	if a.JarKey != "" {
		return a.JarKey
	}
	return a.Username
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless       bool           `mapstructure:"headless" yaml:"headless"`
	Args           []string       `mapstructure:"args" yaml:"args"`
	Viewport       ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	UserAgent      string         `mapstructure:"user_agent" yaml:"user_agent"`
	Platform       string         `mapstructure:"platform" yaml:"platform"`
	Languages      []string       `mapstructure:"languages" yaml:"languages"`
	Timezone       string         `mapstructure:"timezone" yaml:"timezone"`
	Locale         string         `mapstructure:"locale" yaml:"locale"`
	Humanoid       HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
	IgnoreTLSError bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
}

// ViewportConfig is the emulated window size.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// HumanoidConfig tunes the human-pacing layer. All delays are sampled, not
// fixed; the mean/stddev pairs feed a gaussian.
type HumanoidConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// PauseMeanMs / PauseStdDevMs shape the cognitive pause between UI
	// steps.
	PauseMeanMs   float64 `mapstructure:"pause_mean_ms" yaml:"pause_mean_ms"`
	PauseStdDevMs float64 `mapstructure:"pause_stddev_ms" yaml:"pause_stddev_ms"`
	// KeyHoldMeanMs / KeyHoldStdDevMs shape the per-character typing cadence.
	KeyHoldMeanMs   float64 `mapstructure:"key_hold_mean_ms" yaml:"key_hold_mean_ms"`
	KeyHoldStdDevMs float64 `mapstructure:"key_hold_stddev_ms" yaml:"key_hold_stddev_ms"`
	// FatigueGrowth raises pause durations as the session ages, up to 2x.
	FatigueGrowth float64 `mapstructure:"fatigue_growth" yaml:"fatigue_growth"`
}

// ProxyConfig defines an optional upstream proxy for all browser traffic.
// Credentials are injected by the local forwarder; Chrome itself cannot
// authenticate to a proxy.
type ProxyConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	URL      string `mapstructure:"url" yaml:"url"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
	// ListenAddr is the local forwarder's bind address.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// NetworkConfig tunes timeouts and request shaping.
type NetworkConfig struct {
	NavigationTimeout time.Duration     `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration     `mapstructure:"action_timeout" yaml:"action_timeout"`
	ElementTimeout    time.Duration     `mapstructure:"element_timeout" yaml:"element_timeout"`
	PostLoadWait      time.Duration     `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	Headers           map[string]string `mapstructure:"headers" yaml:"headers"`
	Proxy             ProxyConfig       `mapstructure:"proxy" yaml:"proxy"`
}

// StoreConfig selects and configures the cookie jar backend.
type StoreConfig struct {
	// Backend is "file" or "postgres".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Dir is the jar directory for the file backend. Supports ~ expansion.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// DSN is the connection string for the postgres backend.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// LLMProvider selects the comment generation backend.
type LLMProvider string

const (
	// ProviderGemini is the plain REST client.
	ProviderGemini LLMProvider = "gemini"
	// ProviderGenAI is the official SDK client.
	ProviderGenAI LLMProvider = "genai"
)

// LLMConfig configures the text-generation collaborator.
type LLMConfig struct {
	Provider      LLMProvider       `mapstructure:"provider" yaml:"provider"`
	Model         string            `mapstructure:"model" yaml:"model"`
	APIKey        string            `mapstructure:"api_key" yaml:"-"`
	Endpoint      string            `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout    time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature   float64           `mapstructure:"temperature" yaml:"temperature"`
	TopP          float32           `mapstructure:"top_p" yaml:"top_p"`
	TopK          int               `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens     int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	SafetyFilters map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
	Color       bool   `mapstructure:"color" yaml:"color"`
}

// PacingConfig bounds how fast actions may follow each other, independent of
// the per-step humanoid delays.
type PacingConfig struct {
	// MinActionInterval is the floor between two consecutive actions.
	MinActionInterval time.Duration `mapstructure:"min_action_interval" yaml:"min_action_interval"`
	// MaxRetries caps the centralized retry policy.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// RetryInitialInterval seeds the exponential backoff.
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval" yaml:"retry_initial_interval"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "sockpuppet")
	v.SetDefault("logger.log_file", "sockpuppet.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.color", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport.width", 1366)
	v.SetDefault("browser.viewport.height", 768)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	v.SetDefault("browser.platform", "Win32")
	v.SetDefault("browser.languages", []string{"en-US", "en"})
	v.SetDefault("browser.timezone", "America/Los_Angeles")
	v.SetDefault("browser.locale", "en-US")
	v.SetDefault("browser.humanoid.enabled", true)
	v.SetDefault("browser.humanoid.pause_mean_ms", 900.0)
	v.SetDefault("browser.humanoid.pause_stddev_ms", 350.0)
	v.SetDefault("browser.humanoid.key_hold_mean_ms", 110.0)
	v.SetDefault("browser.humanoid.key_hold_stddev_ms", 40.0)
	v.SetDefault("browser.humanoid.fatigue_growth", 0.02)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "45s")
	v.SetDefault("network.action_timeout", "90s")
	v.SetDefault("network.element_timeout", "10s")
	v.SetDefault("network.post_load_wait", "2s")
	v.SetDefault("network.proxy.enabled", false)
	v.SetDefault("network.proxy.listen_addr", "127.0.0.1:0")

	// -- Store --
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.dir", "~/.sockpuppet/sessions")

	// -- LLM --
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "45s")
	v.SetDefault("llm.temperature", 0.9)
	v.SetDefault("llm.top_p", 0.95)
	v.SetDefault("llm.max_tokens", 256)

	// -- Pacing --
	v.SetDefault("pacing.min_action_interval", "8s")
	v.SetDefault("pacing.max_retries", 3)
	v.SetDefault("pacing.retry_initial_interval", "2s")
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper builds and validates a configuration from a viper
// instance. Secrets are bound to environment variables here so they never
// need to live in the config file.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("account.password", "SOCKPUPPET_ACCOUNT_PASSWORD")
	v.BindEnv("llm.api_key", "SOCKPUPPET_LLM_API_KEY")
	v.BindEnv("network.proxy.password", "SOCKPUPPET_NETWORK_PROXY_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Store.Dir != "" {
		expanded, err := homedir.Expand(cfg.Store.Dir)
		if err != nil {
			return nil, fmt.Errorf("invalid store.dir: %w", err)
		}
		cfg.Store.Dir = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the file backend")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q (supported: file, postgres)", c.Store.Backend)
	}

	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport dimensions must be positive")
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	if c.Network.ElementTimeout <= 0 {
		return fmt.Errorf("network.element_timeout must be a positive duration")
	}
	if c.Pacing.MaxRetries < 0 {
		return fmt.Errorf("pacing.max_retries must not be negative")
	}

	if c.Network.Proxy.Enabled {
		u, err := url.Parse(c.Network.Proxy.URL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("network.proxy.url must be a valid URL when the proxy is enabled")
		}
		if !strings.HasPrefix(u.Scheme, "http") {
			return fmt.Errorf("network.proxy.url scheme %q is not supported", u.Scheme)
		}
	}

	switch c.LLM.Provider {
	case ProviderGemini, ProviderGenAI:
	default:
		return fmt.Errorf("unknown llm.provider %q (supported: %s, %s)", c.LLM.Provider, ProviderGemini, ProviderGenAI)
	}

	return nil
}
