// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Engine selection strings accepted by BrowserSettings.Engine.
const (
	EngineAuto   = "auto"
	EngineMock   = "mock"
	EngineCDP    = "cdp"
	EngineNative = "native"
)

// Proxy types accepted by ProxyConfig.Type.
const (
	ProxyHTTP   = "http"
	ProxyHTTPS  = "https"
	ProxySOCKS5 = "socks5"
)

// Input pacing profiles accepted by InputConfig.Profile.
const (
	InputProfileNormal  = "normal"
	InputProfileFast    = "fast"
	InputProfileSlow    = "slow"
	InputProfileInstant = "instant"
)

// Config is the root configuration for the browser engine.
type Config struct {
	Browser BrowserSettings `mapstructure:"browser" yaml:"browser"`
	Proxy   ProxyConfig     `mapstructure:"proxy" yaml:"proxy"`
	Input   InputConfig     `mapstructure:"input" yaml:"input"`
	Logger  LoggerConfig    `mapstructure:"logger" yaml:"logger"`
}

// BrowserSettings controls the engine backend and window behavior.
type BrowserSettings struct {
	// Engine selects the backend: auto, mock, cdp or native. Auto probes for
	// a usable Chrome installation and falls back to mock.
	Engine           string `mapstructure:"engine" yaml:"engine"`
	WindowWidth      int    `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight     int    `mapstructure:"window_height" yaml:"window_height"`
	Headless         bool   `mapstructure:"headless" yaml:"headless"`
	StealthMode      bool   `mapstructure:"stealth_mode" yaml:"stealth_mode"`
	MaxTabs          int    `mapstructure:"max_tabs" yaml:"max_tabs"`
	DefaultTimeoutMS int    `mapstructure:"default_timeout_ms" yaml:"default_timeout_ms"`
	// UserAgent overrides the fingerprint-derived user agent when set.
	UserAgent   string `mapstructure:"user_agent" yaml:"user_agent"`
	ProfilePath string `mapstructure:"profile_path" yaml:"profile_path"`
	// FingerprintSeed makes fingerprint generation reproducible. Zero means
	// a random seed is drawn at startup.
	FingerprintSeed int64 `mapstructure:"fingerprint_seed" yaml:"fingerprint_seed"`
}

// DefaultTimeout returns the configured per-command timeout as a duration.
func (b BrowserSettings) DefaultTimeout() time.Duration {
	return time.Duration(b.DefaultTimeoutMS) * time.Millisecond
}

// ProxyConfig describes the upstream proxy the browser routes through.
type ProxyConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Type     string `mapstructure:"type" yaml:"type"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// Enabled reports whether a proxy host has been configured.
func (p ProxyConfig) Enabled() bool {
	return p.Host != ""
}

// URL assembles the proxy URL, including credentials when present.
func (p ProxyConfig) URL() string {
	if !p.Enabled() {
		return ""
	}
	scheme := p.Type
	if scheme == "" {
		scheme = ProxyHTTP
	}
	if p.Username != "" {
		return fmt.Sprintf("%s://%s:%s@%s:%d", scheme, p.Username, p.Password, p.Host, p.Port)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, p.Host, p.Port)
}

// InputConfig tunes the human input simulator.
type InputConfig struct {
	Profile string `mapstructure:"profile" yaml:"profile"`
}

// LoggerConfig controls the zap logger construction.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal color names.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// SetDefaults registers the default values on a viper instance. Call before
// reading the config file so unset keys resolve to sane values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("browser.engine", EngineAuto)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.stealth_mode", true)
	v.SetDefault("browser.max_tabs", 10)
	v.SetDefault("browser.default_timeout_ms", 30000)
	v.SetDefault("browser.fingerprint_seed", 0)

	v.SetDefault("proxy.type", ProxyHTTP)

	v.SetDefault("input.profile", InputProfileNormal)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "kibrowser")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "red")
	v.SetDefault("logger.colors.panic", "red")
	v.SetDefault("logger.colors.fatal", "magenta")
}

// NewFromViper unmarshals, normalizes and validates a Config.
func NewFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Browser.ProfilePath != "" {
		expanded, err := homedir.Expand(cfg.Browser.ProfilePath)
		if err != nil {
			return nil, fmt.Errorf("invalid profile_path: %w", err)
		}
		cfg.Browser.ProfilePath = expanded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated Config built purely from defaults. Useful for
// tests and embedding.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewFromViper(v)
	if err != nil {
		// Defaults failing validation is a programming error.
		panic(err)
	}
	return cfg
}

// Validate checks invariants across the whole configuration tree.
func (c *Config) Validate() error {
	switch c.Browser.Engine {
	case EngineAuto, EngineMock, EngineCDP, EngineNative:
	default:
		return fmt.Errorf("browser.engine must be one of auto, mock, cdp, native; got %q", c.Browser.Engine)
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser window dimensions must be positive, got %dx%d",
			c.Browser.WindowWidth, c.Browser.WindowHeight)
	}
	if c.Browser.MaxTabs < 1 {
		return fmt.Errorf("browser.max_tabs must be at least 1, got %d", c.Browser.MaxTabs)
	}
	if c.Browser.DefaultTimeoutMS <= 0 {
		return fmt.Errorf("browser.default_timeout_ms must be positive, got %d", c.Browser.DefaultTimeoutMS)
	}

	if c.Proxy.Enabled() {
		switch c.Proxy.Type {
		case ProxyHTTP, ProxyHTTPS, ProxySOCKS5:
		default:
			return fmt.Errorf("proxy.type must be one of http, https, socks5; got %q", c.Proxy.Type)
		}
		if c.Proxy.Port < 1 || c.Proxy.Port > 65535 {
			return fmt.Errorf("proxy.port must be within 1-65535, got %d", c.Proxy.Port)
		}
	} else if c.Proxy.Username != "" {
		return fmt.Errorf("proxy.username set without proxy.host")
	}

	switch c.Input.Profile {
	case InputProfileNormal, InputProfileFast, InputProfileSlow, InputProfileInstant:
	default:
		return fmt.Errorf("input.profile must be one of normal, fast, slow, instant; got %q", c.Input.Profile)
	}

	return nil
}
