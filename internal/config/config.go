package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "KHOBOR"
	configPathEnv = "KHOBOR_CONFIG"
)

// Config holds every setting the web client and CLI need.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Backend    BackendConfig    `mapstructure:"backend"`
	State      StateConfig      `mapstructure:"state"`
	Enrich     EnrichConfig     `mapstructure:"enrich"`
	Publishers PublishersConfig `mapstructure:"publishers"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
}

// BackendConfig points at the AI news backend.
type BackendConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	AITimeout time.Duration `mapstructure:"ai_timeout"`
}

// StateConfig controls the session store. An empty Path keeps state in memory.
type StateConfig struct {
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// EnrichConfig toggles preview image scraping for articles without images.
type EnrichConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Delay   time.Duration `mapstructure:"delay"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PublishersConfig points at the social post publishers file. Empty disables sharing.
type PublishersConfig struct {
	File string `mapstructure:"file"`
}

// LogConfig selects log level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads .env (if present), the optional config file and KHOBOR_* environment
// variables, in increasing precedence. An explicit path wins over KHOBOR_CONFIG.
func Load(path string) (Config, error) {
	return load(viper.New(), path)
}

// LoadWith is Load on a caller-supplied viper instance, so CLI flags bound to it take
// the highest precedence.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	return load(v, path)
}

func load(v *viper.Viper, path string) (Config, error) {
	// missing .env is normal outside development
	_ = godotenv.Load()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path == "" {
		path = strings.TrimSpace(os.Getenv(configPathEnv))
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 150*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.secure_cookies", false)

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.ai_timeout", 120*time.Second)

	v.SetDefault("state.path", "")
	v.SetDefault("state.ttl", 24*time.Hour)

	v.SetDefault("enrich.enabled", false)
	v.SetDefault("enrich.delay", 0)
	v.SetDefault("enrich.timeout", 10*time.Second)

	v.SetDefault("publishers.file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func (c *Config) normalize() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	c.State.Path = strings.TrimSpace(c.State.Path)
	c.Publishers.File = strings.TrimSpace(c.Publishers.File)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate checks required fields and value ranges.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}

	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url %q must be an absolute http(s) url", c.Backend.BaseURL))
	}
	if c.Backend.Timeout <= 0 || c.Backend.AITimeout <= 0 {
		errs = append(errs, errors.New("backend timeouts must be positive"))
	}

	if c.State.TTL <= 0 {
		errs = append(errs, errors.New("state.ttl must be positive"))
	}
	if c.Enrich.Delay < 0 {
		errs = append(errs, errors.New("enrich.delay must not be negative"))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}

	return errors.Join(errs...)
}
