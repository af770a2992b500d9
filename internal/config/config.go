package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	API struct {
		BaseURL         string  `yaml:"base_url"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		RateLimit       float64 `yaml:"rate_limit"`
		RateBurst       int     `yaml:"rate_burst"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Session struct {
		Store    string `yaml:"store"`
		TTLHours int    `yaml:"ttl_hours"`
	} `yaml:"session"`

	UI UI `yaml:"ui"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

// UI holds the settings that may change while the bot runs.
type UI struct {
	PageSize           int `yaml:"page_size"`
	ToastTTLMillis     int `yaml:"toast_ttl_ms"`
	ReloadIntervalSecs int `yaml:"reload_interval_seconds"`
}

// LoadEnv loads .env style files into the process environment. Missing
// files are skipped; variables already set are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the YAML config at path, expanding ${ENV_VAR} placeholders.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	return &cfg, nil
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		errs = append(errs, errors.New("telegram.bot_token is required"))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	switch c.Session.Store {
	case "", "memory":
	case "redis":
		if c.Redis.Address == "" {
			errs = append(errs, errors.New("session.store=redis needs redis.address"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.store: unknown value %q", c.Session.Store))
	}
	return errors.Join(errs...)
}

func (c *Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTLHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.Session.TTLHours) * time.Hour
}

func (c *Config) HealthCheckPort() int {
	if c.Monitoring.HealthCheckPort == 0 {
		return 8090
	}
	return c.Monitoring.HealthCheckPort
}

func (c *Config) PrometheusPort() int {
	if c.Monitoring.PrometheusPort == 0 {
		return 9090
	}
	return c.Monitoring.PrometheusPort
}

func (u UI) Size() int {
	if u.PageSize <= 0 {
		return 5
	}
	return u.PageSize
}

func (u UI) ToastTTL() time.Duration {
	if u.ToastTTLMillis <= 0 {
		return 3 * time.Second
	}
	return time.Duration(u.ToastTTLMillis) * time.Millisecond
}

func (u UI) ReloadInterval() time.Duration {
	if u.ReloadIntervalSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(u.ReloadIntervalSecs) * time.Second
}
