// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	APIKey        string        `yaml:"api_key"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // file | postgres
	Path   string `yaml:"path"`   // dataset path for the file driver
	URL    string `yaml:"url"`    // database url for the postgres driver
}

type RedisConfig struct {
	URL       string        `yaml:"url"` // empty disables redis entirely
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
	RateLimit int           `yaml:"rate_limit"` // inbound messages per sender per window
	RateWin   time.Duration `yaml:"rate_window"`
}

type AIConfig struct {
	Provider        string        `yaml:"provider"` // openai | gemini | noop
	OpenAIKey       string        `yaml:"openai_key"`
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	Model           string        `yaml:"model"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"` // per-call deadline
	ConcurrentLimit int           `yaml:"concurrent_limit"`
}

type WhatsAppConfig struct {
	Token       string `yaml:"token"` // empty disables real delivery
	PhoneID     string `yaml:"phone_id"`
	APIBase     string `yaml:"api_base"`
	VerifyToken string `yaml:"verify_token"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "file"
	}
	if cfg.Store.Driver == "file" && cfg.Store.Path == "" {
		cfg.Store.Path = "data/data.json"
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 10 * time.Second
	}
	if cfg.Redis.RateLimit <= 0 {
		cfg.Redis.RateLimit = 30
	}
	if cfg.Redis.RateWin <= 0 {
		cfg.Redis.RateWin = time.Minute
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-3.5-turbo"
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.7
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 400
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 30 * time.Second
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.WhatsApp.APIBase == "" {
		cfg.WhatsApp.APIBase = "https://graph.facebook.com/v19.0"
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}

	// Minimal validation
	switch cfg.Store.Driver {
	case "file":
		// path defaulted above
	case "postgres":
		if cfg.Store.URL == "" {
			return nil, errors.New("store.url is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("store.driver %q not supported", cfg.Store.Driver)
	}
	switch cfg.AI.Provider {
	case "openai":
		if cfg.AI.OpenAIKey == "" && !dev {
			return nil, errors.New("ai.openai_key is required")
		}
	case "gemini":
		if cfg.AI.GeminiKey == "" && !dev {
			return nil, errors.New("ai.gemini_key is required")
		}
	case "noop":
	default:
		return nil, fmt.Errorf("ai.provider %q not supported", cfg.AI.Provider)
	}
	if cfg.Admin.APIKey == "" && !dev {
		return nil, errors.New("admin.api_key is required")
	}
	if cfg.Admin.SessionSecret == "" {
		cfg.Admin.SessionSecret = cfg.Admin.APIKey
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
