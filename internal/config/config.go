// Package config loads the server configuration from a YAML file with
// environment-variable overrides, so a container deploy can tweak single
// values without shipping a new file.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level server configuration.
type Config struct {
	HTTP     HTTPConf     `yaml:"http"`
	Engine   EngineConf   `yaml:"engine"`
	Store    StoreConf    `yaml:"store"`
	Coupons  CouponsConf  `yaml:"coupons"`
	Channels ChannelsConf `yaml:"channels"`
}

// HTTPConf holds listener settings.
type HTTPConf struct {
	Addr string `yaml:"addr" env:"PROMOFLOW_HTTP_ADDR"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	EventWorkers   int `yaml:"event_workers" env:"PROMOFLOW_EVENT_WORKERS"`
	QueueDepth     int `yaml:"queue_depth" env:"PROMOFLOW_QUEUE_DEPTH"`
	EventTimeoutMs int `yaml:"event_timeout_ms" env:"PROMOFLOW_EVENT_TIMEOUT_MS"`
}

// StoreConf holds rule store settings. The DSN selects the dialect:
// "postgres://…" connects to Postgres, anything else is a SQLite path.
type StoreConf struct {
	DSN string `yaml:"dsn" env:"PROMOFLOW_STORE_DSN"`
}

// CouponsConf points at the coupon catalog file.
type CouponsConf struct {
	Path string `yaml:"path" env:"PROMOFLOW_COUPONS_PATH"`
}

// ChannelsConf holds per-channel delivery settings.
type ChannelsConf struct {
	WebhookURL        string  `yaml:"webhook_url" env:"PROMOFLOW_WEBHOOK_URL"`
	WebhookTimeoutMs  int     `yaml:"webhook_timeout_ms" env:"PROMOFLOW_WEBHOOK_TIMEOUT_MS"`
	WebhookRatePerSec float64 `yaml:"webhook_rate_per_sec" env:"PROMOFLOW_WEBHOOK_RATE_PER_SEC"`
	WebhookBurst      int     `yaml:"webhook_burst" env:"PROMOFLOW_WEBHOOK_BURST"`
}

// Load reads the YAML file at path (optional: an empty path skips the file),
// applies environment overrides, then defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config env overrides: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Engine.EventWorkers == 0 {
		cfg.Engine.EventWorkers = 32
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = 10000
	}
	if cfg.Engine.EventTimeoutMs == 0 {
		cfg.Engine.EventTimeoutMs = 5000
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = "promoflow.db"
	}
	if cfg.Coupons.Path == "" {
		cfg.Coupons.Path = "configs/coupons.yaml"
	}
	if cfg.Channels.WebhookTimeoutMs == 0 {
		cfg.Channels.WebhookTimeoutMs = 10000
	}
	if cfg.Channels.WebhookBurst == 0 {
		cfg.Channels.WebhookBurst = 5
	}
}
