package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loopworks/traintrack-backend/internal/platform/envutil"
)

// Config is assembled env-first. When CONFIG_PATH points at a YAML file its
// values become the defaults and environment variables still win.
type Config struct {
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`

	HTTPAddr string `yaml:"http_addr"`

	JWTSecret      string        `yaml:"jwt_secret"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileBatch    int           `yaml:"reconcile_batch"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment:       "development",
		Version:           "dev",
		HTTPAddr:          ":8080",
		JWTSecret:         "defaultsecret",
		AccessTokenTTL:    time.Hour,
		ReconcileInterval: time.Minute,
		ReconcileBatch:    100,
	}

	if path := envutil.String("CONFIG_PATH", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.Version = envutil.String("APP_VERSION", cfg.Version)
	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)
	cfg.JWTSecret = envutil.String("JWT_SECRET_KEY", cfg.JWTSecret)
	cfg.AccessTokenTTL = envutil.Duration("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.RedisAddr = envutil.String("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envutil.String("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.ReconcileInterval = envutil.Duration("RECONCILE_INTERVAL", cfg.ReconcileInterval)
	cfg.ReconcileBatch = envutil.Int("RECONCILE_BATCH", cfg.ReconcileBatch)

	return cfg, nil
}
