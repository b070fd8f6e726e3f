package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "rupeeflow/libs/config"
)

// Config defines meter service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"METER_HTTP_PORT"`
	} `yaml:"http"`
	WS struct {
		PingInterval time.Duration `yaml:"pingInterval" env:"METER_WS_PING_INTERVAL"`
		WriteTimeout time.Duration `yaml:"writeTimeout" env:"METER_WS_WRITE_TIMEOUT"`
	} `yaml:"ws"`
	Meter struct {
		TickInterval          time.Duration `yaml:"tickInterval" env:"METER_TICK_INTERVAL"`
		DefaultRatePerKwh     float64       `yaml:"defaultRatePerKwh" env:"METER_DEFAULT_RATE_PER_KWH"`
		DefaultChargerPowerKw float64       `yaml:"defaultChargerPowerKw" env:"METER_DEFAULT_CHARGER_POWER_KW"`
	} `yaml:"meter"`
	Database struct {
		DSN string `yaml:"dsn" env:"METER_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"METER_REDIS_ADDR"`
		Password string `yaml:"password" env:"METER_REDIS_PASSWORD"`
		TTL      int    `yaml:"ttlSeconds" env:"METER_REDIS_TTL"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret" env:"METER_JWT_SECRET"`
	} `yaml:"auth"`
	Metrics struct {
		Enabled bool `yaml:"enabled" env:"METER_METRICS_ENABLED"`
	} `yaml:"metrics"`
}

// Load reads configuration via shared helper and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8085"
	cfg.WS.PingInterval = 30 * time.Second
	cfg.WS.WriteTimeout = 10 * time.Second
	cfg.Meter.TickInterval = 500 * time.Millisecond
	cfg.Meter.DefaultRatePerKwh = 12
	cfg.Meter.DefaultChargerPowerKw = 7.4
	cfg.Redis.TTL = 86400
	cfg.Metrics.Enabled = true

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	if cfg.Meter.TickInterval < 100*time.Millisecond {
		return nil, errors.New("config: tick interval must be at least 100ms")
	}
	if cfg.Meter.DefaultRatePerKwh <= 0 || cfg.Meter.DefaultChargerPowerKw <= 0 {
		return nil, errors.New("config: default rate and charger power must be positive")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8085"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// ActiveSessionTTL returns redis mirror ttl as duration.
func (c *Config) ActiveSessionTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}
