package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Session   SessionConfig   `yaml:"session"`
	Notify    NotifyConfig    `yaml:"notify"`
	Catalog   CatalogConfig   `yaml:"catalog"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// TransportConfig selects between the HTTP server and MCP over stdio.
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SessionConfig controls idle expiry. A zero IdleTimeout disables the reaper.
type SessionConfig struct {
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	ReapInterval time.Duration `yaml:"reap_interval"`
}

// NotifyConfig routes session events to Kafka when brokers are set,
// otherwise to the log.
type NotifyConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

type CatalogConfig struct {
	SeedPath string `yaml:"seed_path"`
}

const (
	ModeHTTP  = "http"
	ModeStdio = "stdio"
)

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "liveshop.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: ModeHTTP,
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		Session: SessionConfig{
			IdleTimeout:  2 * time.Hour,
			ReapInterval: time.Minute,
		},
		Notify: NotifyConfig{
			KafkaTopic: "liveshop-session-events",
		},
	}

	if path := os.Getenv("LIVESHOP_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("LIVESHOP_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("LIVESHOP_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LIVESHOP_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("LIVESHOP_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("LIVESHOP_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if mode := os.Getenv("LIVESHOP_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv("LIVESHOP_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LIVESHOP_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if idle := os.Getenv("LIVESHOP_SESSION_IDLE_TIMEOUT"); idle != "" {
		d, err := time.ParseDuration(idle)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LIVESHOP_SESSION_IDLE_TIMEOUT: %w", err)
		}
		cfg.Session.IdleTimeout = d
	}
	if interval := os.Getenv("LIVESHOP_SESSION_REAP_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LIVESHOP_SESSION_REAP_INTERVAL: %w", err)
		}
		cfg.Session.ReapInterval = d
	}
	if brokers := os.Getenv("LIVESHOP_KAFKA_BROKERS"); brokers != "" {
		cfg.Notify.KafkaBrokers = splitList(brokers)
	}
	if topic := os.Getenv("LIVESHOP_KAFKA_TOPIC"); topic != "" {
		cfg.Notify.KafkaTopic = topic
	}
	if seed := os.Getenv("LIVESHOP_CATALOG_SEED"); seed != "" {
		cfg.Catalog.SeedPath = seed
	}

	if cfg.Transport.Mode != ModeHTTP && cfg.Transport.Mode != ModeStdio {
		return Config{}, fmt.Errorf("invalid transport mode %q", cfg.Transport.Mode)
	}
	if cfg.Session.IdleTimeout < 0 {
		return Config{}, fmt.Errorf("invalid session idle_timeout %s", cfg.Session.IdleTimeout)
	}
	if cfg.Session.IdleTimeout > 0 && cfg.Session.ReapInterval <= 0 {
		return Config{}, fmt.Errorf("session reap_interval must be positive when idle_timeout is set, got %s", cfg.Session.ReapInterval)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
