// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Evaluation configuration
	Eval EvalConfig `yaml:"eval"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Result store configuration
	Store StoreConfig `yaml:"store"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`
}

// EvalConfig holds evaluation engine settings.
type EvalConfig struct {
	Workers   int    `envconfig:"NEMA_EVAL_WORKERS" yaml:"workers"`
	ChordMode string `envconfig:"NEMA_CHORD_MODE" yaml:"chord_mode"` // fuzzy or strict
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"NEMA_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"NEMA_LOG_FORMAT" yaml:"format"`
}

// StoreConfig holds result store settings.
type StoreConfig struct {
	Type     string `envconfig:"NEMA_STORE_TYPE" yaml:"type"`
	Path     string `envconfig:"NEMA_STORE_PATH" yaml:"path"`
	RedisURL string `envconfig:"NEMA_REDIS_URL" yaml:"redis_url"`
	TTLHours int    `envconfig:"NEMA_STORE_TTL_HOURS" yaml:"ttl_hours"` // 0 = no expiry
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type            string  `envconfig:"NEMA_BUS_TYPE" yaml:"type"`
	KafkaBrokers    string  `envconfig:"NEMA_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup      string  `envconfig:"NEMA_KAFKA_GROUP" yaml:"kafka_group"`
	TopicPrefix     string  `envconfig:"NEMA_TOPIC_PREFIX" yaml:"topic_prefix"`
	EventsPerSecond float64 `envconfig:"NEMA_EVENTS_PER_SECOND" yaml:"events_per_second"` // 0 = unlimited
	EventLogPath    string  `envconfig:"NEMA_EVENT_LOG_PATH" yaml:"event_log_path"`       // empty = no event log
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Eval = EvalConfig{
		Workers:   4,
		ChordMode: "fuzzy",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Store = StoreConfig{
		Type:     "none",
		Path:     "./nema-results.db",
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type:            "memory",
		KafkaGroup:      "nema-eval",
		TopicPrefix:     "nema.",
		EventsPerSecond: 50,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Eval.Workers < 1 {
		errs = append(errs, "eval workers must be positive")
	}

	validChordModes := map[string]bool{"fuzzy": true, "strict": true}
	if !validChordModes[c.Eval.ChordMode] {
		errs = append(errs, fmt.Sprintf("invalid chord mode: %s (must be fuzzy or strict)", c.Eval.ChordMode))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	validStoreTypes := map[string]bool{"none": true, "memory": true, "file": true, "sqlite": true, "redis": true}
	if !validStoreTypes[c.Store.Type] {
		errs = append(errs, fmt.Sprintf("invalid store type: %s (must be none, memory, file, sqlite, or redis)", c.Store.Type))
	}

	if (c.Store.Type == "sqlite" || c.Store.Type == "file") && c.Store.Path == "" {
		errs = append(errs, fmt.Sprintf("store path is required for %s store", c.Store.Type))
	}

	if c.Store.TTLHours < 0 {
		errs = append(errs, "store ttl_hours must not be negative")
	}

	validBusTypes := map[string]bool{"none": true, "memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be none, memory, or kafka)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && strings.TrimSpace(c.Bus.KafkaBrokers) == "" {
		errs = append(errs, "kafka_brokers is required for kafka bus")
	}

	if c.Bus.EventsPerSecond < 0 {
		errs = append(errs, "events_per_second must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
