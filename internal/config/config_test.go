package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("NEMA_EVAL_WORKERS", "9")
	os.Setenv("NEMA_LOG_LEVEL", "debug")
	os.Setenv("NEMA_CHORD_MODE", "strict")
	defer func() {
		os.Unsetenv("NEMA_EVAL_WORKERS")
		os.Unsetenv("NEMA_LOG_LEVEL")
		os.Unsetenv("NEMA_CHORD_MODE")
	}()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Eval.Workers != 9 {
		t.Errorf("Eval.Workers = %d, want 9", cfg.Eval.Workers)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}

	if cfg.Eval.ChordMode != "strict" {
		t.Errorf("Eval.ChordMode = %s, want strict", cfg.Eval.ChordMode)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
eval:
  workers: 2
  chord_mode: strict
log:
  level: warn
  format: json
store:
  type: sqlite
  path: /tmp/results.db
bus:
  type: memory
  events_per_second: 5
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Eval.Workers != 2 {
		t.Errorf("Eval.Workers = %d, want 2", cfg.Eval.Workers)
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
	}

	if cfg.Store.Type != "sqlite" || cfg.Store.Path != "/tmp/results.db" {
		t.Errorf("Store = %+v, want sqlite at /tmp/results.db", cfg.Store)
	}

	if cfg.Bus.EventsPerSecond != 5 {
		t.Errorf("Bus.EventsPerSecond = %v, want 5", cfg.Bus.EventsPerSecond)
	}

	// Untouched sections keep their defaults
	if cfg.Bus.TopicPrefix != "nema." {
		t.Errorf("Bus.TopicPrefix = %s, want nema.", cfg.Bus.TopicPrefix)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "zero workers",
			modify: func(c *Config) {
				c.Eval.Workers = 0
			},
			wantErr: true,
		},
		{
			name: "invalid chord mode",
			modify: func(c *Config) {
				c.Eval.ChordMode = "loose"
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid store type",
			modify: func(c *Config) {
				c.Store.Type = "postgres"
			},
			wantErr: true,
		},
		{
			name: "sqlite without path",
			modify: func(c *Config) {
				c.Store.Type = "sqlite"
				c.Store.Path = ""
			},
			wantErr: true,
		},
		{
			name: "file store without path",
			modify: func(c *Config) {
				c.Store.Type = "file"
				c.Store.Path = ""
			},
			wantErr: true,
		},
		{
			name: "file store",
			modify: func(c *Config) {
				c.Store.Type = "file"
			},
			wantErr: false,
		},
		{
			name: "kafka without brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
			},
			wantErr: true,
		},
		{
			name: "kafka with brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
				c.Bus.KafkaBrokers = "localhost:9092"
			},
			wantErr: false,
		},
		{
			name: "negative event rate",
			modify: func(c *Config) {
				c.Bus.EventsPerSecond = -1
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{}

	cfg.Log.Level = "debug"
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for debug level")
	}

	cfg.Log.Level = "info"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false for info level")
	}
}
