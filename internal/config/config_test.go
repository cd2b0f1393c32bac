package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"PORT":                     "9090",
		"LOG_LEVEL":                "debug",
		"KAFKA_BROKERS":            "k1:9092, k2:9092,",
		"HEARTBEAT_INTERVAL":       "10s",
		"CAPTURE_ENABLED":          "false",
		"CAPTURE_REQUIRED_SAMPLES": "5",
		"ENROLLMENT_DISPLAY_DELAY": "0s",
	}))
	if err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if err := cfg.finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug level, got %v", cfg.LogLevel)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Presence.HeartbeatInterval != 10*time.Second {
		t.Errorf("Expected 10s heartbeat, got %v", cfg.Presence.HeartbeatInterval)
	}
	if cfg.Enrollment.CaptureEnabled {
		t.Error("Expected capture to be disabled")
	}
	if cfg.Enrollment.RequiredSamples != 5 {
		t.Errorf("Expected 5 samples, got %d", cfg.Enrollment.RequiredSamples)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Errorf("Expected memory driver without DATABASE_URL, got %s", cfg.StoreDriver)
	}
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad duration", env: map[string]string{"HEARTBEAT_INTERVAL": "soon"}},
		{name: "bad bool", env: map[string]string{"CAPTURE_ENABLED": "maybe"}},
		{name: "bad int", env: map[string]string{"CAPTURE_REQUIRED_SAMPLES": "three"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.applyEnv(envMap(tt.env)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		driver  string
	}{
		{name: "defaults to memory", mutate: func(c *Config) {}, driver: StoreDriverMemory},
		{name: "database url selects postgres", mutate: func(c *Config) { c.DatabaseURL = "postgres://x" }, driver: StoreDriverPostgres},
		{name: "postgres without url", mutate: func(c *Config) { c.StoreDriver = StoreDriverPostgres }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "firestore" }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevelRaw = "loud" }, wantErr: true},
		{name: "zero heartbeat", mutate: func(c *Config) { c.Presence.HeartbeatInterval = 0 }, wantErr: true},
		{name: "zero samples", mutate: func(c *Config) { c.Enrollment.RequiredSamples = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.finalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg.StoreDriver != tt.driver {
				t.Errorf("Expected driver %s, got %s", tt.driver, cfg.StoreDriver)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
port: "7070"
casdoor:
  endpoint: https://auth.example.com
  organization: recruitx
presence:
  heartbeat_interval: 15s
enrollment:
  required_samples: 4
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		t.Fatalf("loadFile failed: %v", err)
	}

	if cfg.Port != "7070" {
		t.Errorf("Expected port 7070, got %s", cfg.Port)
	}
	if cfg.Casdoor.Organization != "recruitx" {
		t.Errorf("Expected organization recruitx, got %s", cfg.Casdoor.Organization)
	}
	if cfg.Presence.HeartbeatInterval != 15*time.Second {
		t.Errorf("Expected 15s, got %v", cfg.Presence.HeartbeatInterval)
	}
	if cfg.Enrollment.RequiredSamples != 4 {
		t.Errorf("Expected 4 samples, got %d", cfg.Enrollment.RequiredSamples)
	}
	// Untouched keys keep their defaults
	if cfg.Enrollment.DisplayDelay != 2*time.Second {
		t.Errorf("Expected default display delay, got %v", cfg.Enrollment.DisplayDelay)
	}
}
