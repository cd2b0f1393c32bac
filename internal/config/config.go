package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// CasdoorConfig holds the Casdoor application credentials
type CasdoorConfig struct {
	Endpoint     string `yaml:"endpoint"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Cert         string `yaml:"cert"`
	Organization string `yaml:"organization"`
	Application  string `yaml:"application"`
}

// KafkaConfig holds the domain event publisher settings
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// PresenceConfig holds heartbeat timing
type PresenceConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// EnrollmentConfig holds capture and completion timing
type EnrollmentConfig struct {
	CaptureEnabled        bool          `yaml:"capture_enabled"`
	CaptureSampleInterval time.Duration `yaml:"capture_sample_interval"`
	RequiredSamples       int           `yaml:"required_samples"`
	DisplayDelay          time.Duration `yaml:"display_delay"`
}

type Config struct {
	Port        string     `yaml:"port"`
	Environment string     `yaml:"environment"`
	LogLevel    slog.Level `yaml:"-"`
	LogLevelRaw string     `yaml:"log_level"`

	StoreDriver string `yaml:"store_driver"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	Casdoor    CasdoorConfig    `yaml:"casdoor"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Presence   PresenceConfig   `yaml:"presence"`
	Enrollment EnrollmentConfig `yaml:"enrollment"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Port:        "8080",
		Environment: "development",
		LogLevel:    slog.LevelInfo,
		LogLevelRaw: "info",
		Kafka: KafkaConfig{
			Topic: "recruitx.activity",
		},
		Presence: PresenceConfig{
			HeartbeatInterval: 30 * time.Second,
		},
		Enrollment: EnrollmentConfig{
			CaptureEnabled:        true,
			CaptureSampleInterval: 500 * time.Millisecond,
			RequiredSamples:       3,
			DisplayDelay:          2 * time.Second,
		},
	}
}

// LoadConfig reads .env (outside production), an optional YAML file named by
// CONFIG_FILE, and finally the process environment. Later sources win.
func LoadConfig() (*Config, error) {
	if os.Getenv("ENVIRONMENT") != "production" {
		// A missing .env is normal in containers
		_ = godotenv.Load()
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString("PORT", &c.Port)
	setString("ENVIRONMENT", &c.Environment)
	setString("LOG_LEVEL", &c.LogLevelRaw)
	setString("STORE_DRIVER", &c.StoreDriver)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("REDIS_URL", &c.RedisURL)
	setString("KAFKA_TOPIC", &c.Kafka.Topic)

	setString("CASDOOR_ENDPOINT", &c.Casdoor.Endpoint)
	setString("CASDOOR_CLIENT_ID", &c.Casdoor.ClientID)
	setString("CASDOOR_CLIENT_SECRET", &c.Casdoor.ClientSecret)
	setString("CASDOOR_CERT", &c.Casdoor.Cert)
	setString("CASDOOR_ORGANIZATION", &c.Casdoor.Organization)
	setString("CASDOOR_APPLICATION", &c.Casdoor.Application)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HEARTBEAT_INTERVAL", &c.Presence.HeartbeatInterval},
		{"CAPTURE_SAMPLE_INTERVAL", &c.Enrollment.CaptureSampleInterval},
		{"ENROLLMENT_DISPLAY_DELAY", &c.Enrollment.DisplayDelay},
	}
	for _, d := range durations {
		v := getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v := getenv("CAPTURE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CAPTURE_ENABLED: %w", err)
		}
		c.Enrollment.CaptureEnabled = enabled
	}

	if v := getenv("CAPTURE_REQUIRED_SAMPLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CAPTURE_REQUIRED_SAMPLES: %w", err)
		}
		c.Enrollment.RequiredSamples = n
	}

	return nil
}

func (c *Config) finalize() error {
	level, err := parseLogLevel(c.LogLevelRaw)
	if err != nil {
		return err
	}
	c.LogLevel = level

	if c.StoreDriver == "" {
		if c.DatabaseURL != "" {
			c.StoreDriver = StoreDriverPostgres
		} else {
			c.StoreDriver = StoreDriverMemory
		}
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if c.Presence.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if c.Enrollment.RequiredSamples < 1 {
		return fmt.Errorf("required capture samples must be at least 1")
	}

	return nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if raw == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
	}
	return level, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
