package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"fraudstream/internal/detector"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()

	if cfg.Generator.TransactionsPerSecond != 10 {
		t.Errorf("Expected 10 transactions per second, got %v", cfg.Generator.TransactionsPerSecond)
	}
	if cfg.Generator.FraudFrequency != 10 {
		t.Errorf("Expected fraud frequency 10, got %v", cfg.Generator.FraudFrequency)
	}
	if cfg.Generator.QueueCapacity != 1000 {
		t.Errorf("Expected queue capacity 1000, got %d", cfg.Generator.QueueCapacity)
	}
	if cfg.Kafka.GroupID != "consumers" {
		t.Errorf("Expected group 'consumers', got '%s'", cfg.Kafka.GroupID)
	}
	if cfg.Kafka.OffsetReset != "earliest" {
		t.Errorf("Expected offset reset 'earliest', got '%s'", cfg.Kafka.OffsetReset)
	}
	if cfg.Kafka.TransactionsTopic != "transaction" || cfg.Kafka.AlertsTopic != "fraudulent-transaction" {
		t.Errorf("Unexpected topics %q / %q", cfg.Kafka.TransactionsTopic, cfg.Kafka.AlertsTopic)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Generator.QueueCapacity != 1000 {
		t.Errorf("Expected default queue capacity, got %d", cfg.Generator.QueueCapacity)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("Expected default broker, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	path := filepath.Join(tmpDir, "fraudstream.yaml")
	content := `
generator:
  transactions_per_second: 50
kafka:
  brokers:
    - kafka-broker-1:9092
    - kafka-broker-2:9092
detector:
  policy: all
  retention_seconds: 7200
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Generator.TransactionsPerSecond != 50 {
		t.Errorf("Expected 50 transactions per second, got %v", cfg.Generator.TransactionsPerSecond)
	}
	// Untouched keys keep their defaults.
	if cfg.Generator.FraudFrequency != 10 {
		t.Errorf("Expected default fraud frequency, got %v", cfg.Generator.FraudFrequency)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Expected 2 brokers, got %v", cfg.Kafka.Brokers)
	}

	dc := cfg.DetectorSettings()
	if dc.Policy != detector.AllMatches {
		t.Errorf("Expected policy all, got %q", dc.Policy)
	}
	if dc.Retention != 2*time.Hour {
		t.Errorf("Expected 2h retention, got %v", dc.Retention)
	}
	if dc.Thresholds.FrequencyWindow != 300*time.Second {
		t.Errorf("Expected 300s frequency window, got %v", dc.Thresholds.FrequencyWindow)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("FRAUD_GENERATOR_FRAUD_FREQUENCY", "4")
	t.Setenv("FRAUD_REDIS_ADDRS", "redis-1:6379,redis-2:6379")
	t.Setenv("KAFKA_BROKER", "broker:29092")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Generator.FraudFrequency != 4 {
		t.Errorf("Expected fraud frequency 4, got %v", cfg.Generator.FraudFrequency)
	}
	if len(cfg.Redis.Addrs) != 2 || cfg.Redis.Addrs[1] != "redis-2:6379" {
		t.Errorf("Expected two redis addrs, got %v", cfg.Redis.Addrs)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "broker:29092" {
		t.Errorf("Expected KAFKA_BROKER to set brokers, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero rate", func(c *Config) { c.Generator.TransactionsPerSecond = 0 }, "transactions_per_second"},
		{"negative frequency", func(c *Config) { c.Generator.FraudFrequency = -1 }, "fraud_frequency"},
		{"zero capacity", func(c *Config) { c.Generator.QueueCapacity = 0 }, "queue_capacity"},
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }, "brokers"},
		{"same topics", func(c *Config) { c.Kafka.AlertsTopic = c.Kafka.TransactionsTopic }, "must differ"},
		{"bad offset reset", func(c *Config) { c.Kafka.OffsetReset = "smallest" }, "offset_reset"},
		{"bad policy", func(c *Config) { c.Detector.Policy = "most" }, "alert policy"},
		{"negative retention", func(c *Config) { c.Detector.RetentionSeconds = -5 }, "retention_seconds"},
		{"rate below 1ns", func(c *Config) { c.Generator.TransactionsPerSecond = 2e9 }, "faster than 1ns"},
		{"zero frequency window", func(c *Config) { c.Detector.HighFrequencyWindowSeconds = 0 }, "high_frequency_window_seconds"},
		{"negative country window", func(c *Config) { c.Detector.DifferentCountryWindowSeconds = -1 }, "different_country_window_seconds"},
		{"zero multiplier", func(c *Config) { c.Detector.HighValueMultiplier = 0 }, "high_value_multiplier"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestMarshalRoundTripsThroughLoad(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Detector.Policy = "first-match"
	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), "fraud_frequency: 10") {
		t.Errorf("Expected snake_case keys in output, got:\n%s", data)
	}

	path := filepath.Join(t.TempDir(), "shown.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	loaded, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Detector.Policy != "first-match" {
		t.Errorf("Expected first-match, got %q", loaded.Detector.Policy)
	}
}
