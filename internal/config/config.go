// Package config holds the settings shared by every fraudstream command.
package config

import (
	"errors"
	"fmt"
	"time"

	"fraudstream/internal/detector"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Kafka     KafkaConfig     `yaml:"kafka" mapstructure:"kafka"`
	Detector  DetectorConfig  `yaml:"detector" mapstructure:"detector"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres" mapstructure:"postgres"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Verbose   bool            `yaml:"verbose" mapstructure:"verbose"`
}

type GeneratorConfig struct {
	// TransactionsPerSecond is the valid-traffic rate.
	TransactionsPerSecond float64 `yaml:"transactions_per_second" mapstructure:"transactions_per_second"`
	// FraudFrequency divides the fraud rate: patterns are spaced (1/R)*F apart.
	FraudFrequency float64 `yaml:"fraud_frequency" mapstructure:"fraud_frequency"`
	QueueCapacity  int     `yaml:"queue_capacity" mapstructure:"queue_capacity"`
	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64 `yaml:"seed" mapstructure:"seed"`
}

type KafkaConfig struct {
	Brokers           []string `yaml:"brokers" mapstructure:"brokers"`
	TransactionsTopic string   `yaml:"transactions_topic" mapstructure:"transactions_topic"`
	AlertsTopic       string   `yaml:"alerts_topic" mapstructure:"alerts_topic"`
	GroupID           string   `yaml:"group_id" mapstructure:"group_id"`
	ArchiveGroupID    string   `yaml:"archive_group_id" mapstructure:"archive_group_id"`
	OffsetReset       string   `yaml:"offset_reset" mapstructure:"offset_reset"`
	Codec             string   `yaml:"codec" mapstructure:"codec"`
	LingerMs          int      `yaml:"linger_ms" mapstructure:"linger_ms"`
	BatchSize         int      `yaml:"batch_size" mapstructure:"batch_size"`
	Compression       string   `yaml:"compression" mapstructure:"compression"`
	Retries           int      `yaml:"retries" mapstructure:"retries"`
}

type DetectorConfig struct {
	Policy                        string  `yaml:"policy" mapstructure:"policy"`
	RetentionSeconds              int64   `yaml:"retention_seconds" mapstructure:"retention_seconds"`
	HighFrequencyWindowSeconds    int64   `yaml:"high_frequency_window_seconds" mapstructure:"high_frequency_window_seconds"`
	DifferentCountryWindowSeconds int64   `yaml:"different_country_window_seconds" mapstructure:"different_country_window_seconds"`
	HighValueMultiplier           float64 `yaml:"high_value_multiplier" mapstructure:"high_value_multiplier"`
}

type RedisConfig struct {
	// Addrs enables redelivery dedup when non-empty. More than one address
	// means a cluster.
	Addrs      []string `yaml:"addrs" mapstructure:"addrs"`
	Prefix     string   `yaml:"prefix" mapstructure:"prefix"`
	TTLSeconds int64    `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
}

type PostgresConfig struct {
	DSN             string `yaml:"dsn" mapstructure:"dsn"`
	BatchSize       int    `yaml:"batch_size" mapstructure:"batch_size"`
	FlushIntervalMs int    `yaml:"flush_interval_ms" mapstructure:"flush_interval_ms"`
}

type ServerConfig struct {
	OpsAddr  string `yaml:"ops_addr" mapstructure:"ops_addr"`
	GRPCAddr string `yaml:"grpc_addr" mapstructure:"grpc_addr"`
}

func Default() *Config {
	return &Config{
		Generator: GeneratorConfig{
			TransactionsPerSecond: 10,
			FraudFrequency:        10,
			QueueCapacity:         1000,
		},
		Kafka: KafkaConfig{
			Brokers:           []string{"localhost:9092"},
			TransactionsTopic: "transaction",
			AlertsTopic:       "fraudulent-transaction",
			GroupID:           "consumers",
			ArchiveGroupID:    "fraud-archive",
			OffsetReset:       "earliest",
			Codec:             "json",
			LingerMs:          1000,
			BatchSize:         16384,
			Compression:       "gzip",
			Retries:           3,
		},
		Detector: DetectorConfig{
			Policy:                        string(detector.LastMatch),
			HighFrequencyWindowSeconds:    300,
			DifferentCountryWindowSeconds: 7200,
			HighValueMultiplier:           2,
		},
		Redis: RedisConfig{
			Prefix:     "fraudstream:",
			TTLSeconds: 7200,
		},
		Postgres: PostgresConfig{
			BatchSize:       100,
			FlushIntervalMs: 2000,
		},
		Server: ServerConfig{
			OpsAddr:  ":9100",
			GRPCAddr: ":50051",
		},
	}
}

func (c *Config) Validate() error {
	var problems []error
	if c.Generator.TransactionsPerSecond <= 0 {
		problems = append(problems, fmt.Errorf("generator.transactions_per_second must be positive, got %v", c.Generator.TransactionsPerSecond))
	}
	if c.Generator.FraudFrequency <= 0 {
		problems = append(problems, fmt.Errorf("generator.fraud_frequency must be positive, got %v", c.Generator.FraudFrequency))
	}
	if r, f := c.Generator.TransactionsPerSecond, c.Generator.FraudFrequency; r > 0 && f > 0 &&
		(float64(time.Second)/r < 1 || float64(time.Second)/r*f < 1) {
		problems = append(problems, fmt.Errorf("generator.transactions_per_second %v with fraud_frequency %v is faster than 1ns per transaction", r, f))
	}
	if c.Generator.QueueCapacity <= 0 {
		problems = append(problems, fmt.Errorf("generator.queue_capacity must be positive, got %d", c.Generator.QueueCapacity))
	}
	if len(c.Kafka.Brokers) == 0 {
		problems = append(problems, errors.New("kafka.brokers is empty"))
	}
	if c.Kafka.TransactionsTopic == "" || c.Kafka.AlertsTopic == "" {
		problems = append(problems, errors.New("kafka topics must be set"))
	}
	if c.Kafka.TransactionsTopic == c.Kafka.AlertsTopic {
		problems = append(problems, errors.New("kafka.transactions_topic and kafka.alerts_topic must differ"))
	}
	switch c.Kafka.OffsetReset {
	case "earliest", "latest":
	default:
		problems = append(problems, fmt.Errorf("kafka.offset_reset must be earliest or latest, got %q", c.Kafka.OffsetReset))
	}
	if _, err := detector.ParsePolicy(c.Detector.Policy); err != nil {
		problems = append(problems, err)
	}
	if c.Detector.HighFrequencyWindowSeconds <= 0 {
		problems = append(problems, fmt.Errorf("detector.high_frequency_window_seconds must be positive, got %d", c.Detector.HighFrequencyWindowSeconds))
	}
	if c.Detector.DifferentCountryWindowSeconds <= 0 {
		problems = append(problems, fmt.Errorf("detector.different_country_window_seconds must be positive, got %d", c.Detector.DifferentCountryWindowSeconds))
	}
	if c.Detector.HighValueMultiplier <= 0 {
		problems = append(problems, fmt.Errorf("detector.high_value_multiplier must be positive, got %v", c.Detector.HighValueMultiplier))
	}
	if c.Detector.RetentionSeconds < 0 {
		problems = append(problems, errors.New("detector.retention_seconds must not be negative"))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(problems...))
	}
	return nil
}

// DetectorSettings converts the detector section into a detector.Config.
// Validate must have passed.
func (c *Config) DetectorSettings() detector.Config {
	policy, _ := detector.ParsePolicy(c.Detector.Policy)
	return detector.Config{
		Thresholds: detector.Thresholds{
			FrequencyWindow: time.Duration(c.Detector.HighFrequencyWindowSeconds) * time.Second,
			CountryWindow:   time.Duration(c.Detector.DifferentCountryWindowSeconds) * time.Second,
			ValueMultiplier: c.Detector.HighValueMultiplier,
		},
		Policy:    policy,
		Retention: time.Duration(c.Detector.RetentionSeconds) * time.Second,
	}
}
