package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "FRAUD"

// Load builds the effective configuration. Precedence, highest first: flags
// bound on v, FRAUD_* environment variables, the YAML file at path (if
// given), then Default(). A nil v gets a fresh viper instance.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// KAFKA_BROKER is what the older ingestion and enrichment services read.
	if err := v.BindEnv("kafka.brokers", EnvPrefix+"_KAFKA_BROKERS", "KAFKA_BROKER"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every field of d under its dotted key so that
// environment variables can override keys that appear in no file.
func setDefaults(v *viper.Viper, d *Config) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	walkDefaults(v, "", tree)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			walkDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Marshal renders cfg as YAML, the same shape Load reads.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
