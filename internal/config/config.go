package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/couchcryptid/leit-etl/internal/domain"
)

const (
	maxBatchSize     = 1000
	maxRoundDecimals = 15
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaSourceTopic string        `env:"KAFKA_SOURCE_TOPIC" envDefault:"raw-temperature-readings"`
	KafkaSinkTopic   string        `env:"KAFKA_SINK_TOPIC" envDefault:"converted-temperature-readings"`
	KafkaGroupID     string        `env:"KAFKA_GROUP_ID" envDefault:"leit-etl"`
	HTTPAddr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	BatchSize          int           `env:"BATCH_SIZE" envDefault:"50"`
	BatchFlushInterval time.Duration `env:"BATCH_FLUSH_INTERVAL" envDefault:"500ms"`

	// Conversion settings.
	TargetScales           []string `env:"TARGET_SCALES" envDefault:"Kelvin,Celsius,Fahrenheit,LeitV1,LeitV2,LeitV3" envSeparator:","`
	RoundDecimals          int      `env:"ROUND_DECIMALS" envDefault:"-1"`
	AllowBelowAbsoluteZero bool     `env:"ALLOW_BELOW_ABSOLUTE_ZERO" envDefault:"false"`
	CustomScalesJSON       string   `env:"CUSTOM_SCALES"`

	customScales []domain.ScaleDefinition
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.KafkaBrokers = trimAll(cfg.KafkaBrokers)
	cfg.TargetScales = trimAll(cfg.TargetScales)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.CustomScalesJSON) != "" {
		if err := json.Unmarshal([]byte(cfg.CustomScalesJSON), &cfg.customScales); err != nil {
			return nil, fmt.Errorf("invalid CUSTOM_SCALES: %w", err)
		}
	}

	// Fail fast on scales that cannot be built or collide with the predefined ones.
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("invalid CUSTOM_SCALES: %w", err)
	}
	if _, err := reg.ResolveAll(cfg.TargetScales); err != nil {
		return nil, fmt.Errorf("invalid TARGET_SCALES: %w", err)
	}

	return &cfg, nil
}

// CustomScales returns the scale definitions decoded from CUSTOM_SCALES.
func (c *Config) CustomScales() []domain.ScaleDefinition {
	return c.customScales
}

// Registry returns the default scale registry extended with the custom scales.
func (c *Config) Registry() (*domain.Registry, error) {
	return domain.DefaultRegistry().Extend(c.customScales...)
}

// Policy returns the reading acceptance policy described by the config.
func (c *Config) Policy() domain.Policy {
	return domain.Policy{
		AllowBelowAbsoluteZero: c.AllowBelowAbsoluteZero,
		Decimals:               c.RoundDecimals,
	}
}

func (c *Config) validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required")
	}
	if c.KafkaSourceTopic == c.KafkaSinkTopic {
		return errors.New("KAFKA_SINK_TOPIC must differ from KAFKA_SOURCE_TOPIC")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid SHUTDOWN_TIMEOUT: must be positive")
	}
	if c.BatchSize < 1 || c.BatchSize > maxBatchSize {
		return fmt.Errorf("invalid BATCH_SIZE: must be between 1 and %d", maxBatchSize)
	}
	if c.BatchFlushInterval <= 0 {
		return errors.New("invalid BATCH_FLUSH_INTERVAL: must be positive")
	}
	if len(c.TargetScales) == 0 {
		return errors.New("TARGET_SCALES is required")
	}
	if c.RoundDecimals > maxRoundDecimals {
		return fmt.Errorf("invalid ROUND_DECIMALS: must be at most %d", maxRoundDecimals)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return errors.New("invalid LOG_FORMAT: must be json or text")
	}
	return nil
}

// trimAll trims each element and drops empty ones.
func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
