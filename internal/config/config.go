package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Models lists the enabled model keys, in display order.
	Models        []string
	GFSBucketURL  string
	HRRRBucketURL string

	FetchTimeout    time.Duration
	IndexCacheSize  int
	RunPollInterval time.Duration

	DecoderCmd     string
	DecoderTimeout time.Duration

	CORSAllowedOrigins []string

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	DatabaseURL string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("RUN_POLL_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	decoderTimeout, err := parseDuration("DECODER_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("INDEX_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	_, brokersSet := os.LookupEnv("KAFKA_BROKERS")
	kafkaEnabled := brokersSet
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Models:        splitList(sharedcfg.EnvOrDefault("MODELS", "gfs-0p25,hrrr")),
		GFSBucketURL:  strings.TrimRight(sharedcfg.EnvOrDefault("GFS_BUCKET_URL", domain.DefaultGFSBucketURL), "/"),
		HRRRBucketURL: strings.TrimRight(sharedcfg.EnvOrDefault("HRRR_BUCKET_URL", domain.DefaultHRRRBucketURL), "/"),

		FetchTimeout:    fetchTimeout,
		IndexCacheSize:  cacheSize,
		RunPollInterval: pollInterval,

		DecoderCmd:     sharedcfg.EnvOrDefault("DECODER_CMD", "g2decode"),
		DecoderTimeout: decoderTimeout,

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "forecast-grid-events"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	if len(cfg.Models) == 0 {
		return nil, errors.New("MODELS is required")
	}
	for _, key := range cfg.Models {
		if _, err := domain.LookupModel(key); err != nil {
			return nil, fmt.Errorf("invalid MODELS: %w", err)
		}
	}
	if cfg.DecoderCmd == "" {
		return nil, errors.New("DECODER_CMD is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

// EnabledModels resolves Models against the catalog and applies the bucket overrides.
func (c *Config) EnabledModels() []domain.Model {
	models := make([]domain.Model, 0, len(c.Models))
	for _, key := range c.Models {
		m, err := domain.LookupModel(key)
		if err != nil {
			continue
		}
		switch m.Family {
		case domain.FamilyHRRR:
			m.BucketURL = c.HRRRBucketURL
		default:
			m.BucketURL = c.GFSBucketURL
		}
		models = append(models, m)
	}
	return models
}

func parseDuration(name, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parsePositiveInt(name string, fallback int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", name)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
