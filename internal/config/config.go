package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service settings. Values come from defaults, an optional
// config file, and SIGHTINGS_-prefixed environment variables, in increasing
// precedence.
type Config struct {
	// Reference data.
	SpeciesFile    string  `mapstructure:"species_file"`
	LocationsFile  string  `mapstructure:"locations_file"`
	SynonymsFile   string  `mapstructure:"synonyms_file"`
	MatchThreshold float64 `mapstructure:"match_threshold"`

	// Page input and output.
	PagesDir  string `mapstructure:"pages_dir"`
	OutputDir string `mapstructure:"output_dir"`
	Workers   int    `mapstructure:"workers"`

	// Extraction rule overrides. Empty slices keep the built-in rules.
	DateHeaderPatterns []string `mapstructure:"date_header_patterns"`
	DropPatterns       []string `mapstructure:"drop_patterns"`
	RequirePatterns    []string `mapstructure:"require_patterns"`

	// Harvester.
	SiteRootURL   string        `mapstructure:"site_root_url"`
	SiteIndexPage string        `mapstructure:"site_index_page"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	PageCacheSize int           `mapstructure:"page_cache_size"`

	// Optional Kafka publishing of built records.
	KafkaEnabled bool     `mapstructure:"kafka_enabled"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	// Operational surface.
	HTTPAddr        string        `mapstructure:"http_addr"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Load reads configuration from defaults, the optional file at path, and the
// environment, then validates it. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("species_file", "data/species.csv")
	v.SetDefault("locations_file", "data/locations.csv")
	v.SetDefault("synonyms_file", "")
	v.SetDefault("match_threshold", 0.8)

	v.SetDefault("pages_dir", "data/pages")
	v.SetDefault("output_dir", "data/out")
	v.SetDefault("workers", 4)

	v.SetDefault("site_root_url", "https://www.deeestuary.co.uk/")
	v.SetDefault("site_index_page", "lsarch.htm")
	v.SetDefault("fetch_timeout", "10s")
	v.SetDefault("page_cache_size", 200)

	v.SetDefault("kafka_enabled", false)
	v.SetDefault("kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("kafka_topic", "bird-sightings")

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "10s")

	v.SetEnvPrefix("SIGHTINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.SpeciesFile) == "" {
		return errors.New("species_file is required")
	}
	if strings.TrimSpace(c.LocationsFile) == "" {
		return errors.New("locations_file is required")
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold %g outside (0, 1]", c.MatchThreshold)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch_timeout must be positive")
	}
	if c.PageCacheSize < 1 {
		return fmt.Errorf("page_cache_size must be at least 1, got %d", c.PageCacheSize)
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("kafka_enabled is true but kafka_brokers is empty")
		}
		if c.KafkaTopic == "" {
			return errors.New("kafka_enabled is true but kafka_topic is not set")
		}
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	return nil
}
