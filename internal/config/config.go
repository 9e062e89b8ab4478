package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultBreweriesBaseURL is the Open Brewery DB list endpoint.
const DefaultBreweriesBaseURL = "https://api.openbrewerydb.org/v1/breweries"

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName                string        `mapstructure:"app_name"`
	Env                    string        `mapstructure:"app_env"`
	LogLevel               string        `mapstructure:"log_level"`
	BreweriesBaseURL       string        `mapstructure:"breweries_base_url"`
	UserAgent              string        `mapstructure:"user_agent"`
	StatesRaw              string        `mapstructure:"states"`
	States                 []string      `mapstructure:"-"`
	HTTPTimeoutSeconds     int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout            time.Duration `mapstructure:"-"`
	PublishersFile         string        `mapstructure:"publishers_file"`
	HarvestIntervalSeconds int64         `mapstructure:"harvest_interval"`
	HarvestInterval        time.Duration `mapstructure:"-"`
	RetryMaxElapsedSeconds int64         `mapstructure:"retry_max_elapsed_seconds"`
	RetryMaxElapsed        time.Duration `mapstructure:"-"`
	MetricsAddr            string        `mapstructure:"metrics_addr"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "brewery-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("breweries_base_url", DefaultBreweriesBaseURL)
	v.SetDefault("user_agent", "brewery-harvester/1.0")
	v.SetDefault("states", "texas,colorado")
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("harvest_interval", 900) // seconds
	v.SetDefault("retry_max_elapsed_seconds", 60)
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/breweries.db")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize validates raw values and derives durations and the state list.
func (cfg *Config) normalize() error {
	cfg.BreweriesBaseURL = strings.TrimSpace(cfg.BreweriesBaseURL)
	if cfg.BreweriesBaseURL == "" {
		return fmt.Errorf("breweries_base_url is required")
	}

	cfg.States = ParseStates(cfg.StatesRaw)
	if len(cfg.States) == 0 {
		return fmt.Errorf("states must list at least one state")
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.HarvestIntervalSeconds <= 0 {
		return fmt.Errorf("invalid harvest_interval (must be positive seconds)")
	}
	cfg.HarvestInterval = time.Duration(cfg.HarvestIntervalSeconds) * time.Second

	switch addr := strings.TrimSpace(cfg.MetricsAddr); strings.ToLower(addr) {
	case "off", "none", "disabled":
		cfg.MetricsAddr = ""
	default:
		cfg.MetricsAddr = addr
	}

	if cfg.RetryMaxElapsedSeconds < 0 {
		return fmt.Errorf("invalid retry_max_elapsed_seconds (must not be negative)")
	}
	cfg.RetryMaxElapsed = time.Duration(cfg.RetryMaxElapsedSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}

// ParseStates splits a comma-separated list, dropping blanks and case-insensitive duplicates.
func ParseStates(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		state := strings.TrimSpace(part)
		if state == "" {
			continue
		}
		key := strings.ToLower(state)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, state)
	}
	return out
}
