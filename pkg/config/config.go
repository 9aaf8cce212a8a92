package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the service configuration. Values come from the defaults, then
// the YAML file, then environment variables.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
	GitHub  GitHubConfig  `yaml:"github"`
	Release ReleaseConfig `yaml:"release"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig configures the public HTTP listener
type ServerConfig struct {
	Port      string `yaml:"port" env:"PORT" validate:"required,numeric"`
	PublicURL string `yaml:"public_url" env:"PUBLIC_URL" validate:"omitempty,url"`
}

// MetricsConfig configures the Prometheus listener
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Port    string `yaml:"port" env:"METRICS_PORT" validate:"required_if=Enabled true,omitempty,numeric"`
}

// GitHubConfig identifies the repository whose releases are advertised
type GitHubConfig struct {
	Owner   string        `yaml:"owner" env:"GITHUB_OWNER" validate:"required"`
	Repo    string        `yaml:"repo" env:"GITHUB_REPO" validate:"required"`
	PerPage int           `yaml:"per_page" env:"GITHUB_PER_PAGE" validate:"min=1,max=100"`
	BaseURL string        `yaml:"base_url" env:"GITHUB_BASE_URL" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" env:"GITHUB_TIMEOUT" validate:"min=0"`
	// Token is sent as a bearer credential. It is not required: a missing
	// token surfaces as an upstream 401.
	Token string `yaml:"token" env:"GITHUB_TOKEN"`
}

// ReleaseConfig holds the refresh and selection policy
type ReleaseConfig struct {
	CheckInterval   time.Duration `yaml:"check_interval" env:"RELEASE_CHECK_INTERVAL" validate:"gt=0"`
	RecencyInterval time.Duration `yaml:"recency_interval" env:"RELEASE_RECENCY_INTERVAL" validate:"min=0"`
	UrgentMarker    string        `yaml:"urgent_marker" env:"RELEASE_URGENT_MARKER" validate:"required"`
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=json console"`
}

// CacheConfig configures on-disk state. Empty paths keep everything in memory.
type CacheConfig struct {
	FilePath       string `yaml:"file_path" env:"RELEASE_CACHE_FILE_PATH"`
	InstanceIDPath string `yaml:"instance_id_path" env:"INSTANCE_ID_PATH"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    "9091",
		},
		GitHub: GitHubConfig{
			Owner:   "jwoglom",
			Repo:    "controlX2",
			PerPage: 5,
			Timeout: 30 * time.Second,
		},
		Release: ReleaseConfig{
			CheckInterval:   time.Hour,
			RecencyInterval: 12 * time.Hour,
			UrgentMarker:    "[URGENT]",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and the process environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
