package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-lake.
// Values come from an optional YAML file with environment variable overrides.
// Secrets must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	Log       LogConfig       `yaml:"log"`
	Engine    EngineConfig    `yaml:"engine"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Retry     RetryConfig     `yaml:"retry"`

	// DatasourcesFile lists the named storage connections.
	DatasourcesFile string `yaml:"datasources_file" env:"DATASOURCES_FILE" env-default:"datasources.yaml"`

	// Key for enc: values in the datasources file. A base64 32-byte key or
	// any passphrase. Generate with: openssl rand -base64 32
	ProjectCredentialsKey string `yaml:"-" env:"PROJECT_CREDENTIALS_KEY"` // Secret - not in YAML
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"` // "console" or "json"
}

// EngineConfig holds embedded DuckDB settings applied to every session.
type EngineConfig struct {
	ExtensionDirectory string `yaml:"extension_directory" env:"DUCKDB_EXTENSION_DIRECTORY" env-default:""`
	MemoryLimit        string `yaml:"memory_limit" env:"DUCKDB_MEMORY_LIMIT" env-default:""`
	Threads            int    `yaml:"threads" env:"DUCKDB_THREADS" env-default:"0"`
	// OfflineExtensions stops sessions downloading the httpfs and azure
	// extensions; they must already be in ExtensionDirectory.
	OfflineExtensions bool `yaml:"offline_extensions" env:"DUCKDB_OFFLINE_EXTENSIONS" env-default:"false"`
}

// DiscoveryConfig tunes listing, profiling and query limits.
type DiscoveryConfig struct {
	DefaultSampleLimit  int `yaml:"default_sample_limit" env:"DISCOVERY_DEFAULT_SAMPLE_LIMIT" env-default:"100"`
	MaxQueryRows        int `yaml:"max_query_rows" env:"DISCOVERY_MAX_QUERY_ROWS" env-default:"1000"`
	OverlapSampleSize   int `yaml:"overlap_sample_size" env:"DISCOVERY_OVERLAP_SAMPLE_SIZE" env-default:"1000"`
	PartitionProbeLimit int `yaml:"partition_probe_limit" env:"DISCOVERY_PARTITION_PROBE_LIMIT" env-default:"5"`
	ProbeConcurrency    int `yaml:"probe_concurrency" env:"DISCOVERY_PROBE_CONCURRENCY" env-default:"0"`
	StatsSampleValues   int `yaml:"stats_sample_values" env:"DISCOVERY_STATS_SAMPLE_VALUES" env-default:"10"`
}

// RetryConfig controls backoff around storage listing calls.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries" env:"RETRY_MAX_RETRIES" env-default:"3"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"RETRY_INITIAL_DELAY" env-default:"200ms"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"RETRY_MAX_DELAY" env-default:"5s"`
}

// maxRowLimit mirrors the hard cap enforced by every driver.
const maxRowLimit = 1000

// Load reads configuration from the YAML file at path with environment
// variable overrides. A missing file is not an error: defaults and the
// environment are used instead. The version is set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if path != "" && fileExists(path) {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}

	d := c.Discovery
	if d.DefaultSampleLimit <= 0 || d.DefaultSampleLimit > maxRowLimit {
		errs = append(errs, fmt.Errorf("discovery.default_sample_limit must be in 1..%d", maxRowLimit))
	}
	if d.MaxQueryRows <= 0 || d.MaxQueryRows > maxRowLimit {
		errs = append(errs, fmt.Errorf("discovery.max_query_rows must be in 1..%d", maxRowLimit))
	}
	if d.OverlapSampleSize <= 0 {
		errs = append(errs, errors.New("discovery.overlap_sample_size must be positive"))
	}
	if d.PartitionProbeLimit <= 0 {
		errs = append(errs, errors.New("discovery.partition_probe_limit must be positive"))
	}
	if d.ProbeConcurrency < 0 {
		errs = append(errs, errors.New("discovery.probe_concurrency must not be negative"))
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.max_retries must not be negative"))
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		errs = append(errs, errors.New("retry.max_delay must not be below retry.initial_delay"))
	}

	return errors.Join(errs...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
