package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/vertextoedge/bulkfetch/internal/domain"
)

// Config represents the entire application configuration
type Config struct {
	URLs         []string           `mapstructure:"urls"`
	Download     DownloadConfig     `mapstructure:"download"`
	Retry        RetryConfig        `mapstructure:"retry"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Journal      JournalConfig      `mapstructure:"journal"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// DownloadConfig contains worker-pool and streaming settings
type DownloadConfig struct {
	Workers             int    `mapstructure:"workers"`
	TempDir             string `mapstructure:"temp_dir"`
	DownloadDir         string `mapstructure:"download_dir"`
	ChunkSizeKB         int    `mapstructure:"chunk_size_kb"`
	ProbeTimeout        string `mapstructure:"probe_timeout"`
	StreamTimeout       string `mapstructure:"stream_timeout"`
	RateLimitKBps       int    `mapstructure:"rate_limit_kbps"`
	ProgressLogInterval string `mapstructure:"progress_log_interval"`
}

// RetryConfig contains the bounded-retry policy for request failures
type RetryConfig struct {
	MaxRetries int    `mapstructure:"max_retries"`
	Delay      string `mapstructure:"delay"`
}

// ConnectivityConfig contains the network reachability probe settings
type ConnectivityConfig struct {
	ProbeURL     string `mapstructure:"probe_url"`
	Timeout      string `mapstructure:"timeout"`
	PollInterval string `mapstructure:"poll_interval"`
}

// JournalConfig contains transfer journal settings
type JournalConfig struct {
	// Path of the sqlite journal file. Empty disables the journal.
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from the specified file path
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// Set defaults
	viper.SetDefault("download.workers", 5)
	viper.SetDefault("download.temp_dir", "temp")
	viper.SetDefault("download.download_dir", "downloads")
	viper.SetDefault("download.chunk_size_kb", 8)
	viper.SetDefault("download.probe_timeout", "10s")
	viper.SetDefault("download.stream_timeout", "30s")
	viper.SetDefault("download.rate_limit_kbps", 0)
	viper.SetDefault("download.progress_log_interval", "1s")
	viper.SetDefault("retry.max_retries", 10)
	viper.SetDefault("retry.delay", "5s")
	viper.SetDefault("connectivity.probe_url", "https://www.google.com")
	viper.SetDefault("connectivity.timeout", "5s")
	viper.SetDefault("connectivity.poll_interval", "5s")
	viper.SetDefault("journal.path", "")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if len(c.URLs) == 0 {
		return domain.ErrNoTargets
	}
	if _, err := c.Targets(); err != nil {
		return err
	}
	if c.Download.Workers <= 0 {
		return fmt.Errorf("download.workers must be positive, got %d", c.Download.Workers)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Connectivity.ProbeURL == "" {
		return fmt.Errorf("connectivity.probe_url must not be empty")
	}
	return nil
}

// Targets derives the download targets from the configured URLs.
// Derived names must be unique: they double as local file names.
func (c *Config) Targets() ([]domain.Target, error) {
	targets := make([]domain.Target, 0, len(c.URLs))
	seen := make(map[string]string, len(c.URLs))

	for _, rawURL := range c.URLs {
		tgt, err := domain.NewTarget(rawURL)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[tgt.Name]; ok {
			return nil, fmt.Errorf("%w: %q from both %s and %s",
				domain.ErrDuplicateTarget, tgt.Name, other, tgt.URL)
		}
		seen[tgt.Name] = tgt.URL
		targets = append(targets, tgt)
	}

	return targets, nil
}

// GetChunkSize returns the streaming chunk size in bytes
func (c *DownloadConfig) GetChunkSize() int {
	if c.ChunkSizeKB <= 0 {
		return 8 * 1024
	}
	return c.ChunkSizeKB * 1024
}

// GetProbeTimeout returns the size probe timeout as time.Duration
func (c *DownloadConfig) GetProbeTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ProbeTimeout)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetStreamTimeout returns the streaming request timeout as time.Duration
func (c *DownloadConfig) GetStreamTimeout() time.Duration {
	d, _ := time.ParseDuration(c.StreamTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetProgressLogInterval returns the progress log throttle as time.Duration
func (c *DownloadConfig) GetProgressLogInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressLogInterval)
	if d == 0 {
		return time.Second
	}
	return d
}

// GetDelay returns the retry delay as time.Duration
func (c *RetryConfig) GetDelay() time.Duration {
	d, _ := time.ParseDuration(c.Delay)
	if d == 0 {
		return 5 * time.Second
	}
	return d
}

// GetTimeout returns the connectivity probe timeout as time.Duration
func (c *ConnectivityConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 5 * time.Second
	}
	return d
}

// GetPollInterval returns the connectivity poll interval as time.Duration
func (c *ConnectivityConfig) GetPollInterval() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	if d == 0 {
		return 5 * time.Second
	}
	return d
}
