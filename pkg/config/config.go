package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a scrape run
type Config struct {
	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Feed expansion settings
	Feed FeedConfig `yaml:"feed" json:"feed"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds settings for the driven browser session
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
}

// FeedConfig controls the scroll/expand convergence loop
type FeedConfig struct {
	MaxScrollRounds    int           `yaml:"max_scroll_rounds" json:"max_scroll_rounds"`
	SettleInterval     time.Duration `yaml:"settle_interval" json:"settle_interval"`
	StabilityThreshold int           `yaml:"stability_threshold" json:"stability_threshold"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	RequestTimeout      time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	InterDownloadDelay  time.Duration `yaml:"inter_download_delay" json:"inter_download_delay"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          false,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavigationTimeout: 30 * time.Second,
		},
		Feed: FeedConfig{
			MaxScrollRounds:    50,
			SettleInterval:     2 * time.Second,
			StabilityThreshold: 3,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			RequestTimeout:      10 * time.Second,
			RetryAttempts:       3,
			InterDownloadDelay:  100 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
		},
		Output: OutputConfig{
			Directory: "./yandex_images",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if outputDir := os.Getenv("YXSCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if userAgent := os.Getenv("YXSCRAPER_USER_AGENT"); userAgent != "" {
		c.Browser.UserAgent = userAgent
	}
	if headless := os.Getenv("YXSCRAPER_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) == "true"
	}
	if maxScrolls := os.Getenv("YXSCRAPER_MAX_SCROLLS"); maxScrolls != "" {
		var val int
		fmt.Sscanf(maxScrolls, "%d", &val)
		if val > 0 {
			c.Feed.MaxScrollRounds = val
		}
	}
	if concurrent := os.Getenv("YXSCRAPER_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if rpm := os.Getenv("YXSCRAPER_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if logLevel := os.Getenv("YXSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".yxscraper.yaml",
		".yxscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "yxscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "yxscraper", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".yxscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Feed.MaxScrollRounds <= 0 {
		errs = append(errs, errors.New("max scroll rounds must be positive"))
	}
	if c.Feed.StabilityThreshold <= 0 {
		errs = append(errs, errors.New("stability threshold must be positive"))
	}
	if c.Feed.SettleInterval <= 0 {
		errs = append(errs, errors.New("settle interval must be positive"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Download.RetryAttempts < 0 {
		errs = append(errs, errors.New("retry attempts cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Browser.UserAgent == "" {
		errs = append(errs, errors.New("browser user agent is required"))
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if maxScrolls, ok := flags["max-scrolls"].(int); ok && maxScrolls > 0 {
		c.Feed.MaxScrollRounds = maxScrolls
	}
	if settle, ok := flags["settle-interval"].(time.Duration); ok && settle > 0 {
		c.Feed.SettleInterval = settle
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if timeout, ok := flags["request-timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.RequestTimeout = timeout
	}
	if delay, ok := flags["download-delay"].(time.Duration); ok && delay >= 0 {
		c.Download.InterDownloadDelay = delay
	}
	if retries, ok := flags["max-retries"].(int); ok && retries >= 0 {
		c.Download.RetryAttempts = retries
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".yxscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
