package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`
	Download DownloadConfig `json:"download" mapstructure:"download"`
	Matcher  MatcherConfig  `json:"matcher" mapstructure:"matcher"`
	Store    StoreConfig    `json:"store" mapstructure:"store"`
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// ProviderConfig contains catalog provider (Xtream) settings
type ProviderConfig struct {
	BaseURL   string `json:"base_url" mapstructure:"base_url"`
	Username  string `json:"username" mapstructure:"username"`
	Password  string `json:"password" mapstructure:"password"`
	UserAgent string `json:"user_agent" mapstructure:"user_agent"`
	Timeout   int    `json:"timeout" mapstructure:"timeout"` // seconds, metadata requests only
}

// DownloadConfig contains download-related settings
type DownloadConfig struct {
	OutputDir         string `json:"output_dir" mapstructure:"output_dir"`
	MinFileSizeMB     int    `json:"min_file_size_mb" mapstructure:"min_file_size_mb"`
	BandwidthLimit    int    `json:"bandwidth_limit" mapstructure:"bandwidth_limit"` // bytes/sec, 0 = unlimited
	ErrorCooldownSecs int    `json:"error_cooldown_seconds" mapstructure:"error_cooldown_seconds"`
	CompleteHoldSecs  int    `json:"complete_hold_seconds" mapstructure:"complete_hold_seconds"`
}

// MatcherConfig contains directory scan matching settings
type MatcherConfig struct {
	// LengthTolerance is the maximum allowed name length difference for a
	// movie match, as a fraction of the longer name (0 < t <= 1).
	LengthTolerance float64 `json:"length_tolerance" mapstructure:"length_tolerance"`
}

// StoreConfig contains download record store settings
type StoreConfig struct {
	FilePath string `json:"file_path" mapstructure:"file_path"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	Format     string `json:"format" mapstructure:"format"`
	Output     string `json:"output" mapstructure:"output"`
	FilePath   string `json:"file_path" mapstructure:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// Load loads configuration from file or creates default
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Determine config path
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	// Set config file
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	// Ensure config directory exists
	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create with defaults
			if err := v.WriteConfigAs(configPath); err != nil {
				return nil, fmt.Errorf("failed to write default config: %w", err)
			}
		} else if os.IsNotExist(err) {
			if err := v.WriteConfigAs(configPath); err != nil {
				return nil, fmt.Errorf("failed to write default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Allow environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("VODDL")

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Provider validation
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider base URL cannot be empty")
	}

	if c.Provider.Timeout < 1 {
		return fmt.Errorf("provider timeout must be at least 1 second")
	}

	// Download validation
	if c.Download.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	if c.Download.MinFileSizeMB < 0 {
		return fmt.Errorf("minimum file size cannot be negative")
	}

	if c.Download.BandwidthLimit < 0 {
		return fmt.Errorf("bandwidth limit cannot be negative")
	}

	if c.Download.ErrorCooldownSecs < 0 {
		return fmt.Errorf("error cooldown cannot be negative")
	}

	// Matcher validation
	if c.Matcher.LengthTolerance <= 0 || c.Matcher.LengthTolerance > 1 {
		return fmt.Errorf("matcher length tolerance must be in (0, 1]")
	}

	// Store validation
	if c.Store.FilePath == "" {
		return fmt.Errorf("store file path cannot be empty")
	}

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logging.Format)
	}

	validOutputs := map[string]bool{"file": true, "console": true, "both": true}
	if !validOutputs[c.Logging.Output] {
		return fmt.Errorf("invalid log output: %s (must be file, console, or both)", c.Logging.Output)
	}

	if c.Logging.MaxSizeMB < 1 {
		return fmt.Errorf("log max size must be at least 1 MB")
	}

	if c.Logging.MaxBackups < 0 {
		return fmt.Errorf("log max backups cannot be negative")
	}

	if c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("log max age cannot be negative")
	}

	return nil
}

// Save saves the configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.Set("provider", c.Provider)
	v.Set("download", c.Download)
	v.Set("matcher", c.Matcher)
	v.Set("store", c.Store)
	v.Set("server", c.Server)
	v.Set("logging", c.Logging)

	return v.WriteConfig()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("provider.base_url", "http://provider-url.com:8080")
	v.SetDefault("provider.username", "username")
	v.SetDefault("provider.password", "password")
	v.SetDefault("provider.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("provider.timeout", 15)

	// Download defaults
	v.SetDefault("download.output_dir", "/downloads")
	v.SetDefault("download.min_file_size_mb", 1)
	v.SetDefault("download.bandwidth_limit", 0)
	v.SetDefault("download.error_cooldown_seconds", 3)
	v.SetDefault("download.complete_hold_seconds", 2)

	// Matcher defaults
	v.SetDefault("matcher.length_tolerance", 0.5)

	// Store defaults
	v.SetDefault("store.file_path", filepath.Join(GetDataDir(), "downloads.json"))

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "both")
	v.SetDefault("logging.file_path", filepath.Join(GetDataDir(), "logs", "app.log"))
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

// getDefaultConfigPath returns the default configuration file path
func getDefaultConfigPath() string {
	return filepath.Join(GetDataDir(), "settings.json")
}

// ensureConfigDir ensures the configuration directory exists
func ensureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

// GetDataDir returns the application data directory
func GetDataDir() string {
	if dir := os.Getenv("VODDL_DATA_DIR"); dir != "" {
		return dir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".vod-downloader")
}

// Reload reloads the configuration from file
func (c *Config) Reload(configPath string) error {
	newConfig, err := Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	*c = *newConfig
	return nil
}
