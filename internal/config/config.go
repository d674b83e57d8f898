package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/dl-alexandre/phonesync/internal/utils"
	"github.com/dustin/go-humanize"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// ProfilesFileName is the default name of the profile store
	ProfilesFileName = "profiles.json"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "PHONESYNC_"
)

// Config holds application configuration
type Config struct {
	// DefaultProfile is used when --profile is not given
	DefaultProfile string `json:"defaultProfile"`

	// DefaultOutputFormat is the default output format (json, table)
	DefaultOutputFormat types.OutputFormat `json:"defaultOutputFormat"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `json:"logLevel"`

	// ConnectTimeout is the FTP dial and I/O timeout in seconds
	ConnectTimeout int `json:"connectTimeout"`

	// MaxRetries is the number of extra dial attempts before giving up
	MaxRetries int `json:"maxRetries"`

	// RetryBaseDelay is the base delay for exponential backoff in milliseconds
	RetryBaseDelay int `json:"retryBaseDelay"`

	// RateLimit caps download throughput, e.g. "2 MB"; empty means unlimited
	RateLimit string `json:"rateLimit"`

	// PreserveModTime sets downloaded files' mtime to the remote modify time
	PreserveModTime bool `json:"preserveModTime"`

	// HistoryEnabled records runs and transfers in the history index
	HistoryEnabled bool `json:"historyEnabled"`

	// ProfilesFile overrides the location of the profile store
	ProfilesFile string `json:"profilesFile,omitempty"`

	// ExtraExclusions are remote paths excluded in addition to the defaults
	ExtraExclusions []string `json:"extraExclusions,omitempty"`

	path string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultProfile:      utils.DefaultProfileName,
		DefaultOutputFormat: types.OutputFormatTable,
		LogLevel:            "normal",
		ConnectTimeout:      int(utils.DefaultConnectTimeout / time.Second),
		MaxRetries:          utils.DefaultMaxRetries,
		RetryBaseDelay:      utils.DefaultRetryDelayMs,
		PreserveModTime:     true,
		HistoryEnabled:      true,
	}
}

// DefaultConfigAt returns the default configuration bound to path, so that
// Save overwrites that file. An empty path selects the default location.
func DefaultConfigAt(path string) *Config {
	cfg := DefaultConfig()
	cfg.path = path
	return cfg
}

// Load loads configuration with precedence: env vars > config file > defaults.
// An empty path selects the default location.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, err
		}
	}
	cfg.path = path

	if err := cfg.loadFromFile(); err != nil {
		// Config file not existing is not an error
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv(EnvPrefix + "DEFAULT_PROFILE"); v != "" {
		c.DefaultProfile = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		c.DefaultOutputFormat = types.OutputFormat(v)
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "CONNECT_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			c.ConnectTimeout = timeout
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_RETRIES"); v != "" {
		if retries, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = retries
		}
	}
	if v := os.Getenv(EnvPrefix + "RETRY_BASE_DELAY"); v != "" {
		if delay, err := strconv.Atoi(v); err == nil {
			c.RetryBaseDelay = delay
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "RATE_LIMIT"); ok {
		c.RateLimit = v
	}
	if v := os.Getenv(EnvPrefix + "PRESERVE_MODTIME"); v != "" {
		c.PreserveModTime = ParseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "HISTORY"); v != "" {
		c.HistoryEnabled = ParseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "PROFILES_FILE"); v != "" {
		c.ProfilesFile = v
	}
}

// Save writes the configuration to the file it was loaded from
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configPath := c.path
	if configPath == "" {
		var err error
		configPath, err = GetConfigPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Path returns the file the configuration is read from and saved to
func (c *Config) Path() string {
	return c.path
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DefaultOutputFormat != types.OutputFormatJSON &&
		c.DefaultOutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'table')", c.DefaultOutputFormat)
	}

	if c.ConnectTimeout < 1 || c.ConnectTimeout > 3600 {
		return fmt.Errorf("connect timeout must be between 1 and 3600 seconds, got: %d", c.ConnectTimeout)
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 0 and 10, got: %d", c.MaxRetries)
	}

	if c.RetryBaseDelay < 100 || c.RetryBaseDelay > utils.MaxRetryDelayMs {
		return fmt.Errorf("retry base delay must be between 100ms and %dms, got: %d", utils.MaxRetryDelayMs, c.RetryBaseDelay)
	}

	if _, err := c.RateLimitBytes(); err != nil {
		return err
	}

	validLogLevels := []string{"quiet", "normal", "verbose", "debug"}
	isValid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	for _, p := range c.ExtraExclusions {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("exclusion %q must be an absolute remote path", p)
		}
	}

	return nil
}

// GetConnectTimeout returns the connect timeout as a duration
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// GetRetryBaseDelay returns the retry base delay as a duration
func (c *Config) GetRetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelay) * time.Millisecond
}

// RateLimitBytes parses RateLimit into bytes per second; 0 means unlimited
func (c *Config) RateLimitBytes() (int64, error) {
	return ParseRate(c.RateLimit)
}

// ParseRate parses a humanized byte rate such as "512KiB" or "2 MB"
func ParseRate(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(strings.TrimSuffix(strings.TrimSuffix(value, "/s"), "ps"))
	if err != nil {
		return 0, fmt.Errorf("invalid rate limit %q: %w", value, err)
	}
	return int64(n), nil
}

// GetProfilesPath returns the profile store path, honoring ProfilesFile
func (c *Config) GetProfilesPath() (string, error) {
	if c.ProfilesFile != "" {
		return c.ProfilesFile, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProfilesFileName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	if xdg.ConfigHome == "" {
		return "", fmt.Errorf("failed to resolve user config directory")
	}
	return filepath.Join(xdg.ConfigHome, utils.AppName), nil
}

// GetHistoryPath returns the path of the run history database
func GetHistoryPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history", "index.db"), nil
}

// ParseBool parses a boolean value from a string
func ParseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
