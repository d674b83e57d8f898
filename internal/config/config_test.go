package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "default", cfg.DefaultProfile)
	assert.Equal(t, types.OutputFormatTable, cfg.DefaultOutputFormat)
	assert.Equal(t, 30, cfg.ConnectTimeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.True(t, cfg.PreserveModTime)
	assert.True(t, cfg.HistoryEnabled)
	assert.Empty(t, cfg.RateLimit, "rate should be unlimited")
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid default config",
			mutate: func(c *Config) {},
		},
		{
			name:     "invalid output format",
			mutate:   func(c *Config) { c.DefaultOutputFormat = types.OutputFormat("yaml") },
			errorMsg: "invalid output format",
		},
		{
			name:     "connect timeout out of range",
			mutate:   func(c *Config) { c.ConnectTimeout = 0 },
			errorMsg: "connect timeout must be between 1 and 3600",
		},
		{
			name:     "max retries too high",
			mutate:   func(c *Config) { c.MaxRetries = 11 },
			errorMsg: "max retries must be between 0 and 10",
		},
		{
			name:     "retry base delay too low",
			mutate:   func(c *Config) { c.RetryBaseDelay = 50 },
			errorMsg: "retry base delay must be between 100ms",
		},
		{
			name:     "invalid log level",
			mutate:   func(c *Config) { c.LogLevel = "chatty" },
			errorMsg: "invalid log level",
		},
		{
			name:     "invalid rate limit",
			mutate:   func(c *Config) { c.RateLimit = "fast" },
			errorMsg: "invalid rate limit",
		},
		{
			name:     "relative exclusion",
			mutate:   func(c *Config) { c.ExtraExclusions = []string{"Android/data"} },
			errorMsg: "must be an absolute remote path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestConfigDurationGetters(t *testing.T) {
	cfg := &Config{ConnectTimeout: 45, RetryBaseDelay: 250}

	assert.Equal(t, 45*time.Second, cfg.GetConnectTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.GetRetryBaseDelay())
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "0", want: 0},
		{in: "512KiB", want: 512 * 1024},
		{in: "2 MB", want: 2000000},
		{in: "1MiB/s", want: 1024 * 1024},
		{in: "lots", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseRate(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseRate(%q)", tt.in)
			continue
		}
		if assert.NoError(t, err, "ParseRate(%q)", tt.in) {
			assert.Equal(t, tt.want, got, "ParseRate(%q)", tt.in)
		}
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	cfg, err := Load(path)
	require.NoError(t, err, "Load() on missing file")
	cfg.DefaultProfile = "pixel"
	cfg.RateLimit = "1MiB"
	cfg.ExtraExclusions = []string{"/Android/data"}
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err, "config file not written")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pixel", loaded.DefaultProfile)
	assert.Equal(t, "1MiB", loaded.RateLimit)
	assert.Equal(t, []string{"/Android/data"}, loaded.ExtraExclusions)
}

func TestDefaultConfigAtOverwritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"maxRetries": 99}`), 0600))

	cfg := DefaultConfigAt(path)
	assert.Equal(t, path, cfg.Path())
	require.NoError(t, cfg.Save())

	loaded, err := Load(path)
	require.NoError(t, err, "Load() after reset")
	assert.Equal(t, DefaultConfig().MaxRetries, loaded.MaxRetries)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	data, err := json.Marshal(map[string]interface{}{"maxRetries": 99})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	_, err = Load(path)
	assert.Error(t, err, "maxRetries=99 should fail validation")
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	t.Setenv("PHONESYNC_DEFAULT_PROFILE", "env-profile")
	t.Setenv("PHONESYNC_OUTPUT_FORMAT", "json")
	t.Setenv("PHONESYNC_MAX_RETRIES", "7")
	t.Setenv("PHONESYNC_LOG_LEVEL", "debug")
	t.Setenv("PHONESYNC_RATE_LIMIT", "256KiB")
	t.Setenv("PHONESYNC_HISTORY", "off")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-profile", cfg.DefaultProfile)
	assert.Equal(t, types.OutputFormatJSON, cfg.DefaultOutputFormat)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, "debug", cfg.LogLevel)
	rate, err := cfg.RateLimitBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(256*1024), rate)
	assert.False(t, cfg.HistoryEnabled, "PHONESYNC_HISTORY=off")
}

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PHONESYNC_CONFIG_DIR", dir)

	got, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), got)

	cfg := DefaultConfig()
	profiles, err := cfg.GetProfilesPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ProfilesFileName), profiles)

	cfg.ProfilesFile = "/srv/phones.json"
	profiles, err = cfg.GetProfilesPath()
	require.NoError(t, err)
	assert.Equal(t, "/srv/phones.json", profiles)
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "1", "yes", "on", " TRUE "} {
		assert.True(t, ParseBool(v), "ParseBool(%q)", v)
	}
	for _, v := range []string{"false", "0", "no", "off", ""} {
		assert.False(t, ParseBool(v), "ParseBool(%q)", v)
	}
}
