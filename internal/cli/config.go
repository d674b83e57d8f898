package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dl-alexandre/phonesync/internal/config"
	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/dl-alexandre/phonesync/internal/utils"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for managing phonesync configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value. Use 'config show' to see available keys.

extraExclusions takes a comma-separated list of absolute remote paths;
an empty value clears it.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	Long:  "Reset all configuration settings to their default values",
	RunE:  runConfigReset,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := loadConfig(flags)
	if err != nil {
		return writeFailure(out, "config.show", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}

	return out.WriteSuccess("config.show", cfg)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	key := args[0]
	value := args[1]

	cfg, err := loadConfig(flags)
	if err != nil {
		return writeFailure(out, "config.set", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}

	if err := setConfigValue(cfg, key, value); err != nil {
		return writeFailure(out, "config.set", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).
			WithContext("key", key).Build())
	}
	if err := cfg.Validate(); err != nil {
		return writeFailure(out, "config.set", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).
			WithContext("key", key).Build())
	}

	if flags.DryRun {
		out.Log("Dry run: configuration not saved")
		return out.WriteSuccess("config.set", map[string]interface{}{"key": key, "value": value})
	}

	if err := cfg.Save(); err != nil {
		return writeFailure(out, "config.set", utils.NewCLIError(utils.ErrCodeInternalError,
			fmt.Sprintf("Failed to save configuration: %v", err)).Build())
	}

	out.Log("Configuration updated: %s = %s", key, value)
	return out.WriteSuccess("config.set", map[string]interface{}{
		"key":   key,
		"value": value,
	})
}

// setConfigValue assigns one key; keys are matched case-insensitively
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "defaultprofile":
		if value == "" {
			return fmt.Errorf("default profile must not be empty")
		}
		cfg.DefaultProfile = value
	case "defaultoutputformat":
		if value != string(types.OutputFormatJSON) && value != string(types.OutputFormatTable) {
			return fmt.Errorf("invalid output format. Must be 'json' or 'table'")
		}
		cfg.DefaultOutputFormat = types.OutputFormat(value)
	case "loglevel":
		cfg.LogLevel = value
	case "connecttimeout":
		timeout, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("connect timeout must be a number of seconds")
		}
		cfg.ConnectTimeout = timeout
	case "maxretries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max retries must be an integer")
		}
		cfg.MaxRetries = retries
	case "retrybasedelay":
		delay, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("retry base delay must be a number of milliseconds")
		}
		cfg.RetryBaseDelay = delay
	case "ratelimit":
		if _, err := config.ParseRate(value); err != nil {
			return err
		}
		cfg.RateLimit = strings.TrimSpace(value)
	case "preservemodtime":
		cfg.PreserveModTime = config.ParseBool(value)
	case "historyenabled":
		cfg.HistoryEnabled = config.ParseBool(value)
	case "profilesfile":
		cfg.ProfilesFile = value
	case "extraexclusions":
		cfg.ExtraExclusions = nil
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				cfg.ExtraExclusions = append(cfg.ExtraExclusions, part)
			}
		}
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg := config.DefaultConfigAt(flags.Config)
	if flags.DryRun {
		out.Log("Dry run: configuration not reset")
		return out.WriteSuccess("config.reset", cfg)
	}
	if err := cfg.Save(); err != nil {
		return writeFailure(out, "config.reset", utils.NewCLIError(utils.ErrCodeInternalError,
			fmt.Sprintf("Failed to reset configuration: %v", err)).Build())
	}

	out.Log("Configuration reset to defaults")
	return out.WriteSuccess("config.reset", cfg)
}
