package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dl-alexandre/phonesync/internal/config"
	"github.com/dl-alexandre/phonesync/internal/logging"
	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/dl-alexandre/phonesync/internal/utils"
	"github.com/dl-alexandre/phonesync/pkg/version"
	"github.com/spf13/cobra"
)

var (
	globalFlags types.GlobalFlags
	logger      logging.Logger = logging.NewNoOpLogger()
	// protocolTrace receives FTP control traffic when --debug is set
	protocolTrace io.Writer
)

var rootCmd = &cobra.Command{
	Use:   utils.AppName,
	Short: "Incremental photo and video sync from a phone's FTP server",
	Long: `phonesync copies new media files from the FTP server app on a phone
into a local directory.

Each run only fetches files modified since the previous successful run,
recorded as a lastTimestamp_<date>.txt marker in the local directory.

All commands support JSON output for automation and scripting.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		applyConfigDefaults(cmd)

		if err := validateGlobalFlags(); err != nil {
			return err
		}

		logConfig := logging.LogConfig{
			Level:           logging.INFO,
			OutputFile:      globalFlags.LogFile,
			MaxFileSize:     logging.DefaultLogConfig().MaxFileSize,
			EnableConsole:   !globalFlags.Quiet,
			EnableDebug:     globalFlags.Debug,
			RedactSensitive: true,
			EnableColor:     true,
			EnableTimestamp: true,
		}
		if globalFlags.Verbose {
			logConfig.Level = logging.DEBUG
		}
		if globalFlags.OutputFormat == types.OutputFormatJSON && !globalFlags.Verbose && !globalFlags.Debug {
			logConfig.EnableConsole = false
		}

		var err error
		logger, protocolTrace, err = logging.NewDebugLoggerWithTrace(logConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "Print the version number of phonesync",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := GetGlobalFlags()
		if flags.OutputFormat == types.OutputFormatJSON {
			out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)
			return out.WriteSuccess("version", version.Get())
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Profile, "profile", utils.DefaultProfileName, "Profile to use")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.ProfilesFile, "profiles", "", "Path to the profile store")
	rootCmd.PersistentFlags().StringVar((*string)(&globalFlags.OutputFormat), "output", string(types.OutputFormatTable), "Output format (json, table)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Log FTP protocol traffic")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.DryRun, "dry-run", false, "Show what would be done without making changes")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Strict, "strict", false, "Exit with a non-zero status when a command fails")

	rootCmd.AddCommand(versionCmd)
}

// applyConfigDefaults fills unset global flags from the config file and
// environment. A broken config file is reported by the commands that need it.
func applyConfigDefaults(cmd *cobra.Command) {
	cfg, err := config.Load(globalFlags.Config)
	if err != nil {
		return
	}
	flags := cmd.Flags()
	if !flags.Changed("profile") && cfg.DefaultProfile != "" {
		globalFlags.Profile = cfg.DefaultProfile
	}
	if !flags.Changed("output") && cfg.DefaultOutputFormat != "" {
		globalFlags.OutputFormat = cfg.DefaultOutputFormat
	}
	if !flags.Changed("profiles") && cfg.ProfilesFile != "" {
		globalFlags.ProfilesFile = cfg.ProfilesFile
	}
	switch cfg.LogLevel {
	case "quiet":
		if !flags.Changed("quiet") {
			globalFlags.Quiet = true
		}
	case "verbose":
		if !flags.Changed("verbose") {
			globalFlags.Verbose = true
		}
	case "debug":
		if !flags.Changed("debug") {
			globalFlags.Debug = true
		}
	}
}

func validateGlobalFlags() error {
	// Handle --json flag as alias for --output json
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}

	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s", globalFlags.OutputFormat)
	}
	if globalFlags.Profile == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	return nil
}

// Execute runs the root command. Interrupts cancel the running command.
// Errors carrying a CLI error code exit with the matching status.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Close()

	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			os.Exit(utils.GetExitCode(appErr.CLIError.Code))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(utils.ExitUnknown)
	}
	return nil
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}

// GetLogger returns the global logger
func GetLogger() logging.Logger {
	return logger
}
