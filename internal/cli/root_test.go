package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with fresh flag state and returns
// what the command wrote to stdout and stderr
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	resetCommandFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	prevOut, prevErr := stdoutWriter, stderrWriter
	stdoutWriter, stderrWriter = &stdout, &stderr
	t.Cleanup(func() {
		stdoutWriter, stderrWriter = prevOut, prevErr
	})

	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func resetCommandFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace([]string{})
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetCommandFlags(child)
	}
}

func TestValidateGlobalFlags(t *testing.T) {
	t.Cleanup(func() { globalFlags = types.GlobalFlags{} })

	globalFlags = types.GlobalFlags{Profile: "pixel", OutputFormat: types.OutputFormatTable, JSON: true}
	require.NoError(t, validateGlobalFlags())
	assert.Equal(t, types.OutputFormatJSON, globalFlags.OutputFormat, "--json should select JSON output")

	globalFlags = types.GlobalFlags{Profile: "pixel", OutputFormat: "yaml"}
	assert.Error(t, validateGlobalFlags(), "output format yaml")

	globalFlags = types.GlobalFlags{OutputFormat: types.OutputFormatTable}
	assert.Error(t, validateGlobalFlags(), "empty profile")
}

func TestConfigDefaultsApplyToUnsetFlags(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PHONESYNC_CONFIG_DIR", dir)
	t.Setenv("PHONESYNC_DEFAULT_PROFILE", "pixel")
	t.Setenv("PHONESYNC_OUTPUT_FORMAT", "json")

	stdout, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pixel", globalFlags.Profile, "profile from config")
	assert.Contains(t, stdout, `"command": "version"`, "JSON envelope from config default")

	_, _, err = executeCommand(t, "version", "--profile", "galaxy", "--output", "table")
	require.NoError(t, err)
	assert.Equal(t, "galaxy", globalFlags.Profile)
	assert.Equal(t, types.OutputFormatTable, globalFlags.OutputFormat)
}
