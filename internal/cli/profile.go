package cli

import (
	"errors"

	"github.com/dl-alexandre/phonesync/internal/credentials"
	"github.com/dl-alexandre/phonesync/internal/profile"
	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/dl-alexandre/phonesync/internal/utils"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile management",
	Long:  "Commands for managing the phones to sync from. --profile selects the profile.",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a profile",
	Long:  "Display the selected profile. The password is never shown.",
	RunE:  runProfileShow,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Create or update a profile",
	Long: `Create or update the selected profile. Only the fields given on the
command line change. A new profile starts from the 'default' profile when
one exists.

Examples:
  phonesync profile edit --profile pixel --remote-host 192.168.0.11 \
    --local-directory ~/Pictures/pixel --remote-directories /DCIM,/Pictures \
    --extensions .jpg,.mp4
  phonesync profile edit --profile pixel --add-remote-directory /Telegram
  phonesync profile edit --profile pixel --password s3cret --credential-store keyring`,
	RunE: runProfileEdit,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a profile",
	RunE:  runProfileDelete,
}

var profileEditFlags profileFlags

func init() {
	profileEditFlags.register(profileEditCmd, true)

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileEditCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileList(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	store, cliErr := openStoreForCommand(flags)
	if cliErr != nil {
		return writeFailure(out, "profile.list", *cliErr)
	}

	list := &types.ProfileList{Profiles: []types.ProfileSummary{}}
	for _, name := range store.Names() {
		rec, err := store.Get(name)
		if err != nil {
			return writeFailure(out, "profile.list", cliErrorFor(err, utils.ErrCodeInternalError))
		}
		list.Profiles = append(list.Profiles, summarizeProfile(name, rec, true))
	}
	return out.WriteSuccess("profile.list", list)
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	store, cliErr := openStoreForCommand(flags)
	if cliErr != nil {
		return writeFailure(out, "profile.show", *cliErr)
	}

	rec, err := store.Get(flags.Profile)
	if err != nil {
		return writeFailure(out, "profile.show", cliErrorFor(err, utils.ErrCodeProfileNotFound))
	}
	return out.WriteSuccess("profile.show", &types.ProfileDetail{ProfileSummary: summarizeProfile(flags.Profile, rec, true)})
}

func runProfileEdit(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	update, err := profileEditFlags.update(cmd)
	if err != nil {
		return writeFailure(out, "profile.edit", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}

	store, cliErr := openStoreForCommand(flags)
	if cliErr != nil {
		return writeFailure(out, "profile.edit", *cliErr)
	}

	// a profile created from scratch gets the usual FTP server app port
	if update.Port == nil && !hasProfile(store, flags.Profile) && !hasProfile(store, utils.DefaultProfileName) {
		port := utils.DefaultPort
		update.Port = &port
	}

	rec := store.Edit(flags.Profile, update)
	if flags.DryRun {
		out.Log("Dry run: profile '%s' not saved", flags.Profile)
		return out.WriteSuccess("profile.edit", &types.ProfileDetail{ProfileSummary: summarizeProfile(flags.Profile, rec, true)})
	}

	rec, err = profile.SealPassword(flags.Profile, rec, newCredentialBackend())
	if err != nil {
		return writeFailure(out, "profile.edit", utils.NewCLIError(utils.ErrCodeCredentialMissing,
			"Failed to store password in keyring: "+err.Error()).Build())
	}
	store.Put(flags.Profile, rec)

	if err := store.Save(); err != nil {
		return writeFailure(out, "profile.edit", utils.NewCLIError(utils.ErrCodeInternalError,
			"Failed to save profiles: "+err.Error()).WithContext("path", store.Path()).Build())
	}

	out.Log("Profile '%s' saved to %s", flags.Profile, store.Path())
	return out.WriteSuccess("profile.edit", &types.ProfileDetail{ProfileSummary: summarizeProfile(flags.Profile, rec, true)})
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	store, cliErr := openStoreForCommand(flags)
	if cliErr != nil {
		return writeFailure(out, "profile.delete", *cliErr)
	}

	rec, err := store.Get(flags.Profile)
	if err != nil {
		return writeFailure(out, "profile.delete", cliErrorFor(err, utils.ErrCodeProfileNotFound))
	}

	result := map[string]interface{}{
		"profile": flags.Profile,
		"deleted": !flags.DryRun,
	}
	if flags.DryRun {
		out.Log("Dry run: profile '%s' not deleted", flags.Profile)
		return out.WriteSuccess("profile.delete", result)
	}

	if err := store.Delete(flags.Profile); err != nil {
		return writeFailure(out, "profile.delete", cliErrorFor(err, utils.ErrCodeInternalError))
	}
	if err := store.Save(); err != nil {
		return writeFailure(out, "profile.delete", utils.NewCLIError(utils.ErrCodeInternalError,
			"Failed to save profiles: "+err.Error()).WithContext("path", store.Path()).Build())
	}

	if rec.UsesKeyring() {
		if err := newCredentialBackend().Delete(flags.Profile); err != nil && !errors.Is(err, credentials.ErrNotFound) {
			out.AddWarning("KEYRING_CLEANUP", "Failed to remove stored password: "+err.Error(), "warning")
		}
	}

	out.Log("Profile '%s' deleted", flags.Profile)
	return out.WriteSuccess("profile.delete", result)
}

func hasProfile(store *profile.Store, name string) bool {
	_, err := store.Get(name)
	return err == nil
}

func openStoreForCommand(flags types.GlobalFlags) (*profile.Store, *types.CLIError) {
	cfg, err := loadConfig(flags)
	if err != nil {
		cliErr := utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build()
		return nil, &cliErr
	}
	store, err := openProfileStore(cfg, flags)
	if err != nil {
		cliErr := utils.NewCLIError(utils.ErrCodeProfileInvalid, err.Error()).Build()
		return nil, &cliErr
	}
	return store, nil
}
