package cli

import (
	"fmt"

	"github.com/dl-alexandre/phonesync/internal/config"
	"github.com/dl-alexandre/phonesync/internal/credentials"
	"github.com/dl-alexandre/phonesync/internal/profile"
	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/dl-alexandre/phonesync/internal/utils"
	"github.com/spf13/cobra"
)

// newCredentialBackend is replaced in tests
var newCredentialBackend = func() credentials.StorageBackend {
	return credentials.NewKeyringStorage(utils.KeyringService)
}

func loadConfig(flags types.GlobalFlags) (*config.Config, error) {
	return config.Load(flags.Config)
}

// openProfileStore loads the profile store selected by --profiles, the
// config file or the default location, in that order
func openProfileStore(cfg *config.Config, flags types.GlobalFlags) (*profile.Store, error) {
	path := flags.ProfilesFile
	if path == "" {
		var err error
		path, err = cfg.GetProfilesPath()
		if err != nil {
			return nil, err
		}
	}
	return profile.Load(path)
}

// profileFlags are the per-field profile flags shared by profile edit and
// transfer extract
type profileFlags struct {
	username        string
	password        string
	localDirectory  string
	remoteHost      string
	port            int
	credentialStore string

	remoteDirectories       []string
	addRemoteDirectories    []string
	removeRemoteDirectories []string

	extensions       []string
	addExtensions    []string
	removeExtensions []string
}

func (f *profileFlags) register(cmd *cobra.Command, withCredentialStore bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.username, "username", "", "FTP user name")
	fs.StringVar(&f.password, "password", "", "FTP password")
	fs.StringVar(&f.localDirectory, "local-directory", "", "Local directory receiving the files")
	fs.StringVar(&f.remoteHost, "remote-host", "", "Phone host name or address")
	fs.IntVar(&f.port, "port", utils.DefaultPort, "FTP port")
	fs.StringSliceVar(&f.remoteDirectories, "remote-directories", nil, "Replace the remote directories (comma-separated)")
	fs.StringSliceVar(&f.addRemoteDirectories, "add-remote-directory", nil, "Add a remote directory")
	fs.StringSliceVar(&f.removeRemoteDirectories, "remove-remote-directory", nil, "Remove a remote directory")
	fs.StringSliceVar(&f.extensions, "extensions", nil, "Replace the file extensions (comma-separated)")
	fs.StringSliceVar(&f.addExtensions, "add-extension", nil, "Add a file extension")
	fs.StringSliceVar(&f.removeExtensions, "remove-extension", nil, "Remove a file extension")
	if withCredentialStore {
		fs.StringVar(&f.credentialStore, "credential-store", "", "Where the password is kept (inline, keyring)")
	}
}

// update builds a profile update from the flags set on the command line.
// Flags left unset do not touch the profile.
func (f *profileFlags) update(cmd *cobra.Command) (profile.Update, error) {
	fs := cmd.Flags()
	var u profile.Update

	if fs.Changed("username") {
		u.Username = &f.username
	}
	if fs.Changed("password") {
		u.Password = &f.password
	}
	if fs.Changed("local-directory") {
		u.LocalDirectory = &f.localDirectory
	}
	if fs.Changed("remote-host") {
		u.RemoteHost = &f.remoteHost
	}
	if fs.Changed("port") {
		if f.port < 1 || f.port > 65535 {
			return profile.Update{}, fmt.Errorf("port must be between 1 and 65535, got: %d", f.port)
		}
		u.Port = &f.port
	}
	if fs.Lookup("credential-store") != nil && fs.Changed("credential-store") {
		if f.credentialStore != profile.CredentialStoreInline && f.credentialStore != profile.CredentialStoreKeyring {
			return profile.Update{}, fmt.Errorf("credential store must be '%s' or '%s'", profile.CredentialStoreInline, profile.CredentialStoreKeyring)
		}
		u.CredentialStore = &f.credentialStore
	}

	if fs.Changed("remote-directories") {
		u.SetDirectories = append([]string{}, f.remoteDirectories...)
	}
	u.AddDirectories = f.addRemoteDirectories
	u.RemoveDirectories = f.removeRemoteDirectories
	for _, list := range [][]string{u.SetDirectories, u.AddDirectories} {
		for _, d := range list {
			if d == "" || d[0] != '/' {
				return profile.Update{}, fmt.Errorf("remote directory %q must be absolute", d)
			}
		}
	}

	if fs.Changed("extensions") {
		u.SetExtensions = append([]string{}, f.extensions...)
	}
	u.AddExtensions = f.addExtensions
	u.RemoveExtensions = f.removeExtensions

	return u, nil
}

func summarizeProfile(name string, rec profile.Record, redact bool) types.ProfileSummary {
	password := rec.Password
	if redact && password != "" {
		password = "********"
	}
	if rec.UsesKeyring() && password == "" {
		password = "(keyring)"
	}
	return types.ProfileSummary{
		Name:              name,
		Username:          rec.Username,
		Password:          password,
		RemoteHost:        rec.RemoteHost,
		Port:              rec.Port,
		LocalDirectory:    rec.LocalDirectory,
		RemoteDirectories: nonNil(rec.RemoteDirectories),
		Extensions:        nonNil(rec.Extensions),
		CredentialStore:   rec.CredentialStore,
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
