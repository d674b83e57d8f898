package types

// GlobalFlags holds the persistent flags shared by every command
type GlobalFlags struct {
	Profile      string
	Config       string
	ProfilesFile string
	OutputFormat OutputFormat
	Quiet        bool
	Verbose      bool
	Debug        bool
	Strict       bool
	LogFile      string
	DryRun       bool
	JSON         bool
}
