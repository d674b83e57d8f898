package utils

import "time"

// Application identity
const (
	AppName = "phonesync"
	// KeyringService is the service name used for stored FTP passwords
	KeyringService = "phonesync"
)

// Watermark marker files
const (
	// MarkerPattern matches marker file names, case-insensitively
	MarkerPattern = `(?i)^lasttimestamp.*\.txt$`
	// MarkerPrefix is the prefix of newly written marker files
	MarkerPrefix = "lastTimestamp_"
	// MarkerSuffix is the extension of marker files
	MarkerSuffix = ".txt"
	// WatermarkLayout is the content layout of a marker line (minute precision)
	WatermarkLayout = "2006-01-02 15:04"
	// MarkerNameLayout is the timestamp layout embedded in marker file names
	MarkerNameLayout = "2006-01-02_15-04"
)

// DefaultExclusions are remote subtrees never descended into
var DefaultExclusions = []string{
	"/Android/media/ga.asti.android",
}

// Connection defaults
const (
	DefaultPort           = 2121
	DefaultConnectTimeout = 30 * time.Second
)

// Retry configuration
const (
	DefaultMaxRetries   = 2
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// Schema version
const SchemaVersion = "1.0"

// DefaultProfileName names the template profile new profiles are built from
const DefaultProfileName = "default"
