package constants

// Version information (injected at build time)
var (
	// Version is the application version (set via -ldflags).
	Version = "dev"

	// BuildTime is the build timestamp (set via -ldflags).
	BuildTime = "unknown"

	// GitCommit is the git commit hash (set via -ldflags).
	GitCommit = "unknown"
)

// GetVersion returns the application version string.
func GetVersion() string {
	return Version
}

// GetFullVersion returns version plus build metadata.
func GetFullVersion() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}
