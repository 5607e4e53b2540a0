// Package version holds the build version, overridable at link time.
package version

// Version is the current release. Overridden via
// -ldflags "-X github.com/aristath/tipster/internal/version.Version=v1.2.3"
var Version = "dev"
