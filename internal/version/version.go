// Package version holds the build version, set with
// -ldflags "-X github.com/UnknownOlympus/meridian/internal/version.Version=v1.2.3".
package version

// Version is reported in the X-Version response header.
var Version = "dev"
