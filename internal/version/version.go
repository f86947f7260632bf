// Package version reports the gladgen build version.
package version

// Version is set at build time with
// -ldflags "-X github.com/mark3labs/gladgen/internal/version.Version=v1.2.3".
var Version = "dev"
