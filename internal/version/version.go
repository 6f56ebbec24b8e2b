// Package version carries the build version, set with -ldflags.
package version

// Version is overridden at build time:
//
//	go build -ldflags "-X github.com/elektrokombinacija/fleetplan/internal/version.Version=v0.3.0"
var Version = "dev"
