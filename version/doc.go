// Package version reports the build of the livequery binary and the
// User-Agent its requests carry.
//
// Version, commit, branch and build time are set at compile time:
//
//	go build -ldflags "-X github.com/kbukum/livequery/version.Version=0.4.0" ./cmd/livequery
//
// Values left unset fall back to the VCS stamp embedded by the Go
// toolchain.
package version
