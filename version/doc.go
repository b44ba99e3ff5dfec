// Package version reports the build of the tuplestream binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/tuplestream/version.Version=1.0.0" ./cmd/tuplestream
//
// Fields left unset fall back to the VCS stamp recorded by the Go toolchain.
package version
