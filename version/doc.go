// Package version reports the cloudbatch build.
//
// Version, Commit and BuildTime are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/cloudbatch/version.Version=1.0.0" ./cmd/cloudbatch
//
// Unset values fall back to the module build info embedded by the Go
// toolchain.
package version
