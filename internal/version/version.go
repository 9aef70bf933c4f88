// Package version reports the build version, set with
// -ldflags "-X github.com/dimidiyP/shinomontaz-base/internal/version.Version=...".
package version

var Version = "dev"
