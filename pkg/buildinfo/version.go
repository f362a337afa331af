// Package buildinfo reports which cardcrop build is running.
//
// The linker fills the variables in release builds:
//
//	go build -ldflags "-X github.com/matzehuels/cardcrop/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/cardcrop/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/cardcrop
package buildinfo

import "fmt"

// Linker-set values. Local builds keep the defaults.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is a snapshot of the build values, as served by the health endpoint.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"built"`
}

// Get returns the current build values.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// Dev reports whether this is an unreleased local build.
func (i Info) Dev() bool { return i.Version == "dev" }

// Template returns the cobra version template. Local builds omit the
// commit and date lines.
func Template() string {
	i := Get()
	if i.Dev() {
		return "{{.Name}} (development build)\n"
	}
	return fmt.Sprintf("{{.Name}} %s (%s, built %s)\n", i.Version, i.Commit, i.Date)
}
