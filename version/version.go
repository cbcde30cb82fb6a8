// Package version reports how the psq binary was built.
//
// Values are stamped at build time:
//
//	go build -ldflags "-X github.com/teranos/psq/version.Version=v0.3.0 \
//	    -X github.com/teranos/psq/version.CommitHash=$(git rev-parse HEAD) \
//	    -X github.com/teranos/psq/version.BuildTime=$(date -u +%FT%TZ)" ./cmd/psq
package version

import (
	"fmt"
	"runtime"
)

var (
	Version    = "dev"
	CommitHash = "dev"
	BuildTime  = "unknown"
)

// Info is the build stamp plus the toolchain and platform
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the running binary's Info
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short is the abbreviated commit hash
func (i Info) Short() string {
	if len(i.CommitHash) > 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}

func (i Info) String() string {
	return fmt.Sprintf("psq %s (commit %s, built %s)", i.Version, i.Short(), i.BuildTime)
}

// UserAgent identifies psq in Integration Broker gateway logs
func (i Info) UserAgent() string {
	return fmt.Sprintf("psq/%s (%s)", i.Version, i.Platform)
}
