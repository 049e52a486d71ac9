package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

var (
	// Set at build time using -ldflags.
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

const shortCommit = 7

// Info is the resolved build information.
type Info struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit,omitempty"`
	BuildTime time.Time `json:"build_time,omitempty"`
	GoVersion string    `json:"go_version"`
	Modified  bool      `json:"modified"`
}

// Get resolves the build information.
func Get() Info {
	return resolve(Version, Commit, BuildTime, readBuildSettings())
}

func readBuildSettings() map[string]string {
	settings := map[string]string{}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
	}
	return settings
}

func resolve(version, commit, buildTime string, settings map[string]string) Info {
	info := Info{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Modified:  settings["vcs.modified"] == "true",
	}
	if info.Commit == "" {
		info.Commit = settings["vcs.revision"]
	}
	if len(info.Commit) > shortCommit {
		info.Commit = info.Commit[:shortCommit]
	}
	if buildTime == "" {
		buildTime = settings["vcs.time"]
	}
	if t, err := time.Parse(time.RFC3339, buildTime); err == nil {
		info.BuildTime = t.UTC()
	}
	return info
}

// IsRelease reports whether the build carries a real version.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !i.Modified
}

// Short is the version plus commit, e.g. "1.2.0-abc1234".
func (i Info) Short() string {
	s := i.Version
	if i.Commit != "" {
		s += "-" + i.Commit
	}
	if i.Modified {
		s += "-dirty"
	}
	return s
}

// String is the line printed by "cloudbatch version".
func (i Info) String() string {
	parts := []string{"cloudbatch " + i.Short()}
	if !i.BuildTime.IsZero() {
		parts = append(parts, "built "+i.BuildTime.Format(time.RFC3339))
	}
	parts = append(parts, i.GoVersion)
	return fmt.Sprintf("%s (%s)", parts[0], strings.Join(parts[1:], ", "))
}
