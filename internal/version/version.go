// Package version provides build information for the goapple emulator
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"time"
)

// Name is the program name used in banners and version strings.
const Name = "goapple"

var (
	// These will be set at build time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	BuildUser = "unknown"
)

// BuildInfo contains detailed build information
type BuildInfo struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildTime  string `json:"build_time"`
	BuildUser  string `json:"build_user"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Arch       string `json:"arch"`
	CGOEnabled bool   `json:"cgo_enabled"`
	Tags       string `json:"tags,omitempty"`
}

// GetBuildInfo returns build information, filling unset link-time values
// from the VCS stamp when available.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		BuildUser: BuildUser,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if GitCommit == "unknown" {
				info.GitCommit = setting.Value
			}
		case "vcs.time":
			if BuildTime == "unknown" {
				info.BuildTime = setting.Value
			}
		case "CGO_ENABLED":
			info.CGOEnabled = setting.Value == "1"
		case "-tags":
			info.Tags = setting.Value
		}
	}
	return info
}

// shortCommit trims a revision hash to seven characters.
func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

// GetVersion returns a simple version string
func GetVersion() string {
	if Version == "dev" {
		info := GetBuildInfo()
		if info.GitCommit != "unknown" && len(info.GitCommit) >= 7 {
			return "dev-" + shortCommit(info.GitCommit)
		}
	}
	return Version
}

// String returns the one line version description.
func (info BuildInfo) String() string {
	s := fmt.Sprintf("%s version %s", Name, info.Version)

	if info.GitCommit != "unknown" {
		s += fmt.Sprintf(" (commit %s)", shortCommit(info.GitCommit))
	}

	if info.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
			s += " built on " + t.Format("2006-01-02 15:04:05")
		} else {
			s += " built on " + info.BuildTime
		}
	}

	s += fmt.Sprintf(" with %s for %s/%s", info.GoVersion, info.Platform, info.Arch)

	if info.BuildUser != "unknown" {
		s += " by " + info.BuildUser
	}
	return s
}

// GetDetailedVersion returns a detailed version string
func GetDetailedVersion() string {
	return GetBuildInfo().String()
}

// PrintBuildInfo writes formatted build information to w
func PrintBuildInfo(w io.Writer) {
	info := GetBuildInfo()

	fmt.Fprintf(w, "%s - Apple II emulator\n", Name)
	fmt.Fprintf(w, "Version:     %s\n", info.Version)
	fmt.Fprintf(w, "Git Commit:  %s\n", info.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", info.BuildTime)
	fmt.Fprintf(w, "Build User:  %s\n", info.BuildUser)
	fmt.Fprintf(w, "Go Version:  %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform:    %s/%s\n", info.Platform, info.Arch)
	fmt.Fprintf(w, "CGO Enabled: %t\n", info.CGOEnabled)
	if info.Tags != "" {
		fmt.Fprintf(w, "Build Tags:  %s\n", info.Tags)
	}
}
