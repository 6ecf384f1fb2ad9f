package version

import (
	"runtime/debug"
)

var (
	// These will be set via -ldflags during build
	GitRepo   string
	GitBranch string
	GitCommit string
	BuildTime string
)

// Info returns a struct containing all version information
type Info struct {
	GitRepo   string           `json:"gitRepo,omitempty"`
	GitBranch string           `json:"gitBranch,omitempty"`
	GitCommit string           `json:"gitCommit,omitempty"`
	BuildTime string           `json:"buildTime,omitempty"`
	BuildInfo *debug.BuildInfo `json:"buildInfo,omitempty"`
}

// Get returns the version information
func Get() Info {
	buildInfo, ok := debug.ReadBuildInfo()
	ret := Info{
		GitRepo:   GitRepo,
		GitBranch: GitBranch,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}
	if ok {
		ret.BuildInfo = buildInfo
	}
	return ret
}

// Equal checks if two version infos represent the same version.
// Two versions are considered equal if their git repo, branch, commit and
// build time all match and, when v carries BuildInfo, other carries one with
// the same main module path, Go version and dependency paths/versions.
func (v Info) Equal(other Info) bool {
	if v.BuildInfo != nil {
		if other.BuildInfo == nil {
			return false
		}
		if v.BuildInfo.Main.Path != other.BuildInfo.Main.Path ||
			v.BuildInfo.GoVersion != other.BuildInfo.GoVersion ||
			len(v.BuildInfo.Deps) != len(other.BuildInfo.Deps) {
			return false
		}
		for i, dep := range v.BuildInfo.Deps {
			od := other.BuildInfo.Deps[i]
			if dep.Path != od.Path || dep.Version != od.Version {
				return false
			}
		}
	}
	if v.BuildTime != other.BuildTime ||
		v.GitBranch != other.GitBranch ||
		v.GitCommit != other.GitCommit ||
		v.GitRepo != other.GitRepo {
		return false
	}
	return true
}
