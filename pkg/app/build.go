package app

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// 构建时注入：go build -ldflags "-X github.com/lk2023060901/flotilla/pkg/app.Version=v0.3.0"
var (
	Version   = ""
	GitCommit = ""
	BuildDate = ""
)

// AppName 进程名，用作日志前缀、tracing 与 Sentry 的服务名
var AppName = "flotilla-orchestrator"

// BuildInfo /v1/version 返回的构建信息
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Build 汇总构建信息，未注入的字段从模块的 vcs 信息补齐
func Build() BuildInfo {
	info := BuildInfo{
		Name:      AppName,
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if len(info.Commit) > 12 {
		info.Commit = info.Commit[:12]
	}
	return info
}

func (i BuildInfo) String() string {
	commit := i.Commit
	if commit == "" {
		commit = "none"
	}
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s %s (%s, %s, %s)", i.Name, i.Version, commit, i.GoVersion, i.Platform)
}
