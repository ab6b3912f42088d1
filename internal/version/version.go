// Package version - метаданные сборки для /version и лога старта.
//
// Значения задаются через ldflags:
//
//	-X fourad-server/internal/version.BuildDate=2025-12-14
//	-X fourad-server/internal/version.BuildCommit=$(git rev-parse HEAD)
//
// Без ldflags коммит и дата берутся из VCS-штампа, который пишет go build.
package version

import (
	"fmt"
	"runtime/debug"
	"time"

	"fourad-server/internal/infrastructure/storage"
)

var (
	BuildDate   string // YYYY-MM-DD (UTC)
	BuildCommit string
	BuildBranch string
	BuildCI     string
)

// Name - имя сервиса в /version и логах старта.
const Name = "fourad-server"

// ReplayFormat - версия файлов .ddrp, которые пишет и читает эта сборка.
const ReplayFormat = storage.Version1

const shortCommit = 7

// VersionInfo - метаданные сборки.
type VersionInfo struct {
	Name         string `json:"name"`
	BuildDate    string `json:"buildDate,omitempty"`
	Commit       string `json:"commit,omitempty"`
	Dirty        bool   `json:"dirty,omitempty"`
	Branch       string `json:"branch,omitempty"`
	CI           string `json:"ci,omitempty"`
	GoVersion    string `json:"goVersion,omitempty"`
	ReplayFormat uint32 `json:"replayFormat"`
	Error        string `json:"error,omitempty"`
}

// Info собирает метаданные. Безопасно вызывать в любой момент.
func Info() VersionInfo {
	bi, _ := debug.ReadBuildInfo()
	return resolve(bi)
}

// resolve: ldflags важнее VCS-штампа, кривая дата сбрасывается с ошибкой.
func resolve(bi *debug.BuildInfo) VersionInfo {
	info := VersionInfo{
		Name:         Name,
		BuildDate:    BuildDate,
		Commit:       BuildCommit,
		Branch:       BuildBranch,
		CI:           BuildCI,
		ReplayFormat: ReplayFormat,
	}

	if bi != nil {
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" && len(s.Value) >= len("2006-01-02") {
					info.BuildDate = s.Value[:len("2006-01-02")]
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			}
		}
	}

	if info.BuildDate != "" {
		if _, err := time.ParseInLocation("2006-01-02", info.BuildDate, time.UTC); err != nil {
			info.Error = fmt.Sprintf("invalid BuildDate %q", info.BuildDate)
			info.BuildDate = ""
		}
	}
	return info
}

// String - строка для лога: "fourad-server 2025-12-14 commit[abc1234] branch[main] ci[local] replay[v1]".
func (v VersionInfo) String() string {
	commit := coalesce(v.Commit, "unknown")
	if len(commit) > shortCommit {
		commit = commit[:shortCommit]
	}
	if v.Dirty {
		commit += "+dirty"
	}

	s := fmt.Sprintf("%s %s commit[%s] branch[%s] ci[%s] replay[v%d]",
		v.Name,
		coalesce(v.BuildDate, "dev"),
		commit,
		coalesce(v.Branch, "unknown"),
		coalesce(v.CI, "local"),
		v.ReplayFormat,
	)
	if v.Error != "" {
		s += " (" + v.Error + ")"
	}
	return s
}

// String - текущая сборка одной строкой.
func String() string {
	return Info().String()
}

func coalesce(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
