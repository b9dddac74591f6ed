// Package buildinfo carries version metadata stamped at link time with
// -ldflags "-X ctrltune/internal/buildinfo.Version=...". Unstamped builds
// fall back to the VCS settings the Go toolchain embeds.
package buildinfo

import (
    "fmt"
    "runtime"
    "runtime/debug"
    "sync"
)

var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

var fillOnce sync.Once

// fill copies vcs.revision and vcs.time into Commit and BuiltAt when the
// linker did not set them.
func fill() {
    fillOnce.Do(func() {
        bi, ok := debug.ReadBuildInfo()
        if !ok { return }
        for _, s := range bi.Settings {
            switch s.Key {
            case "vcs.revision":
                if Commit == "" { Commit = s.Value }
            case "vcs.time":
                if BuiltAt == "" { BuiltAt = s.Value }
            }
        }
        if len(Commit) > 12 { Commit = Commit[:12] }
    })
}

func Info() map[string]string {
    fill()
    return map[string]string{
        "version":   Version,
        "commit":    Commit,
        "builtAt":   BuiltAt,
        "goVersion": runtime.Version(),
    }
}

// String renders a one-line version banner.
func String() string {
    fill()
    if Commit == "" {
        return fmt.Sprintf("ctrltune %s (%s)", Version, runtime.Version())
    }
    return fmt.Sprintf("ctrltune %s (%s, built %s, %s)", Version, Commit, BuiltAt, runtime.Version())
}
