// Package buildinfo holds build-time metadata, separate from user
// configuration.
package buildinfo

import (
	"runtime/debug"
	"sync"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	// Version holds the git version tag from the build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string

	// Revision is the VCS revision recorded by the Go toolchain
	Revision string
}

var (
	current   *Context
	currentMu sync.RWMutex
)

// Set installs the build metadata. main calls it once with the values from
// -ldflags.
func Set(version, buildDate string) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = &Context{Version: version, BuildDate: buildDate, Revision: vcsRevision()}
}

// Current returns the installed metadata, or an empty Context.
func Current() *Context {
	currentMu.RLock()
	defer currentMu.RUnlock()
	if current == nil {
		return &Context{}
	}
	return current
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}

// GetVersion returns the version, falling back to the VCS revision.
func (c *Context) GetVersion() string {
	switch {
	case c == nil:
		return UnknownValue
	case c.Version != "" && c.Version != "dev":
		return c.Version
	case c.Revision != "":
		return "dev-" + c.Revision
	case c.Version != "":
		return c.Version
	default:
		return UnknownValue
	}
}

// GetBuildDate returns the build date.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}
