// Package version exposes the build information stamped into the gentai
// binary at link time.
package version

import "fmt"

// Build information. The defaults describe a local, unstamped build; release
// builds override them through -ldflags via SetInfo.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = "unknown"
)

// SetInfo records the stamped build values. Empty values keep the defaults
// so a partially stamped build still reports something usable.
func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// FormatStartupMessage renders the one-line banner logged at startup.
func FormatStartupMessage() string {
	return fmt.Sprintf("GentAI %s (built %s)", Version, BuildTime)
}
