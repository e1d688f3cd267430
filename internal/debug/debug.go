// Package debug controls wire protocol tracing. Tracing is enabled by
// setting WAYLAND_DEBUG to 1 or "server", matching libwayland.
package debug

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var enabled bool

func init() {
	v := os.Getenv("WAYLAND_DEBUG")
	if v == "server" {
		enabled = true
		return
	}
	level, err := strconv.ParseInt(v, 10, 0)
	if err != nil {
		return
	}
	enabled = level > 0
}

// Enabled reports whether wire tracing is on.
func Enabled() bool {
	return enabled
}

// Printf logs a trace line for a wire message.
func Printf(str string, args ...any) {
	if !enabled {
		return
	}
	logrus.WithField("component", "wire").Tracef(str, args...)
}
