// Package ttyguard keeps terminal capability probes out of machine-readable
// output. Import it for its side effect before anything touches lipgloss.
package ttyguard

import (
	"os"
	"strings"
)

// RobotEnvVar forces non-interactive handling regardless of flags.
const RobotEnvVar = "CASEPICK_ROBOT"

// init runs before Bubble Tea or lipgloss query the terminal.
//
// Termenv background detection writes OSC/DSR sequences to stdout, which
// corrupts robot-mode JSON when stdout is a captured PTY. Termenv skips the
// probe when CI is set.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !shouldSuppressTTYQueries(os.Args, os.Getenv(RobotEnvVar) == "1") {
		return
	}
	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envRobot bool) bool {
	if envRobot {
		return true
	}
	for _, arg := range args {
		switch strings.TrimLeft(arg, "-") {
		case "robot", "robot=true", "version", "help", "h":
			return strings.HasPrefix(arg, "-")
		}
	}
	return false
}
