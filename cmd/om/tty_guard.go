package main

import (
	"os"
	"strings"
)

// init runs before Bubble Tea acquires the terminal.
//
// Lipgloss background detection can write OSC/DSR queries to stdout, which
// corrupts the JSON of -robot-dump when a PTY captures it. Setting CI=1 makes
// termenv skip the query for non-interactive invocations.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !shouldSuppressTTYQueries(os.Args[1:], os.Getenv("OM_ROBOT") == "1", os.Getenv("OM_TEST_MODE") != "") {
		return
	}
	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envRobot, envTest bool) bool {
	if envRobot || envTest {
		return true
	}
	for _, arg := range args {
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		switch name {
		case "robot-dump", "export", "version", "help":
			return true
		}
	}
	return false
}
