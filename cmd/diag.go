package cmd

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// colorMode controls ANSI color output in diagnostics.
type colorMode int

const (
	colorAuto colorMode = iota
	colorOn
	colorOff
)

// resolveColor determines whether to emit ANSI color codes.
// Priority: WIRETRACE_COLOR env > NO_COLOR env > auto-detect stdout TTY.
func resolveColor() colorMode {
	if v := os.Getenv("WIRETRACE_COLOR"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return colorOn
		case "0", "false", "no", "off":
			return colorOff
		}
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return colorOff
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return colorOn
	}
	return colorOff
}

// ANSI escape helpers — return the input unchanged when color is off.
func red(s string, c colorMode) string {
	if c == colorOn {
		return "\033[31m" + s + "\033[0m"
	}
	return s
}

func green(s string, c colorMode) string {
	if c == colorOn {
		return "\033[32m" + s + "\033[0m"
	}
	return s
}

func bold(s string, c colorMode) string {
	if c == colorOn {
		return "\033[1m" + s + "\033[0m"
	}
	return s
}
