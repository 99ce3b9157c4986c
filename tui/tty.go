package tui

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether stdout is an interactive terminal, used to choose
// between ANSIAdapter and IncrementalAdapter.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
