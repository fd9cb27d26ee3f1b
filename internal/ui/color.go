package ui

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ShouldUseColor reports whether CLI output should be styled. Precedence:
// NO_COLOR disables, CLICOLOR_FORCE enables even when piped, otherwise
// color requires a terminal on stdout that supports it.
func ShouldUseColor() bool {
	if termenv.EnvNoColor() {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" && os.Getenv("CLICOLOR_FORCE") != "0" {
		return true
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}
