// Package cliui renders CLI output with terminal-aware styling: plain text
// when stdout is piped or redirected, light color and spinner progress when
// it's an interactive terminal, per §10.5.
package cliui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether the NO_COLOR convention is in effect.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// UseStyling reports whether w should receive colored, column-aligned output
// rather than plain text, per §10.5's "style when stdout is a terminal" rule.
func UseStyling(w io.Writer) bool {
	return IsTTY(w) && !DetectNoColor()
}
