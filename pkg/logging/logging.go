package logging

import (
	"os"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
)

// Verbosity levels passed to logr.Logger.V.
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// ParseLevel maps a level name to its verbosity. Unknown names map to INFO.
func ParseLevel(name string) int {
	switch name {
	case "debug":
		return DEBUG
	case "trace":
		return TRACE
	default:
		return INFO
	}
}

// ColorEnabled reports whether output written to f should be colored. Colors are disabled when f is not a
// terminal or when the NO_COLOR convention is honored by fatih/color.
func ColorEnabled(f *os.File) bool {
	if f == nil || color.NoColor {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewTerminalLogger returns a SimpleLogSink based logger writing to stderr, colored when stderr is a terminal.
func NewTerminalLogger(minVerbosity int) logr.Logger {
	return NewSimpleLogger(os.Stderr, minVerbosity, ColorEnabled(os.Stderr))
}
