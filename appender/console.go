// Package appender provides the concrete log destinations of the pipeline:
// console, rotating files, UDP, serial port, MQTT, binary record files and a
// bridge to log/slog. Text appenders are built on fwlgr.FormattingAppender and
// answer probes from the state of their output.
package appender

import (
	"io"

	"github.com/abyssdigger/fwlgr"
	"github.com/abyssdigger/fwlgr/platform"
	"github.com/mattn/go-isatty"
)

// Layout of the colored console lines.
const ConsoleTimeFormat = "2006-01-02 15:04:05.000"

// Console writes formatted lines to a terminal-like output.
type Console struct {
	*fwlgr.FormattingAppender
}

// NewConsole creates a console appender over w. With a nil formatter, lines are
// colored by level when w is a terminal and use fwlgr.DefaultFormatter
// otherwise.
func NewConsole(w io.Writer, formatter fwlgr.Formatter) *Console {
	if formatter == nil {
		formatter = fwlgr.DefaultFormatter
		if IsTerminal(w) {
			formatter = ColorFormatter()
		}
	}
	return &Console{fwlgr.NewFormattingAppender(w, formatter)}
}

// NewPlatformConsole creates a console appender over the raw output of p, the
// path bypassing any character driver hook so captured console output never
// loops back into the pipeline.
func NewPlatformConsole(p *platform.Platform, formatter fwlgr.Formatter) *Console {
	if p == nil {
		p = platform.Default
	}
	return NewConsole(p.Raw(), formatter)
}

// ColorFormatter renders "time L name text" with name and text colored by
// level.
func ColorFormatter() fwlgr.Formatter {
	return fwlgr.NewLayoutFormatter(fwlgr.LayoutOptions{
		TimeFormat: ConsoleTimeFormat,
		PrefixMap:  fwlgr.LevelCodes,
		ColorMap:   fwlgr.LevelColorOnBlackMap,
		Delimiter:  " ",
	})
}

// IsTerminal reports whether w is (or wraps) a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	switch typed := w.(type) {
	case interface{ Underlying() io.Writer }:
		return IsTerminal(typed.Underlying())
	case interface{ Fd() uintptr }:
		fd := typed.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	default:
		return false
	}
}
