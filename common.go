package fwlgr

/*
Package-wide types, constants and helpers used by the pipeline:
  - LogLevel enum, one-letter codes and level maps
  - default sizes and timings
  - ANSI/color related constants
  - severity resolution, normalization and prefix detection helpers
*/

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

type basetype byte // basetype is the underlying byte-sized representation used for enums

// LogLevel is the message severity. Values are ordered from the most restrictive
// to the most verbose; a logger threshold lets through every level that is less
// or equal to it.
type LogLevel basetype

// LevelMap is a fixed-size array with one entry per log level. Used for level
// codes, names and colors.
type LevelMap [_LVL_MAX_for_checks_only]string

const (
	// Log level values. LVL_DEFAULT is not a threshold but means "inherit from
	// the enclosing scope" (per-source logger -> global level). The trailing
	// _LVL_MAX_for_checks_only is used as an exclusive upper bound.
	LVL_NONE LogLevel = iota
	LVL_DEFAULT
	LVL_ERROR
	LVL_WARNING
	LVL_INFO
	LVL_DEBUG
	LVL_VERBOSE
	_LVL_MAX_for_checks_only
)

const (
	// Default values for short init forms
	DEFAULT_LOG_LEVEL    = LVL_DEBUG
	DEFAULT_QUEUE_SIZE   = 256                    // messages held by the dispatch queue
	DEFAULT_BUFFER_SIZE  = 1024                   // bytes of serialized records in a buffered appender
	DEFAULT_CONSOLE_BUFF = 128                    // console hook line buffer
	DEFAULT_FORMAT_BUFF  = 64                     // Logf buffer kept off the heap
	DEFAULT_ENQUEUE_WAIT = 10 * time.Millisecond  // bounded wait before a queued message is dropped
	DEFAULT_POLL_PERIOD  = 100 * time.Millisecond // worker wait when no flush period is set
	DEFAULT_HOOK_WAIT    = 10 * time.Millisecond  // bounded wait for a busy hook before a call is dropped
	SYSTEM_SOURCE_NAME   = "system"
)

const (
	// ANSI colored text fragments prefix/suffix used when colors are requested.
	// For a colored piece of text the sequence will be:
	// ANSI_COL_PRFX + colorSpec + ANSI_COL_SUFX + text + ANSI_COL_RESET
	ANSI_COL_PRFX  = "\033["
	ANSI_COL_SUFX  = "m"
	ANSI_COL_RESET = ANSI_COL_PRFX + "0" + ANSI_COL_SUFX
)

const (
	_ERROR_MESSAGE_UNKNOWN_LEVEL = "unknown log level"
	_ERROR_UNKNOWN_PANIC_TEXT    = "[no panic description]"
)

/////////////////////////////////////////////////////////////////////////////////////////

// One-letter level codes used by the default formatter and the prefix convention
var LevelCodes = &LevelMap{
	"?", //LVL_NONE
	"?", //LVL_DEFAULT
	"E", //LVL_ERROR
	"W", //LVL_WARNING
	"I", //LVL_INFO
	"D", //LVL_DEBUG
	"V", //LVL_VERBOSE
}

// Predefined log level full names map
var LevelFullNames = &LevelMap{
	"NONE",    //LVL_NONE
	"DEFAULT", //LVL_DEFAULT
	"ERROR",   //LVL_ERROR
	"WARNING", //LVL_WARNING
	"INFO",    //LVL_INFO
	"DEBUG",   //LVL_DEBUG
	"VERBOSE", //LVL_VERBOSE
}

// Predefined color map for ANSI terminal
var LevelColorOnBlackMap = &LevelMap{
	"9;90", //LVL_NONE
	"9;90", //LVL_DEFAULT
	"0;91", //LVL_ERROR
	"0;33", //LVL_WARNING
	"0;97", //LVL_INFO
	"0;90", //LVL_DEBUG
	"2;90", //LVL_VERBOSE
}

// String returns the full level name ("INFO", "DEBUG"...) or "UNKNOWN".
func (level LogLevel) String() string {
	if level < _LVL_MAX_for_checks_only {
		return LevelFullNames[level]
	}
	return "UNKNOWN"
}

// Code returns the one-letter level code ('E', 'W', 'I', 'D', 'V' or '?').
func (level LogLevel) Code() byte {
	return LevelCodes[normLevel(level)][0]
}

// ParseLevel converts a level name or a one-letter code (case insensitive) to
// a LogLevel. "warn" is accepted as an alias of "warning".
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARN" {
		return LVL_WARNING, nil
	}
	for level := range _LVL_MAX_for_checks_only {
		if name == LevelFullNames[level] {
			return level, nil
		}
	}
	if len(name) == 1 {
		if level, ok := charToLevel(name[0]); ok {
			return level, nil
		}
	}
	return LVL_NONE, errors.Errorf("%s: %q", _ERROR_MESSAGE_UNKNOWN_LEVEL, s)
}

// Generic byte normalization helper.
func norm_byte[T ~byte](val, overlimit, def T) T {
	if val < overlimit {
		return val
	} else {
		return def
	}
}

// Ensures a provided LogLevel is within the valid range
func normLevel(level LogLevel) LogLevel {
	return norm_byte(level, _LVL_MAX_for_checks_only, LVL_NONE)
}

// emit is the severity resolution rule. The effective threshold is the own
// (per-source) level unless it is LVL_DEFAULT, in which case the global level
// is used. LVL_NONE and LVL_DEFAULT are never valid message levels.
func emit(own, global, level LogLevel) bool {
	if own == LVL_DEFAULT {
		own = global
	}
	return level >= LVL_ERROR && level < _LVL_MAX_for_checks_only && level <= own
}

// Maps a one-letter code to its level.
func charToLevel(c byte) (LogLevel, bool) {
	switch c {
	case 'E':
		return LVL_ERROR, true
	case 'W':
		return LVL_WARNING, true
	case 'I':
		return LVL_INFO, true
	case 'D':
		return LVL_DEBUG, true
	case 'V':
		return LVL_VERBOSE, true
	}
	return LVL_NONE, false
}

// detectLevel recovers a level from the conventional text prefix used by
// platform output: "[X]..." or "X ..." where X is a level code. The prefix is
// stripped when recognized, otherwise the text is returned unchanged with
// LVL_DEBUG. It is a heuristic: a message body starting with "I " is parsed
// as an info line too.
func detectLevel(s string) (LogLevel, string) {
	var code byte
	skip := 0
	if len(s) > 4 && s[0] == '[' && s[2] == ']' {
		code, skip = s[1], 3
	} else if len(s) > 2 && s[1] == ' ' {
		code, skip = s[0], 2
	}
	if level, ok := charToLevel(code); ok {
		return level, s[skip:]
	}
	return LVL_DEBUG, s
}

// Converts a panic value into a compact readable string (used when
// translating panics into fallback messages)
func panicDesc(panic any) (errtext string) {
	switch v := panic.(type) {
	case string:
		errtext = ": `" + v + "`"
	case error:
		errtext = ": (error) `" + v.Error() + "`"
	default:
		errtext = " " + _ERROR_UNKNOWN_PANIC_TEXT
	}
	return errtext
}
