package fwlgr

/*
formatter.go

Message-to-text conversion used by text-oriented appenders and by the raw
output path when no appender is registered. A Formatter never sees a probe:
a nil message gives nil.
*/

import (
	"strconv"
)

// Formatter renders a message as one line of text without the line terminator.
// It must return nil for a nil message.
type Formatter func(msg *Message) []byte

const (
	_WALL_TIME_LAYOUT = "2006-01-02 15:04:05"
	_NAME_TEXT_DELIM  = "  "
)

// DefaultFormatter renders wall-clock stamps as
//
//	2024-05-01 12:00:00.0042 I name  text
//
// and uptime stamps as days:hh:mm:ss.mmmm
//
//	0:00:01:05.0042 I name  text
func DefaultFormatter(msg *Message) []byte {
	if msg == nil {
		return nil
	}
	buf := make([]byte, 0, 32+len(msg.name)+len(msg.text))
	buf = appendStamp(buf, msg.stamp)
	buf = append(buf, ' ', msg.level.Code(), ' ')
	buf = append(buf, msg.name...)
	buf = append(buf, _NAME_TEXT_DELIM...)
	buf = append(buf, msg.text...)
	return buf
}

func appendStamp(buf []byte, stamp Stamp) []byte {
	ms := stamp.Millis()
	if stamp.IsWall() {
		buf = stamp.Time().AppendFormat(buf, _WALL_TIME_LAYOUT)
		buf = append(buf, '.')
		return appendPadded(buf, ms%1000, 4)
	}
	millis := ms % 1000
	ms /= 1000
	seconds := ms % 60
	ms /= 60
	minutes := ms % 60
	ms /= 60
	hours := ms % 24
	days := ms / 24
	buf = strconv.AppendInt(buf, days, 10)
	buf = append(buf, ':')
	buf = appendPadded(buf, hours, 2)
	buf = append(buf, ':')
	buf = appendPadded(buf, minutes, 2)
	buf = append(buf, ':')
	buf = appendPadded(buf, seconds, 2)
	buf = append(buf, '.')
	return appendPadded(buf, millis, 4)
}

// Appends a non-negative value left-padded with zeroes to width digits.
func appendPadded(buf []byte, val int64, width int) []byte {
	var digits [20]byte
	s := strconv.AppendInt(digits[:0], val, 10)
	for i := len(s); i < width; i++ {
		buf = append(buf, '0')
	}
	return append(buf, s...)
}

/////////////////////////////////////////////////////////////////////////////////////////

// LayoutOptions configures a formatter built by NewLayoutFormatter. Zero value
// gives "name  text" without time or level decorations.
type LayoutOptions struct {
	TimeFormat    string    // time.Format layout for wall stamps, empty for no time
	ShowLevelCode bool      // prints a level id like "[4]" after the time
	PrefixMap     *LevelMap // per-level prefix (e.g. LevelFullNames)
	ColorMap      *LevelMap // per-level ANSI color spec, nil for no colors
	Delimiter     string    // placed after time, prefix and name
}

// NewLayoutFormatter returns a Formatter assembling the line from the optional
// parts of opts in the order: time, level id, prefix, color, name, text.
// Uptime stamps are printed in the days:hh:mm:ss.mmmm form when a time
// layout is set.
func NewLayoutFormatter(opts LayoutOptions) Formatter {
	delim := opts.Delimiter
	if delim == "" {
		delim = _NAME_TEXT_DELIM
	}
	return func(msg *Message) []byte {
		if msg == nil {
			return nil
		}
		level := normLevel(msg.level)
		withColor := false
		buf := make([]byte, 0, 48+len(msg.name)+len(msg.text))
		// optional time prefix
		if len(opts.TimeFormat) > 0 {
			if msg.stamp.IsWall() {
				buf = msg.stamp.Time().AppendFormat(buf, opts.TimeFormat)
			} else {
				buf = appendStamp(buf, msg.stamp)
			}
			buf = append(buf, delim...)
		}
		// optional numeric level id
		if opts.ShowLevelCode {
			buf = append(buf, '[', '0'+byte(level), ']')
		}
		// optional prefix map + delimiter
		if opts.PrefixMap != nil {
			buf = append(buf, opts.PrefixMap[level]...)
			buf = append(buf, delim...)
		}
		// optional color prefix (ANSI)
		if opts.ColorMap != nil {
			withColor = true
			buf = append(buf, ANSI_COL_PRFX...)
			buf = append(buf, opts.ColorMap[level]...)
			buf = append(buf, ANSI_COL_SUFX...)
		}
		if len(msg.name) > 0 {
			buf = append(buf, msg.name...)
			buf = append(buf, delim...)
		}
		buf = append(buf, msg.text...)
		if withColor {
			buf = append(buf, ANSI_COL_RESET...)
		}
		return buf
	}
}
