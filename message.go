package fwlgr

import (
	"strings"
	"time"
)

// Wall-clock time is considered established once the clock reports a year
// later than this one. Before that, stamps carry uptime.
const _WALL_CLOCK_MIN_YEAR = 2016

// Stamp is a message timestamp in milliseconds. It is either time since boot
// (uptime) or milliseconds since the Unix epoch (wall clock). Raw() gives the
// compact sign-encoded form: non-negative for uptime, negated for wall clock.
type Stamp struct {
	ms   int64
	wall bool
}

// UptimeStamp makes a stamp from a duration since boot.
func UptimeStamp(d time.Duration) Stamp {
	return Stamp{ms: d.Milliseconds()}
}

// WallStamp makes a wall-clock stamp.
func WallStamp(t time.Time) Stamp {
	return Stamp{ms: t.UnixMilli(), wall: true}
}

// StampFromRaw decodes the sign-encoded form produced by Raw.
func StampFromRaw(raw int64) Stamp {
	if raw < 0 {
		return Stamp{ms: -raw, wall: true}
	}
	return Stamp{ms: raw}
}

// IsWall reports whether the stamp holds wall-clock time rather than uptime.
func (s Stamp) IsWall() bool { return s.wall }

// Millis returns the stamp value in milliseconds, since the epoch for a wall
// stamp and since boot otherwise.
func (s Stamp) Millis() int64 { return s.ms }

// Raw returns the sign-encoded stamp.
func (s Stamp) Raw() int64 {
	if s.wall {
		return -s.ms
	}
	return s.ms
}

// Time returns the wall-clock time of the stamp in the local zone. Only
// meaningful when IsWall() is true.
func (s Stamp) Time() time.Time {
	return time.UnixMilli(s.ms)
}

// Uptime returns the time since boot of an uptime stamp.
func (s Stamp) Uptime() time.Duration {
	return time.Duration(s.ms) * time.Millisecond
}

// Clock provides the time sources used to stamp messages.
type Clock interface {
	Now() time.Time
	Uptime() time.Duration
}

type systemClock struct {
	boot time.Time
}

// SystemClock returns a Clock using the host time with uptime counted from boot.
func SystemClock(boot time.Time) Clock {
	return systemClock{boot: boot}
}

func (c systemClock) Now() time.Time        { return time.Now() }
func (c systemClock) Uptime() time.Duration { return time.Since(c.boot) }

func stampNow(c Clock) Stamp {
	if now := c.Now(); now.Year() > _WALL_CLOCK_MIN_YEAR {
		return WallStamp(now)
	}
	return UptimeStamp(c.Uptime())
}

/////////////////////////////////////////////////////////////////////////////////////////

// Message is one immutable log record. It is created once per log call and
// shared read-only by every appender it is delivered to; it is released when
// the last holder drops it.
type Message struct {
	stamp Stamp
	name  string
	text  string
	level LogLevel
}

// NewMessage builds a message with trailing line terminators removed from
// text. It returns nil for a level that cannot be emitted or a text that is
// empty or whitespace only.
func NewMessage(level LogLevel, stamp Stamp, name, text string) *Message {
	if level < LVL_ERROR || level >= _LVL_MAX_for_checks_only || isBlank(text) {
		return nil
	}
	return &Message{
		stamp: stamp,
		name:  name,
		text:  trimText(text),
		level: level,
	}
}

// Level returns the severity the message was logged with.
func (m *Message) Level() LogLevel { return m.level }

// Stamp returns the time the message was created.
func (m *Message) Stamp() Stamp { return m.stamp }

// Name returns the name of the logger that produced the message.
func (m *Message) Name() string { return m.name }

// Text returns the formatted message text.
func (m *Message) Text() string { return m.text }

func trimText(s string) string {
	return strings.TrimRight(s, "\r\n")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
