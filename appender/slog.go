package appender

import (
	"context"
	"log/slog"

	"github.com/abyssdigger/fwlgr"
)

// LevelVerbose is the slog level used for fwlgr.LVL_VERBOSE messages.
const LevelVerbose = slog.LevelDebug - 4

// Slog forwards messages to a *slog.Logger, with the source name and the raw
// stamp as attributes.
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates an appender over l, slog.Default() for nil.
func NewSlog(l *slog.Logger) *Slog {
	if l == nil {
		l = slog.Default()
	}
	return &Slog{logger: l}
}

func toSlogLevel(level fwlgr.LogLevel) slog.Level {
	switch level {
	case fwlgr.LVL_ERROR:
		return slog.LevelError
	case fwlgr.LVL_WARNING:
		return slog.LevelWarn
	case fwlgr.LVL_INFO:
		return slog.LevelInfo
	case fwlgr.LVL_DEBUG:
		return slog.LevelDebug
	default:
		return LevelVerbose
	}
}

// Append implements fwlgr.Appender. A probe is always answered ready.
func (s *Slog) Append(msg *fwlgr.Message) bool {
	if msg == nil {
		return true
	}
	s.logger.LogAttrs(context.Background(), toSlogLevel(msg.Level()), msg.Text(),
		slog.String("source", msg.Name()),
		slog.Int64("stamp", msg.Stamp().Raw()),
	)
	return true
}
