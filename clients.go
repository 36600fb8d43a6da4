package fwlgr

import (
	"fmt"
	"sync"
	"sync/atomic"
)

/*
clients.go

Per-source loggers. A Logger is a thin handle bound to one Loggable (a named
program part: module, driver, goroutine...) carrying its own level. It is
created lazily on first use and cached by the owning Logging for the source's
lifetime (see Forget).

The level filter runs before anything is allocated: a filtered call costs
two atomic loads. An accepted call builds exactly one Message and hands it to
the dispatch path of the owning Logging.

Concurrency notes:
  - Logger methods are safe for concurrent use.
  - The level used by Write (set with Lvl) is shared by all goroutines using
    the same logger as io.Writer, so the Lvl+Write pair is not atomic.
*/

// Loggable is a source of log messages. LogName is read once per message and
// copied into it. Implementations must be comparable (they are used as cache
// keys).
type Loggable interface {
	LogName() string
}

// Named is the simplest Loggable: a name.
type Named string

func (n Named) LogName() string { return string(n) }

// Logger is the per-source logging handle.
type Logger struct {
	logging  *Logging
	source   Loggable
	level    atomic.Uint32
	curLevel atomic.Uint32 // Used only for io.Writer usage
}

// LoggerFor returns the logger of the source, creating it with LVL_DEFAULT on
// first use. Concurrent first calls for one source get the same logger.
func (lg *Logging) LoggerFor(src Loggable) *Logger {
	if lc, ok := lg.clients.Load(src); ok {
		return lc.(*Logger)
	}
	lg.sync.clntMtx.Lock()
	defer lg.sync.clntMtx.Unlock()
	if lc, ok := lg.clients.Load(src); ok {
		return lc.(*Logger)
	}
	lc := &Logger{logging: lg, source: src}
	lc.level.Store(uint32(LVL_DEFAULT))
	lc.curLevel.Store(uint32(LVL_INFO))
	lg.clients.Store(src, lc)
	return lc
}

// Named returns the logger of a Named source.
func (lg *Logging) Named(name string) *Logger {
	return lg.LoggerFor(Named(name))
}

// System returns the logger used for captured platform output.
func (lg *Logging) System() *Logger {
	return lg.Named(SYSTEM_SOURCE_NAME)
}

// Forget drops the cached logger of a source that is going away. Messages
// already built keep their own copy of the name.
func (lg *Logging) Forget(src Loggable) *Logging {
	lg.clients.Delete(src)
	return lg
}

/////////////////////////////////////////////////////////////////////////////////////////

// Name returns the current source name.
func (lc *Logger) Name() string {
	return lc.source.LogName()
}

// Source returns the loggable the logger is bound to.
func (lc *Logger) Source() Loggable {
	return lc.source
}

// Level returns the own level of the logger (LVL_DEFAULT: follow the global one).
func (lc *Logger) Level() LogLevel {
	return LogLevel(lc.level.Load())
}

// SetLevel sets the own level of the logger, LVL_DEFAULT to follow the global
// level again.
func (lc *Logger) SetLevel(level LogLevel) *Logger {
	lc.level.Store(uint32(normLevel(level)))
	return lc
}

// Enabled reports whether a message of the level would pass the filter.
func (lc *Logger) Enabled(level LogLevel) bool {
	return emit(lc.Level(), lc.logging.Level(), level)
}

// Log sends a text at the level. Texts that are empty or whitespace only are
// dropped, trailing line terminators are removed.
func (lc *Logger) Log(level LogLevel, s string) {
	if !lc.Enabled(level) {
		return
	}
	if msg := NewMessage(level, stampNow(lc.logging.clock), lc.source.LogName(), s); msg != nil {
		lc.logging.dispatch(msg)
	}
}

// LogBytes is the bytes variant of Log.
func (lc *Logger) LogBytes(level LogLevel, data []byte) {
	if !lc.Enabled(level) || len(data) == 0 {
		return
	}
	lc.Log(level, string(data))
}

var formatBufs = sync.Pool{
	New: func() any {
		b := make([]byte, 0, DEFAULT_FORMAT_BUFF)
		return &b
	},
}

// Logf formats and sends a text at the level. Formatting uses a small reused
// buffer and grows on the heap only for longer results. An empty format is
// ignored.
func (lc *Logger) Logf(level LogLevel, format string, args ...any) {
	if format == "" || !lc.Enabled(level) {
		return
	}
	bp := formatBufs.Get().(*[]byte)
	buf := fmt.Appendf((*bp)[:0], format, args...)
	lc.Log(level, string(buf))
	if cap(buf) <= DEFAULT_FORMAT_BUFF {
		*bp = buf
		formatBufs.Put(bp)
	}
}

// Convenience level-specific helpers, thin wrappers around Log and Logf.

func (lc *Logger) Error(s string) { lc.Log(LVL_ERROR, s) }
func (lc *Logger) Errorf(format string, args ...any) { lc.Logf(LVL_ERROR, format, args...) }
func (lc *Logger) Warn(s string) { lc.Log(LVL_WARNING, s) }
func (lc *Logger) Warnf(format string, args ...any) { lc.Logf(LVL_WARNING, format, args...) }
func (lc *Logger) Info(s string) { lc.Log(LVL_INFO, s) }
func (lc *Logger) Infof(format string, args ...any) { lc.Logf(LVL_INFO, format, args...) }
func (lc *Logger) Debug(s string) { lc.Log(LVL_DEBUG, s) }
func (lc *Logger) Debugf(format string, args ...any) { lc.Logf(LVL_DEBUG, format, args...) }
func (lc *Logger) Verbose(s string) { lc.Log(LVL_VERBOSE, s) }
func (lc *Logger) Verbosef(format string, args ...any) {
	lc.Logf(LVL_VERBOSE, format, args...)
}

// LogErr logs an error value at ERROR level, nil is ignored.
func (lc *Logger) LogErr(e error) {
	if e != nil {
		lc.Log(LVL_ERROR, e.Error())
	}
}

/////////////////////////////////////////////////////////////////////////////////////
// io.Writer interface implementation
//
// The Logger implements io.Writer so it can be used with fmt.Fprintf and
// other writers-based APIs:
//  - Lvl(level) sets the level used by subsequent Write calls (LVL_INFO
//    initially).
//  - Write(p) logs the bytes at that level and always returns len(p).
//
//   fmt.Fprintf(logger.Lvl(LVL_WARNING), "disk low: %d%%", percent)

// Lvl sets the level used by Write and returns the same logger for chaining.
func (lc *Logger) Lvl(level LogLevel) *Logger {
	lc.curLevel.Store(uint32(normLevel(level)))
	return lc
}

// Write implements io.Writer. Filtered and empty writes are not errors.
func (lc *Logger) Write(p []byte) (n int, err error) {
	if p == nil {
		return 0, nil
	}
	lc.LogBytes(LogLevel(lc.curLevel.Load()), p)
	return len(p), nil
}
