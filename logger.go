// A lightweight in-process logging pipeline for firmware-style programs.
// Per-source loggers build immutable messages which are filtered by a
// two-level severity rule and fanned out to an ordered set of appenders,
// either synchronously or through an optional dispatch queue. Appenders can
// be decorated with a bounded store-and-forward buffer, and the platform
// console and native log sink can be hooked so their output joins the same
// pipeline.
package fwlgr

import (
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/abyssdigger/fwlgr/platform"
	"go.uber.org/multierr"
)

const (
	// Error messages used across logging operations (used for testing).
	_ERROR_MESSAGE_APPENDER_PANIC = "panic appending log"
	_ERROR_MESSAGE_QUEUE_PANIC    = "panic proceeding log queue"
	_ERROR_MESSAGE_RECORD_ENCODE  = "error serializing buffered record"
	_ERROR_MESSAGE_RECORD_DECODE  = "error restoring buffered record"
	_ERROR_MESSAGE_CLOSE_FAILED   = "error closing appender"
)

// Watchdog is fed by the dispatch queue worker on every loop iteration.
type Watchdog interface {
	Feed()
}

// Logging is a logging context: the global level, the appender registry, the
// formatter, the optional dispatch queue and the platform hooks. Most programs
// use a single context, Default().
type Logging struct {
	sync struct {
		apndMtx sync.Mutex   // serializes appender registry changes
		fbckMtx sync.RWMutex // guards the fallback writer
		clntMtx sync.Mutex   // serializes lazy logger creation
		qeueMtx sync.Mutex   // serializes queue install/removal
		hookMtx sync.Mutex   // serializes hook install/removal
	}
	level     atomic.Uint32
	appenders atomic.Pointer[[]Appender] // copy-on-write registry, read lock-free
	formatter atomic.Pointer[Formatter]
	queue     atomic.Pointer[logQueue]
	watchdog  atomic.Pointer[Watchdog]
	clients   sync.Map // Loggable -> *Logger
	fallbck   io.Writer
	clock     Clock
	platform  *platform.Platform
	native    *nativeHook
	console   *consoleHook
}

var defaultLogging = sync.OnceValue(func() *Logging { return Init() })

// Default returns the process-wide logging context, created on first use over
// platform.Default.
func Default() *Logging {
	return defaultLogging()
}

// Short form of InitWithParams: default level, raw platform output as
// fallback, no appenders (so messages go to the raw output until appenders are
// added).
func Init(appenders ...Appender) *Logging {
	return InitWithParams(DEFAULT_LOG_LEVEL, platform.Default.Raw(), appenders...)
}

// InitWithParams constructs a logging context with explicit initial settings.
//
// The fallback writer receives the formatted messages when no appender is
// registered and the internal error reports (appender panics, serialization
// failures).
func InitWithParams(level LogLevel, fallback io.Writer, appenders ...Appender) *Logging {
	lg := new(Logging)
	lg.platform = platform.Default
	lg.clock = SystemClock(lg.platform.Boot())
	lg.SetLevel(level)
	lg.SetFallback(fallback)
	lg.SetFormatter(nil)
	lg.appenders.Store(&[]Appender{})
	for _, a := range appenders {
		lg.AddAppender(a)
	}
	return lg
}

// Sets the global level used by every logger whose own level is LVL_DEFAULT.
// LVL_DEFAULT itself is turned into DEFAULT_LOG_LEVEL.
func (lg *Logging) SetLevel(level LogLevel) *Logging {
	level = normLevel(level)
	if level == LVL_DEFAULT {
		level = DEFAULT_LOG_LEVEL
	}
	lg.level.Store(uint32(level))
	return lg
}

// Returns the global level.
func (lg *Logging) Level() LogLevel {
	return LogLevel(lg.level.Load())
}

// Sets the formatter used by the raw output path and by formatting appenders
// following the context. nil restores DefaultFormatter.
func (lg *Logging) SetFormatter(f Formatter) *Logging {
	if f == nil {
		f = DefaultFormatter
	}
	lg.formatter.Store(&f)
	return lg
}

// Returns the current formatter.
func (lg *Logging) Formatter() Formatter {
	return *lg.formatter.Load()
}

// Sets the fallback output used for raw output and to report internal errors,
// io.Discard is used instead of nil to silently drop them.
//
// The operation is protected by mutex for thread safety.
func (lg *Logging) SetFallback(f io.Writer) *Logging {
	lg.sync.fbckMtx.Lock()
	defer lg.sync.fbckMtx.Unlock()
	if f != nil {
		lg.fallbck = f
	} else {
		lg.fallbck = io.Discard
	}
	return lg
}

// Replaces the clock used to stamp messages. nil restores the system clock.
// Should be set before logging starts.
func (lg *Logging) SetClock(c Clock) *Logging {
	if c == nil {
		c = SystemClock(lg.platform.Boot())
	}
	lg.clock = c
	return lg
}

// Replaces the platform whose console and log sink are hooked. Should be set
// before any hook is installed.
func (lg *Logging) SetPlatform(p *platform.Platform) *Logging {
	if p == nil {
		p = platform.Default
	}
	lg.platform = p
	return lg
}

// Platform returns the platform bound to the context.
func (lg *Logging) Platform() *platform.Platform {
	return lg.platform
}

// Sets the watchdog fed by the dispatch queue worker, nil to remove.
func (lg *Logging) SetWatchdog(w Watchdog) *Logging {
	if w == nil {
		lg.watchdog.Store(nil)
	} else {
		lg.watchdog.Store(&w)
	}
	return lg
}

func (lg *Logging) feedWatchdog() {
	if w := lg.watchdog.Load(); w != nil {
		(*w).Feed()
	}
}

/////////////////////////////////////////////////////////////////////////////////////////
// Appender registry

// Appenders returns a snapshot of the registered appenders in delivery order.
func (lg *Logging) Appenders() []Appender {
	return slices.Clone(*lg.appenders.Load())
}

// Appends an appender to the delivery order. Nil and already registered
// appenders are ignored.
//
// Changes are applied immediately, messages already queued will be delivered
// to the updated set of appenders.
func (lg *Logging) AddAppender(a Appender) *Logging {
	if a == nil {
		return lg
	}
	lg.operateAppenders(func(list []Appender) []Appender {
		for _, item := range list {
			if sameAppender(item, a) {
				return list
			}
		}
		return append(list, a)
	})
	return lg
}

// Wraps the appender with a store-and-forward buffer, registers the wrapper
// and returns it.
func (lg *Logging) AddBufferedAppender(a Appender, opts BufferOptions) *BufferedAppender {
	ba := lg.NewBufferedAppender(a, opts)
	lg.AddAppender(ba)
	return ba
}

// Removes the appender, together with any buffered wrapper around it. Removed
// buffered wrappers are released (pending records are discarded) but the
// wrapped appender itself is not closed. No errors if the appender is not
// registered.
func (lg *Logging) RemoveAppender(a Appender) *Logging {
	if a == nil {
		return lg
	}
	var removed []Appender
	lg.operateAppenders(func(list []Appender) []Appender {
		kept := make([]Appender, 0, len(list))
		for _, item := range list {
			if sameAppender(item, a) || wraps(item, a) {
				removed = append(removed, item)
			} else {
				kept = append(kept, item)
			}
		}
		return kept
	})
	for _, item := range removed {
		if ba, ok := item.(*BufferedAppender); ok {
			ba.Release()
		}
	}
	return lg
}

// Removes all appenders. Buffered wrappers are released.
func (lg *Logging) ClearAppenders() *Logging {
	for _, a := range lg.detachAppenders() {
		if ba, ok := a.(*BufferedAppender); ok {
			ba.Release()
		}
	}
	return lg
}

func (lg *Logging) detachAppenders() (list []Appender) {
	lg.operateAppenders(func(old []Appender) []Appender {
		list = old
		return []Appender{}
	})
	return list
}

// Helper that builds a new registry slice with the operation while holding the
// registry mutex; readers keep using the previous snapshot.
func (lg *Logging) operateAppenders(operation func(list []Appender) []Appender) {
	lg.sync.apndMtx.Lock()
	defer lg.sync.apndMtx.Unlock()
	old := *lg.appenders.Load()
	list := operation(append(make([]Appender, 0, len(old)+1), old...))
	lg.appenders.Store(&list)
}

// Interface comparison panics on non-comparable dynamic types (AppenderFunc).
func sameAppender(a, b Appender) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

func wraps(item, a Appender) bool {
	ba, ok := item.(*BufferedAppender)
	return ok && sameAppender(ba.Wrapped(), a)
}

/////////////////////////////////////////////////////////////////////////////////////////

// Close tears the context down: hooks are removed, the dispatch queue is
// drained and stopped, buffered appenders make a last delivery attempt and
// every appender implementing io.Closer is closed. The registry is left empty
// so later messages go to the raw output. Safe to call more than once.
func (lg *Logging) Close() error {
	lg.HookNative(false)
	lg.HookConsole(0)
	lg.UseQueue(0, 0)
	var errs []error
	for _, a := range lg.detachAppenders() {
		if c, ok := a.(io.Closer); ok {
			if err := c.Close(); err != nil {
				lg.handleLogWriteError(_ERROR_MESSAGE_CLOSE_FAILED + ": " + err.Error())
				errs = append(errs, err)
			}
		}
	}
	return multierr.Combine(errs...)
}
