package fwlgr

/*
hooks.go

Capture of platform output into the pipeline:
  - the native formatted-log sink (platform.SetVprintf), used by platform and
    third-party code through platform.Logf
  - the character driver (platform.SetPutc), assembled into lines

Both hooks log through the logging pipeline, whose own sinks may print
through the very driver being hooked. Each hook therefore carries an atomic
re-entrancy flag. A call finding the flag taken waits up to
DEFAULT_HOOK_WAIT for it, so concurrent callers from other goroutines take
turns, and is dropped after that: a recursive call never sees the flag
released.
*/

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abyssdigger/fwlgr/platform"
)

type nativeHook struct {
	logging   *Logging
	platform  *platform.Platform
	prev      platform.VprintfFunc
	recursion atomic.Int32

	// two-stage convention state, only touched while recursion is held.
	// Pairs from different goroutines may interleave between their two calls.
	pending      bool
	pendingName  string
	pendingLevel LogLevel
}

// HookNative installs (true) or removes (false) the capture of the platform
// native log sink. Installing twice or removing when not installed is a no-op.
// The previous sink is restored on removal.
//
// Two conventions are recognized:
//   - two-stage: a call with format platform.MetaFormat carries the level
//     letter and the tag, the next call carries the text which is logged
//     through the logger named after the tag
//   - single-stage: any other call is logged by the system logger, the level
//     taken from a "[X]" or "X " text prefix (LVL_DEBUG without one)
func (lg *Logging) HookNative(install bool) *Logging {
	lg.sync.hookMtx.Lock()
	defer lg.sync.hookMtx.Unlock()
	switch {
	case install && lg.native == nil:
		h := &nativeHook{logging: lg, platform: lg.platform}
		h.prev = h.platform.SetVprintf(h.vprintf)
		lg.native = h
	case !install && lg.native != nil:
		lg.native.platform.SetVprintf(lg.native.prev)
		lg.native = nil
	}
	return lg
}

// IsNativeHooked reports whether the native log sink is captured.
func (lg *Logging) IsNativeHooked() bool {
	lg.sync.hookMtx.Lock()
	defer lg.sync.hookMtx.Unlock()
	return lg.native != nil
}

// enterHook takes a re-entrancy flag, waiting a bounded time while another
// call holds it.
func enterHook(flag *atomic.Int32) bool {
	if flag.CompareAndSwap(0, 1) {
		return true
	}
	deadline := time.Now().Add(DEFAULT_HOOK_WAIT)
	for time.Now().Before(deadline) {
		runtime.Gosched()
		if flag.CompareAndSwap(0, 1) {
			return true
		}
	}
	return false
}

func (h *nativeHook) vprintf(format string, args ...any) int {
	if !enterHook(&h.recursion) {
		return 0
	}
	defer h.recursion.Store(0)
	switch {
	case h.pending:
		h.pending = false
		h.logging.Named(h.pendingName).Logf(h.pendingLevel, format, args...)
	case format == platform.MetaFormat && len(args) >= 3:
		h.pendingLevel = argLevel(args[0])
		h.pendingName = argName(args[2])
		h.pending = true
	default:
		level, rest := detectLevel(format)
		h.logging.System().Logf(level, rest, args...)
	}
	return len(format)
}

// Level letter of the metadata call, LVL_DEBUG when it is not recognized.
func argLevel(arg any) LogLevel {
	var c byte
	switch v := arg.(type) {
	case byte:
		c = v
	case rune:
		c = byte(v)
	case int:
		c = byte(v)
	case string:
		if len(v) > 0 {
			c = v[0]
		}
	}
	if level, ok := charToLevel(c); ok {
		return level
	}
	return LVL_DEBUG
}

func argName(arg any) string {
	if s, ok := arg.(string); ok {
		return s
	}
	return fmt.Sprint(arg)
}

/////////////////////////////////////////////////////////////////////////////////////////

type consoleHook struct {
	logging   *Logging
	platform  *platform.Platform
	prev      platform.PutcFunc
	size      int
	recursion atomic.Int32

	mu  sync.Mutex
	buf []byte
}

// HookConsole installs the capture of the platform character driver with a
// line buffer of bufsize bytes. Lines are flushed on '\n' or when the buffer is
// full and logged by the system logger with the level taken from the text
// prefix. bufsize 0 removes the hook and restores the previous driver, the
// same size as the installed hook is a no-op, another size replaces the hook.
// A partial line still buffered at removal is discarded.
func (lg *Logging) HookConsole(bufsize int) *Logging {
	lg.sync.hookMtx.Lock()
	defer lg.sync.hookMtx.Unlock()
	if bufsize < 0 {
		bufsize = DEFAULT_CONSOLE_BUFF
	}
	old := lg.console
	if old != nil && old.size == bufsize {
		return lg
	}
	if old != nil {
		old.platform.SetPutc(old.prev)
		lg.console = nil
	}
	if bufsize > 0 {
		h := &consoleHook{
			logging:  lg,
			platform: lg.platform,
			size:     bufsize,
			buf:      make([]byte, 0, bufsize),
		}
		h.prev = h.platform.SetPutc(h.putc)
		lg.console = h
	}
	return lg
}

// ConsoleBufferSize returns the line buffer size of the installed console
// hook, 0 when not installed.
func (lg *Logging) ConsoleBufferSize() int {
	lg.sync.hookMtx.Lock()
	defer lg.sync.hookMtx.Unlock()
	if lg.console == nil {
		return 0
	}
	return lg.console.size
}

func (h *consoleHook) putc(c byte) {
	if !enterHook(&h.recursion) {
		return
	}
	defer h.recursion.Store(0)
	h.mu.Lock()
	// one byte stays free as on the device, where the line is terminated in place
	if c == '\n' || len(h.buf) >= h.size-1 {
		line := string(h.buf)
		h.buf = h.buf[:0]
		h.mu.Unlock()
		level, text := detectLevel(line)
		h.logging.System().Log(level, text)
		h.mu.Lock()
	}
	if c != '\n' && c != '\r' {
		h.buf = append(h.buf, c)
	}
	h.mu.Unlock()
}
