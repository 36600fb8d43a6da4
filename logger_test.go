package fwlgr

import (
	"errors"
	"io"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abyssdigger/fwlgr/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testlogstr = "Test log АБВ こんにちは, 世界`'é\"\\\x5A\254\a\b\t\f\vи други глупости!"
const panicStr = "panic generated in appender"
const errorStr = "error generated in writer"

type PanicWriter struct{}

func (p *PanicWriter) Write(b []byte) (int, error) { panic(panicStr) }

type ErrorWriter struct{}

func (e *ErrorWriter) Write(b []byte) (int, error) { return 0, errors.New(errorStr) }

type FakeWriter struct {
	mu     sync.Mutex
	buffer []byte
}

func (f *FakeWriter) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffer = append(f.buffer, b...)
	return len(b), nil
}
func (f *FakeWriter) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.buffer)
}
func (f *FakeWriter) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffer = f.buffer[:0]
}

// FakeAppender records every delivery attempt and answers with ready.
type FakeAppender struct {
	mu     sync.Mutex
	ready  bool
	calls  []string // texts of every attempt, accepted or not
	texts  []string // texts of accepted messages
	probes int
	closed int
}

func newFakeAppender(ready bool) *FakeAppender {
	return &FakeAppender{ready: ready}
}

func (f *FakeAppender) Append(msg *Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg == nil {
		f.probes++
		return f.ready
	}
	f.calls = append(f.calls, msg.Text())
	if f.ready {
		f.texts = append(f.texts, msg.Text())
	}
	return f.ready
}

func (f *FakeAppender) SetReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = ready
}

func (f *FakeAppender) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *FakeAppender) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeAppender) Probes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

// ClosingAppender is a FakeAppender implementing io.Closer.
type ClosingAppender struct {
	FakeAppender
	err error
}

func (c *ClosingAppender) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.err
}

type PanicAppender struct{ value any }

func (p *PanicAppender) Append(msg *Message) bool { panic(p.value) }

type fixedClock struct {
	now time.Time
	up  time.Duration
}

func (c fixedClock) Now() time.Time        { return c.now }
func (c fixedClock) Uptime() time.Duration { return c.up }

// Before the wall clock is set: stamps carry uptime 0:00:01:05.0042.
var bootClock = fixedClock{now: time.Unix(0, 0), up: 65042 * time.Millisecond}

// newTestLogging returns a context over a private platform with a fixed clock,
// reporting to ferr.
func newTestLogging(ferr io.Writer, appenders ...Appender) *Logging {
	lg := InitWithParams(LVL_DEBUG, ferr, appenders...)
	lg.SetPlatform(platform.New(io.Discard)).SetClock(bootClock)
	return lg
}

/////////////////////////////////////////////////////////////////////////////////////////

func Test_Logging_Init(t *testing.T) {
	lg := Init()
	assert.Equal(t, DEFAULT_LOG_LEVEL, lg.Level())
	assert.Empty(t, lg.Appenders())
	assert.NotNil(t, lg.Formatter())
	assert.Same(t, platform.Default, lg.Platform())
	assert.Zero(t, lg.QueueSize())

	a1, a2 := newFakeAppender(true), newFakeAppender(true)
	lg = InitWithParams(LVL_ERROR, nil, a1, nil, a2)
	assert.Equal(t, LVL_ERROR, lg.Level())
	assert.Equal(t, []Appender{a1, a2}, lg.Appenders())
	assert.Equal(t, io.Discard, lg.fallbck)
}

func Test_Logging_Default(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func Test_Logging_SetLevel(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		want  LogLevel
	}{
		{"none", LVL_NONE, LVL_NONE},
		{"default_is_replaced", LVL_DEFAULT, DEFAULT_LOG_LEVEL},
		{"error", LVL_ERROR, LVL_ERROR},
		{"verbose", LVL_VERBOSE, LVL_VERBOSE},
		{"overlimit", _LVL_MAX_for_checks_only + 3, LVL_NONE},
	}
	lg := Init()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, lg, lg.SetLevel(tt.level))
			assert.Equal(t, tt.want, lg.Level())
		})
	}
}

func Test_Logging_SetFormatter(t *testing.T) {
	lg := Init()
	custom := func(msg *Message) []byte { return nil }
	lg.SetFormatter(custom)
	assert.Nil(t, lg.Formatter()(&Message{text: "x", level: LVL_INFO}))
	lg.SetFormatter(nil)
	assert.NotNil(t, lg.Formatter()(&Message{text: "x", level: LVL_INFO}))
}

func Test_Logging_AddAppender(t *testing.T) {
	t.Run("add_1_16", func(t *testing.T) {
		for i := range 16 {
			lg := Init()
			var list []Appender
			for range i + 1 {
				a := newFakeAppender(true)
				list = append(list, a)
				assert.Same(t, lg, lg.AddAppender(a))
			}
			assert.Equal(t, list, lg.Appenders(), "wrong order or quantity")
		}
	})
	t.Run("add_clones", func(t *testing.T) {
		lg := Init()
		a := newFakeAppender(true)
		lg.AddAppender(a).AddAppender(a).AddAppender(a)
		assert.Len(t, lg.Appenders(), 1)
	})
	t.Run("add_nil", func(t *testing.T) {
		lg := Init()
		assert.NotPanics(t, func() { lg.AddAppender(nil) })
		assert.Empty(t, lg.Appenders())
	})
	t.Run("add_funcs", func(t *testing.T) {
		lg := Init()
		f := AppenderFunc(func(msg *Message) bool { return true })
		assert.NotPanics(t, func() { lg.AddAppender(f).AddAppender(f) })
		assert.Len(t, lg.Appenders(), 2, "functions are not comparable")
		assert.NotPanics(t, func() { lg.RemoveAppender(f) })
		assert.Len(t, lg.Appenders(), 2, "removal cannot match a function")
		lg.ClearAppenders()
		assert.Empty(t, lg.Appenders())
	})
	t.Run("snapshot_is_a_copy", func(t *testing.T) {
		lg := Init(newFakeAppender(true))
		list := lg.Appenders()
		list[0] = nil
		assert.NotNil(t, lg.Appenders()[0])
	})
}

func Test_Logging_RemoveAppender(t *testing.T) {
	a1, a2, a3 := newFakeAppender(true), newFakeAppender(false), newFakeAppender(true)
	lg := newTestLogging(io.Discard, a1)
	ba := lg.AddBufferedAppender(a2, DefaultBufferOptions())
	lg.AddAppender(a3)
	require.Equal(t, []Appender{a1, ba, a3}, lg.Appenders())

	lg.Named("src").Info("kept in buffer")
	require.Equal(t, 1, ba.Stats().Records)

	t.Run("wrapped_removes_wrapper", func(t *testing.T) {
		lg.RemoveAppender(a2)
		assert.Equal(t, []Appender{a1, a3}, lg.Appenders())
		assert.True(t, ba.Released())
		assert.Zero(t, ba.Stats().Records)
	})
	t.Run("absent", func(t *testing.T) {
		assert.NotPanics(t, func() { lg.RemoveAppender(newFakeAppender(true)).RemoveAppender(nil) })
		assert.Len(t, lg.Appenders(), 2)
	})
	t.Run("order_kept", func(t *testing.T) {
		lg.AddAppender(a2)
		lg.RemoveAppender(a3)
		assert.Equal(t, []Appender{a1, a2}, lg.Appenders())
	})
	t.Run("clear", func(t *testing.T) {
		ba2 := lg.AddBufferedAppender(a3, DefaultBufferOptions())
		lg.ClearAppenders()
		assert.Empty(t, lg.Appenders())
		assert.True(t, ba2.Released())
	})
}

func Test_Logging_SetFallback(t *testing.T) {
	ferr := &FakeWriter{}
	lg := newTestLogging(ferr)
	lg.AddAppender(&PanicAppender{panicStr})
	lg.Named("src").Error("boom")
	assert.Contains(t, ferr.String(), _ERROR_MESSAGE_APPENDER_PANIC+": `"+panicStr+"`\n")

	lg.SetFallback(nil)
	assert.NotPanics(t, func() { lg.Named("src").Error("boom") })
	assert.Equal(t, io.Discard, lg.fallbck)
}

func Test_Logging_Close(t *testing.T) {
	ferr := &FakeWriter{}
	plain := newFakeAppender(true)
	closing := &ClosingAppender{FakeAppender: FakeAppender{ready: false}}
	failing := &ClosingAppender{err: errors.New(errorStr)}
	lg := newTestLogging(ferr, plain, failing)
	ba := lg.AddBufferedAppender(closing, DefaultBufferOptions())
	lg.UseQueue(8, 0).HookNative(true).HookConsole(16)

	lg.Named("src").Info("pending")
	require.Eventually(t, func() bool { return ba.Stats().Records == 1 }, time.Second, time.Millisecond)
	closing.SetReady(true)

	err := lg.Close()
	assert.ErrorContains(t, err, errorStr)
	assert.Contains(t, ferr.String(), _ERROR_MESSAGE_CLOSE_FAILED)
	assert.Equal(t, []string{"pending"}, closing.Texts(), "last delivery attempt on close")
	assert.Equal(t, 1, closing.closed)
	assert.Equal(t, 1, failing.closed)
	assert.True(t, ba.Released())
	assert.Empty(t, lg.Appenders())
	assert.Zero(t, lg.QueueSize())
	assert.False(t, lg.IsNativeHooked())
	assert.Zero(t, lg.ConsoleBufferSize())

	t.Run("twice", func(t *testing.T) {
		assert.NoError(t, lg.Close())
		assert.Equal(t, 1, closing.closed)
	})
	t.Run("raw_after_close", func(t *testing.T) {
		ferr.Clear()
		lg.Named("src").Info("after")
		assert.True(t, strings.HasSuffix(ferr.String(), " I src  after\n"))
	})
}

func Test_Logging_ConcurrentRegistry(t *testing.T) {
	lg := newTestLogging(io.Discard)
	src := lg.Named("src")
	var wg sync.WaitGroup
	for range runtime.GOMAXPROCS(0) {
		wg.Go(func() {
			for range 100 {
				a := newFakeAppender(true)
				lg.AddAppender(a)
				src.Info("concurrent")
				lg.RemoveAppender(a)
			}
		})
	}
	wg.Wait()
	assert.Empty(t, lg.Appenders())
}
