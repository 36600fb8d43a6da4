package fwlgr

import (
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAppender struct {
	mock.Mock
}

func (m *MockAppender) Append(msg *Message) bool {
	args := m.Called(msg)
	return args.Bool(0)
}

func Test_Logging_dispatch_Order(t *testing.T) {
	var order []string
	mk := func(name string) Appender {
		return AppenderFunc(func(msg *Message) bool {
			order = append(order, name+":"+msg.Text())
			return true
		})
	}
	lg := newTestLogging(io.Discard, mk("a"), mk("b"), mk("c"))
	src := lg.Named("src")
	src.Info("m1")
	src.Info("m2")
	assert.Equal(t, []string{"a:m1", "b:m1", "c:m1", "a:m2", "b:m2", "c:m2"}, order)
}

func Test_Logging_dispatch_SameMessage(t *testing.T) {
	var got []*Message
	collect := AppenderFunc(func(msg *Message) bool {
		got = append(got, msg)
		return true
	})
	lg := newTestLogging(io.Discard, collect, AppenderFunc(collect))
	lg.Named("src").Warn("shared")
	if assert.Len(t, got, 2) {
		assert.Same(t, got[0], got[1], "one message is shared by all appenders")
		assert.Equal(t, LVL_WARNING, got[0].Level())
		assert.Equal(t, "src", got[0].Name())
		assert.Equal(t, UptimeStamp(bootClock.up), got[0].Stamp())
	}
}

func Test_Logging_dispatch_NoAppenders(t *testing.T) {
	ferr := &FakeWriter{}
	lg := newTestLogging(ferr)
	lg.Named("boot").Info("hello")
	assert.Equal(t, "0:00:01:05.0042 I boot  hello\n", ferr.String())

	t.Run("custom_formatter", func(t *testing.T) {
		ferr.Clear()
		lg.SetFormatter(NewLayoutFormatter(LayoutOptions{}))
		lg.Named("boot").Error("again")
		assert.Equal(t, "boot  again\n", ferr.String())
	})
}

func Test_Logging_dispatch_Panics(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", panicStr, ": `" + panicStr + "`"},
		{"error", io.ErrClosedPipe, ": (error) `" + io.ErrClosedPipe.Error() + "`"},
		{"nil_error", &runtime.PanicNilError{}, ": (error) `"},
		{"zero", 0, " " + _ERROR_UNKNOWN_PANIC_TEXT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ferr := &FakeWriter{}
			after := newFakeAppender(true)
			lg := newTestLogging(ferr, &PanicAppender{tt.value}, after)
			assert.NotPanics(t, func() { lg.Named("src").Info("survives") })
			assert.Equal(t, []string{"survives"}, after.Texts(), "later appenders still served")
			assert.True(t, strings.HasPrefix(ferr.String(), _ERROR_MESSAGE_APPENDER_PANIC+tt.want))
		})
	}
}

func Test_Logging_Probe(t *testing.T) {
	m := &MockAppender{}
	m.On("Append", (*Message)(nil)).Return(true).Once()
	ready, notReady := newFakeAppender(true), newFakeAppender(false)
	lg := newTestLogging(io.Discard, m, ready)
	assert.True(t, lg.Probe())
	m.AssertExpectations(t)
	assert.Equal(t, 1, ready.Probes())
	assert.Empty(t, ready.Calls())

	lg.AddAppender(notReady)
	m.On("Append", (*Message)(nil)).Return(true).Once()
	assert.False(t, lg.Probe())
	assert.Equal(t, 1, notReady.Probes())
	m.AssertExpectations(t)

	t.Run("empty", func(t *testing.T) {
		assert.True(t, newTestLogging(io.Discard).Probe())
	})
}

func Test_Logging_fanOut_ProbeWithoutAppenders(t *testing.T) {
	ferr := &FakeWriter{}
	lg := newTestLogging(ferr)
	assert.NotPanics(t, func() { lg.fanOut(nil) })
	assert.Empty(t, ferr.String())
}
