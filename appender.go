package fwlgr

import (
	"io"
	"sync"
)

// Appender is a log destination. Append delivers one message and reports
// whether the sink accepted it. A nil message is a probe: nothing is written
// and the result tells whether the sink is ready to accept output now.
//
// Appenders are called concurrently from any logging goroutine (or from the
// dispatch queue worker) and must not block indefinitely. An appender that
// also implements io.Closer is closed by Logging.Close.
type Appender interface {
	Append(msg *Message) bool
}

// Readier is implemented by outputs able to tell whether a write would succeed
// right now (a connected socket, an existing directory...).
type Readier interface {
	Ready() bool
}

// AppenderFunc adapts a function to the Appender interface.
// Function values are not comparable: every AddAppender registers a new entry
// and RemoveAppender never finds one, only ClearAppenders removes it. Use a
// pointer type implementing Appender when the appender must be removable.
type AppenderFunc func(msg *Message) bool

func (f AppenderFunc) Append(msg *Message) bool { return f(msg) }

/////////////////////////////////////////////////////////////////////////////////////////

// FormattingAppender renders messages with a Formatter and writes each one as a
// single line to a text output. A probe never reaches the output: the result
// comes from the output's Ready() if it implements Readier, true otherwise.
// The output is not owned: closing it is up to the caller.
type FormattingAppender struct {
	mu        sync.Mutex
	out       io.Writer
	formatter Formatter
	source    func() Formatter
}

// NewFormattingAppender creates a text appender over out. A nil formatter
// selects DefaultFormatter.
func NewFormattingAppender(out io.Writer, formatter Formatter) *FormattingAppender {
	if formatter == nil {
		formatter = DefaultFormatter
	}
	return &FormattingAppender{out: out, formatter: formatter}
}

// NewFormattingAppender creates a text appender over out bound to this logging
// context. A nil formatter makes the appender follow the context formatter
// (see SetFormatter) at every write.
func (lg *Logging) NewFormattingAppender(out io.Writer, formatter Formatter) *FormattingAppender {
	if formatter != nil {
		return NewFormattingAppender(out, formatter)
	}
	return &FormattingAppender{out: out, source: lg.Formatter}
}

// Output returns the text output of the appender.
func (fa *FormattingAppender) Output() io.Writer {
	return fa.out
}

func (fa *FormattingAppender) currentFormatter() Formatter {
	if fa.source != nil {
		return fa.source()
	}
	return fa.formatter
}

// Append implements Appender.
func (fa *FormattingAppender) Append(msg *Message) bool {
	if fa.out == nil {
		return false
	}
	if msg == nil {
		if r, ok := fa.out.(Readier); ok {
			return r.Ready()
		}
		return true
	}
	line := fa.currentFormatter()(msg)
	if line == nil {
		return true
	}
	line = append(line, '\n')
	fa.mu.Lock()
	defer fa.mu.Unlock()
	n, err := fa.out.Write(line)
	return err == nil && n == len(line)
}
