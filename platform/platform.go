// Package platform emulates the firmware console primitives the logging
// pipeline intercepts: a replaceable character output driver, a raw output
// path bypassing any hook, and a replaceable formatted-log sink used by
// platform and third-party code.
package platform

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// MetaFormat is the format of the first of the two calls platform logging
// makes per entry: level letter, uptime in milliseconds and tag. The second
// call carries the message text.
const MetaFormat = "%c (%d) %s:"

// PutcFunc is a character output driver.
type PutcFunc func(c byte)

// VprintfFunc is a formatted-log sink. It returns the number of characters
// produced.
type VprintfFunc func(format string, args ...any) int

// Platform holds the current console driver and log sink. The zero value is
// not usable, use New.
type Platform struct {
	mu      sync.RWMutex
	putc    PutcFunc
	vprintf VprintfFunc

	rawMtx sync.Mutex
	raw    io.Writer
	boot   time.Time
}

// Default is the process-wide platform writing to os.Stderr.
var Default = New(os.Stderr)

// New creates a platform whose raw output goes to raw (io.Discard for nil).
func New(raw io.Writer) *Platform {
	if raw == nil {
		raw = io.Discard
	}
	return &Platform{raw: raw, boot: time.Now()}
}

// Boot returns the time the platform was created.
func (p *Platform) Boot() time.Time {
	return p.boot
}

// Uptime returns the time elapsed since boot.
func (p *Platform) Uptime() time.Duration {
	return time.Since(p.boot)
}

/////////////////////////////////////////////////////////////////////////////////////////
// Raw output

// RawWritec writes one character straight to the raw output.
func (p *Platform) RawWritec(c byte) {
	p.RawWrite([]byte{c})
}

// RawWrite writes b straight to the raw output, bypassing the installed
// character driver.
func (p *Platform) RawWrite(b []byte) (int, error) {
	p.rawMtx.Lock()
	defer p.rawMtx.Unlock()
	return p.raw.Write(b)
}

type rawWriter struct{ p *Platform }

func (w rawWriter) Write(b []byte) (int, error) { return w.p.RawWrite(b) }

// Raw returns an io.Writer view of the raw output.
func (p *Platform) Raw() io.Writer {
	return rawWriter{p}
}

/////////////////////////////////////////////////////////////////////////////////////////
// Character driver

// SetPutc installs a character driver and returns the previous one (nil when
// the default raw driver was in place). A nil fn restores the raw driver.
func (p *Platform) SetPutc(fn PutcFunc) (prev PutcFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev, p.putc = p.putc, fn
	return prev
}

// Putc outputs one character through the current driver.
func (p *Platform) Putc(c byte) {
	p.mu.RLock()
	fn := p.putc
	p.mu.RUnlock()
	if fn != nil {
		fn(c)
	} else {
		p.RawWritec(c)
	}
}

// Write outputs b character by character through the current driver.
func (p *Platform) Write(b []byte) (int, error) {
	p.mu.RLock()
	fn := p.putc
	p.mu.RUnlock()
	if fn == nil {
		return p.RawWrite(b)
	}
	for _, c := range b {
		fn(c)
	}
	return len(b), nil
}

// Printf formats and outputs through the current driver.
func (p *Platform) Printf(format string, args ...any) int {
	n, _ := fmt.Fprintf(p, format, args...)
	return n
}

/////////////////////////////////////////////////////////////////////////////////////////
// Formatted log sink

// SetVprintf installs a formatted-log sink and returns the previous one (nil
// when the default sink was in place). A nil fn restores the default sink,
// which prints through the character driver.
func (p *Platform) SetVprintf(fn VprintfFunc) (prev VprintfFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev, p.vprintf = p.vprintf, fn
	return prev
}

// Vprintf passes one formatted-log call to the current sink.
func (p *Platform) Vprintf(format string, args ...any) int {
	p.mu.RLock()
	fn := p.vprintf
	p.mu.RUnlock()
	if fn != nil {
		return fn(format, args...)
	}
	return p.Printf(format, args...)
}

// Logf is the platform logging entry point: one metadata call in MetaFormat
// followed by the text call. level is a letter among E, W, I, D, V.
func (p *Platform) Logf(level byte, tag, format string, args ...any) {
	p.Vprintf(MetaFormat, level, p.Uptime().Milliseconds(), tag)
	p.Vprintf(format+"\n", args...)
}
