package platform

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Platform_Raw(t *testing.T) {
	var raw bytes.Buffer
	p := New(&raw)
	p.RawWritec('a')
	p.RawWrite([]byte("bc"))
	fmt.Fprint(p.Raw(), "d")
	assert.Equal(t, "abcd", raw.String())

	assert.NotPanics(t, func() { New(nil).RawWrite([]byte("x")) })
	assert.NotNil(t, Default)
}

func Test_Platform_Putc(t *testing.T) {
	var raw, hooked bytes.Buffer
	p := New(&raw)

	p.Printf("%d", 1)
	assert.Equal(t, "1", raw.String(), "raw driver by default")

	prev := p.SetPutc(func(c byte) { hooked.WriteByte(c) })
	assert.Nil(t, prev)
	p.Putc('x')
	n, err := p.Write([]byte("yz"))
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, p.Printf("%s!", "abc"))
	assert.Equal(t, "xyzabc!", hooked.String())
	assert.Equal(t, "1", raw.String())

	p.RawWrite([]byte("raw"))
	assert.Equal(t, "1raw", raw.String(), "raw output bypasses the driver")

	prev = p.SetPutc(nil)
	assert.NotNil(t, prev)
	p.Putc('2')
	assert.Equal(t, "1raw2", raw.String())
}

func Test_Platform_Vprintf(t *testing.T) {
	var raw bytes.Buffer
	p := New(&raw)
	assert.Equal(t, 5, p.Vprintf("%s-%d", "abc", 1))
	assert.Equal(t, "abc-1", raw.String(), "default sink prints")

	type call struct {
		format string
		args   []any
	}
	var calls []call
	prev := p.SetVprintf(func(format string, args ...any) int {
		calls = append(calls, call{format, args})
		return 0
	})
	assert.Nil(t, prev)
	p.Logf('W', "wifi", "retry %d", 3)
	if assert.Len(t, calls, 2) {
		assert.Equal(t, MetaFormat, calls[0].format)
		if assert.Len(t, calls[0].args, 3) {
			assert.Equal(t, byte('W'), calls[0].args[0])
			assert.IsType(t, int64(0), calls[0].args[1])
			assert.Equal(t, "wifi", calls[0].args[2])
		}
		assert.Equal(t, "retry %d\n", calls[1].format)
		assert.Equal(t, []any{3}, calls[1].args)
	}

	p.SetVprintf(nil)
	raw.Reset()
	p.Logf('E', "tag", "boom")
	assert.Regexp(t, `^E \(\d+\) tag:boom\n$`, raw.String())
}

func Test_Platform_Uptime(t *testing.T) {
	p := New(nil)
	assert.WithinDuration(t, time.Now(), p.Boot(), time.Second)
	assert.GreaterOrEqual(t, p.Uptime(), time.Duration(0))
}
