package fwlgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_DefaultFormatter(t *testing.T) {
	local := time.Date(2024, 5, 1, 12, 0, 0, 42*int(time.Millisecond), time.Local)
	tests := []struct {
		name string
		msg  *Message
		want string
	}{
		{"uptime", &Message{UptimeStamp(65042 * time.Millisecond), "boot", "hello", LVL_INFO},
			"0:00:01:05.0042 I boot  hello"},
		{"uptime_days", &Message{UptimeStamp(((49*24+23)*3600+59*60+59)*time.Second + 999*time.Millisecond), "up", "x", LVL_ERROR},
			"49:23:59:59.0999 E up  x"},
		{"uptime_zero", &Message{UptimeStamp(0), "", "x", LVL_VERBOSE},
			"0:00:00:00.0000 V   x"},
		{"wall", &Message{WallStamp(local), "net", "up", LVL_WARNING},
			"2024-05-01 12:00:00.0042 W net  up"},
		{"bad_level", &Message{UptimeStamp(0), "n", "x", 99},
			"0:00:00:00.0000 ? n  x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(DefaultFormatter(tt.msg)))
		})
	}
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, DefaultFormatter(nil))
	})
}

func Test_NewLayoutFormatter(t *testing.T) {
	local := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	wall := &Message{WallStamp(local), "net", "text", LVL_WARNING}
	up := &Message{UptimeStamp(65042 * time.Millisecond), "net", "text", LVL_WARNING}
	anon := &Message{UptimeStamp(0), "", "text", LVL_INFO}
	tests := []struct {
		name string
		opts LayoutOptions
		msg  *Message
		want string
	}{
		{"zero", LayoutOptions{}, wall, "net  text"},
		{"no_name", LayoutOptions{}, anon, "text"},
		{"time_wall", LayoutOptions{TimeFormat: time.TimeOnly}, wall, "12:00:00  net  text"},
		{"time_uptime", LayoutOptions{TimeFormat: time.TimeOnly}, up, "0:00:01:05.0042  net  text"},
		{"level_code", LayoutOptions{ShowLevelCode: true}, wall, "[3]net  text"},
		{"prefix", LayoutOptions{PrefixMap: LevelFullNames, Delimiter: " | "}, wall, "WARNING | net | text"},
		{"color", LayoutOptions{ColorMap: LevelColorOnBlackMap}, wall,
			ANSI_COL_PRFX + "0;33" + ANSI_COL_SUFX + "net  text" + ANSI_COL_RESET},
		{"all", LayoutOptions{TimeFormat: time.TimeOnly, ShowLevelCode: true, PrefixMap: LevelCodes, Delimiter: " "}, wall,
			"12:00:00 [3]W net text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(NewLayoutFormatter(tt.opts)(tt.msg)))
		})
	}
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, NewLayoutFormatter(LayoutOptions{})(nil))
	})
}

func Test_appendPadded(t *testing.T) {
	assert.Equal(t, "0042", string(appendPadded(nil, 42, 4)))
	assert.Equal(t, "12345", string(appendPadded(nil, 12345, 4)))
	assert.Equal(t, "x00", string(appendPadded([]byte("x"), 0, 2)))
}
