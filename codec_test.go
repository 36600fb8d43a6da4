package fwlgr

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_EncodeMessage(t *testing.T) {
	msg := NewMessage(LVL_WARNING, WallStamp(time.UnixMilli(1714564800042)), "net", testlogstr)
	data, err := EncodeMessage(msg)
	require.NoError(t, err)

	got, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	t.Run("deterministic", func(t *testing.T) {
		again, err := EncodeMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, data, again)
	})
	t.Run("nil", func(t *testing.T) {
		_, err := EncodeMessage(nil)
		assert.Error(t, err)
	})
}

func Test_DecodeMessage_Errors(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeMessage([]byte{0xff, 0x00})
		assert.ErrorContains(t, err, "decode record")
	})
	t.Run("invalid_level", func(t *testing.T) {
		data, err := cbor.Marshal(record{Stamp: 1, Level: uint8(LVL_DEFAULT), Text: "x"})
		require.NoError(t, err)
		_, err = DecodeMessage(data)
		assert.ErrorContains(t, err, _ERROR_MESSAGE_UNKNOWN_LEVEL)
	})
}

func Test_RecordStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	msgs := []*Message{
		NewMessage(LVL_ERROR, UptimeStamp(time.Second), "a", "first"),
		NewMessage(LVL_INFO, UptimeStamp(2*time.Second), "", "second"),
	}
	for _, m := range msgs {
		require.NoError(t, WriteRecord(enc, m))
	}
	assert.Error(t, WriteRecord(enc, nil))

	dec := NewDecoder(&buf)
	for _, want := range msgs {
		got, err := ReadRecord(dec)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ReadRecord(dec)
	assert.Equal(t, io.EOF, err)
}
