package fwlgr

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// record is the serialized form of a Message: used by the buffering store and
// by binary record files. Integer keys keep it compact.
type record struct {
	Stamp int64  `cbor:"1,keyasint"`
	Level uint8  `cbor:"2,keyasint"`
	Name  string `cbor:"3,keyasint,omitempty"`
	Text  string `cbor:"4,keyasint"`
}

var recEncMode cbor.EncMode
var recDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}
	recEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create record CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
		UTF8:        cbor.UTF8DecodeInvalid, // texts are raw bytes from the console
	}
	recDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create record CBOR decoder mode: %v", err))
	}
}

func toRecord(m *Message) record {
	return record{
		Stamp: m.stamp.Raw(),
		Level: uint8(m.level),
		Name:  m.name,
		Text:  m.text,
	}
}

func (r *record) message() (*Message, error) {
	level := LogLevel(r.Level)
	if level < LVL_ERROR || level >= _LVL_MAX_for_checks_only {
		return nil, errors.Errorf("%s: %d", _ERROR_MESSAGE_UNKNOWN_LEVEL, r.Level)
	}
	return &Message{
		stamp: StampFromRaw(r.Stamp),
		name:  r.Name,
		text:  r.Text,
		level: level,
	}, nil
}

// EncodeMessage serializes a message to CBOR bytes.
func EncodeMessage(m *Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("nil message")
	}
	return recEncMode.Marshal(toRecord(m))
}

// DecodeMessage rebuilds a message from CBOR bytes.
func DecodeMessage(data []byte) (*Message, error) {
	var r record
	if err := recDecMode.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "decode record")
	}
	return r.message()
}

// NewEncoder creates a CBOR encoder for records that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return recEncMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder for records that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return recDecMode.NewDecoder(r)
}

// WriteRecord encodes one message into a record stream.
func WriteRecord(enc *cbor.Encoder, m *Message) error {
	if m == nil {
		return errors.New("nil message")
	}
	return enc.Encode(toRecord(m))
}

// ReadRecord decodes the next message of a record stream. It returns io.EOF
// at the end of the stream.
func ReadRecord(dec *cbor.Decoder) (*Message, error) {
	var r record
	if err := dec.Decode(&r); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read record")
	}
	return r.message()
}
