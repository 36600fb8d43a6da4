package appender

import (
	"io"
	"os"
	"sync"

	"github.com/abyssdigger/fwlgr"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// CBORFile writes messages to a file as a stream of CBOR records, keeping
// level, source and stamp for later tooling. It is safe for concurrent use
// from multiple goroutines.
type CBORFile struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewCBORFile creates a CBORFile appender writing to the specified path.
// If the file exists, new records are appended. The file is created with
// permissions 0644 if it doesn't exist.
func NewCBORFile(path string) (*CBORFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open record file")
	}
	return &CBORFile{
		file:    f,
		encoder: fwlgr.NewEncoder(f),
	}, nil
}

// Append writes one record. A probe reports whether the file is still open.
func (c *CBORFile) Append(msg *fwlgr.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if msg == nil {
		return true
	}
	return fwlgr.WriteRecord(c.encoder, msg) == nil
}

// Close closes the file.
// It is safe to call Close multiple times.
// After Close is called, Append reports failure.
func (c *CBORFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.file.Close()
}

/////////////////////////////////////////////////////////////////////////////////////////

// CBORReader reads messages back from a record file.
// It provides an iterator interface for streaming large files.
type CBORReader struct {
	file    *os.File
	decoder *cbor.Decoder
}

// OpenCBORFile creates a reader over a record file.
func OpenCBORFile(path string) (*CBORReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open record file")
	}
	return &CBORReader{file: f, decoder: fwlgr.NewDecoder(f)}, nil
}

// Next returns the next message. Returns io.EOF when no more records are
// available.
func (r *CBORReader) Next() (*fwlgr.Message, error) {
	return fwlgr.ReadRecord(r.decoder)
}

// Close closes the underlying file.
func (r *CBORReader) Close() error {
	return r.file.Close()
}

// ReadCBORFile reads all messages of a record file.
func ReadCBORFile(path string) ([]*fwlgr.Message, error) {
	r, err := OpenCBORFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var list []*fwlgr.Message
	for {
		msg, err := r.Next()
		if err == io.EOF {
			return list, nil
		}
		if err != nil {
			return list, err
		}
		list = append(list, msg)
	}
}
