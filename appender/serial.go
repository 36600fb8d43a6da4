package appender

import (
	"io"
	"sync"

	"github.com/abyssdigger/fwlgr"
	"github.com/pkg/errors"
	"go.bug.st/serial"
)

const (
	// DefaultSerialBaud is the default serial baud for serial port writing.
	DefaultSerialBaud = 115200

	_ERROR_MESSAGE_SERIAL_NO_PORT = "serial appender: empty port name"
)

// SerialOptions contains the options for the serial appender.
type SerialOptions struct {
	// Port is the serial port name to be written to.
	Port string
	// Baud is the serial port baud, DefaultSerialBaud for 0.
	Baud      int
	Formatter fwlgr.Formatter
}

type portOpener func(name string, mode *serial.Mode) (io.WriteCloser, error)

func openSerialPort(name string, mode *serial.Mode) (io.WriteCloser, error) {
	return serial.Open(name, mode)
}

// Serial writes formatted lines to a serial port. The port is opened on first
// use and reopened after a write error; a probe reports whether it can be
// opened.
type Serial struct {
	*fwlgr.FormattingAppender
	out *serialOutput
}

type serialOutput struct {
	mu   sync.Mutex
	name string
	mode *serial.Mode
	open portOpener
	port io.WriteCloser
}

// NewSerial creates a serial appender.
func NewSerial(opts SerialOptions) (*Serial, error) {
	return newSerial(opts, openSerialPort)
}

func newSerial(opts SerialOptions, open portOpener) (*Serial, error) {
	if opts.Port == "" {
		return nil, errors.New(_ERROR_MESSAGE_SERIAL_NO_PORT)
	}
	if opts.Baud <= 0 {
		opts.Baud = DefaultSerialBaud
	}
	out := &serialOutput{
		name: opts.Port,
		mode: &serial.Mode{BaudRate: opts.Baud},
		open: open,
	}
	return &Serial{
		FormattingAppender: fwlgr.NewFormattingAppender(out, opts.Formatter),
		out:                out,
	}, nil
}

func (o *serialOutput) portLocked() (io.WriteCloser, error) {
	if o.port == nil {
		port, err := o.open(o.name, o.mode)
		if err != nil {
			return nil, errors.Wrapf(err, "open serial port %s", o.name)
		}
		o.port = port
	}
	return o.port, nil
}

func (o *serialOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	port, err := o.portLocked()
	if err != nil {
		return 0, err
	}
	n, err := port.Write(p)
	if err != nil {
		port.Close()
		o.port = nil
		return n, errors.Wrap(err, "write serial port")
	}
	if n != len(p) {
		return n, errors.Errorf("wrote %d bytes out of %d bytes", n, len(p))
	}
	return n, nil
}

func (o *serialOutput) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.portLocked()
	return err == nil
}

// Close closes the port.
func (s *Serial) Close() error {
	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	if s.out.port == nil {
		return nil
	}
	err := s.out.port.Close()
	s.out.port = nil
	return err
}
