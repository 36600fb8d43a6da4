package appender

import (
	"net"
	"sync"
	"time"

	"github.com/abyssdigger/fwlgr"
	"github.com/pkg/errors"
)

const (
	DefaultUDPWriteTimeout = time.Second

	_ERROR_MESSAGE_UDP_NO_ADDRESS = "udp appender: empty address"
	_ERROR_MESSAGE_OFFLINE        = "network is offline"
)

// UDPOptions configures a UDP appender.
type UDPOptions struct {
	Address      string      // host:port of the collector
	Online       func() bool // link state, nil for always online
	WriteTimeout time.Duration
	Formatter    fwlgr.Formatter
}

// UDP sends every formatted line as one datagram. The socket is created on
// first use and dropped after a send error, so the next attempt starts over.
// While the link is reported offline nothing is sent and probes answer false,
// which keeps a buffered wrapper holding its records.
type UDP struct {
	*fwlgr.FormattingAppender
	out *udpOutput
}

type udpOutput struct {
	mu      sync.Mutex
	address string
	online  func() bool
	timeout time.Duration
	conn    net.Conn
}

// NewUDP creates a UDP appender.
func NewUDP(opts UDPOptions) (*UDP, error) {
	if opts.Address == "" {
		return nil, errors.New(_ERROR_MESSAGE_UDP_NO_ADDRESS)
	}
	if opts.Online == nil {
		opts.Online = func() bool { return true }
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultUDPWriteTimeout
	}
	out := &udpOutput{address: opts.Address, online: opts.Online, timeout: opts.WriteTimeout}
	return &UDP{
		FormattingAppender: fwlgr.NewFormattingAppender(out, opts.Formatter),
		out:                out,
	}, nil
}

// connLocked returns the socket, dialing it when needed.
func (o *udpOutput) connLocked() (net.Conn, error) {
	if o.conn == nil {
		conn, err := net.Dial("udp", o.address)
		if err != nil {
			return nil, errors.Wrapf(err, "dial %s", o.address)
		}
		o.conn = conn
	}
	return o.conn, nil
}

func (o *udpOutput) Write(p []byte) (int, error) {
	if !o.online() {
		return 0, errors.New(_ERROR_MESSAGE_OFFLINE)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	conn, err := o.connLocked()
	if err != nil {
		return 0, err
	}
	conn.SetWriteDeadline(time.Now().Add(o.timeout))
	n, err := conn.Write(p)
	if err != nil {
		conn.Close()
		o.conn = nil
		return n, errors.Wrap(err, "send datagram")
	}
	return n, nil
}

func (o *udpOutput) Ready() bool {
	if !o.online() {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.connLocked()
	return err == nil
}

// Close closes the socket.
func (u *UDP) Close() error {
	u.out.mu.Lock()
	defer u.out.mu.Unlock()
	if u.out.conn == nil {
		return nil
	}
	err := u.out.conn.Close()
	u.out.conn = nil
	return err
}
