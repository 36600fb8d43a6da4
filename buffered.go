package fwlgr

/*
buffered.go

Store-and-forward decorator for appenders that may be temporarily unable to
accept output (network sinks before the link is up, a card not mounted yet).

Every message is serialized into a bounded FIFO store first, then the store is
drained in order into the wrapped appender until it refuses a record. When a
new record does not fit, the oldest record gets one last delivery attempt and
is evicted whatever the outcome, until the new one fits. A record larger than
the whole store is dropped.

The record at the head of the store is kept decoded while it waits for the
sink, so repeated attempts do not decode it again; it still counts against
the capacity until it is delivered.

With auto release, the first drain that empties the store releases it for
good: from then on messages pass straight through to the wrapped appender.
*/

import (
	"sync"
	"sync/atomic"
)

// BufferOptions configures a BufferedAppender.
type BufferOptions struct {
	Size        int  // store capacity in bytes of serialized records
	AutoRelease bool // release the store once it has been emptied
	MaxDrain    int  // records forwarded per call, 0 for no limit
}

// DefaultBufferOptions returns DEFAULT_BUFFER_SIZE bytes with auto release.
func DefaultBufferOptions() BufferOptions {
	return BufferOptions{Size: DEFAULT_BUFFER_SIZE, AutoRelease: true}
}

// BufferStats is a snapshot of the decorator state.
type BufferStats struct {
	Records  int    // records waiting in the store (the head included)
	Bytes    int    // serialized size of the waiting records
	Evicted  uint64 // records removed to make room
	Dropped  uint64 // records that could not be stored at all
	Released bool
}

// BufferedAppender decorates an appender with a bounded store-and-forward
// buffer. It is an Appender itself and can be registered in place of the
// wrapped one.
type BufferedAppender struct {
	appender Appender
	opts     BufferOptions
	report   func(string)

	// serializes deliveries to the wrapped appender so records leave in order
	sendMtx sync.Mutex

	store struct {
		mu       sync.Mutex
		items    [][]byte
		used     int
		head     *Message // decoded record awaiting delivery
		headSize int
	}

	released atomic.Bool
	evicted  atomic.Uint64
	dropped  atomic.Uint64
}

// NewBufferedAppender wraps an appender. Internal errors are discarded, use
// Logging.NewBufferedAppender to have them reported to a fallback writer.
// A non-positive size selects DEFAULT_BUFFER_SIZE.
func NewBufferedAppender(a Appender, opts BufferOptions) *BufferedAppender {
	if opts.Size <= 0 {
		opts.Size = DEFAULT_BUFFER_SIZE
	}
	if opts.MaxDrain < 0 {
		opts.MaxDrain = 0
	}
	return &BufferedAppender{
		appender: a,
		opts:     opts,
		report:   func(string) {},
	}
}

// NewBufferedAppender wraps an appender reporting internal errors to the
// context fallback writer. The wrapper is not registered.
func (lg *Logging) NewBufferedAppender(a Appender, opts BufferOptions) *BufferedAppender {
	ba := NewBufferedAppender(a, opts)
	ba.report = lg.handleLogWriteError
	return ba
}

// Wrapped returns the decorated appender.
func (ba *BufferedAppender) Wrapped() Appender {
	return ba.appender
}

// Append stores the message and forwards what the wrapped appender accepts. A
// probe only forwards. Once released, calls go straight to the wrapped
// appender.
func (ba *BufferedAppender) Append(msg *Message) bool {
	if ba.released.Load() {
		return ba.appender.Append(msg)
	}
	ba.sendMtx.Lock()
	defer ba.sendMtx.Unlock()
	if ba.released.Load() {
		return ba.deliver(msg)
	}
	if msg != nil {
		ba.put(msg)
	}
	ba.drain()
	return true
}

// put stores one serialized record, evicting old records while it does not
// fit. Called with sendMtx held.
func (ba *BufferedAppender) put(msg *Message) {
	data, err := EncodeMessage(msg)
	if err != nil {
		ba.report(_ERROR_MESSAGE_RECORD_ENCODE + ": " + err.Error())
		ba.dropped.Add(1)
		return
	}
	for {
		ba.store.mu.Lock()
		if ba.store.used+len(data) <= ba.opts.Size {
			ba.store.items = append(ba.store.items, data)
			ba.store.used += len(data)
			ba.store.mu.Unlock()
			return
		}
		victim, ok := ba.evictLocked()
		ba.store.mu.Unlock()
		if !ok {
			// store is empty and the record is still too large
			ba.dropped.Add(1)
			return
		}
		ba.evicted.Add(1)
		if victim != nil {
			// last chance, the record is gone whatever the outcome
			ba.deliver(victim)
		}
	}
}

// evictLocked removes the oldest record and returns it decoded (nil when it
// cannot be decoded). ok is false when the store is empty.
func (ba *BufferedAppender) evictLocked() (victim *Message, ok bool) {
	s := &ba.store
	if s.head != nil {
		victim = s.head
		s.used -= s.headSize
		s.head, s.headSize = nil, 0
		return victim, true
	}
	if len(s.items) == 0 {
		return nil, false
	}
	data := s.items[0]
	s.items[0] = nil
	s.items = s.items[1:]
	s.used -= len(data)
	victim, err := DecodeMessage(data)
	if err != nil {
		ba.report(_ERROR_MESSAGE_RECORD_DECODE + ": " + err.Error())
		return nil, true
	}
	return victim, true
}

// drain forwards records in order until the wrapped appender refuses one, the
// store is empty or MaxDrain records were sent. Called with sendMtx held.
func (ba *BufferedAppender) drain() {
	s := &ba.store
	for sent := 0; ba.opts.MaxDrain == 0 || sent < ba.opts.MaxDrain; {
		s.mu.Lock()
		if s.head == nil {
			if len(s.items) == 0 {
				s.mu.Unlock()
				if ba.opts.AutoRelease {
					ba.Release()
				}
				return
			}
			data := s.items[0]
			s.items[0] = nil
			s.items = s.items[1:]
			msg, err := DecodeMessage(data)
			if err != nil {
				s.used -= len(data)
				s.mu.Unlock()
				ba.report(_ERROR_MESSAGE_RECORD_DECODE + ": " + err.Error())
				continue
			}
			s.head, s.headSize = msg, len(data)
		}
		head := s.head
		s.mu.Unlock()

		if !ba.deliver(head) {
			return
		}

		s.mu.Lock()
		if s.head == head {
			s.used -= s.headSize
			s.head, s.headSize = nil, 0
		}
		s.mu.Unlock()
		sent++
	}
}

// deliver calls the wrapped appender, a panic counts as a refusal.
func (ba *BufferedAppender) deliver(msg *Message) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			ba.report(_ERROR_MESSAGE_APPENDER_PANIC + panicDesc(r))
		}
	}()
	return ba.appender.Append(msg)
}

// Release frees the store, discarding pending records, and switches to pass
// through. Only the first call has an effect.
func (ba *BufferedAppender) Release() {
	s := &ba.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if ba.released.Swap(true) {
		return
	}
	s.items = nil
	s.used = 0
	s.head, s.headSize = nil, 0
}

// Released reports whether the store has been released.
func (ba *BufferedAppender) Released() bool {
	return ba.released.Load()
}

// Stats returns a snapshot of the decorator state.
func (ba *BufferedAppender) Stats() BufferStats {
	s := &ba.store
	s.mu.Lock()
	defer s.mu.Unlock()
	records := len(s.items)
	if s.head != nil {
		records++
	}
	return BufferStats{
		Records:  records,
		Bytes:    s.used,
		Evicted:  ba.evicted.Load(),
		Dropped:  ba.dropped.Load(),
		Released: ba.released.Load(),
	}
}

// Close makes a last delivery attempt of the pending records, releases the
// store and closes the wrapped appender when it is an io.Closer.
func (ba *BufferedAppender) Close() error {
	if !ba.released.Load() {
		ba.sendMtx.Lock()
		ba.drain()
		ba.sendMtx.Unlock()
		ba.Release()
	}
	if c, ok := ba.appender.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
