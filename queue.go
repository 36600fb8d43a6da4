package fwlgr

/*
queue.go

Optional dispatch queue. With a queue installed, logging goroutines only hand
messages over to a bounded channel and a single worker goroutine fans them out
to the appenders, so slow sinks do not stall the callers.

Enqueueing waits at most DEFAULT_ENQUEUE_WAIT for room, then the message is
dropped. Admission and shutdown exclude each other: a message routed to a
queue that has been stopped meanwhile is dispatched again through the
current path instead of being left in a channel nobody reads. The worker feeds the watchdog on every iteration and, with a flush
period set, probes every appender when no message arrived during a period so
buffered appenders retry their pending records.
*/

import (
	"sync"
	"sync/atomic"
	"time"
)

type logQueue struct {
	logging *Logging
	channel chan *Message
	size    int
	period  time.Duration
	stop    chan struct{}
	waitEnd sync.WaitGroup
	dropped atomic.Uint64

	admit  sync.RWMutex // held for reading while a message is handed over
	closed bool
}

// UseQueue installs, resizes or removes the dispatch queue.
//   - size > 0 with no queue: a queue of size messages is started
//   - same size as the current queue: no-op (the flush period is kept)
//   - another size: the current queue is drained and stopped, a new one started
//   - size 0: the queue is drained and removed, dispatch becomes synchronous
//
// A negative size selects DEFAULT_QUEUE_SIZE. flushPeriod <= 0 disables
// periodic probing.
func (lg *Logging) UseQueue(size int, flushPeriod time.Duration) *Logging {
	if size < 0 {
		size = DEFAULT_QUEUE_SIZE
	}
	lg.sync.qeueMtx.Lock()
	defer lg.sync.qeueMtx.Unlock()
	old := lg.queue.Load()
	if old != nil && old.size == size {
		return lg
	}
	if old != nil {
		lg.queue.Store(nil)
		old.stopAndWait()
	}
	if size > 0 {
		q := &logQueue{
			logging: lg,
			channel: make(chan *Message, size),
			size:    size,
			period:  flushPeriod,
			stop:    make(chan struct{}),
		}
		q.waitEnd.Go(func() { q.procced() })
		lg.queue.Store(q)
	}
	return lg
}

// QueueSize returns the capacity of the installed queue, 0 without queue.
func (lg *Logging) QueueSize() int {
	if q := lg.queue.Load(); q != nil {
		return q.size
	}
	return 0
}

// QueueDropped returns the number of messages dropped by the installed queue
// because it stayed full.
func (lg *Logging) QueueDropped() uint64 {
	if q := lg.queue.Load(); q != nil {
		return q.dropped.Load()
	}
	return 0
}

// enqueue hands the message over to the worker, waiting a bounded time for
// room. It reports false when the message was dropped. A stopped queue
// passes the message back to dispatch.
func (q *logQueue) enqueue(msg *Message) bool {
	ok, closed := q.push(msg)
	if closed {
		q.logging.dispatch(msg)
		return true
	}
	return ok
}

func (q *logQueue) push(msg *Message) (ok, closed bool) {
	q.admit.RLock()
	defer q.admit.RUnlock()
	if q.closed {
		return false, true
	}
	select {
	case q.channel <- msg:
		return true, false
	default:
	}
	timer := time.NewTimer(DEFAULT_ENQUEUE_WAIT)
	defer timer.Stop()
	select {
	case q.channel <- msg:
		return true, false
	case <-timer.C:
	}
	q.dropped.Add(1)
	return false, false
}

// procced is the worker loop. It runs until stop is closed, then delivers
// whatever is still in the channel.
func (q *logQueue) procced() {
	defer func() {
		if r := recover(); r != nil {
			q.logging.handleLogWriteError(_ERROR_MESSAGE_QUEUE_PANIC + panicDesc(r))
		}
	}()
	wait := q.period
	if wait <= 0 {
		wait = DEFAULT_POLL_PERIOD
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		q.logging.feedWatchdog()
		select {
		case <-q.stop:
			q.drain()
			return
		case msg := <-q.channel:
			q.logging.fanOut(msg)
		case <-timer.C:
			if q.period > 0 {
				q.logging.fanOut(nil)
			}
		}
		timer.Reset(wait)
	}
}

func (q *logQueue) drain() {
	for {
		select {
		case msg := <-q.channel:
			q.logging.fanOut(msg)
		default:
			return
		}
	}
}

// stopAndWait closes admission, then lets the worker drain and exit. No
// message can enter the channel after the final drain.
func (q *logQueue) stopAndWait() {
	q.admit.Lock()
	q.closed = true
	close(q.stop)
	q.admit.Unlock()
	q.waitEnd.Wait()
}
