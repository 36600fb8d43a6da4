package fwlgr

/*
proceed.go

The dispatch path shared by synchronous logging and the queue worker:
  - routing a message to the raw output when no appender is registered
  - handing it to the dispatch queue when one is installed
  - fanning it out to the appenders in registration order
  - error reporting to the fallback writer

No lock is held while an appender runs: fan-out works on the registry
snapshot taken when the message is delivered. Appender panics are recovered
and reported, the remaining appenders still get the message.
*/

// dispatch delivers an accepted message.
func (lg *Logging) dispatch(msg *Message) {
	list := *lg.appenders.Load()
	if len(list) == 0 {
		lg.rawWrite(msg)
		return
	}
	if q := lg.queue.Load(); q != nil {
		q.enqueue(msg)
		return
	}
	lg.appendToAll(list, msg)
}

// fanOut delivers a message (or a probe, for nil) to the current appenders.
func (lg *Logging) fanOut(msg *Message) {
	list := *lg.appenders.Load()
	if len(list) == 0 {
		if msg != nil {
			lg.rawWrite(msg)
		}
		return
	}
	lg.appendToAll(list, msg)
}

// Probe asks every appender whether it is ready, giving buffered appenders a
// chance to forward their pending records. It reports true when all of them
// answered ready.
func (lg *Logging) Probe() bool {
	ready := true
	for _, a := range *lg.appenders.Load() {
		ready = lg.safeAppend(a, nil) && ready
	}
	return ready
}

func (lg *Logging) appendToAll(list []Appender, msg *Message) {
	for _, a := range list {
		lg.safeAppend(a, msg)
	}
}

// safeAppend calls the appender, converting a panic into a fallback report and
// a failed delivery.
func (lg *Logging) safeAppend(a Appender, msg *Message) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			lg.handleLogWriteError(_ERROR_MESSAGE_APPENDER_PANIC + panicDesc(r))
		}
	}()
	return a.Append(msg)
}

// rawWrite is the no-appender path: the formatted line goes to the fallback
// writer (the raw platform output by default). A panic here cannot be reported
// anywhere and is dropped.
func (lg *Logging) rawWrite(msg *Message) {
	defer func() { recover() }()
	line := lg.Formatter()(msg)
	if line == nil {
		return
	}
	line = append(line, '\n')
	lg.sync.fbckMtx.RLock()
	defer lg.sync.fbckMtx.RUnlock()
	lg.fallbck.Write(line)
}

// handleLogWriteError writes a human-readable error message to the fallback
// writer. A read lock is used since we only need consistent access to fallbck.
func (lg *Logging) handleLogWriteError(errormsg string) {
	lg.sync.fbckMtx.RLock()
	defer lg.sync.fbckMtx.RUnlock()
	if lg.fallbck != nil {
		lg.fallbck.Write([]byte(errormsg + "\n"))
	}
}
