package kernel

// Signal is a 32-bit per-thread event mask, spec.md §4.6. Unlike Mutex
// and Semaphore it always has exactly one possible waiter — the thread it
// belongs to — so there is no waiter queue, only the single set of
// signalFlags/signalWaitMask fields already carried on that thread's tcb.
//
// The original source exposes three distinct waiting entry points rather
// than one function with clear-on-wake as a boolean flag (see
// SPEC_FULL.md's Supplemented features); Wait, WaitAndClear and WaitNoTimeout mirror
// that split here.
type Signal struct {
	k   *Kernel
	tid ThreadID
}

// SignalFor returns a handle onto tid's signal mask. tid is usually the
// calling thread's own id when waiting, and another thread's id when
// setting bits to wake it.
func (k *Kernel) SignalFor(tid ThreadID) *Signal {
	return &Signal{k: k, tid: tid}
}

// Set ORs bits into the target thread's flags and wakes it if it is
// currently blocked waiting on a mask that overlaps bits.
func (s *Signal) Set(bits uint32) error {
	s.k.hal.CriticalEnter()
	defer s.k.hal.CriticalLeave()

	t, err := s.k.lookupLocked("Signal.Set", s.tid)
	if err != nil {
		return err
	}
	t.signalFlags |= bits

	if t.signalWaitingOn != nil && t.signalFlags&t.signalWaitMask != 0 {
		if t.signalClearOnWake {
			t.signalFlags &^= t.signalWaitMask
		}
		t.state = StateRunning
		t.result = ResultOK
	}
	return nil
}

// Clear clears bits from the target thread's flags without blocking.
func (s *Signal) Clear(bits uint32) error {
	s.k.hal.CriticalEnter()
	defer s.k.hal.CriticalLeave()
	t, err := s.k.lookupLocked("Signal.Clear", s.tid)
	if err != nil {
		return err
	}
	t.signalFlags &^= bits
	return nil
}

// Wait blocks the calling thread until any bit in mask is set, or
// timeoutMs elapses (0 waits forever). Matched bits are left set; the
// caller must Clear them explicitly.
func (s *Signal) Wait(mask uint32, timeoutMs uint32) (matched uint32, res Result, err error) {
	return s.wait(mask, timeoutMs, false)
}

// WaitAndClear is Wait, except matched bits are atomically cleared the
// instant the thread is woken.
func (s *Signal) WaitAndClear(mask uint32, timeoutMs uint32) (matched uint32, res Result, err error) {
	return s.wait(mask, timeoutMs, true)
}

// WaitNoTimeout waits forever for any bit in mask, leaving matched bits
// set. Equivalent to Wait(mask, 0) but documents the original source's
// separate no-timeout entry point explicitly rather than relying on the
// 0-means-forever convention.
func (s *Signal) WaitNoTimeout(mask uint32) (matched uint32) {
	m, _, _ := s.wait(mask, 0, false)
	return m
}

func (s *Signal) wait(mask uint32, timeoutMs uint32, clearOnWake bool) (matched uint32, res Result, err error) {
	tid := s.k.CurrentID()
	if tid != s.tid {
		return 0, ResultError, newError("Signal.Wait", KindInvalidArgument, "a thread may only wait on its own signal mask")
	}

	s.k.hal.CriticalEnter()
	self := s.k.threads[tid]
	if self.signalFlags&mask != 0 {
		matched = self.signalFlags & mask
		if clearOnWake {
			self.signalFlags &^= matched
		}
		s.k.hal.CriticalLeave()
		return matched, ResultOK, nil
	}

	self.signalWaitMask = mask
	self.signalClearOnWake = clearOnWake
	self.signalWaitingOn = s
	if timeoutMs == 0 {
		self.state = StateBlockedSignal
	} else {
		self.state = StateBlockedSignalTimeout
		self.wakeupAtMs = s.k.hal.Millis() + int64(timeoutMs)
	}
	s.k.switchAwayLocked(tid)

	s.k.hal.CriticalEnter()
	result := self.result
	matched = self.signalFlags & mask
	self.signalWaitingOn = nil
	s.k.hal.CriticalLeave()
	if result != ResultOK {
		return 0, result, newError("Signal.Wait", KindTimeout, "timed out waiting for signal")
	}
	return matched, ResultOK, nil
}

// cancelWait is invoked by the scheduler's timeout sweep; a signal wait
// has no queue to remove from, just wait-state fields to clear.
func (s *Signal) cancelWait(tid ThreadID) {
	// The scheduler already sets state/result before calling this; there
	// is nothing additional to unwind for a single-waiter signal mask.
}
