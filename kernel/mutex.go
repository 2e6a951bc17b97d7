package kernel

// Mutex is a reentrant lock with FIFO waiter hand-off, spec.md §4.4. The
// owning thread may re-Lock it without blocking; each reentrant Lock must
// be matched by an Unlock before the next waiter is granted ownership.
type Mutex struct {
	k *Kernel

	owner    ThreadID
	reentry  int
	waiters  []ThreadID
}

// NewMutex constructs an unlocked mutex bound to k.
func (k *Kernel) NewMutex() *Mutex {
	return &Mutex{k: k, owner: NoThread}
}

// Lock acquires m on behalf of the calling thread, blocking for up to
// timeoutMs milliseconds (0 means wait forever) if it is already held by
// another thread. Reentrant: if the caller already owns m, this only
// bumps the reentry count and returns immediately.
func (m *Mutex) Lock(timeoutMs uint32) (Result, error) {
	tid := m.k.CurrentID()

	m.k.hal.CriticalEnter()
	if m.owner == tid {
		m.reentry++
		m.k.hal.CriticalLeave()
		return ResultOK, nil
	}
	if m.owner == NoThread {
		m.owner = tid
		m.reentry = 1
		m.k.hal.CriticalLeave()
		return ResultOK, nil
	}

	self := m.k.threads[tid]
	m.waiters = append(m.waiters, tid)
	self.mutexWaitingOn = m
	if timeoutMs == 0 {
		self.state = StateBlockedMutex
	} else {
		self.state = StateBlockedMutexTimeout
		self.wakeupAtMs = m.k.hal.Millis() + int64(timeoutMs)
	}
	m.k.switchAwayLocked(tid) // releases the critical section

	m.k.hal.CriticalEnter()
	result := self.result
	self.mutexWaitingOn = nil
	m.k.hal.CriticalLeave()
	if result != ResultOK {
		return result, newError("Lock", KindTimeout, "timed out waiting for mutex")
	}
	return ResultOK, nil
}

// Unlock releases one level of ownership. Once the reentry count reaches
// zero, the longest-waiting blocked thread (if any) is granted
// ownership directly — no lock-free race window where a third thread
// could steal it.
func (m *Mutex) Unlock() error {
	tid := m.k.CurrentID()

	m.k.hal.CriticalEnter()
	if m.owner != tid {
		m.k.hal.CriticalLeave()
		return newError("Unlock", KindNotOwner, "caller does not own this mutex")
	}
	m.reentry--
	if m.reentry > 0 {
		m.k.hal.CriticalLeave()
		return nil
	}

	if len(m.waiters) == 0 {
		m.owner = NoThread
		m.k.hal.CriticalLeave()
		return nil
	}

	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.owner = next
	m.reentry = 1

	nt := m.k.threads[next]
	nt.state = StateRunning
	nt.result = ResultOK
	m.k.hal.CriticalLeave()
	return nil
}

// cancelWait removes tid from the waiter queue. Called by the scheduler
// with the critical section already held, either on timeout or because
// tid was Killed.
func (m *Mutex) cancelWait(tid ThreadID) {
	for i, w := range m.waiters {
		if w == tid {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}
