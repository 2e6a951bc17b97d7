package kernel

// Semaphore is a counting semaphore, spec.md §4.5. Give saturates at max
// instead of erroring on overflow — a deliberate policy choice rather
// than an omission.
type Semaphore struct {
	k *Kernel

	count   int
	max     int
	waiters []ThreadID
}

// NewSemaphore constructs a semaphore with the given initial count and
// maximum (saturating) count.
func (k *Kernel) NewSemaphore(initial, max int) *Semaphore {
	if max < 1 {
		max = 1
	}
	if initial > max {
		initial = max
	}
	if initial < 0 {
		initial = 0
	}
	return &Semaphore{k: k, count: initial, max: max}
}

// Take acquires one unit, blocking for up to timeoutMs milliseconds (0
// means wait forever) if the count is currently zero.
func (s *Semaphore) Take(timeoutMs uint32) (Result, error) {
	tid := s.k.CurrentID()

	s.k.hal.CriticalEnter()
	if s.count > 0 {
		s.count--
		s.k.hal.CriticalLeave()
		return ResultOK, nil
	}

	self := s.k.threads[tid]
	s.waiters = append(s.waiters, tid)
	self.semaphoreWaitingOn = s
	if timeoutMs == 0 {
		self.state = StateBlockedSemaphore
	} else {
		self.state = StateBlockedSemaphoreTimeout
		self.wakeupAtMs = s.k.hal.Millis() + int64(timeoutMs)
	}
	s.k.switchAwayLocked(tid)

	s.k.hal.CriticalEnter()
	result := self.result
	self.semaphoreWaitingOn = nil
	s.k.hal.CriticalLeave()
	if result != ResultOK {
		return result, newError("Take", KindTimeout, "timed out waiting for semaphore")
	}
	return ResultOK, nil
}

// Give releases one unit. If a thread is waiting, it is woken directly
// with the unit already credited to it; otherwise the count is
// incremented, saturating at max.
func (s *Semaphore) Give() {
	s.k.hal.CriticalEnter()
	defer s.k.hal.CriticalLeave()

	if len(s.waiters) > 0 {
		tid := s.waiters[0]
		s.waiters = s.waiters[1:]
		t := s.k.threads[tid]
		t.state = StateRunning
		t.result = ResultOK
		return
	}
	if s.count < s.max {
		s.count++
	}
}

func (s *Semaphore) cancelWait(tid ThreadID) {
	for i, w := range s.waiters {
		if w == tid {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}
