package kernel

// This file is the tick/dispatch core of the kernel, grounded on
// coprocessor_manager.go's ticket-and-waiter bookkeeping: a single
// lock-protected pass wakes whatever is due, reaps whatever finished, and
// hands the next ticket to whoever is owed it next.
//
// Preemption here is cooperative at the goroutine level: the Go runtime
// already owns each thread's real stack and registers (see
// context_switch.go), so there is no way to forcibly suspend a running
// goroutine mid-instruction the way a real PendSV exception would. The
// tick handler instead marks a thread's ticksBudget exhausted; the switch
// itself happens the next time that thread reaches a scheduling point —
// Yield, or any blocking primitive (SleepMs, Lock, Wait, Take). Demo
// thread bodies are written, like real cooperative RTOS tasks, to reach
// one of those points regularly. This is recorded as an accepted
// simplification in DESIGN.md rather than silently pretended away.

// tick is invoked from the HAL's ticker goroutine once per quantum. It
// wakes due sleepers and timed-out waiters and marks the running thread's
// slice exhausted if its budget has run out; the actual handoff happens
// at the next scheduling point reached by k.yieldLocked. selectNextLocked
// reads neither the budget nor preemptPending, so a handoff at a
// scheduling point happens whether or not the budget has run out.
func (k *Kernel) tick() {
	k.hal.CriticalEnter()
	defer k.hal.CriticalLeave()

	now := k.hal.Millis()
	for _, t := range k.threads {
		if t == nil {
			continue
		}
		if t.state == StateEnding {
			t.state = StateEnded
			continue
		}
		k.checkCanaryLocked(t)
		k.wakeIfDueLocked(t, now)
	}

	if cur := k.threads[k.current]; cur != nil && cur.state == StateRunning {
		if cur.ticksBudget > 0 {
			cur.ticksBudget--
		}
		if cur.ticksBudget <= 0 {
			k.preemptPending = true
		}
	}
}

// wakeIfDueLocked transitions a sleeping or timed-out-blocked thread back
// to StateRunning once its deadline has passed. Called with the critical
// section held.
func (k *Kernel) wakeIfDueLocked(t *tcb, nowMs int64) {
	switch t.state {
	case StateSleeping:
		if nowMs >= t.wakeupAtMs {
			t.state = StateRunning
			t.result = ResultOK
		}
	case StateBlockedSemaphoreTimeout:
		if nowMs >= t.wakeupAtMs {
			if t.semaphoreWaitingOn != nil {
				t.semaphoreWaitingOn.cancelWait(t.id)
			}
			t.state = StateRunning
			t.result = ResultTimeout
		}
	case StateBlockedMutexTimeout:
		if nowMs >= t.wakeupAtMs {
			if t.mutexWaitingOn != nil {
				t.mutexWaitingOn.cancelWait(t.id)
			}
			t.state = StateRunning
			t.result = ResultTimeout
		}
	case StateBlockedSignalTimeout:
		if nowMs >= t.wakeupAtMs {
			if t.signalWaitingOn != nil {
				t.signalWaitingOn.cancelWait(t.id)
			}
			t.state = StateRunning
			t.result = ResultTimeout
		}
	case StateBlockedQueue:
		if t.wakeupAtMs != 0 && nowMs >= t.wakeupAtMs {
			if t.queueWaitingOn != nil {
				t.queueWaitingOn.cancelWait(t.id)
			}
			t.state = StateRunning
			t.result = ResultTimeout
		}
	}
}

// selectNextLocked picks the next ready thread using spec.md §4.3's
// priority round robin: lowest priority number wins, ties broken by
// starting the scan one slot after the currently running thread and
// wrapping around the table.
func (k *Kernel) selectNextLocked() *tcb {
	n := len(k.threads)
	best := -1
	bestPrio := int(^uint8(0)) + 1

	for i := 1; i <= n; i++ {
		idx := (int(k.current) + i) % n
		t := k.threads[idx]
		if t == nil || t.state != StateRunning {
			continue
		}
		if int(t.priority) < bestPrio {
			bestPrio = int(t.priority)
			best = idx
		}
	}

	if cur := k.threads[k.current]; cur != nil && cur.state == StateRunning && int(cur.priority) <= bestPrio {
		// The currently running thread is still eligible and at least as
		// favorable as anything else found; round-robin only kicks in
		// against other threads at an equal-or-better priority, so a lone
		// ready thread keeps running instead of fighting itself.
		if best == -1 || int(cur.priority) < bestPrio {
			return cur
		}
	}

	if best == -1 {
		return k.threads[0] // idle
	}
	return k.threads[best]
}

// yieldLocked performs a scheduling decision and, if it changes who is
// current, the register-file bookkeeping via the context switcher. It
// must be called with the critical section held and returns the thread
// that should now run; the caller is responsible for releasing the
// critical section and performing the actual goroutine handoff.
func (k *Kernel) yieldLocked() (from, to *tcb) {
	from = k.threads[k.current]
	to = k.selectNextLocked()
	k.preemptPending = false
	k.checkCanaryLocked(from)
	if from == to {
		return from, to
	}
	k.checkCanaryLocked(to)
	k.switcher.switchTo(from, to)
	k.current = to.id
	return from, to
}
