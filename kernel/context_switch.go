package kernel

import "sync/atomic"

// registerFile is the Go-hosted stand-in for spec.md §3's saved_registers:
// the full integer + FPU register file, FPSCR, and link register a real
// Cortex-M context switch snapshots into the TCB. On the sim HAL the Go
// runtime already preserves a parked goroutine's stack and registers for
// us, so there is nothing to snapshot; registerFile instead carries the
// switch accounting spec.md §4.2 requires every context switch to update
// (and nothing else — it must stay opaque to everything but the switcher).
type registerFile struct {
	switchCount uint64
	lastFrom    ThreadID
	lastTo      ThreadID
}

// contextSwitcher is the sole writer of every tcb.saved field (spec.md
// §4.2: "the switcher is the only writer of saved_registers"). It is
// invoked from the scheduler with the kernel lock held.
type contextSwitcher struct {
	totalSwitches atomic.Uint64
}

// switchTo performs the handoff from "from" (may be nil, e.g. at boot) to
// "to". It tolerates from == to: no register state changes, it just
// returns, matching the spec's requirement that a no-op switch be safe.
//
// The memory barrier spec.md §4.2 requires after the register save is the
// atomic.Uint64 increment below: any goroutine that later locks the
// kernel mutex to inspect "to"'s tcb is guaranteed (by the mutex's own
// acquire/release semantics) to observe every field this function wrote.
func (cs *contextSwitcher) switchTo(from, to *tcb) {
	if from == to {
		return
	}
	if from != nil {
		from.saved.switchCount++
		from.saved.lastTo = to.id
	}
	to.saved.switchCount++
	to.saved.lastFrom = -1
	if from != nil {
		to.saved.lastFrom = from.id
	}
	cs.totalSwitches.Add(1)
}
