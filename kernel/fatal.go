package kernel

import "github.com/rs/zerolog"

// FatalHook is called when the kernel observes a condition it has no
// recovery path for: a corrupted TCB canary, found by the tick sweep or
// by a scheduling decision in yieldLocked. It is called again at each
// such check for as long as the corruption persists. It mirrors the
// original source's single
// fatal_fault hook (spec.md §7) — one seam, not one per fault kind.
//
// The default, installed by New when Config.FatalHook is nil, logs the
// reason and terminates the process. zerolog has no Emerg level; its
// Fatal level is the closest built-in match for "log this, then stop
// the world" severity, and its write path already calls os.Exit(1)
// after the event is written.
type FatalHook func(reason string)

func defaultFatalHook(log zerolog.Logger) FatalHook {
	return func(reason string) {
		log.Fatal().Str("reason", reason).Msg("fatal kernel fault")
	}
}

// canaryAlive is written into every live tcb's canary field at spawn
// and checked at each scheduling point. A real Cortex-M build (see
// hal_cortexm.go) would stamp this just past the allocated stack region
// instead; on the hosted sim HAL there is no real stack to overrun, so
// this instead catches the bookkeeping failure it stands in for: a tcb
// struct got overwritten or zeroed out from under a thread that is
// still supposed to be live.
const canaryAlive uint32 = 0x5a5ac0de

// checkCanaryLocked calls the kernel's FatalHook if t is meant to be
// live but its canary has been corrupted. Must be called with the
// critical section held.
func (k *Kernel) checkCanaryLocked(t *tcb) {
	if t == nil || t.state == StateEmpty || t.state == StateEnded {
		return
	}
	if t.canary != canaryAlive {
		k.fatal("tcb canary corrupted for thread")
	}
}

func (k *Kernel) fatal(reason string) {
	k.fatalHook(reason)
}
