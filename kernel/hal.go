package kernel

import "time"

// HAL is the hardware abstraction spec.md §2 describes: tick timer
// program, SVC/yield trap, PendSV/context-switch-request raise, critical
// section enter/leave, and a millis() time source. Everything above this
// interface is hardware-agnostic; everything below it is opaque to the
// rest of the package.
//
// The default backend (NewSimHAL) runs entirely on the Go runtime's own
// scheduler and timers — see doc comment on simHAL. A real target backend
// lives in hal_cortexm.go, built only with the "cortexm" build tag; it is
// not exercised by this module's tests.
type HAL interface {
	// Millis returns the monotonic millisecond clock the tick ISR and
	// every timeout deadline are measured against.
	Millis() int64

	// StartTick begins calling fn once per quantum until the returned
	// stop function is called. fn must not block.
	StartTick(quantum time.Duration, fn func()) (stop func())

	// CriticalEnter/CriticalLeave bracket a short critical section the
	// way disabling the tick interrupt would on real hardware. On the
	// sim HAL this is a plain mutex; on real hardware it would mask the
	// SysTick interrupt.
	CriticalEnter()
	CriticalLeave()
}
