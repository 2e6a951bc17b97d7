//go:build cortexm

package kernel

import "time"

// cortexmHAL is the real-target backend. It is gated behind the synthetic
// "cortexm" build tag (no such GOARCH/GOOS exists in the standard Go
// toolchain) because a bare-metal Cortex-M target needs its own linker
// script, vector table, and a cross compiler this module does not ship —
// exactly the posture the teacher repo takes with ALSA-only or
// Vulkan-only backends it cannot exercise on every host. It documents the
// register layout and hand-written assembly entry points spec.md §4.2 and
// the original source's software_stack_t require, so a real port has a
// concrete place to start, but this file is never compiled by `go build`
// or `go test` on this host.
type cortexmHAL struct{}

// softwareStack mirrors original_source/OS/OSThreadKernel.h's
// software_stack_t: the callee-saved integer registers, all 32 single
// precision FPU registers, FPSCR, and the link register, in the exact
// order the hand-written assembly context-switch routine below pushes and
// pops them.
type softwareStack struct {
	R4, R5, R6, R7, R8, R9, R10, R11 uint32
	LR                                uint32
	S0, S1, S2, S3, S4, S5, S6, S7    uint32
	S8, S9, S10, S11, S12, S13, S14   uint32
	S15, S16, S17, S18, S19, S20, S21 uint32
	S22, S23, S24, S25, S26, S27, S28 uint32
	S29, S30, S31                     uint32
	FPSCR                             uint32
}

// interruptStack mirrors interrupt_stack_t: the frame the Cortex-M
// exception entry sequence pushes automatically before the SVC/PendSV
// handler runs.
type interruptStack struct {
	R0, R1, R2, R3, R12 uint32
	LR, PC, XPSR        uint32
}

// NewCortexMHAL constructs the real-target HAL backend. Constructing it
// outside a genuine Cortex-M boot environment (no real SysTick, no real
// vector table installed) is a programming error; this reference
// implementation does not attempt to detect that.
func NewCortexMHAL() HAL { return &cortexmHAL{} }

func (h *cortexmHAL) Millis() int64 { return millisCortexM() }

func (h *cortexmHAL) StartTick(quantum time.Duration, fn func()) (stop func()) {
	return startSysTick(quantum, fn)
}

func (h *cortexmHAL) CriticalEnter() { disableSysTickIRQ() }
func (h *cortexmHAL) CriticalLeave() { enableSysTickIRQ() }

// The following are declared without bodies: programming SysTick and
// masking/unmasking its interrupt. Their assembly implementations, and
// the PendSV/SVC context-switch trampoline that would save/restore
// softwareStack, are not part of this module.
func millisCortexM() int64
func startSysTick(quantum time.Duration, fn func()) (stop func())
func disableSysTickIRQ()
func enableSysTickIRQ()
