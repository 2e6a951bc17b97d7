// Package kernel implements a cooperative/preemptive single-core thread
// kernel: a fixed-size thread table, a priority round-robin scheduler
// driven off a HAL tick, and the mutex/semaphore/signal primitives
// threads block on. See SPEC_FULL.md for the full module description.
package kernel

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/rs/zerolog"
)

// Config tunes a Kernel instance. Zero values are replaced with the
// defaults documented on each field.
type Config struct {
	// MaxThreads bounds the thread table, including the reserved idle
	// thread at slot 0. Defaults to 24, the Go equivalent of the
	// OS_EXTERN_MAX_THREADS macro.
	MaxThreads int
	// Quantum is the tick period the scheduler's time slice and every
	// sleep/timeout deadline is measured in. Defaults to 1ms, matching a
	// 1kHz SysTick.
	Quantum time.Duration
	// TicksPerSlice is the tick budget a thread is given when it is
	// created. The tick counts the running thread's budget down and flags
	// a pending preemption once it reaches zero; the budget is not
	// refilled, and thread selection does not consult it: equal-priority
	// threads rotate at every scheduling point whatever budget they have
	// left. Defaults to 10.
	TicksPerSlice int
	// DefaultStackSize is used by Spawn when stackSize is 0 and no
	// caller-supplied buffer is given. It is bookkeeping only — the Go
	// runtime grows each thread's real goroutine stack itself.
	DefaultStackSize int
	// FatalHook is invoked on an unrecoverable fault (a corrupted TCB
	// canary). Nil installs defaultFatalHook, which logs and terminates
	// the process.
	FatalHook FatalHook
	// Logger receives structured kernel events. Nil defaults to a no-op
	// logger; see NewLogger in logging.go for the teacher-style
	// console/file writer setup.
	Logger *zerolog.Logger
}

func (c *Config) setDefaults() {
	if c.MaxThreads <= 0 {
		c.MaxThreads = 24
	}
	if c.Quantum <= 0 {
		c.Quantum = time.Millisecond
	}
	if c.TicksPerSlice <= 0 {
		c.TicksPerSlice = 10
	}
	if c.DefaultStackSize <= 0 {
		c.DefaultStackSize = 4096
	}
}

// Kernel is the thread kernel. All exported methods are safe to call
// concurrently from any kernel thread or from outside goroutines, with
// the exception that a thread may only block (SleepMs, Lock, Wait, ...)
// on its own behalf.
type Kernel struct {
	cfg       Config
	hal       HAL
	switcher  contextSwitcher
	log       zerolog.Logger
	fatalHook FatalHook

	threads []*tcb
	current ThreadID

	preemptPending bool

	stopTick func()
}

// New constructs a Kernel bound to hal. It does not start the scheduler;
// call Start for that.
func New(hal HAL, cfg Config) *Kernel {
	cfg.setDefaults()
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	fatalHook := cfg.FatalHook
	if fatalHook == nil {
		fatalHook = defaultFatalHook(log)
	}
	k := &Kernel{
		cfg:       cfg,
		hal:       hal,
		log:       log,
		fatalHook: fatalHook,
		threads:   make([]*tcb, cfg.MaxThreads),
		current:   0,
	}
	return k
}

// Start installs the reserved idle thread at slot 0 and begins the HAL
// tick. It must be called exactly once before Spawn.
func (k *Kernel) Start() error {
	if k.threads[0] != nil {
		return newError("Start", KindInvalidArgument, "kernel already started")
	}
	idle := &tcb{
		id:          0,
		state:       StateRunning,
		priority:    255,
		ticksBudget: k.cfg.TicksPerSlice,
		resume:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		entry:       func(any) {},
		createdAt:   time.Now(),
		canary:      canaryAlive,
		ownsStack:   true,
	}
	k.threads[0] = idle
	k.current = 0

	go k.idleLoop(idle)

	k.stopTick = k.hal.StartTick(k.cfg.Quantum, k.tick)
	k.log.Info().Int("max_threads", k.cfg.MaxThreads).Dur("quantum", k.cfg.Quantum).Msg("kernel started")

	idle.resume <- struct{}{}
	return nil
}

// Stop halts the tick source. Spawned threads that are still parked
// remain parked; it is the caller's responsibility to have wound them
// down first.
func (k *Kernel) Stop() {
	if k.stopTick != nil {
		k.stopTick()
	}
	k.log.Info().Msg("kernel stopped")
}

// idleLoop is thread 0's body: it never does real work, it only ever
// yields the instant it is scheduled, so any other ready thread always
// preempts it.
func (k *Kernel) idleLoop(self *tcb) {
	<-self.resume
	for {
		k.switchAway(self.id)
	}
}

// Spawn creates a new thread, grounded on coprocessor_manager.go's
// slot-table allocation pattern: scan for a free or reclaimable slot,
// populate it, and launch its goroutine parked on its own baton channel.
//
// stackPtr mirrors spec.md §6's caller-supplied-buffer form of spawn: a
// non-nil stackPtr is recorded as the thread's stack region (stackBase
// points at its backing array, ownsStack is false) rather than letting
// the kernel "allocate" one, matching §3's stack_base/owns_stack fields.
// Since the Go runtime manages each thread's real goroutine stack
// regardless, stackPtr is bookkeeping only, visible through StackInfo;
// passing nil lets the kernel own the (nonexistent) allocation, and
// stackSize falls back to cfg.DefaultStackSize.
func (k *Kernel) Spawn(entry EntryFunc, arg any, priority uint8, stackSize int, stackPtr []byte) (ThreadID, error) {
	if entry == nil {
		return NoThread, newError("Spawn", KindInvalidArgument, "nil entry func")
	}
	k.hal.CriticalEnter()
	defer k.hal.CriticalLeave()

	for i := 1; i < len(k.threads); i++ {
		t := k.threads[i]
		if t != nil && t.state != StateEmpty && t.state != StateEnded {
			continue
		}
		if t == nil {
			t = &tcb{id: ThreadID(i), resume: make(chan struct{}, 1)}
			k.threads[i] = t
		} else {
			t.reset()
		}
		t.state = StateRunning
		t.priority = priority
		t.ticksBudget = k.cfg.TicksPerSlice
		if stackPtr != nil {
			t.stackBase = uintptr(unsafe.Pointer(&stackPtr[0]))
			t.stackSize = len(stackPtr)
			t.ownsStack = false
		} else {
			t.stackBase = 0
			if stackSize <= 0 {
				stackSize = k.cfg.DefaultStackSize
			}
			t.stackSize = stackSize
			t.ownsStack = true
		}
		t.canary = canaryAlive
		t.entry = entry
		t.arg = arg
		t.done = make(chan struct{})
		t.createdAt = time.Now()

		go k.runThread(t)
		k.log.Debug().Int("tid", i).Uint8("priority", priority).Int("stack_size", t.stackSize).Bool("owns_stack", t.ownsStack).Msg("thread spawned")
		return t.id, nil
	}
	return NoThread, newError("Spawn", KindResourceExhausted, "thread table full")
}

// StackInfo reports the stack bookkeeping recorded for tid at Spawn:
// the base address and size of a caller-supplied buffer, or the
// kernel-owned stand-in when none was given.
func (k *Kernel) StackInfo(tid ThreadID) (base uintptr, size int, owns bool, err error) {
	k.hal.CriticalEnter()
	defer k.hal.CriticalLeave()
	t, err := k.lookupLocked("StackInfo", tid)
	if err != nil {
		return 0, 0, false, err
	}
	return t.stackBase, t.stackSize, t.ownsStack, nil
}

// runThread is every non-idle thread goroutine's trampoline.
func (k *Kernel) runThread(t *tcb) {
	<-t.resume
	t.entry(t.arg)

	k.hal.CriticalEnter()
	t.state = StateEnding
	_, to := k.yieldLocked()
	k.hal.CriticalLeave()

	close(t.done)
	if to.id != t.id {
		to.resume <- struct{}{}
	}
}

// switchAway releases the CPU on behalf of selfID and blocks until the
// scheduler hands it back. Callers that need to change selfID's state
// first (block on a mutex, a semaphore, a sleep deadline, ...) must do so
// while holding the critical section and call switchAwayLocked instead.
func (k *Kernel) switchAway(selfID ThreadID) {
	k.hal.CriticalEnter()
	k.switchAwayLocked(selfID)
}

// switchAwayLocked must be called with the critical section held; it
// releases it itself. self's state must already reflect why it is
// yielding (StateRunning for a plain Yield, or a Blocked*/Sleeping state
// set by the caller).
func (k *Kernel) switchAwayLocked(selfID ThreadID) {
	self := k.threads[selfID]
	_, to := k.yieldLocked()
	k.hal.CriticalLeave()
	if to.id == selfID {
		return
	}
	to.resume <- struct{}{}
	<-self.resume
}

// CurrentID returns the identifier of the calling thread. It must only be
// called from within a thread's entry function.
func (k *Kernel) CurrentID() ThreadID {
	k.hal.CriticalEnter()
	defer k.hal.CriticalLeave()
	return k.current
}

// Yield gives up the remainder of the calling thread's time slice,
// spec.md §6's cooperative escape hatch.
func (k *Kernel) Yield() {
	k.switchAway(k.CurrentID())
}

// SleepMs parks the calling thread until at least ms milliseconds have
// elapsed, per spec.md §4.3's sleep/deadline handling.
func (k *Kernel) SleepMs(ms uint32) {
	id := k.CurrentID()
	k.hal.CriticalEnter()
	self := k.threads[id]
	self.state = StateSleeping
	self.wakeupAtMs = k.hal.Millis() + int64(ms)
	k.switchAwayLocked(id)
}

// Suspend removes tid from scheduling until Resume is called. Suspending
// a blocked thread is rejected: it must finish or time out on its own
// wait first, per spec.md §4.1's transition table.
func (k *Kernel) Suspend(tid ThreadID) error {
	k.hal.CriticalEnter()
	t, err := k.lookupLocked("Suspend", tid)
	if err != nil {
		k.hal.CriticalLeave()
		return err
	}
	if t.state.blocked() {
		k.hal.CriticalLeave()
		return newError("Suspend", KindInvalidArgument, "thread is blocked, not runnable")
	}
	t.state = StateSuspended
	if tid == k.current {
		k.switchAwayLocked(tid) // releases the critical section itself
		return nil
	}
	k.hal.CriticalLeave()
	return nil
}

// Resume makes a suspended thread runnable again.
func (k *Kernel) Resume(tid ThreadID) error {
	k.hal.CriticalEnter()
	defer k.hal.CriticalLeave()
	t, err := k.lookupLocked("Resume", tid)
	if err != nil {
		return err
	}
	if t.state != StateSuspended {
		return newError("Resume", KindInvalidArgument, "thread is not suspended")
	}
	t.state = StateRunning
	return nil
}

// Kill forcibly ends tid. It may not be called against the currently
// running thread; a thread ends itself by returning from its entry func.
func (k *Kernel) Kill(tid ThreadID) error {
	k.hal.CriticalEnter()
	t, err := k.lookupLocked("Kill", tid)
	if err != nil {
		k.hal.CriticalLeave()
		return err
	}
	if tid == k.current {
		k.hal.CriticalLeave()
		return newError("Kill", KindInvalidArgument, "a thread cannot Kill itself; return from entry instead")
	}
	wasBlocked := t.state.blocked()
	switch {
	case t.mutexWaitingOn != nil:
		t.mutexWaitingOn.cancelWait(tid)
	case t.semaphoreWaitingOn != nil:
		t.semaphoreWaitingOn.cancelWait(tid)
	case t.signalWaitingOn != nil:
		t.signalWaitingOn.cancelWait(tid)
	case t.queueWaitingOn != nil:
		t.queueWaitingOn.cancelWait(tid)
	}
	t.state = StateEnded
	t.result = ResultError
	if wasBlocked {
		// The thread's goroutine is parked on its own resume channel
		// inside a blocking primitive; wake it so it observes
		// ResultError and the entry function gets a chance to return,
		// instead of leaking the parked goroutine forever.
		select {
		case t.resume <- struct{}{}:
		default:
		}
	}
	k.hal.CriticalLeave()
	k.log.Debug().Int("tid", int(tid)).Msg("thread killed")
	return nil
}

func (k *Kernel) lookupLocked(op string, tid ThreadID) (*tcb, error) {
	if int(tid) < 0 || int(tid) >= len(k.threads) || k.threads[tid] == nil {
		return nil, newError(op, KindNotFound, fmt.Sprintf("no such thread %d", tid))
	}
	t := k.threads[tid]
	if t.state == StateEmpty || t.state == StateEnded {
		return nil, newError(op, KindNotFound, fmt.Sprintf("thread %d is not alive", tid))
	}
	return t, nil
}

// State reports tid's current lifecycle state.
func (k *Kernel) State(tid ThreadID) (State, error) {
	k.hal.CriticalEnter()
	defer k.hal.CriticalLeave()
	if int(tid) < 0 || int(tid) >= len(k.threads) || k.threads[tid] == nil {
		return StateEmpty, newError("State", KindNotFound, fmt.Sprintf("no such thread %d", tid))
	}
	return k.threads[tid].state, nil
}

// Join blocks the calling goroutine (not necessarily a kernel thread)
// until tid has ended. Unlike the blocking kernel primitives this does
// not consume a thread slot; it is meant for host code driving a
// simulation to wait for completion.
func (k *Kernel) Join(tid ThreadID) error {
	k.hal.CriticalEnter()
	if int(tid) < 0 || int(tid) >= len(k.threads) || k.threads[tid] == nil {
		k.hal.CriticalLeave()
		return newError("Join", KindNotFound, fmt.Sprintf("no such thread %d", tid))
	}
	done := k.threads[tid].done
	k.hal.CriticalLeave()
	<-done
	return nil
}
