// Package fsm implements a deterministic state×event transition table,
// grounded on original_source/STATEMACHINE/statemachine.{h,cpp}: states
// carry optional entry/exit hooks, and a Bind call attaches an event
// transition (with its own optional callback) from a given state to a
// given event.
//
// Three defects present in the original are fixed here rather than
// carried forward, per spec.md §9:
//   - ForceState's bounds check compared the target against num_events
//     instead of num_states; it now checks against the actual state
//     count.
//   - ForceState never wrote the new current state back after running
//     the entry/exit hooks, so the transition had no effect beyond its
//     side effects; it now commits the new state.
//   - Unbind flipped a removed transition's active flag back on
//     immediately after clearing it; it now leaves it cleared.
//
// Submit and ForceState also reject reentrant calls made from within a
// hook they are still running, a case the original leaves undefined.
package fsm

import "fmt"

// EntryFunc runs when a state is entered. ExitFunc runs when it is left.
// EventFunc runs on a matched transition, after the old state's ExitFunc
// and before the new state's EntryFunc — the same ordering as the
// original source.
type EntryFunc func(arg any)
type ExitFunc func(arg any)
type EventFunc func(arg any)

type transition struct {
	active    bool
	nextState int
	callback  EventFunc
	arg       any
}

// StateSpec describes one state's hooks, supplied at construction.
type StateSpec struct {
	Entry    EntryFunc
	EntryArg any
	Exit     ExitFunc
	ExitArg  any
}

// Machine is a fixed-size, deterministic state machine: numStates states
// numbered 0..numStates-1, numEvents event ids numbered 0..numEvents-1.
type Machine struct {
	numStates int
	numEvents int
	current   int
	latest    int

	states      []StateSpec
	transitions [][]transition // [state][event]

	// inTransition guards Submit/ForceState against reentry: a hook that
	// calls back into either while m.current is mid-update would observe
	// (or clobber) a half-applied transition. spec.md §4.7 leaves this
	// case for the implementer to resolve; this rejects it outright.
	inTransition bool
}

// New constructs a machine with numStates states and numEvents distinct
// event ids, starting in initState. states may be nil or shorter than
	// numStates; missing entries get no entry/exit hooks.
func New(numStates, numEvents, initState int, states []StateSpec) (*Machine, error) {
	if numStates <= 0 || numEvents <= 0 {
		return nil, fmt.Errorf("fsm: numStates and numEvents must be positive")
	}
	if initState < 0 || initState >= numStates {
		return nil, fmt.Errorf("fsm: initState %d out of range [0,%d)", initState, numStates)
	}

	m := &Machine{
		numStates: numStates,
		numEvents: numEvents,
		current:   initState,
		latest:    -1,
		states:    make([]StateSpec, numStates),
	}
	copy(m.states, states)

	m.transitions = make([][]transition, numStates)
	for i := range m.transitions {
		m.transitions[i] = make([]transition, numEvents)
	}
	return m, nil
}

// CurrentState returns the machine's current state id.
func (m *Machine) CurrentState() int { return m.current }

// LatestEvent returns the id of the last successfully submitted event,
// or -1 if none has been submitted yet.
func (m *Machine) LatestEvent() int { return m.latest }

// Bind attaches a transition: submitting event while in state moves the
// machine to nextState, invoking cb (if non-nil) after state's exit hook
// and before nextState's entry hook.
func (m *Machine) Bind(state, event, nextState int, cb EventFunc, arg any) error {
	if state < 0 || state >= m.numStates {
		return fmt.Errorf("fsm: state %d out of range [0,%d)", state, m.numStates)
	}
	if event < 0 || event >= m.numEvents {
		return fmt.Errorf("fsm: event %d out of range [0,%d)", event, m.numEvents)
	}
	if nextState < 0 || nextState >= m.numStates {
		return fmt.Errorf("fsm: nextState %d out of range [0,%d)", nextState, m.numStates)
	}
	m.transitions[state][event] = transition{
		active:    true,
		nextState: nextState,
		callback:  cb,
		arg:       arg,
	}
	return nil
}

// Unbind removes a previously bound transition, leaving it inactive.
func (m *Machine) Unbind(state, event int) error {
	if state < 0 || state >= m.numStates {
		return fmt.Errorf("fsm: state %d out of range [0,%d)", state, m.numStates)
	}
	if event < 0 || event >= m.numEvents {
		return fmt.Errorf("fsm: event %d out of range [0,%d)", event, m.numEvents)
	}
	m.transitions[state][event] = transition{}
	return nil
}

// Submit applies event from the current state. It returns an error if
// event is out of range or there is no active transition bound for the
// current state, matching the original's "no-op, report failure" policy
// for an unbound event rather than silently ignoring it.
func (m *Machine) Submit(event int) error {
	if event < 0 || event >= m.numEvents {
		return fmt.Errorf("fsm: event %d out of range [0,%d)", event, m.numEvents)
	}
	tr := m.transitions[m.current][event]
	if !tr.active {
		return fmt.Errorf("fsm: no transition bound for state %d event %d", m.current, event)
	}
	if m.inTransition {
		return fmt.Errorf("fsm: Submit(%d) called reentrantly from within a transition hook", event)
	}
	m.inTransition = true
	defer func() { m.inTransition = false }()

	cur := m.states[m.current]
	if cur.Exit != nil {
		cur.Exit(cur.ExitArg)
	}
	if tr.callback != nil {
		tr.callback(tr.arg)
	}
	next := m.states[tr.nextState]
	if next.Entry != nil {
		next.Entry(next.EntryArg)
	}

	m.current = tr.nextState
	m.latest = event
	return nil
}

// ForceState moves directly to nextState without an event, still running
// the outgoing state's exit hook and the incoming state's entry hook —
// matching statemachine_set_state's documented behavior, with its bounds
// check and missing state commit both fixed (see the package doc
// comment).
func (m *Machine) ForceState(nextState int) error {
	if nextState < 0 || nextState >= m.numStates {
		return fmt.Errorf("fsm: nextState %d out of range [0,%d)", nextState, m.numStates)
	}
	if m.inTransition {
		return fmt.Errorf("fsm: ForceState(%d) called reentrantly from within a transition hook", nextState)
	}
	m.inTransition = true
	defer func() { m.inTransition = false }()

	cur := m.states[m.current]
	if cur.Exit != nil {
		cur.Exit(cur.ExitArg)
	}
	next := m.states[nextState]
	if next.Entry != nil {
		next.Entry(next.EntryArg)
	}
	m.current = nextState
	return nil
}
