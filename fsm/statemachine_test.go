package fsm

import "testing"

const (
	stateIdle = iota
	stateRunning
	stateStopped
)

const (
	eventStart = iota
	eventStop
)

func TestSubmitRunsHooksInOrder(t *testing.T) {
	var order []string
	states := []StateSpec{
		stateIdle:    {Exit: func(any) { order = append(order, "idle.exit") }},
		stateRunning: {Entry: func(any) { order = append(order, "running.entry") }},
		stateStopped: {},
	}
	m, err := New(3, 2, stateIdle, states)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Bind(stateIdle, eventStart, stateRunning, func(any) {
		order = append(order, "start.callback")
	}, nil); err != nil {
		t.Fatal(err)
	}

	if err := m.Submit(eventStart); err != nil {
		t.Fatal(err)
	}
	if m.CurrentState() != stateRunning {
		t.Fatalf("CurrentState() = %d, want %d", m.CurrentState(), stateRunning)
	}
	if m.LatestEvent() != eventStart {
		t.Fatalf("LatestEvent() = %d, want %d", m.LatestEvent(), eventStart)
	}
	want := []string{"idle.exit", "start.callback", "running.entry"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSubmitUnboundTransitionErrors(t *testing.T) {
	m, err := New(2, 2, stateIdle, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Submit(eventStop); err == nil {
		t.Fatal("expected error submitting an unbound event")
	}
	if m.CurrentState() != stateIdle {
		t.Fatal("state must not change on a rejected submit")
	}
}

func TestUnbindDisablesTransition(t *testing.T) {
	m, err := New(2, 2, stateIdle, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Bind(stateIdle, eventStart, stateRunning, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.Unbind(stateIdle, eventStart); err != nil {
		t.Fatal(err)
	}
	if err := m.Submit(eventStart); err == nil {
		t.Fatal("expected error submitting an unbound (removed) event")
	}
}

func TestForceStateCommitsNewStateAndRunsHooks(t *testing.T) {
	var entered, exited bool
	states := []StateSpec{
		stateIdle:    {Exit: func(any) { exited = true }},
		stateRunning: {Entry: func(any) { entered = true }},
	}
	m, err := New(2, 1, stateIdle, states)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ForceState(stateRunning); err != nil {
		t.Fatal(err)
	}
	if m.CurrentState() != stateRunning {
		t.Fatalf("ForceState did not commit: CurrentState() = %d", m.CurrentState())
	}
	if !entered || !exited {
		t.Fatal("ForceState must run both exit and entry hooks")
	}
}

func TestSubmitRejectsReentrantCall(t *testing.T) {
	var reentrantErr error
	var m *Machine
	states := []StateSpec{
		stateIdle: {Exit: func(any) {
			reentrantErr = m.Submit(eventStart)
		}},
		stateRunning: {},
	}
	var err error
	m, err = New(2, 2, stateIdle, states)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Bind(stateIdle, eventStart, stateRunning, nil, nil); err != nil {
		t.Fatal(err)
	}

	if err := m.Submit(eventStart); err != nil {
		t.Fatalf("outer Submit: %v", err)
	}
	if reentrantErr == nil {
		t.Fatal("expected an error from the reentrant Submit called inside the exit hook")
	}
	if m.CurrentState() != stateRunning {
		t.Fatalf("CurrentState() = %d, want %d after the outer Submit completed", m.CurrentState(), stateRunning)
	}
}

func TestForceStateRejectsOutOfRangeAgainstStateCount(t *testing.T) {
	// Regression test for the original's bug comparing the target against
	// num_events instead of num_states: with 3 events and 2 states, state
	// index 2 must be rejected even though 2 < numEvents.
	m, err := New(2, 3, stateIdle, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ForceState(2); err == nil {
		t.Fatal("expected out-of-range error for nextState >= numStates")
	}
}
