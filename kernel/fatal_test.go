package kernel

import (
	"sync"
	"testing"
	"time"
)

func TestDefaultFatalHookInstalledWhenConfigOmitsOne(t *testing.T) {
	k := New(NewSimHAL(), Config{MaxThreads: 4})
	if k.fatalHook == nil {
		t.Fatal("New must install a default FatalHook when Config.FatalHook is nil")
	}
}

func TestCorruptedCanaryInvokesFatalHook(t *testing.T) {
	var reason string
	var once sync.Once
	fired := make(chan struct{})
	k := New(NewSimHAL(), Config{
		MaxThreads: 4,
		Quantum:    time.Millisecond,
		// The canary is checked on every tick and scheduling decision, so
		// the hook fires repeatedly while the corruption persists.
		FatalHook: func(r string) {
			once.Do(func() {
				reason = r
				close(fired)
			})
		},
	})
	if err := k.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer k.Stop()

	tid, err := k.Spawn(func(any) {
		time.Sleep(50 * time.Millisecond)
	}, nil, 10, 0, nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	k.hal.CriticalEnter()
	k.threads[tid].canary = 0
	k.hal.CriticalLeave()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("corrupting a live thread's canary never reached FatalHook")
	}
	if reason == "" {
		t.Fatal("FatalHook was called with an empty reason")
	}
}
