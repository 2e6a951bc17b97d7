package kernel

import (
	"testing"
	"time"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	k := New(NewSimHAL(), Config{MaxThreads: 8, Quantum: time.Millisecond, TicksPerSlice: 5})
	if err := k.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(k.Stop)
	return k
}

func TestSpawnAndJoin(t *testing.T) {
	k := newTestKernel(t)
	ran := make(chan struct{})
	tid, err := k.Spawn(func(arg any) {
		close(ran)
	}, nil, 10, 0, nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("thread never ran")
	}
	if err := k.Join(tid); err != nil {
		t.Fatalf("Join: %v", err)
	}
}

func TestSleepMsOrdering(t *testing.T) {
	k := newTestKernel(t)
	var order []int
	done := make(chan struct{})

	k.Spawn(func(any) {
		k.SleepMs(40)
		order = append(order, 40)
		close(done)
	}, nil, 10, 0, nil)
	k.Spawn(func(any) {
		k.SleepMs(10)
		order = append(order, 10)
	}, nil, 10, 0, nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sleepers")
	}
	if len(order) != 2 || order[0] != 10 || order[1] != 40 {
		t.Fatalf("order = %v, want [10 40]", order)
	}
}

func TestSignalPingPong(t *testing.T) {
	k := newTestKernel(t)
	const pingBit = 1 << 0
	const pongBit = 1 << 1

	var pingID, pongID ThreadID
	rounds := 0
	finished := make(chan struct{})

	pingID, _ = k.Spawn(func(any) {
		for rounds < 5 {
			k.SignalFor(pongID).Set(pingBit)
			k.SignalFor(pingID).WaitAndClear(pongBit, 0)
			rounds++
		}
		close(finished)
	}, nil, 10, 0, nil)

	pongID, _ = k.Spawn(func(any) {
		for {
			k.SignalFor(pongID).WaitAndClear(pingBit, 0)
			k.SignalFor(pingID).Set(pongBit)
		}
	}, nil, 10, 0, nil)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("ping/pong never converged")
	}
	if rounds != 5 {
		t.Fatalf("rounds = %d, want 5", rounds)
	}
}

func TestMutexReentrantAndFIFO(t *testing.T) {
	k := newTestKernel(t)
	m := k.NewMutex()
	var order []int
	done := make(chan struct{})

	k.Spawn(func(any) {
		m.Lock(0)
		m.Lock(0) // reentrant
		k.SleepMs(20)
		order = append(order, 1)
		m.Unlock()
		m.Unlock()
	}, nil, 10, 0, nil)

	k.Spawn(func(any) {
		k.SleepMs(1)
		m.Lock(0)
		order = append(order, 2)
		m.Unlock()
		close(done)
	}, nil, 10, 0, nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutex scenario never completed")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2] (FIFO hand-off after holder releases)", order)
	}
}

func TestMutexLockTimesOut(t *testing.T) {
	k := newTestKernel(t)
	m := k.NewMutex()
	held := make(chan struct{})
	release := make(chan struct{})
	result := make(chan Result, 1)

	k.Spawn(func(any) {
		m.Lock(0)
		close(held)
		<-release
		m.Unlock()
	}, nil, 10, 0, nil)

	<-held
	k.Spawn(func(any) {
		res, _ := m.Lock(10)
		result <- res
	}, nil, 10, 0, nil)

	select {
	case res := <-result:
		if res != ResultTimeout {
			t.Fatalf("Lock result = %v, want ResultTimeout", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Lock timeout result")
	}
	close(release)
}

func TestSuspendResume(t *testing.T) {
	k := newTestKernel(t)
	step := make(chan int, 4)

	tid, _ := k.Spawn(func(any) {
		step <- 1
		k.SleepMs(5)
		step <- 2
	}, nil, 10, 0, nil)

	if got := <-step; got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	time.Sleep(2 * time.Millisecond)

	if err := k.Suspend(tid); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	st, err := k.State(tid)
	if err != nil || st != StateSuspended {
		t.Fatalf("State = %v, %v, want StateSuspended", st, err)
	}

	select {
	case <-step:
		t.Fatal("thread made progress while suspended")
	case <-time.After(30 * time.Millisecond):
	}

	if err := k.Resume(tid); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	select {
	case got := <-step:
		if got != 2 {
			t.Fatalf("got %d, want 2", got)
		}
	case <-time.After(time.Second):
		t.Fatal("thread never resumed")
	}
}

func TestKillUnblocksWaiterWithError(t *testing.T) {
	k := newTestKernel(t)
	m := k.NewMutex()
	held := make(chan struct{})
	release := make(chan struct{})

	k.Spawn(func(any) {
		m.Lock(0)
		close(held)
		<-release
		m.Unlock()
	}, nil, 10, 0, nil)

	<-held

	resultCh := make(chan Result, 1)
	var waiterTid ThreadID
	started := make(chan struct{})

	waiterTid, _ = k.Spawn(func(any) {
		close(started)
		res, _ := m.Lock(0)
		resultCh <- res
	}, nil, 10, 0, nil)

	<-started
	time.Sleep(5 * time.Millisecond)

	if err := k.Kill(waiterTid); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case res := <-resultCh:
		if res != ResultError {
			t.Fatalf("Lock result after Kill = %v, want ResultError", res)
		}
	case <-time.After(time.Second):
		t.Fatal("killed waiter never observed the wake-up")
	}
	close(release)
}

func TestSemaphoreSaturates(t *testing.T) {
	k := newTestKernel(t)
	sem := k.NewSemaphore(0, 2)
	sem.Give()
	sem.Give()
	sem.Give() // should saturate, not overflow to 3

	done := make(chan struct{})
	taken := 0
	k.Spawn(func(any) {
		for i := 0; i < 3; i++ {
			res, err := sem.Take(20)
			if err == nil && res == ResultOK {
				taken++
			}
		}
		close(done)
	}, nil, 10, 0, nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	if taken != 2 {
		t.Fatalf("taken = %d, want 2 (saturated at max)", taken)
	}
}

func TestQueuePopTimesOut(t *testing.T) {
	k := newTestKernel(t)
	q := k.NewQueue(1)
	result := make(chan Result, 1)

	k.Spawn(func(any) {
		_, res, _ := q.Pop(20)
		result <- res
	}, nil, 10, 0, nil)

	select {
	case res := <-result:
		if res != ResultTimeout {
			t.Fatalf("Pop result = %v, want ResultTimeout", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pop on an empty queue never timed out")
	}
}

func TestQueuePushTimesOut(t *testing.T) {
	k := newTestKernel(t)
	q := k.NewQueue(1)
	if _, err := q.Push("fill", 0); err != nil {
		t.Fatalf("initial Push: %v", err)
	}
	result := make(chan Result, 1)

	k.Spawn(func(any) {
		res, _ := q.Push("overflow", 20)
		result <- res
	}, nil, 10, 0, nil)

	select {
	case res := <-result:
		if res != ResultTimeout {
			t.Fatalf("Push result = %v, want ResultTimeout", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Push on a full queue never timed out")
	}
}

func TestQueuePushPopRoundTrip(t *testing.T) {
	k := newTestKernel(t)
	q := k.NewQueue(2)
	done := make(chan struct{})
	var got any

	k.Spawn(func(any) {
		v, res, err := q.Pop(500)
		if err == nil && res == ResultOK {
			got = v
		}
		close(done)
	}, nil, 10, 0, nil)

	time.Sleep(5 * time.Millisecond)
	if _, err := q.Push("hello", 0); err != nil {
		t.Fatalf("Push: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pop never observed the pushed value")
	}
	if got != "hello" {
		t.Fatalf("got %v, want %q", got, "hello")
	}
}
