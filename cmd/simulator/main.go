// Command simulator runs the coreflow kernel against a small built-in
// scenario set, optionally rendering a live scheduler timeline and an
// interactive debug console.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coreflow-os/coreflow/debugconsole"
	"github.com/coreflow-os/coreflow/equeue"
	"github.com/coreflow-os/coreflow/fsm"
	"github.com/coreflow-os/coreflow/kernel"
	"github.com/coreflow-os/coreflow/visual"
)

func main() {
	var (
		maxThreads = flag.Int("max-threads", 16, "thread table size")
		quantum    = flag.Duration("quantum", time.Millisecond, "scheduler tick period")
		withUI     = flag.Bool("ui", false, "render the live scheduler timeline and click track")
		withDebug  = flag.Bool("debug-console", false, "start the interactive raw-mode debug console")
	)
	flag.Parse()

	log := kernel.NewLogger(os.Stdout)

	hal := kernel.NewSimHAL()
	k := kernel.New(hal, kernel.Config{
		MaxThreads:    *maxThreads,
		Quantum:       *quantum,
		TicksPerSlice: 10,
		Logger:        &log,
	})
	if err := k.Start(); err != nil {
		log.Fatal().Err(err).Msg("kernel start failed")
	}
	defer k.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var g errgroup.Group

	timeline := visual.NewTimeline()
	clicker := visual.NewClicker()
	if *withUI {
		if err := timeline.Start(); err != nil {
			log.Warn().Err(err).Msg("timeline start failed, continuing without it")
		}
		if err := clicker.Start(); err != nil {
			log.Warn().Err(err).Msg("clicker start failed, continuing without it")
		}
		g.Go(func() error {
			ticker := time.NewTicker(*quantum)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					timeline.Sample(int(k.CurrentID()), *maxThreads)
					clicker.Tick()
				}
			}
		})
	}

	var console *debugconsole.Console
	if *withDebug {
		console = debugconsole.New(k, *maxThreads)
		console.Start()
		defer console.Stop()
	}

	runPingPongScenario(k, log)
	runMutexScenario(k)
	runFSMScenario(log)
	runQueueScenario(k)
	log.Info().Msg("scenarios launched, running until interrupted")

	<-ctx.Done()
	if *withUI {
		_ = timeline.Stop()
		_ = clicker.Stop()
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("sampler goroutine exited with error")
	}
}

// runPingPongScenario demonstrates spec.md §8's two-thread signal
// handshake: ping sets pong's bit and waits on its own, back and forth.
func runPingPongScenario(k *kernel.Kernel, log zerolog.Logger) {
	const pingBit, pongBit = 1 << 0, 1 << 1
	var pingID, pongID kernel.ThreadID
	done := make(chan struct{})

	pingID, _ = k.Spawn(func(any) {
		for i := 0; i < 3; i++ {
			k.SignalFor(pongID).Set(pingBit)
			k.SignalFor(pingID).WaitAndClear(pongBit, 0)
		}
		close(done)
	}, nil, 5, 0, nil)

	pongID, _ = k.Spawn(func(any) {
		for i := 0; i < 3; i++ {
			k.SignalFor(pongID).WaitAndClear(pingBit, 0)
			k.SignalFor(pingID).Set(pongBit)
		}
	}, nil, 5, 0, nil)

	go func() {
		<-done
		log.Debug().Msg("ping/pong scenario converged")
	}()
}

// runMutexScenario demonstrates reentrant locking and FIFO hand-off
// under contention.
func runMutexScenario(k *kernel.Kernel) {
	m := k.NewMutex()
	k.Spawn(func(any) {
		m.Lock(0)
		m.Lock(0)
		k.SleepMs(5)
		m.Unlock()
		m.Unlock()
	}, nil, 10, 0, nil)
	k.Spawn(func(any) {
		k.SleepMs(1)
		res, _ := m.Lock(50)
		if res == kernel.ResultOK {
			m.Unlock()
		}
	}, nil, 10, 0, nil)
}

// runFSMScenario exercises the state machine's Bind/Submit/ForceState
// path with a three-state traffic light.
func runFSMScenario(log zerolog.Logger) {
	const (
		stateRed = iota
		stateGreen
		stateYellow
	)
	const eventNext = 0

	m, err := fsm.New(3, 1, stateRed, nil)
	if err != nil {
		log.Error().Err(err).Msg("fsm scenario setup failed")
		return
	}
	m.Bind(stateRed, eventNext, stateGreen, nil, nil)
	m.Bind(stateGreen, eventNext, stateYellow, nil, nil)
	m.Bind(stateYellow, eventNext, stateRed, nil, nil)
	for i := 0; i < 3; i++ {
		if err := m.Submit(eventNext); err != nil {
			log.Error().Err(err).Msg("fsm scenario submit failed")
		}
	}
	log.Info().Int("final_state", m.CurrentState()).Msg("fsm scenario complete")
}

// runQueueScenario demonstrates a bounded equeue.Queue feeding a blocking
// kernel.Queue consumer.
func runQueueScenario(k *kernel.Kernel) {
	q := k.NewQueue(4)
	ring := equeue.New[int](4)
	ring.Push(1)
	ring.Push(2)

	k.Spawn(func(any) {
		for i := 0; i < 2; i++ {
			v, ok := ring.Pop()
			if !ok {
				return
			}
			q.Push(v, 0)
		}
	}, nil, 10, 0, nil)

	k.Spawn(func(any) {
		for i := 0; i < 2; i++ {
			if _, res, err := q.Pop(100); err != nil && res != kernel.ResultOK {
				return
			}
		}
	}, nil, 10, 0, nil)
}
