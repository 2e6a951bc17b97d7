package kernel

import (
	"sync"
	"time"
)

// simHAL is the default HAL backend: a hosted simulation with no access to
// real interrupt hardware, grounded the same way the teacher repo grounds
// every peripheral that can't reach real hardware on this host — a plain
// Go backend standing in for `audio_backend_alsa.go`/`video_backend_*.go`'s
// real-hardware counterparts. The tick ISR is a goroutine driven by
// time.Ticker; the critical section is a mutex, which is the closest
// portable equivalent of masking the SysTick interrupt on a single core.
type simHAL struct {
	start sync.Once
	mu    sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSimHAL constructs the default, fully portable HAL backend.
func NewSimHAL() HAL {
	return &simHAL{stopCh: make(chan struct{})}
}

func (h *simHAL) Millis() int64 {
	return time.Now().UnixMilli()
}

func (h *simHAL) StartTick(quantum time.Duration, fn func()) (stop func()) {
	stopCh := make(chan struct{})
	ticker := time.NewTicker(quantum)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(stopCh) })
	}
}

func (h *simHAL) CriticalEnter() { h.mu.Lock() }
func (h *simHAL) CriticalLeave() { h.mu.Unlock() }
