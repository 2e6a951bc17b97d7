//go:build headless

package visual

import "sync/atomic"

type headlessClicker struct {
	ticks atomic.Uint64
}

// NewClicker constructs the headless no-op metronome.
func NewClicker() Clicker {
	return &headlessClicker{}
}

func (h *headlessClicker) Start() error { return nil }
func (h *headlessClicker) Stop() error  { return nil }
func (h *headlessClicker) Tick()        { h.ticks.Add(1) }
