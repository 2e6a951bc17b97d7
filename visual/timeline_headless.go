//go:build headless

package visual

import "sync/atomic"

// headlessTimeline discards every sample for headless runs (CI, servers,
// tests) that have no display. It keeps a count of the samples, which
// nothing in this package exposes.
type headlessTimeline struct {
	samples atomic.Uint64
}

// NewTimeline constructs the headless no-op timeline.
func NewTimeline() Timeline {
	return &headlessTimeline{}
}

func (h *headlessTimeline) Start() error { return nil }
func (h *headlessTimeline) Stop() error  { return nil }

func (h *headlessTimeline) Sample(tid int, threadCount int) {
	h.samples.Add(1)
}
