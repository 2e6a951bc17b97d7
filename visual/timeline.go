// Package visual renders a live timeline of which kernel thread is
// currently scheduled, one colored bar per thread slot. It follows the
// teacher's dual real/headless backend split (video_backend_ebiten.go /
// video_backend_headless.go): a Timeline interface with an ebiten-backed
// implementation for interactive use and a no-op implementation for
// servers, CI, and tests.
package visual

// Timeline is the minimal interface cmd/simulator drives: feed it a
// sample of "who is running" every tick, let it run its own event loop.
type Timeline interface {
	Start() error
	Stop() error
	// Sample records that tid (an int, to avoid importing the kernel
	// package's exported ThreadID into every backend) was the running
	// thread as of this sample.
	Sample(tid int, threadCount int)
}
