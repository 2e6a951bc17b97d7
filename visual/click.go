package visual

// Clicker is an audible tick metronome: Tick is called once per
// scheduler quantum, so a demo is audible as well as visible. The oto
// backend coalesces ticks that arrive while a click is still sounding.
// Dual-backed the same way Timeline is: oto for real output, a no-op for
// headless runs.
type Clicker interface {
	Start() error
	Stop() error
	Tick()
}
