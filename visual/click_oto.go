//go:build !headless

package visual

import (
	"math"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

const (
	clickSampleRate = 44100
	clickFreqHz     = 880.0
	clickSamples    = 400 // ~9ms blip
)

// otoClicker streams silence except for short sine blips triggered by
// Tick, grounded on audio_backend_oto.go's Read-callback player shape
// (an *oto.Player driven by an io.Reader that synthesizes samples
// on demand rather than decoding a file).
type otoClicker struct {
	ctx    *oto.Context
	player *oto.Player

	remaining atomic.Int32
	phase     float64
}

// NewClicker constructs the oto-backed audible metronome.
func NewClicker() Clicker {
	return &otoClicker{}
}

func (c *otoClicker) Start() error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   clickSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   256,
	})
	if err != nil {
		return err
	}
	<-ready
	c.ctx = ctx
	c.player = ctx.NewPlayer(c)
	c.player.Play()
	return nil
}

func (c *otoClicker) Stop() error {
	if c.player != nil {
		return c.player.Close()
	}
	return nil
}

// Tick arms a blip if one is not already playing; calls while a blip is
// in flight are coalesced rather than queued, so a burst of ticks never
// produces an overlapping wall of noise.
func (c *otoClicker) Tick() {
	c.remaining.CompareAndSwap(0, clickSamples)
}

// Read implements io.Reader for oto's player: it is called on oto's own
// audio callback goroutine, never from Tick's caller.
func (c *otoClicker) Read(p []byte) (int, error) {
	n := len(p) / 4
	for i := 0; i < n; i++ {
		var sample float32
		if c.remaining.Load() > 0 {
			c.remaining.Add(-1)
			sample = float32(0.2 * math.Sin(c.phase))
			c.phase += 2 * math.Pi * clickFreqHz / clickSampleRate
		} else {
			c.phase = 0
		}
		putFloat32LE(p[i*4:], sample)
	}
	return n * 4, nil
}

func putFloat32LE(b []byte, f float32) {
	bits := math.Float32bits(f)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}
