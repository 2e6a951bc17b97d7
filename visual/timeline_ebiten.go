//go:build !headless

package visual

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	sampleWidth  = 2
	maxSamples   = 600
	barHeight    = 16
	windowWidth  = sampleWidth * maxSamples
)

var palette = []color.RGBA{
	{230, 90, 90, 255}, {90, 180, 230, 255}, {120, 210, 120, 255},
	{230, 200, 90, 255}, {190, 120, 230, 255}, {90, 230, 200, 255},
	{230, 140, 90, 255}, {160, 160, 160, 255},
}

// ebitenTimeline is an ebiten.Game that scrolls a strip of colored bars,
// one per tick sample, left to right — a live Gantt chart of the
// scheduler's choices. Grounded on video_backend_ebiten.go's
// RunGame/Update/Draw/Layout structure.
type ebitenTimeline struct {
	mu          sync.Mutex
	samples     []int
	threadCount int
	started     bool
}

// NewTimeline constructs the ebiten-backed scheduler timeline.
func NewTimeline() Timeline {
	return &ebitenTimeline{}
}

func (e *ebitenTimeline) Start() error {
	e.started = true
	ebiten.SetWindowSize(windowWidth, barHeight*8+40)
	ebiten.SetWindowTitle("coreflow scheduler timeline")
	go func() {
		_ = ebiten.RunGame(e)
	}()
	return nil
}

func (e *ebitenTimeline) Stop() error {
	e.started = false
	return nil
}

func (e *ebitenTimeline) Sample(tid int, threadCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.threadCount = threadCount
	e.samples = append(e.samples, tid)
	if len(e.samples) > maxSamples {
		e.samples = e.samples[len(e.samples)-maxSamples:]
	}
}

func (e *ebitenTimeline) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	return nil
}

func (e *ebitenTimeline) Draw(screen *ebiten.Image) {
	e.mu.Lock()
	samples := append([]int(nil), e.samples...)
	e.mu.Unlock()

	for i, tid := range samples {
		c := palette[tid%len(palette)]
		x := float32(i * sampleWidth)
		y := float32(tid * barHeight)
		vector.DrawFilledRect(screen, x, y, float32(sampleWidth), barHeight, c, false)
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf("samples: %d", len(samples)))
}

func (e *ebitenTimeline) Layout(outsideWidth, outsideHeight int) (int, int) {
	return windowWidth, barHeight*8 + 40
}
