package view

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// fpsRefresh is how often the overlay text is re-rendered, in seconds.
const fpsRefresh = 0.5

// fpsOverlay displays the current FPS and TPS in the top-right corner.
type fpsOverlay struct {
	img     *ebiten.Image
	elapsed float64
	label   string
}

func newFPSOverlay() *fpsOverlay {
	// 100x32 is enough for "FPS: 60.0\nTPS: 60.0"
	return &fpsOverlay{img: ebiten.NewImage(100, 32), elapsed: fpsRefresh}
}

// update advances the refresh timer and reports whether the label changed.
func (o *fpsOverlay) update(dt, fps, tps float64) bool {
	o.elapsed += dt
	if o.elapsed < fpsRefresh {
		return false
	}
	o.elapsed = 0
	o.label = fpsLabel(fps, tps)

	o.img.Clear()
	o.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(o.img, o.label)
	return true
}

func (o *fpsOverlay) draw(dst *ebiten.Image) {
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(float64(dst.Bounds().Dx()-o.img.Bounds().Dx()), 0)
	dst.DrawImage(o.img, &op)
}

func (o *fpsOverlay) dispose() {
	o.img.Deallocate()
}

func fpsLabel(fps, tps float64) string {
	return fmt.Sprintf("FPS: %.1f\nTPS: %.1f", fps, tps)
}
