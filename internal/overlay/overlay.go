// Package overlay renders human-checkable debug rasters from masks and
// probability maps. Overlays are diagnostics only; nothing downstream
// consumes them.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/parksight/parksight/internal/mask"
)

// background is the color of unoccupied cells.
var background = color.NRGBA{R: 24, G: 24, B: 28, A: 255}

// Render paints occupied cells on a confidence ramp from red (low)
// through yellow to green (high). Without a probability map every
// occupied cell renders at full confidence. The image has one pixel
// per grid cell.
func Render(g *mask.Grid, prob *mask.ProbMap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width(), g.Height()))
	for row := 0; row < g.Height(); row++ {
		for col := 0; col < g.Width(); col++ {
			if !g.At(row, col) {
				img.SetNRGBA(col, row, background)
				continue
			}
			p := 1.0
			if prob != nil {
				p = prob.At(row, col)
			}
			img.SetNRGBA(col, row, rampColor(p))
		}
	}
	return img
}

// Save renders and writes the overlay as PNG.
func Save(g *mask.Grid, prob *mask.ProbMap, path string) error {
	if err := imaging.Save(Render(g, prob), path); err != nil {
		return fmt.Errorf("failed to write overlay %s: %w", path, err)
	}
	return nil
}

// rampColor maps a probability in [0, 1] onto a hue sweep from red
// (0 degrees) to green (120 degrees) at fixed saturation and value.
func rampColor(p float64) color.NRGBA {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	c := colorful.Hsv(120*p, 0.85, 0.95)
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
