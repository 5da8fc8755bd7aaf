package overlay

import (
	"testing"

	"github.com/parksight/parksight/internal/mask"
)

func TestRenderDimensionsAndBackground(t *testing.T) {
	g := mask.NewGrid(4, 3)
	g.Set(1, 2, true)

	img := Render(g, nil)
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("bounds = %v, want 4x3", img.Bounds())
	}

	if img.NRGBAAt(0, 0) != background {
		t.Errorf("empty cell = %v, want background", img.NRGBAAt(0, 0))
	}
	if img.NRGBAAt(2, 1) == background {
		t.Error("occupied cell rendered as background")
	}
}

func TestRenderConfidenceRamp(t *testing.T) {
	g := mask.NewGrid(2, 1)
	g.Set(0, 0, true)
	g.Set(0, 1, true)
	prob := mask.NewProbMap(2, 1)
	prob.Set(0, 0, 0.0)
	prob.Set(0, 1, 1.0)

	img := Render(g, prob)
	low, high := img.NRGBAAt(0, 0), img.NRGBAAt(1, 0)
	if low == high {
		t.Error("low and high confidence should render differently")
	}
	if low.R <= low.G {
		t.Errorf("low confidence should lean red, got %v", low)
	}
	if high.G <= high.R {
		t.Errorf("high confidence should lean green, got %v", high)
	}
}
