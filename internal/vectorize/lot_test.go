package vectorize

import "testing"

func TestEstimateSpots(t *testing.T) {
	tests := []struct {
		name       string
		areaM2     float64
		spotAreaM2 float64
		want       int
	}{
		{name: "exact multiple", areaM2: 125, spotAreaM2: 12.5, want: 10},
		{name: "rounds down", areaM2: 124.9, spotAreaM2: 12.5, want: 9},
		{name: "smaller than one spot", areaM2: 10, spotAreaM2: 12.5, want: 0},
		{name: "zero area", areaM2: 0, spotAreaM2: 12.5, want: 0},
		{name: "zero spot size", areaM2: 125, spotAreaM2: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateSpots(tt.areaM2, tt.spotAreaM2); got != tt.want {
				t.Errorf("EstimateSpots(%v, %v) = %d, want %d", tt.areaM2, tt.spotAreaM2, got, tt.want)
			}
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name  string
		spots int
		want  SizeCategory
	}{
		{name: "ten spots is small", spots: 10, want: SizeSmall},
		{name: "zero spots is small", spots: 0, want: SizeSmall},
		{name: "just below small bound", spots: 49, want: SizeSmall},
		{name: "small bound is medium", spots: 50, want: SizeMedium},
		{name: "just below medium bound", spots: 199, want: SizeMedium},
		{name: "medium bound is large", spots: 200, want: SizeLarge},
		{name: "well above", spots: 1000, want: SizeLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.spots, 50, 200); got != tt.want {
				t.Errorf("Categorize(%d, 50, 200) = %q, want %q", tt.spots, got, tt.want)
			}
		})
	}
}

func TestSpotEstimateFeedsCategory(t *testing.T) {
	// A 125 m2 lot with 12.5 m2 spots holds 10 spots, a small lot.
	spots := EstimateSpots(125, 12.5)
	if spots != 10 {
		t.Fatalf("spots = %d, want 10", spots)
	}
	if got := Categorize(spots, 50, 200); got != SizeSmall {
		t.Errorf("category = %q, want %q", got, SizeSmall)
	}
}
