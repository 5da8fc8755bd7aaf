package mask

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// OccupiedThreshold is the default luminance cutoff for reading binary
// masks from disk. Detection masks are written white-on-black, so any
// value comfortably between the two levels works.
const OccupiedThreshold uint8 = 128

// LoadGrid reads a binary mask raster from an image file.
func LoadGrid(path string) (*Grid, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask %s: %w", path, err)
	}
	return FromImage(img, OccupiedThreshold), nil
}

// LoadProbMap reads a probability raster from a grayscale image file.
func LoadProbMap(path string) (*ProbMap, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open probability map %s: %w", path, err)
	}
	return ProbFromImage(img), nil
}
