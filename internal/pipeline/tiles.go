package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parksight/parksight/internal/geo"
	"github.com/parksight/parksight/internal/mask"
)

// ErrBadTile reports a tile that cannot enter the pipeline: missing or
// malformed georeferencing, an unsupported CRS, or a probability map
// whose shape disagrees with the mask.
var ErrBadTile = errors.New("bad tile")

const (
	maskSuffix   = "_mask.png"
	probSuffix   = "_prob.png"
	georefSuffix = "_georef.json"
)

// Tile is one georeferenced unit of work: a binary mask, its optional
// probability map, and the pixel-to-geographic transform.
type Tile struct {
	// Name identifies the tile in logs and errors, usually the mask
	// filename without its suffix.
	Name string

	Mask      *mask.Grid
	Prob      *mask.ProbMap
	Transform geo.Affine
	CRS       geo.CRS
}

// georef is the JSON sidecar written next to each mask raster.
type georef struct {
	// Transform holds the six affine coefficients in GDAL order.
	Transform [6]float64 `json:"transform"`
	CRS       geo.CRS    `json:"crs"`
}

// LoadTiles reads every *_mask.png under dir together with its
// *_georef.json sidecar and optional *_prob.png probability map.
// Tiles come back sorted by name so runs are reproducible. A tile
// with a sidecar naming any CRS other than EPSG:4326 is rejected
// rather than skipped; silently dropping georeferencing mistakes
// produces shifted polygons, not missing ones.
func LoadTiles(dir string) ([]Tile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tiles directory %s: %w", dir, err)
	}

	var tiles []Tile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), maskSuffix) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), maskSuffix)
		tile, err := loadTile(dir, name)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, tile)
	}

	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Name < tiles[j].Name })
	return tiles, nil
}

func loadTile(dir, name string) (Tile, error) {
	grid, err := mask.LoadGrid(filepath.Join(dir, name+maskSuffix))
	if err != nil {
		return Tile{}, err
	}

	ref, err := loadGeoref(filepath.Join(dir, name+georefSuffix))
	if err != nil {
		return Tile{}, fmt.Errorf("tile %s: %w", name, err)
	}
	if ref.CRS != geo.WGS84 {
		return Tile{}, fmt.Errorf("tile %s: %w: unsupported CRS %q, want %q",
			name, ErrBadTile, ref.CRS, geo.WGS84)
	}
	transform := geo.Affine{
		A: ref.Transform[0], B: ref.Transform[1], C: ref.Transform[2],
		D: ref.Transform[3], E: ref.Transform[4], F: ref.Transform[5],
	}
	if transform.IsZero() {
		return Tile{}, fmt.Errorf("tile %s: %w: zero affine transform", name, ErrBadTile)
	}

	var prob *mask.ProbMap
	probPath := filepath.Join(dir, name+probSuffix)
	if _, statErr := os.Stat(probPath); statErr == nil {
		prob, err = mask.LoadProbMap(probPath)
		if err != nil {
			return Tile{}, err
		}
		if !prob.MatchesShape(grid) {
			return Tile{}, fmt.Errorf("tile %s: %w: probability map shape differs from mask",
				name, ErrBadTile)
		}
	}

	return Tile{Name: name, Mask: grid, Prob: prob, Transform: transform, CRS: ref.CRS}, nil
}

func loadGeoref(path string) (georef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return georef{}, fmt.Errorf("%w: missing georeferencing sidecar: %v", ErrBadTile, err)
	}
	var ref georef
	if err := json.Unmarshal(data, &ref); err != nil {
		return georef{}, fmt.Errorf("%w: malformed georeferencing sidecar %s: %v", ErrBadTile, path, err)
	}
	return ref, nil
}
