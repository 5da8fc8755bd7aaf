// Package config loads and validates the pipeline configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every validation failure so callers can test
// for it with errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// Postprocessing controls the mask cleaning steps. A zero value
// disables the corresponding step.
type Postprocessing struct {
	// MinAreaPixels drops occupied components smaller than this.
	MinAreaPixels int `json:"min_area_pixels" validate:"min=0"`

	// FillHolesPixels fills enclosed empty components smaller than this.
	FillHolesPixels int `json:"fill_holes_pixels" validate:"min=0"`

	// MorphologyKernelSize is the closing structuring element side.
	// Must be odd (or zero to disable); the element is centered on
	// each cell, which an even side cannot be.
	MorphologyKernelSize int `json:"morphology_kernel_size" validate:"min=0"`
}

// Vectorization controls polygon extraction and lot attributes.
type Vectorization struct {
	// SpotAreaM2 is the assumed area of one parking space.
	SpotAreaM2 float64 `json:"spot_area_m2" validate:"gt=0"`

	// SimplifyTolerance is the boundary simplification tolerance in
	// meters. Zero disables simplification.
	SimplifyTolerance float64 `json:"simplify_tolerance" validate:"min=0"`

	// SizeCategories holds the exclusive spot-count upper bounds for
	// the small and medium classes; everything above medium is large.
	SizeCategories SizeCategories `json:"size_categories"`
}

type SizeCategories struct {
	Small  int `json:"small" validate:"gt=0"`
	Medium int `json:"medium" validate:"gt=0"`
}

// Paths names the input and output locations.
type Paths struct {
	// TilesDir holds the per-tile mask rasters and georeferencing
	// sidecars.
	TilesDir string `json:"tiles_dir" validate:"required"`

	// OutputGeoJSON is the merged collection destination.
	OutputGeoJSON string `json:"output_geojson" validate:"required"`

	// OverlayDir, when set, receives per-tile debug overlays.
	OverlayDir string `json:"overlay_dir"`
}

// Config is the full pipeline configuration.
type Config struct {
	Postprocessing Postprocessing `json:"postprocessing"`
	Vectorization  Vectorization  `json:"vectorization"`
	Paths          Paths          `json:"paths"`

	// Workers bounds tile-processing concurrency. Zero means one
	// worker per CPU.
	Workers int `json:"workers" validate:"min=0"`
}

// Default returns the configuration used when no file is supplied.
// The path fields still have to be filled in by the caller.
func Default() Config {
	return Config{
		Postprocessing: Postprocessing{
			MinAreaPixels:        50,
			FillHolesPixels:      50,
			MorphologyKernelSize: 3,
		},
		Vectorization: Vectorization{
			SpotAreaM2:        12.5,
			SimplifyTolerance: 0.5,
			SizeCategories: SizeCategories{
				Small:  50,
				Medium: 200,
			},
		},
	}
}

// Load reads a JSON configuration file and validates it. Unknown keys
// are rejected so typos surface immediately instead of silently
// falling back to defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer f.Close()

	cfg := Default()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints plus the rules the struct tags
// cannot express: the small bound stays below the medium bound and the
// closing kernel side is odd.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	sc := c.Vectorization.SizeCategories
	if sc.Small >= sc.Medium {
		return fmt.Errorf("%w: size category small bound (%d) must be below medium bound (%d)",
			ErrInvalidConfig, sc.Small, sc.Medium)
	}
	if k := c.Postprocessing.MorphologyKernelSize; k > 0 && k%2 == 0 {
		return fmt.Errorf("%w: morphology_kernel_size (%d) must be odd", ErrInvalidConfig, k)
	}
	return nil
}
