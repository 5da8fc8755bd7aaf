package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/parksight/parksight/internal/vectorize"
)

// ErrSerialize reports a collection that could not be encoded.
var ErrSerialize = errors.New("failed to serialize collection")

// ErrInvalidGeometry reports a lot whose polygon cannot be written as
// valid GeoJSON.
var ErrInvalidGeometry = errors.New("invalid lot geometry")

// Save writes the lot collection to path as a GeoJSON FeatureCollection
// in WGS84. Property types are pinned on the way out: area_m2 and
// confidence are JSON numbers with fractional part, num_spots and
// lot_id are integers, size_category is a string. An empty collection
// writes a valid FeatureCollection with zero features.
//
// The file is written to a temporary sibling and renamed into place,
// so readers never observe a partially written collection.
func Save(lots []vectorize.Lot, path string) error {
	fc := geojson.NewFeatureCollection()
	for _, lot := range lots {
		if err := checkGeometry(lot.Geometry); err != nil {
			return fmt.Errorf("lot %d: %w", lot.ID, err)
		}
		f := geojson.NewFeature(lot.Geometry)
		f.Properties = geojson.Properties{
			"lot_id":        lot.ID,
			"area_m2":       lot.AreaM2,
			"num_spots":     lot.NumSpots,
			"confidence":    lot.Confidence,
			"size_category": string(lot.SizeCategory),
			"center_lon":    lot.CenterLon,
			"center_lat":    lot.CenterLat,
		}
		fc.Append(f)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return atomicWrite(path, data)
}

// Load reads a GeoJSON FeatureCollection written by Save back into
// lots. Features without polygon geometry are rejected.
func Load(path string) ([]vectorize.Lot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	lots := make([]vectorize.Lot, 0, len(fc.Features))
	for i, f := range fc.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok {
			return nil, fmt.Errorf("feature %d: %w: %T", i, ErrInvalidGeometry, f.Geometry)
		}
		lots = append(lots, vectorize.Lot{
			ID:           propInt(f.Properties, "lot_id"),
			Geometry:     poly,
			AreaM2:       propFloat(f.Properties, "area_m2"),
			NumSpots:     propInt(f.Properties, "num_spots"),
			Confidence:   propFloat(f.Properties, "confidence"),
			SizeCategory: vectorize.SizeCategory(propString(f.Properties, "size_category")),
			CenterLon:    propFloat(f.Properties, "center_lon"),
			CenterLat:    propFloat(f.Properties, "center_lat"),
		})
	}
	return lots, nil
}

// checkGeometry rejects polygons that would serialize to invalid
// GeoJSON: no rings, or a ring that is open or shorter than a closed
// triangle.
func checkGeometry(poly orb.Polygon) error {
	if len(poly) == 0 {
		return fmt.Errorf("%w: no rings", ErrInvalidGeometry)
	}
	for i, ring := range poly {
		if len(ring) < 4 {
			return fmt.Errorf("%w: ring %d has %d points", ErrInvalidGeometry, i, len(ring))
		}
		if ring[0] != ring[len(ring)-1] {
			return fmt.Errorf("%w: ring %d is not closed", ErrInvalidGeometry, i)
		}
	}
	return nil
}

// atomicWrite writes data to a temporary file in the target directory
// and renames it over path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", tmp.Name(), err)
	}
	return nil
}

func propFloat(p geojson.Properties, key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func propInt(p geojson.Properties, key string) int {
	return int(propFloat(p, key))
}

func propString(p geojson.Properties, key string) string {
	s, _ := p[key].(string)
	return s
}
