package export

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/parksight/parksight/internal/vectorize"
)

func sampleLot(id int) vectorize.Lot {
	return vectorize.Lot{
		ID: id,
		Geometry: orb.Polygon{{
			{-84.3880, 33.7490},
			{-84.3870, 33.7490},
			{-84.3870, 33.7500},
			{-84.3880, 33.7500},
			{-84.3880, 33.7490},
		}},
		AreaM2:       1234.5,
		NumSpots:     98,
		Confidence:   0.92,
		SizeCategory: vectorize.SizeMedium,
		CenterLon:    -84.3875,
		CenterLat:    33.7495,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parking_lots.geojson")
	want := []vectorize.Lot{sampleLot(0), sampleLot(1)}
	want[1].CenterLon = -84.40

	if err := Save(want, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lots, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].NumSpots != want[i].NumSpots ||
			got[i].SizeCategory != want[i].SizeCategory {
			t.Errorf("lot %d attributes changed: got %+v", i, got[i])
		}
		if math.Abs(got[i].AreaM2-want[i].AreaM2) > 1e-6 ||
			math.Abs(got[i].Confidence-want[i].Confidence) > 1e-6 ||
			math.Abs(got[i].CenterLon-want[i].CenterLon) > 1e-6 ||
			math.Abs(got[i].CenterLat-want[i].CenterLat) > 1e-6 {
			t.Errorf("lot %d numeric properties drifted: got %+v", i, got[i])
		}
		if len(got[i].Geometry) != 1 || len(got[i].Geometry[0]) != 5 {
			t.Errorf("lot %d geometry changed shape", i)
		}
	}
}

func TestSaveEmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.geojson")
	if err := Save(nil, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.Type != "FeatureCollection" {
		t.Errorf("type = %q, want FeatureCollection", doc.Type)
	}
	if doc.Features == nil || len(doc.Features) != 0 {
		t.Errorf("features = %v, want empty array", doc.Features)
	}
}

func TestSaveRejectsInvalidGeometry(t *testing.T) {
	tests := []struct {
		name string
		geom orb.Polygon
	}{
		{name: "no rings", geom: orb.Polygon{}},
		{name: "open ring", geom: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}},
		{name: "too few points", geom: orb.Polygon{{{0, 0}, {1, 0}, {0, 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := sampleLot(0)
			lot.Geometry = tt.geom
			err := Save([]vectorize.Lot{lot}, filepath.Join(t.TempDir(), "x.geojson"))
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("err = %v, want ErrInvalidGeometry", err)
			}
		})
	}
}

func TestSaveToUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "out.geojson")
	if err := Save([]vectorize.Lot{sampleLot(0)}, path); err == nil {
		t.Error("expected an error writing into a missing directory")
	}
}

func TestSaveLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lots.geojson")
	if err := Save([]vectorize.Lot{sampleLot(0)}, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "lots.geojson" {
		t.Errorf("directory should contain only the output file, got %v", entries)
	}
}
