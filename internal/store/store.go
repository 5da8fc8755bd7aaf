// Package store persists merged lot collections to Postgres so
// downstream analytics can query them without re-parsing GeoJSON
// files. Geometry is stored as a GeoJSON text column; nothing in the
// pipeline needs spatial SQL.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/paulmach/orb/geojson"

	"github.com/parksight/parksight/internal/vectorize"
)

const schema = `
CREATE TABLE IF NOT EXISTS parking_lots (
	lot_id        integer PRIMARY KEY,
	geometry      jsonb NOT NULL,
	area_m2       double precision NOT NULL,
	num_spots     integer NOT NULL,
	confidence    double precision NOT NULL,
	size_category text NOT NULL,
	center_lon    double precision NOT NULL,
	center_lat    double precision NOT NULL
);
`

// LotStore is a Postgres-backed lot repository.
type LotStore struct {
	db *sqlx.DB
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*LotStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &LotStore{db: db}, nil
}

// Close releases the connection pool.
func (s *LotStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the lot table if it does not exist.
func (s *LotStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// lotRow is the database shape of a lot.
type lotRow struct {
	LotID        int     `db:"lot_id"`
	Geometry     []byte  `db:"geometry"`
	AreaM2       float64 `db:"area_m2"`
	NumSpots     int     `db:"num_spots"`
	Confidence   float64 `db:"confidence"`
	SizeCategory string  `db:"size_category"`
	CenterLon    float64 `db:"center_lon"`
	CenterLat    float64 `db:"center_lat"`
}

// ReplaceLots swaps the stored collection for the given one in a
// single transaction, so readers see either the old run or the new
// run, never a mix.
func (s *LotStore) ReplaceLots(ctx context.Context, lots []vectorize.Lot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM parking_lots`); err != nil {
		return fmt.Errorf("failed to clear lots: %w", err)
	}

	const insert = `
		INSERT INTO parking_lots
			(lot_id, geometry, area_m2, num_spots, confidence, size_category, center_lon, center_lat)
		VALUES
			(:lot_id, :geometry, :area_m2, :num_spots, :confidence, :size_category, :center_lon, :center_lat)`
	for _, lot := range lots {
		geom, err := json.Marshal(geojson.NewGeometry(lot.Geometry))
		if err != nil {
			return fmt.Errorf("lot %d: failed to encode geometry: %w", lot.ID, err)
		}
		row := lotRow{
			LotID:        lot.ID,
			Geometry:     geom,
			AreaM2:       lot.AreaM2,
			NumSpots:     lot.NumSpots,
			Confidence:   lot.Confidence,
			SizeCategory: string(lot.SizeCategory),
			CenterLon:    lot.CenterLon,
			CenterLat:    lot.CenterLat,
		}
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("failed to insert lot %d: %w", lot.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lots: %w", err)
	}
	return nil
}

// CategoryCounts returns the number of stored lots per size category.
func (s *LotStore) CategoryCounts(ctx context.Context) (map[vectorize.SizeCategory]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT size_category, count(*) AS n FROM parking_lots GROUP BY size_category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer rows.Close()

	counts := map[vectorize.SizeCategory]int{}
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[vectorize.SizeCategory(category)] = n
	}
	return counts, rows.Err()
}

// Totals returns the stored lot count and the summed spot estimate.
func (s *LotStore) Totals(ctx context.Context) (lots, spots int, err error) {
	err = s.db.QueryRowxContext(ctx,
		`SELECT count(*), coalesce(sum(num_spots), 0) FROM parking_lots`).Scan(&lots, &spots)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read totals: %w", err)
	}
	return lots, spots, nil
}
