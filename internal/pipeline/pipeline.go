// Package pipeline orchestrates the tile fan-out: post-process each
// mask, extract polygons concurrently, then merge the per-tile results
// into one deduplicated collection.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/parksight/parksight/internal/config"
	"github.com/parksight/parksight/internal/mask"
	"github.com/parksight/parksight/internal/overlay"
	"github.com/parksight/parksight/internal/vectorize"
)

// Pipeline runs the mask-to-GeoJSON flow for a batch of tiles.
type Pipeline struct {
	cfg config.Config
	log *logrus.Entry
}

// New builds a pipeline with a run-scoped logger. Every log line of
// one run carries the same run_id so concurrent tile output stays
// attributable.
func New(cfg config.Config, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		log: logger.WithField("run_id", uuid.NewString()),
	}
}

// Run processes all tiles and returns the merged lot collection.
// Tiles are handled by a bounded worker pool; results are collected
// per tile index so the merge sees them in input order regardless of
// completion order. The first tile error cancels the remaining work.
func (p *Pipeline) Run(ctx context.Context, tiles []Tile) ([]vectorize.Lot, error) {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tiles) && len(tiles) > 0 {
		workers = len(tiles)
	}
	p.log.WithFields(logrus.Fields{
		"tiles":   len(tiles),
		"workers": workers,
	}).Info("starting pipeline run")

	if dir := p.cfg.Paths.OverlayDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create overlay directory %s: %w", dir, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	perTile := make([][]vectorize.Lot, len(tiles))
	indices := make(chan int)
	errs := make(chan error, len(tiles))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				lots, err := p.processTile(ctx, tiles[i])
				if err != nil {
					errs <- err
					cancel()
					return
				}
				perTile[i] = lots
			}
		}()
	}

feed:
	for i := range tiles {
		select {
		case indices <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indices)
	wg.Wait()
	close(errs)

	// Prefer a real tile failure over the cancellations it triggered
	// in sibling workers.
	var firstErr error
	for err := range errs {
		if firstErr == nil || errors.Is(firstErr, context.Canceled) {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		return nil, firstErr
	}

	merged := vectorize.Merge(perTile)
	p.log.WithField("lots", len(merged)).Info("pipeline run complete")
	return merged, nil
}

// processTile cleans one mask and extracts its lots.
func (p *Pipeline) processTile(ctx context.Context, tile Tile) ([]vectorize.Lot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := p.log.WithField("tile", tile.Name)

	pp := p.cfg.Postprocessing
	cleaned := mask.Postprocess(tile.Mask, pp.MinAreaPixels, pp.FillHolesPixels, pp.MorphologyKernelSize)

	if dir := p.cfg.Paths.OverlayDir; dir != "" {
		path := filepath.Join(dir, tile.Name+"_overlay.png")
		if err := overlay.Save(cleaned, tile.Prob, path); err != nil {
			return nil, fmt.Errorf("tile %s: %w", tile.Name, err)
		}
	}

	v := p.cfg.Vectorization
	lots := vectorize.Extract(cleaned, tile.Transform, tile.Prob, vectorize.Options{
		SpotAreaM2:         v.SpotAreaM2,
		SimplifyToleranceM: v.SimplifyTolerance,
		SmallMax:           v.SizeCategories.Small,
		MediumMax:          v.SizeCategories.Medium,
	})
	log.WithField("lots", len(lots)).Debug("tile vectorized")
	return lots, nil
}
