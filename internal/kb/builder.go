// Package kb assembles the parking knowledge base: neighborhood
// background from Wikipedia, amenity summaries from OpenStreetMap,
// and an aggregate of the detected lots, all chunked, embedded and
// written to a vector index.
package kb

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/parksight/parksight/internal/rag"
	"github.com/parksight/parksight/internal/vectorize"
)

// ChunkWords is the approximate chunk length in words.
const ChunkWords = 300

// Builder collects source documents and embeds them into an index.
// Source failures are logged and skipped so one unreachable service
// does not lose the rest of the knowledge base; embedding failures
// are fatal because they would silently cripple retrieval.
type Builder struct {
	wiki      *WikipediaClient
	amenities *AmenityFetcher
	embedder  rag.Embedder
	log       *logrus.Entry
}

// NewBuilder wires the knowledge base sources to an embedder.
func NewBuilder(wiki *WikipediaClient, amenities *AmenityFetcher, embedder rag.Embedder, logger *logrus.Logger) *Builder {
	return &Builder{
		wiki:      wiki,
		amenities: amenities,
		embedder:  embedder,
		log:       logger.WithField("component", "kb"),
	}
}

// Build gathers all documents for the neighborhoods and lot
// collection, embeds them and returns the populated index.
func (b *Builder) Build(ctx context.Context, neighborhoods []Neighborhood, lots []vectorize.Lot) (*rag.Index, error) {
	docs := b.collect(ctx, neighborhoods, lots)
	if len(docs) == 0 {
		return nil, fmt.Errorf("no knowledge base documents could be built")
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed knowledge base: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	index := rag.NewIndex()
	for i, d := range docs {
		index.Add(d, vectors[i])
	}
	b.log.WithField("documents", index.Len()).Info("knowledge base built")
	return index, nil
}

func (b *Builder) collect(ctx context.Context, neighborhoods []Neighborhood, lots []vectorize.Lot) []rag.Document {
	var docs []rag.Document

	for _, n := range neighborhoods {
		if n.WikiPage != "" {
			text, err := b.wiki.Extract(ctx, n.WikiPage)
			if err != nil {
				b.log.WithError(err).WithField("page", n.WikiPage).Warn("skipping wikipedia source")
			} else {
				for i, chunk := range ChunkText(text, ChunkWords) {
					docs = append(docs, rag.Document{
						Text:    chunk,
						Source:  "wikipedia_" + n.WikiPage,
						ChunkID: i,
					})
				}
			}
		}

		if n.Lat != 0 || n.Lon != 0 {
			summary, err := b.amenities.Summary(n.Name, n.Lat, n.Lon)
			if err != nil {
				b.log.WithError(err).WithField("neighborhood", n.Name).Warn("skipping amenity source")
			} else if summary != "" {
				docs = append(docs, rag.Document{Text: summary, Source: "osm_" + n.Name})
			}
		}
	}

	if summary := ParkingSummary(lots); summary != "" {
		docs = append(docs, rag.Document{Text: summary, Source: "parking_analysis"})
	}
	return docs
}

// ParkingSummary aggregates a lot collection into one retrievable
// paragraph. Returns an empty string for an empty collection.
func ParkingSummary(lots []vectorize.Lot) string {
	if len(lots) == 0 {
		return ""
	}
	var spots, small, medium, large int
	for _, lot := range lots {
		spots += lot.NumSpots
		switch lot.SizeCategory {
		case vectorize.SizeSmall:
			small++
		case vectorize.SizeMedium:
			medium++
		case vectorize.SizeLarge:
			large++
		}
	}
	return fmt.Sprintf(
		"Atlanta parking data: %d surface parking lots detected with %d total estimated spaces. "+
			"Size distribution: %d small lots (under 50 spaces), %d medium lots (50-200 spaces), %d large lots (200+ spaces). "+
			"Average lot size is approximately %d spaces.",
		len(lots), spots, small, medium, large, spots/len(lots))
}

// ChunkText splits text into chunks of roughly chunkWords words each.
// Whitespace-only input yields no chunks.
func ChunkText(text string, chunkWords int) []string {
	words := strings.Fields(text)
	if chunkWords <= 0 {
		chunkWords = ChunkWords
	}
	var chunks []string
	for i := 0; i < len(words); i += chunkWords {
		end := i + chunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
