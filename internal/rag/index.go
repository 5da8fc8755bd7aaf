package rag

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// Document is one knowledge base entry: a text chunk plus provenance.
type Document struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	ChunkID int    `json:"chunk_id"`
}

// Index is a flat vector index over documents. Vectors are normalized
// on insert so inner product equals cosine similarity, and search is
// an exact scan. The knowledge base is a few hundred chunks, far below
// the point where approximate indexing pays off.
type Index struct {
	Documents []Document  `json:"documents"`
	Vectors   [][]float32 `json:"vectors"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Add stores a document with its embedding. The vector is normalized
// in place; a zero vector is stored as-is and never matches anything.
func (idx *Index) Add(doc Document, vector []float32) {
	normalize(vector)
	idx.Documents = append(idx.Documents, doc)
	idx.Vectors = append(idx.Vectors, vector)
}

// Len reports the number of indexed documents.
func (idx *Index) Len() int { return len(idx.Documents) }

// Search returns the topK documents most similar to the query vector,
// best first. The query is normalized internally.
func (idx *Index) Search(query []float32, topK int) []Document {
	if topK <= 0 || idx.Len() == 0 {
		return nil
	}
	q := make([]float32, len(query))
	copy(q, query)
	normalize(q)

	type scored struct {
		i     int
		score float32
	}
	scores := make([]scored, 0, idx.Len())
	for i, v := range idx.Vectors {
		scores = append(scores, scored{i: i, score: dot(q, v)})
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })

	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]Document, topK)
	for i := 0; i < topK; i++ {
		out[i] = idx.Documents[scores[i].i]
	}
	return out
}

// Save writes the index to path as JSON.
func (idx *Index) Save(path string) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index %s: %w", path, err)
	}
	return nil
}

// LoadIndex reads an index written by Save.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", path, err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse index %s: %w", path, err)
	}
	if len(idx.Documents) != len(idx.Vectors) {
		return nil, fmt.Errorf("index %s: %d documents but %d vectors", path,
			len(idx.Documents), len(idx.Vectors))
	}
	return &idx, nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
