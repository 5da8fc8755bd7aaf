package rag

import (
	"context"
	"fmt"
)

// Embedder turns texts into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever answers similarity queries against a loaded index. Both
// collaborators are injected so tests can swap in stubs and callers
// control the client lifecycle; there is no package-level state.
type Retriever struct {
	embedder Embedder
	index    *Index
}

// NewRetriever wires an embedder to an index.
func NewRetriever(embedder Embedder, index *Index) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns the text of the topK chunks most relevant to the
// query, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vecs))
	}

	docs := r.index.Search(vecs[0], topK)
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	return texts, nil
}

// Healthy reports whether the retriever has data to search.
func (r *Retriever) Healthy() bool {
	return r.index != nil && r.index.Len() > 0
}
