// Package rag implements retrieval-augmented answers over the parking
// knowledge base: a flat cosine-similarity vector index, a retriever
// that embeds queries against it, and a chatbot that grounds each
// model turn in the retrieved chunks. Embedding and generation are
// interfaces; the gemini package provides the production
// implementation.
package rag
