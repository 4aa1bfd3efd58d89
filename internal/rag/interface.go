// Package rag defines the shared retrieval-augmented-generation types and
// interfaces: documents, chunks, vector storage, and embedding.
// Concrete implementations (per-document SQLite indices, the flat Qdrant
// baseline, the tool object index) satisfy these interfaces so the agent
// layers never depend on a specific backend.
package rag

import (
	"context"
)

// Document represents one logical source document loaded from the corpus.
type Document struct {
	// ID is the stable identifier derived from the source file name.
	ID string

	// Title is the human-readable document title (from the HTML <title> or
	// the file name when no title is present).
	Title string

	// Source is the origin file path of the document.
	Source string

	// Content is the extracted plain text of the document.
	Content string
}

// Chunk is a contiguous slice of a document's text produced by the splitter.
// Each chunk is owned by exactly one document.
type Chunk struct {
	// DocID identifies the owning document.
	DocID string

	// Index is the zero-based position of this chunk within the document.
	Index int

	// Text is the chunk content.
	Text string

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the interface for persisting and searching chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of chunks with their pre-computed
	// embeddings. The embeddings slice must be parallel to chunks —
	// embeddings[i] is the vector for chunks[i].
	Upsert(ctx context.Context, chunks []Chunk, embeddings [][]float32) error

	// Search performs a semantic similarity search and returns the top-k
	// most relevant chunks for the given query embedding.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Chunk, error)

	// Close releases any resources held by the store.
	Close() error
}

// Retriever is the high-level interface for fetching relevant chunks for a
// free-text query. It combines embedding and vector search.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant chunks for the given query.
	Retrieve(ctx context.Context, query string, topK int) ([]Chunk, error)
}
