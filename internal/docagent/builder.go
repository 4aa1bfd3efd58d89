package docagent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docmind-go/internal/index"
	"github.com/54b3r/docmind-go/internal/logging"
	"github.com/54b3r/docmind-go/internal/rag"
	"github.com/54b3r/docmind-go/internal/splitter"
)

// generator is the minimal slice of a chat model the builder needs: a single
// blocking completion. Satisfied by any Eino chat model.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// DocIndex bundles everything built for one document: its persisted vector
// index, its summary index, and a one-sentence synopsis used as the routing
// description for the document's agent tool.
type DocIndex struct {
	// DocID is the stable document identifier.
	DocID string
	// Title is the human-readable document title.
	Title string
	// Vector is the persisted per-document vector index.
	Vector *index.VectorIndex
	// Summary answers holistic questions from the full document content.
	Summary *index.SummaryIndex
	// Synopsis is a one-sentence description of the document.
	Synopsis string
	// Rebuilt reports whether the vector index was rebuilt (cache miss).
	Rebuilt bool
	// ChunkCount is the number of chunks stored in the vector index.
	ChunkCount int
}

// Builder constructs per-document indices, reusing cached artifacts when the
// document content has not changed since the last build.
type Builder struct {
	// embedder produces chunk and query embeddings.
	embedder rag.Embedder
	// gen produces summaries and synopses.
	gen generator
	// split divides documents into sentence-bounded chunks.
	split *splitter.SentenceSplitter
	// cacheDir is the root directory for persisted per-document artifacts.
	cacheDir string
	// maxWindowTokens bounds each summary window.
	maxWindowTokens int
}

// NewBuilder constructs a Builder. maxWindowTokens <= 0 selects the default
// summary window size.
func NewBuilder(embedder rag.Embedder, gen generator, split *splitter.SentenceSplitter, cacheDir string, maxWindowTokens int) (*Builder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("docagent: embedder must not be nil")
	}
	if gen == nil {
		return nil, fmt.Errorf("docagent: generator must not be nil")
	}
	if split == nil {
		return nil, fmt.Errorf("docagent: splitter must not be nil")
	}
	if cacheDir == "" {
		return nil, fmt.Errorf("docagent: cacheDir must not be empty")
	}
	return &Builder{
		embedder:        embedder,
		gen:             gen,
		split:           split,
		cacheDir:        cacheDir,
		maxWindowTokens: maxWindowTokens,
	}, nil
}

// Build ensures the document's vector index, summary index, and synopsis
// exist and are current. When the stored content hash matches, the persisted
// index is reused without calling the embedder.
func (b *Builder) Build(ctx context.Context, doc rag.Document) (*DocIndex, error) {
	log := logging.FromContext(ctx)
	hash := index.ContentHash(doc.Content)

	vec, err := index.OpenVectorIndex(b.cacheDir, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("docagent: open vector index for %s: %w", doc.ID, err)
	}

	fresh, err := vec.Fresh(ctx, hash)
	if err != nil {
		_ = vec.Close()
		return nil, fmt.Errorf("docagent: freshness check for %s: %w", doc.ID, err)
	}

	var chunks []rag.Chunk
	if fresh {
		texts, err := vec.Texts(ctx)
		if err != nil {
			_ = vec.Close()
			return nil, fmt.Errorf("docagent: load cached chunks for %s: %w", doc.ID, err)
		}
		for i, text := range texts {
			chunks = append(chunks, rag.Chunk{DocID: doc.ID, Index: i, Text: text})
		}
		log.Debug("reusing cached vector index", "doc_id", doc.ID, "chunks", len(chunks))
	} else {
		chunks = b.split.Split(doc)
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		embeddings, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			_ = vec.Close()
			return nil, fmt.Errorf("docagent: embed chunks for %s: %w", doc.ID, err)
		}
		if err := vec.Rebuild(ctx, hash, chunks, embeddings); err != nil {
			_ = vec.Close()
			return nil, fmt.Errorf("docagent: rebuild index for %s: %w", doc.ID, err)
		}
		log.Info("rebuilt vector index", "doc_id", doc.ID, "chunks", len(chunks))
	}

	summary, err := index.NewSummaryIndex(doc.Title, chunks, b.gen, b.maxWindowTokens)
	if err != nil {
		_ = vec.Close()
		return nil, fmt.Errorf("docagent: summary index for %s: %w", doc.ID, err)
	}

	synopsis, err := b.ensureSynopsis(ctx, doc, hash)
	if err != nil {
		_ = vec.Close()
		return nil, fmt.Errorf("docagent: synopsis for %s: %w", doc.ID, err)
	}

	return &DocIndex{
		DocID:      doc.ID,
		Title:      doc.Title,
		Vector:     vec,
		Summary:    summary,
		Synopsis:   synopsis,
		Rebuilt:    !fresh,
		ChunkCount: len(chunks),
	}, nil
}

// synopsisRecord is the on-disk format of a cached synopsis.
type synopsisRecord struct {
	// ContentHash is the document content hash the synopsis was built from.
	ContentHash string `json:"content_hash"`
	// Synopsis is the one-sentence document description.
	Synopsis string `json:"synopsis"`
}

// ensureSynopsis returns the cached synopsis when its content hash matches,
// generating and persisting a new one otherwise.
func (b *Builder) ensureSynopsis(ctx context.Context, doc rag.Document, hash string) (string, error) {
	path := filepath.Join(b.cacheDir, doc.ID, "summary.json")

	if data, err := os.ReadFile(path); err == nil {
		var rec synopsisRecord
		if err := json.Unmarshal(data, &rec); err == nil && rec.ContentHash == hash && rec.Synopsis != "" {
			return rec.Synopsis, nil
		}
	}

	synopsis, err := b.generateSynopsis(ctx, doc)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(synopsisRecord{ContentHash: hash, Synopsis: synopsis}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal synopsis: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write synopsis: %w", err)
	}
	return synopsis, nil
}

// synopsisExcerptChars bounds how much document content is sent to the model
// when generating a synopsis. The opening of a document is almost always
// enough to describe what it covers.
const synopsisExcerptChars = 4000

// generateSynopsis asks the model for a one-sentence description of the
// document, suitable as a routing hint for agents choosing between documents.
func (b *Builder) generateSynopsis(ctx context.Context, doc rag.Document) (string, error) {
	excerpt := doc.Content
	if len(excerpt) > synopsisExcerptChars {
		excerpt = excerpt[:synopsisExcerptChars]
	}

	msg, err := b.gen.Generate(ctx, []*schema.Message{
		schema.SystemMessage("You write one-sentence descriptions of documents. " +
			"Respond with a single sentence stating what the document covers. No preamble."),
		schema.UserMessage(fmt.Sprintf("Document title: %s\n\nOpening content:\n%s", doc.Title, excerpt)),
	})
	if err != nil {
		return "", fmt.Errorf("generate synopsis: %w", err)
	}
	if msg.Content == "" {
		return fmt.Sprintf("Contains information about %s.", doc.Title), nil
	}
	return msg.Content, nil
}
