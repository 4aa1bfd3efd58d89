// Package baseline implements a flat retrieval pipeline over the whole
// corpus: every chunk of every document in one vector collection, top-k
// retrieval, and a single synthesis call. It exists as a comparison point
// for the per-document agent pipeline.
package baseline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docmind-go/internal/logging"
	"github.com/54b3r/docmind-go/internal/rag"
	"github.com/54b3r/docmind-go/internal/splitter"
)

// DefaultTopK is the number of chunks retrieved per query when the caller
// does not specify one.
const DefaultTopK = 4

// embedBatchSize bounds how many chunk texts are sent to the embedder per
// request during indexing.
const embedBatchSize = 64

// generator is the minimal slice of a chat model the baseline needs.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Index is the flat corpus index: one vector store shared by all documents.
type Index struct {
	// embedder produces chunk embeddings during indexing.
	embedder rag.Embedder
	// store holds every chunk of every document.
	store rag.VectorStore
	// retriever answers query-time similarity searches over the store.
	retriever rag.Retriever
	// gen synthesizes answers from retrieved context.
	gen generator
	// split divides documents into chunks.
	split *splitter.SentenceSplitter
}

// New constructs a flat Index over the given store.
func New(embedder rag.Embedder, store rag.VectorStore, gen generator, split *splitter.SentenceSplitter) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("baseline: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("baseline: store must not be nil")
	}
	if gen == nil {
		return nil, fmt.Errorf("baseline: generator must not be nil")
	}
	if split == nil {
		return nil, fmt.Errorf("baseline: splitter must not be nil")
	}
	retriever, err := rag.NewRetriever(embedder, store, DefaultTopK)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	return &Index{embedder: embedder, store: store, retriever: retriever, gen: gen, split: split}, nil
}

// Add splits a document and upserts its chunks into the shared store.
// Re-adding an unchanged document overwrites the same points, so Add is
// idempotent per document content.
func (x *Index) Add(ctx context.Context, doc rag.Document) (int, error) {
	chunks := x.split.Split(doc)
	if len(chunks) == 0 {
		return 0, nil
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		embeddings, err := x.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("baseline: embed chunks for %s: %w", doc.ID, err)
		}
		if err := x.store.Upsert(ctx, batch, embeddings); err != nil {
			return 0, fmt.Errorf("baseline: upsert chunks for %s: %w", doc.ID, err)
		}
	}

	logging.FromContext(ctx).Debug("indexed document into flat collection",
		slog.String("doc_id", doc.ID), slog.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// answerPrompt instructs the synthesis call to answer only from the
// retrieved context.
const answerPrompt = `You answer questions using only the provided context passages.
If the context does not contain the answer, say so plainly. Do not use prior knowledge.`

// Query retrieves the topK most similar chunks across the whole corpus and
// synthesizes an answer from them in a single model call. topK <= 0 selects
// DefaultTopK.
func (x *Index) Query(ctx context.Context, question string, topK int) (string, error) {
	chunks, err := x.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return "", fmt.Errorf("baseline: retrieve: %w", err)
	}
	if len(chunks) == 0 {
		return "No relevant passages found in the corpus.", nil
	}

	var sb strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&sb, "[%d] (from %s)\n%s\n\n", i+1, c.DocID, c.Text)
	}

	msg, err := x.gen.Generate(ctx, []*schema.Message{
		schema.SystemMessage(answerPrompt),
		schema.UserMessage(fmt.Sprintf("Context:\n%s\nQuestion: %s", sb.String(), question)),
	})
	if err != nil {
		return "", fmt.Errorf("baseline: synthesis: %w", err)
	}
	return msg.Content, nil
}
