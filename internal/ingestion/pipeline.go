// Package ingestion implements the corpus build pipeline. It loads the
// document corpus from disk, builds (or reuses) the per-document indices,
// wraps each document in an agent tool, registers the tools for retrieval,
// and optionally feeds the flat baseline index.
// This pipeline is invoked by the `docmind build` CLI command and at server
// startup.
package ingestion

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/docmind-go/internal/baseline"
	"github.com/54b3r/docmind-go/internal/docagent"
	"github.com/54b3r/docmind-go/internal/loader"
	"github.com/54b3r/docmind-go/internal/rag"
	"github.com/54b3r/docmind-go/internal/toolreg"
)

// Result summarises one pipeline run.
type Result struct {
	// Documents is the number of documents processed.
	Documents int
	// Chunks is the total number of chunks across all documents.
	Chunks int
	// Rebuilt is how many documents had their index rebuilt (cache misses).
	Rebuilt int
	// Agents holds the constructed per-document agents in corpus order.
	Agents []*docagent.Agent
	// Docs holds one summary per processed document, in corpus order.
	Docs []DocSummary
}

// DocSummary describes one ingested document.
type DocSummary struct {
	// ID is the stable document identifier.
	ID string
	// Title is the human-readable document title.
	Title string
	// Synopsis is the cached one-paragraph summary.
	Synopsis string
	// Chunks is the number of indexed chunks.
	Chunks int
}

// Pipeline orchestrates the load → build → register flow for a corpus
// directory.
type Pipeline struct {
	// load reads documents from the corpus directory.
	load *loader.Loader

	// builder constructs or reuses per-document indices.
	builder *docagent.Builder

	// chat is the LLM backend shared by all document agents.
	chat model.ToolCallingChatModel

	// embedder produces query embeddings for the document search tools.
	embedder rag.Embedder

	// registry receives one tool per document agent.
	registry *toolreg.Registry

	// flat is the optional baseline index; nil disables baseline indexing.
	flat *baseline.Index
}

// NewPipeline constructs a Pipeline from the provided dependencies.
// flat may be nil when no baseline index is configured.
func NewPipeline(load *loader.Loader, builder *docagent.Builder, chat model.ToolCallingChatModel, embedder rag.Embedder, registry *toolreg.Registry, flat *baseline.Index) (*Pipeline, error) {
	if load == nil {
		return nil, fmt.Errorf("ingestion: loader must not be nil")
	}
	if builder == nil {
		return nil, fmt.Errorf("ingestion: builder must not be nil")
	}
	if chat == nil {
		return nil, fmt.Errorf("ingestion: chat model must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("ingestion: registry must not be nil")
	}
	return &Pipeline{
		load:     load,
		builder:  builder,
		chat:     chat,
		embedder: embedder,
		registry: registry,
		flat:     flat,
	}, nil
}

// Run processes every document in corpusDir sequentially and returns the
// first error encountered. Progress is reported via the optional progress
// callback. The embedder is only called for documents whose content changed
// since the last run.
func (p *Pipeline) Run(ctx context.Context, corpusDir string, progress func(msg string)) (*Result, error) {
	if progress == nil {
		progress = func(string) {}
	}

	docs, err := p.load.LoadDir(corpusDir)
	if err != nil {
		return nil, fmt.Errorf("ingestion: load corpus: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("ingestion: no documents found in %s", corpusDir)
	}
	progress(fmt.Sprintf("loaded %d documents from %s", len(docs), corpusDir))

	result := &Result{}
	for _, doc := range docs {
		idx, err := p.builder.Build(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("ingestion: build %s: %w", doc.ID, err)
		}
		if idx.Rebuilt {
			result.Rebuilt++
			progress(fmt.Sprintf("rebuilt index for %s (%d chunks)", doc.ID, idx.ChunkCount))
		} else {
			progress(fmt.Sprintf("reused cached index for %s (%d chunks)", doc.ID, idx.ChunkCount))
		}

		agent, err := docagent.NewAgent(ctx, idx, p.embedder, p.chat)
		if err != nil {
			return nil, fmt.Errorf("ingestion: agent for %s: %w", doc.ID, err)
		}
		if err := p.registry.Add(ctx, agent); err != nil {
			return nil, fmt.Errorf("ingestion: register %s: %w", doc.ID, err)
		}

		if p.flat != nil {
			if _, err := p.flat.Add(ctx, doc); err != nil {
				return nil, fmt.Errorf("ingestion: baseline index %s: %w", doc.ID, err)
			}
		}

		result.Documents++
		result.Chunks += idx.ChunkCount
		result.Agents = append(result.Agents, agent)
		result.Docs = append(result.Docs, DocSummary{
			ID:       idx.DocID,
			Title:    idx.Title,
			Synopsis: idx.Synopsis,
			Chunks:   idx.ChunkCount,
		})
	}

	progress(fmt.Sprintf("built %d document agents (%d chunks, %d rebuilt)",
		result.Documents, result.Chunks, result.Rebuilt))
	return result, nil
}
