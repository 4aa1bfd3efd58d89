package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/docmind-go/internal/baseline"
	"github.com/54b3r/docmind-go/internal/docagent"
	"github.com/54b3r/docmind-go/internal/embedder"
	"github.com/54b3r/docmind-go/internal/ingestion"
	"github.com/54b3r/docmind-go/internal/loader"
	"github.com/54b3r/docmind-go/internal/provider"
	"github.com/54b3r/docmind-go/internal/rag"
	"github.com/54b3r/docmind-go/internal/rerank"
	"github.com/54b3r/docmind-go/internal/splitter"
	"github.com/54b3r/docmind-go/internal/toolreg"
)

// rerankCandidateK is how many similarity candidates are handed to the
// reranker before it narrows them down to the agent's tool top-k.
const rerankCandidateK = 10

// corpusOptions holds the resolved ingestion settings shared by the build,
// ask, and serve commands.
type corpusOptions struct {
	// Dir is the corpus directory to ingest.
	Dir string
	// CacheDir is where per-document indices and synopses are persisted.
	CacheDir string
	// MaxDocs caps the number of documents loaded (0 = loader default).
	MaxDocs int
	// SkipBlocks drops the shared table-of-contents prefix from each document.
	SkipBlocks int
	// Baseline enables the flat Qdrant-backed baseline index.
	Baseline bool
}

// resolveCorpus fills unset corpusOptions fields from the environment and
// validates that a corpus directory is known.
func resolveCorpus(opts *corpusOptions) error {
	if opts.Dir == "" {
		opts.Dir = os.Getenv("DOCMIND_CORPUS_DIR")
	}
	if opts.Dir == "" {
		return fmt.Errorf("no corpus directory: pass --corpus or set DOCMIND_CORPUS_DIR")
	}
	if opts.CacheDir == "" {
		opts.CacheDir = os.Getenv("DOCMIND_CACHE_DIR")
	}
	if opts.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve cache dir: %w", err)
		}
		opts.CacheDir = filepath.Join(home, ".docmind", "cache")
	}
	if opts.MaxDocs == 0 {
		if v, err := strconv.Atoi(os.Getenv("DOCMIND_MAX_DOCS")); err == nil && v > 0 {
			opts.MaxDocs = v
		}
	}
	return nil
}

// components bundles everything one corpus ingestion run produces.
type components struct {
	// chat is the LLM backend shared by all agents.
	chat model.ToolCallingChatModel
	// embedder produces chunk and query embeddings.
	embedder rag.Embedder
	// registry indexes one tool per document agent.
	registry *toolreg.Registry
	// result summarises the ingestion run.
	result *ingestion.Result
	// flat is the baseline index, nil unless opts.Baseline was set.
	flat *baseline.Index
	// qdrant is the baseline's vector store, nil unless opts.Baseline was set.
	qdrant *rag.QdrantStore
}

// buildComponents ingests the corpus and returns the constructed components
// plus a cleanup function that must be called before exit.
func buildComponents(ctx context.Context, log *slog.Logger, opts corpusOptions, progress func(string)) (*components, func(), error) {
	if err := resolveCorpus(&opts); err != nil {
		return nil, nil, err
	}

	chat, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("initialise model provider: %w", err)
	}

	if err := embedder.Validate(log); err != nil {
		return nil, nil, err
	}
	embed, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("initialise embedder: %w", err)
	}

	split := splitter.New(0, 0)

	builder, err := docagent.NewBuilder(embed, chat, split, opts.CacheDir, 0)
	if err != nil {
		return nil, nil, err
	}

	registry, err := toolreg.NewRegistry(embed)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var flat *baseline.Index
	var qstore *rag.QdrantStore
	if opts.Baseline {
		qstore, err = openQdrant(ctx, embed)
		if err != nil {
			return nil, nil, fmt.Errorf("baseline index: %w", err)
		}
		cleanup = func() { _ = qstore.Close() }
		flat, err = baseline.New(embed, qstore, chat, split)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		log.Info("baseline index enabled", slog.String("collection", qdrantCollection()))
	}

	load := loader.New(loader.Config{MaxDocs: opts.MaxDocs, SkipBlocks: opts.SkipBlocks})

	pipeline, err := ingestion.NewPipeline(load, builder, chat, embed, registry, flat)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	result, err := pipeline.Run(ctx, opts.Dir, progress)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &components{
		chat:     chat,
		embedder: embed,
		registry: registry,
		result:   result,
		flat:     flat,
		qdrant:   qstore,
	}, cleanup, nil
}

// buildRetriever assembles the tool retrieval chain for the top-level agent:
// similarity candidates from the registry, optionally narrowed by the Cohere
// reranker, with a comparison tool appended per query over exactly the
// document tools that survived retrieval.
func (c *components) buildRetriever(log *slog.Logger) (toolreg.ToolRetriever, error) {
	var inner toolreg.ToolRetriever = c.registry
	if os.Getenv("COHERE_API_KEY") != "" {
		reranker, err := rerank.NewFromEnv()
		if err != nil {
			return nil, fmt.Errorf("reranker: %w", err)
		}
		rr, err := toolreg.NewRerankRetriever(c.registry, reranker, rerankCandidateK)
		if err != nil {
			return nil, err
		}
		inner = rr
		log.Info("tool reranking enabled", slog.String("model", os.Getenv("RERANK_MODEL")))
	} else {
		log.Info("tool reranking disabled", slog.String("reason", "COHERE_API_KEY not set"))
	}

	return toolreg.NewPlanRetriever(inner, c.chat)
}

// openQdrant connects to the Qdrant instance configured by QDRANT_* env vars,
// sizing the collection vectors to match the active embedding backend.
func openQdrant(ctx context.Context, _ rag.Embedder) (*rag.QdrantStore, error) {
	backend := os.Getenv("EMBEDDING_PROVIDER")
	if backend == "" {
		backend = os.Getenv("MODEL_PROVIDER")
	}
	if backend == "" {
		backend = "ollama"
	}

	port := 6334
	if v, err := strconv.Atoi(os.Getenv("QDRANT_PORT")); err == nil && v > 0 {
		port = v
	}

	return rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       os.Getenv("QDRANT_HOST"),
		Port:       port,
		Collection: qdrantCollection(),
		VectorSize: uint64(embedder.DefaultDimensions(backend)),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
}

// qdrantCollection returns the baseline collection name.
func qdrantCollection() string {
	if v := os.Getenv("QDRANT_COLLECTION"); v != "" {
		return v
	}
	return "docmind"
}
