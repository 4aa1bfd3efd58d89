package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/docmind-go/internal/agent"
	"github.com/54b3r/docmind-go/internal/logging"
	"github.com/54b3r/docmind-go/internal/server"
	"github.com/54b3r/docmind-go/internal/store"
	"github.com/54b3r/docmind-go/internal/tracing"
)

// NewServeCmd constructs the `docmind serve` command, which ingests the
// corpus and starts the HTTP server.
func NewServeCmd() *cobra.Command {
	var opts corpusOptions
	var host string
	var port int
	var topK int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docmind HTTP server",
		Long: `Ingest the corpus and start the docmind HTTP server on localhost.

The server exposes POST /api/query (SSE streaming answers), GET /api/corpus
(the loaded document listing), liveness and readiness probes, and Prometheus
metrics on GET /metrics.

Examples:
  docmind serve --corpus ./data/wiki
  docmind serve --corpus ./data/wiki --port 9090
  MODEL_PROVIDER=azure docmind serve --corpus ./data/wiki`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			comp, cleanup, err := buildComponents(ctx, log, opts, func(msg string) {
				log.Info("ingest: " + msg)
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer cleanup()

			// Open conversation history store. DOCMIND_HISTORY_DB overrides the
			// default path (~/.docmind/history.db). Set to "disabled" to disable.
			var historyStore store.ConversationStore
			dbPath := os.Getenv("DOCMIND_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via DOCMIND_HISTORY_DB=disabled")
			}

			retriever, err := comp.buildRetriever(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			docAgent, err := agent.New(&agent.Config{
				ChatModel:     comp.chat,
				ToolRetriever: retriever,
				ToolTopK:      topK,
				Corpus:        filepath.Base(opts.Dir),
				History:       historyStore,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to initialise agent: %w", err)
			}

			backend := os.Getenv("MODEL_PROVIDER")
			if backend == "" {
				backend = "ollama"
			}
			pingers := []server.Pinger{server.NewLLMPinger(comp.chat, backend)}
			if comp.qdrant != nil {
				pingers = append(pingers, server.NewQdrantPinger(comp.qdrant.Client()))
			}

			docs := make([]server.DocumentInfo, 0, len(comp.result.Docs))
			for _, d := range comp.result.Docs {
				docs = append(docs, server.DocumentInfo{
					ID:       d.ID,
					Title:    d.Title,
					Synopsis: d.Synopsis,
					Chunks:   d.Chunks,
				})
			}

			srv, err := server.New(docAgent, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   pingers,
				APIKey:    os.Getenv("DOCMIND_API_KEY"),
				Documents: docs,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "corpus", "", "Corpus directory (or DOCMIND_CORPUS_DIR)")
	cmd.Flags().StringVar(&opts.CacheDir, "cache", "", "Index cache directory (default: ~/.docmind/cache)")
	cmd.Flags().IntVar(&opts.MaxDocs, "max-docs", 0, "Maximum number of documents to load")
	cmd.Flags().IntVar(&opts.SkipBlocks, "skip-blocks", 0, "Leading text blocks to drop from each document")
	cmd.Flags().BoolVar(&opts.Baseline, "baseline", false, "Also populate the flat Qdrant baseline index")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of document tools exposed per query (default 3)")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
