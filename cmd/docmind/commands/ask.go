package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/54b3r/docmind-go/internal/agent"
	"github.com/54b3r/docmind-go/internal/baseline"
	"github.com/54b3r/docmind-go/internal/logging"
)

// NewAskCmd constructs the `docmind ask` command, which sends a single
// natural language question to the agent and streams the answer to stdout.
func NewAskCmd() *cobra.Command {
	var opts corpusOptions
	var useBaseline bool
	var topK int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the document corpus",
		Long: `Ask the docmind agent a natural language question about the corpus.

The agent retrieves the document tools most relevant to the question and
answers strictly from the indexed content. Comparison questions are
decomposed across the documents they mention.

With --flat the question instead goes to the baseline index: a single
retrieval over all chunks of all documents, with no per-document routing.
Useful for comparing answer quality against the agent.

Examples:
  docmind ask --corpus ./data/wiki "what is the population of Toronto?"
  docmind ask --corpus ./data/wiki "compare the climates of Boston and Houston"
  docmind ask --corpus ./data/wiki --flat "what is the population of Toronto?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			question := args[0]

			// The flat baseline path needs the Qdrant index populated.
			opts.Baseline = opts.Baseline || useBaseline

			comp, cleanup, err := buildComponents(ctx, log, opts, func(msg string) {
				fmt.Fprintln(os.Stderr, msg)
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer cleanup()

			if useBaseline {
				answer, err := comp.flat.Query(ctx, question, baseline.DefaultTopK)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				fmt.Println(answer)
				return nil
			}

			retriever, err := comp.buildRetriever(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			docAgent, err := agent.New(&agent.Config{
				ChatModel:     comp.chat,
				ToolRetriever: retriever,
				ToolTopK:      topK,
				Corpus:        filepath.Base(opts.Dir),
			})
			if err != nil {
				return fmt.Errorf("ask: failed to initialise agent: %w", err)
			}

			return docAgent.Query(ctx, question, os.Stdout) //nolint:wrapcheck // CLI entry point — error goes directly to cobra
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "corpus", "", "Corpus directory (or DOCMIND_CORPUS_DIR)")
	cmd.Flags().StringVar(&opts.CacheDir, "cache", "", "Index cache directory (default: ~/.docmind/cache)")
	cmd.Flags().IntVar(&opts.MaxDocs, "max-docs", 0, "Maximum number of documents to load")
	cmd.Flags().IntVar(&opts.SkipBlocks, "skip-blocks", 0, "Leading text blocks to drop from each document")
	cmd.Flags().BoolVar(&useBaseline, "flat", false, "Answer from the flat baseline index instead of the agent")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of document tools exposed per query (default 3)")

	return cmd
}
