package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/docmind-go/internal/logging"
)

// NewBuildCmd constructs the `docmind build` command, which ingests a corpus
// directory: splitting, embedding, and summarising each document, and
// persisting the per-document indices to the cache.
func NewBuildCmd() *cobra.Command {
	var opts corpusOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Ingest a document corpus and build the per-document indices",
		Long: `Ingest every document under the corpus directory.

Each document is split into sentence chunks, embedded, and summarised. The
resulting indices are cached on disk keyed by content hash, so re-running
build after a partial corpus change only re-embeds the documents that
actually changed.

Examples:
  docmind build --corpus ./data/wiki
  docmind build --corpus ./data/wiki --cache ./cache --max-docs 25
  docmind build --corpus ./data/wiki --baseline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			comp, cleanup, err := buildComponents(ctx, log, opts, func(msg string) {
				fmt.Println(msg)
			})
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			defer cleanup()

			r := comp.result
			fmt.Printf("\ncorpus ready: %d documents, %d chunks (%d rebuilt, %d cached)\n",
				r.Documents, r.Chunks, r.Rebuilt, r.Documents-r.Rebuilt)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "corpus", "", "Corpus directory to ingest (or DOCMIND_CORPUS_DIR)")
	cmd.Flags().StringVar(&opts.CacheDir, "cache", "", "Index cache directory (default: ~/.docmind/cache)")
	cmd.Flags().IntVar(&opts.MaxDocs, "max-docs", 0, "Maximum number of documents to load")
	cmd.Flags().IntVar(&opts.SkipBlocks, "skip-blocks", 0, "Leading text blocks to drop from each document")
	cmd.Flags().BoolVar(&opts.Baseline, "baseline", false, "Also populate the flat Qdrant baseline index")

	return cmd
}
