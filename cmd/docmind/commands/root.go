// Package commands defines all Cobra CLI commands for the docmind binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/docmind-go/internal/audit"
	"github.com/54b3r/docmind-go/internal/config"
	"github.com/54b3r/docmind-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docmind",
		Short: "DocMind — question answering over a local document corpus",
		Long: `DocMind is a local-first agent that answers questions across a corpus of
documents. Each document gets its own searchable index, summary, and agent;
a top-level agent routes every question to the most relevant documents and
can decompose comparison questions across several of them.

Run 'docmind build' once to ingest a corpus, then 'docmind ask' for one-off
questions or 'docmind serve' for the HTTP API.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.docmind/config.yaml).
See 'docmind --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docmind/config.yaml)")

	root.AddCommand(
		NewBuildCmd(),
		NewAskCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
