// Package cmd implements the inkdex CLI commands.
package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/inkstone-labs/inkdex/internal/chunk"
	"github.com/inkstone-labs/inkdex/internal/config"
	"github.com/inkstone-labs/inkdex/internal/embed"
	"github.com/inkstone-labs/inkdex/internal/index"
	"github.com/inkstone-labs/inkdex/internal/logging"
	"github.com/inkstone-labs/inkdex/pkg/version"
)

var (
	vaultFlag string
	debugMode bool

	loggingCleanup func()
)

// NewRootCmd creates the root inkdex command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "inkdex",
		Short: "Hybrid search over a writing vault",
		Long: `inkdex maintains a persisted hybrid index (BM25 + vector) over a
directory of markdown and text documents and answers free-text
relevance queries, staying consistent as documents change.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("inkdex version {{.Version}}\n")

	root.PersistentFlags().StringVar(&vaultFlag, "vault", ".", "Vault directory to index")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	root.PersistentPreRunE = setupLogging
	root.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	root.AddCommand(
		newIndexCmd(),
		newSearchCmd(),
		newStatusCmd(),
		newCompactCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func setupLogging(*cobra.Command, []string) error {
	// A vault-local .env provides INKDEX_API_KEY and friends without
	// polluting the shell environment. Missing files are fine.
	_ = godotenv.Load(filepath.Join(vaultFlag, ".env"))

	cfg, err := config.Load(vaultFlag)
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.File,
		WriteToStderr: debugMode,
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogPath()
	}
	if debugMode {
		logCfg.Level = "debug"
	}
	_, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// openManager loads configuration and opens the index over the vault.
func openManager() (*index.Manager, *config.Config, error) {
	cfg, err := config.Load(vaultFlag)
	if err != nil {
		return nil, nil, err
	}

	m, err := index.Open(index.Config{
		VaultRoot: vaultFlag,
		Chunking: chunk.Options{
			HeadingLevel: chunk.HeadingLevel(cfg.Chunking.HeadingLevel),
			TargetWords:  cfg.Chunking.TargetWords,
			OverlapWords: cfg.Chunking.OverlapWords,
		},
		Embedding: embed.Options{
			Backend:    cfg.Embeddings.Backend,
			Dimensions: cfg.Embeddings.Dimensions,
			Model:      cfg.Embeddings.Model,
			APIKey:     cfg.APIKey(),
			BaseURL:    cfg.Embeddings.BaseURL,
			CacheSize:  cfg.Embeddings.CacheSize,
		},
		Excludes: cfg.Vault.Exclude,
	})
	if err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}

// waitIdle polls until both workers drain or ctx is cancelled.
func waitIdle(ctx context.Context, m *index.Manager) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.Idle() {
				return nil
			}
		}
	}
}
