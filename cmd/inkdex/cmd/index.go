package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	var watch bool
	var compact bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or update the index for the vault",
		Long: `Scans the vault and brings both indexes up to date. Unchanged
documents are skipped by content hash, so repeated runs are cheap.
With --watch, keeps running and reindexes on file changes until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			ctx := cmd.Context()
			if err := m.Start(ctx); err != nil {
				return err
			}
			if err := waitIdle(ctx, m); err != nil {
				return err
			}

			if compact {
				removed := m.CompactPostings()
				fmt.Fprintf(cmd.OutOrStdout(), "compacted %d stale postings\n", removed)
			}

			st := m.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents (%d chunks, %d terms)\n",
				st.Documents, st.LexicalChunks, st.Terms)
			if st.Errors > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d errors recorded; run 'inkdex status' for details\n", st.Errors)
			}

			if watch {
				fmt.Fprintln(cmd.OutOrStdout(), "watching for changes (ctrl-c to stop)")
				return m.Watch(ctx)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and reindex on file changes")
	cmd.Flags().BoolVar(&compact, "compact", false, "Compact postings lists after indexing")
	return cmd
}
