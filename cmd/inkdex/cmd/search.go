package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkstone-labs/inkdex/internal/errors"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the vault",
		Long: `Runs a free-text query against the persisted index and prints the
fused, diversified results. The index is not rebuilt first: results
reflect whatever the last index run captured.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			m, cfg, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			if limit <= 0 {
				limit = cfg.Search.Limit
			}
			results, err := m.Search(cmd.Context(), query, limit)
			if err != nil {
				return errors.New(errors.CodeQueryFailed, "search failed", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			if len(results) == 0 {
				fmt.Fprintln(out, "no results")
				return nil
			}
			for i, r := range results {
				title := r.Title
				if title == "" {
					title = r.Path
				}
				fmt.Fprintf(out, "%2d. %s  (%.3f, %s)\n", i+1, title, r.Score, r.Source)
				fmt.Fprintf(out, "    %s\n", r.Path)
				if r.Excerpt != "" {
					fmt.Fprintf(out, "    %s\n", truncate(r.Excerpt, 160))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results as JSON")
	return cmd
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
