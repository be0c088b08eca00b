package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool
	var showErrors int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index status and recent errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			st := m.Status()
			out := cmd.OutOrStdout()

			if asJSON {
				payload := struct {
					Status any `json:"status"`
					Errors any `json:"recentErrors,omitempty"`
				}{Status: st}
				if showErrors > 0 {
					payload.Errors = m.RecentErrors(showErrors)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}

			fmt.Fprintf(out, "documents:      %d\n", st.Documents)
			fmt.Fprintf(out, "vector chunks:  %d\n", st.VectorChunks)
			fmt.Fprintf(out, "lexical chunks: %d\n", st.LexicalChunks)
			fmt.Fprintf(out, "terms:          %d\n", st.Terms)
			fmt.Fprintf(out, "errors:         %d\n", st.Errors)

			if showErrors > 0 {
				for _, e := range m.RecentErrors(showErrors) {
					fmt.Fprintf(out, "  [%s] %s %s: %s\n",
						e.Kind, e.Time.Format("15:04:05"), e.Location, e.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output status as JSON")
	cmd.Flags().IntVar(&showErrors, "errors", 0, "Include up to N recent errors")
	return cmd
}

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Compact the lexical postings lists",
		Long: `Deletes and reindexes leave stale postings entries behind as
tombstones; they are harmless but cost memory under heavy churn.
Compacting rewrites the postings lists keeping only live entries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			removed := m.CompactPostings()
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale postings\n", removed)
			return nil
		},
	}
}
