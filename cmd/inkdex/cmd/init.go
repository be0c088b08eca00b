package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inkstone-labs/inkdex/internal/config"
	"github.com/inkstone-labs/inkdex/internal/errors"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default .inkdex.yaml into the vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(vaultFlag, ".inkdex.yaml")

			if _, err := os.Stat(path); err == nil && !force {
				return errors.New(errors.CodeConfigInvalid,
					fmt.Sprintf("%s already exists", path), nil).
					WithSuggestion("pass --force to overwrite it")
			}

			cfg := config.Default()
			if err := cfg.WriteYAML(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
