package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/simtriage/internal/loader"
	"github.com/spf13/cobra"
)

func newImportCmd(o *options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "import <source> <db-path>",
		Short: "Seed a SQLite database from a snapshot",
		Long: `Import loads a snapshot from any source and replaces the contents of a
SQLite database with it. The database can then be analyzed directly.

Example:
  simtriage import ./exports/hist101 hist101.db
  simtriage analyze hist101.db`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			source, err := loader.Open(args[0], cfg.Loader)
			if err != nil {
				return err
			}
			subs, err := source.Load(ctx)
			if err != nil {
				return fmt.Errorf("load %s: %w", source.Name(), err)
			}

			db := loader.NewSQLiteSource(args[1])
			if err := db.Import(ctx, subs); err != nil {
				return fmt.Errorf("import into %s: %w", args[1], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d submissions into %s\n", len(subs), args[1])
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall timeout")
	return cmd
}
