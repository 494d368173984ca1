package cmd

import (
	"fmt"

	"telecom-billing/internal/migrations"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer b.Close()

		st, err := migrations.Up(b.pool)
		if err != nil {
			return err
		}
		b.log.InfoContext(ctx, "migrations applied", "version", st.Version, "changed", st.Changed)

		state := "up to date"
		if st.Changed {
			state = "migrated"
		}
		if st.Dirty {
			state += " (dirty)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d: %s\n", st.Version, state)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
