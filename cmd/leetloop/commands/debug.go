package commands

import (
	"fmt"
	"sort"

	"github.com/NicholasARossi/leetloop-sub000/internal/storage"
	"github.com/spf13/cobra"
)

// NewDebugCmd groups maintenance actions that bypass the normal message
// surface.
func NewDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Maintenance and troubleshooting actions",
	}
	cmd.AddCommand(newResetMigrationCmd())
	cmd.AddCommand(newDumpCmd())
	return cmd
}

// newResetMigrationCmd clears the migration flag. This is the only path
// that ever un-sets it; the next sign-in or migration check will re-run
// the (idempotent) merge.
func newResetMigrationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-migration",
		Short: "Clear the migration-complete flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.store.SetMigrationComplete(ctx, false); err != nil {
				return err
			}
			fmt.Println("Migration flag cleared")
			return nil
		},
	}
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every stored key and value size",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			all, err := rt.store.List(ctx)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				if k == storage.KeyAuthTokens || k == storage.KeyLegacySession {
					// Never print credentials.
					fmt.Printf("%-20s %d bytes (redacted)\n", k, len(all[k]))
					continue
				}
				fmt.Printf("%-20s %s\n", k, string(all[k]))
			}
			return nil
		},
	}
}
