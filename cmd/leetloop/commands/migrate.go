package commands

import (
	"fmt"

	"github.com/NicholasARossi/leetloop-sub000/internal/bus"
	"github.com/spf13/cobra"
)

// NewMigrateCmd runs the guest-to-account migration check. Safe to invoke
// any number of times: a completed migration reports zero counts.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Check and run guest-to-account data migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.agent.Handle(ctx, bus.Request{Kind: bus.KindCheckMigration})
			if !res.Success {
				return fmt.Errorf("migration check failed: %s", res.Error)
			}

			if res.Migrated != nil && (res.Migrated.Submissions > 0 || res.Migrated.Problems > 0) {
				fmt.Printf("Migrated %d submission(s), %d problem(s); re-synced %d\n",
					res.Migrated.Submissions, res.Migrated.Problems, res.Synced)
			} else {
				fmt.Println("Nothing to migrate")
			}
			return nil
		},
	}
}
