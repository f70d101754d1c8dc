package commands

import (
	"fmt"

	"github.com/NicholasARossi/leetloop-sub000/internal/bus"
	"github.com/spf13/cobra"
)

// NewSyncCmd pushes every unsynced buffered submission now, instead of
// waiting for the daemon's periodic timer.
func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push pending submissions to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.agent.Handle(ctx, bus.Request{Kind: bus.KindSyncPending})
			if !res.Success {
				return fmt.Errorf("sync failed: %s", res.Error)
			}
			fmt.Printf("Synced %d submission(s)\n", res.Synced)
			return nil
		},
	}
}
