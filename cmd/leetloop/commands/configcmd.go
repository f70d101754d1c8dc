package commands

import (
	"fmt"

	"github.com/NicholasARossi/leetloop-sub000/internal/bus"
	"github.com/spf13/cobra"
)

// NewConfigCmd prints the stored config record. Reading it also issues the
// guest identity if this profile never had one.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show stored agent settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.agent.Handle(ctx, bus.Request{Kind: bus.KindGetConfig})
			if !res.Success {
				return fmt.Errorf("reading config failed: %s", res.Error)
			}

			fmt.Printf("Enabled:        %v\n", res.Config.Enabled)
			fmt.Printf("Capture code:   %v\n", res.Config.CaptureCode)
			fmt.Printf("Guest identity: %s\n", res.GuestID)
			return nil
		},
	}
}
