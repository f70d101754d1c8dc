package commands

import (
	"fmt"

	"github.com/NicholasARossi/leetloop-sub000/internal/bus"
	"github.com/spf13/cobra"
)

// NewSignoutCmd clears the local session. Idempotent: signing out while
// already signed out is a no-op.
func NewSignoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Clear the stored session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.agent.Handle(ctx, bus.Request{Kind: bus.KindWebSignedOut})
			if !res.Success {
				return fmt.Errorf("sign-out failed: %s", res.Error)
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}
