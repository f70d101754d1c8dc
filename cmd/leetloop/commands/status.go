package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewStatusCmd reports the current identity and buffer state: who writes
// are attributed to, token expiry, migration state, and pending count.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, migration, and sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			guestID, err := rt.store.GuestUserID(ctx)
			if err != nil {
				return err
			}

			if user := rt.tokens.GetAuthUser(ctx); user != nil {
				fmt.Printf("Signed in as:      %s", user.ID)
				if user.Email != "" {
					fmt.Printf(" (%s)", user.Email)
				}
				fmt.Println()
				if tokens, err := rt.tokens.GetTokens(ctx); err == nil && tokens != nil {
					fmt.Printf("Token expires:     %s\n", time.Unix(tokens.ExpiresAt, 0).Format(time.RFC3339))
				}
			} else {
				fmt.Println("Signed in as:      (guest)")
			}
			fmt.Printf("Guest identity:    %s\n", orNone(guestID))

			complete, err := rt.store.MigrationComplete(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Migration done:    %v\n", complete)

			pending, err := rt.engine.PendingCount(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Pending syncs:     %d\n", pending)
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
