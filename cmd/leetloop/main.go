// Command leetloop is the interactive surface of the capture agent:
// status, manual sync, migration checks, and debug actions.
package main

import (
	"fmt"
	"os"

	"github.com/NicholasARossi/leetloop-sub000/cmd/leetloop/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "leetloop",
		Short: "Coding-practice capture agent CLI",
		Long:  "Inspect and drive the leetloop capture agent: sync buffered submissions, check guest migration, and manage the local session.",
	}

	rootCmd.AddCommand(commands.NewStatusCmd())
	rootCmd.AddCommand(commands.NewSyncCmd())
	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewCaptureCmd())
	rootCmd.AddCommand(commands.NewConfigCmd())
	rootCmd.AddCommand(commands.NewSignoutCmd())
	rootCmd.AddCommand(commands.NewDebugCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
