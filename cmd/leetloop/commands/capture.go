package commands

import (
	"fmt"

	"github.com/NicholasARossi/leetloop-sub000/internal/bus"
	"github.com/NicholasARossi/leetloop-sub000/internal/models"
	"github.com/spf13/cobra"
)

// NewCaptureCmd buffers one submission by hand. The scraping pipeline is
// the usual producer; this command exists for testing and for backfilling
// a submission the interceptor missed.
func NewCaptureCmd() *cobra.Command {
	var (
		problem  string
		title    string
		language string
		status   string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Buffer a submission for sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.agent.Handle(ctx, bus.Request{
				Kind: bus.KindSubmissionCaptured,
				Submission: &models.StoredSubmission{
					ProblemSlug: problem,
					Title:       title,
					Language:    language,
					Status:      status,
				},
			})
			if !res.Success {
				return fmt.Errorf("capture failed: %s", res.Error)
			}
			fmt.Println("Submission buffered")
			return nil
		},
	}

	cmd.Flags().StringVar(&problem, "problem", "", "problem slug")
	cmd.Flags().StringVar(&title, "title", "", "problem title")
	cmd.Flags().StringVar(&language, "lang", "", "submission language")
	cmd.Flags().StringVar(&status, "status", "", "submission verdict")
	_ = cmd.MarkFlagRequired("problem")

	return cmd
}
