// -- cmd/followers.go --
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/observability"
	"github.com/xkilldash9x/sockpuppet-cli/internal/orchestrator"
)

// newFollowersCmd creates the `followers` command: scrape a profile's
// follower list.
func newFollowersCmd() *cobra.Command {
	var (
		maxCount int
		output   string
	)

	followersCmd := &cobra.Command{
		Use:   "followers <handle>",
		Short: "Scrape a profile's follower list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := schemas.ScrapeFollowersRequest{
				TargetHandle: args[0],
				MaxCount:     maxCount,
			}
			return runSession(cmd.Context(), func(ctx context.Context, orch *orchestrator.Orchestrator) error {
				res, runErr := orch.ScrapeFollowers(ctx, req)
				// A blocked scrape still hands back everything collected
				// before the cutoff.
				if len(res.Followers) > 0 {
					if err := emitJSON(output, res.Followers); err != nil {
						return err
					}
				}
				observability.GetLogger().Info("Scrape finished.",
					zap.String("target", req.TargetHandle),
					zap.Int("collected", len(res.Followers)),
					zap.String("detail", res.Detail))
				if runErr != nil {
					return fmt.Errorf("scrape ended early: %w", runErr)
				}
				return nil
			})
		},
	}

	followersCmd.Flags().IntVar(&maxCount, "max", 0, "stop after this many followers (0 = entire list)")
	followersCmd.Flags().StringVarP(&output, "output", "o", "", "write followers to a JSON file instead of stdout")
	return followersCmd
}
