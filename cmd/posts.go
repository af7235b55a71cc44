// -- cmd/posts.go --
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/sockpuppet-cli/internal/orchestrator"
)

// newPostsCmd creates the `posts` command: work through a profile's recent
// posts, liking each and commenting with generated text.
func newPostsCmd() *cobra.Command {
	var (
		maxPosts int
		toneRaw  string
		output   string
	)

	postsCmd := &cobra.Command{
		Use:   "posts <handle>",
		Short: "Like and comment on a profile's recent posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tone, err := parseTone(toneRaw)
			if err != nil {
				return err
			}

			return runSession(cmd.Context(), func(ctx context.Context, orch *orchestrator.Orchestrator) error {
				outcomes, runErr := orch.InteractWithPosts(ctx, args[0], maxPosts, tone)
				// Partial outcomes are worth reporting even when the run was
				// cut short.
				if len(outcomes) > 0 {
					if err := emitJSON(output, outcomes); err != nil {
						return err
					}
				}
				if runErr != nil {
					return fmt.Errorf("post interaction run ended early: %w", runErr)
				}
				return nil
			})
		},
	}

	postsCmd.Flags().IntVar(&maxPosts, "max", 3, "maximum number of posts to engage")
	postsCmd.Flags().StringVar(&toneRaw, "tone", "casual", "tone for generated comments")
	postsCmd.Flags().StringVarP(&output, "output", "o", "", "write outcomes to a JSON file instead of stdout")
	return postsCmd
}
