// -- cmd/engage.go --
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

// newEngageCmd creates the `engage` command: like and/or comment on a single
// post. Without --text the comment is generated from the post's own content.
func newEngageCmd() *cobra.Command {
	var (
		like    bool
		comment bool
		text    string
		toneRaw string
	)

	engageCmd := &cobra.Command{
		Use:   "engage <post-url>",
		Short: "Like and/or comment on a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postURL := args[0]
			if !like && !comment {
				return fmt.Errorf("nothing to do: pass --like and/or --comment")
			}
			tone, err := parseTone(toneRaw)
			if err != nil {
				return err
			}

			return runSession(cmd.Context(), func(ctx context.Context, orch *orchestrator.Orchestrator) error {
				logger := observability.GetLogger()

				if like {
					res, err := orch.LikePost(ctx, schemas.LikePostRequest{PostURL: postURL})
					if err != nil {
						return fmt.Errorf("like failed: %w", err)
					}
					logger.Info("Post liked.", zap.String("post", postURL), zap.String("detail", res.Detail))
				}

				if comment {
					res, err := orch.CommentOnPost(ctx, schemas.CommentOnPostRequest{
						PostURL:     postURL,
						CommentText: text,
					}, tone)
					if err != nil {
						return fmt.Errorf("comment failed: %w", err)
					}
					logger.Info("Comment posted.", zap.String("post", postURL), zap.Int("retries", res.RetriesUsed))
				}
				return nil
			})
		},
	}

	engageCmd.Flags().BoolVar(&like, "like", true, "like the post")
	engageCmd.Flags().BoolVar(&comment, "comment", false, "comment on the post")
	engageCmd.Flags().StringVarP(&text, "text", "t", "", "comment text (generated when omitted)")
	engageCmd.Flags().StringVar(&toneRaw, "tone", string(schemas.ToneCasual), "tone for generated comments")
	return engageCmd
}
