// -- cmd/send.go --
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

// newSendCmd creates the `send` command: one direct message, optionally with
// a media attachment.
func newSendCmd() *cobra.Command {
	var (
		text      string
		mediaPath string
	)

	sendCmd := &cobra.Command{
		Use:   "send <handle>",
		Short: "Send a direct message to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := schemas.SendMessageRequest{
				TargetHandle: args[0],
				Text:         text,
				MediaPath:    mediaPath,
			}
			return runSession(cmd.Context(), func(ctx context.Context, orch *orchestrator.Orchestrator) error {
				res, err := orch.SendMessage(ctx, req)
				if err != nil {
					return fmt.Errorf("send failed: %w", err)
				}
				observability.GetLogger().Info("Message delivered.",
					zap.String("to", req.TargetHandle),
					zap.Int("retries", res.RetriesUsed))
				return emitJSON("", res)
			})
		},
	}

	sendCmd.Flags().StringVarP(&text, "text", "t", "", "message text (required)")
	sendCmd.Flags().StringVarP(&mediaPath, "media", "m", "", "path to an image to attach")
	_ = sendCmd.MarkFlagRequired("text")
	return sendCmd
}
