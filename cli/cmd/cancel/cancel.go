package cancel

import (
	"github.com/spf13/cobra"

	"github.com/lustra-ai/lustra/engine/pipeline"
	"github.com/lustra-ai/lustra/pkg/config"
	"github.com/lustra-ai/lustra/pkg/logger"
)

// Cmd creates the cancel command.
func Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <workflow-id>",
		Short: "Request cancellation of a running workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)

			engine := pipeline.NewClient(pipeline.ClientConfig{
				BaseURL: cfg.Engine.BaseURL,
				Timeout: cfg.Engine.Timeout,
			})
			if err := engine.Cancel(ctx, pipeline.Handle(args[0])); err != nil {
				return err
			}
			logger.FromContext(ctx).Info("cancellation requested", "workflow_id", args[0])
			return nil
		},
	}
}
