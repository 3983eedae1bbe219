package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lustra-ai/lustra/engine/pipeline"
	"github.com/lustra-ai/lustra/engine/workflow"
	"github.com/lustra-ai/lustra/pkg/config"
)

// Cmd creates the status command.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <workflow-id>",
		Short: "Show the current state of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	cmd.Flags().String("variant", workflow.VariantFluxGen.String(), "Workflow variant used to resolve step labels")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)

	variantName, _ := cmd.Flags().GetString("variant")
	variant, err := workflow.ParseVariant(variantName)
	if err != nil {
		return err
	}

	engine := pipeline.NewClient(pipeline.ClientConfig{
		BaseURL: cfg.Engine.BaseURL,
		Timeout: cfg.Engine.Timeout,
	})
	snap, err := engine.Status(ctx, pipeline.Handle(args[0]))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "state:    %s\n", snap.Progress.State)
	fmt.Fprintf(out, "nodes:    %d/%d\n", snap.Progress.CompletedNodes, snap.Progress.TotalNodes)
	if visited := snap.Progress.Visited; len(visited) > 0 {
		step := workflow.Resolve(variant, visited[len(visited)-1])
		fmt.Fprintf(out, "step:     %s (%d%%)\n", step.Label, step.Progress)
	}
	if snap.Error != "" {
		fmt.Fprintf(out, "error:    %s\n", snap.Error)
	}
	return nil
}
