package serve

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lustra-ai/lustra/engine/auth"
	"github.com/lustra-ai/lustra/engine/pipeline"
	"github.com/lustra-ai/lustra/pkg/config"
	"github.com/lustra-ai/lustra/server"
)

// Cmd creates the serve command.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the edge proxy server",
		Long:  "Serve the HTTP API that fronts the workflow engine and auth service for the web app.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("host", "", "Bind host (defaults from config)")
	cmd.Flags().Int("port", 0, "Bind port (defaults from config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromContext(ctx)
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	srv := server.New(
		cfg,
		pipeline.NewClient(pipeline.ClientConfig{BaseURL: cfg.Engine.BaseURL, Timeout: cfg.Engine.Timeout}),
		auth.NewClient(auth.ClientConfig{BaseURL: cfg.Auth.BaseURL, Timeout: cfg.Auth.Timeout}),
	)
	return srv.Run(ctx)
}
