package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cancelcmd "github.com/lustra-ai/lustra/cli/cmd/cancel"
	generatecmd "github.com/lustra-ai/lustra/cli/cmd/generate"
	servecmd "github.com/lustra-ai/lustra/cli/cmd/serve"
	statuscmd "github.com/lustra-ai/lustra/cli/cmd/status"
	whoamicmd "github.com/lustra-ai/lustra/cli/cmd/whoami"
	"github.com/lustra-ai/lustra/pkg/config"
	"github.com/lustra-ai/lustra/pkg/logger"
)

// RootCmd builds the lustra command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lustra",
		Short:         "Lustra jewelry photoshoot pipeline client",
		Long:          "Drive remote jewelry photoshoot workflows: start generations, stream progress, fetch results, and serve the edge proxy.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupGlobal(cmd)
		},
	}

	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
	root.PersistentFlags().Bool("log-source", false, "Include source locations in logs")
	root.PersistentFlags().String("env-file", "", "Path to an env file loaded before configuration")

	root.AddCommand(
		generatecmd.Cmd(),
		statuscmd.Cmd(),
		cancelcmd.Cmd(),
		whoamicmd.Cmd(),
		servecmd.Cmd(),
	)

	return root
}

// setupGlobal loads the env file, configuration and logger, and injects
// both into the command context.
func setupGlobal(cmd *cobra.Command) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}

	logLevel, logJSON, logSource, err := logger.GetLoggerConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if logLevel == "" {
		logLevel = cfg.Runtime.LogLevel
		logJSON = logJSON || cfg.Runtime.LogJSON
		logSource = logSource || cfg.Runtime.LogSource
	}
	logger.SetupLogger(logLevel, logJSON, logSource)

	ctx := config.ContextWithConfig(cmd.Context(), cfg)
	ctx = logger.ContextWithLogger(ctx, logger.GetDefault())
	cmd.SetContext(ctx)
	return nil
}
