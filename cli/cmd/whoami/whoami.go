package whoami

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lustra-ai/lustra/engine/auth"
	"github.com/lustra-ai/lustra/pkg/config"
)

// Cmd creates the whoami command.
func Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)

			session := auth.NewSession(auth.NewClient(auth.ClientConfig{
				BaseURL: cfg.Auth.BaseURL,
				Timeout: cfg.Auth.Timeout,
			}))
			session.SetToken(string(cfg.Auth.Token))
			user, err := session.Validate(ctx)
			if err != nil {
				return fmt.Errorf("not signed in: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:      %s\n", user.ID)
			fmt.Fprintf(out, "email:   %s\n", user.Email)
			fmt.Fprintf(out, "plan:    %s\n", user.Plan)
			fmt.Fprintf(out, "credits: %d\n", user.Credits)
			return nil
		},
	}
}
