package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/agentfeed/internal/config"
	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the backend bearer token",
	}

	token := &cobra.Command{
		Use:   "token",
		Short: "Set, inspect or clear the token sent to the backend",
	}
	token.AddCommand(newAuthTokenSetCmd(app), newAuthTokenStatusCmd(app), newAuthTokenClearCmd(app))
	cmd.AddCommand(token)

	return cmd
}

func newAuthTokenSetCmd(app *app) *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set [token]",
		Short: "Store the token for the configured backend",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			switch {
			case fromStdin:
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token from stdin: %w", err)
				}
				token = line
			case len(args) == 1:
				token = args[0]
			default:
				return errors.New("pass the token as an argument or use --stdin")
			}

			if err := app.credentials.SetToken(cmd.Context(), app.cfg.Backend.URL, token); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored token for %s\n", app.cfg.Backend.URL)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the token from stdin")

	return cmd
}

func newAuthTokenStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a token is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := app.credentials.Token(cmd.Context(), app.cfg.Backend.URL)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case token == "":
				_, _ = fmt.Fprintf(out, "No token for %s\n", app.cfg.Backend.URL)
			case strings.TrimSpace(os.Getenv(config.TokenEnv)) != "":
				_, _ = fmt.Fprintf(out, "Token for %s: %s (from %s)\n", app.cfg.Backend.URL, maskToken(token), config.TokenEnv)
			default:
				_, _ = fmt.Fprintf(out, "Token for %s: %s\n", app.cfg.Backend.URL, maskToken(token))
			}
			return nil
		},
	}
}

func newAuthTokenClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.credentials.ClearToken(cmd.Context(), app.cfg.Backend.URL); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared token for %s\n", app.cfg.Backend.URL)
			return nil
		},
	}
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
