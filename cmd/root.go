package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// skipWiringAnnotation marks commands that run without config or adapters.
const skipWiringAnnotation = "afeed/skip-wiring"

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	app := &app{}
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:           "afeed",
		Short:         "afeed: watch, record and replay agent session telemetry",
		Long:          "afeed creates agent sessions on the backend, submits tasks, attaches to the live transparency feed of a session, and exports or replays what the agents did.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipWiringAnnotation] != "" {
				return nil
			}
			return app.wire(cmd, flags)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return app.close(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file (default ~/.agentfeed/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&flags.backendURL, "backend", "", "Backend URL override")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSessionCmd(app),
		newTaskCmd(app),
		newRestoreCmd(app),
		newWatchCmd(app),
		newRecordCmd(app),
		newReplayCmd(app),
		newAuthCmd(app),
	)

	return rootCmd
}
