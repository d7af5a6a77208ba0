package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/telemetry"
	"github.com/spf13/cobra"
)

func newRecordCmd(app *app) *cobra.Command {
	var duration time.Duration
	var maxActions int
	var export exportFlags

	cmd := &cobra.Command{
		Use:   "record <session-id>",
		Short: "Record a session's live activity to a snapshot file without a UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if export.path == "" {
				return errors.New("--out is required")
			}
			if duration < 0 || maxActions < 0 {
				return errors.New("--for and --max-actions must not be negative")
			}

			id := domain.SessionID(args[0])
			count, err := recordSession(cmd.Context(), app, id, duration, maxActions)
			if err != nil {
				return err
			}

			if err := exportSession(context.WithoutCancel(cmd.Context()), app, id, export); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d actions from %s to %s\n", count, id, export.path)
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long (0 records until interrupted or --max-actions)")
	cmd.Flags().IntVar(&maxActions, "max-actions", 0, "Stop after this many new actions (0 means no limit)")
	export.register(cmd, "out", "Snapshot file to write")

	return cmd
}

// recordSession attaches to id until duration passes, maxActions new records
// are logged or ctx ends. It returns the number of records logged meanwhile.
func recordSession(ctx context.Context, app *app, id domain.SessionID, duration time.Duration, maxActions int) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	feed, err := app.controller.AttachTelemetry(ctx, id)
	if err != nil {
		return 0, err
	}

	var appended atomic.Int64
	reached := make(chan struct{})
	unsubscribe := feed.Subscribe(func(update telemetry.Update) {
		if update.Kind != telemetry.UpdateAction {
			return
		}
		if n := appended.Add(1); maxActions > 0 && n == int64(maxActions) {
			close(reached)
		}
	})
	defer unsubscribe()

	select {
	case <-ctx.Done():
	case <-reached:
	}

	if err := app.controller.DetachTelemetry(id); err != nil {
		return appended.Load(), err
	}
	return appended.Load(), nil
}
