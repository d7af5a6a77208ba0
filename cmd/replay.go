package cmd

import (
	"context"
	"fmt"
	"strings"

	feedadapter "github.com/bnema/agentfeed/internal/adapters/render/feed"
	"github.com/bnema/agentfeed/internal/application"
	"github.com/bnema/agentfeed/internal/domain"
	"github.com/spf13/cobra"
)

type replayOutput struct {
	SessionID     string        `json:"sessionId"`
	Emitted       int           `json:"emitted"`
	Rejected      int           `json:"rejected"`
	Total         int           `json:"total"`
	Cancelled     bool          `json:"cancelled"`
	MetricsMatch  bool          `json:"metricsMatch"`
	Deterministic bool          `json:"deterministic"`
	Metrics       metricsOutput `json:"metrics"`
	Expected      metricsOutput `json:"expectedMetrics"`
}

func newReplayCmd(app *app) *cobra.Command {
	var rawPace string
	var rawFormat string
	var rawFilter string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "replay <snapshot-file>",
		Short: "Replay an exported snapshot and check it reproduces the same metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pacer, err := application.ParsePace(rawPace)
			if err != nil {
				return err
			}
			filter, err := domain.ParseFilter(rawFilter)
			if err != nil {
				return err
			}
			store, err := app.snapshotStore(rawFormat)
			if err != nil {
				return err
			}

			snap, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load snapshot: %w", err)
			}

			target := app.newFeed(snap.SessionID)
			var result application.ReplayResult
			label := fmt.Sprintf("Replaying %d actions from %s...", snap.TotalActions(), snap.SessionID)
			err = app.whileLogsHeld(func() error {
				return runReplaySpinner(cmd.Context(), cmd.ErrOrStderr(), label, func(ctx context.Context) error {
					var runErr error
					result, runErr = app.replay.Run(ctx, snap, target, pacer)
					return runErr
				})
			})
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), replayOutput{
					SessionID:     string(snap.SessionID),
					Emitted:       result.Emitted,
					Rejected:      result.Rejected,
					Total:         result.Total,
					Cancelled:     result.Cancelled,
					MetricsMatch:  result.MetricsMatch,
					Deterministic: result.Deterministic,
					Metrics:       toMetricsOutput(target.Metrics()),
					Expected:      toMetricsOutput(snap.Metrics),
				})
			}

			rendered, err := feedadapter.Render(feedadapter.View{
				SessionID:    snap.SessionID,
				ChannelState: domain.ChannelDisconnected,
				Metrics:      target.Metrics(),
				Records:      target.View(filter, limit),
				Logged:       target.Len(),
				Filter:       filter,
			})
			if err != nil {
				return fmt.Errorf("render replay: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), replaySummary(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&rawPace, "pace", "instant", "Replay pace (instant|scaled:<factor>|rate:<per-second>)")
	cmd.Flags().StringVar(&rawFormat, "format", "", "Snapshot format (json|cbor|json+zstd; default from file extension)")
	cmd.Flags().StringVar(&rawFilter, "filter", "all", "Filter for the rendered log (all|success|errors|agent:<type>)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Newest matching actions to render (0 shows all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func replaySummary(result application.ReplayResult) string {
	parts := []string{fmt.Sprintf("Replayed %d of %d actions", result.Emitted, result.Total)}
	if result.Rejected > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", result.Rejected))
	}

	switch {
	case result.Cancelled:
		parts = append(parts, "cancelled")
	case result.MetricsMatch:
		parts = append(parts, "metrics match the snapshot")
	default:
		parts = append(parts, "metrics differ from the snapshot")
	}
	if !result.Deterministic {
		parts = append(parts, "snapshot was truncated")
	}

	return strings.Join(parts, "; ")
}
