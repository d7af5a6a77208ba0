package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	feedadapter "github.com/bnema/agentfeed/internal/adapters/render/feed"
	"github.com/bnema/agentfeed/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const metricsShutdownTimeout = 5 * time.Second

type exportFlags struct {
	path   string
	format string
}

func (f *exportFlags) register(cmd *cobra.Command, flagName string, usage string) {
	cmd.Flags().StringVar(&f.path, flagName, "", usage)
	cmd.Flags().StringVar(&f.format, "format", "", "Snapshot format (json|cbor|json+zstd; default from file extension)")
}

func newWatchCmd(app *app) *cobra.Command {
	var rawFilter string
	var limit int
	var metricsAddr string
	var export exportFlags

	cmd := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Attach to a session and follow its agent activity live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := domain.ParseFilter(rawFilter)
			if err != nil {
				return err
			}
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}

			return runWatch(cmd, app, domain.SessionID(args[0]), feedadapter.WatchOptions{
				Filter: filter,
				Limit:  limit,
				Input:  cmd.InOrStdin(),
				Output: cmd.OutOrStdout(),
			}, metricsAddr, export)
		},
	}

	cmd.Flags().StringVar(&rawFilter, "filter", "all", "Initial filter (all|success|errors|agent:<type>)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Newest matching actions to keep on screen (0 shows all)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while watching")
	export.register(cmd, "export", "Write a snapshot of the session to this file on exit")

	return cmd
}

func runWatch(cmd *cobra.Command, app *app, id domain.SessionID, opts feedadapter.WatchOptions, metricsAddr string, export exportFlags) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	feed, err := app.controller.AttachTelemetry(ctx, id)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return feedadapter.Watch(gctx, feed, opts)
	})
	if metricsAddr != "" {
		serveMetrics(gctx, g, metricsAddr, app.registry)
	}

	watchErr := app.whileLogsHeld(g.Wait)
	if err := app.controller.DetachTelemetry(id); err != nil {
		watchErr = errors.Join(watchErr, err)
	}

	if export.path != "" {
		if err := exportSession(context.WithoutCancel(cmd.Context()), app, id, export); err != nil {
			return errors.Join(watchErr, err)
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", id, export.path)
	}

	return watchErr
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: metricsShutdownTimeout}

	g.Go(func() error {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}

func exportSession(ctx context.Context, app *app, id domain.SessionID, export exportFlags) error {
	store, err := app.snapshotStore(export.format)
	if err != nil {
		return err
	}
	snap, err := app.controller.ExportSnapshot(id)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, export.path, snap); err != nil {
		return fmt.Errorf("export session %s: %w", id, err)
	}
	return nil
}
