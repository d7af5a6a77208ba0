package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bnema/agentfeed/internal/adapters/backend"
	chainstore "github.com/bnema/agentfeed/internal/adapters/credentials/chain"
	tomlrepo "github.com/bnema/agentfeed/internal/adapters/repo/toml"
	snapshotfile "github.com/bnema/agentfeed/internal/adapters/snapshot/file"
	"github.com/bnema/agentfeed/internal/adapters/transport/ws"
	"github.com/bnema/agentfeed/internal/application"
	"github.com/bnema/agentfeed/internal/config"
	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/logging"
	"github.com/bnema/agentfeed/internal/ports"
	"github.com/bnema/agentfeed/internal/telemetry"
	"github.com/bnema/agentfeed/internal/tracing"
	"github.com/bnema/agentfeed/internal/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	logLevel   string
	backendURL string
}

type app struct {
	cfg         config.Config
	logOutput   *logging.HoldWriter
	logger      *slog.Logger
	tracing     *tracing.Provider
	registry    *prometheus.Registry
	stats       *telemetry.Stats
	credentials *application.CredentialService
	controller  *application.SessionController
	replay      *application.ReplayEngine
	clock       ports.Clock
}

func (a *app) wire(cmd *cobra.Command, flags rootFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.backendURL != "" {
		if cfg.Backend.WSURL == cfg.Backend.URL {
			cfg.Backend.WSURL = flags.backendURL
		}
		cfg.Backend.URL = flags.backendURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logOutput := logging.NewHoldWriter(cmd.ErrOrStderr())
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: logOutput})

	provider, err := tracing.NewProvider(tracing.Config{Exporter: cfg.Tracing, Output: logOutput})
	if err != nil {
		return fmt.Errorf("wire tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	stats, err := telemetry.NewStats(registry)
	if err != nil {
		return fmt.Errorf("wire telemetry stats: %w", err)
	}

	secrets, err := chainstore.NewEnvFirstWithFileFallback(config.TokenEnv, cfg.CredentialsDir)
	if err != nil {
		return fmt.Errorf("wire credential store chain: %w", err)
	}
	credentials := application.NewCredentialService(secrets)
	token := func(ctx context.Context) (string, error) {
		return credentials.Token(ctx, cfg.Backend.URL)
	}

	repo, err := tomlrepo.NewRepository(cfg.Viper)
	if err != nil {
		return fmt.Errorf("wire session repository: %w", err)
	}

	client := &backend.Client{
		BaseURL:        cfg.Backend.URL,
		HTTPClient:     http.DefaultClient,
		RequestTimeout: cfg.Backend.CallTimeout,
		Token:          token,
		Tracer:         provider.Tracer(),
	}
	source := &ws.Source{
		BaseURL:      cfg.Backend.WSURL,
		PingInterval: cfg.Telemetry.PingInterval,
		Token:        token,
		Logger:       logger,
	}
	channels := application.NewChannelRegistry(source, application.ChannelOptions{
		ReconnectInitial: cfg.Telemetry.ReconnectInitial,
		ReconnectMax:     cfg.Telemetry.ReconnectMax,
		MaxReconnects:    cfg.Telemetry.MaxReconnects,
		Stats:            stats,
		Logger:           logger,
	})

	clock := ports.SystemClock{}
	controller := application.NewSessionController(application.SessionControllerDeps{
		Creator:       client,
		Tasks:         client,
		RestorePoints: client,
		Repository:    repo,
		Channels:      channels,
		Inspector:     client,
		Clock:         clock,
	}, application.ControllerOptions{
		MaxActions:  cfg.Telemetry.MaxActions,
		CallTimeout: cfg.Backend.CallTimeout,
		Stats:       stats,
		Logger:      logger,
	})

	*a = app{
		cfg:         cfg,
		logOutput:   logOutput,
		logger:      logger,
		tracing:     provider,
		registry:    registry,
		stats:       stats,
		credentials: credentials,
		controller:  controller,
		replay:      application.NewReplayEngine(logger),
		clock:       clock,
	}
	return nil
}

func (a *app) close(ctx context.Context) error {
	if a.controller != nil {
		a.controller.Shutdown()
	}
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutdown tracing: %w", err)
		}
	}
	if a.logOutput != nil {
		return a.logOutput.Release()
	}
	return nil
}

// whileLogsHeld runs fn with log and trace output held back, so a terminal UI
// drawing on stderr has it to itself.
func (a *app) whileLogsHeld(fn func() error) error {
	a.logOutput.Hold()
	err := fn()
	if releaseErr := a.logOutput.Release(); releaseErr != nil {
		return errors.Join(err, fmt.Errorf("flush held logs: %w", releaseErr))
	}
	return err
}

// snapshotStore picks the format from rawFormat, or from the file extension
// when rawFormat is empty.
func (a *app) snapshotStore(rawFormat string) (ports.SnapshotStore, error) {
	if rawFormat == "" {
		return snapshotfile.NewStore(""), nil
	}
	format, err := wire.ParseFormat(rawFormat)
	if err != nil {
		return nil, err
	}
	return snapshotfile.NewStore(format), nil
}

func (a *app) newFeed(id domain.SessionID) *telemetry.Feed {
	return telemetry.NewFeed(id, telemetry.FeedOptions{
		Clock:  a.clock,
		Stats:  a.stats,
		Logger: a.logger,
	})
}
