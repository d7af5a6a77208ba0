package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/agentfeed/internal/application"
	"github.com/bnema/agentfeed/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create, inspect and close agent sessions",
	}

	cmd.AddCommand(
		newSessionCreateCmd(app),
		newSessionListCmd(app),
		newSessionStatusCmd(app),
		newSessionLogCmd(app),
		newSessionCloseCmd(app),
	)

	return cmd
}

type restorePointOutput struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionOutput struct {
	ID            string               `json:"id"`
	OwnerID       string               `json:"ownerId"`
	Workspace     string               `json:"workspace"`
	CreatedAt     time.Time            `json:"createdAt"`
	State         string               `json:"state"`
	RestorePoints []restorePointOutput `json:"restorePoints,omitempty"`
}

type metricsOutput struct {
	TotalActions     int64   `json:"totalActions"`
	SuccessRate      float64 `json:"successRate"`
	AvgExecutionTime float64 `json:"avgExecutionTime"`
	ActiveAgents     int     `json:"activeAgents"`
}

func toMetricsOutput(m domain.MetricsSnapshot) metricsOutput {
	return metricsOutput{
		TotalActions:     m.TotalActions,
		SuccessRate:      m.SuccessRate,
		AvgExecutionTime: m.AvgExecutionTime,
		ActiveAgents:     m.ActiveAgents,
	}
}

type sessionStatusOutput struct {
	sessionOutput
	ChannelState  string              `json:"channelState"`
	Metrics       metricsOutput       `json:"metrics"`
	LoggedActions int                 `json:"loggedActions"`
	DecodeErrors  int64               `json:"decodeErrors"`
	Remote        *remoteStatusOutput `json:"remote,omitempty"`
}

type remoteStatusOutput struct {
	Active               bool                 `json:"active"`
	TransparencyActions  int                  `json:"transparencyActions"`
	WebsocketConnections int                  `json:"websocketConnections"`
	LastActivity         *time.Time           `json:"lastActivity,omitempty"`
	Backend              backendMetricsOutput `json:"backendMetrics"`
}

type backendMetricsOutput struct {
	TotalTasks       int64   `json:"totalTasks"`
	SuccessfulTasks  int64   `json:"successfulTasks"`
	FailedTasks      int64   `json:"failedTasks"`
	SuccessRate      float64 `json:"successRate"`
	AvgExecutionTime float64 `json:"avgExecutionTime"`
	ActiveSessions   int     `json:"activeSessions"`
}

func toRemoteStatusOutput(status domain.RemoteSessionStatus) *remoteStatusOutput {
	out := &remoteStatusOutput{
		Active:               status.Active,
		TransparencyActions:  status.TransparencyActions,
		WebsocketConnections: status.WebsocketConnections,
		Backend: backendMetricsOutput{
			TotalTasks:       status.Metrics.TotalTasks,
			SuccessfulTasks:  status.Metrics.SuccessfulTasks,
			FailedTasks:      status.Metrics.FailedTasks,
			SuccessRate:      status.Metrics.SuccessRate,
			AvgExecutionTime: status.Metrics.AvgExecutionTime,
			ActiveSessions:   status.Metrics.ActiveSessions,
		},
	}
	if !status.LastActivity.IsZero() {
		at := status.LastActivity
		out.LastActivity = &at
	}
	return out
}

func toSessionOutput(session domain.Session) sessionOutput {
	out := sessionOutput{
		ID:        string(session.ID),
		OwnerID:   session.OwnerID,
		Workspace: session.Workspace,
		CreatedAt: session.CreatedAt,
		State:     string(session.State),
	}
	for _, ref := range session.RestorePoints {
		out.RestorePoints = append(out.RestorePoints, restorePointOutput{ID: string(ref.ID), Label: ref.Label, CreatedAt: ref.CreatedAt})
	}
	return out
}

func newSessionCreateCmd(app *app) *cobra.Command {
	var owner string
	var workspace string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := application.CreateSessionCommand{OwnerID: owner, Workspace: workspace}
			if req.OwnerID == "" {
				req.OwnerID = app.cfg.SessionOwner
			}
			if req.Workspace == "" {
				req.Workspace = defaultWorkspace()
			}

			session, err := app.controller.CreateSession(cmd.Context(), req.OwnerID, req.Workspace)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), toSessionOutput(session))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created session %s (workspace: %s)\n", session.ID, session.Workspace)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner id (default: sessions.owner or $USER)")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace name (default: current directory name)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newSessionListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := app.controller.Sessions(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				out := make([]sessionOutput, 0, len(sessions))
				for _, session := range sessions {
					out = append(out, toSessionOutput(session))
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			if len(sessions) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No sessions yet. Create one with: afeed session create")
				return nil
			}

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("ID", "STATE", "OWNER", "WORKSPACE", "CREATED")
			for _, session := range sessions {
				t.Row(
					string(session.ID),
					session.State.Label(),
					session.OwnerID,
					session.Workspace,
					formatCreatedAt(session.CreatedAt),
				)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newSessionStatusCmd(app *app) *cobra.Command {
	var asJSON bool
	var remote bool

	cmd := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show a session and its restore points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.SessionID(args[0])
			if _, err := app.controller.ResumeSession(cmd.Context(), id); err != nil {
				return err
			}
			status, err := app.controller.Status(id)
			if err != nil {
				return err
			}

			var remoteStatus *domain.RemoteSessionStatus
			if remote {
				fetched, err := app.controller.RemoteStatus(cmd.Context(), id)
				if err != nil {
					return err
				}
				remoteStatus = &fetched
			}

			if asJSON {
				out := sessionStatusOutput{
					sessionOutput: toSessionOutput(status.Session),
					ChannelState:  string(status.ChannelState),
					Metrics:       toMetricsOutput(status.Metrics),
					LoggedActions: status.LoggedActions,
					DecodeErrors:  status.DecodeErrors,
				}
				if remoteStatus != nil {
					out.Remote = toRemoteStatusOutput(*remoteStatus)
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if err := writeSessionStatus(cmd.OutOrStdout(), status); err != nil {
				return err
			}
			if remoteStatus != nil {
				return writeRemoteStatus(cmd.OutOrStdout(), *remoteStatus)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&remote, "remote", false, "Also ask the backend for its view of the session")

	return cmd
}

func newSessionCloseCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close a session; closed sessions accept no further tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.SessionID(args[0])
			if err := app.controller.CloseSession(cmd.Context(), id); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Closed session %s\n", id)
			return nil
		},
	}
}

func writeSessionStatus(w io.Writer, status application.SessionStatus) error {
	session := status.Session
	lines := []string{
		fmt.Sprintf("Session:    %s", session.ID),
		fmt.Sprintf("State:      %s", session.State.Label()),
		fmt.Sprintf("Owner:      %s", session.OwnerID),
		fmt.Sprintf("Workspace:  %s", session.Workspace),
		fmt.Sprintf("Created:    %s", formatCreatedAt(session.CreatedAt)),
	}

	if len(session.RestorePoints) == 0 {
		lines = append(lines, "Restore points: none")
	} else {
		lines = append(lines, "Restore points:")
		for _, ref := range session.RestorePoints {
			lines = append(lines, fmt.Sprintf("  %s  %s  %s", ref.ID, ref.Label, formatCreatedAt(ref.CreatedAt)))
		}
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func writeRemoteStatus(w io.Writer, status domain.RemoteSessionStatus) error {
	backendState := "idle"
	if status.Active {
		backendState = "active"
	}
	m := status.Metrics
	lines := []string{
		"Backend:",
		fmt.Sprintf("  State:          %s", backendState),
		fmt.Sprintf("  Logged actions: %d", status.TransparencyActions),
		fmt.Sprintf("  Live viewers:   %d", status.WebsocketConnections),
		fmt.Sprintf("  Last activity:  %s", formatCreatedAt(status.LastActivity)),
		fmt.Sprintf("  Tasks:          %d total, %d succeeded, %d failed (%.2f%%)", m.TotalTasks, m.SuccessfulTasks, m.FailedTasks, m.SuccessRate),
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func formatCreatedAt(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func defaultWorkspace() string {
	wd, err := os.Getwd()
	if err != nil {
		return "workspace"
	}
	return filepath.Base(wd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
