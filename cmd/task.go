package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/agentfeed/internal/application"
	"github.com/bnema/agentfeed/internal/domain"
	"github.com/spf13/cobra"
)

func newTaskCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Submit tasks to a session",
	}

	cmd.AddCommand(newTaskRunCmd(app))

	return cmd
}

func newTaskRunCmd(app *app) *cobra.Command {
	var command application.ExecuteTaskCommand
	var sessionID string
	var rawContext string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a task for execution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			command.SessionID = domain.SessionID(sessionID)
			if rawContext != "" {
				if err := json.Unmarshal([]byte(rawContext), &command.Context); err != nil {
					return fmt.Errorf("parse --context: %w", err)
				}
			}

			req, err := command.Request()
			if err != nil {
				return err
			}

			taskID, err := app.controller.ExecuteTask(cmd.Context(), command.SessionID, req)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Submitted task %s (mode: %s, priority: %d)\n", taskID, req.Mode, req.Priority)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID")
	cmd.Flags().StringVar(&command.Description, "description", "", "What the agents should do")
	cmd.Flags().StringVar(&command.Mode, "mode", "hybrid", "Execution mode (openhands|manus|emergent|hybrid)")
	cmd.Flags().IntVar(&command.Priority, "priority", domain.DefaultTaskPriority, "Task priority")
	cmd.Flags().StringVar(&command.Language, "language", "", "Preferred implementation language (optional)")
	cmd.Flags().StringVar(&rawContext, "context", "", "Task context as a JSON object")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}
