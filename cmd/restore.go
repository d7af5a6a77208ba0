package cmd

import (
	"fmt"

	"github.com/bnema/agentfeed/internal/application"
	"github.com/bnema/agentfeed/internal/domain"
	"github.com/spf13/cobra"
)

func newRestoreCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Create and apply session restore points",
	}

	cmd.AddCommand(newRestorePointCmd(app), newRestoreApplyCmd(app))

	return cmd
}

func newRestorePointCmd(app *app) *cobra.Command {
	var sessionID string
	var label string

	cmd := &cobra.Command{
		Use:   "point",
		Short: "Create a restore point for a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := application.CreateRestorePointCommand{SessionID: domain.SessionID(sessionID), Label: label}

			ref, err := app.controller.CreateRestorePoint(cmd.Context(), req.SessionID, req.Label)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created restore point %s (%s)\n", ref.ID, ref.Label)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID")
	cmd.Flags().StringVar(&label, "label", "", "Restore point label")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func newRestoreApplyCmd(app *app) *cobra.Command {
	var pointID string
	var target string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Restore a session to a restore point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := application.RestoreSessionCommand{
				RestorePointID:  domain.RestorePointID(pointID),
				TargetSessionID: domain.SessionID(target),
			}

			if err := app.controller.RestoreSession(cmd.Context(), req.RestorePointID, req.TargetSessionID); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Restored session %s to %s\n", req.TargetSessionID, req.RestorePointID)
			return nil
		},
	}

	cmd.Flags().StringVar(&pointID, "point", "", "Restore point ID")
	cmd.Flags().StringVar(&target, "target", "", "Session to restore")
	_ = cmd.MarkFlagRequired("point")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}
