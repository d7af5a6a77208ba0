package cmd

import (
	"fmt"
	"strings"
	"time"

	feedadapter "github.com/bnema/agentfeed/internal/adapters/render/feed"
	"github.com/bnema/agentfeed/internal/application"
	"github.com/bnema/agentfeed/internal/domain"
	"github.com/spf13/cobra"
)

type sessionLogOutput struct {
	SessionID  string         `json:"sessionId"`
	Fetched    int            `json:"fetched"`
	Appended   int            `json:"appended"`
	Duplicates int            `json:"duplicates"`
	Rejected   int            `json:"rejected"`
	Skipped    int            `json:"skipped"`
	Actions    []actionOutput `json:"actions"`
	Metrics    metricsOutput  `json:"metrics"`
}

type actionOutput struct {
	ID            string         `json:"id"`
	AgentType     string         `json:"agentType"`
	ActionType    string         `json:"actionType"`
	Description   string         `json:"description"`
	Timestamp     time.Time      `json:"timestamp"`
	Success       bool           `json:"success"`
	ExecutionTime *float64       `json:"executionTime,omitempty"`
	InputData     map[string]any `json:"inputData,omitempty"`
	OutputData    map[string]any `json:"outputData,omitempty"`
	ErrorMessage  string         `json:"errorMessage,omitempty"`
}

func toActionOutputs(records []domain.ActionRecord) []actionOutput {
	out := make([]actionOutput, 0, len(records))
	for _, r := range records {
		out = append(out, actionOutput{
			ID:            string(r.ID),
			AgentType:     string(r.AgentType),
			ActionType:    r.ActionType,
			Description:   r.Description,
			Timestamp:     r.Timestamp,
			Success:       r.Success,
			ExecutionTime: r.ExecutionTime,
			InputData:     r.InputData,
			OutputData:    r.OutputData,
			ErrorMessage:  r.ErrorMessage,
		})
	}
	return out
}

func newSessionLogCmd(app *app) *cobra.Command {
	var rawAgent string
	var rawFilter string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "log <session-id>",
		Short: "Fetch the backend's action log for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := domain.ParseFilter(rawFilter)
			if err != nil {
				return err
			}
			agent := domain.AgentType(strings.TrimSpace(rawAgent))
			if agent != "" && !agent.Known() {
				return fmt.Errorf("unknown agent type %q", rawAgent)
			}

			id := domain.SessionID(args[0])
			result, err := app.controller.BackfillLog(cmd.Context(), id, agent)
			if err != nil {
				return err
			}
			feed, err := app.controller.Feed(id)
			if err != nil {
				return err
			}

			records := feed.View(filter, limit)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), sessionLogOutput{
					SessionID:  string(id),
					Fetched:    result.Fetched,
					Appended:   result.Appended,
					Duplicates: result.Duplicates,
					Rejected:   result.Rejected,
					Skipped:    result.Skipped,
					Actions:    toActionOutputs(records),
					Metrics:    toMetricsOutput(feed.Metrics()),
				})
			}

			rendered, err := feedadapter.Render(feedadapter.View{
				SessionID:    id,
				ChannelState: feed.ChannelState(),
				Metrics:      feed.Metrics(),
				Records:      records,
				Logged:       feed.Len(),
				DecodeErrors: feed.DecodeErrors(),
				Filter:       filter,
			})
			if err != nil {
				return fmt.Errorf("render log: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), backfillSummary(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&rawAgent, "agent", "", "Only fetch actions from this agent type")
	cmd.Flags().StringVar(&rawFilter, "filter", "all", "Filter for the rendered log (all|success|errors|agent:<type>)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Newest matching actions to render (0 shows all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func backfillSummary(result application.BackfillResult) string {
	parts := []string{fmt.Sprintf("Fetched %d actions", result.Fetched)}
	parts = append(parts, fmt.Sprintf("%d new", result.Appended))
	if result.Duplicates > 0 {
		parts = append(parts, fmt.Sprintf("%d already logged", result.Duplicates))
	}
	if result.Rejected > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", result.Rejected))
	}
	if result.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d unreadable", result.Skipped))
	}
	return strings.Join(parts, "; ")
}
