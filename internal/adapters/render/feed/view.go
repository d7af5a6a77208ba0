package feed

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// View is everything one frame of the feed shows.
type View struct {
	SessionID    domain.SessionID
	ChannelState domain.ChannelState
	Metrics      domain.MetricsSnapshot
	Records      []domain.ActionRecord
	Logged       int
	DecodeErrors int64
	Filter       domain.Filter
}

const successBarWidth = 24

func renderView(v View, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Agent activity: %s", v.SessionID)),
		s.header.Render(headerLine(v)),
		s.section.Render(metricsLine(v.Metrics, s)),
	}

	if len(v.Records) == 0 {
		lines = append(lines, s.section.Render(s.empty.Render("No actions recorded.")))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	records := make([]string, 0, len(v.Records))
	for _, record := range v.Records {
		records = append(records, recordLine(record, s))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, records...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func headerLine(v View) string {
	parts := []string{
		fmt.Sprintf("channel: %s", channelLabel(v.ChannelState)),
		fmt.Sprintf("filter: %s", v.Filter),
		fmt.Sprintf("showing %d of %d", len(v.Records), v.Logged),
	}
	if v.DecodeErrors > 0 {
		parts = append(parts, fmt.Sprintf("dropped frames: %d", v.DecodeErrors))
	}
	return strings.Join(parts, "  ")
}

func channelLabel(state domain.ChannelState) string {
	if state == "" {
		return string(domain.ChannelDisconnected)
	}
	return string(state)
}

func metricsLine(m domain.MetricsSnapshot, s styles) string {
	rate := m.RoundedSuccessRate()
	rateStyle := lipgloss.NewStyle().Bold(true).Foreground(successColor(rate))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.metricKey.Render("actions: "),
		s.metricVal.Render(fmt.Sprintf("%d", m.TotalActions)),
		"  ",
		s.metricKey.Render("success: "),
		renderProgressBar(rate, successBarWidth, s),
		" ",
		rateStyle.Render(fmt.Sprintf("%.2f%%", rate)),
		"  ",
		s.metricKey.Render("avg exec: "),
		s.metricVal.Render(formatSeconds(m.AvgExecutionTime)),
		"  ",
		s.metricKey.Render("agents: "),
		s.metricVal.Render(fmt.Sprintf("%d", m.ActiveAgents)),
	)
}

func recordLine(r domain.ActionRecord, s styles) string {
	marker := s.success.Render("ok  ")
	if !r.Success {
		marker = s.failure.Render("fail")
	}

	parts := []string{
		s.timestamp.Render(recordTime(r)),
		" ",
		marker,
		" ",
		s.agent.Render(fmt.Sprintf("%-13s", r.AgentType.Label())),
		" ",
		s.actionType.Render(r.ActionType),
	}
	if r.Description != "" {
		parts = append(parts, " ", s.detail.Render(r.Description))
	}
	if r.HasExecutionTime() {
		parts = append(parts, " ", s.timestamp.Render("("+formatSeconds(*r.ExecutionTime)+")"))
	}
	if !r.Success && r.ErrorMessage != "" {
		parts = append(parts, " ", s.failure.Render("error: "+r.ErrorMessage))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// recordTime shows the source timestamp, or the arrival time when the source
// sent none.
func recordTime(r domain.ActionRecord) string {
	at := r.Timestamp
	if at.IsZero() {
		at = r.ReceivedAt
	}
	if at.IsZero() {
		return "--:--:--"
	}
	return at.Format(time.TimeOnly)
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.2fs", v)
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	if filled > width {
		filled = width
	}

	fill := lipgloss.NewStyle().Foreground(successColor(percent))
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func successColor(rate float64) lipgloss.Color {
	switch {
	case rate >= 90:
		return lipgloss.Color("42")
	case rate >= 60:
		return lipgloss.Color("214")
	default:
		return lipgloss.Color("203")
	}
}
