package feed

import (
	"context"
	"errors"
	"io"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/telemetry"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Source is the live state a watch reads. *telemetry.Feed satisfies it.
type Source interface {
	SessionID() domain.SessionID
	View(filter domain.Filter, limit int) []domain.ActionRecord
	Metrics() domain.MetricsSnapshot
	ChannelState() domain.ChannelState
	DecodeErrors() int64
	Len() int
	Subscribe(fn func(telemetry.Update)) func()
	ClearLog()
	ResetMetrics()
}

type WatchOptions struct {
	Filter domain.Filter
	// Limit keeps the newest matching records on screen. Zero shows all.
	Limit  int
	Input  io.Reader
	Output io.Writer
}

type feedChangedMsg struct{}

type watchModel struct {
	source  Source
	filter  domain.Filter
	limit   int
	updates <-chan struct{}
	styles  styles
	view    View
}

const watchHelp = "f: cycle filter  a: next agent  c: clear log  r: reset metrics  q: quit"

func newWatchModel(source Source, opts WatchOptions, updates <-chan struct{}) watchModel {
	filter := opts.Filter
	if filter.Kind == "" {
		filter = domain.FilterAll()
	}

	m := watchModel{
		source:  source,
		filter:  filter,
		limit:   opts.Limit,
		updates: updates,
		styles:  newStyles(),
	}
	m.refresh()
	return m
}

func (m watchModel) Init() tea.Cmd {
	return m.waitForUpdate()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case feedChangedMsg:
		m.refresh()
		return m, m.waitForUpdate()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "f":
			m.filter = nextFilter(m.filter)
		case "a":
			m.filter = nextAgentFilter(m.filter, m.source.View(domain.FilterAll(), 0))
		case "c":
			m.source.ClearLog()
		case "r":
			m.source.ResetMetrics()
		default:
			return m, nil
		}
		m.refresh()
		return m, nil
	default:
		return m, nil
	}
}

func (m watchModel) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		renderView(m.view, m.styles),
		m.styles.section.Render(m.styles.help.Render(watchHelp)),
	)
}

func (m *watchModel) refresh() {
	m.view = View{
		SessionID:    m.source.SessionID(),
		ChannelState: m.source.ChannelState(),
		Metrics:      m.source.Metrics(),
		Records:      m.source.View(m.filter, m.limit),
		Logged:       m.source.Len(),
		DecodeErrors: m.source.DecodeErrors(),
		Filter:       m.filter,
	}
}

func (m watchModel) waitForUpdate() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return feedChangedMsg{}
	}
}

// nextFilter cycles all, success, errors. An agent filter returns to all.
func nextFilter(current domain.Filter) domain.Filter {
	switch current.Kind {
	case domain.FilterKindAll:
		return domain.FilterSuccessOnly()
	case domain.FilterKindSuccessOnly:
		return domain.FilterErrorsOnly()
	default:
		return domain.FilterAll()
	}
}

// nextAgentFilter steps through the agent types present in records, in order
// of first appearance.
func nextAgentFilter(current domain.Filter, records []domain.ActionRecord) domain.Filter {
	var agents []domain.AgentType
	seen := map[domain.AgentType]bool{}
	for _, r := range records {
		if !seen[r.AgentType] {
			seen[r.AgentType] = true
			agents = append(agents, r.AgentType)
		}
	}
	if len(agents) == 0 {
		return domain.FilterAll()
	}

	if current.Kind == domain.FilterKindAgent {
		for i, agent := range agents {
			if agent == current.Agent && i+1 < len(agents) {
				return domain.FilterByAgent(agents[i+1])
			}
		}
		return domain.FilterAll()
	}
	return domain.FilterByAgent(agents[0])
}

// Watch runs the live feed until the user quits or ctx ends.
func Watch(ctx context.Context, source Source, opts WatchOptions) error {
	updates := make(chan struct{}, 1)
	unsubscribe := source.Subscribe(func(telemetry.Update) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	_, err := tea.NewProgram(newWatchModel(source, opts, updates), programOpts...).Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
