package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type replayDoneMsg struct{}

type replaySpinnerModel struct {
	spinner spinner.Model
	label   string
	wait    tea.Cmd
	done    bool
}

func newReplaySpinnerModel(label string, wait tea.Cmd) replaySpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return replaySpinnerModel{
		spinner: s,
		label:   label,
		wait:    wait,
	}
}

func (m replaySpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.wait)
}

func (m replaySpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case replayDoneMsg:
		m.done = true
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m replaySpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runReplaySpinner shows a spinner on output while work runs. It always waits
// for work to return, even when the spinner stops first.
func runReplaySpinner(ctx context.Context, output io.Writer, label string, work func(context.Context) error) error {
	finished := make(chan struct{})
	var workErr error
	go func() {
		defer close(finished)
		workErr = work(ctx)
	}()

	wait := func() tea.Msg {
		<-finished
		return replayDoneMsg{}
	}

	p := tea.NewProgram(
		newReplaySpinnerModel(label, wait),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)

	finalModel, runErr := p.Run()
	<-finished
	if workErr != nil {
		return workErr
	}
	if ctx.Err() != nil {
		return nil
	}
	if runErr != nil {
		return runErr
	}
	if _, ok := finalModel.(replaySpinnerModel); !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}
	return nil
}
