// Package statustui renders live job progress in a terminal, grounded on
// apps/cli/internal/tui/check.go's spinner + step-list Bubble Tea model,
// adapted from a CI-check run view to a workflow job's per-step trace.
package statustui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/trace"
)

const pollInterval = 500 * time.Millisecond

var (
	spinnerColor = lipgloss.Color("205")
	okColor      = lipgloss.Color("42")
	failColor    = lipgloss.Color("196")
	dimColor     = lipgloss.Color("243")

	stepDoneStyle    = lipgloss.NewStyle().Foreground(okColor)
	stepFailedStyle  = lipgloss.NewStyle().Foreground(failColor)
	stepPendingStyle = lipgloss.NewStyle().Foreground(dimColor)
	headerStyle      = lipgloss.NewStyle().Bold(true)
)

type stepRow struct {
	name       string
	done       bool
	durationMs int64
}

type tickMsg time.Time

type snapshotMsg struct {
	job   *models.Job
	steps []stepRow
	err   error
}

// Model polls a job's record + trace and renders its progress.
type Model struct {
	records ports.RecordStore
	trace   *trace.Store
	jobID   string

	spinner spinner.Model
	job     *models.Job
	steps   []stepRow
	err     error
	done    bool
}

// New builds a Model that polls jobID until it reaches a terminal status.
func New(records ports.RecordStore, traceStore *trace.Store, jobID string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(spinnerColor)
	return Model{records: records, trace: traceStore, jobID: jobID, spinner: s}
}

// Err returns the error that stopped polling, if any, once the program
// has exited.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m Model) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := m.records.GetJob(ctx, m.jobID)
		if err != nil {
			return snapshotMsg{err: fmt.Errorf("load job: %w", err)}
		}
		workflow, err := m.records.GetWorkflow(ctx, job.WorkflowID)
		if err != nil {
			return snapshotMsg{err: fmt.Errorf("load workflow: %w", err)}
		}
		executed, err := m.trace.Load(ctx, job)
		if err != nil {
			return snapshotMsg{err: fmt.Errorf("load trace: %w", err)}
		}

		byName := make(map[string]models.ExecutionStep, len(executed))
		for _, e := range executed {
			byName[e.StepName] = e
		}
		rows := make([]stepRow, 0, len(workflow.Steps))
		for _, step := range workflow.Steps {
			if e, ok := byName[step.Name]; ok {
				rows = append(rows, stepRow{name: step.Name, done: true, durationMs: e.DurationMs})
				continue
			}
			rows = append(rows, stepRow{name: step.Name})
		}
		return snapshotMsg{job: job, steps: rows}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, m.poll()
	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.job = msg.job
		m.steps = msg.steps
		if msg.job.Status == models.JobCompleted || msg.job.Status == models.JobFailed {
			m.done = true
			return m, tea.Quit
		}
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("error: %v\n", m.err)
	}
	if m.job == nil {
		return m.spinner.View() + " loading job...\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", headerStyle.Render("job"), m.job.JobID)
	for _, row := range m.steps {
		switch {
		case row.done:
			fmt.Fprintf(&b, "  %s %s (%dms)\n", stepDoneStyle.Render("✓"), row.name, row.durationMs)
		case m.job.Status == models.JobFailed:
			fmt.Fprintf(&b, "  %s %s\n", stepFailedStyle.Render("x"), row.name)
		default:
			fmt.Fprintf(&b, "  %s %s %s\n", m.spinner.View(), stepPendingStyle.Render(row.name), stepPendingStyle.Render("pending"))
		}
	}
	fmt.Fprintf(&b, "\nstatus: %s\n", m.job.Status)
	if m.job.Status == models.JobCompleted {
		fmt.Fprintf(&b, "output: %s\n", m.job.OutputURL)
	}
	if m.job.Status == models.JobFailed {
		fmt.Fprintf(&b, "error: %s\n", m.job.ErrorMessage)
	}
	return b.String()
}
