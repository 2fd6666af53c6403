package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"igsaved/pkg/models"
)

// maxRecent is how many processed posts stay visible in the feed pane.
const maxRecent = 12

// EventMsg carries one processed post into the model.
type EventMsg models.ProgressEvent

// DoneMsg signals the end of the run.
type DoneMsg struct {
	Summary *models.Summary
	Err     error
}

// recentLine is one rendered entry of the feed pane.
type recentLine struct {
	status models.OutcomeStatus
	text   string
}

// Model is the bubbletea model for a backup run.
type Model struct {
	spinner  spinner.Model
	bar      progress.Model
	total    int // 0 when the run is unbounded
	start    time.Time
	width    int

	succeeded int
	partial   int
	failed    int

	recent []recentLine

	done    bool
	summary *models.Summary
	runErr  error
}

// NewModel builds a model. total is the post cap when one was requested,
// 0 for an open-ended run.
func NewModel(total int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return Model{
		spinner: s,
		bar:     bar,
		total:   total,
		start:   time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.record(models.ProgressEvent(msg))
		return m, nil

	case DoneMsg:
		m.done = true
		m.summary = msg.Summary
		m.runErr = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) record(ev models.ProgressEvent) {
	line := recentLine{status: ev.Status}
	switch ev.Status {
	case models.OutcomeSuccess:
		m.succeeded++
		line.text = fmt.Sprintf("✓ %-8s %s", ev.Kind.String(), ev.PK)
	case models.OutcomePartial:
		m.partial++
		line.text = fmt.Sprintf("~ %-8s %s (partial)", ev.Kind.String(), ev.PK)
	default:
		m.failed++
		line.text = fmt.Sprintf("✗ %-8s %s", ev.Kind.String(), ev.PK)
		if ev.Err != nil {
			line.text += " " + ev.Err.Error()
		}
	}
	m.recent = append(m.recent, line)
	if len(m.recent) > maxRecent {
		m.recent = m.recent[len(m.recent)-maxRecent:]
	}
}

func (m Model) processed() int {
	return m.succeeded + m.partial + m.failed
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("igsaved · backing up saved posts"))
	b.WriteString("\n\n")

	if m.done {
		b.WriteString(successStyle.Render("Run finished."))
		b.WriteString("\n")
	} else {
		b.WriteString(fmt.Sprintf("%s processing… %s\n",
			m.spinner.View(),
			dimStyle.Render(time.Since(m.start).Round(time.Second).String())))
	}

	if m.total > 0 {
		ratio := float64(m.processed()) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
		b.WriteString(m.bar.ViewAs(ratio))
		b.WriteString(fmt.Sprintf(" %d/%d\n", m.processed(), m.total))
	} else {
		b.WriteString(fmt.Sprintf("%s posts processed\n",
			statStyle.Render(fmt.Sprintf("%d", m.processed()))))
	}

	stats := fmt.Sprintf("%s  %s  %s",
		successStyle.Render(fmt.Sprintf("✓ %d", m.succeeded)),
		partialStyle.Render(fmt.Sprintf("~ %d", m.partial)),
		failStyle.Render(fmt.Sprintf("✗ %d", m.failed)))
	b.WriteString("\n" + stats + "\n\n")

	if len(m.recent) > 0 {
		var feed strings.Builder
		for i, line := range m.recent {
			if i > 0 {
				feed.WriteString("\n")
			}
			switch line.status {
			case models.OutcomeSuccess:
				feed.WriteString(successStyle.Render(line.text))
			case models.OutcomePartial:
				feed.WriteString(partialStyle.Render(line.text))
			default:
				feed.WriteString(failStyle.Render(line.text))
			}
		}
		b.WriteString(borderStyle.Render(feed.String()))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q: quit"))
	b.WriteString("\n")

	return b.String()
}
