// Package tui renders a live full-screen view of a backup run.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"igsaved/pkg/models"
)

// Program wraps the bubbletea program for a run.
type Program struct {
	program *tea.Program
}

// New creates the program. total is the requested post cap, 0 when
// unbounded.
func New(total int) *Program {
	model := NewModel(total)
	return &Program{
		program: tea.NewProgram(model, tea.WithAltScreen()),
	}
}

// Run blocks until the run finishes or the user quits.
func (p *Program) Run() error {
	_, err := p.program.Run()
	return err
}

// Send forwards one processed post to the view.
func (p *Program) Send(ev models.ProgressEvent) {
	p.program.Send(EventMsg(ev))
}

// Finish tells the view the run is over and shuts it down.
func (p *Program) Finish(summary *models.Summary, err error) {
	p.program.Send(DoneMsg{Summary: summary, Err: err})
}
