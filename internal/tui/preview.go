package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"codeberg.org/cvforge/server/cvforge/resumes"
)

func NewPreview() *Preview {
	return &Preview{}
}

// renders form as markdown into the viewport
func (p *Preview) SetForm(form resumes.Form, width, height int) error {
	width = max(40, width)
	height = max(10, height-4)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return err
	}

	out, err := renderer.Render(resumes.Markdown(form))
	if err != nil {
		return err
	}

	if !p.ready {
		p.viewport = viewport.New(width, height)
		p.ready = true
	} else {
		p.viewport.Width = width
		p.viewport.Height = height
	}

	p.viewport.SetContent(out)
	p.viewport.GotoTop()

	return nil
}

func (p *Preview) Update(msg tea.Msg) (*Preview, tea.Cmd) {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)

	return p, cmd
}

func (p *Preview) View() string {
	return p.viewport.View() + "\n" + helpStyle.Render("[↑/↓: scroll] [Ctrl+E: export] [Esc: back]")
}
