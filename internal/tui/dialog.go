package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"codeberg.org/cvforge/server/internal/workflow"
)

func NewDialog() *Dialog {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorPurple)

	ti := textinput.New()
	ti.Placeholder = "optional instructions, e.g. emphasise leadership"
	ti.CharLimit = 2000
	ti.Width = 50
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle

	return &Dialog{spinner: s, prompt: ti}
}

// resets the dialog for a fresh run
func (d *Dialog) Open() tea.Cmd {
	d.state = workflow.State{Phase: workflow.PhaseCheckingQuota}
	d.prompt.SetValue("")

	return d.spinner.Tick
}

func (d *Dialog) SetState(s workflow.State) tea.Cmd {
	d.state = s

	if s.Phase == workflow.PhaseAwaitingInput {
		return d.prompt.Focus()
	}

	d.prompt.Blur()
	return nil
}

func (d *Dialog) Prompt() string {
	return strings.TrimSpace(d.prompt.Value())
}

func (d *Dialog) Update(msg tea.Msg) (*Dialog, tea.Cmd) {
	var cmds []tea.Cmd

	if _, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if d.state.Phase == workflow.PhaseAwaitingInput {
		var cmd tea.Cmd
		d.prompt, cmd = d.prompt.Update(msg)
		cmds = append(cmds, cmd)
	}

	return d, tea.Batch(cmds...)
}

func (d *Dialog) View() string {
	var b strings.Builder

	s := d.state

	switch s.Phase {
	case workflow.PhaseCheckingQuota:
		b.WriteString(d.spinner.View() + " Checking your credits…")

	case workflow.PhaseAwaitingInput:
		b.WriteString(titleStyle.Render("Enhance your CV with AI"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("This uses 1 of your %d remaining credits for today.\n\n", s.Remaining))
		b.WriteString(d.prompt.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("[Enter: generate] [Esc: cancel]"))

	case workflow.PhaseGenerating, workflow.PhaseSucceeded:
		title := "Generating your CV…"
		if s.Phase == workflow.PhaseSucceeded {
			title = "Done!"
		}

		b.WriteString(titleStyle.Render(title))
		b.WriteString("\n")
		b.WriteString(d.stepsView())

		if s.Phase == workflow.PhaseSucceeded {
			b.WriteString("\n")
			b.WriteString(infoStyle.Render(fmt.Sprintf("%d credits left today.", s.Remaining)))
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("[Enter: back to editor]"))
		} else {
			b.WriteString(helpStyle.Render("[Esc: leave, the credit stays spent]"))
		}

	case workflow.PhaseBlocked, workflow.PhaseFailed:
		b.WriteString(d.problemView())
	}

	return dialogStyle.Render(b.String())
}

func (d *Dialog) stepsView() string {
	var b strings.Builder

	for i, step := range workflow.Steps {
		var marker string

		switch {
		case d.state.Phase == workflow.PhaseSucceeded:
			marker = successStyle.Render("✓")
		case i < d.state.Step:
			marker = successStyle.Render("✓")
		case i == d.state.Step:
			marker = d.spinner.View()
		default:
			marker = infoStyle.Render("·")
		}

		// the completion step only shows once generation is over
		if i == len(workflow.Steps)-1 && d.state.Phase != workflow.PhaseSucceeded {
			continue
		}

		b.WriteString(fmt.Sprintf("%s %s\n", marker, step))
	}

	return b.String()
}

func (d *Dialog) problemView() string {
	var b strings.Builder

	switch d.state.Reason {
	case workflow.ReasonQuotaExhausted:
		b.WriteString(errorStyle.Render("Out of AI credits"))
		b.WriteString("\n\n")
		b.WriteString(d.state.Message)
		b.WriteString("\n\n")
		b.WriteString(infoStyle.Render("Upgrade for unlimited generations, or keep editing by hand."))

	case workflow.ReasonNotAuthenticated:
		b.WriteString(errorStyle.Render("Sign in required"))
		b.WriteString("\n\n")
		b.WriteString(d.state.Message)
		b.WriteString("\n\n")
		b.WriteString(infoStyle.Render("Use the login command with the token from /api/v1/auth/{provider}."))

	default:
		b.WriteString(errorStyle.Render("Something went wrong"))
		b.WriteString("\n\n")
		b.WriteString(d.state.Message)
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("[Enter/Esc: close]"))

	return b.String()
}
