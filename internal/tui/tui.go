// Package tui is the terminal front-end: a CV editor with AI enhancement
// gated by the daily credit quota and a local export counter.
package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"codeberg.org/cvforge/server/internal/credits"
	"codeberg.org/cvforge/server/internal/exports"
	"codeberg.org/cvforge/server/internal/workflow"
)

func NewApp(deps Deps) *Model {
	return &Model{
		deps:    deps,
		state:   StateWelcome,
		credits: deps.Cache.State(),
		welcome: NewWelcome(deps.Mode),
		editor:  NewEditorModel(),
		dialog:  NewDialog(),
		preview: NewPreview(),
	}
}

func (m *Model) Init() tea.Cmd {
	return refreshCmd(m.deps.Cache)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.state == StateWelcome {
				return m, tea.Quit
			}

			// ctrl+c elsewhere goes back to the menu
			return m, m.back()
		}

		// any key clears a shown error
		if m.err != nil {
			m.err = nil
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor, _ = m.editor.Update(msg)
		return m, nil

	case ErrorMsg:
		m.err = msg.err
		return m, nil

	case CreditsMsg:
		m.credits = credits.State(msg)
		return m, nil

	case SignInRequestedMsg:
		m.notice = "sign in with: login <token>"
		return m, nil

	case SignedInMsg:
		m.notice = "signed in as " + msg.email
		return m, nil

	case ExportedMsg:
		m.notice = fmt.Sprintf("exported to %s (%d exports left today)", msg.path, msg.remaining)
		return m, nil

	case EnterEditorMsg:
		m.state = StateEditor
		return m, nil

	case welcomeCommandMsg:
		return m, m.runCommand(msg)

	case WorkflowMsg:
		// results for a dialog the user already left
		if m.state != StateDialog {
			return m, nil
		}

		return m, m.applyWorkflow(workflow.State(msg))

	case stepTickMsg:
		if m.state != StateDialog {
			return m, nil
		}

		s := m.deps.Workflow.Tick()
		switch s.Phase {
		case workflow.PhaseGenerating:
			m.dialog.SetState(s)
			return m, stepTick()
		case workflow.PhaseAwaitingInput:
			// confirm has not reached the server yet
			return m, stepTick()
		}

		return m, nil
	}

	switch m.state {
	case StateWelcome:
		var cmd tea.Cmd
		m.welcome, cmd = m.welcome.Update(msg)
		return m, cmd

	case StateEditor:
		return m.updateEditor(msg)

	case StateDialog:
		return m.updateDialog(msg)

	case StatePreview:
		return m.updatePreview(msg)

	default:
		return m, nil
	}
}

func (m *Model) View() string {
	if m.err != nil {
		return errorView(m.err)
	}

	badge := creditBadge(m.credits)

	switch m.state {
	case StateWelcome:
		return m.welcome.View(badge, m.notice)

	case StateEditor:
		view := m.editor.View(badge)
		if m.notice != "" {
			view += "\n" + infoStyle.Render(m.notice)
		}
		return view

	case StateDialog:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.dialog.View())

	case StatePreview:
		return m.preview.View()

	default:
		return "Unknown state"
	}
}

func (m *Model) runCommand(msg welcomeCommandMsg) tea.Cmd {
	m.notice = ""

	switch msg.name {
	case "edit":
		m.state = StateEditor
		return nil

	case "generate":
		return m.triggerGeneration()

	case "preview":
		return m.openPreview()

	case "export":
		return exportCmd(m.deps.Exports, m.deps.ExportDir, m.editor.Form())

	case "refresh":
		return refreshCmd(m.deps.Cache)

	case "login":
		if msg.arg == "" {
			return func() tea.Msg {
				return ErrorMsg{err: errors.New("usage: login <token>")}
			}
		}

		m.notice = "checking token…"
		return loginCmd(m.deps.Client, m.deps.Identity, msg.arg)

	case "logout":
		m.notice = "signed out"
		return logoutCmd(m.deps.Identity)
	}

	return nil
}

func (m *Model) updateEditor(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return m, m.back()
		case "ctrl+g":
			return m, m.triggerGeneration()
		case "ctrl+p":
			return m, m.openPreview()
		case "ctrl+e":
			return m, exportCmd(m.deps.Exports, m.deps.ExportDir, m.editor.Form())
		}
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)

	return m, cmd
}

func (m *Model) updateDialog(msg tea.Msg) (tea.Model, tea.Cmd) {
	wf := m.deps.Workflow

	if key, ok := msg.(tea.KeyMsg); ok {
		phase := wf.State().Phase

		switch key.String() {
		case "esc":
			return m, m.back()

		case "enter":
			switch phase {
			case workflow.PhaseAwaitingInput:
				current := wf.State()
				m.dialog.SetState(workflow.State{
					Phase:     workflow.PhaseGenerating,
					Form:      current.Form,
					Remaining: current.Remaining,
				})

				return m, tea.Batch(confirmCmd(wf, m.dialog.Prompt()), stepTick())
			case workflow.PhaseSucceeded:
				return m, m.applyWorkflow(wf.Acknowledge())
			case workflow.PhaseBlocked, workflow.PhaseFailed:
				return m, m.applyWorkflow(wf.Dismiss())
			}
		}
	}

	var cmd tea.Cmd
	m.dialog, cmd = m.dialog.Update(msg)

	return m, cmd
}

func (m *Model) updatePreview(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.state = StateEditor
			return m, nil
		case "ctrl+e":
			return m, exportCmd(m.deps.Exports, m.deps.ExportDir, m.editor.Form())
		}
	}

	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)

	return m, cmd
}

func (m *Model) triggerGeneration() tea.Cmd {
	wf := m.deps.Workflow

	// signed out users still start, so the workflow can ask them to sign in
	if m.deps.Identity.Present() && !wf.CanTrigger() {
		m.notice = generationUnavailable(m.credits)
		return nil
	}

	m.notice = ""
	m.state = StateDialog

	return tea.Batch(m.dialog.Open(), startGenerationCmd(wf, m.editor.Form()))
}

func (m *Model) applyWorkflow(s workflow.State) tea.Cmd {
	cmd := m.dialog.SetState(s)

	switch s.Phase {
	case workflow.PhaseIdle:
		m.editor.SetForm(s.Form)
		m.state = StateEditor
		return nil

	case workflow.PhaseSucceeded:
		m.editor.SetForm(s.Form)
	}

	return cmd
}

// leaves the current screen; an open dialog is dismissed or abandoned
func (m *Model) back() tea.Cmd {
	switch m.state {
	case StateDialog:
		wf := m.deps.Workflow
		if wf.State().Phase == workflow.PhaseGenerating {
			wf.Abandon()
		} else {
			wf.Dismiss()
		}

		m.state = StateEditor

	case StatePreview:
		m.state = StateEditor

	default:
		m.state = StateWelcome
	}

	return nil
}

func (m *Model) openPreview() tea.Cmd {
	if err := m.preview.SetForm(m.editor.Form(), m.width, m.height); err != nil {
		return func() tea.Msg {
			return ErrorMsg{err: fmt.Errorf("failed to render preview: %w", err)}
		}
	}

	m.state = StatePreview
	return nil
}

func generationUnavailable(s credits.State) string {
	switch s.Status {
	case credits.StatusReady:
		return fmt.Sprintf("no AI credits left today, they renew at %s", s.Snapshot.ResetTime)
	case credits.StatusLoading:
		return "still checking your credits"
	default:
		return "credits unavailable, try refresh"
	}
}

func errorView(err error) string {
	if errors.Is(err, exports.ErrDailyLimit) {
		return fmt.Sprintf("\n  %s\n\n  %v\n\n  Press any key to continue\n", errorStyle.Render("Export limit reached"), err)
	}

	return fmt.Sprintf("\n  Error: %v\n\n  Press any key to continue\n", err)
}
