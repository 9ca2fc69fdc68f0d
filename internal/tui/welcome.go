package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// returns a new welcome screen
func NewWelcome(mode string) *Welcome {
	commands := []Command{
		{Name: "edit", Description: "open the CV editor", Available: true},
		{Name: "generate", Description: "enhance your CV with AI (3 free per day)", Available: true},
		{Name: "preview", Description: "render your CV", Available: true},
		{Name: "export", Description: "save your CV as markdown (3 per day)", Available: true},
		{Name: "refresh", Description: "re-check your AI credits", Available: true},
		{Name: "login <token>", Description: "sign in with a token from the OAuth callback", Available: true},
		{Name: "logout", Description: "forget the stored token", Available: true},
		{Name: "quit", Description: "exit cvforge", Available: true},
	}

	return &Welcome{
		mode:     mode,
		commands: commands,
	}
}

// a command typed on the welcome screen
type welcomeCommandMsg struct {
	name string
	arg  string
}

func (m *Welcome) Update(msg tea.Msg) (*Welcome, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			cmd := m.executeCommand()
			m.input = ""
			return m, cmd
		case "backspace":
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		default:
			switch msg.Type {
			case tea.KeySpace:
				m.input += " "
			case tea.KeyRunes:
				m.input += string(msg.Runes)
			}
		}
	}

	return m, nil
}

func (m *Welcome) View(badge, notice string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(logo))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("build a CV that gets read"))
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf("mode: %s", strings.ToUpper(m.mode))))
	b.WriteString("  ")
	b.WriteString(badge)
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Render("commands:"))
	b.WriteString("\n\n")

	for _, cmd := range m.commands {
		if !cmd.Available {
			continue
		}

		b.WriteString(fmt.Sprintf("  %s %s\n",
			commandStyle.Render(cmd.Name),
			commandDescStyle.Render("- "+cmd.Description),
		))
	}

	b.WriteString("\n")

	if notice != "" {
		b.WriteString(infoStyle.Render(notice))
		b.WriteString("\n\n")
	}

	b.WriteString(promptStyle.Render("> ") + inputStyle.Render(m.input+"_"))
	b.WriteString("\n\n")

	b.WriteString(helpStyle.Render("type a command and press enter. press ctrl+c to quit."))

	return b.String()
}

func (m *Welcome) executeCommand() tea.Cmd {
	name, arg, _ := strings.Cut(strings.TrimSpace(m.input), " ")

	switch name {
	case "":
		return nil

	case "quit":
		return tea.Quit

	case "edit", "generate", "preview", "export", "refresh", "login", "logout":
		return func() tea.Msg {
			return welcomeCommandMsg{name: name, arg: strings.TrimSpace(arg)}
		}

	default:
		return func() tea.Msg {
			return ErrorMsg{err: fmt.Errorf("unknown command: %s", name)}
		}
	}
}
