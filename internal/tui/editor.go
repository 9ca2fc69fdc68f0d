package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"codeberg.org/cvforge/server/cvforge/resumes"
)

// field order in the editor
const (
	fieldFullName = iota
	fieldEmail
	fieldPhone
	fieldLocation
	fieldObjective
	fieldCompany
	fieldPosition
	fieldPeriod
	fieldDescription
	fieldInstitution
	fieldDegree
	fieldEducationPeriod
	fieldSkills
	fieldJobOffer
)

var fieldLabels = []string{
	"Full name",
	"Email",
	"Phone",
	"Location",
	"Objective",
	"Company",
	"Position",
	"Period",
	"Description",
	"Institution",
	"Degree",
	"Studied",
	"Skills",
	"Job offer",
}

// returns a new CV form editor
func NewEditorModel() *EditorModel {
	fields := make([]field, len(fieldLabels))

	for i, label := range fieldLabels {
		ti := textinput.New()
		ti.CharLimit = 4000
		ti.Width = 60
		ti.Prompt = ""
		ti.TextStyle = lipgloss.NewStyle().Foreground(colorWhite)
		fields[i] = field{label: label, input: ti}
	}

	fields[fieldSkills].input.Placeholder = "comma separated"
	fields[fieldJobOffer].input.Placeholder = "paste the offer to tailor your CV"

	m := &EditorModel{fields: fields}
	m.focus(0)

	return m
}

func (m *EditorModel) Update(msg tea.Msg) (*EditorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.focus((m.focused + 1) % len(m.fields))
			return m, nil

		case "shift+tab", "up":
			m.focus((m.focused - 1 + len(m.fields)) % len(m.fields))
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		for i := range m.fields {
			m.fields[i].input.Width = max(20, msg.Width-24)
		}
	}

	var cmd tea.Cmd
	m.fields[m.focused].input, cmd = m.fields[m.focused].input.Update(msg)

	return m, cmd
}

func (m *EditorModel) View(badge string) string {
	var b strings.Builder

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorWhite).
		Render("CV EDITOR")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left,
		header,
		strings.Repeat(" ", max(1, m.width-lipgloss.Width(header)-lipgloss.Width(badge)-2)),
		badge,
	))
	b.WriteString("\n\n")

	for i, f := range m.fields {
		switch i {
		case fieldCompany:
			b.WriteString(sectionTitle("Experience"))
		case fieldInstitution:
			b.WriteString(sectionTitle("Education"))
		case fieldSkills:
			b.WriteString(sectionTitle("Extras"))
		}

		label := labelStyle.Render(f.label)
		if i == m.focused {
			label = labelFocusedStyle.Render(f.label)
		}

		b.WriteString(label + " " + f.input.View())
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("[Tab: next] [Ctrl+G: AI enhance] [Ctrl+P: preview] [Ctrl+E: export] [Esc: menu]"))

	return b.String()
}

// the form as currently typed
func (m *EditorModel) Form() resumes.Form {
	v := func(i int) string {
		return strings.TrimSpace(m.fields[i].input.Value())
	}

	form := resumes.Form{
		FullName:  v(fieldFullName),
		Email:     v(fieldEmail),
		Phone:     v(fieldPhone),
		Location:  v(fieldLocation),
		Objective: v(fieldObjective),
		Skills:    v(fieldSkills),
		JobOffer:  v(fieldJobOffer),
	}

	if exp := (resumes.Experience{
		Company:     v(fieldCompany),
		Position:    v(fieldPosition),
		Period:      v(fieldPeriod),
		Description: v(fieldDescription),
	}); exp != (resumes.Experience{}) {
		form.Experience = []resumes.Experience{exp}
	}

	if edu := (resumes.Education{
		Institution: v(fieldInstitution),
		Degree:      v(fieldDegree),
		Period:      v(fieldEducationPeriod),
	}); edu != (resumes.Education{}) {
		form.Education = []resumes.Education{edu}
	}

	return form
}

// loads form into the inputs, e.g. after an enhancement was merged
func (m *EditorModel) SetForm(form resumes.Form) {
	set := func(i int, s string) {
		m.fields[i].input.SetValue(s)
	}

	set(fieldFullName, form.FullName)
	set(fieldEmail, form.Email)
	set(fieldPhone, form.Phone)
	set(fieldLocation, form.Location)
	set(fieldObjective, form.Objective)
	set(fieldSkills, form.Skills)
	set(fieldJobOffer, form.JobOffer)

	var exp resumes.Experience
	if len(form.Experience) > 0 {
		exp = form.Experience[0]
	}

	set(fieldCompany, exp.Company)
	set(fieldPosition, exp.Position)
	set(fieldPeriod, exp.Period)
	set(fieldDescription, exp.Description)

	var edu resumes.Education
	if len(form.Education) > 0 {
		edu = form.Education[0]
	}

	set(fieldInstitution, edu.Institution)
	set(fieldDegree, edu.Degree)
	set(fieldEducationPeriod, edu.Period)
}

func (m *EditorModel) focus(i int) {
	m.fields[m.focused].input.Blur()
	m.focused = i
	m.fields[i].input.Focus()
}

func sectionTitle(s string) string {
	return "\n" + lipgloss.NewStyle().Foreground(colorBlue).Bold(true).Render(s) + "\n"
}
