package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"codeberg.org/cvforge/server/internal/apiclient"
	"codeberg.org/cvforge/server/internal/credits"
	"codeberg.org/cvforge/server/internal/exports"
	"codeberg.org/cvforge/server/internal/identity"
	"codeberg.org/cvforge/server/internal/workflow"
)

// represents the current state of the TUI
type AppState int

const (
	StateWelcome AppState = iota
	StateEditor
	StateDialog
	StatePreview
)

// collaborators the TUI drives
type Deps struct {
	Mode     string
	Client   *apiclient.Client
	Identity *identity.Holder
	Cache    *credits.Cache
	Workflow *workflow.Workflow
	Exports  *exports.Counter

	// where exported CVs are written
	ExportDir string
}

// main TUI application model
type Model struct {
	deps    Deps
	state   AppState
	width   int
	height  int
	err     error
	notice  string
	credits credits.State
	welcome *Welcome
	editor  *EditorModel
	dialog  *Dialog
	preview *Preview
}

// sent when an error occurs
type ErrorMsg struct {
	err error
}

// sent to transition to the editor state
type EnterEditorMsg struct{}

// sent with every client quota cache transition
type CreditsMsg credits.State

// sent with the workflow state after each step
type WorkflowMsg workflow.State

// sent when the workflow needs the user to sign in
type SignInRequestedMsg struct{}

// sent once a stored token was accepted by the server
type SignedInMsg struct {
	email string
}

// sent after a CV was written to disk
type ExportedMsg struct {
	path      string
	remaining int
}

// advances the progress label in the generation dialog
type stepTickMsg struct{}

// welcome screen model
type Welcome struct {
	mode     string
	input    string
	commands []Command
}

// represents an available TUI command
type Command struct {
	Name        string
	Description string
	Available   bool
}

// a labelled text input bound to one form field
type field struct {
	label string
	input textinput.Model
}

// CV form editor
type EditorModel struct {
	fields  []field
	focused int
	width   int
	height  int
}

// generation dialog, rendered from the workflow state
type Dialog struct {
	state   workflow.State
	spinner spinner.Model
	prompt  textinput.Model
}

// rendered markdown preview of the CV
type Preview struct {
	viewport viewport.Model
	ready    bool
}
