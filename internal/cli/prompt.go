package cli

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/podkit/pkg/deps"
)

// errAborted is returned when the operator leaves the manual install prompt.
var errAborted = errors.New("installation aborted")

var promptNameStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)

// manualPromptModel lists pods that need their frameworks copied in by hand
// and waits for the operator to confirm.
type manualPromptModel struct {
	pods      []deps.ManualPackage
	root      string
	confirmed bool
	aborted   bool
}

func newManualPrompt(pods []deps.ManualPackage, root string) manualPromptModel {
	return manualPromptModel{pods: pods, root: root}
}

func (m manualPromptModel) Init() tea.Cmd {
	return nil
}

func (m manualPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			m.confirmed = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			m.aborted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m manualPromptModel) View() string {
	if m.confirmed || m.aborted {
		return ""
	}

	var b strings.Builder
	b.WriteString(StyleWarning.Render("Manual installation required"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("Copy the frameworks of these pods into " + m.root + ":"))
	b.WriteString("\n\n")
	for _, p := range m.pods {
		b.WriteString(manualLine(p))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("⏎ continue  esc abort"))
	b.WriteString("\n")
	return b.String()
}

// manualLine renders "> name" or "> name (module)".
func manualLine(p deps.ManualPackage) string {
	line := styleIconInfo.Render(iconInfo) + " " + promptNameStyle.Render(p.Name)
	if p.ModuleName != "" && p.ModuleName != p.Name {
		line += " " + StyleDim.Render(fmt.Sprintf("(%s)", p.ModuleName))
	}
	return line
}

// confirmManual runs the prompt on the CLI's terminal streams. It returns an
// error when the operator aborts.
func (c *CLI) confirmManual(pods []deps.ManualPackage, root string) error {
	p := tea.NewProgram(newManualPrompt(pods, root), tea.WithInput(c.in), tea.WithOutput(c.out))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("manual install prompt: %w", err)
	}
	if m, ok := final.(manualPromptModel); !ok || !m.confirmed {
		return errAborted
	}
	return nil
}
