// Package tui is the terminal front end: a single-line console over a
// handler, built on bubbletea's model/update/view loop. The same shell
// hosts the applicant pipeline and the admin console.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LineHandler consumes one input line and returns the text to display.
type LineHandler func(line string) string

// transcriptLimit bounds scrollback so long runs do not grow without bound.
const transcriptLimit = 400

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Padding(0, 1)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	echoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

// Console is the bubbletea model.
type Console struct {
	title      string
	handle     LineHandler
	input      textinput.Model
	transcript []string
	height     int
	quitting   bool
}

// NewConsole builds a console titled title. greeting, if non-empty, is the
// first thing shown (typically the menu or usage text).
func NewConsole(title string, handle LineHandler, greeting string) Console {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.CharLimit = 512
	ti.Width = 76
	ti.Focus()

	c := Console{
		title:  title,
		handle: handle,
		input:  ti,
		height: 24,
	}
	if greeting != "" {
		c.append(greeting)
	}
	return c
}

// Init starts the cursor blink.
func (c Console) Init() tea.Cmd {
	return textinput.Blink
}

// Update routes key events: enter submits the line to the handler,
// ctrl+c leaves.
func (c Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.height = msg.Height
		if msg.Width > 4 {
			c.input.Width = msg.Width - 4
		}
		return c, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			c.quitting = true
			return c, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(c.input.Value())
			c.input.SetValue("")
			if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
				c.quitting = true
				return c, tea.Quit
			}
			c.append(echoStyle.Render("> " + line))
			c.append(c.handle(line))
			return c, nil
		}
	}
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

// View renders the title, the tail of the transcript and the input line.
func (c Console) View() string {
	if c.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(c.title))
	b.WriteString("\n\n")

	visible := c.height - 5
	if visible < 5 {
		visible = 5
	}
	lines := c.flattened()
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	b.WriteString(c.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter to send · 'quit' or ctrl+c to leave"))
	return b.String()
}

// Transcript exposes the scrollback, newest last.
func (c Console) Transcript() []string {
	return append([]string(nil), c.transcript...)
}

func (c *Console) append(block string) {
	block = strings.TrimRight(block, "\n")
	if block == "" {
		return
	}
	c.transcript = append(c.transcript, block)
	if len(c.transcript) > transcriptLimit {
		c.transcript = c.transcript[len(c.transcript)-transcriptLimit:]
	}
}

func (c Console) flattened() []string {
	var out []string
	for _, block := range c.transcript {
		out = append(out, strings.Split(block, "\n")...)
	}
	return out
}

// Run drives the console to completion.
func Run(c Console) error {
	_, err := tea.NewProgram(c).Run()
	return err
}
