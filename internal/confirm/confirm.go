// Package confirm asks the operator about each deletion on the terminal.
package confirm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taigrr/artifact-reaper/internal/deleter"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true)
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("124")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// Model is a single y/n/q question.
type Model struct {
	key      string
	keys     KeyMap
	answer   deleter.Answer
	answered bool
}

// NewModel returns a prompt for key.
func NewModel(key string) Model {
	return Model{key: key, keys: DefaultKeyMap()}
}

// Answer returns the reply and whether one was given.
func (m Model) Answer() (deleter.Answer, bool) {
	return m.answer, m.answered
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Yes):
		m.answer, m.answered = deleter.AnswerYes, true
	case key.Matches(keyMsg, m.keys.No):
		m.answer, m.answered = deleter.AnswerNo, true
	case key.Matches(keyMsg, m.keys.Quit):
		m.answer, m.answered = deleter.AnswerQuit, true
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m Model) View() string {
	if m.answered {
		return fmt.Sprintf("%s %s\n", m.key, mutedStyle.Render("["+m.answer.String()+"]"))
	}
	help := make([]string, 0, 3)
	for _, b := range []key.Binding{m.keys.Yes, m.keys.No, m.keys.Quit} {
		help = append(help, keyStyle.Render(b.Help().Key)+" "+mutedStyle.Render(b.Help().Desc))
	}
	return fmt.Sprintf("%s\n%s  %s\n", m.key, promptStyle.Render("Ok to delete?"), strings.Join(help, "  "))
}

// Prompter implements deleter.Confirmer with a bubbletea program per item.
type Prompter struct {
	in  io.Reader
	out io.Writer
}

// NewPrompter creates a Prompter reading in and drawing on out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

// Confirm asks about one key. A prompt closed without an answer counts as quit.
func (p *Prompter) Confirm(ctx context.Context, key string) (deleter.Answer, error) {
	program := tea.NewProgram(NewModel(key),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out))

	final, err := program.Run()
	if err != nil {
		return deleter.AnswerQuit, fmt.Errorf("prompt: %w", err)
	}
	if m, ok := final.(Model); ok {
		if ans, answered := m.Answer(); answered {
			return ans, nil
		}
	}
	return deleter.AnswerQuit, nil
}
