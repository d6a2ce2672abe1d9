package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// Placeholders for operations that take an argument.
var opArgs = map[string]string{
	"resize": "WxH",
	"paint":  "#rrggbb",
	"png":    "out.png",
}

type interactiveModel struct {
	sess     *session
	engine   string
	input    textinput.Model
	history  []string
	selected int
	state    modelState
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArg
)

type opResultMsg struct {
	err    error
	op     string
	result string
}

func newInteractiveModel(sess *session, engineKind string) *interactiveModel {
	return &interactiveModel{
		sess:   sess,
		engine: engineKind,
		state:  stateSelectOp,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state == stateSelectOp {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(operations)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				op := operations[m.selected]
				placeholder, ok := opArgs[op]
				if !ok {
					return m, m.runOp(op)
				}
				m.input = textinput.New()
				m.input.Placeholder = placeholder
				m.input.Prompt = op + "="
				m.input.Width = 30
				m.input.Focus()
				m.state = stateInputArg
				return m, nil

			case stateInputArg:
				op := operations[m.selected] + "=" + m.input.Value()
				m.state = stateSelectOp
				return m, m.runOp(op)
			}

		case "esc":
			if m.state == stateInputArg {
				m.state = stateSelectOp
				return m, nil
			}
		}

	case opResultMsg:
		line := fmt.Sprintf("%s: %s", msg.op, msg.result)
		if msg.err != nil {
			line = errorStyle.Render(fmt.Sprintf("%s: %v", msg.op, msg.err))
		} else {
			line = resultStyle.Render(line)
		}
		m.history = append(m.history, line)
		if len(m.history) > 10 {
			m.history = m.history[len(m.history)-10:]
		}
	}

	if m.state == stateInputArg {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) runOp(op string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.sess.apply(context.Background(), op)
		return opResultMsg{op: op, result: result, err: err}
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	d := m.sess.surf.Descriptor()
	b.WriteString(titleStyle.Render("PAG Surface"))
	b.WriteString(fmt.Sprintf(" %s %s %s (handle %d)\n\n", m.engine, d.Kind, d.Key(), m.sess.surf.Handle()))

	switch m.state {
	case stateSelectOp:
		for i, op := range operations {
			label := op
			if p, ok := opArgs[op]; ok {
				label += "=" + p
			}
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + label))
			} else {
				b.WriteString("  " + opStyle.Render(label))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateInputArg:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter run • esc back"))
	}

	if len(m.history) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(m.history, "\n"))
	}
	return b.String()
}

func runInteractive(sess *session, engineKind string) error {
	p := tea.NewProgram(newInteractiveModel(sess, engineKind), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
