package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"archsmith/internal/facts"
)

// promptModel is a bubbletea model that asks one question at a time. An
// answer its question rejects keeps the prompt on that question.
type promptModel struct {
	questions []facts.Question
	idx       int
	inputs    []textinput.Model
	err       error
	done      bool
}

func newPromptModel(questions []facts.Question) promptModel {
	inputs := make([]textinput.Model, len(questions))
	for i, q := range questions {
		ti := textinput.New()
		ti.Placeholder = q.Prompt
		ti.CharLimit = 256
		inputs[i] = ti
	}
	m := promptModel{
		questions: questions,
		inputs:    inputs,
	}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if len(m.inputs) == 0 {
				m.done = true
				return m, tea.Quit
			}
			if m.err = m.validate(); m.err != nil {
				return m, nil
			}
			if m.idx < len(m.inputs)-1 {
				m.inputs[m.idx].Blur()
				m.idx++
				m.inputs[m.idx].Focus()
				return m, textinput.Blink
			}
			m.done = true
			return m, tea.Quit
		}
	}
	if len(m.inputs) == 0 {
		return m, nil
	}
	if _, ok := msg.(tea.KeyMsg); ok {
		m.err = nil
	}
	var cmd tea.Cmd
	m.inputs[m.idx], cmd = m.inputs[m.idx].Update(msg)
	return m, cmd
}

func (m promptModel) validate() error {
	q := m.questions[m.idx]
	if q.Validate == nil {
		return nil
	}
	return q.Validate(m.inputs[m.idx].Value())
}

func (m promptModel) View() string {
	if m.done || len(m.questions) == 0 {
		return ""
	}
	q := m.questions[m.idx]
	view := fmt.Sprintf("[%d/%d] %s: %s\n", m.idx+1, len(m.questions), q.Prompt, m.inputs[m.idx].View())
	if m.err != nil {
		view += fmt.Sprintf("  %v\n", m.err)
	}
	return view
}

// answers returns the entered values keyed by Question.Key.
func (m promptModel) answers() map[string]string {
	out := make(map[string]string, len(m.questions))
	for i, q := range m.questions {
		out[q.Key] = m.inputs[i].Value()
	}
	return out
}

// promptQuestions runs the TUI and returns answers keyed by Question.Key.
func promptQuestions(questions []facts.Question) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	p := tea.NewProgram(newPromptModel(questions))
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return nil, fmt.Errorf("prompt cancelled")
	}
	return final.answers(), nil
}
