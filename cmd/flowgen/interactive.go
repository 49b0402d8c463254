package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"

	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/driver"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateShowListing
)

type interactiveModel struct {
	err      error
	opts     driver.Options
	fns      []*ast.Function
	results  []*driver.Result
	view     viewport.Model
	selected int
	width    int
	height   int
	state    modelState
}

type generatedMsg struct {
	err     error
	results []*driver.Result
}

func newInteractiveModel(fns []*ast.Function, opts driver.Options) *interactiveModel {
	return &interactiveModel{
		fns:   fns,
		opts:  opts,
		view:  viewport.New(80, 20),
		state: stateSelectFunc,
	}
}

func runInteractive(fns []*ast.Function, opts driver.Options) error {
	p := tea.NewProgram(newInteractiveModel(fns, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.generate
}

// generate runs the whole batch once. Per-function failures stay in the
// results and are also combined into err.
func (m *interactiveModel) generate() tea.Msg {
	var results []*driver.Result
	emit := driver.EmitterFunc(func(res *driver.Result) error {
		results = append(results, res)
		return nil
	})
	err := driver.GenerateAll(context.Background(), m.fns, m.opts, emit)
	return generatedMsg{err: err, results: results}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-4, 1)

	case generatedMsg:
		m.err = msg.err
		m.results = msg.results

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
				return m, nil
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.results)-1 {
				m.selected++
				return m, nil
			}

		case "enter":
			if m.state == stateSelectFunc && len(m.results) > 0 {
				m.view.SetContent(renderBody(m.results[m.selected], colorPalette))
				m.view.GotoTop()
				m.state = stateShowListing
				return m, nil
			}

		case "esc":
			if m.state == stateShowListing {
				m.state = stateSelectFunc
				return m, nil
			}
		}
	}

	if m.state == stateShowListing {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	if m.err != nil && len(m.results) == 0 {
		return failedStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.results == nil {
		return "Generating..."
	}

	var b strings.Builder
	switch m.state {
	case stateSelectFunc:
		b.WriteString(colorPalette.title.Render("flowgen"))
		b.WriteString(fmt.Sprintf(" %d functions", len(m.results)))
		if m.err != nil {
			b.WriteString(failedStyle.Render(fmt.Sprintf(", %d failed", len(multierr.Errors(m.err)))))
		}
		b.WriteString("\n\n")
		for i, res := range m.results {
			line := header(res, m.fns[i].Name)
			switch {
			case i == m.selected:
				b.WriteString(selectedStyle.Render("> " + line))
			case res.Err != nil:
				b.WriteString(failedStyle.Render("  " + line))
			default:
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter show listing • q quit"))

	case stateShowListing:
		res := m.results[m.selected]
		b.WriteString(colorPalette.title.Render(header(res, m.fns[m.selected].Name)))
		b.WriteString("\n\n")
		b.WriteString(m.view.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(fmt.Sprintf("%3.f%% • ↑/↓ scroll • esc back • q quit", m.view.ScrollPercent()*100)))
	}
	return b.String()
}
