package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/traingraph/internal/graph"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTasks PaneID = iota
	PaneSummary
)

const paneCount = 2

// Model is the root Bubble Tea model for browsing a compiled schema.
type Model struct {
	title       string
	taskPane    TaskPaneModel
	summaryPane SummaryPaneModel
	focusedPane PaneID
	width       int
	height      int
	quitting    bool
}

// New creates a viewer for schema. Tasks are listed in dependency order,
// so the schema must validate.
func New(title string, schema graph.Schema, outputs []string) (Model, error) {
	order, err := graph.Validate(schema)
	if err != nil {
		return Model{}, fmt.Errorf("view schema: %w", err)
	}

	m := Model{
		title:       title,
		taskPane:    NewTaskPaneModel(schema, order, outputs),
		summaryPane: NewSummaryPaneModel(schema, outputs),
		focusedPane: PaneTasks,
	}
	m.updateFocusStates()
	return m, nil
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % paneCount
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + paneCount - 1) % paneCount
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneTasks
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneSummary
			m.updateFocusStates()

		default:
			// Delegate to focused pane
			switch m.focusedPane {
			case PaneTasks:
				var cmd tea.Cmd
				m.taskPane, cmd = m.taskPane.Update(msg)
				cmds = append(cmds, cmd)
			case PaneSummary:
				var cmd tea.Cmd
				m.summaryPane, cmd = m.summaryPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	header := StyleTitle.Render(m.title)
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, m.taskPane.View(), m.summaryPane.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, mainContent, HelpView())
}

// Focused returns the focused pane.
func (m Model) Focused() PaneID {
	return m.focusedPane
}

// SelectedTask returns the task highlighted in the task pane.
func (m Model) SelectedTask() string {
	return m.taskPane.Selected()
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 70) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 2 // header and help bar

	m.taskPane.SetSize(leftWidth, availableHeight)
	m.summaryPane.SetSize(rightWidth, availableHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.taskPane.SetFocused(m.focusedPane == PaneTasks)
	m.summaryPane.SetFocused(m.focusedPane == PaneSummary)
}
