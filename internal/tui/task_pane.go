package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/traingraph/internal/graph"
)

const listWidth = 38

// TaskPaneModel shows the task list and the selected task's details.
type TaskPaneModel struct {
	schema      graph.Schema
	order       []string        // dependency order for display
	outputs     map[string]bool // output task names
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

// NewTaskPaneModel creates a task pane listing tasks in the given order.
func NewTaskPaneModel(schema graph.Schema, order []string, outputs []string) TaskPaneModel {
	out := make(map[string]bool, len(outputs))
	for _, name := range outputs {
		out[name] = true
	}

	m := TaskPaneModel{
		schema:   schema,
		order:    order,
		outputs:  out,
		viewport: viewport.New(0, 0),
	}
	m.updateViewportContent()
	return m
}

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			m.selectIdx(m.selectedIdx + 1)
		case KeyK, KeyUp:
			m.selectIdx(m.selectedIdx - 1)
		case KeyHome:
			m.selectIdx(0)
		case KeyEnd:
			m.selectIdx(len(m.order) - 1)
		default:
			// Delegate other keys to viewport for scrolling
			m.viewport, cmd = m.viewport.Update(msg)
		}
	}

	return m, cmd
}

func (m *TaskPaneModel) selectIdx(idx int) {
	if idx < 0 || idx >= len(m.order) || idx == m.selectedIdx {
		return
	}
	m.selectedIdx = idx
	m.updateViewportContent()
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	viewportWidth := m.width - listWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTaskList(),
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// renderTaskList renders the task list column, scrolled to keep the selection visible.
func (m TaskPaneModel) renderTaskList() string {
	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(listWidth, lipgloss.Width(title))))
	b.WriteString("\n\n")

	visible := max(1, m.height-6)
	start := 0
	if m.selectedIdx >= visible {
		start = m.selectedIdx - visible + 1
	}
	end := min(len(m.order), start+visible)

	for i := start; i < end; i++ {
		name := m.order[i]
		if len(name) > listWidth-6 {
			name = name[:listWidth-9] + "..."
		}

		line := fmt.Sprintf("%s %s", m.TaskIcon(m.order[i]), name)
		if i == m.selectedIdx {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(listWidth).
		Height(m.height - 2).
		Render(b.String())
}

// TaskIcon returns a styled marker: outputs are starred, persisted tasks
// filled and transient tasks hollow.
func (m TaskPaneModel) TaskIcon(name string) string {
	switch {
	case m.outputs[name]:
		return StyleOutput.Render("★")
	case m.schema[name].Persists():
		return StylePersisted.Render("●")
	default:
		return StyleTransient.Render("○")
	}
}

// Selected returns the name of the selected task, or "" for an empty schema.
func (m TaskPaneModel) Selected() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.order) {
		return m.order[m.selectedIdx]
	}
	return ""
}

func (m *TaskPaneModel) updateViewportContent() {
	name := m.Selected()
	if name == "" {
		m.viewport.SetContent("No tasks.")
		return
	}
	m.viewport.SetContent(RenderTaskDetail(m.schema, name, m.outputs[name]))
	m.viewport.GotoTop()
}

// RenderTaskDetail describes one task: implementation, operation, persistence,
// inputs, dependents and configuration.
func RenderTaskDetail(schema graph.Schema, name string, isOutput bool) string {
	task, ok := schema[name]
	if !ok {
		return fmt.Sprintf("Unknown task %q", name)
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render(name))
	b.WriteString("\n\n")

	uses := ""
	if task.Uses != nil {
		uses = task.Uses.Name
	}
	fmt.Fprintf(&b, "%s %s\n", StyleLabel.Render("uses:   "), uses)
	fmt.Fprintf(&b, "%s %s\n", StyleLabel.Render("fn:     "), task.Fn)
	fmt.Fprintf(&b, "%s %v\n", StyleLabel.Render("persist:"), task.Persists())
	if isOutput {
		fmt.Fprintf(&b, "%s %s\n", StyleLabel.Render("output: "), StyleOutput.Render("yes"))
	}

	b.WriteString("\n")
	b.WriteString(StyleLabel.Render("needs:"))
	b.WriteString("\n")
	if len(task.Needs) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, param := range task.Params() {
		fmt.Fprintf(&b, "  %s <- %s\n", param, task.Needs[param])
	}

	b.WriteString("\n")
	b.WriteString(StyleLabel.Render("needed by:"))
	b.WriteString("\n")
	dependents := graph.Dependents(schema, name)
	if len(dependents) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, dep := range dependents {
		fmt.Fprintf(&b, "  %s\n", dep)
	}

	b.WriteString("\n")
	b.WriteString(StyleLabel.Render("config:"))
	b.WriteString("\n")
	cfg, err := json.MarshalIndent(task.Config, "  ", "  ")
	if err != nil {
		fmt.Fprintf(&b, "  <unprintable: %v>\n", err)
	} else {
		fmt.Fprintf(&b, "  %s\n", cfg)
	}

	return b.String()
}

func (m *TaskPaneModel) resizeViewport() {
	viewportWidth := m.width - listWidth - 4
	viewportHeight := m.height - 4 // account for borders

	if viewportWidth < 10 {
		viewportWidth = 10
	}
	if viewportHeight < 5 {
		viewportHeight = 5
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
