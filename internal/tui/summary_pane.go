package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/traingraph/internal/graph"
	"github.com/aristath/traingraph/internal/registry"
)

// SummaryPaneModel shows counts over the whole schema.
type SummaryPaneModel struct {
	total     int
	persisted int
	byOp      map[registry.Op]int
	outputs   []string
	width     int
	height    int
	focused   bool
}

// NewSummaryPaneModel computes the summary for a schema.
func NewSummaryPaneModel(schema graph.Schema, outputs []string) SummaryPaneModel {
	m := SummaryPaneModel{
		total:   len(schema),
		byOp:    make(map[registry.Op]int),
		outputs: outputs,
	}
	for _, task := range schema {
		if task.Persists() {
			m.persisted++
		}
		m.byOp[task.Fn]++
	}
	return m
}

// Update handles messages for the summary pane.
func (m SummaryPaneModel) Update(msg tea.Msg) (SummaryPaneModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// View renders the summary pane.
func (m SummaryPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Schema")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	transient := m.total - m.persisted
	b.WriteString(fmt.Sprintf("Tasks:     %d\n", m.total))
	b.WriteString(fmt.Sprintf("Persisted: %s\n", StylePersisted.Render(fmt.Sprintf("%d", m.persisted))))
	b.WriteString(fmt.Sprintf("Transient: %s\n", StyleTransient.Render(fmt.Sprintf("%d", transient))))
	b.WriteString("\n")

	// Persisted vs transient bar
	if m.total > 0 {
		barWidth := min(m.width-4, 40)
		persistedWidth := (m.persisted * barWidth) / m.total
		bar := StylePersisted.Render(strings.Repeat("=", max(0, persistedWidth)))
		bar += StyleTransient.Render(strings.Repeat(".", max(0, barWidth-persistedWidth)))
		b.WriteString(fmt.Sprintf("[%s]\n\n", bar))
	}

	for _, op := range []registry.Op{
		registry.OpRead,
		registry.OpGenerate,
		registry.OpTrain,
		registry.OpProcessTrainingData,
		registry.OpConvertForTraining,
		registry.OpConvert,
	} {
		if n := m.byOp[op]; n > 0 {
			b.WriteString(fmt.Sprintf("%-22s %d\n", op.String()+":", n))
		}
	}

	b.WriteString("\n")
	b.WriteString(StyleLabel.Render("Outputs:"))
	b.WriteString("\n")
	for _, name := range m.outputs {
		b.WriteString(fmt.Sprintf("%s %s\n", StyleOutput.Render("★"), name))
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *SummaryPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *SummaryPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
