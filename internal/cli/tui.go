package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/npym/pkg/resolve"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// graphModel - Interactive dependency browser
// =============================================================================

// graphModel browses a resolved graph one requirer at a time. Enter descends
// into the selected dependency, backspace returns to the requirer.
type graphModel struct {
	g      *resolve.Graph
	trail  []resolve.NodeID // focused node last
	rows   []graphRow
	Cursor int
	Offset int
	Height int
}

type graphRow struct {
	id    resolve.NodeID
	name  string
	spec  string
	note  string
	cycle bool
}

func newGraphModel(g *resolve.Graph) graphModel {
	m := graphModel{g: g, Height: 15}
	m.focus(g.Root().ID)
	return m
}

func (m *graphModel) focus(id resolve.NodeID) {
	m.trail = append(m.trail, id)
	m.load()
}

func (m *graphModel) back() {
	if len(m.trail) > 1 {
		m.trail = m.trail[:len(m.trail)-1]
		m.load()
	}
}

func (m *graphModel) load() {
	id := m.trail[len(m.trail)-1]
	n := m.g.Node(id)
	m.rows = nil
	for _, d := range m.g.Deps(id) {
		row := graphRow{id: d.To, name: d.Name.String(), spec: d.Spec.String()}
		if d.Optional {
			row.note = "optional"
		}
		m.rows = append(m.rows, row)
	}
	for _, d := range n.Cycles {
		m.rows = append(m.rows, graphRow{id: d.To, name: d.Name.String(), spec: d.Spec.String(), note: "cycle", cycle: true})
	}
	m.Cursor, m.Offset = 0, 0
}

func (m graphModel) Init() tea.Cmd {
	return nil
}

func (m graphModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", "right", "l":
			if len(m.rows) == 0 || m.rows[m.Cursor].cycle {
				return m, nil
			}
			m.focus(m.rows[m.Cursor].id)
		case "backspace", "left", "h":
			m.back()
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m graphModel) View() string {
	var b strings.Builder

	crumbs := make([]string, len(m.trail))
	for i, id := range m.trail {
		n := m.g.Node(id)
		crumbs[i] = n.Name.String() + "@" + n.Version.String()
	}
	focused := m.trail[len(m.trail)-1]

	b.WriteString(StyleTitle.Render(strings.Join(crumbs, " › ")))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(m.g.InstallPath(focused)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  ⌫ back  q quit"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(listDimStyle.Render("  no dependencies"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.rows))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.rows[i]
		n := m.g.Node(r.id)
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		deps := strconv.Itoa(len(m.g.Deps(r.id)))
		rows = append(rows, []string{cursor, r.name, r.spec, n.Version.String(), deps, r.note})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Package", "Range", "Version", "Deps", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.rows) {
				return lipgloss.NewStyle()
			}
			switch {
			case idx == m.Cursor:
				return listSelectedStyle
			case m.rows[idx].cycle:
				return listDimStyle
			case col == 2 || col == 5:
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  %d packages total", m.Cursor+1, len(m.rows), m.g.NodeCount())))

	return b.String()
}
