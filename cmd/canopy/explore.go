package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"canopy/internal/hierarchy"
)

// ExploreCmd opens the hierarchy tree in an interactive terminal browser:
// the same tree the viewer page shows, without leaving the shell.
type ExploreCmd struct {
	Ruleset string `arg:"" help:"Catalog name or YAML file."`
	Merge   bool   `help:"Collapse single-child condition runs into AND nodes."`
	Dataset string `type:"existingfile" help:"Dataset YAML used to label categorical terms."`
	DB      string `name:"db" help:"Catalog database path override."`
}

func (cmd *ExploreCmd) Run(cfg *Config) error {
	rs, name, err := resolveRuleset(cfg, cmd.DB, cmd.Ruleset)
	if err != nil {
		return err
	}
	opts, err := treeOptions(cmd.Dataset, cmd.Merge || cfg.Tree.Merge)
	if err != nil {
		return err
	}
	root, err := hierarchy.Tree(rs, opts)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newExploreModel(name, root), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// Styles
var (
	exTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7aa2f7"))

	exCursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#414868")).
			Foreground(lipgloss.Color("#c0caf5"))

	exLeafStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a"))

	exMetaStyle = lipgloss.NewStyle().
			Faint(true)

	exHelpStyle = lipgloss.NewStyle().
			Faint(true)
)

// exploreRow is one visible line of the tree.
type exploreRow struct {
	node     *hierarchy.Node
	expanded bool
}

// exploreModel is the Bubble Tea model for the tree browser.
type exploreModel struct {
	title     string
	root      *hierarchy.Node
	collapsed map[*hierarchy.Node]bool
	rows      []exploreRow
	cursor    int
	viewport  viewport.Model
	ready     bool
	width     int
	height    int
}

func newExploreModel(title string, root *hierarchy.Node) exploreModel {
	m := exploreModel{
		title:     title,
		root:      root,
		collapsed: make(map[*hierarchy.Node]bool),
	}
	m.rows = flattenTree(root, m.collapsed)
	return m
}

// flattenTree lists the visible nodes in display order, skipping the
// children of collapsed nodes.
func flattenTree(root *hierarchy.Node, collapsed map[*hierarchy.Node]bool) []exploreRow {
	var rows []exploreRow
	var walk func(n *hierarchy.Node)
	walk = func(n *hierarchy.Node) {
		rows = append(rows, exploreRow{node: n, expanded: len(n.Children) > 0 && !collapsed[n]})
		if collapsed[n] {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return rows
}

// rowIndex finds the visible row of a node, -1 when it is hidden.
func rowIndex(rows []exploreRow, n *hierarchy.Node) int {
	for i, row := range rows {
		if row.node == n {
			return i
		}
	}
	return -1
}

func (m exploreModel) Init() tea.Cmd {
	return nil
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2 // title + divider
		footerHeight := 1 // help line
		viewportHeight := m.height - headerHeight - footerHeight
		if viewportHeight < 1 {
			viewportHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = viewportHeight
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "g":
			m.cursor = 0
		case "G":
			m.cursor = len(m.rows) - 1
		case "left", "h":
			m.setCollapsed(m.current(), true)
		case "right", "l":
			m.setCollapsed(m.current(), false)
		case "enter", " ":
			n := m.current()
			m.setCollapsed(n, !m.collapsed[n])
		case "c":
			m.root.Walk(func(n *hierarchy.Node) {
				if n != m.root && len(n.Children) > 0 {
					m.collapsed[n] = true
				}
			})
			m.rebuild(m.current())
		case "e":
			m.collapsed = make(map[*hierarchy.Node]bool)
			m.rebuild(m.current())
		}
		m.refresh()
		return m, nil
	}
	return m, nil
}

func (m *exploreModel) current() *hierarchy.Node {
	if len(m.rows) == 0 {
		return m.root
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	return m.rows[m.cursor].node
}

// setCollapsed folds or unfolds a branch node. Leaves have nothing to
// fold and stay put.
func (m *exploreModel) setCollapsed(n *hierarchy.Node, collapsed bool) {
	if len(n.Children) == 0 {
		return
	}
	if collapsed {
		m.collapsed[n] = true
	} else {
		delete(m.collapsed, n)
	}
	m.rebuild(n)
}

// rebuild recomputes the visible rows and keeps the cursor on the given
// node when it is still visible.
func (m *exploreModel) rebuild(keep *hierarchy.Node) {
	m.rows = flattenTree(m.root, m.collapsed)
	if i := rowIndex(m.rows, keep); i >= 0 {
		m.cursor = i
	} else if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
}

// refresh re-renders the viewport content and keeps the cursor line in
// view.
func (m *exploreModel) refresh() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for i, row := range m.rows {
		line := renderRow(row)
		if i == m.cursor {
			line = exCursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	m.viewport.SetContent(b.String())

	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if m.cursor >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

// renderRow draws one tree line: indent by depth, a fold marker, the
// node name and its annotations.
func renderRow(row exploreRow) string {
	n := row.node
	indent := strings.Repeat("  ", n.Depth)
	marker := "· "
	if len(n.Children) > 0 {
		if row.expanded {
			marker = "▾ "
		} else {
			marker = "▸ "
		}
	}
	if n.Leaf() {
		meta := fmt.Sprintf("score %.3g", *n.Score)
		return indent + marker + exLeafStyle.Render(n.Name) + "  " + exMetaStyle.Render(meta)
	}
	meta := fmt.Sprintf("%s · %d nodes", classSummary(n.ClassCounts), n.NumDescendants)
	return indent + marker + n.Name + "  " + exMetaStyle.Render(meta)
}

// classSummary renders class counts as "class:n" pairs in alphabetical
// order so the line is stable frame to frame.
func classSummary(counts map[string]int) string {
	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	parts := make([]string, len(classes))
	for i, class := range classes {
		parts[i] = fmt.Sprintf("%s:%d", class, counts[class])
	}
	return strings.Join(parts, " ")
}

func (m exploreModel) View() string {
	if !m.ready {
		return "loading..."
	}
	header := exTitleStyle.Render("canopy") + " " + m.title + "  " +
		exMetaStyle.Render(fmt.Sprintf("%d rules · %d nodes", len(m.root.Leaves()), m.root.NumDescendants+1))
	divider := exMetaStyle.Render(strings.Repeat("─", m.width))
	footer := exHelpStyle.Render("↑/↓ move · enter fold/unfold · e expand all · c collapse all · q quit")
	return header + "\n" + divider + "\n" + m.viewport.View() + "\n" + footer
}
