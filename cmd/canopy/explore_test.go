package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"canopy/internal/hierarchy"
	"canopy/internal/rules"
)

// exploreTree builds a small tree: ruleset -> "balance > 1200" ->
// ("age > 30" -> X, Y).
func exploreTree(t *testing.T) *hierarchy.Node {
	t.Helper()
	age := rules.Term{Feature: "age", Op: rules.OpGT, Threshold: 30}
	balance := rules.Term{Feature: "balance", Op: rules.OpGT, Threshold: 1200}
	rs := &rules.Ruleset{Rules: []rules.Rule{
		{Premise: []rules.Clause{rules.NewClause([]rules.Term{age, balance}, 0, 0.9)}, Conclusion: "X"},
		{Premise: []rules.Clause{rules.NewClause([]rules.Term{balance}, 0, 0.5)}, Conclusion: "Y"},
	}}
	root, err := hierarchy.Tree(rs, hierarchy.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func TestFlattenTreeFullyExpanded(t *testing.T) {
	root := exploreTree(t)
	rows := flattenTree(root, map[*hierarchy.Node]bool{})
	if len(rows) != root.NumDescendants+1 {
		t.Fatalf("got %d rows, want %d", len(rows), root.NumDescendants+1)
	}
	if rows[0].node != root {
		t.Fatal("first row is not the root")
	}
	// Pre-order: a node always appears before its children.
	seen := map[*hierarchy.Node]int{}
	for i, row := range rows {
		seen[row.node] = i
	}
	for _, row := range rows {
		for _, c := range row.node.Children {
			if seen[c] < seen[row.node] {
				t.Fatalf("child %q listed before parent %q", c.Name, row.node.Name)
			}
		}
	}
}

func TestFlattenTreeCollapsed(t *testing.T) {
	root := exploreTree(t)
	split := root.Children[0]
	rows := flattenTree(root, map[*hierarchy.Node]bool{split: true})
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (root + collapsed split)", len(rows))
	}
	if rows[1].node != split || rows[1].expanded {
		t.Fatalf("collapsed split row: %+v", rows[1])
	}
	if rowIndex(rows, split.Children[0]) != -1 {
		t.Fatal("hidden node still has a visible row")
	}
}

// press drives the model like the terminal would.
func press(t *testing.T, m tea.Model, msg tea.Msg) exploreModel {
	t.Helper()
	next, _ := m.Update(msg)
	em, ok := next.(exploreModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return em
}

func TestExploreToggleKeepsCursorOnNode(t *testing.T) {
	root := exploreTree(t)
	m := newExploreModel("demo", root)
	m = press(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	// Move onto the split node and fold it.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	split := m.rows[m.cursor].node
	if len(split.Children) == 0 {
		t.Fatal("expected a branch node under the cursor")
	}
	before := len(m.rows)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.rows) >= before {
		t.Fatalf("fold did not hide rows: %d -> %d", before, len(m.rows))
	}
	if m.rows[m.cursor].node != split {
		t.Fatal("cursor left the folded node")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.rows) != before {
		t.Fatalf("unfold did not restore rows: want %d, got %d", before, len(m.rows))
	}
}

func TestExploreCollapseAndExpandAll(t *testing.T) {
	root := exploreTree(t)
	m := newExploreModel("demo", root)
	m = press(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	total := len(m.rows)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	// Root stays expanded; its direct children are all folded.
	if len(m.rows) != 1+len(root.Children) {
		t.Fatalf("collapse all left %d rows", len(m.rows))
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	if len(m.rows) != total {
		t.Fatalf("expand all restored %d rows, want %d", len(m.rows), total)
	}
}

func TestExploreQuit(t *testing.T) {
	m := newExploreModel("demo", exploreTree(t))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should quit")
	}
}

func TestRenderRowAnnotations(t *testing.T) {
	root := exploreTree(t)
	split := root.Children[0]
	line := renderRow(exploreRow{node: split, expanded: true})
	if !strings.Contains(line, split.Name) {
		t.Errorf("row %q missing node name", line)
	}
	if !strings.Contains(line, "X:1") || !strings.Contains(line, "Y:1") {
		t.Errorf("row %q missing class counts", line)
	}

	leaf := root.Leaves()[0]
	line = renderRow(exploreRow{node: leaf})
	if !strings.Contains(line, "score") {
		t.Errorf("leaf row %q missing score", line)
	}
}

func TestClassSummaryOrder(t *testing.T) {
	got := classSummary(map[string]int{"yes": 2, "no": 1, "maybe": 4})
	if got != "maybe:4 no:1 yes:2" {
		t.Errorf("classSummary = %q", got)
	}
}
