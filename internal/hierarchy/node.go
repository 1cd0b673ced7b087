// Package hierarchy converts a flat ruleset into an annotated n-ary
// tree. Rules sharing their most-used term are grouped under a node for
// that term and the grouping recurses, so branches read as accumulated
// conditions and leaves as predicted classes. The JSON form of the tree
// is what the bundled D3 viewer, the API and the MCP tools all serve.
package hierarchy

import "strings"

// Node is one node of the visualization tree. Field names in the JSON
// form are a contract with the D3 front end; do not rename them.
type Node struct {
	Name     string  `json:"name"`
	Children []*Node `json:"children"`

	// Score is set on leaves only: the score of the clause that
	// produced the leaf, 0 for rules with an empty premise.
	Score *float64 `json:"score,omitempty"`

	// Annotations filled in by a post-order pass after extraction.
	Depth          int            `json:"depth"`
	NumDescendants int            `json:"num_descendants"`
	ClassCounts    map[string]int `json:"class_counts"`
}

// Leaf reports whether n is a prediction leaf: no children and a clause
// score attached.
func (n *Node) Leaf() bool {
	return len(n.Children) == 0 && n.Score != nil
}

// Leaves returns every prediction leaf under n in visit order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.Walk(func(m *Node) {
		if m.Leaf() {
			out = append(out, m)
		}
	})
	return out
}

// Walk visits n and every descendant in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// displayEscaper rewrites comparison operators that would collide with
// markup in the viewer page. Order matters: "<=" must not be seen as a
// bare "<" plus "=".
var displayEscaper = strings.NewReplacer("<=", "&leq;", ">=", "&geq;")

func escapeName(s string) string {
	return displayEscaper.Replace(s)
}
