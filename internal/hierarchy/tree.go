package hierarchy

import (
	"fmt"
	"strings"

	"canopy/internal/rules"
)

// RootName labels the synthetic root node that holds the whole ruleset
// together.
const RootName = "ruleset"

// TermFormatter renders a term for display. *rules.Dataset implements
// it; leave Options.Formatter nil to use the terms' plain string form.
type TermFormatter interface {
	FormatTerm(t rules.Term) string
}

// Options configures tree construction.
type Options struct {
	// Formatter rewrites term names, typically to restore categorical
	// labels. Nil means Term.String.
	Formatter TermFormatter

	// Merge collapses runs of single-condition nodes into one node with
	// the conditions joined by AND, trading path fidelity for a flatter
	// picture. The root never merges and a leaf never merges into its
	// parent.
	Merge bool
}

func (o Options) format(t rules.Term) string {
	if o.Formatter != nil {
		return o.Formatter.FormatTerm(t)
	}
	return t.String()
}

// Tree builds the annotated visualization tree for rs. Every rule
// becomes exactly one leaf; shared terms become shared branch nodes.
// Rules must be in single-clause form (see rules.ExpandClauses).
func Tree(rs *rules.Ruleset, opts Options) (*Node, error) {
	for i, r := range rs.Rules {
		if len(r.Premise) > 1 {
			return nil, fmt.Errorf("rule %d (%s): premise has %d clauses; expand with rules.ExpandClauses first",
				i, r.Conclusion, len(r.Premise))
		}
	}
	root := &Node{Name: RootName, Children: extract(rs, opts)}
	if root.Children == nil {
		root.Children = []*Node{}
	}
	annotate(root, 0, opts.Merge)
	return root, nil
}

// extract turns rs into a forest. With more than one rule it splits on
// the most-used term: rules containing it nest under a node for the
// term (with the term consumed), the rest stay behind as siblings.
func extract(rs *rules.Ruleset, opts Options) []*Node {
	switch len(rs.Rules) {
	case 0:
		return nil
	case 1:
		return extractSingle(rs.Rules[0], opts)
	}
	ranked := TermCounts(rs)
	if len(ranked) == 0 {
		// Every remaining rule has an empty premise: no term left to
		// split on, each rule stands as its own leaf.
		var out []*Node
		for _, r := range rs.Rules {
			out = append(out, extractSingle(r, opts)...)
		}
		return out
	}
	top := ranked[0].Term
	contains, disjoint := Partition(rs, top)
	node := &Node{
		Name:     escapeName(opts.format(top)),
		Children: extract(contains, opts),
	}
	return append([]*Node{node}, extract(disjoint, opts)...)
}

// extractSingle renders one rule as a branch: its remaining terms in
// canonical order, then the prediction leaf carrying the clause score.
func extractSingle(r rules.Rule, opts Options) []*Node {
	score := 0.0
	var terms []rules.Term
	if len(r.Premise) > 0 {
		score = r.Premise[0].Score
		terms = r.Premise[0].SortedTerms()
	}
	leaf := &Node{
		Name:     escapeName(r.Conclusion),
		Children: []*Node{},
		Score:    &score,
	}
	if len(terms) == 0 {
		return []*Node{leaf}
	}
	if opts.Merge {
		parts := make([]string, len(terms))
		for i, t := range terms {
			parts[i] = opts.format(t)
		}
		return []*Node{{
			Name:     escapeName(strings.Join(parts, " AND ")),
			Children: []*Node{leaf},
		}}
	}
	top := &Node{Name: escapeName(opts.format(terms[0]))}
	tail := top
	for _, t := range terms[1:] {
		next := &Node{Name: escapeName(opts.format(t))}
		tail.Children = []*Node{next}
		tail = next
	}
	tail.Children = []*Node{leaf}
	return []*Node{top}
}

// annotate fills Depth, NumDescendants and ClassCounts bottom-up and,
// in merge mode, folds single-child condition runs together. A node
// with no children is terminal: zero descendants, its own name as the
// class tally.
func annotate(n *Node, depth int, merge bool) {
	n.Depth = depth
	if len(n.Children) == 0 {
		n.NumDescendants = 0
		n.ClassCounts = map[string]int{n.Name: 1}
		return
	}
	if merge && depth != 0 && len(n.Children) == 1 && len(n.Children[0].Children) != 0 {
		child := n.Children[0]
		n.Name = n.Name + " AND " + child.Name
		n.Children = child.Children
	}
	n.NumDescendants = 0
	n.ClassCounts = make(map[string]int)
	for _, c := range n.Children {
		annotate(c, depth+1, merge)
		n.NumDescendants += c.NumDescendants + 1
		for class, count := range c.ClassCounts {
			n.ClassCounts[class] += count
		}
	}
}
