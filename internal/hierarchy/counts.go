package hierarchy

import (
	"sort"

	"canopy/internal/rules"
)

// TermCount pairs a term with the number of rules that test it.
type TermCount struct {
	Term  rules.Term `json:"term"`
	Rules int        `json:"rules"`
}

// TermCounts returns the distinct terms of rs ordered by how many rules
// use them, most used first. A term counts once per rule no matter how
// often the rule's premise mentions it. Ties break on the canonical
// term order so the ranking, and with it the whole tree shape, is
// stable across runs.
func TermCounts(rs *rules.Ruleset) []TermCount {
	counts := make(map[rules.Term]int)
	var order []rules.Term
	for _, r := range rs.Rules {
		seen := make(map[rules.Term]struct{})
		for _, c := range r.Premise {
			for _, t := range c.Terms {
				if _, ok := seen[t]; ok {
					continue
				}
				seen[t] = struct{}{}
				if counts[t] == 0 {
					order = append(order, t)
				}
				counts[t]++
			}
		}
	}
	sort.Slice(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return order[i].Less(order[j])
	})
	out := make([]TermCount, len(order))
	for i, t := range order {
		out[i] = TermCount{Term: t, Rules: counts[t]}
	}
	return out
}
