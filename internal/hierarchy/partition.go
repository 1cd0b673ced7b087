package hierarchy

import "canopy/internal/rules"

// Partition splits rs on t. Contains receives every rule whose premise
// clause tests t, rewritten with t removed (clause confidence and score
// carry over); Disjoint receives the rest unchanged. Each input rule
// lands in exactly one side, so recursive extraction neither drops nor
// duplicates rules. Rules with an empty premise cannot match and pass
// through to Disjoint.
//
// Partition reads only the first premise clause of each rule; Tree
// rejects multi-clause rules before partitioning starts.
func Partition(rs *rules.Ruleset, t rules.Term) (contains, disjoint *rules.Ruleset) {
	contains = rs.CloneEmpty()
	disjoint = rs.CloneEmpty()
	for _, r := range rs.Rules {
		if len(r.Premise) == 0 || !r.Premise[0].Contains(t) {
			disjoint.Rules = append(disjoint.Rules, r)
			continue
		}
		contains.Rules = append(contains.Rules, rules.Rule{
			Premise:    []rules.Clause{r.Premise[0].Without(t)},
			Conclusion: r.Conclusion,
		})
	}
	return contains, disjoint
}
