// Package rules defines the rule-classifier model consumed by the rest
// of canopy: terms, conjunctive clauses, rules and rulesets. A ruleset
// is a trained classifier expressed as a flat list of IF-THEN rules;
// the hierarchy package reshapes it into a tree for visualization.
package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Operator is a comparison applied to a feature value.
type Operator string

const (
	OpGT Operator = ">"
	OpGE Operator = ">="
	OpLT Operator = "<"
	OpLE Operator = "<="
	OpEQ Operator = "="
	OpNE Operator = "!="
)

// Valid reports whether op is one of the supported comparisons.
func (op Operator) Valid() bool {
	switch op {
	case OpGT, OpGE, OpLT, OpLE, OpEQ, OpNE:
		return true
	}
	return false
}

// Term is a single threshold test on a named feature, e.g. "age > 30".
// Terms are value types and compare with ==.
type Term struct {
	Feature   string   `yaml:"feature" json:"feature"`
	Op        Operator `yaml:"op" json:"op"`
	Threshold float64  `yaml:"threshold" json:"threshold"`
}

func (t Term) String() string {
	return t.Feature + " " + string(t.Op) + " " + strconv.FormatFloat(t.Threshold, 'g', -1, 64)
}

// Less orders terms by feature, then operator, then threshold. Every
// ordering of terms in canopy goes through Less so that output is
// reproducible across runs.
func (t Term) Less(o Term) bool {
	if t.Feature != o.Feature {
		return t.Feature < o.Feature
	}
	if t.Op != o.Op {
		return t.Op < o.Op
	}
	return t.Threshold < o.Threshold
}

// SortTerms sorts ts in place into canonical order.
func SortTerms(ts []Term) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Less(ts[j]) })
}

// Clause is a conjunction of terms: every term must hold for the clause
// to fire. Confidence and score come from training and ride along
// untouched; the score becomes the leaf score in the hierarchy tree.
type Clause struct {
	Terms      []Term  `yaml:"terms" json:"terms"`
	Confidence float64 `yaml:"confidence,omitempty" json:"confidence,omitempty"`
	Score      float64 `yaml:"score,omitempty" json:"score,omitempty"`
}

// NewClause builds a clause from terms, dropping duplicates while
// keeping the first occurrence of each.
func NewClause(terms []Term, confidence, score float64) Clause {
	c := Clause{Confidence: confidence, Score: score}
	seen := make(map[Term]struct{}, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		c.Terms = append(c.Terms, t)
	}
	return c
}

// Contains reports whether the clause tests t.
func (c Clause) Contains(t Term) bool {
	for _, have := range c.Terms {
		if have == t {
			return true
		}
	}
	return false
}

// Without returns a copy of the clause with t removed. Confidence and
// score carry over unchanged.
func (c Clause) Without(t Term) Clause {
	out := Clause{Confidence: c.Confidence, Score: c.Score}
	for _, have := range c.Terms {
		if have != t {
			out.Terms = append(out.Terms, have)
		}
	}
	return out
}

// SortedTerms returns the clause's terms in canonical order without
// touching the clause itself.
func (c Clause) SortedTerms() []Term {
	out := append([]Term(nil), c.Terms...)
	SortTerms(out)
	return out
}

// Rule pairs a premise with the class it predicts. The premise is a
// disjunction: the rule fires when any one of its clauses holds.
type Rule struct {
	Premise    []Clause `yaml:"premise" json:"premise"`
	Conclusion string   `yaml:"conclusion" json:"conclusion"`
}

// Ruleset is a trained rule-based classifier plus the metadata needed
// to interpret it. Rules keep their insertion order; nothing in canopy
// reorders them.
type Ruleset struct {
	Name         string   `yaml:"name,omitempty" json:"name,omitempty"`
	FeatureNames []string `yaml:"features,omitempty" json:"features,omitempty"`
	ClassNames   []string `yaml:"classes,omitempty" json:"classes,omitempty"`
	Regression   bool     `yaml:"regression,omitempty" json:"regression,omitempty"`
	Rules        []Rule   `yaml:"rules" json:"rules"`
}

// CloneEmpty returns a ruleset with the same metadata and no rules.
// The hierarchy partitioner uses it so that sub-rulesets keep feature
// and class context.
func (rs *Ruleset) CloneEmpty() *Ruleset {
	return &Ruleset{
		Name:         rs.Name,
		FeatureNames: append([]string(nil), rs.FeatureNames...),
		ClassNames:   append([]string(nil), rs.ClassNames...),
		Regression:   rs.Regression,
	}
}

// ExpandClauses rewrites rs so that every rule carries exactly one
// premise clause: a rule with n clauses becomes n consecutive
// single-clause rules with the same conclusion. Rules already in that
// form pass through unchanged. The hierarchy builder requires the
// expanded form.
func ExpandClauses(rs *Ruleset) *Ruleset {
	out := rs.CloneEmpty()
	for _, r := range rs.Rules {
		if len(r.Premise) <= 1 {
			out.Rules = append(out.Rules, r)
			continue
		}
		for _, c := range r.Premise {
			out.Rules = append(out.Rules, Rule{Premise: []Clause{c}, Conclusion: r.Conclusion})
		}
	}
	return out
}

// Validate checks structural soundness: at least one rule, valid
// operators, non-empty feature and conclusion names, and conclusions
// drawn from ClassNames when the ruleset declares them (classification
// only; regression conclusions are free-form values). Errors name the
// offending rule so users can fix the source document.
func (rs *Ruleset) Validate() error {
	if len(rs.Rules) == 0 {
		return fmt.Errorf("ruleset %q has no rules", rs.Name)
	}
	classes := make(map[string]struct{}, len(rs.ClassNames))
	for _, c := range rs.ClassNames {
		classes[c] = struct{}{}
	}
	features := make(map[string]struct{}, len(rs.FeatureNames))
	for _, f := range rs.FeatureNames {
		features[f] = struct{}{}
	}
	for i, r := range rs.Rules {
		if strings.TrimSpace(r.Conclusion) == "" {
			return fmt.Errorf("rule %d: empty conclusion", i)
		}
		if !rs.Regression && len(classes) > 0 {
			if _, ok := classes[r.Conclusion]; !ok {
				return fmt.Errorf("rule %d: conclusion %q not in declared classes", i, r.Conclusion)
			}
		}
		for j, c := range r.Premise {
			for _, t := range c.Terms {
				if strings.TrimSpace(t.Feature) == "" {
					return fmt.Errorf("rule %d clause %d: term with empty feature", i, j)
				}
				if !t.Op.Valid() {
					return fmt.Errorf("rule %d clause %d: unsupported operator %q", i, j, t.Op)
				}
				if len(features) > 0 {
					if _, ok := features[t.Feature]; !ok {
						return fmt.Errorf("rule %d clause %d: feature %q not in declared features", i, j, t.Feature)
					}
				}
			}
		}
	}
	return nil
}

// Normalize dedupes the terms of every clause in place, keeping first
// occurrences. Decoded documents pass through here so downstream code
// can rely on term uniqueness within a clause.
func (rs *Ruleset) Normalize() {
	for i := range rs.Rules {
		for j := range rs.Rules[i].Premise {
			c := rs.Rules[i].Premise[j]
			rs.Rules[i].Premise[j] = NewClause(c.Terms, c.Confidence, c.Score)
		}
	}
}
