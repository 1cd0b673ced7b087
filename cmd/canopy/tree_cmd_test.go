package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"canopy/internal/hierarchy"
	"canopy/internal/rules"
)

func TestRenderTermTable(t *testing.T) {
	counts := []hierarchy.TermCount{
		{Term: rules.Term{Feature: "balance", Op: rules.OpGT, Threshold: 1200}, Rules: 4},
		{Term: rules.Term{Feature: "age", Op: rules.OpGT, Threshold: 30}, Rules: 2},
	}
	out := renderTermTable(counts, nil, 60)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "balance > 1200") || !strings.Contains(lines[0], "4") {
		t.Errorf("top line %q", lines[0])
	}
	top := strings.Count(lines[0], "█")
	second := strings.Count(lines[1], "█")
	if top == 0 || second == 0 {
		t.Fatalf("bars missing: %d/%d", top, second)
	}
	// Half the usage draws half the bar.
	if second != top/2 {
		t.Errorf("bar lengths %d and %d are not proportional", top, second)
	}
}

func TestRenderTermTableUsesFormatter(t *testing.T) {
	d := &rules.Dataset{Features: []rules.FeatureMeta{
		{Name: "job", Values: []string{"admin", "student"}},
	}}
	counts := []hierarchy.TermCount{
		{Term: rules.Term{Feature: "job", Op: rules.OpLE, Threshold: 0.5}, Rules: 1},
	}
	out := renderTermTable(counts, d, 60)
	if !strings.Contains(out, "job = admin") {
		t.Errorf("formatter not applied: %q", out)
	}
}

func TestRulesetName(t *testing.T) {
	named := &rules.Ruleset{Name: "custom"}
	if got := rulesetName("/data/bank.yaml", named); got != "custom" {
		t.Errorf("document name should win, got %q", got)
	}
	anon := &rules.Ruleset{}
	if got := rulesetName("/data/bank.yaml", anon); got != "bank" {
		t.Errorf("file base name fallback, got %q", got)
	}
}

func TestRenderRule(t *testing.T) {
	age := rules.Term{Feature: "age", Op: rules.OpGT, Threshold: 30}
	bal := rules.Term{Feature: "balance", Op: rules.OpLE, Threshold: 1200}

	r := rules.Rule{
		Premise:    []rules.Clause{rules.NewClause([]rules.Term{age, bal}, 0, 0.9)},
		Conclusion: "yes",
	}
	got := renderRule(r)
	want := "IF age > 30 AND balance <= 1200 [0.90] THEN yes"
	if got != want {
		t.Errorf("renderRule = %q, want %q", got, want)
	}

	empty := rules.Rule{Conclusion: "no"}
	if got := renderRule(empty); got != "IF true THEN no" {
		t.Errorf("empty premise = %q", got)
	}

	multi := rules.Rule{
		Premise: []rules.Clause{
			rules.NewClause([]rules.Term{age}, 0, 0),
			rules.NewClause([]rules.Term{bal}, 0, 0),
		},
		Conclusion: "yes",
	}
	if got := renderRule(multi); got != "IF age > 30 OR balance <= 1200 THEN yes" {
		t.Errorf("multi clause = %q", got)
	}
}

const resolveDoc = `name: bank-marketing
classes: [yes, no]
rules:
  - conclusion: yes
    premise:
      - terms:
          - {feature: age, op: ">", threshold: 30}
        score: 0.9
`

func TestResolveRulesetFromFile(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.Catalog.Path = filepath.Join(dir, "catalog.db")

	path := filepath.Join(dir, "bank.yaml")
	if err := os.WriteFile(path, []byte(resolveDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	rs, label, err := resolveRuleset(cfg, "", path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Rules) != 1 {
		t.Fatalf("rules: %d", len(rs.Rules))
	}
	if label != "bank-marketing" {
		t.Errorf("label = %q", label)
	}

	if _, _, err := resolveRuleset(cfg, "", "no-such-thing"); err == nil {
		t.Fatal("unresolvable reference accepted")
	}
}

func TestResolveRulesetFromCatalog(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.Catalog.Path = filepath.Join(dir, "catalog.db")

	path := filepath.Join(dir, "bank.yaml")
	if err := os.WriteFile(path, []byte(resolveDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	imp := &ImportCmd{Files: []string{path}}
	if err := imp.Run(cfg); err != nil {
		t.Fatal(err)
	}

	rs, label, err := resolveRuleset(cfg, "", "bank-marketing")
	if err != nil {
		t.Fatal(err)
	}
	if label != "bank-marketing" || len(rs.Rules) != 1 {
		t.Fatalf("label %q, rules %d", label, len(rs.Rules))
	}
}

func TestTreeOptionsLoadsDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.yaml")
	doc := `features:
  - name: job
    values: [admin, student]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	opts, err := treeOptions(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Merge || opts.Formatter == nil {
		t.Fatalf("opts: %+v", opts)
	}
	got := opts.Formatter.FormatTerm(rules.Term{Feature: "job", Op: rules.OpLE, Threshold: 0.5})
	if got != "job = admin" {
		t.Errorf("FormatTerm = %q", got)
	}

	if _, err := treeOptions(filepath.Join(dir, "missing.yaml"), false); err == nil {
		t.Fatal("missing dataset accepted")
	}
}
