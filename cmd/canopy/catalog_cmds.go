package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"canopy/internal/catalog"
	"canopy/internal/rules"
)

const importConcurrency = 4

// ImportCmd decodes one or more ruleset documents and stores them in the
// catalog.
type ImportCmd struct {
	Files []string `arg:"" type:"existingfile" help:"Ruleset YAML documents."`
	Name  string   `help:"Catalog name (single file only; default: document name or file base name)."`
	Force bool     `help:"Replace an existing ruleset with the same name."`
	DB    string   `name:"db" help:"Catalog database path override."`
}

// Run decodes the files in parallel, then saves them in argument order so
// reruns behave the same way.
func (cmd *ImportCmd) Run(cfg *Config) error {
	if cmd.Name != "" && len(cmd.Files) > 1 {
		return fmt.Errorf("--name applies to a single file, got %d", len(cmd.Files))
	}

	type doc struct {
		name   string
		source string
		rs     *rules.Ruleset
	}
	docs := make([]doc, len(cmd.Files))

	var g errgroup.Group
	g.SetLimit(importConcurrency)
	for i, file := range cmd.Files {
		g.Go(func() error {
			rs, err := rules.LoadRuleset(file)
			if err != nil {
				return err
			}
			name := cmd.Name
			if name == "" {
				name = rulesetName(file, rs)
			}
			docs[i] = doc{name: name, source: file, rs: rs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	store, err := openCatalog(cfg, cmd.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, d := range docs {
		if err := store.Save(d.name, d.source, d.rs, cmd.Force); err != nil {
			if errors.Is(err, catalog.ErrExists) {
				return fmt.Errorf("%w (use --force to replace)", err)
			}
			return err
		}
		fmt.Printf("imported %s: %d rules, %d classes\n", d.name, len(d.rs.Rules), len(d.rs.ClassNames))
	}
	return nil
}

// rulesetName picks the catalog name for an imported file: the document's
// own name when it has one, the file base name otherwise.
func rulesetName(file string, rs *rules.Ruleset) string {
	if rs.Name != "" {
		return rs.Name
	}
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ListCmd prints the catalog contents.
type ListCmd struct {
	DB string `name:"db" help:"Catalog database path override."`
}

func (cmd *ListCmd) Run(cfg *Config) error {
	store, err := openCatalog(cfg, cmd.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("catalog is empty; run `canopy import <file.yaml>` first")
		return nil
	}
	for _, e := range entries {
		kind := "classification"
		if e.Regression {
			kind = "regression"
		}
		fmt.Printf("%-24s %5d rules  %-14s %-10s %s\n",
			e.Name, e.RuleCount, kind, day(e.CreatedAt), strings.Join(e.ClassNames, ", "))
	}
	return nil
}

// day trims an RFC3339 timestamp to its date part.
func day(ts string) string {
	if len(ts) < 10 {
		return ts
	}
	return ts[:10]
}

// ShowCmd prints one ruleset's metadata and its rules in readable form.
type ShowCmd struct {
	Ruleset string `arg:"" help:"Catalog name."`
	DB      string `name:"db" help:"Catalog database path override."`
}

func (cmd *ShowCmd) Run(cfg *Config) error {
	store, err := openCatalog(cfg, cmd.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Entry(cmd.Ruleset)
	if err != nil {
		return err
	}
	rs, err := store.Ruleset(cmd.Ruleset)
	if err != nil {
		return err
	}

	fmt.Printf("name:     %s\n", e.Name)
	fmt.Printf("source:   %s\n", e.Source)
	fmt.Printf("imported: %s\n", e.CreatedAt)
	if e.Regression {
		fmt.Printf("kind:     regression\n")
	} else {
		fmt.Printf("kind:     classification (%s)\n", strings.Join(e.ClassNames, ", "))
	}
	fmt.Printf("rules:    %d\n\n", e.RuleCount)
	for i, r := range rs.Rules {
		fmt.Printf("%3d. %s\n", i+1, renderRule(r))
	}
	return nil
}

// renderRule formats a rule the way it reads: IF premise THEN conclusion.
// Terms stay in authored order; clause scores follow each clause.
func renderRule(r rules.Rule) string {
	if len(r.Premise) == 0 {
		return "IF true THEN " + r.Conclusion
	}
	clauses := make([]string, len(r.Premise))
	for i, c := range r.Premise {
		if len(c.Terms) == 0 {
			clauses[i] = "true"
		} else {
			parts := make([]string, len(c.Terms))
			for j, t := range c.Terms {
				parts[j] = t.String()
			}
			clauses[i] = strings.Join(parts, " AND ")
		}
		if c.Score != 0 {
			clauses[i] += fmt.Sprintf(" [%.2f]", c.Score)
		}
	}
	return "IF " + strings.Join(clauses, " OR ") + " THEN " + r.Conclusion
}

// DeleteCmd removes a ruleset from the catalog.
type DeleteCmd struct {
	Ruleset string `arg:"" help:"Catalog name."`
	DB      string `name:"db" help:"Catalog database path override."`
}

func (cmd *DeleteCmd) Run(cfg *Config) error {
	store, err := openCatalog(cfg, cmd.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Ruleset); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", cmd.Ruleset)
	return nil
}

// HistoryCmd prints the catalog audit trail, newest first.
type HistoryCmd struct {
	Limit int    `default:"20" help:"Number of events to show."`
	DB    string `name:"db" help:"Catalog database path override."`
}

func (cmd *HistoryCmd) Run(cfg *Config) error {
	store, err := openCatalog(cfg, cmd.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.History(cmd.Limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("no catalog activity yet")
		return nil
	}
	for _, e := range events {
		fmt.Printf("%s  %-8s %-24s %s\n", e.CreatedAt, e.Op, e.Ruleset, e.Detail)
	}
	return nil
}

// resolveRuleset loads ref as a catalog name first and falls back to
// reading it as a YAML file path. The returned label names the ruleset
// in command output.
func resolveRuleset(cfg *Config, db, ref string) (*rules.Ruleset, string, error) {
	store, err := openCatalog(cfg, db)
	if err == nil {
		defer store.Close()
		rs, err := store.Ruleset(ref)
		if err == nil {
			return rs, ref, nil
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return nil, "", err
		}
	}
	if _, statErr := os.Stat(ref); statErr == nil {
		rs, err := rules.LoadRuleset(ref)
		if err != nil {
			return nil, "", err
		}
		return rs, rulesetName(ref, rs), nil
	}
	return nil, "", fmt.Errorf("ruleset %q: not in catalog and no such file", ref)
}
