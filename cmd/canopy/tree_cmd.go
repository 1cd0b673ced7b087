package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"canopy/internal/hierarchy"
	"canopy/internal/rules"
)

// TreeCmd builds the hierarchy tree for a ruleset and writes it as JSON,
// ready for any d3-style consumer.
type TreeCmd struct {
	Ruleset string `arg:"" help:"Catalog name or YAML file."`
	Merge   bool   `help:"Collapse single-child condition runs into AND nodes."`
	Dataset string `type:"existingfile" help:"Dataset YAML used to label categorical terms."`
	Out     string `type:"path" help:"Write the JSON here instead of stdout."`
	Indent  bool   `help:"Pretty-print the JSON."`
	DB      string `name:"db" help:"Catalog database path override."`
}

func (cmd *TreeCmd) Run(cfg *Config) error {
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

	out := os.Stdout
	if cmd.Out != "" {
		f, err := os.Create(cmd.Out)
		if err != nil {
			return fmt.Errorf("create %s: %w", cmd.Out, err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if cmd.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	if cmd.Out != "" {
		slog.Info("tree written", "ruleset", name, "path", cmd.Out, "nodes", root.NumDescendants+1)
	}
	return nil
}

// treeOptions assembles hierarchy options from command flags, loading the
// dataset file when one is given.
func treeOptions(datasetPath string, merge bool) (hierarchy.Options, error) {
	opts := hierarchy.Options{Merge: merge}
	if datasetPath != "" {
		d, err := rules.LoadDataset(datasetPath)
		if err != nil {
			return opts, err
		}
		opts.Formatter = d
	}
	return opts, nil
}

// TermsCmd prints a ruleset's terms ranked by rule usage, the same order
// the tree builder splits on.
type TermsCmd struct {
	Ruleset string `arg:"" help:"Catalog name or YAML file."`
	Dataset string `type:"existingfile" help:"Dataset YAML used to label categorical terms."`
	DB      string `name:"db" help:"Catalog database path override."`
}

var (
	termNameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	termBarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	termCountStyle = lipgloss.NewStyle().Faint(true)
)

func (cmd *TermsCmd) Run(cfg *Config) error {
	rs, _, err := resolveRuleset(cfg, cmd.DB, cmd.Ruleset)
	if err != nil {
		return err
	}
	opts, err := treeOptions(cmd.Dataset, false)
	if err != nil {
		return err
	}
	counts := hierarchy.TermCounts(rs)
	if len(counts) == 0 {
		fmt.Println("no terms: every rule has an empty premise")
		return nil
	}

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		width = 80
	}
	fmt.Print(renderTermTable(counts, opts.Formatter, width))
	return nil
}

// renderTermTable lays the ranking out as name, count and a bar scaled to
// the most-used term.
func renderTermTable(counts []hierarchy.TermCount, f hierarchy.TermFormatter, width int) string {
	names := make([]string, len(counts))
	nameWidth := 0
	for i, tc := range counts {
		names[i] = formatTermName(f, tc.Term)
		if len(names[i]) > nameWidth {
			nameWidth = len(names[i])
		}
	}
	if max := width / 2; nameWidth > max {
		nameWidth = max
	}

	barWidth := width - nameWidth - 8
	if barWidth < 1 {
		barWidth = 1
	}
	maxCount := counts[0].Rules

	var b strings.Builder
	for i, tc := range counts {
		name := names[i]
		if len(name) > nameWidth {
			name = name[:nameWidth-1] + "…"
		}
		bar := strings.Repeat("█", tc.Rules*barWidth/maxCount)
		fmt.Fprintf(&b, "%s %s %s\n",
			termNameStyle.Render(fmt.Sprintf("%-*s", nameWidth, name)),
			termCountStyle.Render(fmt.Sprintf("%4d", tc.Rules)),
			termBarStyle.Render(bar))
	}
	return b.String()
}

func formatTermName(f hierarchy.TermFormatter, t rules.Term) string {
	if f != nil {
		return f.FormatTerm(t)
	}
	return t.String()
}
