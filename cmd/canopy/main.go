package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// CLI is the top-level command structure for canopy.
type CLI struct {
	Debug  bool   `env:"CANOPY_DEBUG" help:"Enable debug logging."`
	Config string `type:"path" help:"Path to the config file (default ~/.config/canopy/config.toml)."`

	Import  ImportCmd  `cmd:"" help:"Import a ruleset YAML file into the catalog."`
	List    ListCmd    `cmd:"" help:"List the rulesets in the catalog."`
	Show    ShowCmd    `cmd:"" help:"Show one ruleset's metadata and rules."`
	Terms   TermsCmd   `cmd:"" help:"Rank a ruleset's terms by how many rules use them."`
	Tree    TreeCmd    `cmd:"" help:"Build the hierarchy tree and write it as JSON."`
	Explore ExploreCmd `cmd:"" help:"Browse the hierarchy tree in the terminal."`
	Serve   ServeCmd   `cmd:"" help:"Serve the tree viewer, the JSON API and the MCP tools."`
	Delete  DeleteCmd  `cmd:"" help:"Remove a ruleset from the catalog."`
	History HistoryCmd `cmd:"" help:"Show recent catalog activity."`
}

func main() {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("canopy"),
		kong.Description("Turn rule-based classifiers into explorable hierarchy trees."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			os.Exit(code)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "canopy: %v\n", err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	setupLogger(cli.Debug)

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		slog.Warn("config not loaded, using defaults", "error", err)
		cfg = defaultConfig()
	}
	ctx.Bind(cfg)

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
