package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	gocache "github.com/patrickmn/go-cache"

	"canopy/internal/catalog"
	"canopy/internal/hierarchy"
)

// ServeCmd runs the canopy daemon: the viewer page, the JSON API and the
// MCP tools share one HTTP port.
type ServeCmd struct {
	Port int    `short:"p" default:"0" help:"Port for the HTTP server (default from config)."`
	DB   string `name:"db" help:"Catalog database path override."`
}

func (cmd *ServeCmd) Run(cfg *Config) error {
	port := cmd.Port
	if port == 0 {
		port = cfg.Serve.Port
	}
	store, err := openCatalog(cfg, cmd.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := newServer(store)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	slog.Info("canopy daemon listening", "addr", addr, "viewer", "http://"+addr+"/")
	return http.ListenAndServe(addr, srv.router())
}

// server bundles the daemon's dependencies. Built trees are cached for a
// short window: catalog writes happen in other processes and the viewer
// refetches on every selection, so a small TTL keeps repeat fetches
// cheap without serving stale data for long.
type server struct {
	store *catalog.Store
	trees *gocache.Cache
}

func newServer(store *catalog.Store) *server {
	return &server{
		store: store,
		trees: gocache.New(30*time.Second, time.Minute),
	}
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	sseHandler := mcp.NewSSEHandler(func(req *http.Request) *mcp.Server {
		return newMCPServer(s)
	}, nil)
	r.Handle("/sse", sseHeartbeat(sseHandler, sseHeartbeatInterval))

	r.Get("/", s.handleViewer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/api/rulesets", s.handleRulesets)
	r.Get("/api/tree", s.handleTree)
	return r
}

func (s *server) handleViewer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(viewerHTML))
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *server) handleRulesets(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List()
	if err != nil {
		s.serverError(w, "list rulesets", err)
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	writeJSON(w, entries)
}

func (s *server) handleTree(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("ruleset")
	if name == "" {
		http.Error(w, "missing ruleset parameter", http.StatusBadRequest)
		return
	}
	merge := r.URL.Query().Get("merge")
	root, err := s.tree(name, merge == "1" || merge == "true")
	if errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, "build tree", err)
		return
	}
	writeJSON(w, root)
}

// tree builds the annotated tree for a catalog ruleset, reusing a cached
// one when it is fresh. Cached trees are shared read-only.
func (s *server) tree(name string, merge bool) (*hierarchy.Node, error) {
	key := fmt.Sprintf("%s|merge=%t", name, merge)
	if v, ok := s.trees.Get(key); ok {
		return v.(*hierarchy.Node), nil
	}
	rs, err := s.store.Ruleset(name)
	if err != nil {
		return nil, err
	}
	root, err := hierarchy.Tree(rs, hierarchy.Options{Merge: merge})
	if err != nil {
		return nil, err
	}
	s.trees.SetDefault(key, root)
	return root, nil
}

func (s *server) serverError(w http.ResponseWriter, op string, err error) {
	slog.Error(op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	// Node names deliberately carry &leq;/&geq; entities; keep them
	// readable instead of &-escaping the ampersands.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}

// MCP tool args

type listRulesetsArgs struct{}

type rulesetTermsArgs struct {
	Ruleset string `json:"ruleset" jsonschema:"Catalog name of the ruleset"`
}

type rulesetTreeArgs struct {
	Ruleset string `json:"ruleset" jsonschema:"Catalog name of the ruleset"`
	Merge   bool   `json:"merge,omitempty" jsonschema:"Collapse single-child condition runs into AND nodes"`
}

// newMCPServer creates a fresh MCP server with the canopy tools
// registered. Called once per SSE connection so each session gets its
// own initialization lifecycle.
func newMCPServer(s *server) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "canopy",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_rulesets",
		Description: "List the rulesets available in the canopy catalog.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listRulesetsArgs) (*mcp.CallToolResult, any, error) {
		entries, err := s.store.List()
		if err != nil {
			return nil, nil, err
		}
		return textResult(entries)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ruleset_terms",
		Description: "Rank a catalog ruleset's terms by how many rules use them.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args rulesetTermsArgs) (*mcp.CallToolResult, any, error) {
		rs, err := s.store.Ruleset(args.Ruleset)
		if err != nil {
			return nil, nil, err
		}
		return textResult(hierarchy.TermCounts(rs))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ruleset_tree",
		Description: "Build the annotated hierarchy tree for a catalog ruleset and return it as JSON.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args rulesetTreeArgs) (*mcp.CallToolResult, any, error) {
		root, err := s.tree(args.Ruleset, args.Merge)
		if err != nil {
			return nil, nil, err
		}
		return textResult(root)
	})

	return server
}

// textResult wraps a JSON-encoded value as an MCP text response.
func textResult(v any) (*mcp.CallToolResult, any, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(out)},
		},
	}, nil, nil
}
