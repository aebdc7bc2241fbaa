// Package main is the Meibo CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/meibo/internal/cli"
	"github.com/hyperjump/meibo/internal/config"
	"github.com/hyperjump/meibo/internal/directory"
	"github.com/hyperjump/meibo/internal/models"
	"github.com/hyperjump/meibo/internal/orchestrator"
	"github.com/hyperjump/meibo/internal/remote"
	"github.com/hyperjump/meibo/internal/server"
	"github.com/hyperjump/meibo/internal/watcher"
	"github.com/hyperjump/meibo/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/meibo/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "meibo server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "important":
		runImportant()
	case "cancel":
		runCancel()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("meibo version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// components bundles the pieces needed for direct (serverless) operation.
type components struct {
	Store directory.Store
	Orch  *orchestrator.Orchestrator
}

func (c *components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	index, err := directory.NewEntryIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open entry index: %w", err)
	}
	store, err := directory.NewSQLiteStore(cfg.Storage.DatabasePath, index)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	svc := remote.NewClient(&cfg.Remote, logger)
	sc := cfg.Search
	orch := orchestrator.New(store, svc, &sc, logger)
	return &components{Store: store, Orch: orch}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	// Reload search heuristics when the config file changes. Storage and
	// server settings stay fixed until restart.
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	cfgWatch := watcher.NewConfigWatcher(resolvedConfigPath, func(path string) {
		reloaded, loadErr := config.Load(path)
		if loadErr != nil {
			logger.Warn("config reload failed", zap.String("path", path), zap.Error(loadErr))
			return
		}
		sc := reloaded.Search
		comps.Orch.UpdateConfig(&sc)
		logger.Info("search config reloaded", zap.String("path", path))
	}, watchOpts...)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := cfgWatch.Start(watchCtx); err != nil {
		logger.Warn("config watcher failed to start", zap.Error(err))
	}
	defer cfgWatch.Stop()

	srv := server.NewServer(comps.Orch, comps.Store, &cfg.Server, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: meibo search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Searches the local cache first and consults the remote directory only when
local coverage is thin.
  • Use --more to force a remote lookup regardless of local coverage.
  • Use --output json for parseable output.

Examples:
  meibo search ana
  meibo search "ana gomez"
  meibo search --more ana            # force a remote lookup
  meibo search backend engineer      # role queries always go remote
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word
// queries work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "meibo search ana --more"
// would otherwise leave --more unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func parseOutputFormat(name string) (cli.SearchOutputFormat, error) {
	switch name {
	case "json":
		return cli.OutputJSON, nil
	case "text":
		return cli.OutputText, nil
	default:
		return cli.OutputText, fmt.Errorf("unknown output format %q; use text or json", name)
	}
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct storage access)")
	sessionID := fs.String("session", "", "session id; reusing one supersedes the previous search")
	more := fs.Bool("more", false, "force a remote lookup regardless of local coverage")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids a SQLite and
		// Bleve lock conflict with the server process).
		endpoint := "/api/v1/search"
		if *more {
			endpoint = "/api/v1/search/more"
		}
		response, err := searchViaHTTP(*serverURL, endpoint, queryStr, *sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct storage access (when the server is not running).
	comps, cleanup := mustInitDirect(*configPath)
	defer cleanup()

	start := time.Now()
	var results []*models.SearchResult
	if *more {
		results = comps.Orch.SearchForMore(context.Background(), queryStr)
	} else {
		results = comps.Orch.Search(context.Background(), queryStr, *sessionID, false)
	}
	response := buildResponse(queryStr, results, start)
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runImportant() {
	fs := flag.NewFlagSet("important", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct storage access)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/important")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var response models.SearchResponse
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, &response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	comps, cleanup := mustInitDirect(*configPath)
	defer cleanup()

	start := time.Now()
	results := comps.Orch.Search(context.Background(), "", "", false)
	response := buildResponse("", results, start)
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runCancel() {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	reason := fs.String("reason", "client request", "cancellation reason")
	_ = fs.Parse(os.Args[2:])

	body, _ := json.Marshal(map[string]string{"reason": *reason})
	resp, err := http.Post(*serverURL+"/api/v1/cancel", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Cancel failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Println("Cancelled")
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Entries int64                  `json:"entries"`
	Config  map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct storage access)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		comps, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer comps.Close()
		count, err := comps.Store.CountEntries(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count entries failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Entries: count,
			Config: map[string]interface{}{
				"database_path":    cfg.Storage.DatabasePath,
				"bleve_index_path": cfg.Storage.BleveIndexPath,
				"remote_base_url":  cfg.Remote.BaseURL,
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("entries:  %d   # directory entries in the local cache\n", status.Entries)
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"database_path", "bleve_index_path", "remote_base_url"} {
				if v, ok := status.Config[key]; ok && v != "" {
					fmt.Printf("%-18s%v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func mustInitDirect(configPath string) (*components, func()) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return comps, func() {
		comps.Close()
		_ = logger.Sync()
	}
}

func buildResponse(query string, results []*models.SearchResult, start time.Time) *models.SearchResponse {
	usedRemote := false
	if len(results) > 0 {
		usedRemote = results[0].UsedRemote
	}
	return &models.SearchResponse{
		Results:     results,
		Total:       len(results),
		Query:       query,
		UsedRemote:  usedRemote,
		QueryTimeMs: time.Since(start).Milliseconds(),
	}
}

func searchViaHTTP(serverURL, endpoint, query, sessionID string) (*models.SearchResponse, error) {
	body, err := json.Marshal(map[string]string{"query": query, "session_id": sessionID})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`Meibo - hierarchical workplace directory search

Usage:
  meibo <command> [flags]

Commands:
  server      Start the API server
  search      Search people and channels (local cache first, remote on demand)
  important   List pinned and recent entries
  cancel      Cancel the in-flight search on a running server
  status      Show cache and configuration status
  version     Show version
  help        Show this help

Run 'meibo <command> -h' for command-specific flags.`)
}
