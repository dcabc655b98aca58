// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/grafema/internal/bootstrap"
	"github.com/kraklabs/grafema/internal/contract"
	"github.com/kraklabs/grafema/internal/errors"
	"github.com/kraklabs/grafema/internal/output"
	"github.com/kraklabs/grafema/internal/ui"
	"github.com/kraklabs/grafema/pkg/analyzer"
	"github.com/kraklabs/grafema/pkg/config"
	"github.com/kraklabs/grafema/pkg/discovery"
	"github.com/kraklabs/grafema/pkg/enrichment"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memstore"
	"github.com/kraklabs/grafema/pkg/graph/sqlitestore"
	"github.com/kraklabs/grafema/pkg/metrics"
	"github.com/kraklabs/grafema/pkg/orchestrator"
	"github.com/kraklabs/grafema/pkg/plugin"
	"github.com/kraklabs/grafema/pkg/validation"
)

// indexResult is the JSON-mode summary of one `grafema index` run.
type indexResult struct {
	Services    int                  `json:"services"`
	Issues      int                  `json:"issues"`
	Errors      int                  `json:"errors"`
	Cancelled   bool                 `json:"cancelled"`
	DurationSec float64              `json:"durationSeconds"`
	IssueList   []output.IssueRecord `json:"issueList,omitempty"`
}

func issueRecords(issues []plugin.Issue) []output.IssueRecord {
	out := make([]output.IssueRecord, 0, len(issues))
	for _, iss := range issues {
		out = append(out, output.IssueRecord{
			Code:     iss.Code,
			Severity: iss.Severity,
			Message:  iss.Message,
			File:     iss.File,
			Phase:    string(iss.Phase),
			Plugin:   iss.Plugin,
		})
	}
	return out
}

// runIndex executes `grafema index`: load config, build the Discovery/
// Enrichment/Validation plugin registry, pick a graph.Backend, and run
// the Orchestrator end to end, rendering a terminal progress bar (or
// JSON summary) as it goes.
func runIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	projectRoot := fs.String("path", ".", "Project root to index")
	force := fs.Bool("force", false, "Clear the backend and do a full reanalysis")
	indexOnly := fs.Bool("index-only", false, "Stop after the Analysis phase (skip Enrichment/Validation)")
	serviceFilter := fs.String("service", "", "Only index the named service")
	parallel := fs.Bool("parallel", true, "Parse files on a worker pool")
	maxWorkers := fs.Int("max-workers", 0, "Worker pool size (0 = CPU count, capped at 16)")
	inMemory := fs.Bool("in-memory", false, "Discard the graph when the process exits instead of persisting to ~/.grafema/data")
	dbPath := fs.String("db", "", "Path to a SQLite graph database (default: ~/.grafema/data/<project-id>)")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090) while indexing")
	jsonOutput := fs.Bool("json", false, "Output a JSON summary instead of a progress bar")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	quiet := fs.Bool("quiet", false, "Suppress progress output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: grafema index [options]

Runs Discovery -> Indexing -> Analysis -> Enrichment -> Validation
against the project at --path (default: current directory).

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitInput)
	}

	globals := GlobalFlags{Quiet: *quiet, NoColor: *noColor, JSON: *jsonOutput}
	ui.InitColors(globals.NoColor)

	root, err := filepath.Abs(*projectRoot)
	if err != nil {
		errors.FatalError(errors.NewInputError("cannot resolve --path", err.Error(), "pass an existing directory"), globals.JSON)
	}
	if len(*serviceFilter) > contract.RequestIDMaxBytes {
		errors.FatalError(errors.NewInputError("--service value too long", fmt.Sprintf("%d bytes exceeds the %d byte limit", len(*serviceFilter), contract.RequestIDMaxBytes), "pass a shorter service name"), globals.JSON)
	}

	cfg, err := config.Load(root)
	if err != nil {
		errors.FatalError(errors.NewConfigError("cannot load .grafema/config.yaml", err.Error(), "run 'grafema init' first", err), globals.JSON)
	}

	if *metricsAddr != "" {
		metrics.Init()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			_ = http.ListenAndServe(*metricsAddr, mux)
		}()
	}

	backend, closeBackend := openIndexBackend(root, *dbPath, *inMemory, globals)
	defer closeBackend()

	registry := buildRegistry(cfg)
	orch := orchestrator.New(backend, registry, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	bar := newIndexProgress(globals)
	start := time.Now()

	opts := orchestrator.Options{
		ServiceFilter: *serviceFilter,
		Force:         *force,
		IndexOnly:     *indexOnly,
		Parallel:      *parallel,
		MaxWorkers:    *maxWorkers,
		ExcludeGlobs:  cfg.Exclude,
		DataDir:       checkpointDirFor(root),
		OnProgress:    renderIndexProgress(bar),
	}

	manifest, err := orch.Run(ctx, root, opts)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		errors.FatalError(errors.NewInternalError("analysis run failed", err.Error(), "re-run with --json for details", err), globals.JSON)
	}

	result := indexResult{
		Services:    len(manifest.Services),
		Issues:      len(manifest.Issues),
		Errors:      countErrorIssues(manifest.Issues),
		Cancelled:   manifest.Cancelled,
		DurationSec: time.Since(start).Seconds(),
		IssueList:   issueRecords(manifest.Issues),
	}

	if globals.JSON {
		_ = output.JSON(result)
	} else {
		printIndexSummary(result, manifest)
	}

	if manifest.Cancelled {
		os.Exit(errors.ExitCancelled)
	}
	if manifest.HasErrors {
		os.Exit(errors.ExitInternal)
	}
}

func countErrorIssues(issues []plugin.Issue) int {
	n := 0
	for _, i := range issues {
		if i.Severity == "error" {
			n++
		}
	}
	return n
}

func printIndexSummary(result indexResult, manifest *orchestrator.Manifest) {
	if manifest.Cancelled {
		ui.Warning("index run cancelled")
		return
	}
	ui.Successf("indexed %d service(s) in %.2fs", result.Services, result.DurationSec)
	if result.Issues > 0 {
		ui.Warningf("%d issue(s) recorded (%d error, %d warning)", result.Issues, result.Errors, result.Issues-result.Errors)
		shown := result.IssueList
		const maxShown = 10
		if len(shown) > maxShown {
			shown = shown[:maxShown]
		}
		for _, iss := range shown {
			fmt.Println("  " + ui.IssueLine(iss.Severity, iss.Code, iss.File, iss.Message))
		}
		if len(result.IssueList) > maxShown {
			fmt.Println(ui.DimText(fmt.Sprintf("  … %d more (use --json for the full list)", len(result.IssueList)-maxShown)))
		}
	}
}

// openIndexBackend returns a graph.Backend for `grafema index`: an
// ephemeral in-memory store with --in-memory, a SQLite file at --db
// when set, or (the default) the project's persistent store under
// ~/.grafema/data/<project-id> -- the same location `grafema status`
// and `grafema reset` look at. closeBackend is always safe to defer.
func openIndexBackend(projectRoot, dbPath string, inMemory bool, globals GlobalFlags) (graph.Backend, func()) {
	if inMemory {
		store := memstore.New()
		return store, func() { _ = store.Close() }
	}
	if dbPath != "" {
		store, err := sqlitestore.Open(sqlitestore.Config{Path: dbPath})
		if err != nil {
			errors.FatalError(errors.NewDatabaseError("cannot open graph database", err.Error(), "check --db path permissions", err), globals.JSON)
		}
		return store, func() { _ = store.Close() }
	}

	info, err := bootstrap.InitProject(bootstrap.ProjectConfig{ProjectID: projectIDFor(projectRoot)}, nil)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("cannot initialize project store", err.Error(), "check ~/.grafema permissions or pass --db", err), globals.JSON)
	}
	store, err := sqlitestore.Open(sqlitestore.Config{Path: info.DBPath})
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("cannot open graph database", err.Error(), "check ~/.grafema permissions or pass --db", err), globals.JSON)
	}
	return store, func() { _ = store.Close() }
}

// projectIDFor derives the bootstrap project identifier from a project
// root: the directory's base name, matching the default SERVICE name
// Discovery assigns when no config names one.
func projectIDFor(projectRoot string) string {
	return filepath.Base(projectRoot)
}

// checkpointDirFor is where pkg/checkpoint persists incremental
// reanalysis state for a project.
func checkpointDirFor(projectRoot string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(projectRoot, ".grafema", "checkpoint")
	}
	return filepath.Join(home, ".grafema", "data", projectIDFor(projectRoot), "checkpoint")
}

// buildRegistry wires every Discovery/Enrichment/Validation plugin this
// module ships into one Registry, honoring cfg.Plugins when it names an
// explicit subset and registering the full default set otherwise.
func buildRegistry(cfg *config.Config) *plugin.Registry {
	r := plugin.NewRegistry()

	knownGlobals := mergedKnownGlobals(cfg.Analysis.KnownGlobals)

	discoveryPlugins := map[string]plugin.Plugin{
		"config_service_discoverer": discovery.ConfigServiceDiscoverer{},
		"workspace_discoverer":      discovery.WorkspaceDiscoverer{},
	}
	enrichmentPlugins := map[string]plugin.Plugin{
		"import_export_linker":     enrichment.ImportExportLinker{},
		"function_call_resolver":   enrichment.FunctionCallResolver{},
		"method_call_resolver":     enrichment.MethodCallResolver{},
		"closure_capture_enricher": enrichment.ClosureCaptureEnricher{},
		"alias_tracker":            enrichment.AliasTracker{},
		"http_connection_enricher": enrichment.HTTPConnectionEnricher{},
		"instanceof_resolver":      enrichment.InstanceOfResolver{},
		"nodejs_builtins_resolver": enrichment.NodejsBuiltinsResolver{KnownGlobals: knownGlobals},
	}
	validationPlugins := map[string]plugin.Plugin{
		"graph_connectivity_validator":  validation.GraphConnectivityValidator{},
		"broken_import_validator":       validation.BrokenImportValidator{KnownGlobals: knownGlobals},
		"shadowing_detector":            validation.ShadowingDetector{},
		"eval_ban_validator":            validation.EvalBanValidator{},
		"sql_injection_validator":       validation.SQLInjectionValidator{},
		"data_flow_validator":           validation.DataFlowValidator{},
		"typescript_dead_code_validator": validation.TypeScriptDeadCodeValidator{},
	}

	registerSelected(r, discoveryPlugins, cfg.Plugins.Discovery)
	registerSelected(r, enrichmentPlugins, cfg.Plugins.Enrichment)
	registerSelected(r, validationPlugins, cfg.Plugins.Validation)
	return r
}

// registerSelected registers named plugins from all in the order names
// lists them, or every plugin in all (map iteration order does not
// matter: Registry.Ordered re-sorts by priority/dependency) when names
// is empty.
func registerSelected(r *plugin.Registry, all map[string]plugin.Plugin, names []string) {
	if len(names) == 0 {
		for _, p := range all {
			r.Register(p)
		}
		return
	}
	for _, name := range names {
		if p, ok := all[name]; ok {
			r.Register(p)
		}
	}
}

func mergedKnownGlobals(extra []string) map[string]bool {
	if len(extra) == 0 {
		return analyzer.DefaultKnownGlobals
	}
	merged := make(map[string]bool, len(analyzer.DefaultKnownGlobals)+len(extra))
	for k, v := range analyzer.DefaultKnownGlobals {
		merged[k] = v
	}
	for _, g := range extra {
		merged[g] = true
	}
	return merged
}
