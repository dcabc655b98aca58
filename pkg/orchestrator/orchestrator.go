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

// Package orchestrator drives the five strictly-ordered phases of a
// run: Discovery, Indexing, Analysis, Enrichment, Validation. A single
// staged function records each phase's duration through pkg/metrics
// (phases emit no start/complete log events), fanning out only the
// parse step to a worker pool and running everything else on the
// calling goroutine.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kraklabs/grafema/pkg/builder"
	"github.com/kraklabs/grafema/pkg/checkpoint"
	"github.com/kraklabs/grafema/pkg/delta"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/metrics"
	"github.com/kraklabs/grafema/pkg/plugin"
	"github.com/kraklabs/grafema/pkg/scope"
	"github.com/kraklabs/grafema/pkg/workerpool"
)

// maxModulesPerService and maxIndexDepth are the Indexing phase's hard
// caps: max 2,000 modules per service, max depth 50 -- each triggers a
// warning issue and stops traversal, not the run.
const (
	maxModulesPerService = 2000
	maxIndexDepth        = 50
)

// ProgressInfo is delivered to Options.OnProgress at most every
// progressEveryNFiles files.
type ProgressInfo struct {
	Phase          plugin.Phase
	CurrentPlugin  string
	Message        string
	TotalFiles     int
	ProcessedFiles int
	CurrentService string
}

const progressEveryNFiles = 10

// Options configures one Run.
type Options struct {
	ServiceFilter string
	Force         bool
	IndexOnly     bool
	Parallel      bool
	MaxWorkers    int
	OnProgress    func(ProgressInfo)

	// ExcludeGlobs carries the config's exclude patterns. Indexing does
	// not consult it: a file reached through an import becomes a MODULE
	// node whether or not it matches.
	ExcludeGlobs []string

	// DataDir is where pkg/checkpoint persists incremental-reanalysis
	// state for this project.
	DataDir string
}

// Manifest is Discovery's output and Run's return value: the services
// found, plus any issues recorded across every phase.
type Manifest struct {
	Services  []plugin.Service
	HasErrors bool
	Issues    []plugin.Issue
	Cancelled bool
}

// Orchestrator owns the plugin registry, the worker pool, and the
// backend handle for one run.
type Orchestrator struct {
	backend  graph.Backend
	registry *plugin.Registry
	log      *slog.Logger
}

// New constructs an Orchestrator writing to backend and running the
// plugins registered in registry.
func New(backend graph.Backend, registry *plugin.Registry, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{backend: backend, registry: registry, log: log}
}

// Run executes Discovery -> Indexing -> Analysis -> [Enrichment ->
// Validation unless IndexOnly] against projectRoot.
func (o *Orchestrator) Run(ctx context.Context, projectRoot string, opts Options) (*Manifest, error) {
	start := time.Now()
	manifest := &Manifest{}

	if opts.Force {
		o.log.Info("orchestrator.force_clear")
		if err := o.backend.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear backend for forced reanalysis: %w", err)
		}
	}

	var cp *checkpoint.Checkpoint
	if opts.DataDir != "" && !opts.Force {
		mgr := checkpoint.NewManager(opts.DataDir)
		loaded, err := mgr.Load()
		if err != nil {
			o.log.Warn("orchestrator.checkpoint.load_error", "err", err)
		}
		cp = loaded
	}

	services, issues, err := o.runDiscovery(ctx, projectRoot, opts)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	manifest.Issues = append(manifest.Issues, issues...)
	manifest.Services = services
	metrics.RecordPhaseDuration("discovery", time.Since(start).Seconds())

	if isCancelled(ctx) {
		manifest.Cancelled = true
		return manifest, nil
	}

	for _, svc := range services {
		if opts.ServiceFilter != "" && svc.Name != opts.ServiceFilter {
			continue
		}

		phaseStart := time.Now()
		modules, indexIssues, err := o.runIndexing(ctx, svc, opts)
		manifest.Issues = append(manifest.Issues, indexIssues...)
		if err != nil {
			return nil, fmt.Errorf("indexing %s: %w", svc.Name, err)
		}
		metrics.RecordPhaseDuration("indexing", time.Since(phaseStart).Seconds())

		if isCancelled(ctx) {
			manifest.Cancelled = true
			return manifest, nil
		}

		changed := modules
		if cp != nil {
			changed = changedOnly(modules, cp)
		}

		phaseStart = time.Now()
		analysisIssues, err := o.runAnalysis(ctx, svc, changed, opts)
		manifest.Issues = append(manifest.Issues, analysisIssues...)
		if err != nil {
			return nil, fmt.Errorf("analysis %s: %w", svc.Name, err)
		}
		metrics.RecordPhaseDuration("analysis", time.Since(phaseStart).Seconds())

		if opts.DataDir != "" {
			newCP := updateCheckpoint(cp, svc, modules)
			if sha, err := delta.NewDetector(svc.RootPath).HeadSHA(); err == nil {
				newCP.LastSHA = sha
			}
			if err := checkpoint.NewManager(opts.DataDir).Save(newCP); err != nil {
				o.log.Warn("orchestrator.checkpoint.save_error", "err", err)
			}
		}

		if isCancelled(ctx) {
			manifest.Cancelled = true
			return manifest, nil
		}
	}

	if opts.IndexOnly {
		manifest.HasErrors = hasErrorIssues(manifest.Issues)
		return manifest, nil
	}

	phaseStart := time.Now()
	enrichIssues, err := o.runPhase(ctx, plugin.PhaseEnrichment, projectRoot, "", opts)
	manifest.Issues = append(manifest.Issues, enrichIssues...)
	if err != nil {
		return nil, fmt.Errorf("enrichment: %w", err)
	}
	metrics.RecordPhaseDuration("enrichment", time.Since(phaseStart).Seconds())

	if isCancelled(ctx) {
		manifest.Cancelled = true
		return manifest, nil
	}

	phaseStart = time.Now()
	validateIssues, err := o.runPhase(ctx, plugin.PhaseValidation, projectRoot, "", opts)
	manifest.Issues = append(manifest.Issues, validateIssues...)
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	metrics.RecordPhaseDuration("validation", time.Since(phaseStart).Seconds())

	manifest.HasErrors = hasErrorIssues(manifest.Issues)
	return manifest, nil
}

func hasErrorIssues(issues []plugin.Issue) bool {
	for _, i := range issues {
		if i.Severity == "error" {
			return true
		}
	}
	return false
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// runDiscovery runs every registered Discovery plugin in order and
// merges the services each contributes. A project with no Discovery
// plugins registered falls back to treating projectRoot itself as a
// single service, so `grafema index` works against a plain repo with
// no config at all.
func (o *Orchestrator) runDiscovery(ctx context.Context, projectRoot string, opts Options) ([]plugin.Service, []plugin.Issue, error) {
	plugins, err := o.registry.Ordered(plugin.PhaseDiscovery)
	if err != nil {
		return nil, nil, err
	}
	if len(plugins) == 0 {
		return []plugin.Service{{
			Name:        filepath.Base(projectRoot),
			RootPath:    projectRoot,
			ServiceType: "default",
			Language:    "typescript",
		}}, nil, nil
	}

	var services []plugin.Service
	var issues []plugin.Issue
	manifest := &plugin.Manifest{}
	for _, p := range plugins {
		pc := plugin.Context{Ctx: ctx, ProjectRoot: projectRoot, Backend: o.backend, Manifest: manifest}
		res, err := p.Execute(pc)
		if err != nil {
			return nil, nil, fmt.Errorf("plugin %s: %w", p.Metadata().Name, err)
		}
		issues = append(issues, res.Issues...)
	}
	services = manifest.Services
	return services, issues, nil
}

// runPhase runs every plugin registered for phase, in dependency order,
// against the whole project (used for Enrichment/Validation, which
// operate on the assembled graph rather than per-service).
func (o *Orchestrator) runPhase(ctx context.Context, phase plugin.Phase, projectRoot, serviceName string, opts Options) ([]plugin.Issue, error) {
	plugins, err := o.registry.Ordered(phase)
	if err != nil {
		return nil, err
	}

	var issues []plugin.Issue
	for _, p := range plugins {
		pluginStart := time.Now()
		pc := plugin.Context{Ctx: ctx, ProjectRoot: projectRoot, Backend: o.backend, ServiceName: serviceName}
		res, err := p.Execute(pc)
		metrics.RecordPluginDuration(string(phase), p.Metadata().Name, time.Since(pluginStart).Seconds())
		if err != nil {
			return issues, fmt.Errorf("plugin %s: %w", p.Metadata().Name, err)
		}
		issues = append(issues, res.Issues...)
		for _, iss := range res.Issues {
			metrics.RecordIssue(iss.Severity)
		}
		o.reportProgress(opts, ProgressInfo{Phase: phase, CurrentPlugin: p.Metadata().Name, CurrentService: serviceName})
		if isCancelled(ctx) {
			break
		}
	}
	return issues, nil
}

func (o *Orchestrator) reportProgress(opts Options, info ProgressInfo) {
	if opts.OnProgress != nil {
		opts.OnProgress(info)
	}
}

func changedOnly(modules []string, cp *checkpoint.Checkpoint) []string {
	var out []string
	for _, m := range modules {
		content, err := os.ReadFile(m)
		if err != nil {
			out = append(out, m) // unreadable now; let Analysis record the FileAccessError
			continue
		}
		if cp.Changed(m, content) {
			out = append(out, m)
		}
	}
	return out
}

func updateCheckpoint(prev *checkpoint.Checkpoint, svc plugin.Service, modules []string) *checkpoint.Checkpoint {
	cp := &checkpoint.Checkpoint{ProjectID: svc.Name, FileHashes: make(map[string]string)}
	if prev != nil {
		for k, v := range prev.FileHashes {
			cp.FileHashes[k] = v
		}
		cp.LastSHA = prev.LastSHA
	}
	for _, m := range modules {
		content, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		cp.FileHashes[m] = checkpoint.HashContent(content)
	}
	return cp
}

// runAnalysis parses every module in files through the worker pool (or
// sequentially when opts.Parallel is false), hands each resulting fact
// bundle to the graph builder, and records per-module parse/build
// failures as ISSUEs (FileAccessError/LanguageError/AnalysisError)
// rather than aborting the service.
func (o *Orchestrator) runAnalysis(ctx context.Context, svc plugin.Service, files []string, opts Options) ([]plugin.Issue, error) {
	b := builder.New(o.backend, o.log)

	// Incremental reanalysis deletes nodes belonging to changed modules
	// before re-emitting. The MODULE node Indexing just added shares f as
	// its File, so it and its CONTAINS/IMPORTS links are put back.
	for _, f := range files {
		modID := scope.NormalizePath(f)
		modNode, _ := o.backend.GetNode(ctx, modID)
		in, _ := o.backend.GetIncomingEdges(ctx, modID, []graph.EdgeKind{graph.EdgeContains, graph.EdgeImports})
		out, _ := o.backend.GetOutgoingEdges(ctx, modID, []graph.EdgeKind{graph.EdgeImports})
		if err := o.backend.DeleteNodesByFile(ctx, f); err != nil {
			return nil, fmt.Errorf("delete stale nodes for %s: %w", f, err)
		}
		if modNode == nil {
			continue
		}
		if err := o.backend.AddNode(ctx, *modNode); err != nil {
			return nil, fmt.Errorf("restore module node for %s: %w", f, err)
		}
		if err := o.backend.AddEdges(ctx, append(in, out...), true); err != nil {
			return nil, fmt.Errorf("restore module edges for %s: %w", f, err)
		}
	}

	var issues []plugin.Issue
	processed := 0
	reportEvery := func() {
		processed++
		if processed%progressEveryNFiles == 0 {
			o.reportProgress(opts, ProgressInfo{
				Phase: plugin.PhaseAnalysis, CurrentService: svc.Name,
				TotalFiles: len(files), ProcessedFiles: processed,
			})
		}
	}

	if !opts.Parallel || len(files) < 2 {
		a := analyzerForSequential()
		defer a.Close()
		for _, f := range files {
			if isCancelled(ctx) {
				break
			}
			content, err := os.ReadFile(f)
			if err != nil {
				issues = append(issues, issueFor("ERR_FILE_ACCESS", "warning", f, err))
				metrics.RecordFileParsed(false, 0)
				continue
			}
			bundleStart := time.Now()
			bundle, err := a.Parse(ctx, f, content)
			metrics.RecordFileParsed(err == nil, time.Since(bundleStart).Seconds())
			if err != nil {
				issues = append(issues, issueFor("ERR_PARSE_FAILURE", "warning", f, err))
				continue
			}
			if err := b.Build(ctx, scope.NormalizePath(f), bundle); err != nil {
				issues = append(issues, issueFor("ERR_ANALYSIS_FAILURE", "warning", f, err))
			}
			reportEvery()
		}
		return issues, nil
	}

	pool := workerpool.New(opts.MaxWorkers)
	if err := pool.Init(ctx); err != nil {
		return issues, fmt.Errorf("init worker pool: %w", err)
	}
	defer pool.Shutdown()

	jobs := make([]workerpool.Job, 0, len(files))
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			issues = append(issues, issueFor("ERR_FILE_ACCESS", "warning", f, err))
			continue
		}
		jobs = append(jobs, workerpool.Job{File: f, Content: content})
	}

	results, err := pool.ParseAll(ctx, jobs)
	if err != nil && err != context.Canceled {
		return issues, fmt.Errorf("worker pool parse: %w", err)
	}

	for _, r := range results {
		metrics.RecordFileParsed(r.Err == nil, 0)
		if r.Err != nil {
			issues = append(issues, issueFor("ERR_PARSE_FAILURE", "warning", r.File, r.Err))
			continue
		}
		if err := b.Build(ctx, scope.NormalizePath(r.File), r.Bundle); err != nil {
			issues = append(issues, issueFor("ERR_ANALYSIS_FAILURE", "warning", r.File, err))
		}
		reportEvery()
	}

	return issues, nil
}

func issueFor(code, severity, file string, err error) plugin.Issue {
	return plugin.Issue{Code: code, Severity: severity, Message: err.Error(), File: file, Phase: plugin.PhaseAnalysis}
}
