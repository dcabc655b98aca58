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

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kraklabs/grafema/internal/contract"
	"github.com/kraklabs/grafema/pkg/analyzer"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
	"github.com/kraklabs/grafema/pkg/scope"
)

// analyzerForSequential constructs one Analyzer used across the whole
// sequential (non-parallel) Analysis run of a service, mirroring how a
// worker pool gives each worker exactly one long-lived *analyzer.Analyzer.
func analyzerForSequential() *analyzer.Analyzer {
	return analyzer.New()
}

// specifierPattern matches the import path / module specifier in an ES
// import, a bare `require(...)` call, and a `export ... from "..."`
// re-export -- the three ways Indexing follows file reachability. This
// is a lightweight scan, not a parse: Indexing only needs file
// reachability, the real per-node
// IMPORT facts (bindings, aliases, …) are extracted later by the
// analyzer during Analysis and linked up by the Enrichment phase's
// ImportExportLinker.
var specifierPattern = regexp.MustCompile(`(?:from\s+|require\s*\(\s*)['"]([^'"]+)['"]`)

var candidateExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// runIndexing walks from svc.Entrypoint following relative import/
// require/export-from specifiers, emitting one MODULE node per resolved
// file (id = the normalized file path, matching what the orchestrator
// later passes to builder.Build as the module id), a CONTAINS edge from
// the SERVICE node, and an IMPORTS edge between modules for every
// resolved relative specifier whose target file got a MODULE node
// (edges are added once the walk ends). Hard caps: at most
// maxModulesPerService modules, at most maxIndexDepth hops from the
// entrypoint -- either cap triggers a warning issue and stops the walk,
// it never fails the run.
func (o *Orchestrator) runIndexing(ctx context.Context, svc plugin.Service, opts Options) ([]string, []plugin.Issue, error) {
	var issues []plugin.Issue

	serviceID := "SERVICE->" + scope.NormalizePath(svc.RootPath)
	if err := o.backend.AddNode(ctx, graph.Node{
		ID: serviceID, Type: graph.KindService, Name: svc.Name, File: svc.RootPath,
		Attrs: map[string]any{"serviceType": svc.ServiceType, "language": svc.Language},
	}); err != nil {
		return nil, issues, err
	}

	entrypoint := svc.Entrypoint
	if entrypoint == "" {
		return nil, issues, nil
	}
	entrypoint, err := filepath.Abs(entrypoint)
	if err != nil {
		entrypoint = svc.Entrypoint
	}

	type queued struct {
		path  string
		depth int
	}

	seen := map[string]bool{}
	added := map[string]bool{}
	var importEdges []graph.Edge
	modules := make([]string, 0, 64)
	queue := []queued{{path: entrypoint, depth: 0}}
	depthCapHit := false

	for len(queue) > 0 {
		if isCancelled(ctx) {
			break
		}
		head := queue[0]
		queue = queue[1:]

		norm := scope.NormalizePath(head.path)
		if seen[norm] {
			continue
		}
		seen[norm] = true

		if len(modules) >= maxModulesPerService {
			issues = append(issues, plugin.Issue{
				Code: "WARN_MODULE_CAP", Severity: "warning", Phase: plugin.PhaseIndexing,
				Message: "service exceeds max modules per service, traversal stopped",
				File:    svc.RootPath,
			})
			break
		}
		if head.depth > maxIndexDepth {
			if !depthCapHit {
				depthCapHit = true
				issues = append(issues, plugin.Issue{
					Code: "WARN_DEPTH_CAP", Severity: "warning", Phase: plugin.PhaseIndexing,
					Message: "import depth exceeds max index depth, traversal stopped",
					File:    head.path,
				})
			}
			continue
		}

		if info, err := os.Stat(head.path); err == nil {
			if result := contract.ValidateFileSize(head.path, info.Size()); !result.OK {
				issues = append(issues, plugin.Issue{
					Code: "WARN_FILE_TOO_LARGE", Severity: "warning", Phase: plugin.PhaseIndexing,
					Message: result.Message, File: head.path,
				})
				continue
			}
		}

		content, err := os.ReadFile(head.path)
		if err != nil {
			issues = append(issues, plugin.Issue{
				Code: "ERR_FILE_ACCESS", Severity: "warning", Phase: plugin.PhaseIndexing,
				Message: err.Error(), File: head.path,
			})
			continue
		}

		moduleID := norm
		isEntry := head.path == entrypoint
		nodeType := graph.KindModule
		if isEntry {
			nodeType = graph.KindEntrypoint
		}
		if err := o.backend.AddNode(ctx, graph.Node{
			ID: moduleID, Type: nodeType, Name: filepath.Base(head.path), File: head.path,
		}); err != nil {
			return nil, issues, err
		}
		added[moduleID] = true
		if err := o.backend.AddEdge(ctx, graph.Edge{Type: graph.EdgeContains, Src: serviceID, Dst: moduleID}); err != nil {
			return nil, issues, err
		}
		modules = append(modules, head.path)

		dir := filepath.Dir(head.path)
		for _, spec := range extractSpecifiers(content) {
			if !isRelativeImportSpecifier(spec) {
				continue
			}
			resolved, ok := resolveModuleSpecifier(dir, spec)
			if !ok {
				continue
			}
			resolvedNorm := scope.NormalizePath(resolved)
			importEdges = append(importEdges, graph.Edge{Type: graph.EdgeImports, Src: moduleID, Dst: resolvedNorm})
			if !seen[resolvedNorm] {
				queue = append(queue, queued{path: resolved, depth: head.depth + 1})
			}
		}
	}

	// The target MODULE node of an IMPORTS edge may be added after the
	// importer, so the edges wait for the walk to end; an edge to a file
	// that got no MODULE node (cap, size limit, read error) is dropped.
	for _, e := range importEdges {
		if !added[e.Dst] {
			continue
		}
		if err := o.backend.AddEdge(ctx, e); err != nil {
			return nil, issues, err
		}
	}

	return modules, issues, nil
}

func extractSpecifiers(content []byte) []string {
	matches := specifierPattern.FindAllSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, string(m[1]))
	}
	return out
}

func isRelativeImportSpecifier(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// resolveModuleSpecifier resolves a relative specifier against fromDir,
// trying the literal path, each candidateExtensions suffix, and the
// index.* convention for directory imports -- the same resolution
// order Node.js/bundler module resolution uses.
func resolveModuleSpecifier(fromDir, spec string) (string, bool) {
	base := filepath.Join(fromDir, spec)

	if fi, err := os.Stat(base); err == nil && !fi.IsDir() {
		return base, true
	}
	for _, ext := range candidateExtensions {
		if fi, err := os.Stat(base + ext); err == nil && !fi.IsDir() {
			return base + ext, true
		}
	}
	for _, ext := range candidateExtensions {
		idx := filepath.Join(base, "index"+ext)
		if fi, err := os.Stat(idx); err == nil && !fi.IsDir() {
			return idx, true
		}
	}
	return "", false
}
