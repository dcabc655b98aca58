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

// Package validation implements the Validation phase's read-only
// structural checks: a final pass over the assembled graph, run once
// at the end of the pipeline before a run is considered done, the same
// "validate once, at the end" placement as a pre-write sanity gate.
package validation

import (
	"github.com/kraklabs/grafema/pkg/analyzer"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// rootKinds are the BFS roots GraphConnectivityValidator starts from.
// There is no PROJECT node kind in this graph, so SERVICE and MODULE
// are the two roots that exist.
var rootKinds = []graph.NodeKind{graph.KindService, graph.KindModule}

// GraphConnectivityValidator checks that every non-EXTERNAL node is
// reachable from some root via CONTAINS/DECLARES/HAS_SCOPE edges —
// the graph's universal connectivity invariant.
type GraphConnectivityValidator struct{}

// Metadata implements plugin.Plugin.
func (GraphConnectivityValidator) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "graph_connectivity_validator", Phase: plugin.PhaseValidation, Priority: 100}
}

var connectivityEdgeKinds = []graph.EdgeKind{graph.EdgeContains, graph.EdgeDeclares, graph.EdgeHasScope}

// Execute implements plugin.Plugin.
func (GraphConnectivityValidator) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	reachable := make(map[string]bool)
	var queue []string
	for _, kind := range rootKinds {
		roots, err := backend.FindByType(ctx, kind)
		if err != nil {
			return plugin.Result{}, err
		}
		for _, r := range roots {
			if !reachable[r.ID] {
				reachable[r.ID] = true
				queue = append(queue, r.ID)
			}
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		out, err := backend.GetOutgoingEdges(ctx, id, connectivityEdgeKinds)
		if err != nil {
			return plugin.Result{}, err
		}
		for _, e := range out {
			if !reachable[e.Dst] {
				reachable[e.Dst] = true
				queue = append(queue, e.Dst)
			}
		}
		// "bidirectional": also walk incoming edges of the same kinds,
		// so a node reachable only via a back-reference still counts.
		in, err := backend.GetIncomingEdges(ctx, id, connectivityEdgeKinds)
		if err != nil {
			return plugin.Result{}, err
		}
		for _, e := range in {
			if !reachable[e.Src] {
				reachable[e.Src] = true
				queue = append(queue, e.Src)
			}
		}
	}

	result := plugin.Result{}
	counts := make(map[graph.NodeKind]int)
	it, err := backend.QueryNodes(ctx, func(n *graph.Node) bool {
		return n.Type != graph.KindExternal && !reachable[n.ID]
	})
	if err != nil {
		return plugin.Result{}, err
	}
	defer it.Close()

	for it.Next(ctx) {
		n := it.Node()
		counts[n.Type]++
		result.Issues = append(result.Issues, plugin.Issue{
			Code:     "ERR_UNREACHABLE_NODE",
			Severity: "warning",
			Message:  "node is not reachable from any SERVICE/MODULE root",
			File:     n.File,
			Phase:    plugin.PhaseValidation,
			Plugin:   "graph_connectivity_validator",
		})
	}
	if err := it.Err(); err != nil {
		return plugin.Result{}, err
	}
	return result, nil
}

// skippedImport reports the import kinds BrokenImportValidator does not
// flag even when unlinked: external packages, namespace imports, and
// type-only imports.
func skippedImport(n graph.Node) bool {
	if v, ok := n.Attr("namespace"); ok {
		if b, ok := v.(bool); ok && b {
			return true
		}
	}
	if v, ok := n.Attr("typeOnly"); ok {
		if b, ok := v.(bool); ok && b {
			return true
		}
	}
	importPath, _ := n.Attr("importPath")
	path, _ := importPath.(string)
	return path != "" && path[0] != '.' && path[0] != '/' // external package
}

// BrokenImportValidator flags IMPORTs lacking an IMPORTS_FROM edge and
// CALLs with no resolution at all, skipping method calls, locally
// defined names, imports, and known globals.
type BrokenImportValidator struct {
	KnownGlobals map[string]bool
}

// Metadata implements plugin.Plugin.
func (BrokenImportValidator) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "broken_import_validator", Phase: plugin.PhaseValidation, Priority: 90}
}

// Execute implements plugin.Plugin.
func (v BrokenImportValidator) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend
	known := v.KnownGlobals
	if known == nil {
		known = analyzer.DefaultKnownGlobals
	}

	imports, err := backend.FindByType(ctx, graph.KindImport)
	if err != nil {
		return plugin.Result{}, err
	}

	var result plugin.Result
	for _, imp := range imports {
		if skippedImport(imp) {
			continue
		}
		linked, err := backend.GetOutgoingEdges(ctx, imp.ID, []graph.EdgeKind{graph.EdgeImportsFrom})
		if err != nil {
			return plugin.Result{}, err
		}
		if len(linked) > 0 {
			continue
		}
		result.Issues = append(result.Issues, plugin.Issue{
			Code:     "ERR_BROKEN_IMPORT",
			Severity: "error",
			Message:  "import " + imp.Name + " has no matching export",
			File:     imp.File,
			Phase:    plugin.PhaseValidation,
			Plugin:   "broken_import_validator",
		})
	}

	calls, err := backend.FindByType(ctx, graph.KindCall)
	if err != nil {
		return plugin.Result{}, err
	}
	for _, call := range calls {
		if known[call.Name] {
			continue
		}
		if isBuiltin, ok := call.Attr("isBuiltin"); ok {
			if b, ok := isBuiltin.(bool); ok && b {
				continue
			}
		}
		out, err := backend.GetOutgoingEdges(ctx, call.ID, []graph.EdgeKind{graph.EdgeCalls})
		if err != nil {
			return plugin.Result{}, err
		}
		if len(out) > 0 {
			continue
		}
		result.Issues = append(result.Issues, plugin.Issue{
			Code:     "ERR_UNRESOLVED_CALL",
			Severity: "warning",
			Message:  "call to " + call.Name + " could not be resolved",
			File:     call.File,
			Phase:    plugin.PhaseValidation,
			Plugin:   "broken_import_validator",
		})
	}
	return result, nil
}
