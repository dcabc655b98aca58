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

// Package enrichment implements the Enrichment phase's cross-module
// resolvers: a second pass over the assembled graph that queries and
// mutates it, run after every module's fact bundle has already been
// committed by pkg/builder.
//
// Each resolver builds an index first (module-path index, or an
// EXPORT-name-by-file registry), then resolves every unresolved
// reference against it in one pass. FunctionCallResolver switches to a
// parallel resolve above parallelThreshold candidate edges to avoid
// goroutine overhead on small graphs; the other resolvers run
// sequentially.
package enrichment

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// parallelThreshold: below this many candidate edges, sequential
// resolution avoids goroutine overhead.
const parallelThreshold = 1000

// jsExtensions are tried, in order, when resolving a relative import
// specifier without an explicit extension to a file on disk.
var jsExtensions = []string{".ts", ".tsx", ".js", ".jsx", "/index.ts", "/index.tsx", "/index.js", "/index.jsx"}

// ImportExportLinker matches each IMPORT to the EXPORT named in the
// destination MODULE and emits IMPORTS_FROM.
type ImportExportLinker struct{}

// Metadata implements plugin.Plugin.
func (ImportExportLinker) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "import_export_linker", Phase: plugin.PhaseEnrichment, Priority: 100}
}

// Execute implements plugin.Plugin.
func (ImportExportLinker) Execute(pc plugin.Context) (plugin.Result, error) {
	backend := pc.Backend
	ctx := pc.Ctx

	imports, err := backend.FindByType(ctx, graph.KindImport)
	if err != nil {
		return plugin.Result{}, err
	}
	exports, err := backend.FindByType(ctx, graph.KindExport)
	if err != nil {
		return plugin.Result{}, err
	}

	// Index exports by (resolved file, exported name).
	type exportKey struct {
		file string
		name string
	}
	exportIndex := make(map[exportKey]string, len(exports))
	for _, e := range exports {
		exportIndex[exportKey{file: e.File, name: e.Name}] = e.ID
	}

	var result plugin.Result
	for _, imp := range imports {
		importPath, _ := imp.Attr("importPath")
		pathStr, _ := importPath.(string)
		if pathStr == "" || !isRelativeSpecifier(pathStr) {
			continue // external package import; no resolver links it
		}

		targetFile := resolveRelativeImport(filepath.Dir(imp.File), pathStr, exports)
		if targetFile == "" {
			continue
		}

		importedName, _ := imp.Attr("importedName")
		name, _ := importedName.(string)
		isDefault, _ := imp.Attr("default")
		if d, ok := isDefault.(bool); ok && d {
			name = "default"
		}

		if dstID, ok := exportIndex[exportKey{file: targetFile, name: name}]; ok {
			if err := backend.AddEdge(ctx, graph.Edge{Type: graph.EdgeImportsFrom, Src: imp.ID, Dst: dstID}); err != nil {
				return result, err
			}
			result.EdgesAdded++
		}
		// No match: left as a dangling IMPORT, flagged later by
		// BrokenImportValidator — the builder policy of "never invent
		// a destination" extends to Enrichment too.
	}
	return result, nil
}

// isRelativeSpecifier reports whether an import specifier is a
// relative or absolute path rather than a bare package name.
func isRelativeSpecifier(spec string) bool {
	return strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/")
}

// resolveRelativeImport resolves a relative specifier against fromDir
// to the File path of an actual MODULE that has exports, trying each
// of jsExtensions plus the literal specifier itself.
func resolveRelativeImport(fromDir, spec string, exports []graph.Node) string {
	candidates := make(map[string]bool, len(exports))
	for _, e := range exports {
		candidates[e.File] = true
	}

	base := filepath.Clean(filepath.Join(fromDir, spec))
	if candidates[base] {
		return base
	}
	for _, ext := range jsExtensions {
		if candidates[base+ext] {
			return base + ext
		}
	}
	return ""
}

// FunctionCallResolver resolves CALL targets through local definitions
// and IMPORTS_FROM edges, emitting CALLS edges for the calls the
// CoreBuilder left unlinked at build time (the builder matches a callee
// by name within one module only): calls to a FUNCTION of the same file,
// and calls to functions imported from another module.
type FunctionCallResolver struct{}

// Metadata implements plugin.Plugin.
func (FunctionCallResolver) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name: "function_call_resolver", Phase: plugin.PhaseEnrichment, Priority: 90,
		Dependencies: []string{"import_export_linker"},
	}
}

type unresolvedCall struct {
	callID   string
	callerID string
	file     string
	name     string
}

// Execute implements plugin.Plugin.
func (FunctionCallResolver) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	functions, err := backend.FindByType(ctx, graph.KindFunction)
	if err != nil {
		return plugin.Result{}, err
	}
	// fileFunctions: file -> name -> functionID, the same-file lookup for
	// calls that still have no CALLS edge.
	fileFunctions := make(map[string]map[string]string, len(functions))
	for _, fn := range functions {
		m := fileFunctions[fn.File]
		if m == nil {
			m = make(map[string]string)
			fileFunctions[fn.File] = m
		}
		m[fn.Name] = fn.ID
	}

	calls, err := backend.FindByType(ctx, graph.KindCall)
	if err != nil {
		return plugin.Result{}, err
	}

	var unresolved []unresolvedCall
	for _, call := range calls {
		outgoing, err := backend.GetOutgoingEdges(ctx, call.ID, []graph.EdgeKind{graph.EdgeCalls})
		if err != nil {
			return plugin.Result{}, err
		}
		if len(outgoing) > 0 {
			continue // already resolved locally by CoreBuilder
		}
		incoming, err := backend.GetIncomingEdges(ctx, call.ID, []graph.EdgeKind{graph.EdgeContains})
		if err != nil {
			return plugin.Result{}, err
		}
		callerID := ""
		if len(incoming) > 0 {
			callerID = incoming[0].Src
		}
		unresolved = append(unresolved, unresolvedCall{callID: call.ID, callerID: callerID, file: call.File, name: call.Name})
	}

	edges := resolveCalls(unresolved, fileFunctions, importsFromIndex(ctx, backend))

	var result plugin.Result
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		key := e.Src + "->" + e.Dst
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := backend.AddEdge(ctx, e); err != nil {
			return result, err
		}
		result.EdgesAdded++
	}
	return result, nil
}

// importsFromIndex maps file -> imported name -> target function id,
// derived by following IMPORT --IMPORTS_FROM--> EXPORT --CONTAINS--> fn
// (the CONTAINS edge the builder draws from an EXPORT back to its
// local binding, see pkg/builder/misc.go buildExports).
func importsFromIndex(ctx context.Context, backend graph.Backend) map[string]map[string]string {
	idx := make(map[string]map[string]string)
	imports, err := backend.FindByType(ctx, graph.KindImport)
	if err != nil {
		return idx
	}
	for _, imp := range imports {
		linked, err := backend.GetOutgoingEdges(ctx, imp.ID, []graph.EdgeKind{graph.EdgeImportsFrom})
		if err != nil || len(linked) == 0 {
			continue
		}
		exportNode, err := backend.GetNode(ctx, linked[0].Dst)
		if err != nil || exportNode == nil {
			continue
		}
		boundTo, err := backend.GetOutgoingEdges(ctx, exportNode.ID, []graph.EdgeKind{graph.EdgeContains})
		if err != nil || len(boundTo) == 0 {
			continue
		}
		importedName, _ := imp.Attr("importedName")
		name, _ := importedName.(string)
		if name == "" {
			continue
		}
		m := idx[imp.File]
		if m == nil {
			m = make(map[string]string)
			idx[imp.File] = m
		}
		m[name] = boundTo[0].Dst
	}
	return idx
}

// resolveCalls mirrors CallResolver.ResolveCalls: sequential below
// parallelThreshold, a capped worker pool above it, both read-only
// against the index built up front.
func resolveCalls(calls []unresolvedCall, sameFile map[string]map[string]string, imported map[string]map[string]string) []graph.Edge {
	resolve := func(c unresolvedCall) string {
		if c.callerID == "" {
			return ""
		}
		if fn, ok := sameFile[c.file][c.name]; ok {
			return fn
		}
		if fn, ok := imported[c.file][c.name]; ok {
			return fn
		}
		return ""
	}

	if len(calls) < parallelThreshold {
		var edges []graph.Edge
		for _, c := range calls {
			if target := resolve(c); target != "" {
				edges = append(edges, graph.Edge{Type: graph.EdgeCalls, Src: c.callID, Dst: target})
			}
		}
		return edges
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > 8 {
		numWorkers = 8
	}
	jobs := make(chan int, len(calls))
	results := make(chan graph.Edge, len(calls))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if target := resolve(calls[i]); target != "" {
					results <- graph.Edge{Type: graph.EdgeCalls, Src: calls[i].callID, Dst: target}
				}
			}
		}()
	}
	for i := range calls {
		jobs <- i
	}
	close(jobs)
	go func() { wg.Wait(); close(results) }()

	var edges []graph.Edge
	for e := range results {
		edges = append(edges, e)
	}
	return edges
}
