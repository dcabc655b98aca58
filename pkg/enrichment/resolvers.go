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

package enrichment

import (
	"context"
	"strings"

	"github.com/kraklabs/grafema/pkg/analyzer"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// MethodCallResolver maps method calls to CLASS/INTERFACE methods via
// USES -> CLASS chains: for `obj.method()`, it follows
// the METHOD_CALL's USES edge to the receiver VARIABLE, then that
// variable's HAS_TYPE edge (when present) to a CLASS, and finally
// matches a METHOD of that class by name.
type MethodCallResolver struct{}

// Metadata implements plugin.Plugin.
func (MethodCallResolver) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "method_call_resolver", Phase: plugin.PhaseEnrichment, Priority: 80}
}

// Execute implements plugin.Plugin.
func (MethodCallResolver) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	classes, err := backend.FindByType(ctx, graph.KindClass)
	if err != nil {
		return plugin.Result{}, err
	}
	methods, err := backend.FindByType(ctx, graph.KindMethod)
	if err != nil {
		return plugin.Result{}, err
	}
	methodsByOwner := make(map[string]map[string]string, len(classes))
	for _, m := range methods {
		owners, err := backend.GetIncomingEdges(ctx, m.ID, []graph.EdgeKind{graph.EdgeContains})
		if err != nil || len(owners) == 0 {
			continue
		}
		bucket := methodsByOwner[owners[0].Src]
		if bucket == nil {
			bucket = make(map[string]string)
			methodsByOwner[owners[0].Src] = bucket
		}
		bucket[m.Name] = m.ID
	}

	methodCalls, err := backend.FindByType(ctx, graph.KindMethodCall)
	if err != nil {
		return plugin.Result{}, err
	}

	var result plugin.Result
	for _, call := range methodCalls {
		usesEdges, err := backend.GetOutgoingEdges(ctx, call.ID, []graph.EdgeKind{graph.EdgeUses})
		if err != nil || len(usesEdges) == 0 {
			continue
		}
		receiver, err := backend.GetNode(ctx, usesEdges[0].Dst)
		if err != nil || receiver == nil {
			continue
		}
		typeEdges, err := backend.GetOutgoingEdges(ctx, receiver.ID, []graph.EdgeKind{graph.EdgeHasType})
		if err != nil || len(typeEdges) == 0 {
			continue
		}
		classID := typeEdges[0].Dst
		bucket, ok := methodsByOwner[classID]
		if !ok {
			continue
		}
		methodID, ok := bucket[call.Name]
		if !ok {
			continue
		}
		if err := backend.AddEdge(ctx, graph.Edge{Type: graph.EdgeCalls, Src: call.ID, Dst: methodID}); err != nil {
			return result, err
		}
		result.EdgesAdded++
	}
	return result, nil
}

// ClosureCaptureEnricher draws CAPTURES edges from a function's SCOPE
// to every node the function READS_FROM but does not itself DECLARE.
// It applies to every FUNCTION that has a HAS_SCOPE edge, nested or
// not, and does not check where the read target was declared.
type ClosureCaptureEnricher struct{}

// Metadata implements plugin.Plugin.
func (ClosureCaptureEnricher) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "closure_capture_enricher", Phase: plugin.PhaseEnrichment, Priority: 70}
}

// Execute implements plugin.Plugin.
func (ClosureCaptureEnricher) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	functions, err := backend.FindByType(ctx, graph.KindFunction)
	if err != nil {
		return plugin.Result{}, err
	}

	var result plugin.Result
	for _, fn := range functions {
		scopeEdges, err := backend.GetOutgoingEdges(ctx, fn.ID, []graph.EdgeKind{graph.EdgeHasScope})
		if err != nil || len(scopeEdges) == 0 {
			continue
		}
		reads, err := backend.GetOutgoingEdges(ctx, fn.ID, []graph.EdgeKind{graph.EdgeReadsFrom})
		if err != nil {
			continue
		}
		declared, err := backend.GetOutgoingEdges(ctx, fn.ID, []graph.EdgeKind{graph.EdgeDeclares})
		if err != nil {
			continue
		}
		local := make(map[string]bool, len(declared))
		for _, d := range declared {
			local[d.Dst] = true
		}
		for _, r := range reads {
			if local[r.Dst] {
				continue // reads its own local binding, not a capture
			}
			if err := backend.AddEdge(ctx, graph.Edge{Type: graph.EdgeCaptures, Src: scopeEdges[0].Dst, Dst: r.Dst}); err != nil {
				return result, err
			}
			result.EdgesAdded++
		}
	}
	return result, nil
}

// AliasTracker collapses single-assignment VARIABLE chains: when `b`
// is declared with `const b = a;` and `a` is never reassigned, adds an
// ALIASES edge from `b` to `a`'s ultimate source so downstream data-flow
// queries don't have to walk the ASSIGNED_FROM chain themselves.
type AliasTracker struct{}

// Metadata implements plugin.Plugin.
func (AliasTracker) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "alias_tracker", Phase: plugin.PhaseEnrichment, Priority: 60}
}

// Execute implements plugin.Plugin.
func (AliasTracker) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	variables, err := backend.FindByType(ctx, graph.KindVariable)
	if err != nil {
		return plugin.Result{}, err
	}

	var result plugin.Result
	for _, v := range variables {
		chain, err := backend.GetOutgoingEdges(ctx, v.ID, []graph.EdgeKind{graph.EdgeAssignedFrom})
		if err != nil || len(chain) != 1 {
			continue // only single-assignment chains are safe to collapse
		}
		cur := chain[0].Dst
		seen := map[string]bool{v.ID: true}
		for {
			if seen[cur] {
				break // cycle guard; shouldn't happen but never infinite-loop
			}
			seen[cur] = true
			next, err := backend.GetOutgoingEdges(ctx, cur, []graph.EdgeKind{graph.EdgeAssignedFrom})
			if err != nil || len(next) != 1 {
				break
			}
			cur = next[0].Dst
		}
		if cur == v.ID || cur == chain[0].Dst {
			continue
		}
		if err := backend.AddEdge(ctx, graph.Edge{Type: graph.EdgeAliases, Src: v.ID, Dst: cur}); err != nil {
			return result, err
		}
		result.EdgesAdded++
	}
	return result, nil
}

// HTTPConnectionEnricher draws DEPENDS_ON edges between services when
// one service's CALL targets a known HTTP client pattern (fetch/axios/
// http.request) whose first argument literal contains another
// service's name, approximating an HTTP fan-out without full URL
// routing tables.
type HTTPConnectionEnricher struct{}

// Metadata implements plugin.Plugin.
func (HTTPConnectionEnricher) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "http_connection_enricher", Phase: plugin.PhaseEnrichment, Priority: 50}
}

var httpClientCallNames = map[string]bool{"fetch": true, "axios": true, "request": true}

// Execute implements plugin.Plugin.
func (HTTPConnectionEnricher) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	calls, err := backend.FindByType(ctx, graph.KindCall)
	if err != nil {
		return plugin.Result{}, err
	}
	services, err := backend.FindByType(ctx, graph.KindService)
	if err != nil {
		return plugin.Result{}, err
	}

	var result plugin.Result
	for _, call := range calls {
		if !httpClientCallNames[call.Name] {
			continue
		}
		owner, err := serviceOf(ctx, backend, call.ID)
		if err != nil || owner == "" {
			continue
		}
		for _, svc := range services {
			if svc.ID == owner {
				continue
			}
			if containsName(call.Name, svc.Name) {
				if err := backend.AddEdge(ctx, graph.Edge{Type: graph.EdgeDependsOn, Src: owner, Dst: svc.ID}); err != nil {
					return result, err
				}
				result.EdgesAdded++
			}
		}
	}
	return result, nil
}

// serviceOf walks CONTAINS edges backward from nodeID until it reaches
// a SERVICE-kind node, capped at depth 64 to guard against a malformed
// cycle in the graph.
func serviceOf(ctx context.Context, backend graph.Backend, nodeID string) (string, error) {
	cur := nodeID
	for i := 0; i < 64; i++ {
		node, err := backend.GetNode(ctx, cur)
		if err != nil {
			return "", err
		}
		if node != nil && node.Type == graph.KindService {
			return node.ID, nil
		}
		incoming, err := backend.GetIncomingEdges(ctx, cur, []graph.EdgeKind{graph.EdgeContains})
		if err != nil || len(incoming) == 0 {
			return "", nil
		}
		cur = incoming[0].Src
	}
	return "", nil
}

func containsName(haystack, needle string) bool {
	return needle != "" && strings.Contains(haystack, needle)
}

// InstanceOfResolver draws a HAS_TYPE edge to the CLASS named X from
// every node assigned from a `new X()` call (each ASSIGNED_FROM source
// of the CONSTRUCTOR_CALL), when a CLASS of that name exists in the
// graph, so MethodCallResolver can follow the variable to its class.
type InstanceOfResolver struct{}

// Metadata implements plugin.Plugin.
func (InstanceOfResolver) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "instanceof_resolver", Phase: plugin.PhaseEnrichment, Priority: 40}
}

// Execute implements plugin.Plugin.
func (InstanceOfResolver) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend

	ctors, err := backend.FindByType(ctx, graph.KindCtorCall)
	if err != nil {
		return plugin.Result{}, err
	}
	classes, err := backend.FindByType(ctx, graph.KindClass)
	if err != nil {
		return plugin.Result{}, err
	}
	classByName := make(map[string]string, len(classes))
	for _, c := range classes {
		classByName[c.Name] = c.ID
	}

	var result plugin.Result
	for _, ctor := range ctors {
		classID, ok := classByName[ctor.Name]
		if !ok {
			continue
		}
		assigned, err := backend.GetIncomingEdges(ctx, ctor.ID, []graph.EdgeKind{graph.EdgeAssignedFrom})
		if err != nil {
			continue
		}
		for _, a := range assigned {
			if err := backend.AddEdge(ctx, graph.Edge{Type: graph.EdgeHasType, Src: a.Src, Dst: classID}); err != nil {
				return result, err
			}
			result.EdgesAdded++
		}
	}
	return result, nil
}

// NodejsBuiltinsResolver marks CALL nodes named after known Node.js and
// ECMAScript globals (analyzer.DefaultKnownGlobals, extended by
// config.Analysis.KnownGlobals) so BrokenImportValidator can skip them
// rather than flag every `console.log`/`process.env` as an unresolved
// reference.
type NodejsBuiltinsResolver struct {
	KnownGlobals map[string]bool
}

// Metadata implements plugin.Plugin.
func (NodejsBuiltinsResolver) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "nodejs_builtins_resolver", Phase: plugin.PhaseEnrichment, Priority: 30}
}

// Execute implements plugin.Plugin.
func (r NodejsBuiltinsResolver) Execute(pc plugin.Context) (plugin.Result, error) {
	ctx := pc.Ctx
	backend := pc.Backend
	known := r.KnownGlobals
	if known == nil {
		known = analyzer.DefaultKnownGlobals
	}

	calls, err := backend.FindByType(ctx, graph.KindCall)
	if err != nil {
		return plugin.Result{}, err
	}
	var result plugin.Result
	for _, call := range calls {
		if !known[call.Name] {
			continue
		}
		call.SetAttr("isBuiltin", true)
		if err := backend.AddNode(ctx, call); err != nil {
			return result, err
		}
	}
	return result, nil
}
