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

// Package builder turns a facts.Bundle into nodes and edges written
// through a graph.Backend, using direct typed AddNode/AddEdge calls
// against the GraphBackend method contract.
//
// Sub-builders run in a fixed order for each module: CoreBuilder,
// AssignmentBuilder, ReturnBuilder, MiscEdgeBuilder. Builder.Build
// (module, bundle) both stages and commits: there is no separate flush
// step, since AddNodes/AddEdges accept whole slices, so each module is
// written with one AddNodes and one AddEdges call.
package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kraklabs/grafema/pkg/facts"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/scope"
)

// Builder consumes one fact bundle at a time and writes its contribution
// to a graph.Backend. Not safe for concurrent use — the orchestrator
// calls Build from a single consumer goroutine.
type Builder struct {
	backend graph.Backend
	log     *slog.Logger
}

// New constructs a Builder writing to backend.
func New(backend graph.Backend, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{backend: backend, log: log}
}

// moduleCtx carries the per-module state every sub-builder needs: the
// staged nodes/edges, and the name→id index sub-builders use to resolve
// cross-references within the module (cross-module resolution is
// Enrichment's job, not the builder's).
type moduleCtx struct {
	file      string
	module    string // resolved id of the MODULE node, fallback parent for top-level facts
	resolver  *scope.CollisionResolver
	nodes     []graph.Node
	hints     [][]string // parallel to nodes: content hints for collision disambiguation
	edges     []graph.Edge
	byName    map[string]string // simple name -> node id, last write wins within module
	fnByScope map[string]string // scope-path string -> function node id, for param/return edges
}

// addNode stages a node whose ID is still a base id (pre-disambiguation).
// hints are the kind-specific content hints fed to the CollisionResolver
// once every sub-builder has run; see finalizeIDs.
func (m *moduleCtx) addNode(n graph.Node, hints ...string) {
	m.nodes = append(m.nodes, n)
	m.hints = append(m.hints, hints)
	if n.Name != "" {
		m.byName[n.Name] = n.ID
	}
}

func (m *moduleCtx) addEdge(e graph.Edge) {
	m.edges = append(m.edges, e)
}

// finalizeIDs runs every staged node's base id through m.resolver and
// rewrites node ids and edge endpoints to the resolved ids. It must run
// once, after all four sub-builders have finished staging nodes/edges,
// so that sibling collisions anywhere in the module are visible to the
// resolver in a single pass, ahead of any cross-reference resolution.
func (m *moduleCtx) finalizeIDs() {
	candidates := make([]*scope.Candidate, len(m.nodes))
	for i, n := range m.nodes {
		candidates[i] = m.resolver.Add(n.ID, m.hints[i]...)
	}
	m.resolver.Resolve()

	remap := make(map[string]string, len(m.nodes))
	for i, n := range m.nodes {
		remap[n.ID] = candidates[i].ResolvedID
	}

	for i := range m.nodes {
		m.nodes[i].ID = candidates[i].ResolvedID
	}
	for i, e := range m.edges {
		if resolved, ok := remap[e.Src]; ok {
			m.edges[i].Src = resolved
		}
		if resolved, ok := remap[e.Dst]; ok {
			m.edges[i].Dst = resolved
		}
	}
	for name, id := range m.byName {
		if resolved, ok := remap[id]; ok {
			m.byName[name] = resolved
		}
	}
	for key, id := range m.fnByScope {
		if resolved, ok := remap[id]; ok {
			m.fnByScope[key] = resolved
		}
	}
}

func scopeKey(segs []string) string {
	s := ""
	for _, seg := range segs {
		s += seg + "/"
	}
	return s
}

// Build runs all four sub-builders over bundle in order and commits the
// result to the backend. module is the MODULE node's already-resolved id
// (assigned by the orchestrator's Indexing phase).
func (b *Builder) Build(ctx context.Context, module string, bundle *facts.Bundle) error {
	m := &moduleCtx{
		file:      bundle.File,
		module:    module,
		resolver:  scope.NewCollisionResolver(),
		byName:    make(map[string]string),
		fnByScope: make(map[string]string),
	}

	coreBuilder(m, module, bundle)
	assignmentBuilder(m, bundle)
	returnBuilder(m, bundle)
	miscEdgeBuilder(m, bundle)

	m.finalizeIDs()

	if err := b.backend.AddNodes(ctx, m.nodes); err != nil {
		return fmt.Errorf("builder: add nodes for %s: %w", bundle.File, err)
	}
	// skipValidation=true: some cross-reference edges point at names the
	// builder could not resolve within this module (they may resolve in
	// Enrichment, e.g. a call into another module); those are filtered
	// before this point, but an edge whose dst enrichment will create
	// later is still legitimate, so the builder does not hard-fail here.
	if err := b.backend.AddEdges(ctx, m.edges, true); err != nil {
		return fmt.Errorf("builder: add edges for %s: %w", bundle.File, err)
	}
	return nil
}
