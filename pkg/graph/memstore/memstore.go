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

// Package memstore is an in-memory graph.Backend implementation. It is the
// default backend: fast to construct, good for tests, and sufficient for
// one-shot CLI runs that don't need cross-process persistence.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/kraklabs/grafema/pkg/graph"
)

// Store is an in-memory, concurrency-safe graph.Backend.
//
// Reads take the read lock and may proceed concurrently with each other;
// writes take the write lock, matching the "concurrent reads during writes"
// posture the orchestrator's single mutation channel assumes.
type Store struct {
	mu     sync.RWMutex
	closed bool

	nodes   map[string]graph.Node
	byType  map[graph.NodeKind]map[string]struct{}
	byFile  map[string]map[string]struct{}
	outEdge map[string][]graph.Edge
	inEdge  map[string][]graph.Edge
}

// New creates an empty in-memory backend.
func New() *Store {
	return &Store{
		nodes:   make(map[string]graph.Node),
		byType:  make(map[graph.NodeKind]map[string]struct{}),
		byFile:  make(map[string]map[string]struct{}),
		outEdge: make(map[string][]graph.Edge),
		inEdge:  make(map[string][]graph.Edge),
	}
}

var _ graph.Backend = (*Store)(nil)

func (s *Store) AddNode(_ context.Context, node graph.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memstore: backend is closed")
	}
	s.addNodeLocked(node)
	return nil
}

func (s *Store) addNodeLocked(node graph.Node) {
	// Idempotent insert: re-emitting the same id is a no-op per the
	// backend's contract; the first write's fields and attrs are kept.
	if _, exists := s.nodes[node.ID]; exists {
		return
	}
	s.nodes[node.ID] = node

	if s.byType[node.Type] == nil {
		s.byType[node.Type] = make(map[string]struct{})
	}
	s.byType[node.Type][node.ID] = struct{}{}

	if node.File != "" {
		if s.byFile[node.File] == nil {
			s.byFile[node.File] = make(map[string]struct{})
		}
		s.byFile[node.File][node.ID] = struct{}{}
	}
}

func (s *Store) AddNodes(_ context.Context, nodes []graph.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memstore: backend is closed")
	}
	for _, n := range nodes {
		s.addNodeLocked(n)
	}
	return nil
}

func (s *Store) AddEdge(ctx context.Context, edge graph.Edge) error {
	return s.AddEdges(ctx, []graph.Edge{edge}, false)
}

func (s *Store) AddEdges(_ context.Context, edges []graph.Edge, skipValidation bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memstore: backend is closed")
	}
	for _, e := range edges {
		if !skipValidation {
			if _, ok := s.nodes[e.Src]; !ok {
				return fmt.Errorf("memstore: edge %s src %q does not resolve to a node", e.Type, e.Src)
			}
			if _, ok := s.nodes[e.Dst]; !ok {
				return fmt.Errorf("memstore: edge %s dst %q does not resolve to a node", e.Type, e.Dst)
			}
		}
		s.outEdge[e.Src] = append(s.outEdge[e.Src], e)
		s.inEdge[e.Dst] = append(s.inEdge[e.Dst], e)
	}
	return nil
}

func (s *Store) GetNode(_ context.Context, id string) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, nil
	}
	cp := n
	return &cp, nil
}

func (s *Store) FindByType(_ context.Context, kind graph.NodeKind) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byType[kind]
	out := make([]graph.Node, 0, len(ids))
	for id := range ids {
		out = append(out, s.nodes[id])
	}
	return out, nil
}

func (s *Store) FindByAttr(_ context.Context, attrs map[string]any) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []graph.Node
	for _, n := range s.nodes {
		if matchesAttrs(n, attrs) {
			out = append(out, n)
		}
	}
	return out, nil
}

func matchesAttrs(n graph.Node, want map[string]any) bool {
	for k, v := range want {
		got, ok := n.Attrs[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}

type sliceIterator struct {
	nodes []graph.Node
	idx   int
}

func (it *sliceIterator) Next(_ context.Context) bool {
	if it.idx >= len(it.nodes) {
		return false
	}
	it.idx++
	return true
}

func (it *sliceIterator) Node() *graph.Node {
	if it.idx == 0 || it.idx > len(it.nodes) {
		return nil
	}
	return &it.nodes[it.idx-1]
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }

func (s *Store) QueryNodes(_ context.Context, filter graph.NodeFilter) (graph.NodeIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]graph.Node, 0)
	for _, n := range s.nodes {
		if filter == nil || filter(&n) {
			matched = append(matched, n)
		}
	}
	return &sliceIterator{nodes: matched}, nil
}

func edgeTypeAllowed(e graph.Edge, types []graph.EdgeKind) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if e.Type == t {
			return true
		}
	}
	return false
}

func (s *Store) GetOutgoingEdges(_ context.Context, id string, types []graph.EdgeKind) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []graph.Edge
	for _, e := range s.outEdge[id] {
		if edgeTypeAllowed(e, types) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GetIncomingEdges(_ context.Context, id string, types []graph.EdgeKind) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []graph.Edge
	for _, e := range s.inEdge[id] {
		if edgeTypeAllowed(e, types) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) NodeCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), nil
}

func (s *Store) EdgeCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, es := range s.outEdge {
		total += len(es)
	}
	return total, nil
}

func (s *Store) CountNodesByType(_ context.Context, types []graph.NodeKind) (map[graph.NodeKind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[graph.NodeKind]int)
	if len(types) == 0 {
		for kind, ids := range s.byType {
			out[kind] = len(ids)
		}
		return out, nil
	}
	for _, kind := range types {
		out[kind] = len(s.byType[kind])
	}
	return out, nil
}

func (s *Store) CountEdgesByType(_ context.Context, types []graph.EdgeKind) (map[graph.EdgeKind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[graph.EdgeKind]int)
	want := make(map[graph.EdgeKind]bool)
	for _, t := range types {
		want[t] = true
	}
	for _, es := range s.outEdge {
		for _, e := range es {
			if len(types) == 0 || want[e.Type] {
				out[e.Type]++
			}
		}
	}
	return out, nil
}

// DeleteNodesByFile removes every node whose File matches path and every
// edge incident to one of those nodes. Used by incremental reanalysis
// (pkg/checkpoint) before a changed module is re-emitted.
func (s *Store) DeleteNodesByFile(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byFile[path]
	if len(ids) == 0 {
		return nil
	}

	doomed := make(map[string]struct{}, len(ids))
	for id := range ids {
		doomed[id] = struct{}{}
		n := s.nodes[id]
		delete(s.byType[n.Type], id)
		delete(s.nodes, id)
	}
	delete(s.byFile, path)

	for src, edges := range s.outEdge {
		if _, gone := doomed[src]; gone {
			delete(s.outEdge, src)
			continue
		}
		s.outEdge[src] = filterEdges(edges, doomed)
	}
	for dst, edges := range s.inEdge {
		if _, gone := doomed[dst]; gone {
			delete(s.inEdge, dst)
			continue
		}
		s.inEdge[dst] = filterEdges(edges, doomed)
	}
	return nil
}

func filterEdges(edges []graph.Edge, doomed map[string]struct{}) []graph.Edge {
	out := edges[:0]
	for _, e := range edges {
		_, srcGone := doomed[e.Src]
		_, dstGone := doomed[e.Dst]
		if !srcGone && !dstGone {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = make(map[string]graph.Node)
	s.byType = make(map[graph.NodeKind]map[string]struct{})
	s.byFile = make(map[string]map[string]struct{})
	s.outEdge = make(map[string][]graph.Edge)
	s.inEdge = make(map[string][]graph.Edge)
	return nil
}

func (s *Store) Flush(_ context.Context) error { return nil }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
