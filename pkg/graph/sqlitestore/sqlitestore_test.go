// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kraklabs/grafema/pkg/graph"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := setupTestStore(t)
	count, err := s.NodeCount(context.Background())
	if err != nil {
		t.Fatalf("NodeCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty store, got %d nodes", count)
	}
}

func TestAddNode_PersistsAndIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	n := graph.Node{ID: "func:a", Type: graph.KindFunction, Name: "a", File: "a.ts"}
	if err := s.AddNode(ctx, n); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := s.AddNode(ctx, n); err != nil {
		t.Fatalf("AddNode (re-emit): %v", err)
	}

	count, _ := s.NodeCount(ctx)
	if count != 1 {
		t.Fatalf("expected 1 node after idempotent re-emit, got %d", count)
	}

	got, err := s.GetNode(ctx, "func:a")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got == nil || got.Name != "a" {
		t.Fatalf("expected round-tripped node, got %+v", got)
	}
}

func TestAddEdge_RequiresResolvedEndpoints(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.AddNode(ctx, graph.Node{ID: "a", Type: graph.KindFunction}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := s.AddEdge(ctx, graph.Edge{Type: graph.EdgeCalls, Src: "a", Dst: "missing"}); err == nil {
		t.Fatal("expected error for edge with unresolved dst")
	}
}

func TestDeleteNodesByFile_RemovesIncidentEdges(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	nodes := []graph.Node{
		{ID: "mod:a.ts", Type: graph.KindModule, File: "a.ts"},
		{ID: "func:a.ts#f", Type: graph.KindFunction, File: "a.ts"},
		{ID: "func:b.ts#g", Type: graph.KindFunction, File: "b.ts"},
	}
	if err := s.AddNodes(ctx, nodes); err != nil {
		t.Fatalf("AddNodes: %v", err)
	}
	edges := []graph.Edge{
		{Type: graph.EdgeContains, Src: "mod:a.ts", Dst: "func:a.ts#f"},
		{Type: graph.EdgeCalls, Src: "func:a.ts#f", Dst: "func:b.ts#g"},
	}
	if err := s.AddEdges(ctx, edges, false); err != nil {
		t.Fatalf("AddEdges: %v", err)
	}

	if err := s.DeleteNodesByFile(ctx, "a.ts"); err != nil {
		t.Fatalf("DeleteNodesByFile: %v", err)
	}

	count, _ := s.NodeCount(ctx)
	if count != 1 {
		t.Fatalf("expected 1 remaining node, got %d", count)
	}
	in, err := s.GetIncomingEdges(ctx, "func:b.ts#g", nil)
	if err != nil {
		t.Fatalf("GetIncomingEdges: %v", err)
	}
	if len(in) != 0 {
		t.Fatalf("expected incident edge to be pruned, got %v", in)
	}
}
