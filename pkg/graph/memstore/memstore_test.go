// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
//
// SPDX-License-Identifier: Apache-2.0

package memstore

import (
	"context"
	"testing"

	"github.com/kraklabs/grafema/pkg/graph"
)

func TestAddNode_Idempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	n := graph.Node{ID: "func:a", Type: graph.KindFunction, Name: "a", File: "a.ts"}
	if err := s.AddNode(ctx, n); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	// Re-emitting the same id must be a no-op, not an error, and must not
	// change the stored node (even if attrs would differ).
	n2 := n
	n2.Name = "different"
	if err := s.AddNode(ctx, n2); err != nil {
		t.Fatalf("AddNode (re-emit): %v", err)
	}

	got, err := s.GetNode(ctx, "func:a")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got == nil || got.Name != "a" {
		t.Fatalf("expected idempotent insert to keep first value, got %+v", got)
	}

	count, _ := s.NodeCount(ctx)
	if count != 1 {
		t.Fatalf("expected 1 node, got %d", count)
	}
}

func TestAddEdge_RequiresResolvedEndpoints(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.AddNode(ctx, graph.Node{ID: "a", Type: graph.KindFunction}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	err := s.AddEdge(ctx, graph.Edge{Type: graph.EdgeCalls, Src: "a", Dst: "b"})
	if err == nil {
		t.Fatal("expected error for edge with unresolved dst")
	}

	if err := s.AddNode(ctx, graph.Node{ID: "b", Type: graph.KindFunction}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := s.AddEdge(ctx, graph.Edge{Type: graph.EdgeCalls, Src: "a", Dst: "b"}); err != nil {
		t.Fatalf("AddEdge after both endpoints exist: %v", err)
	}

	out, err := s.GetOutgoingEdges(ctx, "a", nil)
	if err != nil {
		t.Fatalf("GetOutgoingEdges: %v", err)
	}
	if len(out) != 1 || out[0].Dst != "b" {
		t.Fatalf("expected one outgoing edge to b, got %v", out)
	}
}

func TestDeleteNodesByFile_RemovesIncidentEdges(t *testing.T) {
	s := New()
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
		t.Fatalf("expected 1 remaining node (b.ts#g), got %d", count)
	}

	in, err := s.GetIncomingEdges(ctx, "func:b.ts#g", nil)
	if err != nil {
		t.Fatalf("GetIncomingEdges: %v", err)
	}
	if len(in) != 0 {
		t.Fatalf("expected the CALLS edge from the deleted module to be gone, got %v", in)
	}
}

func TestFindByType(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.AddNodes(ctx, []graph.Node{
		{ID: "f1", Type: graph.KindFunction},
		{ID: "f2", Type: graph.KindFunction},
		{ID: "v1", Type: graph.KindVariable},
	}); err != nil {
		t.Fatalf("AddNodes: %v", err)
	}

	funcs, err := s.FindByType(ctx, graph.KindFunction)
	if err != nil {
		t.Fatalf("FindByType: %v", err)
	}
	if len(funcs) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(funcs))
	}
}

func TestClear(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.AddNode(ctx, graph.Node{ID: "a", Type: graph.KindFunction})
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	count, _ := s.NodeCount(ctx)
	if count != 0 {
		t.Fatalf("expected empty store after Clear, got %d nodes", count)
	}
}
