// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package graph

import "context"

// NodeFilter is a predicate used by QueryNodes for lazy iteration over the
// node set. It returns true for nodes that should be yielded.
type NodeFilter func(*Node) bool

// NodeIterator is returned by QueryNodes. Next advances the cursor and
// returns false when exhausted; Node returns the current element.
type NodeIterator interface {
	Next(ctx context.Context) bool
	Node() *Node
	Err() error
	Close() error
}

// Backend is the single external touchpoint the analysis engine depends on.
// It is implemented by graph/memstore and graph/sqlitestore in this module,
// and may be implemented by an entirely separate system in production; the
// engine only ever talks to this interface.
//
// All node insertion is idempotent: adding a node whose id already exists
// is a no-op in both shipped backends (the first write is kept) rather
// than an error.
type Backend interface {
	AddNode(ctx context.Context, node Node) error
	AddNodes(ctx context.Context, nodes []Node) error
	AddEdge(ctx context.Context, edge Edge) error
	AddEdges(ctx context.Context, edges []Edge, skipValidation bool) error

	GetNode(ctx context.Context, id string) (*Node, error)
	FindByType(ctx context.Context, kind NodeKind) ([]Node, error)
	FindByAttr(ctx context.Context, attrs map[string]any) ([]Node, error)
	QueryNodes(ctx context.Context, filter NodeFilter) (NodeIterator, error)

	GetOutgoingEdges(ctx context.Context, id string, types []EdgeKind) ([]Edge, error)
	GetIncomingEdges(ctx context.Context, id string, types []EdgeKind) ([]Edge, error)

	NodeCount(ctx context.Context) (int, error)
	EdgeCount(ctx context.Context) (int, error)
	CountNodesByType(ctx context.Context, types []NodeKind) (map[NodeKind]int, error)
	CountEdgesByType(ctx context.Context, types []EdgeKind) (map[EdgeKind]int, error)

	// DeleteNodesByFile removes every node whose File field equals path,
	// along with any edge incident to one of those nodes. It is the
	// primitive incremental reanalysis is built on (see pkg/checkpoint):
	// before re-emitting a changed module, the orchestrator deletes its
	// previous contribution to the graph.
	DeleteNodesByFile(ctx context.Context, path string) error

	Clear(ctx context.Context) error
	Flush(ctx context.Context) error
	Close() error
}
