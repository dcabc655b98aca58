// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package sqlitestore is a SQLite-persisted graph.Backend. Unlike
// memstore it survives process restarts, which incremental reanalysis
// (pkg/checkpoint) depends on: a checkpoint recording "file X unchanged
// since last run" is only useful if X's prior nodes are still on disk.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kraklabs/grafema/pkg/graph"
)

// Store is a graph.Backend backed by a single SQLite file.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Config configures the on-disk backend.
type Config struct {
	// Path is the sqlite database file. Defaults to
	// "<ProjectID>.grafema.db" under DataDir if empty.
	Path string

	// DataDir is used to derive Path when Path is empty. Defaults to
	// ~/.grafema/data.
	DataDir string

	// ProjectID namespaces the default Path.
	ProjectID string
}

// Open creates (or reopens) a SQLite-backed backend and ensures its
// schema exists.
func Open(cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		dataDir := cfg.DataDir
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("sqlitestore: get home dir: %w", err)
			}
			dataDir = filepath.Join(home, ".grafema", "data")
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlitestore: create data dir: %w", err)
		}
		name := cfg.ProjectID
		if name == "" {
			name = "default"
		}
		path = filepath.Join(dataDir, name+".grafema.db")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

var _ graph.Backend = (*Store)(nil)

// ensureSchema creates the node/edge tables if they don't exist. Safe to
// call multiple times.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS grafema_nodes (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			name TEXT,
			file TEXT,
			line INTEGER,
			column INTEGER,
			attrs TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_grafema_nodes_type ON grafema_nodes(type)`,
		`CREATE INDEX IF NOT EXISTS idx_grafema_nodes_file ON grafema_nodes(file)`,
		`CREATE TABLE IF NOT EXISTS grafema_edges (
			type TEXT NOT NULL,
			src TEXT NOT NULL,
			dst TEXT NOT NULL,
			meta TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_grafema_edges_src ON grafema_edges(src)`,
		`CREATE INDEX IF NOT EXISTS idx_grafema_edges_dst ON grafema_edges(dst)`,
		`CREATE INDEX IF NOT EXISTS idx_grafema_edges_type ON grafema_edges(type)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlitestore: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) AddNode(ctx context.Context, node graph.Node) error {
	return s.AddNodes(ctx, []graph.Node{node})
}

func (s *Store) AddNodes(ctx context.Context, nodes []graph.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sqlitestore: backend is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO grafema_nodes
		(id, type, name, file, line, column, attrs) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitestore: prepare insert node: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		attrsJSON, err := json.Marshal(n.Attrs)
		if err != nil {
			return fmt.Errorf("sqlitestore: marshal attrs for %s: %w", n.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, n.ID, string(n.Type), n.Name, n.File, n.Line, n.Column, string(attrsJSON)); err != nil {
			return fmt.Errorf("sqlitestore: insert node %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) AddEdge(ctx context.Context, edge graph.Edge) error {
	return s.AddEdges(ctx, []graph.Edge{edge}, false)
}

func (s *Store) AddEdges(ctx context.Context, edges []graph.Edge, skipValidation bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sqlitestore: backend is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin tx: %w", err)
	}
	defer tx.Rollback()

	if !skipValidation {
		exists, err := tx.PrepareContext(ctx, `SELECT 1 FROM grafema_nodes WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("sqlitestore: prepare node-exists check: %w", err)
		}
		defer exists.Close()
		for _, e := range edges {
			var dummy int
			if err := exists.QueryRowContext(ctx, e.Src).Scan(&dummy); err != nil {
				return fmt.Errorf("sqlitestore: edge %s src %q does not resolve to a node", e.Type, e.Src)
			}
			if err := exists.QueryRowContext(ctx, e.Dst).Scan(&dummy); err != nil {
				return fmt.Errorf("sqlitestore: edge %s dst %q does not resolve to a node", e.Type, e.Dst)
			}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO grafema_edges (type, src, dst, meta) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitestore: prepare insert edge: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		metaJSON, err := json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("sqlitestore: marshal meta: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, string(e.Type), e.Src, e.Dst, string(metaJSON)); err != nil {
			return fmt.Errorf("sqlitestore: insert edge: %w", err)
		}
	}
	return tx.Commit()
}

func scanNode(row interface {
	Scan(dest ...any) error
}) (*graph.Node, error) {
	var n graph.Node
	var kind string
	var attrsJSON sql.NullString
	if err := row.Scan(&n.ID, &kind, &n.Name, &n.File, &n.Line, &n.Column, &attrsJSON); err != nil {
		return nil, err
	}
	n.Type = graph.NodeKind(kind)
	if attrsJSON.Valid && attrsJSON.String != "" && attrsJSON.String != "null" {
		if err := json.Unmarshal([]byte(attrsJSON.String), &n.Attrs); err != nil {
			return nil, fmt.Errorf("sqlitestore: unmarshal attrs for %s: %w", n.ID, err)
		}
	}
	return &n, nil
}

func (s *Store) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, type, name, file, line, column, attrs FROM grafema_nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: get node %s: %w", id, err)
	}
	return n, nil
}

func (s *Store) FindByType(ctx context.Context, kind graph.NodeKind) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, name, file, line, column, attrs FROM grafema_nodes WHERE type = ?`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: find by type: %w", err)
	}
	defer rows.Close()
	return collectNodes(rows)
}

func collectNodes(rows *sql.Rows) ([]graph.Node, error) {
	var out []graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// FindByAttr scans every node and matches on the decoded Attrs map.
// Acceptable for the module-scale graphs this backend targets; a large
// corpus should keep hot lookups in memstore or add generated columns.
func (s *Store) FindByAttr(ctx context.Context, attrs map[string]any) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, name, file, line, column, attrs FROM grafema_nodes`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: find by attr: %w", err)
	}
	defer rows.Close()

	all, err := collectNodes(rows)
	if err != nil {
		return nil, err
	}
	var out []graph.Node
	for _, n := range all {
		match := true
		for k, want := range attrs {
			got, ok := n.Attrs[k]
			if !ok || got != want {
				match = false
				break
			}
		}
		if match {
			out = append(out, n)
		}
	}
	return out, nil
}

type rowIterator struct {
	rows   *sql.Rows
	filter graph.NodeFilter
	cur    *graph.Node
}

func (it *rowIterator) Next(_ context.Context) bool {
	for it.rows.Next() {
		n, err := scanNode(it.rows)
		if err != nil {
			return false
		}
		if it.filter == nil || it.filter(n) {
			it.cur = n
			return true
		}
	}
	return false
}

func (it *rowIterator) Node() *graph.Node { return it.cur }
func (it *rowIterator) Err() error        { return it.rows.Err() }
func (it *rowIterator) Close() error      { return it.rows.Close() }

func (s *Store) QueryNodes(ctx context.Context, filter graph.NodeFilter) (graph.NodeIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, name, file, line, column, attrs FROM grafema_nodes`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query nodes: %w", err)
	}
	return &rowIterator{rows: rows, filter: filter}, nil
}

func (s *Store) edgeQuery(ctx context.Context, column, id string, types []graph.EdgeKind) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT type, src, dst, meta FROM grafema_edges WHERE %s = ?`, column)
	args := []any{id}
	if len(types) > 0 {
		placeholders := ""
		for i, t := range types {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, string(t))
		}
		query += fmt.Sprintf(" AND type IN (%s)", placeholders)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: edge query: %w", err)
	}
	defer rows.Close()

	var out []graph.Edge
	for rows.Next() {
		var e graph.Edge
		var kind string
		var metaJSON sql.NullString
		if err := rows.Scan(&kind, &e.Src, &e.Dst, &metaJSON); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan edge: %w", err)
		}
		e.Type = graph.EdgeKind(kind)
		if metaJSON.Valid && metaJSON.String != "" && metaJSON.String != "null" {
			if err := json.Unmarshal([]byte(metaJSON.String), &e.Meta); err != nil {
				return nil, fmt.Errorf("sqlitestore: unmarshal edge meta: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetOutgoingEdges(ctx context.Context, id string, types []graph.EdgeKind) ([]graph.Edge, error) {
	return s.edgeQuery(ctx, "src", id, types)
}

func (s *Store) GetIncomingEdges(ctx context.Context, id string, types []graph.EdgeKind) ([]graph.Edge, error) {
	return s.edgeQuery(ctx, "dst", id, types)
}

func (s *Store) NodeCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grafema_nodes`).Scan(&count)
	return count, err
}

func (s *Store) EdgeCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grafema_edges`).Scan(&count)
	return count, err
}

func (s *Store) CountNodesByType(ctx context.Context, types []graph.NodeKind) (map[graph.NodeKind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM grafema_nodes GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: count nodes by type: %w", err)
	}
	defer rows.Close()

	want := make(map[graph.NodeKind]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	out := make(map[graph.NodeKind]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		k := graph.NodeKind(kind)
		if len(types) == 0 || want[k] {
			out[k] = count
		}
	}
	return out, rows.Err()
}

func (s *Store) CountEdgesByType(ctx context.Context, types []graph.EdgeKind) (map[graph.EdgeKind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM grafema_edges GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: count edges by type: %w", err)
	}
	defer rows.Close()

	want := make(map[graph.EdgeKind]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	out := make(map[graph.EdgeKind]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		k := graph.EdgeKind(kind)
		if len(types) == 0 || want[k] {
			out[k] = count
		}
	}
	return out, rows.Err()
}

func (s *Store) DeleteNodesByFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sqlitestore: backend is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM grafema_edges WHERE src IN (SELECT id FROM grafema_nodes WHERE file = ?) OR dst IN (SELECT id FROM grafema_nodes WHERE file = ?)`, path, path); err != nil {
		return fmt.Errorf("sqlitestore: delete incident edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM grafema_nodes WHERE file = ?`, path); err != nil {
		return fmt.Errorf("sqlitestore: delete nodes: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM grafema_edges`); err != nil {
		return fmt.Errorf("sqlitestore: clear edges: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM grafema_nodes`); err != nil {
		return fmt.Errorf("sqlitestore: clear nodes: %w", err)
	}
	return nil
}

func (s *Store) Flush(_ context.Context) error { return nil }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
