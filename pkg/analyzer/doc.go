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

// Package analyzer is the per-module AST extractor. It parses a single
// JS/TS file with go-tree-sitter, walks the resulting tree exactly once
// with a composed visitor, and produces a facts.Bundle.
//
// The single-traversal constraint is load-bearing: a naive extractor
// might make several independent passes (functions, then types, then
// calls); Analyzer composes all of that into one walk because
// re-walking a multi-thousand-line module per concern is the dominant
// cost at scale.
package analyzer

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/grafema/pkg/facts"
)

// Analyzer parses one file at a time into a facts.Bundle. It is not safe
// for concurrent use by multiple goroutines; pkg/workerpool gives each
// worker its own Analyzer.
type Analyzer struct {
	parser *sitter.Parser
}

// New constructs an Analyzer configured for the TypeScript grammar, which
// is a syntactic superset of plain JS, so one parser handles both.
func New() *Analyzer {
	p := sitter.NewParser()
	p.SetLanguage(typescript.GetLanguage())
	return &Analyzer{parser: p}
}

// Close releases the underlying tree-sitter parser.
func (a *Analyzer) Close() {
	if a.parser != nil {
		a.parser.Close()
	}
}

// Parse parses content (the contents of file) and returns the fact
// bundle produced by a single traversal. A syntactically broken file is
// not a hard error: tree-sitter is error-tolerant, so Parse logs nothing
// itself (callers decide whether node.HasError() on the result root is
// worth surfacing) and simply extracts what it can.
func (a *Analyzer) Parse(ctx context.Context, file string, content []byte) (*facts.Bundle, error) {
	tree, err := a.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("analyzer: parse %s: %w", file, err)
	}
	defer tree.Close()

	v := newVisitor(file, content)
	v.walk(tree.RootNode())
	computeControlFlow(v.bundle)
	computeOverrides(v.bundle)
	computeOverloads(v.bundle)
	return v.bundle, nil
}
