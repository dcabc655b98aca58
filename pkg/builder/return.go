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

package builder

import (
	"fmt"

	"github.com/kraklabs/grafema/pkg/facts"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/scope"
)

// returnBuilder emits RETURNS edges from the owning function/scope to
// the returned value. A plain-variable return is wired straight to the
// declaring VARIABLE node; anything else materializes an EXPRESSION
// node carrying the expression's sub-kind, with
// DERIVES_FROM edges fanning out to every operand identifier the
// analyzer's condition/return extractor found.
func returnBuilder(m *moduleCtx, bundle *facts.Bundle) {
	for i, ret := range bundle.Returns {
		owner, ok := m.fnByScope[nearestFunctionKey(m, ret.ScopePath)]
		if !ok {
			continue
		}

		switch ret.ExprKind {
		case facts.ExprNone:
			continue
		case facts.ExprVariable:
			if len(ret.SourceNames) == 1 {
				if srcID, ok := m.byName[ret.SourceNames[0]]; ok {
					m.addEdge(graph.Edge{Type: graph.EdgeReturns, Src: owner, Dst: srcID})
					continue
				}
			}
			fallthrough
		default:
			exprID := scope.BuildBaseID(m.file, ret.ScopePath, "EXPRESSION", fmt.Sprintf("return#%d", i))
			hints := append([]string{string(ret.SubKind)}, ret.SourceNames...)
			node := graph.Node{ID: exprID, Type: graph.KindExpression, File: m.file, Line: ret.Pos.Line, Column: ret.Pos.Column}
			node.SetAttr("exprKind", string(ret.ExprKind))
			node.SetAttr("subKind", string(ret.SubKind))
			node.SetAttr("yield", ret.IsYield)
			m.addNode(node, hints...)
			m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: owner, Dst: exprID})
			m.addEdge(graph.Edge{Type: graph.EdgeReturns, Src: owner, Dst: exprID})
			for _, src := range ret.SourceNames {
				if srcID, ok := m.byName[src]; ok {
					m.addEdge(graph.Edge{Type: graph.EdgeDerivesFrom, Src: exprID, Dst: srcID})
				}
			}
		}
	}
}

// nearestFunctionKey walks scopePath outward (module scope excluded)
// looking for the key fnByScope indexes function ids under: the scope
// path ending in that function's own name, populated in coreBuilder.
func nearestFunctionKey(m *moduleCtx, scopePath []string) string {
	for end := len(scopePath); end > 0; end-- {
		key := scopeKey(scopePath[:end])
		if _, ok := m.fnByScope[key]; ok {
			return key
		}
	}
	return ""
}
