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
	"github.com/kraklabs/grafema/pkg/facts"
	"github.com/kraklabs/grafema/pkg/graph"
)

// assignmentBuilder emits ASSIGNED_FROM (variable -> the variable it was
// reassigned to) and DERIVES_FROM (variable -> the identifiers its new
// value depends on) edges for every VarAssign the analyzer recorded. A
// VarAssign always targets an already-declared binding, so the edge
// source is looked up by name in m.byName rather than minted fresh here;
// an assignment to a name this module never declared (a global, or an
// imported binding Enrichment will resolve later) is skipped.
func assignmentBuilder(m *moduleCtx, bundle *facts.Bundle) {
	for _, va := range bundle.VarAssigns {
		targetID, ok := m.byName[va.TargetName]
		if !ok {
			continue
		}

		if va.ValueExprKind == facts.ExprVariable {
			if len(va.ValueHints) == 1 {
				if srcID, ok := m.byName[va.ValueHints[0]]; ok {
					m.addEdge(graph.Edge{Type: graph.EdgeAssignedFrom, Src: targetID, Dst: srcID})
					continue
				}
			}
		}

		for _, hint := range va.ValueHints {
			if srcID, ok := m.byName[hint]; ok && srcID != targetID {
				m.addEdge(graph.Edge{Type: graph.EdgeDerivesFrom, Src: targetID, Dst: srcID})
			}
		}
	}
}
