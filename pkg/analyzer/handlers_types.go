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

package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/grafema/pkg/facts"
	"github.com/kraklabs/grafema/pkg/scope"
)

// handleUnionType records one UNION_MEMBER fact per named member of a
// `type T = A | B` alias. Only attributed when the union sits directly
// under a type-alias declaration the visitor is currently walking;
// unions appearing elsewhere (a parameter's inline type, say) have no
// declared type to attribute the membership to.
func (v *visitor) handleUnionType(n *sitter.Node) {
	if v.currentTypeName == "" {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "type_identifier" || c.Type() == "predefined_type" {
			v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
				Pos:       v.pos(n),
				ScopePath: v.scopePath(),
				Kind:      "UNION_MEMBER",
				Subject:   v.currentTypeName,
				Object:    v.text(c),
			})
		}
	}
}

// handleIntersectionType mirrors handleUnionType for `type T = A & B`.
func (v *visitor) handleIntersectionType(n *sitter.Node) {
	if v.currentTypeName == "" {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "type_identifier" || c.Type() == "predefined_type" {
			v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
				Pos:       v.pos(n),
				ScopePath: v.scopePath(),
				Kind:      "INTERSECTS_WITH",
				Subject:   v.currentTypeName,
				Object:    v.text(c),
			})
		}
	}
}

// handleInferType records an INFERS fact for an `infer U` constraint
// nested inside the conditional type of the enclosing type alias.
func (v *visitor) handleInferType(n *sitter.Node) {
	if v.currentTypeName == "" {
		return
	}
	id := n.Child(int(n.ChildCount()) - 1)
	if id == nil {
		return
	}
	v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
		Kind:      "INFERS",
		Subject:   v.currentTypeName,
		Object:    v.text(id),
	})
}

// handleWith is the `with (obj) { ... }` handler: it pushes a scope frame
// the way handleLoop/handleBranch do and records an EXTENDS_SCOPE_WITH
// fact tying that frame back to the object whose properties it injects.
func (v *visitor) handleWith(n *sitter.Node) {
	object := n.ChildByFieldName("object")

	v.tracker.EnterCountedScope(scope.KindWith)
	v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
		Kind:      "EXTENDS_SCOPE_WITH",
		Subject:   v.text(object),
	})
	v.walk(object)
	v.walk(n.ChildByFieldName("body"))
	v.tracker.ExitScope()
}
