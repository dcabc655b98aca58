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
)

// handleVariableDeclarator is the variable handler. A `variable_declarator`
// whose value is a function/arrow is passed on by this handler to
// handleFunctionNamed under the binding's name; every other declarator is
// recorded here as a plain binding or a destructuring pattern.
func (v *visitor) handleVariableDeclarator(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	valueNode := n.ChildByFieldName("value")
	if nameNode == nil {
		return
	}

	if nameNode.Type() == "object_pattern" || nameNode.Type() == "array_pattern" {
		for _, leaf := range v.destructuringLeaves(nameNode, valueNode) {
			v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
				Pos:       v.pos(n),
				ScopePath: v.scopePath(),
				Kind:      "DESTRUCTURE_LEAF",
				Subject:   leaf.Key,
				Meta: map[string]any{
					"exprKind":     string(leaf.ValueExprKind),
					"hints":        leaf.ValueHints,
					"propPath":     leaf.PropPath,
					"index":        leaf.Index,
					"isRest":       leaf.IsRest,
					"hasDefault":   leaf.HasDefault,
					"defaultHints": leaf.DefaultHints,
				},
			})
		}
		v.walk(valueNode)
		return
	}

	if valueNode != nil && (valueNode.Type() == "arrow_function" || valueNode.Type() == "function_expression" || valueNode.Type() == "function") {
		// Named-arrow/function-expression binding: treat as a function
		// declaration under the binding's name rather than a VARIABLE.
		v.handleFunctionNamed(valueNode, v.text(nameNode))
		return
	}

	isConst := false
	if decl := n.Parent(); decl != nil {
		isConst = v.text(decl.Child(0)) == "const"
	}

	exprKind, sub, hints := classifyExpr(valueNode, v.text)
	var shapeHints []string
	if valueNode != nil {
		shapeHints = append([]string{valueNode.Type()}, hints...)
	}

	v.checkShadow(n, v.text(nameNode))

	v.bundle.VarDecls = append(v.bundle.VarDecls, facts.VarDecl{
		Pos:            v.pos(n),
		ScopePath:      v.scopePath(),
		Name:           v.text(nameNode),
		IsConst:        isConst,
		InitExprKind:   exprKind,
		InitSubKind:    sub,
		InitShapeHints: shapeHints,
	})

	v.walk(valueNode)
}

// handleAssignment is the non-declaring half of the variable handler:
// `x = ...` to an already-declared binding.
func (v *visitor) handleAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || left.Type() != "identifier" {
		v.walk(right)
		return
	}

	kind, _, hints := classifyExpr(right, v.text)
	v.bundle.VarAssigns = append(v.bundle.VarAssigns, facts.VarAssign{
		Pos:           v.pos(n),
		ScopePath:     v.scopePath(),
		TargetName:    v.text(left),
		ValueExprKind: kind,
		ValueHints:    hints,
	})
	v.walk(right)
}
