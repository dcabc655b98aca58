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

// handleLiteral records a scalar literal. Object/array literals have
// their own handlers since they carry nested structure.
func (v *visitor) handleLiteral(n *sitter.Node) {
	v.bundle.Literals = append(v.bundle.Literals, facts.Literal{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
		Kind:      n.Type(),
		Raw:       v.text(n),
		Ordinal:   v.tracker.GetItemCounter("LITERAL:" + n.Type()),
	})
}

func (v *visitor) handleObjectLiteral(n *sitter.Node) {
	obj := facts.ObjectLiteral{Pos: v.pos(n), ScopePath: v.scopePath(), Ordinal: v.tracker.GetItemCounter("OBJECT_LITERAL")}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "pair":
			key := c.ChildByFieldName("key")
			value := c.ChildByFieldName("value")
			kind, sub, _ := classifyExpr(value, v.text)
			obj.Properties = append(obj.Properties, facts.ObjectProperty{
				Key:           v.text(key),
				Index:         -1,
				ValueExprKind: kind,
				ValueHints:    []string{string(sub)},
			})
		case "shorthand_property_identifier":
			obj.Properties = append(obj.Properties, facts.ObjectProperty{
				Key:           v.text(c),
				Index:         -1,
				ValueExprKind: facts.ExprVariable,
			})
		case "spread_element":
			if id := c.Child(int(c.ChildCount()) - 1); id != nil {
				obj.SpreadOf = append(obj.SpreadOf, v.text(id))
			}
		}
	}
	if len(obj.SpreadOf) > 1 {
		v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
			Pos:       v.pos(n),
			ScopePath: v.scopePath(),
			Kind:      "MERGES_WITH",
			Meta:      map[string]any{"sources": obj.SpreadOf},
		})
	}
	v.bundle.ObjectLiterals = append(v.bundle.ObjectLiterals, obj)
	v.walkChildren(n)
}

func (v *visitor) handleArrayLiteral(n *sitter.Node) {
	arr := facts.ArrayLiteral{Pos: v.pos(n), ScopePath: v.scopePath(), Ordinal: v.tracker.GetItemCounter("ARRAY_LITERAL")}
	idx := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "[" || c.Type() == "]" || c.Type() == "," {
			continue
		}
		kind, sub, _ := classifyExpr(c, v.text)
		arr.Elements = append(arr.Elements, facts.ArrayElement{Index: idx, ValueExprKind: kind, ValueHints: []string{string(sub)}})
		idx++
	}
	v.bundle.ArrayLiterals = append(v.bundle.ArrayLiterals, arr)
	v.walkChildren(n)
}

func (v *visitor) handleUpdateExpression(n *sitter.Node) {
	operand := n.ChildByFieldName("argument")
	op := "++"
	isPrefix := n.Child(0).Type() != "identifier"
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "++" || c.Type() == "--" {
			op = c.Type()
		}
	}
	v.bundle.UpdateExprs = append(v.bundle.UpdateExprs, facts.UpdateExpr{
		Pos:        v.pos(n),
		ScopePath:  v.scopePath(),
		TargetName: v.text(operand),
		Operator:   op,
		IsPrefix:   isPrefix,
	})
}

// handleUnaryExpression is part of the misc-edge-collector: it only
// records a fact for `delete obj.prop` / `delete obj[key]`; every other
// unary operator (!, -, +, typeof, void) is already captured by
// classifyExpr wherever the enclosing expression is classified.
func (v *visitor) handleUnaryExpression(n *sitter.Node) {
	if n.ChildCount() == 0 || n.Child(0).Type() != "delete" {
		return
	}
	arg := n.ChildByFieldName("argument")
	names := identifierLeaves(arg, v.text)
	subject := ""
	if len(names) > 0 {
		subject = names[0]
	}
	object := ""
	if arg != nil && (arg.Type() == "member_expression" || arg.Type() == "subscript_expression") {
		if prop := arg.ChildByFieldName("property"); prop != nil {
			object = v.text(prop)
		}
	}
	v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
		Kind:      "DELETES",
		Subject:   subject,
		Object:    object,
	})
}

// handleSpread is part of the misc-edge-collector: spread elements not
// already handled inline by the object-literal handler (e.g. spreads in
// call arguments or array literals).
func (v *visitor) handleSpread(n *sitter.Node) {
	if n.Parent() != nil && n.Parent().Type() == "object" {
		return // already accounted for by handleObjectLiteral
	}
	if id := n.Child(int(n.ChildCount()) - 1); id != nil {
		v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
			Pos:       v.pos(n),
			ScopePath: v.scopePath(),
			Kind:      "SPREADS_FROM",
			Subject:   v.text(id),
		})
	}
	v.walkChildren(n)
}

func (v *visitor) handleImport(n *sitter.Node) {
	var importPath string
	var bindings []facts.ImportBinding

	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "string":
			importPath = trimQuotes(v.text(c))
		case "import_clause":
			bindings = append(bindings, v.importBindings(c)...)
		}
	}

	v.bundle.Imports = append(v.bundle.Imports, facts.Import{
		Pos:        v.pos(n),
		ImportPath: importPath,
		Bindings:   bindings,
	})
}

func (v *visitor) importBindings(clause *sitter.Node) []facts.ImportBinding {
	var out []facts.ImportBinding
	for i := 0; i < int(clause.ChildCount()); i++ {
		c := clause.Child(i)
		switch c.Type() {
		case "identifier":
			out = append(out, facts.ImportBinding{LocalAlias: v.text(c), IsDefault: true})
		case "namespace_import":
			if id := c.Child(int(c.ChildCount()) - 1); id != nil {
				out = append(out, facts.ImportBinding{LocalAlias: v.text(id), IsNamespace: true})
			}
		case "named_imports":
			for j := 0; j < int(c.ChildCount()); j++ {
				spec := c.Child(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				alias := spec.ChildByFieldName("alias")
				b := facts.ImportBinding{ImportedName: v.text(name)}
				if alias != nil {
					b.LocalAlias = v.text(alias)
				} else {
					b.LocalAlias = b.ImportedName
				}
				out = append(out, b)
			}
		}
	}
	return out
}

func (v *visitor) handleExport(n *sitter.Node) {
	isDefault := v.hasModifier(n, "default")
	declExported := false

	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "export_clause":
			for j := 0; j < int(c.ChildCount()); j++ {
				spec := c.Child(j)
				if spec.Type() != "export_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				alias := spec.ChildByFieldName("alias")
				exp := facts.Export{Pos: v.pos(n), LocalName: v.text(name)}
				if alias != nil {
					exp.ExportedName = v.text(alias)
				} else {
					exp.ExportedName = exp.LocalName
				}
				v.bundle.Exports = append(v.bundle.Exports, exp)
			}
		case "string":
			if len(v.bundle.Exports) > 0 {
				v.bundle.Exports[len(v.bundle.Exports)-1].ReExportFrom = trimQuotes(v.text(c))
			}

		case "lexical_declaration", "variable_declaration":
			// `export const x = ...` — one export per declared binding.
			for j := 0; j < int(c.ChildCount()); j++ {
				d := c.Child(j)
				if d.Type() != "variable_declarator" {
					continue
				}
				if nameNode := d.ChildByFieldName("name"); nameNode != nil && nameNode.Type() == "identifier" {
					name := v.text(nameNode)
					v.bundle.Exports = append(v.bundle.Exports, facts.Export{
						Pos: v.pos(n), ExportedName: name, LocalName: name,
					})
					declExported = true
				}
			}

		case "function_declaration", "generator_function_declaration", "function_signature",
			"class_declaration", "abstract_class_declaration", "interface_declaration",
			"type_alias_declaration", "enum_declaration":
			// `export function f() {}` and friends.
			if nameNode := c.ChildByFieldName("name"); nameNode != nil {
				name := v.text(nameNode)
				exp := facts.Export{Pos: v.pos(n), ExportedName: name, LocalName: name}
				if isDefault {
					exp.ExportedName = "default"
					exp.IsDefault = true
				}
				v.bundle.Exports = append(v.bundle.Exports, exp)
				declExported = true
			}
		}
	}

	if isDefault && !declExported {
		v.bundle.Exports = append(v.bundle.Exports, facts.Export{Pos: v.pos(n), ExportedName: "default", IsDefault: true})
	}

	v.walkChildren(n)
}

// recordLogicalOp records one &&/||/?? expression, feeding the
// logicalOpCount term of the owning function's cyclomaticComplexity.
func (v *visitor) recordLogicalOp(n *sitter.Node) {
	v.bundle.LogicalOps = append(v.bundle.LogicalOps, facts.LogicalOp{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
	})
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}
