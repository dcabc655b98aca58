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

// handleFunction is the nested-function handler: it enters a new scope
// frame on any function/method declaration, recursively analyses the
// body within that scope, and restores the enclosing invokedParamIndexes
// map on the way out so sibling functions don't see each other's params.
func (v *visitor) handleFunction(n *sitter.Node) {
	v.handleFunctionNamed(n, "")
}

// handleFunctionNamed is handleFunction with an explicit name override,
// used for `const f = () => {}` / `const f = function() {}` bindings
// where the binding name, not the (nameless) function node, is the
// function's identity.
func (v *visitor) handleFunctionNamed(n *sitter.Node, nameOverride string) {
	name := v.functionName(n)
	if nameOverride != "" {
		name = nameOverride
	}
	isMethod := n.Type() == "method_definition" || n.Type() == "method_signature"
	isAsync := v.hasModifier(n, "async")
	isGenerator := v.hasStar(n)

	params := n.ChildByFieldName("parameters")
	paramNames := v.paramNames(params)
	// An arrow with a single unparenthesized parameter (`x => ...`)
	// carries it under the singular "parameter" field instead.
	singleParam := n.ChildByFieldName("parameter")
	if params == nil && singleParam != nil {
		paramNames = []string{v.text(singleParam)}
	}
	body := n.ChildByFieldName("body")
	stmtCount := v.statementCount(body)
	scopePath := v.scopePath()

	// A bare callback arrow/function expression has no binding name: it
	// gets a counted closure frame ("closure[N]") and that frame name is
	// its identity, so sibling anonymous callbacks never share a scope
	// path.
	scopeKind := scope.KindFunction
	if name == "" {
		frame := v.tracker.EnterCountedScope(scope.KindClosure)
		name = frame.Name
		scopeKind = scope.KindClosure
	} else {
		v.tracker.EnterScope(name, scope.KindFunction)
	}
	if body != nil {
		v.bundle.Scopes = append(v.bundle.Scopes, facts.Scope{
			Pos:       v.pos(body),
			ScopePath: v.scopePath(),
			Kind:      string(scopeKind),
			StartCol:  int(body.StartPoint().Column),
		})
	}

	fn := facts.Function{
		Pos:         v.pos(n),
		ScopePath:   scopePath,
		Name:        name,
		IsMethod:    isMethod,
		IsAsync:     isAsync,
		IsGenerator: isGenerator,
		ParamNames:  paramNames,
		StmtCount:   stmtCount,
		ParentClass: v.currentClass,
		IsSignature: body == nil,
	}
	v.bundle.Functions = append(v.bundle.Functions, fn)

	outerParamIdx := v.invokedParamIndexes
	v.invokedParamIndexes = make(map[string]int, len(paramNames))
	for i, p := range paramNames {
		v.invokedParamIndexes[p] = i
	}

	v.emitParameters(params, paramNames)
	if params == nil && singleParam != nil {
		v.bundle.Parameters = append(v.bundle.Parameters, facts.Parameter{
			Pos: v.pos(singleParam), Name: v.text(singleParam), Index: 0,
		})
	}
	v.walk(body)
	v.tracker.ExitScope()

	v.invokedParamIndexes = outerParamIdx
}

func (v *visitor) functionName(n *sitter.Node) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return v.text(nameNode)
	}
	return ""
}

func (v *visitor) hasModifier(n *sitter.Node, keyword string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == keyword {
			return true
		}
	}
	return false
}

func (v *visitor) hasStar(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "*" {
			return true
		}
	}
	return false
}

func (v *visitor) paramNames(params *sitter.Node) []string {
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(i)
		switch p.Type() {
		case "required_parameter", "optional_parameter":
			if pat := p.ChildByFieldName("pattern"); pat != nil {
				names = append(names, v.text(pat))
			}
		case "identifier", "rest_pattern":
			names = append(names, v.text(p))
		}
	}
	return names
}

func (v *visitor) statementCount(body *sitter.Node) int {
	if body == nil {
		return 0
	}
	count := 0
	for i := 0; i < int(body.ChildCount()); i++ {
		c := body.Child(i)
		if c.Type() != "{" && c.Type() != "}" {
			count++
		}
	}
	return count
}

func (v *visitor) emitParameters(params *sitter.Node, names []string) {
	if params == nil {
		return
	}
	idx := 0
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(i)
		switch p.Type() {
		case "required_parameter", "optional_parameter", "identifier", "rest_pattern":
			var name string
			if idx < len(names) {
				name = names[idx]
			}
			param := facts.Parameter{
				Pos:      v.pos(p),
				Name:     name,
				Index:    idx,
				IsRest:   p.Type() == "rest_pattern",
				HasDefault: p.ChildByFieldName("value") != nil,
			}
			if dv := p.ChildByFieldName("value"); dv != nil {
				param.DefaultHints = []string{dv.Type(), v.text(dv)}
			}
			v.bundle.Parameters = append(v.bundle.Parameters, param)
			idx++
		}
	}
}

// Class, interface, type-alias, and enum declarations are handled here
// too. A class introduces a named scope the same way a function does, and
// its members are walked within it; interfaces, type aliases and enums
// enter no scope of their own.
func (v *visitor) handleClass(n *sitter.Node) {
	name := v.functionName(n)
	class := facts.Class{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
		Name:      name,
	}
	class.Extends, class.Implements = v.classHeritage(n)
	class.Decorators = v.classDecorators(n)
	v.bundle.Classes = append(v.bundle.Classes, class)

	outerClass := v.currentClass
	v.currentClass = name
	v.tracker.EnterScope(name, scope.KindClass)
	v.walkChildren(n)
	v.tracker.ExitScope()
	v.currentClass = outerClass
}

// classDecorators collects the `@Foo(...)` decorators of a class
// declaration. The TypeScript grammar attaches these as `decorator`
// children of the class_declaration node, ahead of the `class` keyword.
func (v *visitor) classDecorators(n *sitter.Node) []string {
	var out []string
	for i := 0; i < int(n.ChildCount()); i++ {
		dec := n.Child(i)
		if dec.Type() != "decorator" {
			continue
		}
		expr := dec.Child(int(dec.ChildCount()) - 1)
		name := v.text(expr)
		if expr != nil && expr.Type() == "call_expression" {
			if callee := expr.ChildByFieldName("function"); callee != nil {
				name = v.text(callee)
			}
		}
		out = append(out, name)
	}
	return out
}

func (v *visitor) classHeritage(heritage *sitter.Node) (string, []string) {
	var extends string
	var implements []string
	for i := 0; i < int(heritage.ChildCount()); i++ {
		c := heritage.Child(i)
		switch c.Type() {
		case "class_heritage":
			for j := 0; j < int(c.ChildCount()); j++ {
				clause := c.Child(j)
				if clause.Type() == "extends_clause" && clause.ChildCount() > 0 {
					extends = v.text(clause.Child(int(clause.ChildCount()) - 1))
				}
				if clause.Type() == "implements_clause" {
					for k := 0; k < int(clause.ChildCount()); k++ {
						implements = append(implements, v.text(clause.Child(k)))
					}
				}
			}
		}
	}
	return extends, implements
}

func (v *visitor) handleInterface(n *sitter.Node) {
	name := v.functionName(n)
	v.bundle.Interfaces = append(v.bundle.Interfaces, facts.InterfaceDecl{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
		Name:      name,
	})
	v.walkChildren(n)
}

func (v *visitor) handleTypeAlias(n *sitter.Node) {
	name := v.functionName(n)
	v.bundle.Interfaces = append(v.bundle.Interfaces, facts.InterfaceDecl{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
		Name:      name,
		IsAlias:   true,
	})
	outer := v.currentTypeName
	v.currentTypeName = name
	v.walkChildren(n)
	v.currentTypeName = outer
}

func (v *visitor) handleEnum(n *sitter.Node) {
	name := v.functionName(n)
	var members []string
	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			c := body.Child(i)
			if c.Type() == "property_identifier" || c.Type() == "enum_assignment" {
				members = append(members, v.text(c))
			}
		}
	}
	v.bundle.Enums = append(v.bundle.Enums, facts.EnumDecl{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
		Name:      name,
		Members:   members,
	})
}
