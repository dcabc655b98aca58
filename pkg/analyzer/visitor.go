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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/grafema/pkg/facts"
	"github.com/kraklabs/grafema/pkg/scope"
)

// visitor composes every per-node-kind handler into one recursive descent
// over the tree. Each handler both records facts and, where the node
// introduces a lexical scope, pushes/pops a scope.Tracker frame around
// the recursive call into its children.
type visitor struct {
	file    string
	content []byte

	tracker *scope.Tracker
	bundle  *facts.Bundle

	tryDepth   int
	loopDepth  int
	chainIndex int

	// promiseResolve/promiseReject are stacks of the executor parameter
	// names registered by `new Promise((res, rej) => ...)`, active while
	// the executor body is being walked so the call handler can classify
	// `rej(...)` as a rejection of the enclosing function.
	promiseResolve []string
	promiseReject  []string

	// invokedParamIndexes maps a parameter name visible in the current
	// function to its positional index, so the call handler can detect
	// higher-order-function invocation (identifier callee == some
	// parameter name) without re-walking the function body.
	invokedParamIndexes map[string]int

	// currentClass is the name of the class declaration currently being
	// walked, used to stamp Function.ParentClass for override detection.
	currentClass string

	// currentTypeName is the name of the type-alias declaration currently
	// being walked, used to attribute UNION_MEMBER/INTERSECTS_WITH/INFERS
	// facts back to the type that declares them.
	currentTypeName string

	// declaredAt records, per variable name, the full scope path
	// (frame kind+name, not just ScopePathSegments) at which it was first
	// declared in this file, so a later declaration of the same name at a
	// strictly nested scope can be recognized as shadowing it.
	declaredAt map[string]shadowRecord
}

// shadowRecord is one entry of visitor.declaredAt.
type shadowRecord struct {
	fullPath  string
	scopePath []string
}

func newVisitor(file string, content []byte) *visitor {
	return &visitor{
		file:    file,
		content: content,
		tracker: scope.New(file),
		bundle:  &facts.Bundle{File: file},
	}
}

func (v *visitor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(v.content[n.StartByte():n.EndByte()])
}

func (v *visitor) pos(n *sitter.Node) facts.Position {
	return facts.Position{
		File:   v.file,
		Line:   int(n.StartPoint().Row) + 1,
		Column: int(n.StartPoint().Column) + 1,
	}
}

func (v *visitor) scopePath() []string {
	return v.tracker.ScopePathSegments()
}

// checkShadow records name's declaration site the first time it is seen
// and, on a later declaration at a scope strictly nested under the first
// one, emits a SHADOWS MiscEdge fact.
func (v *visitor) checkShadow(n *sitter.Node, name string) {
	if name == "" {
		return
	}
	if v.declaredAt == nil {
		v.declaredAt = make(map[string]shadowRecord)
	}
	cur := v.tracker.FullPath()
	if prev, ok := v.declaredAt[name]; ok {
		if prev.fullPath != cur && strings.HasPrefix(cur, prev.fullPath) {
			v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
				Pos:       v.pos(n),
				ScopePath: v.scopePath(),
				Kind:      "SHADOWS",
				Subject:   name,
				Meta:      map[string]any{"outerScopePath": prev.scopePath},
			})
		}
		return
	}
	v.declaredAt[name] = shadowRecord{fullPath: cur, scopePath: v.scopePath()}
}

// walk is the single recursive traversal. Every node kind a handler
// cares about is dispatched here; anything not recognized falls
// through to a plain recurse-into-children so nested constructs (e.g. a
// call expression inside a default parameter value) are still visited.
func (v *visitor) walk(n *sitter.Node) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "function_declaration", "function", "method_definition", "function_signature", "method_signature",
		"generator_function_declaration", "generator_function", "arrow_function", "function_expression":
		v.handleFunction(n)
		return // handleFunction recurses into the body itself with the new scope pushed
	case "variable_declarator":
		v.handleVariableDeclarator(n)
		return // walks its own value node; avoid re-walking it below
	case "assignment_expression":
		v.handleAssignment(n)
		return // walks its own right-hand side; avoid re-walking it below
	case "return_statement", "yield_expression":
		v.handleReturn(n)
		return // already calls walkChildren
	case "throw_statement":
		v.handleThrow(n)
		return // already calls walkChildren
	case "call_expression":
		v.handleCall(n)
		return // already walks its own object/args
	case "new_expression":
		v.handleNewExpression(n)
		return // already walks its own args
	case "member_expression", "subscript_expression":
		v.handlePropertyAccess(n)
		return // already walks its own object chain
	case "if_statement":
		v.handleBranch(n)
		return
	case "switch_statement":
		v.handleSwitch(n)
		return
	case "switch_case", "switch_default":
		v.handleCase(n)
		return
	case "try_statement":
		v.handleTryCatch(n)
		return
	case "for_statement", "for_in_statement", "while_statement", "do_statement":
		v.handleLoop(n)
		return
	case "class_declaration":
		v.handleClass(n)
		return // already walks its own body within the pushed scope
	case "interface_declaration":
		v.handleInterface(n)
		return // already calls walkChildren
	case "type_alias_declaration":
		v.handleTypeAlias(n)
		return // already calls walkChildren
	case "enum_declaration":
		v.handleEnum(n)
		// no internal walk: fall through to the generic recursion below so
		// member initializer expressions are still visited.
	case "import_statement":
		v.handleImport(n)
		return
	case "export_statement":
		v.handleExport(n)
		return // already calls walkChildren
	case "update_expression":
		v.handleUpdateExpression(n)
		// no internal walk: fall through so the operand identifier/nested
		// expressions are still visited.
	case "unary_expression":
		v.handleUnaryExpression(n)
		// no internal walk: fall through so the operand is still visited.
	case "with_statement":
		v.handleWith(n)
		return // already walks its own object/body within the pushed scope
	case "union_type":
		v.handleUnionType(n)
		// no internal walk: fall through so nested conditional/infer types
		// within a union member are still visited.
	case "intersection_type":
		v.handleIntersectionType(n)
		// no internal walk: fall through, same reason as union_type above.
	case "infer_type":
		v.handleInferType(n)
		// no internal walk: fall through so the constraint itself is visited.
	case "spread_element":
		v.handleSpread(n)
		return // already calls walkChildren
	case "object":
		v.handleObjectLiteral(n)
		return // already calls walkChildren
	case "array":
		v.handleArrayLiteral(n)
		return // already calls walkChildren
	case "binary_expression":
		// The grammar folds logical operators into binary_expression;
		// only &&/||/?? feed the logical-op count.
		if op := n.ChildByFieldName("operator"); op != nil {
			switch v.text(op) {
			case "&&", "||", "??":
				v.recordLogicalOp(n)
			}
		}
		// no internal walk: fall through so operands are still visited.
	case "string", "number", "true", "false", "null", "undefined", "regex", "template_string":
		v.handleLiteral(n)
		return
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		v.walk(n.Child(i))
	}
}

// bindingActive reports whether name is one of the currently registered
// promise-executor bindings in names.
func bindingActive(names []string, name string) bool {
	for _, b := range names {
		if b == name {
			return true
		}
	}
	return false
}

// walkChildren visits every child of n without re-dispatching n itself.
// Handlers use this after doing their own scope/fact bookkeeping for n.
func (v *visitor) walkChildren(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		v.walk(n.Child(i))
	}
}
