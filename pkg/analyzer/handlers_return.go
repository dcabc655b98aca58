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

// handleReturn covers both `return` and `yield`.
func (v *visitor) handleReturn(n *sitter.Node) {
	isYield := n.Type() == "yield_expression"
	var arg *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "return" || c.Type() == "yield" || c.Type() == ";" || c.Type() == "*" {
			continue
		}
		arg = c
		break
	}

	kind, sub, sources := v.returnExtractor(arg)
	v.bundle.Returns = append(v.bundle.Returns, facts.Return{
		Pos:         v.pos(n),
		ScopePath:   v.scopePath(),
		IsYield:     isYield,
		ExprKind:    kind,
		SubKind:     sub,
		SourceNames: sources,
	})
	v.walkChildren(n)
}

// handleThrow is the throw handler: records throw/rejection patterns
// (an async function's throw is a rejection) and, for a bare identifier
// target, resolves the error class via a bounded intraprocedural
// micro-trace through the module's variable declarations so far.
func (v *visitor) handleThrow(n *sitter.Node) {
	var target *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "throw" && c.Type() != ";" {
			target = c
			break
		}
	}

	isAsync := v.inAsyncFunction()
	pattern := "sync_throw"
	if isAsync {
		pattern = "async_throw"
	}

	throw := facts.Throw{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
		IsAsync:   isAsync,
		Pattern:   pattern,
	}

	if target != nil {
		if target.Type() == "identifier" {
			name := v.text(target)
			throw.TargetName = name
			throw.ErrorClass, throw.TracePath = microTraceToErrorClass(name, v.bundle.VarDecls, microTraceMaxHops)
		} else if target.Type() == "new_expression" {
			if callee := target.ChildByFieldName("constructor"); callee != nil {
				throw.ErrorClass = v.text(callee)
			}
		}
	}

	v.bundle.Throws = append(v.bundle.Throws, throw)
	v.walkChildren(n)
}

// inAsyncFunction reports whether the innermost enclosing FUNCTION fact
// recorded so far for the current scope path was async.
func (v *visitor) inAsyncFunction() bool {
	path := v.scopePath()
	for i := len(v.bundle.Functions) - 1; i >= 0; i-- {
		f := v.bundle.Functions[i]
		if len(f.ScopePath) < len(path) && scopePathPrefix(path, f.ScopePath) && path[len(f.ScopePath)] == f.Name {
			return f.IsAsync
		}
	}
	return false
}

func scopePathPrefix(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i, seg := range prefix {
		if path[i] != seg {
			return false
		}
	}
	return true
}
