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

// handleCall is the call handler: call extraction and per-argument
// extraction folded into one method since both operate on the same
// node. It tells plain calls apart from method calls by whether the
// callee is a member expression, records argument-kind hints for
// PASSES_ARGUMENT, detects `new Promise(executor)` resolve/reject
// registration, and detects higher-order-function invocation when the
// callee identifier matches a parameter visible in the current function.
func (v *visitor) handleCall(n *sitter.Node) {
	callee := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	argCount, argHints := v.callArguments(args)
	isAwaited := n.Parent() != nil && n.Parent().Type() == "await_expression"

	if callee != nil && (callee.Type() == "member_expression" || callee.Type() == "subscript_expression") {
		object := callee.ChildByFieldName("object")
		property := callee.ChildByFieldName("property")
		receiverName := v.text(object)
		methodName := v.text(property)
		mc := facts.MethodCall{
			Pos:          v.pos(n),
			ScopePath:    v.scopePath(),
			ReceiverName: receiverName,
			MethodName:   methodName,
			ArgCount:     argCount,
			ChainIndex:   v.chainIndexFor(object),
			Special:      specialMethodCall(receiverName, methodName),
			IsInsideTry:  v.tryDepth > 0,
			IsInsideLoop: v.loopDepth > 0,
			Ordinal:      v.tracker.GetItemCounter("METHOD_CALL:" + receiverName + "." + methodName),
		}
		v.bundle.MethodCalls = append(v.bundle.MethodCalls, mc)
		if mc.Special == "bind" {
			if target := v.firstArgName(args); target != "" {
				v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
					Pos:       v.pos(n),
					ScopePath: v.scopePath(),
					Kind:      "BINDS_THIS_TO",
					Subject:   receiverName,
					Object:    target,
				})
			}
		}
		if receiverName == "Promise" && methodName == "reject" {
			v.bundle.Throws = append(v.bundle.Throws, facts.Throw{
				Pos:        v.pos(n),
				ScopePath:  v.scopePath(),
				IsAsync:    true,
				Pattern:    "promise_reject",
				ErrorClass: v.errorClassOfFirstArg(args),
			})
		}
		v.walk(object)
		v.walk(args)
		return
	}

	calleeName := v.text(callee)
	if _, isParam := v.invokedParamIndexes[calleeName]; isParam {
		v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
			Pos:       v.pos(n),
			ScopePath: v.scopePath(),
			Kind:      "INVOKES_PARAM",
			Subject:   calleeName,
			Meta:      map[string]any{"paramIndex": v.invokedParamIndexes[calleeName]},
		})
	}

	inPromise := bindingActive(v.promiseResolve, calleeName) || bindingActive(v.promiseReject, calleeName)
	if bindingActive(v.promiseReject, calleeName) {
		v.bundle.Throws = append(v.bundle.Throws, facts.Throw{
			Pos:        v.pos(n),
			ScopePath:  v.scopePath(),
			IsAsync:    true,
			Pattern:    "executor_reject",
			TargetName: calleeName,
			ErrorClass: v.errorClassOfFirstArg(args),
		})
	}

	v.bundle.CallSites = append(v.bundle.CallSites, facts.CallSite{
		Pos:          v.pos(n),
		ScopePath:    v.scopePath(),
		CalleeName:   calleeName,
		ArgCount:     argCount,
		ArgHints:     argHints,
		IsAwaited:    isAwaited,
		IsInsideTry:  v.tryDepth > 0,
		IsInsideLoop: v.loopDepth > 0,
		InPromise:    inPromise,
		Ordinal:      v.tracker.GetItemCounter("CALL:" + calleeName),
	})
	v.walk(args)
}

// specialMethodCall classifies the member-expression calls that get
// dedicated treatment downstream: Object.assign merges, the mutating
// array methods, and explicit this-binding via bind/call/apply.
func specialMethodCall(receiver, method string) string {
	switch {
	case receiver == "Object" && method == "assign":
		return "object_assign"
	case method == "push" || method == "unshift" || method == "splice":
		return "array_mutation"
	case method == "bind":
		return "bind"
	case method == "call":
		return "call"
	case method == "apply":
		return "apply"
	}
	return ""
}

// firstArgName returns the first argument's identifier name (or "this"),
// empty for anything else.
func (v *visitor) firstArgName(args *sitter.Node) string {
	if args == nil {
		return ""
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		c := args.Child(i)
		if c.Type() == "(" || c.Type() == ")" || c.Type() == "," {
			continue
		}
		if c.Type() == "identifier" || c.Type() == "this" {
			return v.text(c)
		}
		return ""
	}
	return ""
}

// chainIndexFor returns the position of this method call within a chain
// of method calls sharing the same ultimate receiver (`a.b().c().d()`),
// used by the Graph Builder to draw CHAINS_FROM by position match.
func (v *visitor) chainIndexFor(object *sitter.Node) int {
	if object == nil || object.Type() != "call_expression" {
		return 0
	}
	idx := 1
	cur := object
	for cur != nil && cur.Type() == "call_expression" {
		callee := cur.ChildByFieldName("function")
		if callee == nil || callee.Type() != "member_expression" {
			break
		}
		cur = callee.ChildByFieldName("object")
		idx++
	}
	return idx
}

func (v *visitor) callArguments(args *sitter.Node) (int, []string) {
	if args == nil {
		return 0, nil
	}
	var hints []string
	count := 0
	for i := 0; i < int(args.ChildCount()); i++ {
		c := args.Child(i)
		if c.Type() == "," || c.Type() == "(" || c.Type() == ")" {
			continue
		}
		kind, _, _ := classifyExpr(c, v.text)
		hints = append(hints, string(kind))
		count++
	}
	return count, hints
}

// handleNewExpression is the NewExpression handler: emits
// CONSTRUCTOR_CALL facts, detects built-in constructors via a closed
// set, and for `new Promise(executor)` registers the executor's
// resolve/reject identifier bindings.
func (v *visitor) handleNewExpression(n *sitter.Node) {
	callee := n.ChildByFieldName("constructor")
	name := v.text(callee)
	args := n.ChildByFieldName("arguments")
	argCount, _ := v.callArguments(args)

	ctor := facts.CtorCall{
		Pos:        v.pos(n),
		ScopePath:  v.scopePath(),
		CalleeName: name,
		IsBuiltin:  builtinConstructors[name],
		ArgCount:   argCount,
		Ordinal:    v.tracker.GetItemCounter("CONSTRUCTOR_CALL:" + name),
	}

	if name == "Promise" && args != nil && args.ChildCount() > 0 {
		executor := args.Child(1)
		if executor != nil && (executor.Type() == "arrow_function" || executor.Type() == "function_expression") {
			ctor.PromiseExec = true
			var names []string
			if params := executor.ChildByFieldName("parameters"); params != nil {
				names = v.paramNames(params)
			}
			if len(names) > 0 {
				v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
					Pos:       v.pos(n),
					ScopePath: v.scopePath(),
					Kind:      "PROMISE_RESOLVE_BINDING",
					Subject:   names[0],
				})
				v.promiseResolve = append(v.promiseResolve, names[0])
				defer func() { v.promiseResolve = v.promiseResolve[:len(v.promiseResolve)-1] }()
			}
			if len(names) > 1 {
				v.bundle.MiscEdges = append(v.bundle.MiscEdges, facts.MiscEdge{
					Pos:       v.pos(n),
					ScopePath: v.scopePath(),
					Kind:      "PROMISE_REJECT_BINDING",
					Subject:   names[1],
				})
				v.promiseReject = append(v.promiseReject, names[1])
				defer func() { v.promiseReject = v.promiseReject[:len(v.promiseReject)-1] }()
			}

			v.bundle.CtorCalls = append(v.bundle.CtorCalls, ctor)
			// Walk the executor's body directly in the current scope, so
			// `resolve(...)`/`reject(...)` calls and the rejection
			// patterns they imply attach to the enclosing function
			// rather than to a closure of their own.
			seenExec := false
			for i := 0; i < int(args.ChildCount()); i++ {
				c := args.Child(i)
				if !seenExec && (c.Type() == "arrow_function" || c.Type() == "function_expression") {
					seenExec = true
					v.walk(c.ChildByFieldName("body"))
					continue
				}
				v.walk(c)
			}
			return
		}
	}

	v.bundle.CtorCalls = append(v.bundle.CtorCalls, ctor)
	v.walk(args)
}

// errorClassOfFirstArg resolves the error class a rejection call
// constructs: `reject(new RangeError("e"))` directly, or
// `reject(err)` through the micro-tracer.
func (v *visitor) errorClassOfFirstArg(args *sitter.Node) string {
	if args == nil {
		return ""
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		c := args.Child(i)
		if c.Type() == "(" || c.Type() == ")" || c.Type() == "," {
			continue
		}
		if c.Type() == "new_expression" {
			return v.text(c.ChildByFieldName("constructor"))
		}
		if c.Type() == "identifier" {
			cls, _ := microTraceToErrorClass(v.text(c), v.bundle.VarDecls, microTraceMaxHops)
			return cls
		}
		return ""
	}
	return ""
}

// builtinConstructors is the closed set of well-known global constructors
// recognized without resolving an import.
var builtinConstructors = map[string]bool{
	"Object": true, "Array": true, "Error": true, "TypeError": true,
	"RangeError": true, "SyntaxError": true, "ReferenceError": true,
	"Promise": true, "Map": true, "Set": true, "WeakMap": true, "WeakSet": true,
	"Date": true, "RegExp": true, "URL": true, "URLSearchParams": true,
	"Buffer": true, "Uint8Array": true, "ArrayBuffer": true,
}
