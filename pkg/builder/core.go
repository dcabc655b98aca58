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

// coreBuilder emits FUNCTION/SCOPE/VARIABLE/CALL/METHOD_CALL/
// PROPERTY_ACCESS/LITERAL/OBJECT_LITERAL/ARRAY_LITERAL nodes and the
// primary CONTAINS/DECLARES/CALLS/HAS_SCOPE/USES/READS_FROM edges.
func coreBuilder(m *moduleCtx, module string, bundle *facts.Bundle) {
	// parentOf resolves a fact's nearest enclosing function by walking its
	// scope path outward: the innermost prefix matching a staged function
	// key wins (a fact directly inside `f` carries the full path ending in
	// f's own name segment), falling back to the MODULE node for
	// module-level facts.
	parentOf := func(segs []string) string {
		for end := len(segs); end > 0; end-- {
			if id, ok := m.fnByScope[scopeKey(segs[:end])]; ok {
				return id
			}
		}
		return module
	}

	for _, fn := range bundle.Functions {
		id := scope.BuildBaseID(m.file, fn.ScopePath, string(kindFor(fn)), fn.Name)
		kind := graph.KindFunction
		if fn.IsMethod {
			kind = graph.KindMethod
		}
		node := graph.Node{ID: id, Type: kind, Name: fn.Name, File: fn.Pos.File, Line: fn.Pos.Line, Column: fn.Pos.Column}
		node.SetAttr("async", fn.IsAsync)
		node.SetAttr("generator", fn.IsGenerator)
		node.SetAttr("paramCount", len(fn.ParamNames))
		setControlFlowAttrs(&node, fn.ControlFlow)
		hints := append([]string{}, fn.ParamNames...)
		hints = append(hints, fmt.Sprintf("async=%v", fn.IsAsync), fmt.Sprintf("stmts=%d", fn.StmtCount))
		m.addNode(node, hints...)
		m.fnByScope[scopeKey(append(append([]string{}, fn.ScopePath...), fn.Name))] = id

		parent := parentOf(fn.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
		m.addEdge(graph.Edge{Type: graph.EdgeDeclares, Src: parent, Dst: id})
	}

	for _, s := range bundle.Scopes {
		id := scope.BuildBaseID(m.file, s.ScopePath, "SCOPE", s.Kind)
		node := graph.Node{ID: id, Type: graph.KindScope, Name: s.Kind, File: m.file, Line: s.Pos.Line, Column: s.Pos.Column}
		m.addNode(node, fmt.Sprintf("col=%d", s.StartCol))
		parent := parentOf(s.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeHasScope, Src: parent, Dst: id})
	}

	for _, vd := range bundle.VarDecls {
		id := scope.BuildBaseID(m.file, vd.ScopePath, "VARIABLE", vd.Name)
		kind := graph.KindVariable
		if vd.IsConst {
			kind = graph.KindConstant
		}
		node := graph.Node{ID: id, Type: kind, Name: vd.Name, File: m.file, Line: vd.Pos.Line, Column: vd.Pos.Column}
		hints := append([]string{string(vd.InitExprKind), string(vd.InitSubKind)}, vd.InitShapeHints...)
		m.addNode(node, hints...)
		parent := parentOf(vd.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeDeclares, Src: parent, Dst: id})

		if vd.InitExprKind == facts.ExprVariable {
			for _, src := range vd.InitShapeHints[1:] {
				if srcID, ok := m.byName[src]; ok {
					m.addEdge(graph.Edge{Type: graph.EdgeReadsFrom, Src: id, Dst: srcID})
				}
			}
		}
	}

	for _, cs := range bundle.CallSites {
		id := scope.BuildBaseID(m.file, cs.ScopePath, "CALL", fmt.Sprintf("%s#%d", cs.CalleeName, cs.Ordinal))
		node := graph.Node{ID: id, Type: graph.KindCall, Name: cs.CalleeName, File: m.file, Line: cs.Pos.Line, Column: cs.Pos.Column}
		node.SetAttr("argCount", cs.ArgCount)
		node.SetAttr("awaited", cs.IsAwaited)
		node.SetAttr("insideTry", cs.IsInsideTry)
		node.SetAttr("insideLoop", cs.IsInsideLoop)
		// A CALL node is named after its callee, so addNode would point
		// byName at this call; keep the callee's own binding there instead.
		target, hasTarget := m.byName[cs.CalleeName]
		m.addNode(node)
		if hasTarget {
			m.byName[cs.CalleeName] = target
		} else {
			delete(m.byName, cs.CalleeName)
		}
		parent := parentOf(cs.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
		if hasTarget {
			m.addEdge(graph.Edge{Type: graph.EdgeCalls, Src: id, Dst: target})
		}
	}

	var methodCallIDs []string
	for _, mc := range bundle.MethodCalls {
		id := scope.BuildBaseID(m.file, mc.ScopePath, "METHOD_CALL", fmt.Sprintf("%s.%s#%d", mc.ReceiverName, mc.MethodName, mc.Ordinal))
		node := graph.Node{ID: id, Type: graph.KindMethodCall, Name: mc.MethodName, File: m.file, Line: mc.Pos.Line, Column: mc.Pos.Column}
		node.SetAttr("receiver", mc.ReceiverName)
		node.SetAttr("chainIndex", mc.ChainIndex)
		node.SetAttr("insideTry", mc.IsInsideTry)
		node.SetAttr("insideLoop", mc.IsInsideLoop)
		if mc.Special != "" {
			node.SetAttr("special", mc.Special)
		}
		m.addNode(node)
		methodCallIDs = append(methodCallIDs, id)
		parent := parentOf(mc.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
		if recvID, ok := m.byName[mc.ReceiverName]; ok {
			m.addEdge(graph.Edge{Type: graph.EdgeCallsOn, Src: id, Dst: recvID})
		}
	}
	// CHAINS_FROM links each non-base method call (ChainIndex > 0, i.e. its
	// receiver is itself a call expression) to its chain predecessor. The
	// analyzer's handleCall records a method call before recursing into its
	// receiver object (pkg/analyzer/handlers_call.go), so when the receiver
	// is itself a method call, that predecessor is always the very next
	// entry appended to bundle.MethodCalls.
	for i, mc := range bundle.MethodCalls {
		if mc.ChainIndex <= 0 || i+1 >= len(bundle.MethodCalls) {
			continue
		}
		m.addEdge(graph.Edge{Type: graph.EdgeChainsFrom, Src: methodCallIDs[i], Dst: methodCallIDs[i+1]})
	}

	for _, ctor := range bundle.CtorCalls {
		id := scope.BuildBaseID(m.file, ctor.ScopePath, "CONSTRUCTOR_CALL", fmt.Sprintf("%s#%d", ctor.CalleeName, ctor.Ordinal))
		node := graph.Node{ID: id, Type: graph.KindCtorCall, Name: ctor.CalleeName, File: m.file, Line: ctor.Pos.Line, Column: ctor.Pos.Column}
		node.SetAttr("builtin", ctor.IsBuiltin)
		m.addNode(node)
		parent := parentOf(ctor.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
	}

	for _, pa := range bundle.PropertyAccess {
		id := scope.BuildBaseID(m.file, pa.ScopePath, "PROPERTY_ACCESS", fmt.Sprintf("%s.%s#%d", pa.ObjectName, joinPath(pa.PropPath), pa.Ordinal))
		node := graph.Node{ID: id, Type: graph.KindPropertyAcc, Name: joinPath(pa.PropPath), File: m.file, Line: pa.Pos.Line, Column: pa.Pos.Column}
		node.SetAttr("object", pa.ObjectName)
		node.SetAttr("private", pa.IsPrivate)
		m.addNode(node)
		parent := parentOf(pa.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
		m.addEdge(graph.Edge{Type: graph.EdgeUses, Src: parent, Dst: id})
		if objID, ok := m.byName[pa.ObjectName]; ok {
			m.addEdge(graph.Edge{Type: graph.EdgeReadsFrom, Src: id, Dst: objID})
		}
	}

	for _, lit := range bundle.Literals {
		id := scope.BuildBaseID(m.file, lit.ScopePath, "LITERAL", fmt.Sprintf("%s#%d", lit.Kind, lit.Ordinal))
		node := graph.Node{ID: id, Type: graph.KindLiteral, Name: lit.Raw, File: m.file, Line: lit.Pos.Line, Column: lit.Pos.Column}
		node.SetAttr("kind", lit.Kind)
		m.addNode(node)
		parent := parentOf(lit.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
	}

	for _, obj := range bundle.ObjectLiterals {
		id := scope.BuildBaseID(m.file, obj.ScopePath, "OBJECT_LITERAL", fmt.Sprintf("obj#%d", obj.Ordinal))
		node := graph.Node{ID: id, Type: graph.KindObjectLit, File: m.file, Line: obj.Pos.Line, Column: obj.Pos.Column}
		node.SetAttr("propertyCount", len(obj.Properties))
		m.addNode(node)
		parent := parentOf(obj.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
	}

	for _, arr := range bundle.ArrayLiterals {
		id := scope.BuildBaseID(m.file, arr.ScopePath, "ARRAY_LITERAL", fmt.Sprintf("arr#%d", arr.Ordinal))
		node := graph.Node{ID: id, Type: graph.KindArrayLit, File: m.file, Line: arr.Pos.Line, Column: arr.Pos.Column}
		node.SetAttr("elementCount", len(arr.Elements))
		m.addNode(node)
		parent := parentOf(arr.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
	}

	for _, cls := range bundle.Classes {
		id := scope.BuildBaseID(m.file, cls.ScopePath, "CLASS", cls.Name)
		node := graph.Node{ID: id, Type: graph.KindClass, Name: cls.Name, File: m.file, Line: cls.Pos.Line, Column: cls.Pos.Column}
		node.SetAttr("decorators", cls.Decorators)
		node.SetAttr("implements", cls.Implements)
		hints := append([]string{fmt.Sprintf("line=%d", cls.Pos.Line), cls.Extends}, cls.Decorators...)
		m.addNode(node, hints...)
		parent := parentOf(cls.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
		m.addEdge(graph.Edge{Type: graph.EdgeDeclares, Src: parent, Dst: id})
		if cls.Extends != "" {
			if superID, ok := m.byName[cls.Extends]; ok {
				m.addEdge(graph.Edge{Type: graph.EdgeExtends, Src: id, Dst: superID})
			}
		}
		for _, decoratorName := range cls.Decorators {
			decID := scope.BuildBaseID(m.file, cls.ScopePath, "DECORATOR", fmt.Sprintf("%s@%s", decoratorName, cls.Name))
			decNode := graph.Node{ID: decID, Type: graph.KindDecorator, Name: decoratorName, File: m.file, Line: cls.Pos.Line, Column: cls.Pos.Column}
			m.addNode(decNode, decoratorName, cls.Name)
			m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: id, Dst: decID})
		}
	}

	for _, iface := range bundle.Interfaces {
		kind := graph.KindInterface
		if iface.IsAlias {
			kind = graph.KindType
		}
		id := scope.BuildBaseID(m.file, iface.ScopePath, string(kind), iface.Name)
		node := graph.Node{ID: id, Type: kind, Name: iface.Name, File: m.file, Line: iface.Pos.Line, Column: iface.Pos.Column}
		m.addNode(node, fmt.Sprintf("line=%d", iface.Pos.Line))
		parent := parentOf(iface.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
	}

	for _, en := range bundle.Enums {
		id := scope.BuildBaseID(m.file, en.ScopePath, "ENUM", en.Name)
		node := graph.Node{ID: id, Type: graph.KindEnum, Name: en.Name, File: m.file, Line: en.Pos.Line, Column: en.Pos.Column}
		node.SetAttr("members", en.Members)
		m.addNode(node, en.Members...)
		parent := parentOf(en.ScopePath)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
	}
}

// setControlFlowAttrs copies a function's analyzer-computed control-flow
// summary onto its FUNCTION/METHOD node as attributes, so
// downstream consumers (Validation, query layers) can read it without
// re-deriving it from the function's BRANCH/LOOP/THROW children.
func setControlFlowAttrs(node *graph.Node, cf facts.ControlFlow) {
	node.SetAttr("hasBranches", cf.HasBranches)
	node.SetAttr("hasLoops", cf.HasLoops)
	node.SetAttr("hasTryCatch", cf.HasTryCatch)
	node.SetAttr("hasEarlyReturn", cf.HasEarlyReturn)
	node.SetAttr("hasThrow", cf.HasThrow)
	node.SetAttr("cyclomaticComplexity", cf.CyclomaticComplexity)
	node.SetAttr("canReject", cf.CanReject)
	node.SetAttr("hasAsyncThrow", cf.HasAsyncThrow)
	node.SetAttr("rejectedBuiltinErrors", cf.RejectedBuiltinErrors)
	node.SetAttr("thrownBuiltinErrors", cf.ThrownBuiltinErrors)
	node.SetAttr("invokesParamIndexes", cf.InvokesParamIndexes)
	node.SetAttr("invokesParamBindings", cf.InvokesParamBindings)
}

func kindFor(fn facts.Function) graph.NodeKind {
	if fn.IsMethod {
		return graph.KindMethod
	}
	return graph.KindFunction
}

func joinPath(segs []string) string {
	out := ""
	for i, s := range segs {
		if i > 0 {
			out += "."
		}
		out += s
	}
	return out
}
