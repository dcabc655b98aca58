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

// miscEdgeBuilder is the fourth and last sub-builder: it emits everything
// coreBuilder/assignmentBuilder/returnBuilder don't touch — parameters,
// throws/try-blocks, branches, loops, imports/exports, update expressions,
// and the single-collector MiscEdge facts the analyzer funnels shared
// node/edge kinds through (spreads, merges, private access, param
// invocation, promise bindings, destructuring leaves).
func miscEdgeBuilder(m *moduleCtx, bundle *facts.Bundle) {
	buildParameters(m, bundle)
	buildThrows(m, bundle)
	buildTryBlocks(m, bundle)
	buildBranches(m, bundle)
	buildLoops(m, bundle)
	buildImports(m, bundle)
	buildExports(m, bundle)
	buildUpdateExprs(m, bundle)
	buildMiscEdges(m, bundle)
}

// buildParameters emits PARAMETER nodes under their owning function and
// DEFAULTS_TO edges for default-value expressions whose hint resolves to
// an already-staged name. The analyzer's emitParameters runs immediately
// when a function is entered, before its body (and any nested functions)
// are walked, so bundle.Parameters is partitioned into contiguous runs
// that line up positionally with bundle.Functions in the same order.
func buildParameters(m *moduleCtx, bundle *facts.Bundle) {
	idx := 0
	for _, fn := range bundle.Functions {
		fnKey := scopeKey(append(append([]string{}, fn.ScopePath...), fn.Name))
		ownerID, ok := m.fnByScope[fnKey]
		n := len(fn.ParamNames)
		if idx+n > len(bundle.Parameters) {
			n = len(bundle.Parameters) - idx
		}
		if !ok {
			idx += n
			continue
		}
		scopePath := append(append([]string{}, fn.ScopePath...), fn.Name)
		for j := 0; j < n; j++ {
			p := bundle.Parameters[idx+j]
			id := scope.BuildBaseID(m.file, scopePath, "PARAMETER", fmt.Sprintf("%s#%d", p.Name, p.Index))
			node := graph.Node{ID: id, Type: graph.KindParameter, Name: p.Name, File: m.file, Line: p.Pos.Line, Column: p.Pos.Column}
			node.SetAttr("index", p.Index)
			node.SetAttr("rest", p.IsRest)
			node.SetAttr("hasDefault", p.HasDefault)
			m.addNode(node, fmt.Sprintf("idx=%d", p.Index))
			m.addEdge(graph.Edge{Type: graph.EdgeDeclares, Src: ownerID, Dst: id})

			if p.HasDefault && len(p.DefaultHints) > 1 {
				if srcID, ok := m.byName[p.DefaultHints[1]]; ok {
					m.addEdge(graph.Edge{Type: graph.EdgeDefaultsTo, Src: id, Dst: srcID})
				}
			}
		}
		idx += n
	}
}

// buildThrows emits THROWS/REJECTS edges from the owning function to the
// thrown expression. A resolved error class that also names a known local
// binding gets a CATCHES_FROM-worthy tie via the shared target name; a
// bare builtin constructor class has no local node and is left for
// enrichment.
func buildThrows(m *moduleCtx, bundle *facts.Bundle) {
	for i, th := range bundle.Throws {
		owner, ok := m.fnByScope[nearestFunctionKey(m, th.ScopePath)]
		if !ok {
			continue
		}
		edgeType := graph.EdgeThrows
		if th.IsAsync {
			edgeType = graph.EdgeRejects
		}

		if th.TargetName != "" {
			if srcID, ok := m.byName[th.TargetName]; ok {
				m.addEdge(graph.Edge{Type: edgeType, Src: owner, Dst: srcID})
				continue
			}
		}

		exprID := scope.BuildBaseID(m.file, th.ScopePath, "EXPRESSION", fmt.Sprintf("throw#%d", i))
		node := graph.Node{ID: exprID, Type: graph.KindExpression, File: m.file, Line: th.Pos.Line, Column: th.Pos.Column}
		node.SetAttr("errorClass", th.ErrorClass)
		node.SetAttr("async", th.IsAsync)
		node.SetAttr("pattern", th.Pattern)
		m.addNode(node, th.ErrorClass, th.TargetName)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: owner, Dst: exprID})
		m.addEdge(graph.Edge{Type: edgeType, Src: owner, Dst: exprID})
	}
}

// buildTryBlocks emits TRY_BLOCK/CATCH_BLOCK/FINALLY_BLOCK nodes and a
// CATCHES_FROM edge from the catch block to its try block. Individual
// throws inside the try are not linked to the catch block.
func buildTryBlocks(m *moduleCtx, bundle *facts.Bundle) {
	for i, tb := range bundle.TryBlocks {
		parent := parentScopeID(m, tb.ScopePath)
		tryID := scope.BuildBaseID(m.file, tb.ScopePath, "TRY_BLOCK", fmt.Sprintf("try#%d", i))
		tryNode := graph.Node{ID: tryID, Type: graph.KindTryBlock, File: m.file, Line: tb.Pos.Line, Column: tb.Pos.Column}
		m.addNode(tryNode, fmt.Sprintf("line=%d", tb.Pos.Line))
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: tryID})

		if tb.HasCatch {
			catchID := scope.BuildBaseID(m.file, tb.ScopePath, "CATCH_BLOCK", fmt.Sprintf("catch#%d", i))
			catchNode := graph.Node{ID: catchID, Type: graph.KindCatchBlock, Name: tb.CatchParamName, File: m.file, Line: tb.Pos.Line, Column: tb.Pos.Column}
			m.addNode(catchNode, tb.CatchParamName)
			m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: tryID, Dst: catchID})
			m.addEdge(graph.Edge{Type: graph.EdgeCatchesFrom, Src: catchID, Dst: tryID})
		}
		if tb.HasFinally {
			finallyID := scope.BuildBaseID(m.file, tb.ScopePath, "FINALLY_BLOCK", fmt.Sprintf("finally#%d", i))
			finallyNode := graph.Node{ID: finallyID, Type: graph.KindFinallyBlock, File: m.file, Line: tb.Pos.Line, Column: tb.Pos.Column}
			m.addNode(finallyNode)
			m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: tryID, Dst: finallyID})
		}
	}
}

// buildBranches emits BRANCH/CASE nodes and CONSTRAINED_BY edges to the
// identifiers named in each extracted constraint.
func buildBranches(m *moduleCtx, bundle *facts.Bundle) {
	for i, br := range bundle.Branches {
		parent := parentScopeID(m, br.ScopePath)
		kind := graph.KindBranch
		if br.Kind == "case" || br.Kind == "default" {
			kind = graph.KindCase
		}
		id := scope.BuildBaseID(m.file, br.ScopePath, string(kind), fmt.Sprintf("%s#%d", br.Kind, i))
		node := graph.Node{ID: id, Type: kind, Name: br.Kind, File: m.file, Line: br.Pos.Line, Column: br.Pos.Column}
		node.SetAttr("conditionCount", len(br.ConstraintExprs))
		hints := append([]string{}, br.ConditionHints...)
		m.addNode(node, hints...)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})

		for _, c := range br.ConstraintExprs {
			if srcID, ok := m.byName[c.Subject]; ok {
				edge := graph.Edge{Type: graph.EdgeConstrainedBy, Src: id, Dst: srcID}
				edge.Meta = map[string]any{"operator": c.Operator, "value": c.Value}
				if len(c.Values) > 0 {
					edge.Meta["values"] = c.Values
				}
				if c.Excludes {
					edge.Meta["excludes"] = true
				}
				if c.Negated {
					edge.Meta["negated"] = true
				}
				m.addEdge(edge)
			}
		}
	}
}

// buildLoops emits a SCOPE node per loop, named after the loop kind and
// carrying it as the loopKind attribute, with a HAS_SCOPE edge from the
// loop's enclosing scope.
func buildLoops(m *moduleCtx, bundle *facts.Bundle) {
	for i, lp := range bundle.Loops {
		parent := parentScopeID(m, lp.ScopePath)
		id := scope.BuildBaseID(m.file, lp.ScopePath, "SCOPE", fmt.Sprintf("%s#%d", lp.Kind, i))
		node := graph.Node{ID: id, Type: graph.KindScope, Name: lp.Kind, File: m.file, Line: lp.Pos.Line, Column: lp.Pos.Column}
		node.SetAttr("loopKind", lp.Kind)
		m.addNode(node, lp.Kind)
		m.addEdge(graph.Edge{Type: graph.EdgeHasScope, Src: parent, Dst: id})
	}
}

// buildImports emits IMPORT nodes at module scope, one per binding, each
// carrying the import path as an attribute and contained by the MODULE
// node.
func buildImports(m *moduleCtx, bundle *facts.Bundle) {
	for i, imp := range bundle.Imports {
		for j, b := range imp.Bindings {
			name := b.LocalAlias
			id := scope.BuildBaseID(m.file, nil, "IMPORT", fmt.Sprintf("%s#%d.%d", name, i, j))
			node := graph.Node{ID: id, Type: graph.KindImport, Name: name, File: m.file, Line: imp.Pos.Line, Column: imp.Pos.Column}
			node.SetAttr("importPath", imp.ImportPath)
			node.SetAttr("importedName", b.ImportedName)
			node.SetAttr("namespace", b.IsNamespace)
			node.SetAttr("default", b.IsDefault)
			m.addNode(node, imp.ImportPath, b.ImportedName)
			m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: m.module, Dst: id})
			// The IMPORTS_FROM edge to the resolved target module is
			// Enrichment's job (pkg/enrichment's ImportExportLinker): the
			// target module's node id isn't known until all modules in the
			// workspace have been indexed.
		}
	}
}

// buildExports emits EXPORT nodes at module scope and, for a local (not
// re-exported) export, an edge from the export back to the local binding
// it exposes.
func buildExports(m *moduleCtx, bundle *facts.Bundle) {
	for i, exp := range bundle.Exports {
		id := scope.BuildBaseID(m.file, nil, "EXPORT", fmt.Sprintf("%s#%d", exp.ExportedName, i))
		node := graph.Node{ID: id, Type: graph.KindExport, Name: exp.ExportedName, File: m.file, Line: exp.Pos.Line, Column: exp.Pos.Column}
		node.SetAttr("default", exp.IsDefault)
		node.SetAttr("reExportFrom", exp.ReExportFrom)
		m.addNode(node, exp.LocalName, exp.ReExportFrom)
		m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: m.module, Dst: id})
		if exp.ReExportFrom == "" && exp.LocalName != "" {
			if srcID, ok := m.byName[exp.LocalName]; ok {
				m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: id, Dst: srcID})
			}
		}
	}
}

// buildUpdateExprs emits DERIVES_FROM self-edges recording that a ++/--
// target derives its post-update value from its own pre-update value,
// against the already-staged VARIABLE node for the target name.
func buildUpdateExprs(m *moduleCtx, bundle *facts.Bundle) {
	for _, ue := range bundle.UpdateExprs {
		targetID, ok := m.byName[ue.TargetName]
		if !ok {
			continue
		}
		edge := graph.Edge{Type: graph.EdgeDerivesFrom, Src: targetID, Dst: targetID}
		edge.Meta = map[string]any{"operator": ue.Operator, "prefix": ue.IsPrefix}
		m.addEdge(edge)
	}
}

// buildMiscEdges dispatches every MiscEdge fact the analyzer's single
// collector handler emitted, by Kind.
func buildMiscEdges(m *moduleCtx, bundle *facts.Bundle) {
	for i, me := range bundle.MiscEdges {
		switch me.Kind {
		case "MERGES_WITH":
			sources, _ := me.Meta["sources"].([]string)
			if dstID, ok := m.nearestContainerID(me.ScopePath); ok {
				for _, src := range sources {
					if srcID, ok := m.byName[src]; ok && srcID != dstID {
						m.addEdge(graph.Edge{Type: graph.EdgeMergesWith, Src: dstID, Dst: srcID})
					}
				}
			}

		case "SPREADS_FROM":
			if dstID, ok := m.nearestContainerID(me.ScopePath); ok {
				if srcID, ok := m.byName[me.Subject]; ok {
					m.addEdge(graph.Edge{Type: graph.EdgeSpreadsFrom, Src: dstID, Dst: srcID})
				}
			}

		case "ACCESSES_PRIVATE":
			if objID, ok := m.byName[me.Subject]; ok {
				id := scope.BuildBaseID(m.file, me.ScopePath, "PROPERTY_ACCESS", fmt.Sprintf("%s.%s#priv%d", me.Subject, me.Object, i))
				node := graph.Node{ID: id, Type: graph.KindPropertyAcc, Name: me.Object, File: m.file, Line: me.Pos.Line, Column: me.Pos.Column}
				node.SetAttr("object", me.Subject)
				node.SetAttr("private", true)
				m.addNode(node, me.Subject, me.Object)
				if parent, ok := m.nearestContainerID(me.ScopePath); ok {
					m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: parent, Dst: id})
				}
				m.addEdge(graph.Edge{Type: graph.EdgeAccessesPrivate, Src: objID, Dst: id})
			}

		case "INVOKES_PARAM":
			owner, ok := m.fnByScope[nearestFunctionKey(m, me.ScopePath)]
			if !ok {
				continue
			}
			if paramID, ok := m.byName[me.Subject]; ok {
				m.addEdge(graph.Edge{Type: graph.EdgeInvokes, Src: owner, Dst: paramID})
			}

		case "PROMISE_RESOLVE_BINDING", "PROMISE_REJECT_BINDING":
			// No node is emitted for the resolve/reject bindings: the
			// analyzer walks the executor body inline in the enclosing
			// scope, and a call to the reject binding is already recorded
			// as an executor_reject Throw on the enclosing function, so
			// this fact is consumed at the analyzer/facts boundary only.
			continue

		case "DESTRUCTURE_LEAF":
			id := scope.BuildBaseID(m.file, me.ScopePath, "VARIABLE", fmt.Sprintf("%s#leaf%d", me.Subject, i))
			node := graph.Node{ID: id, Type: graph.KindVariable, Name: me.Subject, File: m.file, Line: me.Pos.Line, Column: me.Pos.Column}
			propPath, _ := me.Meta["propPath"].([]string)
			index, _ := me.Meta["index"].(int)
			isRest, _ := me.Meta["isRest"].(bool)
			hasDefault, _ := me.Meta["hasDefault"].(bool)
			m.addNode(node, fmt.Sprintf("leaf=%d", i), fmt.Sprintf("path=%s", joinPath(propPath)), fmt.Sprintf("rest=%v", isRest))
			if dstID, ok := m.nearestContainerID(me.ScopePath); ok {
				m.addEdge(graph.Edge{Type: graph.EdgeDeclares, Src: dstID, Dst: id})
			}

			// The leaf's EXPRESSION node represents the property access (or
			// array index) it is bound through: `const { x } = obj` derives
			// x's value from an EXPRESSION node for `obj.x`, not straight from
			// `obj` itself, so two differently-named properties destructured
			// off the same object stay distinguishable by provenance.
			exprID := scope.BuildBaseID(m.file, me.ScopePath, "EXPRESSION", fmt.Sprintf("destructure#%d", i))
			exprLabel := joinPath(propPath)
			if exprLabel == "" {
				exprLabel = fmt.Sprintf("[%d]", index)
			}
			exprNode := graph.Node{ID: exprID, Type: graph.KindExpression, Name: exprLabel, File: m.file, Line: me.Pos.Line, Column: me.Pos.Column}
			exprNode.SetAttr("propPath", propPath)
			exprNode.SetAttr("index", index)
			exprNode.SetAttr("isRest", isRest)
			m.addNode(exprNode, exprLabel, fmt.Sprintf("idx=%d", index))
			if dstID, ok := m.nearestContainerID(me.ScopePath); ok {
				m.addEdge(graph.Edge{Type: graph.EdgeContains, Src: dstID, Dst: exprID})
			}
			m.addEdge(graph.Edge{Type: graph.EdgeAssignedFrom, Src: id, Dst: exprID})

			hints, _ := me.Meta["hints"].([]string)
			for _, h := range hints {
				if srcID, ok := m.byName[h]; ok && srcID != id {
					m.addEdge(graph.Edge{Type: graph.EdgeDerivesFrom, Src: exprID, Dst: srcID})
				}
			}

			if hasDefault {
				defaultHints, _ := me.Meta["defaultHints"].([]string)
				if len(defaultHints) > 1 {
					if srcID, ok := m.byName[defaultHints[1]]; ok {
						m.addEdge(graph.Edge{Type: graph.EdgeDefaultsTo, Src: id, Dst: srcID})
					}
				}
			}

		case "BINDS_THIS_TO":
			fnID, ok := m.byName[me.Subject]
			if !ok {
				continue
			}
			if thisID, ok := m.byName[me.Object]; ok {
				m.addEdge(graph.Edge{Type: graph.EdgeBindsThisTo, Src: fnID, Dst: thisID})
			}

		case "DELETES":
			if objID, ok := m.byName[me.Subject]; ok {
				m.addEdge(graph.Edge{Type: graph.EdgeDeletes, Src: objID, Dst: objID, Meta: map[string]any{"property": me.Object}})
			}

		case "SHADOWS":
			outerPath, _ := me.Meta["outerScopePath"].([]string)
			innerID := scope.BuildBaseID(m.file, me.ScopePath, "VARIABLE", me.Subject)
			outerID := scope.BuildBaseID(m.file, outerPath, "VARIABLE", me.Subject)
			m.addEdge(graph.Edge{Type: graph.EdgeShadows, Src: innerID, Dst: outerID})

		case "OVERRIDES":
			childPath, _ := me.Meta["childScopePath"].([]string)
			childName, _ := me.Meta["childName"].(string)
			parentPath, _ := me.Meta["parentScopePath"].([]string)
			parentName, _ := me.Meta["parentName"].(string)
			childID := scope.BuildBaseID(m.file, childPath, "METHOD", childName)
			parentID := scope.BuildBaseID(m.file, parentPath, "METHOD", parentName)
			m.addEdge(graph.Edge{Type: graph.EdgeOverrides, Src: childID, Dst: parentID})

		case "HAS_OVERLOAD":
			implPath, _ := me.Meta["implScopePath"].([]string)
			implName, _ := me.Meta["implName"].(string)
			sigPath, _ := me.Meta["sigScopePath"].([]string)
			sigName, _ := me.Meta["sigName"].(string)
			implID := scope.BuildBaseID(m.file, implPath, "FUNCTION", implName)
			sigID := scope.BuildBaseID(m.file, sigPath, "FUNCTION", sigName)
			m.addEdge(graph.Edge{Type: graph.EdgeHasOverload, Src: implID, Dst: sigID})

		case "IMPLEMENTS_OVERLOAD":
			implPath, _ := me.Meta["implScopePath"].([]string)
			implName, _ := me.Meta["implName"].(string)
			sigPath, _ := me.Meta["sigScopePath"].([]string)
			sigName, _ := me.Meta["sigName"].(string)
			implID := scope.BuildBaseID(m.file, implPath, "FUNCTION", implName)
			sigID := scope.BuildBaseID(m.file, sigPath, "FUNCTION", sigName)
			m.addEdge(graph.Edge{Type: graph.EdgeImplementsOverload, Src: sigID, Dst: implID})

		case "UNION_MEMBER", "INTERSECTS_WITH":
			srcID, ok := m.byName[me.Subject]
			if !ok {
				continue
			}
			dstID, ok := m.byName[me.Object]
			if !ok {
				continue
			}
			kind := graph.EdgeUnionMember
			if me.Kind == "INTERSECTS_WITH" {
				kind = graph.EdgeIntersectsWith
			}
			m.addEdge(graph.Edge{Type: kind, Src: srcID, Dst: dstID})

		case "INFERS":
			srcID, ok := m.byName[me.Subject]
			if !ok {
				continue
			}
			typeID := scope.BuildBaseID(m.file, me.ScopePath, "TYPE_PARAMETER", fmt.Sprintf("%s#%d", me.Object, i))
			node := graph.Node{ID: typeID, Type: graph.KindTypeParam, Name: me.Object, File: m.file, Line: me.Pos.Line, Column: me.Pos.Column}
			m.addNode(node, fmt.Sprintf("line=%d", me.Pos.Line))
			m.addEdge(graph.Edge{Type: graph.EdgeInfers, Src: srcID, Dst: typeID})

		case "EXTENDS_SCOPE_WITH":
			scopeID := scope.BuildBaseID(m.file, me.ScopePath, "SCOPE", fmt.Sprintf("with#%d", i))
			node := graph.Node{ID: scopeID, Type: graph.KindScope, Name: "with", File: m.file, Line: me.Pos.Line, Column: me.Pos.Column}
			m.addNode(node, fmt.Sprintf("with#%d", i))
			parent := parentScopeID(m, me.ScopePath)
			m.addEdge(graph.Edge{Type: graph.EdgeHasScope, Src: parent, Dst: scopeID})
			if objID, ok := m.byName[me.Subject]; ok {
				m.addEdge(graph.Edge{Type: graph.EdgeExtendsScopeWith, Src: scopeID, Dst: objID})
			}
		}
	}
}

// nearestContainerID finds the nearest FUNCTION/MODULE container for
// scopePath, falling back to the function lookup used elsewhere since
// most misc-edge sources originate inside a function body.
func (m *moduleCtx) nearestContainerID(scopePath []string) (string, bool) {
	if id, ok := m.fnByScope[nearestFunctionKey(m, scopePath)]; ok {
		return id, true
	}
	if m.module != "" {
		return m.module, true
	}
	return "", false
}

// parentScopeID mirrors coreBuilder's parentOf closure for sub-builders
// that run after coreBuilder has already populated m.fnByScope, falling
// back to the MODULE node for top-level facts.
func parentScopeID(m *moduleCtx, segs []string) string {
	for end := len(segs); end > 0; end-- {
		if id, ok := m.fnByScope[scopeKey(segs[:end])]; ok {
			return id
		}
	}
	return m.module
}
