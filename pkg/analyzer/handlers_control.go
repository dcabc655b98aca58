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

// handleBranch is the branch half of the loop/try-catch/branch handler:
// creates a BRANCH fact and pushes a scope frame for the consequent, and
// another for any else/else-if, extracting constraint facts from the
// test expression via the condition parser.
func (v *visitor) handleBranch(n *sitter.Node) {
	test := n.ChildByFieldName("condition")
	constraints := v.conditionParser(test)

	v.tracker.EnterCountedScope(scope.KindIf)
	v.bundle.Branches = append(v.bundle.Branches, facts.Branch{
		Pos:             v.pos(n),
		ScopePath:       v.scopePath(),
		Kind:            "if",
		ConditionHints:  []string{v.text(test)},
		ConstraintExprs: constraints,
	})
	v.walk(test)
	v.walk(n.ChildByFieldName("consequence"))
	v.tracker.ExitScope()

	if alt := n.ChildByFieldName("alternative"); alt != nil {
		v.tracker.EnterCountedScope(scope.KindElse)
		v.bundle.Branches = append(v.bundle.Branches, facts.Branch{
			Pos:             v.pos(alt),
			ScopePath:       v.scopePath(),
			Kind:            "else",
			ConstraintExprs: negateConstraints(constraints),
		})
		v.walk(alt)
		v.tracker.ExitScope()
	}
}

func (v *visitor) handleSwitch(n *sitter.Node) {
	v.tracker.EnterScope("switch", scope.KindSwitch)
	v.walk(n.ChildByFieldName("value"))
	v.walk(n.ChildByFieldName("body"))
	v.tracker.ExitScope()
}

func (v *visitor) handleCase(n *sitter.Node) {
	kind := "case"
	if n.Type() == "switch_default" {
		kind = "default"
	}
	var constraints []facts.ConstraintFact
	if valNode := n.ChildByFieldName("value"); valNode != nil {
		constraints = v.conditionParser(valNode)
	}

	v.tracker.EnterCountedScope(scope.KindIf) // cases share the branch-frame vocabulary (ordinal disambiguation)
	v.bundle.Branches = append(v.bundle.Branches, facts.Branch{
		Pos:             v.pos(n),
		ScopePath:       v.scopePath(),
		Kind:            kind,
		ConstraintExprs: constraints,
	})
	v.walkChildren(n)
	v.tracker.ExitScope()
}

// handleTryCatch is the try/catch half of the handler: creates
// TRY_BLOCK/CATCH_BLOCK/FINALLY_BLOCK facts and scope frames, and
// maintains tryDepth for nested try blocks.
func (v *visitor) handleTryCatch(n *sitter.Node) {
	v.tryDepth++
	defer func() { v.tryDepth-- }()

	body := n.ChildByFieldName("body")
	handler := n.ChildByFieldName("handler")
	finalizer := n.ChildByFieldName("finalizer")

	tb := facts.TryBlock{
		Pos:        v.pos(n),
		ScopePath:  v.scopePath(),
		HasCatch:   handler != nil,
		HasFinally: finalizer != nil,
	}
	if handler != nil {
		if p := handler.ChildByFieldName("parameter"); p != nil {
			tb.CatchParamName = v.text(p)
		}
	}
	v.bundle.TryBlocks = append(v.bundle.TryBlocks, tb)

	v.tracker.EnterCountedScope(scope.KindTry)
	v.walk(body)
	v.tracker.ExitScope()

	if handler != nil {
		v.tracker.EnterCountedScope(scope.KindCatch)
		v.walk(handler.ChildByFieldName("body"))
		v.tracker.ExitScope()
	}
	if finalizer != nil {
		v.tracker.EnterCountedScope(scope.KindFinally)
		v.walk(finalizer.ChildByFieldName("body"))
		v.tracker.ExitScope()
	}
}

// handleLoop is the loop half of the handler: creates a SCOPE/Loop fact,
// pushes a frame, and maintains loopDepth.
func (v *visitor) handleLoop(n *sitter.Node) {
	v.loopDepth++
	defer func() { v.loopDepth-- }()

	kindByType := map[string]string{
		"for_statement":    "for",
		"for_in_statement": "for_in",
		"while_statement":  "while",
		"do_statement":     "do_while",
	}
	kind := kindByType[n.Type()]
	scopeKind := scope.KindFor
	switch n.Type() {
	case "while_statement":
		scopeKind = scope.KindWhile
	case "do_statement":
		scopeKind = scope.KindDoWhile
	}

	v.bundle.Loops = append(v.bundle.Loops, facts.Loop{
		Pos:       v.pos(n),
		ScopePath: v.scopePath(),
		Kind:      kind,
	})

	v.tracker.EnterCountedScope(scopeKind)
	v.walkChildren(n)
	v.tracker.ExitScope()
}
