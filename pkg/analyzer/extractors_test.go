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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/grafema/pkg/facts"
)

func TestConditionParser_TypeofEquality(t *testing.T) {
	bundle := parseOne(t, `
function c(x) {
  if (typeof x === "string") { return 1; }
  return 2;
}
`)

	require.NotEmpty(t, bundle.Branches)
	constraints := bundle.Branches[0].ConstraintExprs
	require.Len(t, constraints, 1)
	require.Equal(t, "x", constraints[0].Subject)
	require.Equal(t, "typeof===", constraints[0].Operator)
	require.Contains(t, constraints[0].Value, "string")
}

func TestConditionParser_PlainEquality(t *testing.T) {
	bundle := parseOne(t, `
function c(mode) {
  if (mode !== "fast") { return 0; }
  return 1;
}
`)

	constraints := bundle.Branches[0].ConstraintExprs
	require.Len(t, constraints, 1)
	require.Equal(t, "mode", constraints[0].Subject)
	require.Equal(t, "!==", constraints[0].Operator)
}

func TestConditionParser_TruthyAndFalsy(t *testing.T) {
	bundle := parseOne(t, `
function c(x, opts) {
  if (x) { return 1; }
  if (!opts.strict) { return 2; }
  return 3;
}
`)

	require.Len(t, bundle.Branches, 2)

	truthy := bundle.Branches[0].ConstraintExprs
	require.Len(t, truthy, 1)
	require.Equal(t, "x", truthy[0].Subject)
	require.Equal(t, "truthy", truthy[0].Operator)

	falsy := bundle.Branches[1].ConstraintExprs
	require.Len(t, falsy, 1)
	require.Equal(t, "opts.strict", falsy[0].Subject)
	require.Equal(t, "falsy", falsy[0].Operator)
}

func TestConditionParser_AndChain(t *testing.T) {
	bundle := parseOne(t, `
function c(a, b) {
  if (a === 1 && b) { return 1; }
  return 0;
}
`)

	constraints := bundle.Branches[0].ConstraintExprs
	require.Len(t, constraints, 2)
	require.Equal(t, "===", constraints[0].Operator)
	require.Equal(t, "a", constraints[0].Subject)
	require.Equal(t, "truthy", constraints[1].Operator)
	require.Equal(t, "b", constraints[1].Subject)
}

// `x === "a" || x === "b"` merges into one `in` constraint over both
// values.
func TestConditionParser_OrMergesIntoIn(t *testing.T) {
	bundle := parseOne(t, `
function c(mode) {
  if (mode === "fast" || mode === "slow") { return 1; }
  return 0;
}
`)

	constraints := bundle.Branches[0].ConstraintExprs
	require.Len(t, constraints, 1)
	require.Equal(t, "mode", constraints[0].Subject)
	require.Equal(t, "in", constraints[0].Operator)
	require.Len(t, constraints[0].Values, 2)
	require.Contains(t, constraints[0].Values[0], "fast")
	require.Contains(t, constraints[0].Values[1], "slow")
}

// An or-chain mixing subjects has no single-constraint form.
func TestConditionParser_MixedOrYieldsNothing(t *testing.T) {
	bundle := parseOne(t, `
function c(a, b) {
  if (a === 1 || b === 2) { return 1; }
  return 0;
}
`)

	require.Empty(t, bundle.Branches[0].ConstraintExprs)
}

// The else branch carries the De Morgan negation of the if-test.
func TestConditionParser_ElseBranchNegated(t *testing.T) {
	bundle := parseOne(t, `
function c(mode) {
  if (mode === "fast" || mode === "slow") {
    return 1;
  } else {
    return 0;
  }
}
`)

	require.Len(t, bundle.Branches, 2)
	require.Equal(t, "else", bundle.Branches[1].Kind)

	negated := bundle.Branches[1].ConstraintExprs
	require.Len(t, negated, 1)
	require.Equal(t, "mode", negated[0].Subject)
	require.Equal(t, "not_in", negated[0].Operator)
	require.True(t, negated[0].Excludes)
	require.True(t, negated[0].Negated)
	require.Len(t, negated[0].Values, 2)
}

func TestNegateConstraints(t *testing.T) {
	in := []facts.ConstraintFact{
		{Subject: "x", Operator: "===", Value: `"a"`},
		{Subject: "y", Operator: "truthy"},
		{Subject: "z", Operator: "not_in", Values: []string{"1", "2"}, Excludes: true},
	}
	out := negateConstraints(in)

	require.Equal(t, "!==", out[0].Operator)
	require.True(t, out[0].Negated)
	require.Equal(t, "falsy", out[1].Operator)
	require.Equal(t, "in", out[2].Operator)
	require.False(t, out[2].Excludes)

	// Negation round-trips back to the original operators.
	back := negateConstraints(out)
	require.Equal(t, "===", back[0].Operator)
	require.False(t, back[0].Negated)
	require.Equal(t, "truthy", back[1].Operator)
}

func TestDestructuring_NestedPropertyPath(t *testing.T) {
	bundle := parseOne(t, `
const obj = { a: { b: 1 } };
const { a: { b } } = obj;
`)

	var leaf facts.MiscEdge
	for _, me := range bundle.MiscEdges {
		if me.Kind == "DESTRUCTURE_LEAF" && me.Subject == "b" {
			leaf = me
		}
	}
	require.Equal(t, "b", leaf.Subject)
	require.Equal(t, []string{"a", "b"}, leaf.Meta["propPath"])
}

func TestDestructuring_ArrayIndexes(t *testing.T) {
	bundle := parseOne(t, `
const [x, y] = pair;
`)

	indexes := map[string]int{}
	for _, me := range bundle.MiscEdges {
		if me.Kind == "DESTRUCTURE_LEAF" {
			indexes[me.Subject] = me.Meta["index"].(int)
		}
	}
	require.Equal(t, map[string]int{"x": 0, "y": 1}, indexes)
}

func TestDestructuring_RestAndDefaults(t *testing.T) {
	bundle := parseOne(t, `
const { first = "none", ...others } = opts;
`)

	byKey := map[string]facts.MiscEdge{}
	for _, me := range bundle.MiscEdges {
		if me.Kind == "DESTRUCTURE_LEAF" {
			byKey[me.Subject] = me
		}
	}

	first, ok := byKey["first"]
	require.True(t, ok)
	require.Equal(t, true, first.Meta["hasDefault"])

	others, ok := byKey["others"]
	require.True(t, ok)
	require.Equal(t, true, others.Meta["isRest"])
}

func TestVarDecl_InitClassification(t *testing.T) {
	bundle := parseOne(t, `
const lit = 42;
const alias = lit;
const combined = lit + alias;
const either = lit || alias;
`)

	byName := map[string]facts.VarDecl{}
	for _, vd := range bundle.VarDecls {
		byName[vd.Name] = vd
	}

	require.Equal(t, facts.ExprLiteral, byName["lit"].InitExprKind)
	require.Equal(t, facts.ExprVariable, byName["alias"].InitExprKind)
	require.Equal(t, facts.SubBinary, byName["combined"].InitSubKind)
	require.Equal(t, facts.SubLogical, byName["either"].InitSubKind)
}

func TestCallArguments_PerPositionHints(t *testing.T) {
	bundle := parseOne(t, `
function f(a) {
  g(1, a, h());
}
`)

	var call facts.CallSite
	for _, cs := range bundle.CallSites {
		if cs.CalleeName == "g" {
			call = cs
		}
	}
	require.Equal(t, 3, call.ArgCount)
	require.Equal(t, []string{
		string(facts.ExprLiteral),
		string(facts.ExprVariable),
		string(facts.ExprCallSite),
	}, call.ArgHints)
}

func TestReturnClassification(t *testing.T) {
	bundle := parseOne(t, `
function r1() { return 1; }
function r2(v) { return v; }
function r3(v) { return v.length; }
`)

	kinds := map[int]facts.Return{}
	for i, ret := range bundle.Returns {
		kinds[i] = ret
	}
	require.Len(t, kinds, 3)
	require.Equal(t, facts.ExprLiteral, kinds[0].ExprKind)
	require.Equal(t, facts.ExprVariable, kinds[1].ExprKind)
	require.Equal(t, []string{"v"}, kinds[1].SourceNames)
	require.Equal(t, facts.ExprExpression, kinds[2].ExprKind)
	require.Equal(t, facts.SubMember, kinds[2].SubKind)
}
