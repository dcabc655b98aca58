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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/grafema/pkg/facts"
)

func parseOne(t *testing.T, src string) *facts.Bundle {
	t.Helper()
	a := New()
	defer a.Close()
	bundle, err := a.Parse(context.Background(), "cf.ts", []byte(src))
	require.NoError(t, err)
	return bundle
}

func fnByName(t *testing.T, bundle *facts.Bundle, name string) facts.Function {
	t.Helper()
	for _, fn := range bundle.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function named %q in bundle", name)
	return facts.Function{}
}

// A conditional throw inside an async function
// is a rejection, with the error class recovered and the branch counted
// into cyclomatic complexity.
func TestControlFlow_AsyncRejection(t *testing.T) {
	bundle := parseOne(t, `
async function f(bad) {
  if (bad) throw new TypeError("x");
}
`)

	f := fnByName(t, bundle, "f")
	require.True(t, f.IsAsync)
	require.True(t, f.ControlFlow.CanReject)
	require.True(t, f.ControlFlow.HasAsyncThrow)
	require.Equal(t, []string{"TypeError"}, f.ControlFlow.RejectedBuiltinErrors)
	require.Equal(t, 2, f.ControlFlow.CyclomaticComplexity)
}

// Calling the executor's reject binding inside
// `new Promise((res, rej) => ...)` records an executor_reject rejection
// pattern on the enclosing function.
func TestControlFlow_PromiseExecutorReject(t *testing.T) {
	bundle := parseOne(t, `
function g() {
  return new Promise((res, rej) => {
    rej(new RangeError("e"));
  });
}
`)

	require.Len(t, bundle.CtorCalls, 2)
	require.Equal(t, "Promise", bundle.CtorCalls[0].CalleeName)
	require.True(t, bundle.CtorCalls[0].PromiseExec)

	var reject facts.Throw
	for _, th := range bundle.Throws {
		if th.Pattern == "executor_reject" {
			reject = th
		}
	}
	require.Equal(t, "executor_reject", reject.Pattern)
	require.Equal(t, "RangeError", reject.ErrorClass)

	g := fnByName(t, bundle, "g")
	require.True(t, g.ControlFlow.CanReject)
	require.False(t, g.ControlFlow.HasAsyncThrow, "a reject call is not a thrown statement")
	require.Equal(t, []string{"RangeError"}, g.ControlFlow.RejectedBuiltinErrors)
}

func TestControlFlow_PromiseRejectStatic(t *testing.T) {
	bundle := parseOne(t, `
function h() {
  return Promise.reject(new TypeError("t"));
}
`)

	h := fnByName(t, bundle, "h")
	require.True(t, h.ControlFlow.CanReject)
	require.Equal(t, []string{"TypeError"}, h.ControlFlow.RejectedBuiltinErrors)
}

// The control-flow sum invariant: cyclomaticComplexity is
// 1 + branches + loops + cases + logical operators.
func TestControlFlow_ComplexitySum(t *testing.T) {
	bundle := parseOne(t, `
function f(x) {
  if (x) { return 1; }
  for (let i = 0; i < x; i++) {}
  return x && 2;
}
`)

	f := fnByName(t, bundle, "f")
	require.True(t, f.ControlFlow.HasBranches)
	require.True(t, f.ControlFlow.HasLoops)
	require.True(t, f.ControlFlow.HasEarlyReturn)
	// 1 + 1 branch + 1 loop + 1 logical op
	require.Equal(t, 4, f.ControlFlow.CyclomaticComplexity)
}

func TestControlFlow_SyncThrowMicroTrace(t *testing.T) {
	bundle := parseOne(t, `
function k() {
  const e = new TypeError("boom");
  throw e;
}
`)

	require.Len(t, bundle.Throws, 1)
	th := bundle.Throws[0]
	require.Equal(t, "sync_throw", th.Pattern)
	require.Equal(t, "e", th.TargetName)
	require.Equal(t, "TypeError", th.ErrorClass)
	require.Equal(t, []string{"e"}, th.TracePath)

	k := fnByName(t, bundle, "k")
	require.True(t, k.ControlFlow.HasThrow)
	require.False(t, k.ControlFlow.CanReject)
	require.Equal(t, []string{"TypeError"}, k.ControlFlow.ThrownBuiltinErrors)
}

func TestControlFlow_MicroTraceFollowsAssignmentChain(t *testing.T) {
	bundle := parseOne(t, `
function k() {
  const a = new RangeError("r");
  const b = a;
  throw b;
}
`)

	require.Len(t, bundle.Throws, 1)
	th := bundle.Throws[0]
	require.Equal(t, "RangeError", th.ErrorClass)
	require.Equal(t, []string{"b", "a"}, th.TracePath)
}

// A bare callback arrow gets a counted closure frame of its own, so its
// facts never leak into the enclosing function's scope path.
func TestControlFlow_AnonymousCallback(t *testing.T) {
	bundle := parseOne(t, `
const doubled = arr.map(x => x * 2);
`)

	var closure facts.Function
	for _, fn := range bundle.Functions {
		if fn.Name == "closure[0]" {
			closure = fn
		}
	}
	require.Equal(t, "closure[0]", closure.Name)
	require.Equal(t, []string{"x"}, closure.ParamNames)
}

func TestControlFlow_InvokedParamIndexes(t *testing.T) {
	bundle := parseOne(t, `
function run(cb, n) {
  return cb(n);
}
`)

	run := fnByName(t, bundle, "run")
	require.Equal(t, []int{0}, run.ControlFlow.InvokesParamIndexes)
	require.Equal(t, []string{"cb"}, run.ControlFlow.InvokesParamBindings)
}
