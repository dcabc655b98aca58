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
)

func TestParse_FunctionAndCall(t *testing.T) {
	src := []byte(`
function outer() {
  function inner(x) {
    return x + 1;
  }
  return inner(41);
}
`)
	a := New()
	defer a.Close()

	bundle, err := a.Parse(context.Background(), "sample.ts", src)
	require.NoError(t, err)
	require.Len(t, bundle.Functions, 2)
	require.Equal(t, "outer", bundle.Functions[0].Name)
	require.Equal(t, "inner", bundle.Functions[1].Name)

	require.NotEmpty(t, bundle.CallSites)
	require.Equal(t, "inner", bundle.CallSites[0].CalleeName)

	require.NotEmpty(t, bundle.Returns)
}

func TestParse_Deterministic(t *testing.T) {
	src := []byte(`const x = 1; function f() { return x; }`)
	a := New()
	defer a.Close()

	b1, err := a.Parse(context.Background(), "a.ts", src)
	require.NoError(t, err)
	b2, err := a.Parse(context.Background(), "a.ts", src)
	require.NoError(t, err)

	require.Equal(t, len(b1.Functions), len(b2.Functions))
	require.Equal(t, len(b1.VarDecls), len(b2.VarDecls))
	require.Equal(t, b1.VarDecls[0].Name, b2.VarDecls[0].Name)
}

func TestParse_TryCatchScopeBalance(t *testing.T) {
	src := []byte(`
function risky() {
  try {
    doSomething();
  } catch (err) {
    throw err;
  } finally {
    cleanup();
  }
}
`)
	a := New()
	defer a.Close()

	bundle, err := a.Parse(context.Background(), "risky.ts", src)
	require.NoError(t, err)
	require.Len(t, bundle.TryBlocks, 1)
	require.True(t, bundle.TryBlocks[0].HasCatch)
	require.True(t, bundle.TryBlocks[0].HasFinally)
	require.Equal(t, "err", bundle.TryBlocks[0].CatchParamName)
	require.NotEmpty(t, bundle.Throws)
}

func TestParse_ImportExport(t *testing.T) {
	src := []byte(`
import { readFile as read } from "fs";
export const value = 1;
export { read };
`)
	a := New()
	defer a.Close()

	bundle, err := a.Parse(context.Background(), "io.ts", src)
	require.NoError(t, err)
	require.Len(t, bundle.Imports, 1)
	require.Equal(t, "fs", bundle.Imports[0].ImportPath)
	require.NotEmpty(t, bundle.Exports)
}
