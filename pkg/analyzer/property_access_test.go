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

func TestParse_PropertyAccess_Computed(t *testing.T) {
	src := []byte(`
function f(obj, key) {
  return obj[key];
}
`)
	a := New()
	defer a.Close()

	bundle, err := a.Parse(context.Background(), "computed.ts", src)
	require.NoError(t, err)
	require.NotEmpty(t, bundle.PropertyAccess)
	pa := bundle.PropertyAccess[0]
	require.Equal(t, "obj", pa.ObjectName)
	require.True(t, pa.Computed)
}

func TestParse_PropertyAccess_Static(t *testing.T) {
	src := []byte(`
function f(obj) {
  return obj.name;
}
`)
	a := New()
	defer a.Close()

	bundle, err := a.Parse(context.Background(), "static.ts", src)
	require.NoError(t, err)
	require.NotEmpty(t, bundle.PropertyAccess)
	pa := bundle.PropertyAccess[0]
	require.Equal(t, "obj", pa.ObjectName)
	require.False(t, pa.Computed)
	require.Equal(t, []string{"name"}, pa.PropPath)
}

func TestParse_PropertyAccess_Private(t *testing.T) {
	src := []byte(`
class C {
  #secret;
  reveal() {
    return this.#secret;
  }
}
`)
	a := New()
	defer a.Close()

	bundle, err := a.Parse(context.Background(), "private.ts", src)
	require.NoError(t, err)
	var sawPrivate bool
	for _, pa := range bundle.PropertyAccess {
		if pa.IsPrivate {
			sawPrivate = true
		}
	}
	require.True(t, sawPrivate)
}
