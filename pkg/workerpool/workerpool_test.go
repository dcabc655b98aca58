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

package workerpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_SizeCaps(t *testing.T) {
	require.Equal(t, 16, New(100).Size(), "requested size above the cap clamps to 16")
	require.Equal(t, 2, New(2).Size())
	require.Greater(t, New(0).Size(), 0, "size <= 0 falls back to CPU count")
}

func TestParseAll_ReturnsOneResultPerJob(t *testing.T) {
	pool := New(2)
	require.NoError(t, pool.Init(context.Background()))
	defer pool.Shutdown()

	jobs := []Job{
		{File: "a.ts", Content: []byte(`function a() { return 1; }`)},
		{File: "b.ts", Content: []byte(`function b() { return 2; }`)},
		{File: "c.ts", Content: []byte(`const c = 3;`)},
	}
	results, err := pool.ParseAll(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))

	seen := map[string]bool{}
	for _, r := range results {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Bundle)
		seen[r.File] = true
	}
	// Completion order is unspecified, but every job completes exactly once.
	require.Len(t, seen, len(jobs))
}

func TestParseAll_CancelledContext(t *testing.T) {
	pool := New(1)
	require.NoError(t, pool.Init(context.Background()))
	defer pool.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.ParseAll(ctx, []Job{{File: "a.ts", Content: []byte(`const x = 1;`)}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestShutdown_AfterParseAll(t *testing.T) {
	pool := New(2)
	require.NoError(t, pool.Init(context.Background()))

	results, err := pool.ParseAll(context.Background(), []Job{
		{File: "a.ts", Content: []byte(`function f() {}`)},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	pool.Shutdown()
}
