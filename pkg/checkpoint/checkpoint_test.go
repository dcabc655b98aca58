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

package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	m := NewManager(t.TempDir())
	cp, err := m.Load()
	require.NoError(t, err)
	require.Nil(t, cp, "no checkpoint yet means (nil, nil)")
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	m := NewManager(t.TempDir())

	saved := &Checkpoint{
		ProjectID: "api",
		LastSHA:   "abc123",
		FileHashes: map[string]string{
			"src/a.ts": HashContent([]byte("const a = 1;")),
		},
	}
	require.NoError(t, m.Save(saved))

	loaded, err := m.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, saved.ProjectID, loaded.ProjectID)
	require.Equal(t, saved.LastSHA, loaded.LastSHA)
	require.Equal(t, saved.FileHashes, loaded.FileHashes)
}

func TestChanged(t *testing.T) {
	content := []byte("const a = 1;")
	cp := &Checkpoint{FileHashes: map[string]string{"src/a.ts": HashContent(content)}}

	require.False(t, cp.Changed("src/a.ts", content))
	require.True(t, cp.Changed("src/a.ts", []byte("const a = 2;")))
	require.True(t, cp.Changed("src/never-seen.ts", content))

	var nilCP *Checkpoint
	require.True(t, nilCP.Changed("src/a.ts", content), "no checkpoint means everything changed")
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	require.NoError(t, m.Save(&Checkpoint{ProjectID: "api"}))

	require.NoError(t, m.Clear())
	cp, err := m.Load()
	require.NoError(t, err)
	require.Nil(t, cp)

	// Clearing an already-missing checkpoint is a no-op.
	require.NoError(t, m.Clear())
}
