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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func mkPackage(t *testing.T, root string, rel string) string {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"`+rel+`"}`), 0o644))
	return dir
}

func TestDiscoverWorkspacePatterns_PnpmBeatsPackageJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pnpm-workspace.yaml"),
		[]byte("packages:\n  - packages/*\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"),
		[]byte(`{"workspaces": ["apps/*"]}`), 0o644))

	patterns, err := DiscoverWorkspacePatterns(root)
	require.NoError(t, err)
	require.Equal(t, []string{"packages/*"}, patterns)
}

func TestDiscoverWorkspacePatterns_PackageJSONForms(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"),
		[]byte(`{"workspaces": {"packages": ["libs/*"]}}`), 0o644))

	patterns, err := DiscoverWorkspacePatterns(root)
	require.NoError(t, err)
	require.Equal(t, []string{"libs/*"}, patterns, "Yarn's object form is accepted too")
}

func TestDiscoverWorkspacePatterns_LernaFallback(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "lerna.json"),
		[]byte(`{"packages": ["modules/*"]}`), 0o644))

	patterns, err := DiscoverWorkspacePatterns(root)
	require.NoError(t, err)
	require.Equal(t, []string{"modules/*"}, patterns)
}

func TestDiscoverWorkspacePatterns_NoWorkspace(t *testing.T) {
	patterns, err := DiscoverWorkspacePatterns(t.TempDir())
	require.NoError(t, err)
	require.Nil(t, patterns)
}

func TestExpandWorkspacePatterns_RequiresManifest(t *testing.T) {
	root := t.TempDir()
	withManifest := mkPackage(t, root, "packages/api")
	// A matching directory without a package.json is not a workspace member.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "packages", "docs"), 0o755))

	dirs, err := ExpandWorkspacePatterns(root, []string{"packages/*"})
	require.NoError(t, err)
	require.Equal(t, []string{withManifest}, dirs)
}

func TestExpandWorkspacePatterns_Negation(t *testing.T) {
	root := t.TempDir()
	api := mkPackage(t, root, "packages/api")
	mkPackage(t, root, "packages/legacy")

	dirs, err := ExpandWorkspacePatterns(root, []string{"packages/*", "!packages/legacy"})
	require.NoError(t, err)
	require.Equal(t, []string{api}, dirs)
}

func TestExpandWorkspacePatterns_SkipsHiddenAndVendorDirs(t *testing.T) {
	root := t.TempDir()
	visible := mkPackage(t, root, "packages/app")
	mkPackage(t, root, "packages/.hidden")
	mkPackage(t, root, "packages/node_modules")

	dirs, err := ExpandWorkspacePatterns(root, []string{"packages/*"})
	require.NoError(t, err)
	require.Equal(t, []string{visible}, dirs)
}

func TestExpandWorkspacePatterns_DoubleStar(t *testing.T) {
	root := t.TempDir()
	nested := mkPackage(t, root, "services/group/deep")

	dirs, err := ExpandWorkspacePatterns(root, []string{"services/**"})
	require.NoError(t, err)
	require.Contains(t, dirs, nested)
}
