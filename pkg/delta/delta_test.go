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

package delta

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChangeType(t *testing.T) {
	d := &Delta{
		Added:    []string{"src/new.ts"},
		Modified: []string{"src/changed.ts"},
		Deleted:  []string{"src/gone.ts"},
		Renamed:  map[string]string{"src/old.ts": "src/renamed.ts"},
	}

	require.Equal(t, Added, d.ChangeType("src/new.ts"))
	require.Equal(t, Modified, d.ChangeType("src/changed.ts"))
	require.Equal(t, Deleted, d.ChangeType("src/gone.ts"))
	require.Equal(t, Renamed, d.ChangeType("src/renamed.ts"))
	require.Equal(t, Deleted, d.ChangeType("src/old.ts"), "a rename's old path reads as deleted")
	require.Equal(t, ChangeType(""), d.ChangeType("src/untouched.ts"))
}

func TestFilter_ExcludeGlobs(t *testing.T) {
	d := &Delta{
		Added:    []string{"src/a.ts", "node_modules/pkg/index.js", "src/a.test.ts"},
		Modified: []string{"dist/bundle.js", "src/b.ts"},
		Renamed:  map[string]string{"src/old.ts": "node_modules/vendored.js"},
	}
	d.All = buildAll(d.Added, d.Modified, d.Deleted, d.Renamed)

	filtered := Filter(d, []string{"node_modules/**", "dist/**", "**/*.test.ts"})

	require.Equal(t, []string{"src/a.ts"}, filtered.Added)
	require.Equal(t, []string{"src/b.ts"}, filtered.Modified)
	require.Empty(t, filtered.Renamed, "a rename into an excluded path drops out of Renamed")
	require.Equal(t, []string{"src/old.ts"}, filtered.Deleted, "its old path still counts as deleted")
}

func TestFilter_KeepsEverythingWithNoGlobs(t *testing.T) {
	d := &Delta{Added: []string{"a.ts", "b.ts"}}
	d.All = buildAll(d.Added, nil, nil, nil)

	filtered := Filter(d, nil)
	require.Equal(t, d.Added, filtered.Added)
	require.True(t, filtered.HasChanges())
}

// gitDir initializes a throwaway repository with one committed file and
// returns its path. Skips the test when git is unavailable.
func gitDir(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{
			"-c", "user.email=test@example.com",
			"-c", "user.name=test",
		}, args...)...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	run("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts"), []byte("const a = 1;\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "initial")
	return dir
}

func TestDetect_FirstRunComparesAgainstEmptyTree(t *testing.T) {
	dir := gitDir(t)
	det := NewDetector(dir)
	require.True(t, det.IsGitRepository())

	d, err := det.Detect("", "")
	require.NoError(t, err)
	require.Contains(t, d.Added, "a.ts", "with no base SHA every committed file is added")
	require.True(t, d.HasChanges())
}

func TestDetect_ModifiedFile(t *testing.T) {
	dir := gitDir(t)
	det := NewDetector(dir)

	base, err := det.HeadSHA()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts"), []byte("const a = 2;\n"), 0o644))
	cmd := exec.Command("git", "-c", "user.email=test@example.com", "-c", "user.name=test",
		"commit", "-aqm", "edit")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s", out)

	d, err := det.Detect(base, "")
	require.NoError(t, err)
	require.Equal(t, []string{"a.ts"}, d.Modified)
	require.Empty(t, d.Added)
}
