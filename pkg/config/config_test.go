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

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".grafema"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".grafema", "config.yaml"), []byte(content), 0o644))
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.True(t, cfg.Analysis.Parallel.Enabled)
	require.Contains(t, cfg.Exclude, "node_modules/**")
	require.Empty(t, cfg.Services)
}

func TestLoad_ParsesServicesAndAnalysis(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
services:
  - name: api
    path: services/api
    entrypoints: [src/index.ts]
  - name: worker
    path: services/worker
    entrypoints: [src/main.ts, src/cron.ts]
analysis:
  parallel:
    enabled: false
    maxWorkers: 4
  knownGlobals: [myGlobal]
`)

	cfg, err := Load(root)
	require.NoError(t, err)
	require.Len(t, cfg.Services, 2)
	require.Equal(t, "api", cfg.Services[0].Name)
	require.Equal(t, []string{"src/main.ts", "src/cron.ts"}, cfg.Services[1].Entrypoints)
	require.False(t, cfg.Analysis.Parallel.Enabled)
	require.Equal(t, 4, cfg.Analysis.Parallel.MaxWorkers)
	require.Equal(t, []string{"myGlobal"}, cfg.Analysis.KnownGlobals)
}

func TestLoad_UnknownKeysTolerated(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
services:
  - name: api
    path: .
futureSection:
  someKey: someValue
`)

	cfg, err := Load(root)
	require.NoError(t, err)
	require.Len(t, cfg.Services, 1)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "services: [unterminated")

	_, err := Load(root)
	require.Error(t, err)
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Services = []ServiceConfig{{Name: "api", Path: "services/api", Entrypoints: []string{"index.ts"}}}

	require.NoError(t, Save(root, cfg))
	loaded, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, cfg.Services, loaded.Services)
}
