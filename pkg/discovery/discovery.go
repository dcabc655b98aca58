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

// Package discovery implements the Discovery phase: produce a Manifest
// of services, each with a name, root path,
// entrypoint file, service type, and language. Two plugins run in
// priority order: ConfigServiceDiscoverer reads the explicit `services`
// section of .grafema/config.yaml; when that section is empty,
// WorkspaceDiscoverer falls back to pkg/config's workspace-glob
// detection (pnpm-workspace.yaml / package.json workspaces / lerna.json)
// so a monorepo with no grafema-specific config still produces a
// sensible per-package service list.
package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kraklabs/grafema/pkg/config"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// candidateEntrypoints is tried, in order, against a service/package
// root when neither config nor package.json names an explicit entry
// file.
var candidateEntrypoints = []string{
	"index.ts", "index.tsx", "src/index.ts", "src/index.tsx",
	"index.js", "index.jsx", "src/index.js", "src/index.jsx",
	"main.ts", "main.js",
}

type packageJSON struct {
	Name   string `json:"name"`
	Main   string `json:"main"`
	Module string `json:"module"`
}

// detectEntrypoint resolves the entry file for a service rooted at dir,
// preferring package.json's `main`/`module` field and falling back to
// candidateEntrypoints.
func detectEntrypoint(dir string) string {
	if data, err := os.ReadFile(filepath.Join(dir, "package.json")); err == nil {
		var pj packageJSON
		if json.Unmarshal(data, &pj) == nil {
			for _, f := range []string{pj.Main, pj.Module} {
				if f == "" {
					continue
				}
				if fi, err := os.Stat(filepath.Join(dir, f)); err == nil && !fi.IsDir() {
					return filepath.Join(dir, f)
				}
			}
		}
	}
	for _, f := range candidateEntrypoints {
		path := filepath.Join(dir, f)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigServiceDiscoverer builds the Manifest's service list from the
// `services` section of .grafema/config.yaml. One plugin.Service is
// emitted per configured entrypoint -- a ServiceConfig with N
// entrypoints becomes N services sharing a root path and name suffixed
// `#0`, `#1`, ... so Indexing can walk each reachability tree
// independently.
type ConfigServiceDiscoverer struct{}

// Metadata implements plugin.Plugin.
func (ConfigServiceDiscoverer) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "config_service_discoverer", Phase: plugin.PhaseDiscovery, Priority: 100}
}

// Execute implements plugin.Plugin.
func (ConfigServiceDiscoverer) Execute(pc plugin.Context) (plugin.Result, error) {
	cfg, err := config.Load(pc.ProjectRoot)
	if err != nil {
		return plugin.Result{}, err
	}
	if len(cfg.Services) == 0 {
		return plugin.Result{}, nil
	}

	var services []plugin.Service
	for _, sc := range cfg.Services {
		root := sc.Path
		if !filepath.IsAbs(root) {
			root = filepath.Join(pc.ProjectRoot, root)
		}
		entrypoints := sc.Entrypoints
		if len(entrypoints) == 0 {
			if ep := detectEntrypoint(root); ep != "" {
				entrypoints = []string{ep}
			}
		}
		for i, ep := range entrypoints {
			name := sc.Name
			if len(entrypoints) > 1 {
				name = sc.Name + "#" + strconv.Itoa(i)
			}
			abs := ep
			if !filepath.IsAbs(abs) {
				abs = filepath.Join(root, ep)
			}
			services = append(services, plugin.Service{
				Name: name, RootPath: root, Entrypoint: abs,
				ServiceType: "configured", Language: "typescript",
			})
		}
	}

	if pc.Manifest != nil {
		pc.Manifest.Services = append(pc.Manifest.Services, services...)
	}
	return plugin.Result{}, nil
}

// WorkspaceDiscoverer falls back to workspace-glob detection
// (pkg/config.DiscoverWorkspacePatterns/ExpandWorkspacePatterns) when no
// `services` section named any services, so a bare pnpm/yarn/lerna
// monorepo still produces one service per package directory.
type WorkspaceDiscoverer struct{}

// Metadata implements plugin.Plugin.
func (WorkspaceDiscoverer) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name: "workspace_discoverer", Phase: plugin.PhaseDiscovery, Priority: 50,
		Dependencies: []string{"config_service_discoverer"},
	}
}

// Execute implements plugin.Plugin.
func (WorkspaceDiscoverer) Execute(pc plugin.Context) (plugin.Result, error) {
	if pc.Manifest != nil && len(pc.Manifest.Services) > 0 {
		return plugin.Result{}, nil
	}

	patterns, err := config.DiscoverWorkspacePatterns(pc.ProjectRoot)
	if err != nil {
		return plugin.Result{}, err
	}

	var roots []string
	if len(patterns) > 0 {
		roots, err = config.ExpandWorkspacePatterns(pc.ProjectRoot, patterns)
		if err != nil {
			return plugin.Result{}, err
		}
	} else {
		roots = []string{pc.ProjectRoot}
	}

	var services []plugin.Service
	var issues []plugin.Issue
	for _, root := range roots {
		ep := detectEntrypoint(root)
		if ep == "" {
			issues = append(issues, plugin.Issue{
				Code: "WARN_NO_ENTRYPOINT", Severity: "warning", Phase: plugin.PhaseDiscovery,
				Message: "no entrypoint detected for workspace package", File: root,
			})
			continue
		}
		services = append(services, plugin.Service{
			Name: filepath.Base(root), RootPath: root, Entrypoint: ep,
			ServiceType: "workspace", Language: "typescript",
		})
	}

	if pc.Manifest != nil {
		pc.Manifest.Services = append(pc.Manifest.Services, services...)
	}
	return plugin.Result{Issues: issues}, nil
}
