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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxWorkspaceDepth bounds workspace glob recursion: recursion depth
// is capped at 10 as a safety limit.
const maxWorkspaceDepth = 10

// pnpmWorkspaceFile is the shape of pnpm-workspace.yaml.
type pnpmWorkspaceFile struct {
	Packages []string `yaml:"packages"`
}

// packageJSONWorkspaces is the relevant subset of package.json: the
// `workspaces` field is either a bare string array, or an object with
// a `packages` array (Yarn's nohoist form) — both are accepted.
type packageJSONWorkspaces struct {
	Workspaces any `json:"workspaces"`
}

// lernaFile is the shape of lerna.json.
type lernaFile struct {
	Packages []string `json:"packages"`
}

// DiscoverWorkspacePatterns detects the workspace glob patterns for
// projectRoot, checking in priority order: pnpm-workspace.yaml(.yml),
// then package.json `workspaces`, then lerna.json.
func DiscoverWorkspacePatterns(projectRoot string) ([]string, error) {
	for _, name := range []string{"pnpm-workspace.yaml", "pnpm-workspace.yml"} {
		path := filepath.Join(projectRoot, name)
		data, err := os.ReadFile(path)
		if err == nil {
			var f pnpmWorkspaceFile
			if err := yaml.Unmarshal(data, &f); err != nil {
				return nil, err
			}
			return f.Packages, nil
		}
	}

	if patterns, ok, err := readPackageJSONWorkspaces(filepath.Join(projectRoot, "package.json")); err != nil {
		return nil, err
	} else if ok {
		return patterns, nil
	}

	if patterns, ok, err := readLernaPackages(filepath.Join(projectRoot, "lerna.json")); err != nil {
		return nil, err
	} else if ok {
		return patterns, nil
	}

	return nil, nil
}

// ExpandWorkspacePatterns resolves glob patterns (honoring `!pattern`
// negations) to the set of directories under root that contain a
// package manifest (package.json). Recursion is capped at
// maxWorkspaceDepth; hidden directories (dot-prefixed) and `vendor`
// directories are skipped.
func ExpandWorkspacePatterns(root string, patterns []string) ([]string, error) {
	var includes, excludes []string
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			excludes = append(excludes, strings.TrimPrefix(p, "!"))
		} else {
			includes = append(includes, p)
		}
	}

	found := make(map[string]bool)
	for _, pattern := range includes {
		dirs, err := globDirs(root, pattern)
		if err != nil {
			return nil, err
		}
		for _, d := range dirs {
			found[d] = true
		}
	}
	for _, pattern := range excludes {
		dirs, _ := globDirs(root, pattern)
		for _, d := range dirs {
			delete(found, d)
		}
	}

	var result []string
	for d := range found {
		if hasPackageManifest(d) {
			result = append(result, d)
		}
	}
	return result, nil
}

// globDirs expands a single glob pattern (which may contain `*`/`**`
// path segments) relative to root into matching directories, never
// descending past maxWorkspaceDepth segments and skipping hidden or
// vendor directories.
func globDirs(root, pattern string) ([]string, error) {
	segments := strings.Split(filepath.ToSlash(pattern), "/")
	dirs := []string{root}
	depth := 0
	for _, seg := range segments {
		if depth >= maxWorkspaceDepth {
			break
		}
		depth++
		var next []string
		for _, dir := range dirs {
			switch seg {
			case "**":
				matches, err := walkAllDirs(dir)
				if err != nil {
					return nil, err
				}
				next = append(next, matches...)
			default:
				entries, err := os.ReadDir(dir)
				if err != nil {
					continue
				}
				for _, e := range entries {
					if !e.IsDir() || isSkippedDir(e.Name()) {
						continue
					}
					ok, err := filepath.Match(seg, e.Name())
					if err != nil {
						return nil, err
					}
					if ok {
						next = append(next, filepath.Join(dir, e.Name()))
					}
				}
			}
		}
		dirs = next
	}
	return dirs, nil
}

func walkAllDirs(root string) ([]string, error) {
	var out []string
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil
	}
	for _, e := range entries {
		if !e.IsDir() || isSkippedDir(e.Name()) {
			continue
		}
		child := filepath.Join(root, e.Name())
		out = append(out, child)
		sub, err := walkAllDirs(child)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func isSkippedDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}

func hasPackageManifest(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "package.json"))
	return err == nil
}

// readPackageJSONWorkspaces reads the `workspaces` field of path,
// accepting both the bare-array form (`["packages/*"]`) and the
// object form (`{"packages": ["packages/*"]}`). ok is false when the
// file doesn't exist or has no `workspaces` field.
func readPackageJSONWorkspaces(path string) (patterns []string, ok bool, err error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, false, nil
	}

	var raw packageJSONWorkspaces
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, err
	}
	if raw.Workspaces == nil {
		return nil, false, nil
	}

	switch v := raw.Workspaces.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				patterns = append(patterns, s)
			}
		}
		return patterns, true, nil
	case map[string]any:
		if list, ok := v["packages"].([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					patterns = append(patterns, s)
				}
			}
		}
		return patterns, true, nil
	default:
		return nil, false, nil
	}
}

// readLernaPackages reads the `packages` field of lerna.json at path.
func readLernaPackages(path string) (patterns []string, ok bool, err error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, false, nil
	}
	var f lernaFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, err
	}
	if len(f.Packages) == 0 {
		return nil, false, nil
	}
	return f.Packages, true, nil
}
