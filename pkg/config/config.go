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

// Package config loads <projectRoot>/.grafema/config.yaml. Unknown
// keys are tolerated: yaml.v3 silently
// ignores unmapped fields when decoding into a struct, so a newer
// config written for a future field never breaks an older binary.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServiceConfig is one entry of the `services` section.
type ServiceConfig struct {
	Name        string   `yaml:"name"`
	Path        string   `yaml:"path"`
	Entrypoints []string `yaml:"entrypoints"`
}

// ParallelConfig configures the Analysis phase's worker pool.
type ParallelConfig struct {
	Enabled    bool   `yaml:"enabled"`
	MaxWorkers int    `yaml:"maxWorkers"`
	SocketPath string `yaml:"socketPath"`
}

// TestsConfig configures how test files are treated during analysis.
type TestsConfig struct {
	MarkTestFiles bool `yaml:"markTestFiles"`
}

// AnalysisConfig is the `analysis` section.
type AnalysisConfig struct {
	Parallel ParallelConfig `yaml:"parallel"`
	Tests    TestsConfig    `yaml:"tests"`

	// KnownGlobals extends (never replaces) analyzer.DefaultKnownGlobals.
	KnownGlobals []string `yaml:"knownGlobals"`
}

// PluginsConfig lists plugin names to enable per phase, in
// registration order.
type PluginsConfig struct {
	Discovery  []string `yaml:"discovery"`
	Indexing   []string `yaml:"indexing"`
	Analysis   []string `yaml:"analysis"`
	Enrichment []string `yaml:"enrichment"`
	Validation []string `yaml:"validation"`
}

// WorkspaceConfig is the `workspace` section.
type WorkspaceConfig struct {
	Roots []string `yaml:"roots"`
}

// Config is the full decoded shape of .grafema/config.yaml.
type Config struct {
	Services  []ServiceConfig `yaml:"services"`
	Include   []string        `yaml:"include"`
	Exclude   []string        `yaml:"exclude"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Routing   map[string]any  `yaml:"routing"`
	Plugins   PluginsConfig   `yaml:"plugins"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

// Default returns a Config with the same defaults `grafema init` writes
// to disk: parallel analysis on, no explicit service list (Discovery
// infers one from workspace roots), no extra excludes beyond the
// conventional VCS/dependency directories.
func Default() *Config {
	return &Config{
		Exclude: []string{"node_modules/**", ".git/**", "dist/**", "build/**", "coverage/**"},
		Analysis: AnalysisConfig{
			Parallel: ParallelConfig{Enabled: true, MaxWorkers: 0},
			Tests:    TestsConfig{MarkTestFiles: true},
		},
	}
}

// Path returns the conventional config file path under projectRoot.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, ".grafema", "config.yaml")
}

// Load reads and decodes the config file at Path(projectRoot). A
// missing file is not an error: Load returns Default() instead, since
// every subcommand should work against a project that only ran
// `grafema init` with no further customization.
func Load(projectRoot string) (*Config, error) {
	path := Path(projectRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to Path(projectRoot), creating the .grafema
// directory if needed. Used by `grafema init`.
func Save(projectRoot string, cfg *Config) error {
	path := Path(projectRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
