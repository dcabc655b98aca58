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

// Package plugin defines the contract every Discovery/Indexing/
// Analysis/Enrichment/Validation plugin implements, and a Registry that
// orders them within a phase by priority, declared dependency, then
// registration order. No runtime reflection is used to resolve
// dependencies — ordering is a plain topological sort over declared
// name strings.
package plugin

import (
	"context"
	"fmt"

	"github.com/kraklabs/grafema/pkg/graph"
)

// Phase is one of the five strictly-ordered orchestrator phases.
type Phase string

const (
	PhaseDiscovery  Phase = "discovery"
	PhaseIndexing   Phase = "indexing"
	PhaseAnalysis   Phase = "analysis"
	PhaseEnrichment Phase = "enrichment"
	PhaseValidation Phase = "validation"
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhaseDiscovery, PhaseIndexing, PhaseAnalysis, PhaseEnrichment, PhaseValidation}

// Metadata describes a plugin: its phase, scheduling priority, the node
// and edge kinds it may create (informational, used by doc tooling and
// tests — not enforced at runtime), and the names of plugins it must
// run after within the same phase.
type Metadata struct {
	Name     string
	Phase    Phase
	Priority int
	Creates  struct {
		Nodes []graph.NodeKind
		Edges []graph.EdgeKind
	}
	Dependencies []string
}

// Context is passed to a plugin's Execute method. It carries everything
// a plugin needs to read and mutate the graph for the current run.
type Context struct {
	Ctx          context.Context
	ProjectRoot  string
	Backend      graph.Backend
	Manifest     *Manifest
	ServiceName  string // set for per-service plugins; empty for project-wide ones
	Logger       func(event string, args ...any)
}

// Manifest is the Discovery phase's output: the set of services found
// in the project, consumed by every later phase.
type Manifest struct {
	Services  []Service
	HasErrors bool
	Issues    []Issue
}

// Service describes one discovered service/package within the project.
type Service struct {
	Name        string
	RootPath    string
	Entrypoint  string
	ServiceType string
	Language    string
	TestFiles   []string
}

// Issue is a non-fatal diagnostic recorded during any phase.
type Issue struct {
	Code     string
	Severity string // "warning" | "error"
	Message  string
	File     string
	Phase    Phase
	Plugin   string
}

// Result is what a plugin's Execute returns: any issues it recorded,
// plus counts for metrics/progress reporting.
type Result struct {
	Issues      []Issue
	NodesAdded  int
	EdgesAdded  int
}

// Plugin is a stateless factory: Metadata describes it, Execute runs
// it. Implementations must not retain state across Execute calls other
// than what they derive fresh from Context each time.
type Plugin interface {
	Metadata() Metadata
	Execute(pc Context) (Result, error)
}

// Registry holds the plugins registered for every phase and produces a
// deterministic execution order per phase.
type Registry struct {
	byPhase map[Phase][]Plugin
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byPhase: make(map[Phase][]Plugin)}
}

// Register adds p to its declared phase, in registration order.
func (r *Registry) Register(p Plugin) {
	phase := p.Metadata().Phase
	r.byPhase[phase] = append(r.byPhase[phase], p)
}

// Ordered returns the plugins registered for phase in execution order:
// priority descending, ties broken by declared-dependency order (a
// plugin always follows its dependencies), then by registration order.
// Execution order within a phase is fully deterministic.
func (r *Registry) Ordered(phase Phase) ([]Plugin, error) {
	plugins := r.byPhase[phase]
	if len(plugins) == 0 {
		return nil, nil
	}

	byName := make(map[string]Plugin, len(plugins))
	regIndex := make(map[string]int, len(plugins))
	for i, p := range plugins {
		name := p.Metadata().Name
		byName[name] = p
		regIndex[name] = i
	}

	// Stable sort by (priority desc, registration order asc) first, so
	// ties in the topological sort fall back to registration order.
	ordered := make([]Plugin, len(plugins))
	copy(ordered, plugins)
	sortByPriority(ordered)

	visited := make(map[string]int) // 0=unvisited 1=visiting 2=done
	var result []Plugin
	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("plugin dependency cycle detected at %q", name)
		}
		visited[name] = 1
		p, ok := byName[name]
		if !ok {
			return fmt.Errorf("plugin %q declares unknown dependency", name)
		}
		for _, dep := range p.Metadata().Dependencies {
			if _, ok := byName[dep]; !ok {
				return fmt.Errorf("plugin %q depends on unregistered plugin %q", name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		visited[name] = 2
		result = append(result, p)
		return nil
	}

	for _, p := range ordered {
		if err := visit(p.Metadata().Name); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func sortByPriority(plugins []Plugin) {
	// Simple stable insertion sort: phases register few enough plugins
	// (single digits) that O(n^2) is irrelevant, and insertion sort is
	// trivially stable without importing sort.Slice + a closure copy.
	for i := 1; i < len(plugins); i++ {
		j := i
		for j > 0 && plugins[j-1].Metadata().Priority < plugins[j].Metadata().Priority {
			plugins[j-1], plugins[j] = plugins[j], plugins[j-1]
			j--
		}
	}
}
