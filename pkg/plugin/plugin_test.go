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

package plugin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePlugin is a minimal Plugin whose ordering metadata is the test
// fixture.
type fakePlugin struct {
	meta Metadata
}

func (p fakePlugin) Metadata() Metadata { return p.meta }

func (p fakePlugin) Execute(Context) (Result, error) { return Result{}, nil }

func names(plugins []Plugin) []string {
	out := make([]string, len(plugins))
	for i, p := range plugins {
		out[i] = p.Metadata().Name
	}
	return out
}

func TestOrdered_PriorityDescending(t *testing.T) {
	r := NewRegistry()
	r.Register(fakePlugin{Metadata{Name: "low", Phase: PhaseEnrichment, Priority: 10}})
	r.Register(fakePlugin{Metadata{Name: "high", Phase: PhaseEnrichment, Priority: 100}})
	r.Register(fakePlugin{Metadata{Name: "mid", Phase: PhaseEnrichment, Priority: 50}})

	ordered, err := r.Ordered(PhaseEnrichment)
	require.NoError(t, err)
	require.Equal(t, []string{"high", "mid", "low"}, names(ordered))
}

func TestOrdered_DependencyBeatsPriority(t *testing.T) {
	r := NewRegistry()
	// "linker" has a lower priority than "resolver", but "resolver"
	// declares it as a dependency, so it must still run first.
	r.Register(fakePlugin{Metadata{
		Name: "resolver", Phase: PhaseEnrichment, Priority: 100,
		Dependencies: []string{"linker"},
	}})
	r.Register(fakePlugin{Metadata{Name: "linker", Phase: PhaseEnrichment, Priority: 10}})

	ordered, err := r.Ordered(PhaseEnrichment)
	require.NoError(t, err)
	require.Equal(t, []string{"linker", "resolver"}, names(ordered))
}

func TestOrdered_RegistrationOrderBreaksTies(t *testing.T) {
	r := NewRegistry()
	r.Register(fakePlugin{Metadata{Name: "first", Phase: PhaseValidation, Priority: 50}})
	r.Register(fakePlugin{Metadata{Name: "second", Phase: PhaseValidation, Priority: 50}})

	ordered, err := r.Ordered(PhaseValidation)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, names(ordered))
}

func TestOrdered_UnknownDependencyFails(t *testing.T) {
	r := NewRegistry()
	r.Register(fakePlugin{Metadata{
		Name: "orphan", Phase: PhaseEnrichment, Priority: 10,
		Dependencies: []string{"never_registered"},
	}})

	_, err := r.Ordered(PhaseEnrichment)
	require.Error(t, err)
	require.Contains(t, err.Error(), "never_registered")
}

func TestOrdered_CycleFails(t *testing.T) {
	r := NewRegistry()
	r.Register(fakePlugin{Metadata{Name: "a", Phase: PhaseEnrichment, Dependencies: []string{"b"}}})
	r.Register(fakePlugin{Metadata{Name: "b", Phase: PhaseEnrichment, Dependencies: []string{"a"}}})

	_, err := r.Ordered(PhaseEnrichment)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestOrdered_EmptyPhase(t *testing.T) {
	r := NewRegistry()
	ordered, err := r.Ordered(PhaseDiscovery)
	require.NoError(t, err)
	require.Empty(t, ordered)
}
