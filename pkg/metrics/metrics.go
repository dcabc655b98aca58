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

// Package metrics exports Prometheus counters and histograms for the
// orchestrator and worker pool, using a lazy-init singleton pattern: a
// package-level struct guarded by sync.Once, registered against the
// default registry on first use.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grafema"

type collectors struct {
	filesParsed      *prometheus.CounterVec
	parseDuration    prometheus.Histogram
	nodesEmitted     *prometheus.CounterVec
	edgesEmitted     *prometheus.CounterVec
	pluginDuration   *prometheus.HistogramVec
	issuesBySeverity *prometheus.CounterVec
	phaseDuration    *prometheus.HistogramVec
}

var (
	once sync.Once
	m    *collectors
)

func get() *collectors {
	once.Do(func() {
		m = &collectors{
			filesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_parsed_total",
				Help:      "Total number of source files parsed, labeled by outcome (ok|error).",
			}, []string{"outcome"}),
			parseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "parse_duration_seconds",
				Help:      "Per-file parse+visit duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			}),
			nodesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_emitted_total",
				Help:      "Total nodes written to the graph backend, labeled by kind.",
			}, []string{"kind"}),
			edgesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edges_emitted_total",
				Help:      "Total edges written to the graph backend, labeled by kind.",
			}, []string{"kind"}),
			pluginDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "plugin_duration_seconds",
				Help:      "Plugin execution duration in seconds, labeled by phase and plugin name.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"phase", "plugin"}),
			issuesBySeverity: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "issues_total",
				Help:      "Total ISSUE nodes recorded, labeled by severity.",
			}, []string{"severity"}),
			phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Orchestrator phase duration in seconds, labeled by phase.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"phase"}),
		}
		prometheus.MustRegister(
			m.filesParsed,
			m.parseDuration,
			m.nodesEmitted,
			m.edgesEmitted,
			m.pluginDuration,
			m.issuesBySeverity,
			m.phaseDuration,
		)
	})
	return m
}

// RecordFileParsed records the outcome of parsing one file and the time
// it took to parse and visit it.
func RecordFileParsed(ok bool, seconds float64) {
	c := get()
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	c.filesParsed.WithLabelValues(outcome).Inc()
	c.parseDuration.Observe(seconds)
}

// RecordNodesEmitted increments the nodes-emitted counter for kind by n.
func RecordNodesEmitted(kind string, n int) {
	if n <= 0 {
		return
	}
	get().nodesEmitted.WithLabelValues(kind).Add(float64(n))
}

// RecordEdgesEmitted increments the edges-emitted counter for kind by n.
func RecordEdgesEmitted(kind string, n int) {
	if n <= 0 {
		return
	}
	get().edgesEmitted.WithLabelValues(kind).Add(float64(n))
}

// RecordPluginDuration records how long a plugin took to execute within
// a given phase.
func RecordPluginDuration(phase, plugin string, seconds float64) {
	get().pluginDuration.WithLabelValues(phase, plugin).Observe(seconds)
}

// RecordIssue increments the issues counter for severity.
func RecordIssue(severity string) {
	get().issuesBySeverity.WithLabelValues(severity).Inc()
}

// RecordPhaseDuration records how long an orchestrator phase took.
func RecordPhaseDuration(phase string, seconds float64) {
	get().phaseDuration.WithLabelValues(phase).Observe(seconds)
}

// Init forces registration of every collector. cmd/grafema calls this
// before serving promhttp.Handler() so --metrics-addr always exposes
// the full metric set, even before the first file is parsed.
func Init() {
	get()
}
