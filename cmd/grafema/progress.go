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

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/kraklabs/grafema/pkg/orchestrator"
)

// ProgressConfig determines if and how progress should be displayed.
type ProgressConfig struct {
	Enabled bool
	Writer  io.Writer
	NoColor bool
}

// NewProgressConfig builds a ProgressConfig from the global flags and
// TTY detection: suppressed by --json/--quiet, or when stderr is not a
// terminal.
func NewProgressConfig(globals GlobalFlags) ProgressConfig {
	enabled := !globals.Quiet && !globals.JSON && isatty.IsTerminal(os.Stderr.Fd())
	return ProgressConfig{Enabled: enabled, Writer: os.Stderr, NoColor: globals.NoColor}
}

// NewSpinner creates an indeterminate spinner for `grafema index`, whose
// total file count isn't known until Discovery/Indexing finish walking
// the project. Returns nil when progress is disabled.
func NewSpinner(cfg ProgressConfig, description string) *progressbar.ProgressBar {
	if !cfg.Enabled {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(cfg.Writer),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(!cfg.NoColor),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

// newIndexProgress constructs the spinner `grafema index` drives from
// orchestrator.ProgressInfo callbacks.
func newIndexProgress(globals GlobalFlags) *progressbar.ProgressBar {
	return NewSpinner(NewProgressConfig(globals), "indexing")
}

// renderIndexProgress adapts an orchestrator.ProgressInfo stream into
// spinner updates; nil bar (progress disabled) makes it a no-op.
func renderIndexProgress(bar *progressbar.ProgressBar) func(orchestrator.ProgressInfo) {
	return func(info orchestrator.ProgressInfo) {
		if bar == nil {
			return
		}
		label := string(info.Phase)
		switch {
		case info.CurrentService != "" && info.TotalFiles > 0:
			label = fmt.Sprintf("%s: %s (%d/%d)", info.Phase, info.CurrentService, info.ProcessedFiles, info.TotalFiles)
		case info.CurrentService != "":
			label = fmt.Sprintf("%s: %s", info.Phase, info.CurrentService)
		case info.CurrentPlugin != "":
			label = fmt.Sprintf("%s: %s", info.Phase, info.CurrentPlugin)
		}
		bar.Describe(label)
		_ = bar.Add(1)
	}
}
