// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultSoftLimitBytes is the baseline per-file soft limit applied
	// during Indexing.
	DefaultSoftLimitBytes = 8 << 20 // 8 MiB

	// RequestIDMaxBytes bounds the --service filter value accepted on
	// the CLI, guarding against a pathological flag value leaking into
	// log lines or issue messages.
	RequestIDMaxBytes = 128
)

// SoftLimitBytes returns the effective per-file soft limit. Controlled
// via env GRAFEMA_SOFT_LIMIT_BYTES; falls back to DefaultSoftLimitBytes.
func SoftLimitBytes() int {
	if v := os.Getenv("GRAFEMA_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSoftLimitBytes
}

// ValidationResult is the outcome of a size check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateFileSize checks size against the soft limit, reporting path
// in the message so the caller can surface which file was skipped.
func ValidateFileSize(path string, size int64) *ValidationResult {
	if limit := int64(SoftLimitBytes()); size > limit {
		return &ValidationResult{
			OK:      false,
			Message: fmt.Sprintf("%s (%d bytes) exceeds the %d byte soft limit", path, size, limit),
		}
	}
	return &ValidationResult{OK: true}
}
