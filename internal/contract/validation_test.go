// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"os"
	"testing"
)

func TestSoftLimitBytes_DefaultAndOverride(t *testing.T) {
	if got := SoftLimitBytes(); got != DefaultSoftLimitBytes {
		t.Fatalf("SoftLimitBytes() = %d, want default %d", got, DefaultSoftLimitBytes)
	}

	os.Setenv("GRAFEMA_SOFT_LIMIT_BYTES", "1024")
	defer os.Unsetenv("GRAFEMA_SOFT_LIMIT_BYTES")
	if got := SoftLimitBytes(); got != 1024 {
		t.Fatalf("SoftLimitBytes() with override = %d, want 1024", got)
	}
}

func TestSoftLimitBytes_IgnoresInvalidOverride(t *testing.T) {
	os.Setenv("GRAFEMA_SOFT_LIMIT_BYTES", "not-a-number")
	defer os.Unsetenv("GRAFEMA_SOFT_LIMIT_BYTES")
	if got := SoftLimitBytes(); got != DefaultSoftLimitBytes {
		t.Fatalf("SoftLimitBytes() with invalid override = %d, want default %d", got, DefaultSoftLimitBytes)
	}
}

func TestValidateFileSize(t *testing.T) {
	if result := ValidateFileSize("small.ts", 1024); !result.OK {
		t.Fatalf("expected a small file to pass, got %+v", result)
	}

	result := ValidateFileSize("huge.js", int64(DefaultSoftLimitBytes)+1)
	if result.OK {
		t.Fatalf("expected an oversized file to fail the soft limit")
	}
	if result.Message == "" {
		t.Fatalf("expected a non-empty message identifying the oversized file")
	}
}
