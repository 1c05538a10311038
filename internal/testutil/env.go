// Package testutil provides utilities for testing the installer in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// provisionEnv lists every variable config.ApplyEnv reads.
var provisionEnv = []string{
	"PROVISION_CONFIG",
	"PROVISION_INSTALL_ROOT",
	"PROVISION_BASE_URL",
	"PROVISION_MANIFEST",
	"PROVISION_POLICY",
	"PROVISION_NO_LINK",
	"PROVISION_FORCE",
}

// SetupTestEnv isolates a test from the developer's environment and returns
// a fresh root directory. HOME points into the root so "~" never expands to
// the real home, and all PROVISION_* variables are cleared.
//
// Cleanup is handled by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	home := filepath.Join(root, "home")
	if err := os.MkdirAll(home, 0o750); err != nil {
		t.Fatalf("failed to create test home %s: %v", home, err)
	}

	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, name := range provisionEnv {
		t.Setenv(name, "")
	}

	return root
}
