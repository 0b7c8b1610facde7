package util

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("TEST_STRING", "test-value")
	if got := GetEnvWithDefault("TEST_STRING", "default"); got != "test-value" {
		t.Errorf("Expected GetEnvWithDefault to return 'test-value', got '%s'", got)
	}

	if got := GetEnvWithDefault("PGMODELDIFF_MISSING_VAR", "default"); got != "default" {
		t.Errorf("Expected GetEnvWithDefault to return 'default', got '%s'", got)
	}

	t.Setenv("EMPTY_VAR", "")
	if got := GetEnvWithDefault("EMPTY_VAR", "default"); got != "default" {
		t.Errorf("Expected GetEnvWithDefault to return 'default' for empty var, got '%s'", got)
	}
}

func TestGetEnvIntWithDefault(t *testing.T) {
	t.Setenv("TEST_INT", "12345")
	if got := GetEnvIntWithDefault("TEST_INT", 0); got != 12345 {
		t.Errorf("Expected GetEnvIntWithDefault to return 12345, got %d", got)
	}

	t.Setenv("TEST_INVALID_INT", "not-a-number")
	if got := GetEnvIntWithDefault("TEST_INVALID_INT", 999); got != 999 {
		t.Errorf("Expected GetEnvIntWithDefault to return default 999, got %d", got)
	}

	if got := GetEnvIntWithDefault("PGMODELDIFF_MISSING_INT", 777); got != 777 {
		t.Errorf("Expected GetEnvIntWithDefault to return default 777, got %d", got)
	}
}

func TestApplyEnvVar(t *testing.T) {
	var version string
	var workers int
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&version, "pg-version", "", "")
	cmd.Flags().IntVar(&workers, "workers", 0, "")

	t.Setenv("TEST_PG_VERSION", "15")
	t.Setenv("TEST_WORKERS", "4")
	ApplyEnvVar(cmd, "pg-version", "TEST_PG_VERSION", &version)
	ApplyEnvIntVar(cmd, "workers", "TEST_WORKERS", &workers)
	if version != "15" || workers != 4 {
		t.Errorf("Expected environment values, got version=%q workers=%d", version, workers)
	}

	if err := cmd.Flags().Set("pg-version", "16"); err != nil {
		t.Fatal(err)
	}
	ApplyEnvVar(cmd, "pg-version", "TEST_PG_VERSION", &version)
	if version != "16" {
		t.Errorf("Expected the flag to win over the environment, got %q", version)
	}
}
