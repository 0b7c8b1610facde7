package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pgschema/pgmodeldiff/internal/version"
)

func TestVersionCommandOutput(t *testing.T) {
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs([]string{"version"})

	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("version command execution failed: %v", err)
	}

	output := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(output, "pgmodeldiff v"+version.App()) {
		t.Errorf("expected output to start with 'pgmodeldiff v%s', got: %s", version.App(), output)
	}
}
