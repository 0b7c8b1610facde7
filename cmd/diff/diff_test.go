package diff

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgschema/pgmodeldiff/internal/fingerprint"
	"github.com/pgschema/pgmodeldiff/internal/ir"
	"github.com/pgschema/pgmodeldiff/internal/plan"
)

const sourceModel = `
name: shop
objects:
  - type: table
    schema: public
    name: users
  - type: column
    name: id
    parent: table:public.users
    position: 1
    attributes:
      type: bigint
  - type: column
    name: email
    parent: table:public.users
    position: 2
    attributes:
      type: text
  - type: table
    schema: public
    name: orders
  - type: column
    name: id
    parent: table:public.orders
    position: 1
    attributes:
      type: bigint
`

const importedModel = `
name: shop
pg_version: "15"
objects:
  - type: table
    schema: public
    name: users
    oid: 16401
  - type: column
    name: id
    parent: table:public.users
    position: 1
    attributes:
      type: bigint
  - type: table
    schema: public
    name: legacy
    oid: 16410
`

func writeModels(t *testing.T) (source, imported string) {
	t.Helper()
	dir := t.TempDir()
	source = filepath.Join(dir, "source.yaml")
	imported = filepath.Join(dir, "imported.yaml")
	require.NoError(t, os.WriteFile(source, []byte(sourceModel), 0644))
	require.NoError(t, os.WriteFile(imported, []byte(importedModel), 0644))
	return source, imported
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ResetFlags()
	t.Cleanup(ResetFlags)

	var out bytes.Buffer
	DiffCmd.SetOut(&out)
	DiffCmd.SetErr(&bytes.Buffer{})
	DiffCmd.SetArgs(args)
	err := DiffCmd.Execute()
	return out.String(), err
}

func TestDiffCommandHumanOutput(t *testing.T) {
	source, imported := writeModels(t)
	out, err := execute(t, "--source", source, "--imported", imported, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "Diff: 3 to create, 0 to alter, 1 to drop")
	assert.Contains(t, out, "ALTER TABLE public.users ADD COLUMN email text;")
	assert.Contains(t, out, "CREATE TABLE public.orders (")
	assert.Contains(t, out, "DROP TABLE public.legacy;")
	assert.NotContains(t, out, "\x1b[", "no escape codes with --no-color")
}

func TestDiffCommandJSONAndSQLFile(t *testing.T) {
	source, imported := writeModels(t)
	sqlPath := filepath.Join(t.TempDir(), "migration.sql")
	out, err := execute(t, "--source", source, "--imported", imported,
		"--output-json", "stdout", "--output-sql", sqlPath)
	require.NoError(t, err)

	var report plan.ReportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "15", report.PgVersion, "target version comes from the imported model")
	assert.Equal(t, 3, report.Summary.Create)
	assert.Equal(t, 1, report.Summary.Drop)
	assert.NotEmpty(t, report.RunID)

	sql, err := os.ReadFile(sqlPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(sql), "--\n-- pgmodeldiff migration\n--\n"))
	assert.Contains(t, string(sql), "-- Target PostgreSQL version: 15\n")
}

func TestDiffCommandPgVersionFlagWins(t *testing.T) {
	source, imported := writeModels(t)
	out, err := execute(t, "--source", source, "--imported", imported, "--pg-version", "17", "--output-json", "stdout")
	require.NoError(t, err)

	var report plan.ReportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "17", report.PgVersion)
}

func TestDiffCommandEnvironment(t *testing.T) {
	source, imported := writeModels(t)
	t.Setenv("PGMODELDIFF_SOURCE", source)
	t.Setenv("PGMODELDIFF_IMPORTED", imported)

	out, err := execute(t, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "DROP TABLE public.legacy;")
}

func TestDiffCommandOptionFlags(t *testing.T) {
	source, imported := writeModels(t)
	out, err := execute(t, "--source", source, "--imported", imported, "--no-color",
		"--dont-drop-missing-objs", "--cascade-mode")
	require.NoError(t, err)
	assert.NotContains(t, out, "DROP TABLE")
	assert.Contains(t, out, "Diff: 3 to create, 0 to alter, 0 to drop")
}

func TestDiffCommandFilter(t *testing.T) {
	source, imported := writeModels(t)
	out, err := execute(t, "--source", source, "--imported", imported, "--no-color",
		"--filter", "table:public.orders")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE public.orders (")
	assert.NotContains(t, out, "ADD COLUMN email")
	assert.NotContains(t, out, "DROP TABLE public.legacy")
}

func TestDiffCommandIgnoreFile(t *testing.T) {
	source, imported := writeModels(t)
	ignorePath := filepath.Join(t.TempDir(), "ignore.toml")
	require.NoError(t, os.WriteFile(ignorePath, []byte("[tables]\npatterns = [\"legacy\", \"orders\"]\n"), 0644))

	out, err := execute(t, "--source", source, "--imported", imported, "--no-color", "--ignore-file", ignorePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Diff: 1 to create, 0 to alter, 0 to drop")
	assert.NotContains(t, out, "public.legacy")
	assert.NotContains(t, out, "public.orders")
}

func TestDiffCommandImportedFingerprint(t *testing.T) {
	source, imported := writeModels(t)

	_, err := execute(t, "--source", source, "--imported", imported,
		"--expect-imported-fingerprint", "0000000000000000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model fingerprint mismatch")

	m, _, err := ir.LoadFile(imported)
	require.NoError(t, err)
	fp, err := fingerprint.ComputeFingerprint(m)
	require.NoError(t, err)
	_, err = execute(t, "--source", source, "--imported", imported, "--expect-imported-fingerprint", fp.Hash)
	assert.NoError(t, err)
}

func TestDiffCommandErrors(t *testing.T) {
	source, imported := writeModels(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing source", args: []string{"--imported", imported}, want: "source model is required"},
		{name: "missing imported", args: []string{"--source", source}, want: "imported model is required"},
		{
			name: "two stdout outputs",
			args: []string{"--source", source, "--imported", imported, "--output-json", "stdout", "--output-sql", "stdout"},
			want: "only one output format can use stdout",
		},
		{name: "bad show", args: []string{"--source", source, "--imported", imported, "--show", "rename"}, want: "rename"},
		{name: "bad version", args: []string{"--source", source, "--imported", imported, "--pg-version", "9.6"}, want: "unsupported PostgreSQL version"},
		{name: "missing file", args: []string{"--source", source + ".missing.yaml", "--imported", imported}, want: "failed to read model file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDetermineOutputs(t *testing.T) {
	ResetFlags()
	t.Cleanup(ResetFlags)

	outputs, err := determineOutputs()
	require.NoError(t, err)
	assert.Equal(t, []outputSpec{{format: "human", target: "stdout"}}, outputs)

	outputJSON = "stdout"
	outputSQL = "plan.sql"
	outputs, err = determineOutputs()
	require.NoError(t, err)
	assert.Equal(t, []outputSpec{{"json", "stdout"}, {"sql", "plan.sql"}}, outputs)
}
