package plan

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgschema/pgmodeldiff/internal/diff"
	"github.com/pgschema/pgmodeldiff/internal/ir"
	"github.com/pgschema/pgmodeldiff/testutil"
)

func runDiff(t *testing.T, source, imported *ir.Model) *diff.Result {
	t.Helper()
	cfg := diff.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	e := diff.NewEngine(cfg)
	require.NoError(t, e.SetModels(source, imported))
	result, err := e.DiffModels(context.Background())
	require.NoError(t, err)
	return result
}

func shop(t *testing.T) (source, imported *ir.Model) {
	users := testutil.Table("public", "users")
	legacy := testutil.Table("public", "legacy")
	source = testutil.NewModel(t, "shop",
		users, testutil.Column(users, "id", "bigint", 1), testutil.Column(users, "email", "text", 2))
	imported = testutil.NewModel(t, "shop",
		users, testutil.Column(users, "id", "bigint", 1),
		legacy, testutil.Column(legacy, "id", "bigint", 1))
	return source, imported
}

func TestHumanReport(t *testing.T) {
	source, imported := shop(t)
	out := NewReport(runDiff(t, source, imported)).HumanColored(false)

	assert.Contains(t, out, "Diff: 1 to create, 0 to alter, 2 to drop")
	assert.Contains(t, out, "  columns: 1 to create, 0 to alter, 1 to drop")
	assert.Contains(t, out, "  tables: 0 to create, 0 to alter, 1 to drop")
	assert.Contains(t, out, "  + column public.users.email will be created")
	assert.Contains(t, out, "  - table public.legacy will be dropped")
	assert.Contains(t, out, "ALTER TABLE public.users ADD COLUMN email text;")
	assert.Contains(t, out, "DROP TABLE public.legacy;")
	assert.NotContains(t, out, "ignored:", "ignored records are hidden by default")
	assert.Less(t, strings.Index(out, "Summary by type:"), strings.Index(out, "DDL to be executed:"))
}

func TestHumanReportShowIgnore(t *testing.T) {
	source, imported := shop(t)
	report := NewReport(runDiff(t, source, imported))
	report.Show = []diff.DiffType{diff.DiffIgnore}
	out := report.HumanColored(false)

	assert.Contains(t, out, "= table public.users ignored: no differences")
	assert.NotContains(t, out, "+ column")
}

func TestHumanReportWithoutDifferences(t *testing.T) {
	source, _ := shop(t)
	out := NewReport(runDiff(t, source, source)).HumanColored(false)
	assert.Equal(t, "No differences were detected.\n", out)
}

func TestCancelledReport(t *testing.T) {
	source, imported := shop(t)
	result := runDiff(t, source, imported)
	result.Status = diff.StatusCancelled
	result.Infos = result.Infos[:1]

	report := NewReport(result)
	assert.True(t, strings.HasPrefix(report.HumanColored(false), "Diff cancelled: showing the 1 operations"))
	assert.Contains(t, report.ToSQL(), "-- WARNING: the diff was cancelled")
}

func TestJSONReport(t *testing.T) {
	source, imported := shop(t)
	report, err := NewReport(runDiff(t, source, imported)).WithFingerprints(source, imported)
	require.NoError(t, err)

	data, err := report.ToJSON()
	require.NoError(t, err)

	var parsed ReportJSON
	require.NoError(t, json.Unmarshal([]byte(data), &parsed))
	assert.Equal(t, diff.StatusCompleted, parsed.Status)
	assert.Equal(t, "shop", parsed.Source.Name)
	assert.Len(t, parsed.Source.Fingerprint, 64)
	assert.NotEqual(t, parsed.Source.Fingerprint, parsed.Imported.Fingerprint)
	assert.Equal(t, 1, parsed.Summary.Create)
	assert.Equal(t, 2, parsed.Summary.Drop)
	assert.Equal(t, 3, parsed.Summary.Total)
	assert.Equal(t, TypeSummary{Create: 1, Drop: 1}, parsed.Summary.ByType["columns"])
	assert.Contains(t, parsed.Options, "keep-cluster-objs")

	require.Len(t, parsed.Operations, 3)
	assert.Equal(t, diff.DiffCreate, parsed.Operations[0].Type)
	assert.Equal(t, "column:public.users.email", parsed.Operations[0].Signature)
	for i := 1; i < len(parsed.Operations); i++ {
		assert.Less(t, parsed.Operations[i-1].Index, parsed.Operations[i].Index)
	}
}

func TestSQLReport(t *testing.T) {
	source, imported := shop(t)
	sql := NewReport(runDiff(t, source, imported)).ToSQL()

	assert.True(t, strings.HasPrefix(sql, "--\n-- pgmodeldiff migration\n--\n"))
	assert.Contains(t, sql, "-- Target PostgreSQL version: 17\n")
	assert.True(t, strings.HasSuffix(sql, "DROP TABLE public.legacy;\n"))

	assert.Empty(t, NewReport(runDiff(t, source, source)).ToSQL())
}
