package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgschema/pgmodeldiff/internal/ir"
	"github.com/pgschema/pgmodeldiff/testutil"
)

func TestShouldIgnore(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		object   string
		expected bool
	}{
		{name: "empty patterns", patterns: []string{}, object: "users", expected: false},
		{name: "exact match", patterns: []string{"temp_table"}, object: "temp_table", expected: true},
		{name: "no match", patterns: []string{"temp_table"}, object: "users", expected: false},
		{name: "wildcard prefix", patterns: []string{"temp_*"}, object: "temp_users", expected: true},
		{name: "wildcard suffix", patterns: []string{"*_temp"}, object: "users_temp", expected: true},
		{name: "qualified name", patterns: []string{"audit.*"}, object: "log", expected: false},
		{name: "negation wins", patterns: []string{"temp_*", "!temp_keep"}, object: "temp_keep", expected: false},
		{name: "negation alone ignores nothing", patterns: []string{"!users"}, object: "orders", expected: false},
		{name: "invalid pattern is literal", patterns: []string{"[bad"}, object: "[bad", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{sections: map[ir.ObjectType][]string{ir.ObjectTypeTable: tt.patterns}}
			assert.Equal(t, tt.expected, c.ShouldIgnore(testutil.Table("public", tt.object)))
		})
	}
}

func TestShouldIgnoreQualifiedName(t *testing.T) {
	c, err := Parse(`
[tables]
patterns = ["audit.*"]
`)
	require.NoError(t, err)
	assert.False(t, c.ShouldIgnore(testutil.Table("public", "log")))
	assert.True(t, c.ShouldIgnore(testutil.Table("audit", "log")))
	assert.False(t, c.ShouldIgnore(testutil.View("audit", "log", "SELECT 1")), "patterns apply to their own type")
}

func TestNilConfigIgnoresNothing(t *testing.T) {
	var c *Config
	assert.True(t, c.Empty())
	assert.False(t, c.ShouldIgnore(testutil.Table("public", "users")))

	m := testutil.NewModel(t, "shop")
	pruned, removed, err := c.Prune(m)
	require.NoError(t, err)
	assert.Same(t, m, pruned)
	assert.Empty(t, removed)
}

func TestLoadIgnoreFile(t *testing.T) {
	dir := t.TempDir()

	config, err := LoadIgnoreFileFromPath(filepath.Join(dir, IgnoreFileName))
	require.NoError(t, err)
	assert.Nil(t, config, "a missing ignore file is not an error")

	path := filepath.Join(dir, IgnoreFileName)
	content := `
[tables]
patterns = ["temp_*", "!temp_keep"]

[sequences]
patterns = ["*_legacy_seq"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	config, err = LoadIgnoreFileFromPath(path)
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.False(t, config.Empty())
	assert.True(t, config.ShouldIgnore(testutil.Table("public", "temp_users")))
	assert.False(t, config.ShouldIgnore(testutil.Table("public", "temp_keep")))
	assert.True(t, config.ShouldIgnore(testutil.Sequence("public", "order_legacy_seq")))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("[widgets]\npatterns = [\"x\"]\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ignore section [widgets]")

	_, err = Parse("[databases]\npatterns = [\"*\"]\n")
	require.Error(t, err)

	_, err = Parse("[tables\n")
	require.Error(t, err)
}

func TestPruneRemovesDependentObjects(t *testing.T) {
	users := testutil.Table("public", "users")
	temp := testutil.Table("public", "temp_import")
	userID := testutil.Column(users, "id", "bigint", 1)
	tempID := testutil.Column(temp, "id", "bigint", 1)
	seq := testutil.Sequence("public", "temp_import_id_seq", ir.AttrOwnedBy, tempID.Signature())
	view := testutil.View("public", "temp_report", "SELECT id FROM public.temp_import", temp.Signature())
	keep := testutil.View("public", "user_report", "SELECT id FROM public.users", users.Signature())

	m := testutil.NewModel(t, "shop", users, userID, temp, tempID, seq, view, keep)

	c, err := Parse("[tables]\npatterns = [\"temp_*\"]\n")
	require.NoError(t, err)

	pruned, removed, err := c.Prune(m)
	require.NoError(t, err)
	assert.True(t, pruned.Sealed())
	assert.Equal(t, []string{
		"sequence:public.temp_import_id_seq",
		"table:public.temp_import",
		"column:public.temp_import.id",
		"view:public.temp_report",
	}, removed)
	assert.Equal(t, m.Len()-4, pruned.Len())
	assert.True(t, pruned.Has(keep.Signature()))
	assert.True(t, m.Has(temp.Signature()), "the input model is left untouched")
}

