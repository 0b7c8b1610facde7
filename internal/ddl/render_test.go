package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgschema/pgmodeldiff/internal/ir"
	"github.com/pgschema/pgmodeldiff/testutil"
)

func TestCreateTableFoldsColumns(t *testing.T) {
	users := testutil.Table("public", "users", ir.AttrOwner, "app", ir.AttrComment, "People")
	seq := testutil.Sequence("public", "users_id_seq", ir.AttrOwnedBy, "column:public.users.id")
	m := testutil.NewModel(t, "db",
		testutil.Role("app"),
		seq,
		users,
		testutil.Column(users, "id", "bigint", 1, ir.AttrNotNull, "true", ir.AttrDefault, "nextval('public.users_id_seq')"),
		testutil.Column(users, "Email", "text", 2, ir.AttrCollation, "C"),
	)

	sql, err := NewRenderer(17, false).Create(m, users)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"CREATE TABLE public.users (",
		"    id bigint DEFAULT nextval('public.users_id_seq') NOT NULL,",
		`    "Email" text COLLATE "C"`,
		");",
		"ALTER TABLE public.users OWNER TO app;",
		"COMMENT ON TABLE public.users IS 'People';",
		"ALTER SEQUENCE public.users_id_seq OWNED BY public.users.id;",
	}, "\n")
	assert.Equal(t, expected, sql)
	assert.NoError(t, Validate(sql))
}

func TestCreatePartition(t *testing.T) {
	parent := testutil.Table("public", "events", ir.AttrPartitionBy, "RANGE (ts)")
	child := testutil.Table("public", "events_2024", ir.AttrPartitionBound, "FOR VALUES FROM ('2024-01-01') TO ('2025-01-01')")
	child.PartitionOf = parent.Signature()
	m := testutil.NewModel(t, "db", parent, testutil.Column(parent, "ts", "timestamptz", 1), child)

	sql, err := NewRenderer(17, false).Create(m, child)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE public.events_2024 PARTITION OF public.events FOR VALUES FROM ('2024-01-01') TO ('2025-01-01');", sql)
	assert.NoError(t, Validate(sql))
}

func TestRenderedStatementsParse(t *testing.T) {
	users := testutil.Table("public", "users", ir.AttrRLS, "true")
	orders := testutil.Table("public", "orders")
	emailIdx := testutil.Index(users, "users_email_idx", "email", ir.AttrUnique, "true", ir.AttrNullsNotDistinct, "true", ir.AttrWhere, "email IS NOT NULL")
	fk := testutil.Constraint(orders, "orders_user_fk", "foreign_key", "FOREIGN KEY (user_id) REFERENCES public.users (id)", users.Signature())
	fn := testutil.Function("public", "touch()", "trigger", "BEGIN NEW.updated_at = now(); RETURN NEW; END")
	fn = testutil.With(fn, ir.AttrLanguage, "plpgsql", ir.AttrVolatility, "volatile")
	trg := &ir.Object{Type: ir.ObjectTypeTrigger, Name: "orders_touch", Parent: orders.Signature(),
		Attributes: testutil.Attrs(ir.AttrTiming, "before", ir.AttrEvents, "update", ir.AttrFunction, "public.touch()")}
	pol := &ir.Object{Type: ir.ObjectTypePolicy, Name: "own_rows", Parent: users.Signature(),
		Attributes: testutil.Attrs(ir.AttrCommand, "select", ir.AttrRoles, "app, public", ir.AttrUsing, "id = current_setting('app.user')::bigint")}
	view := testutil.View("public", "active_users", "SELECT id FROM public.users;", users.Signature())
	view = testutil.With(view, ir.AttrSecurityInvoker, "true")
	mood := &ir.Object{Type: ir.ObjectTypeType, Schema: "public", Name: "mood", Attributes: testutil.Attrs(ir.AttrLabels, "sad, ok, happy")}
	domain := &ir.Object{Type: ir.ObjectTypeType, Schema: "public", Name: "email", Attributes: testutil.Attrs(ir.AttrKind, "domain", ir.AttrDefinition, "text")}
	proc := &ir.Object{Type: ir.ObjectTypeProcedure, Schema: "public", Name: "cleanup(days integer)",
		Attributes: testutil.Attrs(ir.AttrLanguage, "sql", ir.AttrDefinition, "DELETE FROM public.orders")}
	seq := testutil.Sequence("public", "counter", ir.AttrDataType, "integer", ir.AttrIncrement, "5", ir.AttrCycle, "true", ir.AttrUnlogged, "true")
	role := testutil.Role("app", ir.AttrLogin, "true", ir.AttrConnLimit, "10")
	ts := testutil.Tablespace("fast", "/mnt/fast")
	ext := testutil.Extension("uuid-ossp", "public")
	schema := testutil.Schema("audit", ir.AttrOwner, "app", ir.AttrComment, "audit trail")
	colGrant := testutil.Grant(&ir.Object{Type: ir.ObjectTypeColumn, Name: "email", Parent: users.Signature()}, "app", "select, update")
	tableGrant := testutil.With(testutil.Grant(users, "app", "select"), ir.AttrGrantOption, "true")
	dbGrant := testutil.Grant(&ir.Object{Type: ir.ObjectTypeDatabase, Name: "db"}, "app", "connect")

	m := testutil.NewModel(t, "db",
		role, ts, ext, schema, mood, domain, seq, fn, proc,
		users, testutil.Column(users, "id", "bigint", 1), testutil.Column(users, "email", "text", 2, ir.AttrCompression, "lz4"),
		orders, testutil.Column(orders, "user_id", "bigint", 1),
		emailIdx, fk, trg, pol, view, colGrant, tableGrant, dbGrant,
	)

	r := NewRenderer(17, true)
	for _, o := range m.Objects() {
		if o.System || o.Type == ir.ObjectTypeDatabase {
			continue
		}
		t.Run(o.Signature(), func(t *testing.T) {
			create, err := r.Create(m, o)
			require.NoError(t, err)
			assert.NoError(t, Validate(create), create)

			drop, err := r.Drop(m, o)
			require.NoError(t, err)
			assert.NoError(t, Validate(drop), drop)
		})
	}
}

func TestDropCascade(t *testing.T) {
	users := testutil.Table("public", "users")
	col := testutil.Column(users, "email", "text", 1)
	m := testutil.NewModel(t, "db", users, col)

	tests := []struct {
		cascade  bool
		obj      *ir.Object
		expected string
	}{
		{false, users, "DROP TABLE public.users;"},
		{true, users, "DROP TABLE public.users CASCADE;"},
		{true, col, "ALTER TABLE public.users DROP COLUMN email CASCADE;"},
		{true, testutil.Role("app"), "DROP ROLE app;"},
	}
	for _, tt := range tests {
		sql, err := NewRenderer(17, tt.cascade).Drop(m, tt.obj)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, sql)
	}
}

func TestAlterColumn(t *testing.T) {
	users := testutil.Table("public", "users")
	from := testutil.Column(users, "name", "varchar(50)", 1)
	to := testutil.Column(users, "name", "text", 1, ir.AttrNotNull, "true", ir.AttrDefault, "''", ir.AttrComment, "full name")
	m := testutil.NewModel(t, "db", users, to)

	sql, err := NewRenderer(17, false).Alter(m, from, to)
	require.NoError(t, err)
	expected := strings.Join([]string{
		"ALTER TABLE public.users ALTER COLUMN name TYPE text;",
		"ALTER TABLE public.users ALTER COLUMN name SET DEFAULT '';",
		"ALTER TABLE public.users ALTER COLUMN name SET NOT NULL;",
		"COMMENT ON COLUMN public.users.name IS 'full name';",
	}, "\n")
	assert.Equal(t, expected, sql)
	assert.NoError(t, Validate(sql))
}

func TestAlterDatabaseRename(t *testing.T) {
	from := &ir.Object{Type: ir.ObjectTypeDatabase, Name: "old_db"}
	to := &ir.Object{Type: ir.ObjectTypeDatabase, Name: "new_db", Attributes: testutil.Attrs(ir.AttrConnLimit, "20")}

	sql, err := NewRenderer(17, false).Alter(nil, from, to)
	require.NoError(t, err)
	assert.Equal(t, "ALTER DATABASE old_db RENAME TO new_db;\nALTER DATABASE new_db WITH CONNECTION LIMIT 20;", sql)
}

func TestAlterPermissionRegrants(t *testing.T) {
	users := testutil.Table("public", "users")
	from := testutil.Grant(users, "app", "select")
	to := testutil.Grant(users, "app", "select, insert")
	m := testutil.NewModel(t, "db", testutil.Role("app"), users, to)

	sql, err := NewRenderer(17, false).Alter(m, from, to)
	require.NoError(t, err)
	assert.Equal(t, "REVOKE ALL ON TABLE public.users FROM app;\nGRANT SELECT, INSERT ON TABLE public.users TO app;", sql)
}

func TestVersionSpecificRendering(t *testing.T) {
	users := testutil.Table("public", "users")
	col := testutil.Column(users, "doc", "text", 1, ir.AttrCompression, "lz4")
	trg := &ir.Object{Type: ir.ObjectTypeTrigger, Name: "t", Parent: users.Signature(),
		Attributes: testutil.Attrs(ir.AttrFunction, "public.f")}
	proc := &ir.Object{Type: ir.ObjectTypeProcedure, Schema: "public", Name: "p()"}

	sql, err := NewRenderer(13, false).Create(nil, col)
	require.NoError(t, err)
	assert.NotContains(t, sql, "COMPRESSION")

	sql, err = NewRenderer(14, false).Create(nil, col)
	require.NoError(t, err)
	assert.Contains(t, sql, "COMPRESSION lz4")

	sql, err = NewRenderer(10, false).Create(nil, trg)
	require.NoError(t, err)
	assert.Contains(t, sql, "EXECUTE PROCEDURE public.f()")

	_, err = NewRenderer(10, false).Create(nil, proc)
	assert.Error(t, err)
}

func TestDetachSequence(t *testing.T) {
	seq := testutil.Sequence("public", "users_id_seq")
	sql := NewRenderer(17, false).DetachSequence(seq)
	assert.Equal(t, "ALTER SEQUENCE public.users_id_seq OWNED BY NONE;", sql)
	assert.NoError(t, Validate(sql))
}

func TestValidateRejectsBrokenSQL(t *testing.T) {
	assert.NoError(t, Validate(""))
	assert.Error(t, Validate("CREATE TABLE (;"))
}
