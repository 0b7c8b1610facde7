package ir

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestModel(t *testing.T, objs ...*Object) *Model {
	t.Helper()
	m := NewModel("testdb")
	if err := AddSystemObjects(m, "testdb"); err != nil {
		t.Fatalf("AddSystemObjects failed: %v", err)
	}
	for _, o := range objs {
		if err := m.Add(o); err != nil {
			t.Fatalf("Add(%s) failed: %v", o.Signature(), err)
		}
	}
	if err := m.Seal(); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	return m
}

func TestObjectSignature(t *testing.T) {
	tests := []struct {
		name     string
		obj      *Object
		expected string
	}{
		{
			name:     "database ignores name",
			obj:      &Object{Type: ObjectTypeDatabase, Name: "shop"},
			expected: "database",
		},
		{
			name:     "role",
			obj:      &Object{Type: ObjectTypeRole, Name: "app"},
			expected: "role:app",
		},
		{
			name:     "schema scoped table",
			obj:      &Object{Type: ObjectTypeTable, Schema: "public", Name: "users"},
			expected: "table:public.users",
		},
		{
			name:     "column uses parent name",
			obj:      &Object{Type: ObjectTypeColumn, Name: "id", Parent: "table:public.users"},
			expected: "column:public.users.id",
		},
		{
			name:     "index is schema scoped",
			obj:      &Object{Type: ObjectTypeIndex, Schema: "public", Name: "users_email_idx", Parent: "table:public.users"},
			expected: "index:public.users_email_idx",
		},
		{
			name:     "permission",
			obj:      &Object{Type: ObjectTypePermission, Name: "app", Parent: "table:public.users"},
			expected: "permission:table:public.users@app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obj.Signature(); got != tt.expected {
				t.Errorf("Signature() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	tests := map[string]ObjectType{
		"database":                          ObjectTypeDatabase,
		"table:public.users":                ObjectTypeTable,
		"permission:table:public.users@app": ObjectTypePermission,
		"bogus:x":                           ObjectTypeNone,
	}
	for sig, expected := range tests {
		if got := TypeOf(sig); got != expected {
			t.Errorf("TypeOf(%q) = %s, want %s", sig, got, expected)
		}
	}
}

func TestParseObjectType(t *testing.T) {
	for _, typ := range ObjectTypes() {
		got, err := ParseObjectType(typ.String())
		if err != nil || got != typ {
			t.Errorf("ParseObjectType(%q) = %s, %v", typ.String(), got, err)
		}
		got, err = ParseObjectType(typ.Plural())
		if err != nil || got != typ {
			t.Errorf("ParseObjectType(%q) = %s, %v", typ.Plural(), got, err)
		}
	}
	if _, err := ParseObjectType("widget"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestModelAddReplacesSystemObjects(t *testing.T) {
	m := NewModel("db")
	if err := AddSystemObjects(m, "db"); err != nil {
		t.Fatal(err)
	}
	public := &Object{Type: ObjectTypeSchema, Name: "public", Attributes: map[string]string{AttrOwner: "postgres"}}
	if err := m.Add(public); err != nil {
		t.Fatalf("overriding a system object should succeed: %v", err)
	}
	if err := m.Add(&Object{Type: ObjectTypeSchema, Name: "public"}); err == nil {
		t.Fatal("expected duplicate error")
	}
	got, _ := m.Lookup("schema:public")
	if got != public {
		t.Error("expected user object to replace the system one")
	}
}

func TestModelSealValidation(t *testing.T) {
	m := NewModel("db")
	if err := AddSystemObjects(m, "db"); err != nil {
		t.Fatal(err)
	}
	objs := []*Object{
		{Type: ObjectTypeTable, Schema: "missing", Name: "t"},
		{Type: ObjectTypeColumn, Name: "c", Parent: "table:public.nope"},
		{Type: ObjectTypeView, Schema: "public", Name: "v", DependsOn: []string{"table:public.ghost"}},
	}
	for _, o := range objs {
		if err := m.Add(o); err != nil {
			t.Fatal(err)
		}
	}

	err := m.Seal()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{`schema "missing" not found`, "parent table:public.nope not found", "dependency table:public.ghost not found"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err.Error(), want)
		}
	}
	if m.Sealed() {
		t.Error("model must stay unsealed after a failed Seal")
	}
}

func TestModelSealedIsImmutable(t *testing.T) {
	m := newTestModel(t)
	if err := m.Add(&Object{Type: ObjectTypeRole, Name: "x"}); err != ErrSealed {
		t.Errorf("Add on sealed model = %v, want ErrSealed", err)
	}
	if err := m.Remove("role:postgres"); err != ErrSealed {
		t.Errorf("Remove on sealed model = %v, want ErrSealed", err)
	}
}

func TestModelDependencies(t *testing.T) {
	m := newTestModel(t,
		&Object{Type: ObjectTypeRole, Name: "app"},
		&Object{Type: ObjectTypeTable, Schema: "public", Name: "parent"},
		&Object{Type: ObjectTypeTable, Schema: "public", Name: "child",
			Attributes: map[string]string{AttrOwner: "app"},
			Inherits:   []string{"table:public.parent"}},
		&Object{Type: ObjectTypeSequence, Schema: "public", Name: "child_id_seq",
			Attributes: map[string]string{AttrOwnedBy: "column:public.child.id"}},
		&Object{Type: ObjectTypeColumn, Name: "id", Parent: "table:public.child"},
	)

	child, _ := m.Lookup("table:public.child")
	want := []string{"role:app", "schema:public", "table:public.parent"}
	if diff := cmp.Diff(want, m.Dependencies(child)); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}

	col, _ := m.Lookup("column:public.child.id")
	want = []string{"sequence:public.child_id_seq", "table:public.child"}
	if diff := cmp.Diff(want, m.Dependencies(col)); diff != "" {
		t.Errorf("column Dependencies mismatch (-want +got):\n%s", diff)
	}

	want = []string{"table:public.child"}
	if diff := cmp.Diff(want, m.Dependents("table:public.parent")); diff != "" {
		t.Errorf("Dependents mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"column:public.child.id"}, m.Children("table:public.child")); diff != "" {
		t.Errorf("Children mismatch (-want +got):\n%s", diff)
	}
}

func TestModelColumnsOrderedByPosition(t *testing.T) {
	m := newTestModel(t,
		&Object{Type: ObjectTypeTable, Schema: "public", Name: "t"},
		&Object{Type: ObjectTypeColumn, Name: "b", Parent: "table:public.t", Position: 2},
		&Object{Type: ObjectTypeColumn, Name: "a", Parent: "table:public.t", Position: 3},
		&Object{Type: ObjectTypeColumn, Name: "id", Parent: "table:public.t", Position: 1},
	)
	var names []string
	for _, c := range m.Columns("table:public.t") {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"id", "b", "a"}, names); diff != "" {
		t.Errorf("column order mismatch (-want +got):\n%s", diff)
	}
}

func TestModelRelationshipsAndPartitions(t *testing.T) {
	m := newTestModel(t,
		&Object{Type: ObjectTypeTable, Schema: "public", Name: "a"},
		&Object{Type: ObjectTypeTable, Schema: "public", Name: "b"},
		&Object{Type: ObjectTypeTable, Schema: "public", Name: "events", Attributes: map[string]string{AttrPartitionBy: "RANGE (ts)"}},
		&Object{Type: ObjectTypeTable, Schema: "public", Name: "events_2024", PartitionOf: "table:public.events"},
		&Object{Type: ObjectTypeRelationship, Name: "a_b", Attributes: map[string]string{
			AttrKind: RelationshipOneToMany, AttrSource: "table:public.a", AttrTarget: "table:public.b"}},
	)

	rels := m.Relationships("table:public.b")
	if len(rels) != 1 || rels[0].Name != "a_b" {
		t.Errorf("Relationships(b) = %v, want [a_b]", rels)
	}
	parts := m.Partitions("table:public.events")
	if len(parts) != 1 || parts[0].Name != "events_2024" {
		t.Errorf("Partitions(events) = %v, want [events_2024]", parts)
	}
}

func TestModelFindByOID(t *testing.T) {
	m := newTestModel(t,
		&Object{Type: ObjectTypeTable, Schema: "public", Name: "t", OID: 16384},
	)
	o, ok := m.FindByOID(ObjectTypeTable, 16384)
	if !ok || o.Name != "t" {
		t.Errorf("FindByOID = %v, %v", o, ok)
	}
	if _, ok := m.FindByOID(ObjectTypeView, 16384); ok {
		t.Error("FindByOID must match the type as well")
	}
}

func TestModelCloneIsDeep(t *testing.T) {
	m := newTestModel(t,
		&Object{Type: ObjectTypeTable, Schema: "public", Name: "t", Attributes: map[string]string{AttrComment: "x"}},
	)
	c := m.Clone()
	if c.Sealed() {
		t.Fatal("clone must be unsealed")
	}
	o, _ := c.Lookup("table:public.t")
	o.Attributes[AttrComment] = "changed"
	orig, _ := m.Lookup("table:public.t")
	if orig.Attr(AttrComment) != "x" {
		t.Error("clone shares attribute maps with the original")
	}
}

func TestSnapshotVersionGating(t *testing.T) {
	col := &Object{Type: ObjectTypeColumn, Name: "c", Parent: "table:public.t", Attributes: map[string]string{
		AttrType:        "text",
		AttrCompression: "lz4",
	}}
	if _, ok := col.Snapshot(13)[AttrCompression]; ok {
		t.Error("compression must be hidden before PostgreSQL 14")
	}
	if col.Snapshot(14)[AttrCompression] != "lz4" {
		t.Error("compression must be visible from PostgreSQL 14")
	}
}

func TestParsePgVersion(t *testing.T) {
	tests := []struct {
		input       string
		expected    PgVersion
		expectError bool
	}{
		{input: "17", expected: 17},
		{input: "16.4", expected: 16},
		{input: "PostgreSQL 15.2", expected: 15},
		{input: " 14.0.1 ", expected: 14},
		{input: "9.6", expectError: true},
		{input: "19", expectError: true},
		{input: "abc", expectError: true},
		{input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePgVersion(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %d, want %d", got, tt.expected)
			}
		})
	}
}
