// Package testutil provides shared test utilities for pgmodeldiff
package testutil

import (
	"os"
	"testing"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// PgVersion returns the PostgreSQL version tests render for.
// It reads PGMODELDIFF_TEST_PG_VERSION, defaulting to 17.
func PgVersion(t testing.TB) ir.PgVersion {
	t.Helper()
	if value := os.Getenv("PGMODELDIFF_TEST_PG_VERSION"); value != "" {
		v, err := ir.ParsePgVersion(value)
		if err != nil {
			t.Fatalf("invalid PGMODELDIFF_TEST_PG_VERSION: %v", err)
		}
		return v
	}
	return ir.DefaultPgVersion
}

// NewModel builds a sealed model holding the system objects plus objs.
func NewModel(t testing.TB, name string, objs ...*ir.Object) *ir.Model {
	t.Helper()
	m := ir.NewModel(name)
	if err := ir.AddSystemObjects(m, name); err != nil {
		t.Fatalf("failed to add system objects: %v", err)
	}
	for _, o := range objs {
		if err := m.Add(o.Clone()); err != nil {
			t.Fatalf("failed to add %s: %v", o.Signature(), err)
		}
	}
	if err := m.Seal(); err != nil {
		t.Fatalf("failed to seal model %s: %v", name, err)
	}
	return m
}

// Attrs turns key/value pairs into an attribute map.
func Attrs(kv ...string) map[string]string {
	attrs := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	return attrs
}

// With returns a copy of o with the given attributes set.
func With(o *ir.Object, kv ...string) *ir.Object {
	c := o.Clone()
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}
	for k, v := range Attrs(kv...) {
		c.Attributes[k] = v
	}
	return c
}

// DependingOn returns a copy of o with extra explicit dependencies.
func DependingOn(o *ir.Object, sigs ...string) *ir.Object {
	c := o.Clone()
	c.DependsOn = append(c.DependsOn, sigs...)
	return c
}

func Role(name string, kv ...string) *ir.Object {
	return &ir.Object{Type: ir.ObjectTypeRole, Name: name, Attributes: Attrs(kv...)}
}

func Tablespace(name, location string) *ir.Object {
	return &ir.Object{Type: ir.ObjectTypeTablespace, Name: name, Attributes: Attrs(ir.AttrLocation, location)}
}

func Schema(name string, kv ...string) *ir.Object {
	return &ir.Object{Type: ir.ObjectTypeSchema, Name: name, Attributes: Attrs(kv...)}
}

func Extension(name, schema string) *ir.Object {
	return &ir.Object{Type: ir.ObjectTypeExtension, Name: name, Attributes: Attrs(ir.AttrSchema, schema)}
}

func Table(schema, name string, kv ...string) *ir.Object {
	return &ir.Object{Type: ir.ObjectTypeTable, Schema: schema, Name: name, Attributes: Attrs(kv...)}
}

func Column(table *ir.Object, name, dataType string, position int, kv ...string) *ir.Object {
	attrs := Attrs(kv...)
	attrs[ir.AttrType] = dataType
	return &ir.Object{Type: ir.ObjectTypeColumn, Name: name, Parent: table.Signature(), Position: position, Attributes: attrs}
}

func Constraint(table *ir.Object, name, kind, definition string, deps ...string) *ir.Object {
	return &ir.Object{
		Type:       ir.ObjectTypeConstraint,
		Name:       name,
		Parent:     table.Signature(),
		Attributes: Attrs(ir.AttrKind, kind, ir.AttrDefinition, definition),
		DependsOn:  deps,
	}
}

func Index(table *ir.Object, name, columns string, kv ...string) *ir.Object {
	attrs := Attrs(kv...)
	attrs[ir.AttrColumns] = columns
	return &ir.Object{Type: ir.ObjectTypeIndex, Schema: table.Schema, Name: name, Parent: table.Signature(), Attributes: attrs}
}

func View(schema, name, definition string, deps ...string) *ir.Object {
	return &ir.Object{
		Type:       ir.ObjectTypeView,
		Schema:     schema,
		Name:       name,
		Attributes: Attrs(ir.AttrDefinition, definition),
		DependsOn:  deps,
	}
}

func Sequence(schema, name string, kv ...string) *ir.Object {
	return &ir.Object{Type: ir.ObjectTypeSequence, Schema: schema, Name: name, Attributes: Attrs(kv...)}
}

func Function(schema, name, returns, body string) *ir.Object {
	return &ir.Object{
		Type:   ir.ObjectTypeFunction,
		Schema: schema,
		Name:   name,
		Attributes: Attrs(
			ir.AttrReturns, returns,
			ir.AttrLanguage, "sql",
			ir.AttrDefinition, body,
		),
	}
}

func Relationship(name, kind string, source, target *ir.Object) *ir.Object {
	return &ir.Object{
		Type: ir.ObjectTypeRelationship,
		Name: name,
		Attributes: Attrs(
			ir.AttrKind, kind,
			ir.AttrSource, source.Signature(),
			ir.AttrTarget, target.Signature(),
		),
	}
}

func Grant(on *ir.Object, role, privileges string) *ir.Object {
	return &ir.Object{
		Type:       ir.ObjectTypePermission,
		Name:       role,
		Parent:     on.Signature(),
		Attributes: Attrs(ir.AttrPrivileges, privileges),
	}
}
