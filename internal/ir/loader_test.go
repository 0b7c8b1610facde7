package ir

import (
	"os"
	"path/filepath"
	"testing"
)

const yamlModel = `
name: shop
pg_version: "16"
objects:
  - type: role
    name: app
    attributes:
      login: "true"
  - type: schema
    name: public
    attributes:
      owner: app
  - type: table
    schema: public
    name: users
    oid: 16401
    attributes:
      owner: app
  - type: column
    name: id
    parent: table:public.users
    position: 1
    attributes:
      type: bigint
      not_null: "true"
`

const tomlModel = `
name = "shop"

[[objects]]
type = "table"
schema = "public"
name = "users"

[[objects]]
type = "column"
name = "id"
parent = "table:public.users"
position = 1

[objects.attributes]
type = "bigint"
`

const jsonModel = `{
  "name": "shop",
  "objects": [
    {"type": "table", "schema": "public", "name": "users"},
    {"type": "column", "name": "id", "parent": "table:public.users", "attributes": {"type": "bigint"}}
  ]
}`

func writeModelFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestLoadFileFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "yaml", file: "model.yaml", content: yamlModel},
		{name: "toml", file: "model.toml", content: tomlModel},
		{name: "json", file: "model.json", content: jsonModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, doc, err := LoadFile(writeModelFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadFile failed: %v", err)
			}
			if !m.Sealed() {
				t.Error("loaded model must be sealed")
			}
			if doc.Name != "shop" || m.Name != "shop" {
				t.Errorf("name = %q/%q, want shop", doc.Name, m.Name)
			}
			col, ok := m.Lookup("column:public.users.id")
			if !ok {
				t.Fatal("column not loaded")
			}
			if col.Attr(AttrType) != "bigint" {
				t.Errorf("column type = %q, want bigint", col.Attr(AttrType))
			}
			if db := m.Database(); db == nil || db.Name != "shop" {
				t.Errorf("database object = %v, want shop", db)
			}
		})
	}
}

func TestLoadFileOverridesSystemObjects(t *testing.T) {
	m, doc, err := LoadFile(writeModelFile(t, "model.yml", yamlModel))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if doc.PgVersion != "16" {
		t.Errorf("pg_version = %q, want 16", doc.PgVersion)
	}
	public, _ := m.Lookup("schema:public")
	if public.System {
		t.Error("document schema should replace the system schema")
	}
	if public.Attr(AttrOwner) != "app" {
		t.Errorf("owner = %q, want app", public.Attr(AttrOwner))
	}
	if _, ok := m.Lookup("schema:pg_catalog"); !ok {
		t.Error("system schema pg_catalog missing")
	}
	if users, _ := m.Lookup("table:public.users"); users.OID != 16401 {
		t.Errorf("oid = %d, want 16401", users.OID)
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "unknown extension", file: "model.xml", content: "<model/>"},
		{name: "bad yaml", file: "model.yaml", content: "objects: [unterminated"},
		{name: "unknown type", file: "model.json", content: `{"objects":[{"type":"widget","name":"x"}]}`},
		{name: "dangling parent", file: "model.json", content: `{"objects":[{"type":"column","name":"x","parent":"table:public.t"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := LoadFile(writeModelFile(t, tt.file, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFileDefaultsNameFromPath(t *testing.T) {
	m, _, err := LoadFile(writeModelFile(t, "inventory.json", `{"objects":[]}`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if m.Name != "inventory" {
		t.Errorf("name = %q, want inventory", m.Name)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	m, _, err := LoadFile(writeModelFile(t, "model.yaml", yamlModel))
	if err != nil {
		t.Fatal(err)
	}
	doc := Encode(m)
	rebuilt, err := doc.Build()
	if err != nil {
		t.Fatalf("Build of encoded document failed: %v", err)
	}
	if rebuilt.Len() != m.Len() {
		t.Errorf("rebuilt model has %d objects, want %d", rebuilt.Len(), m.Len())
	}
}
