package ir

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a model. Include lists other documents,
// relative to this one, whose objects belong to the same model.
type Document struct {
	Name      string           `yaml:"name" toml:"name" json:"name"`
	PgVersion string           `yaml:"pg_version,omitempty" toml:"pg_version,omitempty" json:"pg_version,omitempty"`
	Include   []string         `yaml:"include,omitempty" toml:"include,omitempty" json:"include,omitempty"`
	Objects   []ObjectDocument `yaml:"objects" toml:"objects" json:"objects"`
}

// ObjectDocument is the on-disk form of one object.
type ObjectDocument struct {
	Type        string            `yaml:"type" toml:"type" json:"type"`
	Schema      string            `yaml:"schema,omitempty" toml:"schema,omitempty" json:"schema,omitempty"`
	Name        string            `yaml:"name" toml:"name" json:"name"`
	Parent      string            `yaml:"parent,omitempty" toml:"parent,omitempty" json:"parent,omitempty"`
	OID         uint32            `yaml:"oid,omitempty" toml:"oid,omitempty" json:"oid,omitempty"`
	System      bool              `yaml:"system,omitempty" toml:"system,omitempty" json:"system,omitempty"`
	Position    int               `yaml:"position,omitempty" toml:"position,omitempty" json:"position,omitempty"`
	Attributes  map[string]string `yaml:"attributes,omitempty" toml:"attributes,omitempty" json:"attributes,omitempty"`
	DependsOn   []string          `yaml:"depends_on,omitempty" toml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Inherits    []string          `yaml:"inherits,omitempty" toml:"inherits,omitempty" json:"inherits,omitempty"`
	PartitionOf string            `yaml:"partition_of,omitempty" toml:"partition_of,omitempty" json:"partition_of,omitempty"`
}

// Format identifies a model document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.Errorf("unsupported model file extension %q", filepath.Ext(path))
}

// LoadFile reads, builds and seals a model from a single document file.
// Documents listing includes are loaded with the include package.
func LoadFile(path string) (*Model, *Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read model file %s", path)
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to decode model file %s", path)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	m, err := doc.Build()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid model file %s", path)
	}
	return m, doc, nil
}

// Decode parses a document in the given format.
func Decode(data []byte, format Format) (*Document, error) {
	doc := &Document{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, err
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported format %q", format)
	}
	return doc, nil
}

// Build creates the system objects, adds the document objects on top and
// seals the model.
func (d *Document) Build() (*Model, error) {
	if len(d.Include) > 0 {
		return nil, errors.Errorf("document %s has unresolved includes %v", d.Name, d.Include)
	}
	m := NewModel(d.Name)
	if err := AddSystemObjects(m, d.Name); err != nil {
		return nil, err
	}
	for i, od := range d.Objects {
		t, err := ParseObjectType(od.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "object %d", i)
		}
		o := &Object{
			Type:        t,
			Schema:      od.Schema,
			Name:        od.Name,
			Parent:      od.Parent,
			OID:         od.OID,
			System:      od.System,
			Position:    od.Position,
			Attributes:  od.Attributes,
			DependsOn:   od.DependsOn,
			Inherits:    od.Inherits,
			PartitionOf: od.PartitionOf,
		}
		if err := m.Add(o); err != nil {
			return nil, errors.Wrapf(err, "object %d", i)
		}
	}
	if err := m.Seal(); err != nil {
		return nil, err
	}
	return m, nil
}

// AddSystemObjects adds the objects every PostgreSQL cluster provides. They
// are marked System and may be overridden by the caller.
func AddSystemObjects(m *Model, dbName string) error {
	objs := []*Object{
		{Type: ObjectTypeDatabase, Name: dbName, System: true},
		{Type: ObjectTypeRole, Name: "postgres", System: true,
			Attributes: map[string]string{AttrSuperuser: "true", AttrLogin: "true"}},
		{Type: ObjectTypeTablespace, Name: "pg_default", System: true},
		{Type: ObjectTypeTablespace, Name: "pg_global", System: true},
		{Type: ObjectTypeSchema, Name: "pg_catalog", System: true},
		{Type: ObjectTypeSchema, Name: "public", System: true},
	}
	for _, o := range objs {
		if err := m.Add(o); err != nil {
			return err
		}
	}
	return nil
}

// Encode renders a model back into a document, omitting untouched system
// objects.
func Encode(m *Model) *Document {
	doc := &Document{Name: m.Name}
	for _, o := range m.Objects() {
		if o.System && o.Type != ObjectTypeDatabase {
			continue
		}
		doc.Objects = append(doc.Objects, ObjectDocument{
			Type:        o.Type.String(),
			Schema:      o.Schema,
			Name:        o.Name,
			Parent:      o.Parent,
			OID:         o.OID,
			System:      o.System,
			Position:    o.Position,
			Attributes:  o.Attributes,
			DependsOn:   o.DependsOn,
			Inherits:    o.Inherits,
			PartitionOf: o.PartitionOf,
		})
	}
	return doc
}
