package ir

import (
	"fmt"
	"strings"
)

// ObjectType identifies the kind of a database object. The declaration order
// is also the tie-break order used when sorting objects of equal rank.
type ObjectType int

const (
	ObjectTypeNone ObjectType = iota
	ObjectTypeDatabase
	ObjectTypeRole
	ObjectTypeTablespace
	ObjectTypeSchema
	ObjectTypeExtension
	ObjectTypeType
	ObjectTypeSequence
	ObjectTypeFunction
	ObjectTypeProcedure
	ObjectTypeTable
	ObjectTypeColumn
	ObjectTypeConstraint
	ObjectTypeIndex
	ObjectTypeView
	ObjectTypeTrigger
	ObjectTypePolicy
	ObjectTypeRelationship
	ObjectTypePermission
)

var objectTypeNames = map[ObjectType]string{
	ObjectTypeNone:         "none",
	ObjectTypeDatabase:     "database",
	ObjectTypeRole:         "role",
	ObjectTypeTablespace:   "tablespace",
	ObjectTypeSchema:       "schema",
	ObjectTypeExtension:    "extension",
	ObjectTypeType:         "type",
	ObjectTypeSequence:     "sequence",
	ObjectTypeFunction:     "function",
	ObjectTypeProcedure:    "procedure",
	ObjectTypeTable:        "table",
	ObjectTypeColumn:       "column",
	ObjectTypeConstraint:   "constraint",
	ObjectTypeIndex:        "index",
	ObjectTypeView:         "view",
	ObjectTypeTrigger:      "trigger",
	ObjectTypePolicy:       "policy",
	ObjectTypeRelationship: "relationship",
	ObjectTypePermission:   "permission",
}

// ObjectTypes returns every concrete object type in declaration order.
func ObjectTypes() []ObjectType {
	types := make([]ObjectType, 0, len(objectTypeNames)-1)
	for t := ObjectTypeDatabase; t <= ObjectTypePermission; t++ {
		types = append(types, t)
	}
	return types
}

func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("objecttype(%d)", int(t))
}

// ParseObjectType resolves a type name such as "table" or "tables".
func ParseObjectType(name string) (ObjectType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range objectTypeNames {
		if t == ObjectTypeNone {
			continue
		}
		if name == n || name == plural(n) {
			return t, nil
		}
	}
	return ObjectTypeNone, fmt.Errorf("unknown object type %q", name)
}

// Plural returns the display name used for grouped output, e.g. "indexes".
func (t ObjectType) Plural() string {
	return plural(t.String())
}

func plural(name string) string {
	switch {
	case strings.HasSuffix(name, "x"):
		return name + "es"
	case strings.HasSuffix(name, "cy"):
		return strings.TrimSuffix(name, "y") + "ies"
	default:
		return name + "s"
	}
}

// IsClusterLevel reports whether objects of this type live outside any database.
func (t ObjectType) IsClusterLevel() bool {
	return t == ObjectTypeRole || t == ObjectTypeTablespace
}

// IsSchemaScoped reports whether the object name is qualified by a schema.
func (t ObjectType) IsSchemaScoped() bool {
	switch t {
	case ObjectTypeType, ObjectTypeSequence, ObjectTypeFunction, ObjectTypeProcedure,
		ObjectTypeTable, ObjectTypeIndex, ObjectTypeView:
		return true
	}
	return false
}

// IsTableChild reports whether the object is named relative to its parent table.
func (t ObjectType) IsTableChild() bool {
	switch t {
	case ObjectTypeColumn, ObjectTypeConstraint, ObjectTypeTrigger, ObjectTypePolicy:
		return true
	}
	return false
}

// RequiresParent reports whether objects of this type must name a parent object.
func (t ObjectType) RequiresParent() bool {
	return t.IsTableChild() || t == ObjectTypeIndex || t == ObjectTypePermission
}
