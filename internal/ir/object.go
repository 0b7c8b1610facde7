package ir

import (
	"maps"
	"slices"
	"strings"
)

// Attribute keys shared by the loader, the renderer and the comparison rules.
const (
	AttrOwner      = "owner"
	AttrComment    = "comment"
	AttrTablespace = "tablespace"

	AttrConnLimit = "connlimit"
	AttrEncoding  = "encoding"

	AttrLogin       = "login"
	AttrSuperuser   = "superuser"
	AttrCreateDB    = "createdb"
	AttrCreateRole  = "createrole"
	AttrInherit     = "inherit"
	AttrReplication = "replication"
	AttrValidUntil  = "valid_until"

	AttrLocation = "location"

	AttrVersion = "version"
	AttrSchema  = "schema"

	AttrKind       = "kind"
	AttrLabels     = "labels"
	AttrDefinition = "definition"

	AttrDataType  = "data_type"
	AttrIncrement = "increment"
	AttrStart     = "start"
	AttrMinValue  = "min_value"
	AttrMaxValue  = "max_value"
	AttrCache     = "cache"
	AttrCycle     = "cycle"
	AttrOwnedBy   = "owned_by"
	AttrUnlogged  = "unlogged"

	AttrReturns         = "returns"
	AttrLanguage        = "language"
	AttrVolatility      = "volatility"
	AttrSecurityDefiner = "security_definer"

	AttrRLS            = "rls"
	AttrAccessMethod   = "access_method"
	AttrPartitionBy    = "partition_by"
	AttrPartitionBound = "partition_bound"

	AttrType        = "type"
	AttrNotNull     = "not_null"
	AttrDefault     = "default"
	AttrCollation   = "collation"
	AttrCompression = "compression"
	AttrGenerated   = "generated"

	AttrDeferrable = "deferrable"

	AttrMethod           = "method"
	AttrColumns          = "columns"
	AttrUnique           = "unique"
	AttrWhere            = "where"
	AttrNullsNotDistinct = "nulls_not_distinct"

	AttrSecurityInvoker = "security_invoker"

	AttrTiming   = "timing"
	AttrEvents   = "events"
	AttrLevel    = "level"
	AttrFunction = "function"
	AttrWhen     = "when"

	AttrCommand    = "command"
	AttrPermissive = "permissive"
	AttrRoles      = "roles"
	AttrUsing      = "using"
	AttrWithCheck  = "with_check"

	AttrSource   = "source"
	AttrTarget   = "target"
	AttrJunction = "junction"

	AttrPrivileges  = "privileges"
	AttrGrantOption = "grant_option"
)

// Relationship kinds.
const (
	RelationshipForeignKey  = "fk"
	RelationshipOneToOne    = "1-1"
	RelationshipOneToMany   = "1-n"
	RelationshipManyToMany  = "n-n"
	RelationshipInheritance = "inheritance"
	RelationshipPartition   = "partition"
)

// attributeMinVersion lists attributes that only exist from a given server version.
var attributeMinVersion = map[ObjectType]map[string]PgVersion{
	ObjectTypeTable: {
		AttrAccessMethod: 12,
	},
	ObjectTypeColumn: {
		AttrGenerated:   12,
		AttrCompression: 14,
	},
	ObjectTypeView: {
		AttrSecurityInvoker: 15,
	},
	ObjectTypeIndex: {
		AttrNullsNotDistinct: 15,
	},
	ObjectTypeSequence: {
		AttrUnlogged: 15,
	},
}

// AttributeSupported reports whether the attribute exists for the object type
// on the given server version.
func AttributeSupported(t ObjectType, attr string, v PgVersion) bool {
	if gates, ok := attributeMinVersion[t]; ok {
		if since, ok := gates[attr]; ok {
			return v.AtLeast(since)
		}
	}
	return true
}

// Object is a single schema object. Objects belong to one Model and are
// treated as read-only once the model is sealed.
type Object struct {
	Type   ObjectType
	Schema string
	Name   string

	// Parent is the signature of the owning object for columns, constraints,
	// indexes, triggers, policies and permissions.
	Parent string

	OID      uint32
	System   bool
	Position int

	Attributes map[string]string

	// DependsOn holds explicit dependency signatures.
	DependsOn []string

	// Inherits holds the signatures of the parent tables.
	Inherits []string

	// PartitionOf is the signature of the partitioned parent table.
	PartitionOf string
}

// Attr returns an attribute value or the empty string.
func (o *Object) Attr(key string) string {
	if o.Attributes == nil {
		return ""
	}
	return o.Attributes[key]
}

// BoolAttr reports whether an attribute is set to a true value.
func (o *Object) BoolAttr(key string) bool {
	switch strings.ToLower(o.Attr(key)) {
	case "true", "yes", "on", "1":
		return true
	}
	return false
}

// QualifiedName returns the name used in DDL and in the signature.
func (o *Object) QualifiedName() string {
	switch {
	case o.Type.IsTableChild():
		return QualifiedNameOf(o.Parent) + "." + o.Name
	case o.Type.IsSchemaScoped():
		return o.Schema + "." + o.Name
	default:
		return o.Name
	}
}

// Signature is the identity used to match an object across models.
func (o *Object) Signature() string {
	switch o.Type {
	case ObjectTypeDatabase:
		return ObjectTypeDatabase.String()
	case ObjectTypePermission:
		return ObjectTypePermission.String() + ":" + o.Parent + "@" + o.Name
	}
	return Signature(o.Type, o.QualifiedName())
}

// Signature builds a signature from a type and a qualified name.
func Signature(t ObjectType, qualifiedName string) string {
	return t.String() + ":" + qualifiedName
}

// QualifiedNameOf returns the qualified name part of a signature.
func QualifiedNameOf(signature string) string {
	if _, name, ok := strings.Cut(signature, ":"); ok {
		return name
	}
	return signature
}

// TypeOf returns the object type encoded in a signature.
func TypeOf(signature string) ObjectType {
	name, _, _ := strings.Cut(signature, ":")
	t, err := ParseObjectType(name)
	if err != nil {
		return ObjectTypeNone
	}
	return t
}

// Snapshot returns the attributes that exist on the given server version.
// Unsupported attributes never take part in a comparison.
func (o *Object) Snapshot(v PgVersion) map[string]string {
	snap := make(map[string]string, len(o.Attributes))
	for k, val := range o.Attributes {
		if !AttributeSupported(o.Type, k, v) {
			continue
		}
		snap[k] = val
	}
	return snap
}

// StructuralDependencies returns explicit dependencies plus inheritance and
// partition parents, sorted. Used when comparing two versions of an object.
func (o *Object) StructuralDependencies() []string {
	deps := make([]string, 0, len(o.DependsOn)+len(o.Inherits)+1)
	deps = append(deps, o.DependsOn...)
	deps = append(deps, o.Inherits...)
	if o.PartitionOf != "" {
		deps = append(deps, o.PartitionOf)
	}
	slices.Sort(deps)
	return slices.Compact(deps)
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	c := *o
	c.Attributes = maps.Clone(o.Attributes)
	c.DependsOn = slices.Clone(o.DependsOn)
	c.Inherits = slices.Clone(o.Inherits)
	return &c
}

// Less orders objects by type then signature.
func Less(a, b *Object) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.Signature() < b.Signature()
}

// CompareSignatures orders signatures by their type then lexically.
func CompareSignatures(a, b string) int {
	ta, tb := TypeOf(a), TypeOf(b)
	if ta != tb {
		return int(ta) - int(tb)
	}
	return strings.Compare(a, b)
}
