package diff

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

type action int

const (
	actIgnore action = iota
	actCreate
	actAlter
	actDrop
	actRecreate
)

func (a action) String() string {
	switch a {
	case actCreate:
		return "create"
	case actAlter:
		return "alter"
	case actDrop:
		return "drop"
	case actRecreate:
		return "recreate"
	}
	return "ignore"
}

// decision is the classification of one signature key. A recreation is one
// decision emitted as a drop record and a create record.
type decision struct {
	sig    string
	action action

	from *ir.Object // imported definition
	to   *ir.Object // source definition

	reason  string
	changed []string

	kept         bool // imported-only object kept by policy
	required     bool // kept because an object that stays depends on it
	early        bool // dropped before creates because a dependency is recreated
	fromImported bool // recreated from its imported definition
	detach       bool // owned sequence released before its column is dropped
}

func (d *decision) objType() ir.ObjectType {
	if d.to != nil {
		return d.to.Type
	}
	if d.from != nil {
		return d.from.Type
	}
	return ir.TypeOf(d.sig)
}

// subject returns the object a record talks about.
func (d *decision) subject() *ir.Object {
	if d.to != nil {
		return d.to
	}
	return d.from
}

// createObject returns the definition a create renders.
func (d *decision) createObject() *ir.Object {
	if d.fromImported {
		return d.from
	}
	return d.to
}

func (d *decision) creates() bool {
	return d.action == actCreate || d.action == actRecreate
}

func (d *decision) drops() bool {
	return d.action == actDrop || d.action == actRecreate
}

func (d *decision) ignore(reason string) {
	d.action = actIgnore
	d.reason = reason
}

func (d *decision) keep(reason string) {
	d.action = actIgnore
	d.kept = true
	d.early = false
	d.reason = reason
}

func (d *decision) recreate(reason string) {
	d.action = actRecreate
	d.reason = reason
}

// alterableAttributes lists, per object type, the attributes a change of which
// can be applied in place. "*" means every attribute.
var alterableAttributes = map[ir.ObjectType][]string{
	ir.ObjectTypeDatabase:   {"name", ir.AttrOwner, ir.AttrComment, ir.AttrConnLimit},
	ir.ObjectTypeRole:       {"*"},
	ir.ObjectTypeTablespace: {ir.AttrOwner, ir.AttrComment},
	ir.ObjectTypeSchema:     {ir.AttrOwner, ir.AttrComment},
	ir.ObjectTypeExtension:  {ir.AttrVersion, ir.AttrSchema, ir.AttrComment},
	ir.ObjectTypeType:       {ir.AttrOwner, ir.AttrComment},
	ir.ObjectTypeSequence:   {"*"},
	ir.ObjectTypeFunction: {ir.AttrDefinition, ir.AttrLanguage, ir.AttrVolatility, ir.AttrSecurityDefiner,
		ir.AttrOwner, ir.AttrComment},
	ir.ObjectTypeProcedure: {ir.AttrDefinition, ir.AttrLanguage, ir.AttrSecurityDefiner,
		ir.AttrOwner, ir.AttrComment},
	ir.ObjectTypeTable: {ir.AttrOwner, ir.AttrComment, ir.AttrTablespace, ir.AttrUnlogged, ir.AttrRLS,
		ir.AttrAccessMethod},
	ir.ObjectTypeColumn: {ir.AttrType, ir.AttrNotNull, ir.AttrDefault, ir.AttrComment, ir.AttrCompression,
		ir.AttrCollation},
	ir.ObjectTypeConstraint: {ir.AttrComment},
	ir.ObjectTypeIndex:      {ir.AttrComment, ir.AttrTablespace},
	ir.ObjectTypeView:       {ir.AttrOwner, ir.AttrComment, ir.AttrSecurityInvoker},
	ir.ObjectTypeTrigger:    {ir.AttrComment},
	ir.ObjectTypePolicy:     {ir.AttrRoles, ir.AttrUsing, ir.AttrWithCheck},
	ir.ObjectTypePermission: {ir.AttrPrivileges, ir.AttrGrantOption},
}

// Explicit dependency changes are alterable for these types only.
var dependencyAlterable = map[ir.ObjectType]bool{
	ir.ObjectTypeFunction:  true,
	ir.ObjectTypeProcedure: true,
	ir.ObjectTypeColumn:    true,
	ir.ObjectTypeTable:     true,
	ir.ObjectTypeSequence:  true,
}

func isAlterable(t ir.ObjectType, attr string) bool {
	attrs := alterableAttributes[t]
	return slices.Contains(attrs, "*") || slices.Contains(attrs, attr)
}

// acceptsAlter reports whether the type has an in-place alteration for its
// definition at all. RecreateUnmodifiable keeps forced recreation for the
// types that do not.
func acceptsAlter(t ir.ObjectType) bool {
	switch t {
	case ir.ObjectTypeConstraint, ir.ObjectTypeIndex, ir.ObjectTypeTrigger, ir.ObjectTypeRelationship:
		return false
	}
	return true
}

// changedAttributes lists the attribute keys that differ on the target version.
func changedAttributes(from, to *ir.Object, v ir.PgVersion) []string {
	a, b := from.Snapshot(v), to.Snapshot(v)
	var changed []string
	for k, val := range a {
		if b[k] != val {
			changed = append(changed, k)
		}
	}
	for k, val := range b {
		if _, ok := a[k]; !ok && val != "" {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	return slices.Compact(changed)
}

// classify decides what happens to one signature key, looking at that key
// alone. Parent, keep and recreation rules are applied afterwards.
func (s *session) classify(sig string) *decision {
	d := &decision{sig: sig}
	if o, ok := s.imported.Lookup(sig); ok {
		d.from = o
	}
	if o, ok := s.source.Lookup(sig); ok {
		d.to = o
	}

	switch {
	case d.from == nil && d.to == nil:
		d.ignore("unknown object")
	case ir.TypeOf(sig) == ir.ObjectTypeDatabase:
		s.classifyDatabase(d)
	case d.from == nil:
		if d.to.System {
			d.ignore("system object")
		} else {
			d.action = actCreate
		}
	case d.to == nil:
		s.classifyMissing(d)
	default:
		s.classifyChanged(d)
	}
	return d
}

func (s *session) classifyDatabase(d *decision) {
	if d.from == nil || d.to == nil {
		d.ignore("databases are never created or dropped")
		return
	}
	to := d.to.Clone()
	if s.opts.PreserveDbName {
		to.Name = d.from.Name
	}
	var changed []string
	if to.Name != d.from.Name {
		changed = append(changed, "name")
	}
	for _, attr := range changedAttributes(d.from, to, s.version) {
		if isAlterable(ir.ObjectTypeDatabase, attr) {
			changed = append(changed, attr)
		}
	}
	if len(changed) == 0 {
		d.ignore("no differences")
		return
	}
	d.to = to
	d.changed = changed
	d.action = actAlter
}

func (s *session) classifyMissing(d *decision) {
	from := d.from
	switch {
	case from.System:
		d.ignore("system object")
	case from.Type.IsClusterLevel() && s.opts.KeepClusterObjs:
		d.keep("cluster object kept")
	case from.Type == ir.ObjectTypePermission && s.opts.KeepObjectPerms:
		d.keep("permission kept")
	case from.Type == ir.ObjectTypeColumn || from.Type == ir.ObjectTypeConstraint:
		if s.opts.dropsMissingColumns() {
			d.action = actDrop
		} else {
			d.keep("missing object kept")
		}
	case s.opts.DontDropMissingObjs:
		d.keep("missing object kept")
	default:
		d.action = actDrop
	}
}

func (s *session) classifyChanged(d *decision) {
	from, to := d.from, d.to
	t := to.Type
	d.changed = changedAttributes(from, to, s.version)

	var blockers []string
	for _, attr := range d.changed {
		if !isAlterable(t, attr) {
			blockers = append(blockers, attr)
		}
	}
	if from.Parent != to.Parent {
		d.changed = append(d.changed, "parent")
		blockers = append(blockers, "parent")
	}
	if !slices.Equal(from.Inherits, to.Inherits) || from.PartitionOf != to.PartitionOf {
		d.changed = append(d.changed, "inheritance")
		blockers = append(blockers, "inheritance")
	} else if !slices.Equal(from.StructuralDependencies(), to.StructuralDependencies()) {
		d.changed = append(d.changed, "dependencies")
		if !dependencyAlterable[t] {
			blockers = append(blockers, "dependencies")
		}
	}

	if len(d.changed) == 0 {
		d.ignore("no differences")
		return
	}

	if from.System || to.System {
		if len(blockers) > 0 {
			d.ignore(fmt.Sprintf("system object cannot be recreated (%s)", strings.Join(blockers, ", ")))
			return
		}
		d.action = actAlter
		return
	}

	switch {
	case len(blockers) > 0:
		d.recreate(fmt.Sprintf("cannot alter %s", strings.Join(blockers, ", ")))
	case s.opts.forcesRecreation(acceptsAlter(t)) && !t.IsClusterLevel():
		d.recreate("forced recreation")
	default:
		d.action = actAlter
	}
}
