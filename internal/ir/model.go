package ir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrSealed is returned when a sealed model is modified.
var ErrSealed = errors.New("model is sealed")

// Model is a materialized object graph: either a designed model or the
// reverse-engineered state of a database. A model is built with Add, then
// sealed; a sealed model is immutable and safe for concurrent reads.
type Model struct {
	Name string

	objects map[string]*Object
	sealed  bool

	// populated by Seal
	dependents map[string][]string
	children   map[string][]string
	owned      map[string][]string
}

// NewModel returns an empty, unsealed model.
func NewModel(name string) *Model {
	return &Model{
		Name:    name,
		objects: make(map[string]*Object),
	}
}

// Add inserts an object. A system object with the same signature is replaced;
// any other duplicate is an error.
func (m *Model) Add(o *Object) error {
	if m.sealed {
		return ErrSealed
	}
	if o == nil || o.Type == ObjectTypeNone {
		return errors.New("object type is required")
	}
	sig := o.Signature()
	if existing, ok := m.objects[sig]; ok && !existing.System {
		return errors.Errorf("duplicate object %s", sig)
	}
	m.objects[sig] = o
	return nil
}

// Put inserts or replaces an object.
func (m *Model) Put(o *Object) error {
	if m.sealed {
		return ErrSealed
	}
	m.objects[o.Signature()] = o
	return nil
}

// Remove deletes an object by signature.
func (m *Model) Remove(signature string) error {
	if m.sealed {
		return ErrSealed
	}
	delete(m.objects, signature)
	return nil
}

// Lookup finds an object by signature.
func (m *Model) Lookup(signature string) (*Object, bool) {
	o, ok := m.objects[signature]
	return o, ok
}

// Has reports whether the signature exists in the model.
func (m *Model) Has(signature string) bool {
	_, ok := m.objects[signature]
	return ok
}

// Len returns the number of objects.
func (m *Model) Len() int {
	return len(m.objects)
}

// Database returns the database object, if any.
func (m *Model) Database() *Object {
	return m.objects[ObjectTypeDatabase.String()]
}

// Objects returns every object ordered by type then signature.
func (m *Model) Objects() []*Object {
	objs := make([]*Object, 0, len(m.objects))
	for _, o := range m.objects {
		objs = append(objs, o)
	}
	slices.SortFunc(objs, func(a, b *Object) int {
		return CompareSignatures(a.Signature(), b.Signature())
	})
	return objs
}

// Signatures returns every signature ordered by type then name.
func (m *Model) Signatures() []string {
	sigs := make([]string, 0, len(m.objects))
	for sig := range m.objects {
		sigs = append(sigs, sig)
	}
	slices.SortFunc(sigs, CompareSignatures)
	return sigs
}

// ObjectsOfType returns the objects of one type, ordered by signature.
func (m *Model) ObjectsOfType(t ObjectType) []*Object {
	var objs []*Object
	for _, o := range m.Objects() {
		if o.Type == t {
			objs = append(objs, o)
		}
	}
	return objs
}

// FindByOID resolves an object by its catalog OID.
func (m *Model) FindByOID(t ObjectType, oid uint32) (*Object, bool) {
	if oid == 0 {
		return nil, false
	}
	for _, o := range m.objects {
		if o.Type == t && o.OID == oid {
			return o, true
		}
	}
	return nil, false
}

// Sealed reports whether the model was sealed.
func (m *Model) Sealed() bool {
	return m.sealed
}

// Seal validates the graph and freezes the model. All problems are reported
// together.
func (m *Model) Seal() error {
	if m.sealed {
		return nil
	}
	var result *multierror.Error
	for _, o := range m.Objects() {
		for _, err := range m.validate(o) {
			result = multierror.Append(result, errors.Wrapf(err, "%s", o.Signature()))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	m.children = make(map[string][]string)
	m.owned = make(map[string][]string)
	for sig, o := range m.objects {
		if o.Parent != "" {
			m.children[o.Parent] = append(m.children[o.Parent], sig)
		}
		if o.Type == ObjectTypeSequence && o.Attr(AttrOwnedBy) != "" {
			col := o.Attr(AttrOwnedBy)
			m.owned[col] = append(m.owned[col], sig)
		}
	}
	for _, index := range []map[string][]string{m.children, m.owned} {
		for k := range index {
			slices.SortFunc(index[k], CompareSignatures)
		}
	}

	m.dependents = make(map[string][]string)
	for sig, o := range m.objects {
		for _, dep := range m.Dependencies(o) {
			m.dependents[dep] = append(m.dependents[dep], sig)
		}
	}
	for k := range m.dependents {
		slices.SortFunc(m.dependents[k], CompareSignatures)
	}

	m.sealed = true
	return nil
}

func (m *Model) validate(o *Object) []error {
	var errs []error
	if o.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if o.Type.IsSchemaScoped() {
		if o.Schema == "" {
			errs = append(errs, errors.New("schema is required"))
		} else if !m.Has(Signature(ObjectTypeSchema, o.Schema)) {
			errs = append(errs, errors.Errorf("schema %q not found", o.Schema))
		}
	}
	if o.Type.RequiresParent() {
		parent, ok := m.objects[o.Parent]
		switch {
		case o.Parent == "":
			errs = append(errs, errors.New("parent is required"))
		case !ok:
			errs = append(errs, errors.Errorf("parent %s not found", o.Parent))
		case !validParent(o.Type, parent.Type):
			errs = append(errs, errors.Errorf("%s cannot belong to %s", o.Type, parent.Type))
		}
	}
	for _, dep := range o.DependsOn {
		if !m.Has(dep) {
			errs = append(errs, errors.Errorf("dependency %s not found", dep))
		}
	}
	for _, parent := range o.Inherits {
		if TypeOf(parent) != ObjectTypeTable || !m.Has(parent) {
			errs = append(errs, errors.Errorf("inherited table %s not found", parent))
		}
	}
	if o.PartitionOf != "" && (TypeOf(o.PartitionOf) != ObjectTypeTable || !m.Has(o.PartitionOf)) {
		errs = append(errs, errors.Errorf("partitioned table %s not found", o.PartitionOf))
	}
	switch o.Type {
	case ObjectTypeRelationship:
		for _, key := range []string{AttrSource, AttrTarget} {
			if sig := o.Attr(key); sig == "" || !m.Has(sig) {
				errs = append(errs, errors.Errorf("relationship %s %q not found", key, sig))
			}
		}
		if sig := o.Attr(AttrJunction); sig != "" && !m.Has(sig) {
			errs = append(errs, errors.Errorf("relationship junction %q not found", sig))
		}
	case ObjectTypeSequence:
		if col := o.Attr(AttrOwnedBy); col != "" && (TypeOf(col) != ObjectTypeColumn || !m.Has(col)) {
			errs = append(errs, errors.Errorf("owning column %s not found", col))
		}
	}
	return errs
}

func validParent(child, parent ObjectType) bool {
	switch child {
	case ObjectTypeColumn, ObjectTypeTrigger:
		return parent == ObjectTypeTable || parent == ObjectTypeView
	case ObjectTypeConstraint, ObjectTypeIndex, ObjectTypePolicy:
		return parent == ObjectTypeTable
	case ObjectTypePermission:
		return parent != ObjectTypePermission && parent != ObjectTypeRelationship && parent != ObjectTypeNone
	}
	return true
}

// Dependencies returns the signatures o depends on within this model: explicit
// dependencies, its schema, parent, inherited and partitioned parents,
// relationship endpoints, owned sequences, owner role and tablespace.
func (m *Model) Dependencies(o *Object) []string {
	var deps []string
	add := func(sig string) {
		if sig != "" && sig != o.Signature() && m.Has(sig) {
			deps = append(deps, sig)
		}
	}

	for _, dep := range o.DependsOn {
		add(dep)
	}
	if o.Type.IsSchemaScoped() {
		add(Signature(ObjectTypeSchema, o.Schema))
	}
	if o.Type == ObjectTypeExtension {
		add(Signature(ObjectTypeSchema, o.Attr(AttrSchema)))
	}
	add(o.Parent)
	for _, parent := range o.Inherits {
		add(parent)
	}
	add(o.PartitionOf)

	switch o.Type {
	case ObjectTypeRelationship:
		add(o.Attr(AttrSource))
		add(o.Attr(AttrTarget))
		add(o.Attr(AttrJunction))
	case ObjectTypeColumn:
		for _, seq := range m.OwnedSequences(o.Signature()) {
			add(seq)
		}
	case ObjectTypePermission:
		add(Signature(ObjectTypeRole, o.Name))
	}
	if owner := o.Attr(AttrOwner); owner != "" {
		add(Signature(ObjectTypeRole, owner))
	}
	if ts := o.Attr(AttrTablespace); ts != "" {
		add(Signature(ObjectTypeTablespace, ts))
	}

	slices.SortFunc(deps, CompareSignatures)
	return slices.Compact(deps)
}

// Dependents returns the signatures that directly depend on sig.
func (m *Model) Dependents(sig string) []string {
	if m.sealed {
		return m.dependents[sig]
	}
	var deps []string
	for other, o := range m.objects {
		if slices.Contains(m.Dependencies(o), sig) {
			deps = append(deps, other)
		}
	}
	slices.SortFunc(deps, CompareSignatures)
	return deps
}

// Children returns the signatures of objects owned by sig.
func (m *Model) Children(sig string) []string {
	if m.sealed {
		return m.children[sig]
	}
	var children []string
	for other, o := range m.objects {
		if o.Parent == sig {
			children = append(children, other)
		}
	}
	slices.SortFunc(children, CompareSignatures)
	return children
}

// OwnedSequences returns the sequences owned by the given column.
func (m *Model) OwnedSequences(columnSig string) []string {
	if m.sealed {
		return m.owned[columnSig]
	}
	var seqs []string
	for sig, o := range m.objects {
		if o.Type == ObjectTypeSequence && o.Attr(AttrOwnedBy) == columnSig {
			seqs = append(seqs, sig)
		}
	}
	slices.Sort(seqs)
	return seqs
}

// Relationships returns relationships that have sig as an endpoint.
func (m *Model) Relationships(sig string) []*Object {
	var rels []*Object
	for _, o := range m.Objects() {
		if o.Type != ObjectTypeRelationship {
			continue
		}
		if o.Attr(AttrSource) == sig || o.Attr(AttrTarget) == sig || o.Attr(AttrJunction) == sig {
			rels = append(rels, o)
		}
	}
	return rels
}

// Partitions returns the tables attached as partitions of sig.
func (m *Model) Partitions(sig string) []*Object {
	var parts []*Object
	for _, o := range m.Objects() {
		if o.Type == ObjectTypeTable && o.PartitionOf == sig {
			parts = append(parts, o)
		}
	}
	return parts
}

// Columns returns the columns of a table ordered by position, then name.
func (m *Model) Columns(tableSig string) []*Object {
	var cols []*Object
	for _, sig := range m.Children(tableSig) {
		if o := m.objects[sig]; o.Type == ObjectTypeColumn {
			cols = append(cols, o)
		}
	}
	slices.SortStableFunc(cols, func(a, b *Object) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		return strings.Compare(a.Name, b.Name)
	})
	return cols
}

// Clone returns an unsealed deep copy of the model.
func (m *Model) Clone() *Model {
	c := NewModel(m.Name)
	for sig, o := range m.objects {
		c.objects[sig] = o.Clone()
	}
	return c
}

func (m *Model) String() string {
	return fmt.Sprintf("%s (%d objects)", m.Name, len(m.objects))
}
