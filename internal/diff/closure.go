package diff

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// session holds the state of one run between classification and emission.
type session struct {
	source   *ir.Model
	imported *ir.Model
	opts     Options
	version  ir.PgVersion
	filter   FilterSet
	log      *slog.Logger

	decisions map[string]*decision
}

// get returns the decision for sig, classifying it first when it lies outside
// the candidate set.
func (s *session) get(sig string) *decision {
	if d, ok := s.decisions[sig]; ok {
		return d
	}
	d := s.classify(sig)
	s.decisions[sig] = d
	return d
}

// ownerOf returns the signature of the object whose removal removes o: its
// parent, or the column that owns a sequence.
func ownerOf(o *ir.Object) string {
	if o.Parent != "" {
		return o.Parent
	}
	if o.Type == ir.ObjectTypeSequence {
		return o.Attr(ir.AttrOwnedBy)
	}
	return ""
}

// candidates returns the signature keys to classify. Without a filter every
// object of both models takes part. With a filter, the filtered objects are
// extended by their children, owned sequences, relationship endpoints,
// inheritance parents, partition parents and partitions. A filtered table also
// brings the relationships that touch it.
func (s *session) candidates() ([]string, error) {
	set := map[string]bool{}
	if s.filter.Empty() {
		for _, sig := range s.source.Signatures() {
			set[sig] = true
		}
		for _, sig := range s.imported.Signatures() {
			set[sig] = true
		}
		return sortedKeys(set), nil
	}

	var queue []string
	for _, sig := range s.filter.Signatures {
		if !s.source.Has(sig) && !s.imported.Has(sig) {
			return nil, newError(ConfigurationError, sig, "filtered object is absent from both models")
		}
		queue = append(queue, sig)
	}
	for _, t := range ir.ObjectTypes() {
		for _, oid := range s.filter.OIDs[t] {
			o, ok := s.imported.FindByOID(t, oid)
			if !ok {
				return nil, newError(ConfigurationError, "", "no %s with OID %d in imported model %s", t, oid, s.imported.Name)
			}
			queue = append(queue, o.Signature())
		}
	}

	queue = append(queue, s.relationshipsOf(queue)...)

	for len(queue) > 0 {
		sig := queue[0]
		queue = queue[1:]
		if set[sig] {
			continue
		}
		set[sig] = true
		queue = append(queue, s.closureOf(sig)...)
	}
	return sortedKeys(set), nil
}

// relationshipsOf returns the relationships of both models that have one of
// the filtered tables as an endpoint.
func (s *session) relationshipsOf(filtered []string) []string {
	var rels []string
	for _, sig := range filtered {
		if ir.TypeOf(sig) != ir.ObjectTypeTable {
			continue
		}
		for _, m := range []*ir.Model{s.source, s.imported} {
			for _, rel := range m.Relationships(sig) {
				rels = append(rels, rel.Signature())
			}
		}
	}
	return rels
}

// closureOf lists the objects that must be diffed together with sig.
func (s *session) closureOf(sig string) []string {
	var related []string
	for _, m := range []*ir.Model{s.source, s.imported} {
		o, ok := m.Lookup(sig)
		if !ok {
			continue
		}
		related = append(related, m.Children(sig)...)
		switch o.Type {
		case ir.ObjectTypeColumn:
			related = append(related, m.OwnedSequences(sig)...)
		case ir.ObjectTypeRelationship:
			for _, key := range []string{ir.AttrSource, ir.AttrTarget, ir.AttrJunction} {
				if endpoint := o.Attr(key); endpoint != "" {
					related = append(related, endpoint)
				}
			}
		case ir.ObjectTypeTable:
			related = append(related, o.Inherits...)
			if o.PartitionOf != "" {
				related = append(related, o.PartitionOf)
			}
			for _, part := range m.Partitions(sig) {
				related = append(related, part.Signature())
			}
		}
	}
	return related
}

// resolveOwnership applies the owner and keep rules until they are stable.
//
// An imported-only object whose owner is imported-only shares the owner's
// fate. An object that stays in the database keeps every imported-only object
// it depends on, and an object kept that way keeps its owner too.
func (s *session) resolveOwnership() {
	for changed := true; changed; {
		changed = false
		for _, sig := range sortedKeys(s.decisions) {
			d := s.decisions[sig]
			if d.from == nil || d.to != nil || d.from.System {
				continue
			}
			owner := ownerOf(d.from)
			if owner == "" || s.source.Has(owner) || !s.imported.Has(owner) {
				continue
			}
			od := s.get(owner)
			switch {
			case od.action == actDrop && d.required:
				od.keep(fmt.Sprintf("required by %s", sig))
				od.required = true
				changed = true
			case od.action == actDrop && d.action != actDrop:
				d.action = actDrop
				d.kept = false
				d.reason = ""
				changed = true
			case od.kept && d.action == actDrop:
				d.keep(fmt.Sprintf("%s is kept", owner))
				changed = true
			}
		}

		for _, sig := range sortedKeys(s.decisions) {
			d := s.decisions[sig]
			if d.from == nil || d.from.System || d.action != actIgnore {
				continue
			}
			owner := ownerOf(d.from)
			for _, dep := range s.imported.Dependencies(d.from) {
				if dep == owner {
					continue
				}
				dd := s.get(dep)
				if dd.action == actDrop {
					dd.keep(fmt.Sprintf("required by %s", sig))
					dd.required = true
					changed = true
				}
			}
		}
	}
}

// propagateRecreation extends recreations and early drops to the objects that
// depend on them in the imported model, so that no DROP runs while something
// still references the dropped object.
func (s *session) propagateRecreation() error {
	var queue []string
	for _, sig := range sortedKeys(s.decisions) {
		if s.decisions[sig].action == actRecreate {
			queue = append(queue, sig)
		}
	}

	push := func(sig string) {
		queue = append(queue, sig)
	}

	for len(queue) > 0 {
		sig := queue[0]
		queue = queue[1:]
		d := s.get(sig)
		if !d.drops() || d.from == nil {
			continue
		}

		owned := slices.Clone(s.imported.Children(sig))
		if d.from.Type == ir.ObjectTypeColumn {
			owned = append(owned, s.imported.OwnedSequences(sig)...)
		}
		for _, childSig := range owned {
			c := s.get(childSig)
			if c.from == nil || c.from.System || c.action == actRecreate {
				continue
			}
			switch {
			case c.from.Type == ir.ObjectTypeSequence && c.to != nil:
				if s.opts.ReuseSequences {
					if !c.detach {
						c.detach = true
						s.log.Debug("Reusing owned sequence", "sequence", childSig, "column", sig)
					}
					continue
				}
				c.recreate(fmt.Sprintf("owner %s is recreated", sig))
				push(childSig)
			case c.to != nil:
				c.recreate(fmt.Sprintf("owner %s is recreated", sig))
				push(childSig)
			case c.from.Type == ir.ObjectTypePermission && s.opts.KeepObjectPerms && d.action == actRecreate:
				c.fromImported = true
				c.kept = false
				c.recreate(fmt.Sprintf("granted again after %s is recreated", sig))
				push(childSig)
			case c.action != actDrop || !c.early:
				c.action = actDrop
				c.kept = false
				c.early = true
				push(childSig)
			}
		}

		for _, depSig := range s.imported.Dependents(sig) {
			dd := s.get(depSig)
			if dd.from == nil || dd.from.System || dd.action == actRecreate || slices.Contains(owned, depSig) ||
				dd.objType() == ir.ObjectTypeDatabase {
				continue
			}
			switch {
			case dd.to != nil:
				dd.recreate(fmt.Sprintf("depends on %s", sig))
				push(depSig)
			case dd.action == actDrop:
				if !dd.early {
					dd.early = true
					push(depSig)
				}
			case d.action == actRecreate:
				dd.fromImported = true
				dd.kept = false
				dd.recreate(fmt.Sprintf("depends on %s", sig))
				push(depSig)
			default:
				return newError(DependencyResolutionError, depSig, "kept object depends on dropped %s", sig)
			}
		}
	}
	return nil
}

// checkDependencies verifies that everything a create or alter needs either
// exists in the imported model and stays, or is created by this run.
func (s *session) checkDependencies() error {
	for _, sig := range sortedKeys(s.decisions) {
		d := s.decisions[sig]
		var (
			m   *ir.Model
			obj *ir.Object
		)
		switch {
		case d.creates():
			obj = d.createObject()
			m = s.source
			if d.fromImported {
				m = s.imported
			}
		case d.action == actAlter:
			obj, m = d.to, s.source
		default:
			continue
		}
		for _, dep := range m.Dependencies(obj) {
			if !s.satisfied(dep) {
				return newError(DependencyResolutionError, sig,
					"depends on %s which is neither present in %s nor created", dep, s.imported.Name)
			}
		}
	}
	return nil
}

func (s *session) satisfied(dep string) bool {
	if ir.TypeOf(dep) == ir.ObjectTypeDatabase {
		return true
	}
	if dd, ok := s.decisions[dep]; ok {
		if dd.creates() {
			return true
		}
		if dd.action == actDrop {
			return false
		}
	}
	return s.imported.Has(dep)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, ir.CompareSignatures)
	return keys
}
