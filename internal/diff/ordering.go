package diff

import (
	"slices"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// step is one record to emit.
type step struct {
	d        *decision
	kind     DiffType
	implicit bool
	detach   bool
}

// plan orders the decisions into the emission sequence:
//
//  1. sequence detaches, then recreation drops and early drops, dependents
//     first;
//  2. creates, dependencies first;
//  3. alters, dependencies first;
//  4. remaining drops, dependents first;
//  5. ignored objects.
func (s *session) plan() []step {
	var (
		detaches, earlyDrops, creates, alters, drops, ignores []string
	)
	for _, sig := range sortedKeys(s.decisions) {
		d := s.decisions[sig]
		switch d.action {
		case actCreate:
			creates = append(creates, sig)
		case actRecreate:
			earlyDrops = append(earlyDrops, sig)
			creates = append(creates, sig)
		case actDrop:
			if d.early {
				earlyDrops = append(earlyDrops, sig)
			} else {
				drops = append(drops, sig)
			}
		case actAlter:
			if d.detach {
				detaches = append(detaches, sig)
			} else {
				alters = append(alters, sig)
			}
		case actIgnore:
			if d.detach {
				detaches = append(detaches, sig)
			} else {
				ignores = append(ignores, sig)
			}
		}
	}

	var steps []step
	for _, sig := range detaches {
		steps = append(steps, step{d: s.decisions[sig], kind: DiffAlter, detach: true})
	}
	for _, sig := range s.dropOrder(earlyDrops, "early drops") {
		steps = append(steps, s.dropStep(sig))
	}

	createOrder, broken := topologicalSort(creates, s.createDependencies)
	s.logCycles("creates", broken)
	for _, sig := range createOrder {
		steps = append(steps, step{d: s.decisions[sig], kind: DiffCreate, implicit: s.implicitCreate(sig)})
	}

	alterOrder, broken := topologicalSort(alters, func(sig string) []string {
		return s.source.Dependencies(s.decisions[sig].to)
	})
	s.logCycles("alters", broken)
	for _, sig := range alterOrder {
		steps = append(steps, step{d: s.decisions[sig], kind: DiffAlter})
	}

	for _, sig := range s.dropOrder(drops, "drops") {
		steps = append(steps, s.dropStep(sig))
	}
	for _, sig := range ignores {
		steps = append(steps, step{d: s.decisions[sig], kind: DiffIgnore})
	}
	return steps
}

// dropOrder sorts drops so that dependents in the imported model come first.
func (s *session) dropOrder(sigs []string, what string) []string {
	sorted, broken := topologicalSort(sigs, func(sig string) []string {
		return s.imported.Dependencies(s.decisions[sig].from)
	})
	s.logCycles(what, broken)
	return reverseSlice(sorted)
}

func (s *session) dropStep(sig string) step {
	d := s.decisions[sig]
	implicit := false
	if owner := ownerOf(d.from); owner != "" {
		if od, ok := s.decisions[owner]; ok && od.drops() {
			implicit = true
		}
	}
	return step{d: d, kind: DiffDrop, implicit: implicit}
}

// createModel is the model a decision's create is rendered from.
func (s *session) createModel(d *decision) *ir.Model {
	if d.fromImported {
		return s.imported
	}
	return s.source
}

// createDependencies returns what a create needs first. A table also needs
// what its folded columns need.
func (s *session) createDependencies(sig string) []string {
	d := s.decisions[sig]
	m := s.createModel(d)
	obj := d.createObject()
	deps := m.Dependencies(obj)
	if obj.Type != ir.ObjectTypeTable {
		return deps
	}
	for _, col := range m.Columns(sig) {
		if !s.implicitCreate(col.Signature()) {
			continue
		}
		for _, dep := range m.Dependencies(col) {
			if dep != sig {
				deps = append(deps, dep)
			}
		}
	}
	slices.SortFunc(deps, ir.CompareSignatures)
	return slices.Compact(deps)
}

// implicitCreate reports whether a column is created by its table's CREATE
// TABLE statement.
func (s *session) implicitCreate(sig string) bool {
	d, ok := s.decisions[sig]
	if !ok || !d.creates() || d.objType() != ir.ObjectTypeColumn {
		return false
	}
	parent := d.createObject().Parent
	pd, ok := s.decisions[parent]
	return ok && pd.creates() && pd.objType() == ir.ObjectTypeTable && pd.fromImported == d.fromImported
}

func (s *session) logCycles(what string, broken []string) {
	for _, sig := range broken {
		s.log.Warn("Dependency cycle broken", "phase", what, "object", sig)
	}
}
