package diff

import (
	"fmt"
	"strings"

	"github.com/pgschema/pgmodeldiff/internal/ddl"
	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// render turns a step into a record with its message and DDL.
func (s *session) render(r *ddl.Renderer, validate bool, st step) (ObjectsDiffInfo, error) {
	d := st.d
	obj := d.subject()
	if st.kind == DiffDrop {
		obj = d.from
	} else if st.kind == DiffCreate {
		obj = d.createObject()
	}

	info := ObjectsDiffInfo{
		Type:       st.kind,
		Object:     obj,
		Signature:  d.sig,
		ObjectType: obj.Type.String(),
		Implicit:   st.implicit,
	}
	if st.kind == DiffAlter {
		info.Old = d.from
	}
	name := describe(obj)

	var (
		sql string
		err error
	)
	switch {
	case st.kind == DiffIgnore:
		info.Message = fmt.Sprintf("%s ignored: %s", name, d.reason)
		return info, nil
	case st.implicit && st.kind == DiffCreate:
		info.Message = fmt.Sprintf("%s will be created with %s", name, describeSig(obj.Parent))
		return info, nil
	case st.implicit && st.kind == DiffDrop:
		info.Message = fmt.Sprintf("%s will be dropped with %s", name, describeSig(ownerOf(obj)))
		return info, nil
	case st.detach:
		info.Message = fmt.Sprintf("%s will be detached from %s and reused", name, describeSig(ownerOf(d.from)))
		sql, err = s.renderDetach(r, d)
	case st.kind == DiffCreate:
		info.Message = fmt.Sprintf("%s will be created", name)
		if d.action == actRecreate {
			info.Message = fmt.Sprintf("%s will be created again (%s)", name, d.reason)
		}
		sql, err = r.Create(s.createModel(d), obj)
	case st.kind == DiffAlter:
		info.Message = fmt.Sprintf("%s will be altered (%s)", name, strings.Join(d.changed, ", "))
		sql, err = r.Alter(s.source, d.from, d.to)
	case st.kind == DiffDrop:
		info.Message = fmt.Sprintf("%s will be dropped", name)
		if d.action == actRecreate {
			info.Message = fmt.Sprintf("%s will be dropped to be recreated (%s)", name, d.reason)
		}
		sql, err = r.Drop(s.imported, obj)
	}
	if err != nil {
		return info, wrapError(EmissionError, d.sig, err)
	}
	if validate {
		if err := ddl.Validate(sql); err != nil {
			return info, wrapError(EmissionError, d.sig, err)
		}
	}
	info.SQL = sql
	return info, nil
}

// renderDetach releases a sequence from the column that is about to be
// dropped and applies its other changes. The owning column is attached again
// by its own create when it is recreated.
func (s *session) renderDetach(r *ddl.Renderer, d *decision) (string, error) {
	from := d.from.Clone()
	delete(from.Attributes, ir.AttrOwnedBy)
	to := d.to.Clone()
	if col := to.Attr(ir.AttrOwnedBy); col != "" {
		if cd, ok := s.decisions[col]; ok && cd.creates() {
			delete(to.Attributes, ir.AttrOwnedBy)
		}
	}
	alter, err := r.Alter(s.source, from, to)
	if err != nil {
		return "", err
	}
	sql := r.DetachSequence(d.from)
	if alter != "" {
		sql += "\n" + alter
	}
	return sql, nil
}

func describe(o *ir.Object) string {
	if o.Type == ir.ObjectTypeDatabase {
		return "database " + o.Name
	}
	return describeSig(o.Signature())
}

// describeSig renders "type name" for messages.
func describeSig(sig string) string {
	t := ir.TypeOf(sig)
	if t == ir.ObjectTypeDatabase {
		return "database"
	}
	return fmt.Sprintf("%s %s", t, ir.QualifiedNameOf(sig))
}
