package ddl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

var roleFlags = []struct {
	attr, on, off string
}{
	{ir.AttrSuperuser, "SUPERUSER", "NOSUPERUSER"},
	{ir.AttrCreateDB, "CREATEDB", "NOCREATEDB"},
	{ir.AttrCreateRole, "CREATEROLE", "NOCREATEROLE"},
	{ir.AttrInherit, "INHERIT", "NOINHERIT"},
	{ir.AttrLogin, "LOGIN", "NOLOGIN"},
	{ir.AttrReplication, "REPLICATION", "NOREPLICATION"},
}

// roleOptions renders the WITH clause of CREATE/ALTER ROLE. With all set,
// every flag is spelled out so the result fully describes the role.
func roleOptions(o *ir.Object, all bool) string {
	var opts []string
	for _, f := range roleFlags {
		_, set := o.Attributes[f.attr]
		switch {
		case o.BoolAttr(f.attr):
			opts = append(opts, f.on)
		case set || all:
			if f.attr == ir.AttrInherit && !set {
				opts = append(opts, f.on)
				continue
			}
			opts = append(opts, f.off)
		}
	}
	if limit := o.Attr(ir.AttrConnLimit); limit != "" {
		opts = append(opts, "CONNECTION LIMIT "+limit)
	} else if all {
		opts = append(opts, "CONNECTION LIMIT -1")
	}
	if until := o.Attr(ir.AttrValidUntil); until != "" {
		opts = append(opts, "VALID UNTIL "+QuoteLiteral(until))
	}
	if len(opts) == 0 {
		return ""
	}
	return " WITH " + strings.Join(opts, " ")
}

func typeKind(o *ir.Object) string {
	if kind := strings.ToLower(o.Attr(ir.AttrKind)); kind != "" {
		return kind
	}
	if o.Attr(ir.AttrLabels) != "" {
		return "enum"
	}
	return "composite"
}

func createType(o *ir.Object) (string, error) {
	name := objectName(o)
	def := o.Attr(ir.AttrDefinition)
	switch typeKind(o) {
	case "enum":
		var labels []string
		for _, l := range splitList(o.Attr(ir.AttrLabels)) {
			labels = append(labels, QuoteLiteral(l))
		}
		return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", name, strings.Join(labels, ", ")), nil
	case "composite":
		return fmt.Sprintf("CREATE TYPE %s AS (%s)", name, def), nil
	case "domain":
		if def == "" {
			return "", errors.Errorf("domain %s has no base type", o.Signature())
		}
		return fmt.Sprintf("CREATE DOMAIN %s AS %s", name, def), nil
	case "range":
		if def == "" {
			return "", errors.Errorf("range type %s has no subtype", o.Signature())
		}
		return fmt.Sprintf("CREATE TYPE %s AS RANGE (subtype = %s)", name, def), nil
	}
	return "", errors.Errorf("unknown type kind %q for %s", o.Attr(ir.AttrKind), o.Signature())
}

// sequenceOptions renders sequence options. With a changed set only the
// changed options are rendered.
func sequenceOptions(o *ir.Object, changed map[string]bool) string {
	include := func(attr string) bool {
		return changed == nil && o.Attr(attr) != "" || changed[attr]
	}
	var opts []string
	if include(ir.AttrDataType) && o.Attr(ir.AttrDataType) != "" {
		opts = append(opts, "AS "+o.Attr(ir.AttrDataType))
	}
	if include(ir.AttrIncrement) && o.Attr(ir.AttrIncrement) != "" {
		opts = append(opts, "INCREMENT BY "+o.Attr(ir.AttrIncrement))
	}
	if include(ir.AttrMinValue) {
		if v := o.Attr(ir.AttrMinValue); v != "" {
			opts = append(opts, "MINVALUE "+v)
		} else {
			opts = append(opts, "NO MINVALUE")
		}
	}
	if include(ir.AttrMaxValue) {
		if v := o.Attr(ir.AttrMaxValue); v != "" {
			opts = append(opts, "MAXVALUE "+v)
		} else {
			opts = append(opts, "NO MAXVALUE")
		}
	}
	if include(ir.AttrStart) && o.Attr(ir.AttrStart) != "" {
		opts = append(opts, "START WITH "+o.Attr(ir.AttrStart))
	}
	if include(ir.AttrCache) && o.Attr(ir.AttrCache) != "" {
		opts = append(opts, "CACHE "+o.Attr(ir.AttrCache))
	}
	if include(ir.AttrCycle) {
		if o.BoolAttr(ir.AttrCycle) {
			opts = append(opts, "CYCLE")
		} else if changed != nil {
			opts = append(opts, "NO CYCLE")
		}
	}
	if len(opts) == 0 {
		return ""
	}
	return " " + strings.Join(opts, " ")
}

func ownedBy(seq *ir.Object, columnSig string) string {
	owner := "NONE"
	if columnSig != "" {
		owner = refName(columnSig)
	}
	return fmt.Sprintf("ALTER SEQUENCE %s OWNED BY %s", objectName(seq), owner)
}

// attachOwnedSequences re-links sequences of m that are owned by column.
func (r *Renderer) attachOwnedSequences(s *statements, m *ir.Model, column *ir.Object) {
	if m == nil {
		return
	}
	for _, sig := range m.OwnedSequences(column.Signature()) {
		if seq, ok := m.Lookup(sig); ok {
			s.add("%s", ownedBy(seq, column.Signature()))
		}
	}
}
