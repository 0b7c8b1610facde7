package ddl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

func (r *Renderer) checkSupported(o *ir.Object) error {
	if o.Type == ir.ObjectTypeProcedure && !r.Version.AtLeast(11) {
		return errors.Errorf("procedures require PostgreSQL 11 (target is %d)", r.Version)
	}
	return nil
}

func (r *Renderer) supports(o *ir.Object, attr string) bool {
	return ir.AttributeSupported(o.Type, attr, r.Version)
}

// changedAttributes lists the attribute keys that differ between from and to
// on the target version.
func (r *Renderer) changedAttributes(from, to *ir.Object) map[string]bool {
	changed := map[string]bool{}
	a, b := from.Snapshot(r.Version), to.Snapshot(r.Version)
	for k, v := range a {
		if b[k] != v {
			changed[k] = true
		}
	}
	for k, v := range b {
		if a[k] != v {
			changed[k] = true
		}
	}
	return changed
}

// objectName renders the DDL name of o itself.
func objectName(o *ir.Object) string {
	switch o.Type {
	case ir.ObjectTypeFunction, ir.ObjectTypeProcedure:
		name, args := splitRoutine(o.Name)
		return QualifiedName(o.Schema, name) + args
	case ir.ObjectTypeDatabase, ir.ObjectTypeRole, ir.ObjectTypeTablespace, ir.ObjectTypeSchema, ir.ObjectTypeExtension:
		return QuoteIdentifier(o.Name)
	}
	if o.Type.IsSchemaScoped() {
		return QualifiedName(o.Schema, o.Name)
	}
	return refName(o.Signature())
}

// keyword is the object kind used by COMMENT ON and ALTER ... OWNER TO.
func keyword(o *ir.Object) string {
	switch o.Type {
	case ir.ObjectTypeType:
		if typeKind(o) == "domain" {
			return "DOMAIN"
		}
		return "TYPE"
	default:
		return strings.ToUpper(o.Type.String())
	}
}

func commentValue(comment string) string {
	if comment == "" {
		return "NULL"
	}
	return QuoteLiteral(comment)
}

// comment renders COMMENT ON for o, or nothing for an empty comment on a new
// object.
func (r *Renderer) comment(o *ir.Object, comment string) string {
	value := commentValue(comment)
	switch o.Type {
	case ir.ObjectTypeColumn:
		return fmt.Sprintf("COMMENT ON COLUMN %s IS %s", refName(o.Signature()), value)
	case ir.ObjectTypeConstraint, ir.ObjectTypeTrigger, ir.ObjectTypePolicy:
		return fmt.Sprintf("COMMENT ON %s %s ON %s IS %s", keyword(o), QuoteIdentifier(o.Name), refName(o.Parent), value)
	default:
		return fmt.Sprintf("COMMENT ON %s %s IS %s", keyword(o), objectName(o), value)
	}
}

func (r *Renderer) addComment(s *statements, o *ir.Object) {
	if c := o.Attr(ir.AttrComment); c != "" {
		s.add("%s", r.comment(o, c))
	}
}

func (r *Renderer) ownerAndComment(s *statements, o *ir.Object) {
	if owner := o.Attr(ir.AttrOwner); owner != "" {
		s.add("ALTER %s %s OWNER TO %s", keyword(o), objectName(o), quoteRole(owner))
	}
	r.addComment(s, o)
}

func (r *Renderer) changedOwnerAndComment(s *statements, o *ir.Object, changed map[string]bool) {
	if changed[ir.AttrOwner] && o.Attr(ir.AttrOwner) != "" {
		s.add("ALTER %s %s OWNER TO %s", keyword(o), objectName(o), quoteRole(o.Attr(ir.AttrOwner)))
	}
	if changed[ir.AttrComment] {
		s.add("%s", r.comment(o, o.Attr(ir.AttrComment)))
	}
}

// SortedAttributes returns attribute keys in a stable order, for messages.
func SortedAttributes(changed map[string]bool) []string {
	keys := make([]string, 0, len(changed))
	for k := range changed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
