package ddl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

func policyClauses(o *ir.Object, b *strings.Builder) {
	if roles := o.Attr(ir.AttrRoles); roles != "" {
		b.WriteString(" TO " + quoteRoleList(roles))
	}
	if using := o.Attr(ir.AttrUsing); using != "" {
		b.WriteString(" USING (" + using + ")")
	}
	if check := o.Attr(ir.AttrWithCheck); check != "" {
		b.WriteString(" WITH CHECK (" + check + ")")
	}
}

func createPolicy(o *ir.Object) string {
	var b strings.Builder
	b.WriteString("CREATE POLICY " + QuoteIdentifier(o.Name) + " ON " + refName(o.Parent))
	if p := o.Attr(ir.AttrPermissive); p != "" && !o.BoolAttr(ir.AttrPermissive) {
		b.WriteString(" AS RESTRICTIVE")
	}
	if cmd := o.Attr(ir.AttrCommand); cmd != "" {
		b.WriteString(" FOR " + strings.ToUpper(cmd))
	}
	policyClauses(o, &b)
	return b.String()
}

func alterPolicy(o *ir.Object) string {
	var b strings.Builder
	b.WriteString("ALTER POLICY " + QuoteIdentifier(o.Name) + " ON " + refName(o.Parent))
	policyClauses(o, &b)
	return b.String()
}

// grantTarget renders "KIND name" for the object a permission applies to, or
// "TABLE t" plus the column list for column permissions.
func grantTarget(m *ir.Model, o *ir.Object) (grantOn, error) {
	t := ir.TypeOf(o.Parent)
	switch t {
	case ir.ObjectTypeTable, ir.ObjectTypeView:
		return grantOn{kind: "TABLE", name: refName(o.Parent)}, nil
	case ir.ObjectTypeColumn:
		schema, rest := splitQualified(ir.QualifiedNameOf(o.Parent))
		table, column := splitQualified(rest)
		tableSig := ir.Signature(ir.ObjectTypeTable, schema+"."+table)
		if m != nil {
			if col, ok := m.Lookup(o.Parent); ok {
				tableSig, column = col.Parent, col.Name
			}
		}
		return grantOn{kind: "TABLE", name: refName(tableSig), columns: QuoteIdentifier(column)}, nil
	case ir.ObjectTypeSequence, ir.ObjectTypeFunction, ir.ObjectTypeProcedure, ir.ObjectTypeSchema,
		ir.ObjectTypeTablespace, ir.ObjectTypeType:
		return grantOn{kind: strings.ToUpper(t.String()), name: refName(o.Parent)}, nil
	case ir.ObjectTypeDatabase:
		if m == nil || m.Database() == nil {
			return grantOn{}, errors.New("database permission without a database object")
		}
		return grantOn{kind: "DATABASE", name: QuoteIdentifier(m.Database().Name)}, nil
	}
	return grantOn{}, errors.Errorf("permissions on %s are not supported", t)
}

type grantOn struct {
	kind    string
	name    string
	columns string
}

func privilegeList(privileges, columns string) string {
	if columns == "" {
		return privileges
	}
	var parts []string
	for _, p := range splitList(privileges) {
		parts = append(parts, fmt.Sprintf("%s (%s)", p, columns))
	}
	return strings.Join(parts, ", ")
}

func grant(o *ir.Object, on grantOn) string {
	privileges := o.Attr(ir.AttrPrivileges)
	if privileges == "" {
		privileges = "ALL"
	}
	stmt := fmt.Sprintf("GRANT %s ON %s %s TO %s",
		privilegeList(strings.ToUpper(privileges), on.columns), on.kind, on.name, quoteRole(o.Name))
	if o.BoolAttr(ir.AttrGrantOption) {
		stmt += " WITH GRANT OPTION"
	}
	return stmt
}

func revoke(o *ir.Object, on grantOn, privileges string, cascade bool) string {
	stmt := fmt.Sprintf("REVOKE %s ON %s %s FROM %s",
		privilegeList(strings.ToUpper(privileges), on.columns), on.kind, on.name, quoteRole(o.Name))
	if cascade {
		stmt += " CASCADE"
	}
	return stmt
}
