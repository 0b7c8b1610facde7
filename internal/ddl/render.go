// Package ddl renders diff operations on schema objects into PostgreSQL DDL.
package ddl

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// Renderer produces DDL for one PostgreSQL major version.
type Renderer struct {
	Version ir.PgVersion
	Cascade bool
}

// NewRenderer creates a renderer. With cascade set, DROP statements carry CASCADE.
func NewRenderer(version ir.PgVersion, cascade bool) *Renderer {
	return &Renderer{Version: version, Cascade: cascade}
}

// Validate parses the rendered SQL with the PostgreSQL parser.
func Validate(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := pg_query.Parse(sql); err != nil {
		return errors.Wrap(err, "generated SQL does not parse")
	}
	return nil
}

// statements accumulates DDL statements, skipping empty ones.
type statements []string

func (s *statements) add(format string, args ...any) {
	stmt := strings.TrimSpace(fmt.Sprintf(format, args...))
	if stmt == "" {
		return
	}
	if !strings.HasSuffix(stmt, ";") {
		stmt += ";"
	}
	*s = append(*s, stmt)
}

func (s statements) String() string {
	return strings.Join(s, "\n")
}

// Create renders the DDL that creates o as defined in m.
func (r *Renderer) Create(m *ir.Model, o *ir.Object) (string, error) {
	if err := r.checkSupported(o); err != nil {
		return "", err
	}
	var s statements
	switch o.Type {
	case ir.ObjectTypeDatabase:
		return "", errors.New("databases are never created by a diff")
	case ir.ObjectTypeRole:
		s.add("CREATE ROLE %s%s", QuoteIdentifier(o.Name), roleOptions(o, false))
		r.addComment(&s, o)
	case ir.ObjectTypeTablespace:
		owner := ""
		if o.Attr(ir.AttrOwner) != "" {
			owner = " OWNER " + quoteRole(o.Attr(ir.AttrOwner))
		}
		s.add("CREATE TABLESPACE %s%s LOCATION %s", QuoteIdentifier(o.Name), owner, QuoteLiteral(o.Attr(ir.AttrLocation)))
		r.addComment(&s, o)
	case ir.ObjectTypeSchema:
		owner := ""
		if o.Attr(ir.AttrOwner) != "" {
			owner = " AUTHORIZATION " + quoteRole(o.Attr(ir.AttrOwner))
		}
		s.add("CREATE SCHEMA %s%s", QuoteIdentifier(o.Name), owner)
		r.addComment(&s, o)
	case ir.ObjectTypeExtension:
		stmt := "CREATE EXTENSION " + QuoteIdentifier(o.Name)
		if schema := o.Attr(ir.AttrSchema); schema != "" {
			stmt += " WITH SCHEMA " + QuoteIdentifier(schema)
		}
		if version := o.Attr(ir.AttrVersion); version != "" {
			stmt += " VERSION " + QuoteLiteral(version)
		}
		s.add("%s", stmt)
		r.addComment(&s, o)
	case ir.ObjectTypeType:
		stmt, err := createType(o)
		if err != nil {
			return "", err
		}
		s.add("%s", stmt)
		r.ownerAndComment(&s, o)
	case ir.ObjectTypeSequence:
		prefix := "CREATE"
		if o.BoolAttr(ir.AttrUnlogged) && r.supports(o, ir.AttrUnlogged) {
			prefix += " UNLOGGED"
		}
		s.add("%s SEQUENCE %s%s", prefix, objectName(o), sequenceOptions(o, nil))
		r.ownerAndComment(&s, o)
	case ir.ObjectTypeFunction, ir.ObjectTypeProcedure:
		s.add("%s", r.routine(o, false))
		r.ownerAndComment(&s, o)
	case ir.ObjectTypeTable:
		if err := r.createTable(&s, m, o); err != nil {
			return "", err
		}
	case ir.ObjectTypeColumn:
		def, err := r.columnDefinition(o)
		if err != nil {
			return "", err
		}
		s.add("ALTER TABLE %s ADD COLUMN %s", refName(o.Parent), def)
		r.addComment(&s, o)
		r.attachOwnedSequences(&s, m, o)
	case ir.ObjectTypeConstraint:
		def := o.Attr(ir.AttrDefinition)
		if def == "" {
			return "", errors.Errorf("constraint %s has no definition", o.Signature())
		}
		if o.BoolAttr(ir.AttrDeferrable) {
			def += " DEFERRABLE"
		}
		s.add("ALTER TABLE %s ADD CONSTRAINT %s %s", refName(o.Parent), QuoteIdentifier(o.Name), def)
		r.addComment(&s, o)
	case ir.ObjectTypeIndex:
		stmt, err := r.createIndex(o)
		if err != nil {
			return "", err
		}
		s.add("%s", stmt)
		r.addComment(&s, o)
	case ir.ObjectTypeView:
		def := strings.TrimSuffix(strings.TrimSpace(o.Attr(ir.AttrDefinition)), ";")
		if def == "" {
			return "", errors.Errorf("view %s has no definition", o.Signature())
		}
		with := ""
		if r.supports(o, ir.AttrSecurityInvoker) && o.BoolAttr(ir.AttrSecurityInvoker) {
			with = " WITH (security_invoker = true)"
		}
		s.add("CREATE VIEW %s%s AS\n%s", objectName(o), with, def)
		r.ownerAndComment(&s, o)
	case ir.ObjectTypeTrigger:
		stmt, err := r.createTrigger(o)
		if err != nil {
			return "", err
		}
		s.add("%s", stmt)
		r.addComment(&s, o)
	case ir.ObjectTypePolicy:
		s.add("%s", createPolicy(o))
	case ir.ObjectTypeRelationship:
		// implemented by the constraints and columns it generates
		return "", nil
	case ir.ObjectTypePermission:
		target, err := grantTarget(m, o)
		if err != nil {
			return "", err
		}
		s.add("%s", grant(o, target))
	default:
		return "", errors.Errorf("cannot create objects of type %s", o.Type)
	}
	return s.String(), nil
}

// Alter renders the DDL that turns from into to. Only alterable differences
// are rendered; the caller decides when an object has to be recreated.
func (r *Renderer) Alter(m *ir.Model, from, to *ir.Object) (string, error) {
	if err := r.checkSupported(to); err != nil {
		return "", err
	}
	changed := r.changedAttributes(from, to)
	var s statements
	switch to.Type {
	case ir.ObjectTypeDatabase:
		name := QuoteIdentifier(from.Name)
		if from.Name != to.Name {
			s.add("ALTER DATABASE %s RENAME TO %s", name, QuoteIdentifier(to.Name))
			name = QuoteIdentifier(to.Name)
		}
		if changed[ir.AttrConnLimit] {
			limit := to.Attr(ir.AttrConnLimit)
			if limit == "" {
				limit = "-1"
			}
			s.add("ALTER DATABASE %s WITH CONNECTION LIMIT %s", name, limit)
		}
		if changed[ir.AttrOwner] && to.Attr(ir.AttrOwner) != "" {
			s.add("ALTER DATABASE %s OWNER TO %s", name, quoteRole(to.Attr(ir.AttrOwner)))
		}
		if changed[ir.AttrComment] {
			s.add("COMMENT ON DATABASE %s IS %s", name, commentValue(to.Attr(ir.AttrComment)))
		}
	case ir.ObjectTypeRole:
		if opts := roleOptions(to, true); opts != "" {
			s.add("ALTER ROLE %s%s", QuoteIdentifier(to.Name), opts)
		}
		if changed[ir.AttrComment] {
			s.add("%s", r.comment(to, to.Attr(ir.AttrComment)))
		}
	case ir.ObjectTypeExtension:
		if changed[ir.AttrVersion] && to.Attr(ir.AttrVersion) != "" {
			s.add("ALTER EXTENSION %s UPDATE TO %s", QuoteIdentifier(to.Name), QuoteLiteral(to.Attr(ir.AttrVersion)))
		}
		if changed[ir.AttrSchema] && to.Attr(ir.AttrSchema) != "" {
			s.add("ALTER EXTENSION %s SET SCHEMA %s", QuoteIdentifier(to.Name), QuoteIdentifier(to.Attr(ir.AttrSchema)))
		}
		if changed[ir.AttrComment] {
			s.add("%s", r.comment(to, to.Attr(ir.AttrComment)))
		}
	case ir.ObjectTypeSequence:
		if opts := sequenceOptions(to, changed); opts != "" {
			s.add("ALTER SEQUENCE %s%s", objectName(to), opts)
		}
		if changed[ir.AttrUnlogged] {
			mode := "LOGGED"
			if to.BoolAttr(ir.AttrUnlogged) {
				mode = "UNLOGGED"
			}
			s.add("ALTER SEQUENCE %s SET %s", objectName(to), mode)
		}
		if changed[ir.AttrOwnedBy] {
			s.add("%s", ownedBy(to, to.Attr(ir.AttrOwnedBy)))
		}
		r.changedOwnerAndComment(&s, to, changed)
	case ir.ObjectTypeFunction, ir.ObjectTypeProcedure:
		if changed[ir.AttrDefinition] || changed[ir.AttrVolatility] || changed[ir.AttrSecurityDefiner] ||
			changed[ir.AttrLanguage] {
			s.add("%s", r.routine(to, true))
		}
		r.changedOwnerAndComment(&s, to, changed)
	case ir.ObjectTypeTable:
		name := objectName(to)
		if changed[ir.AttrTablespace] {
			ts := to.Attr(ir.AttrTablespace)
			if ts == "" {
				ts = "pg_default"
			}
			s.add("ALTER TABLE %s SET TABLESPACE %s", name, QuoteIdentifier(ts))
		}
		if changed[ir.AttrUnlogged] {
			mode := "LOGGED"
			if to.BoolAttr(ir.AttrUnlogged) {
				mode = "UNLOGGED"
			}
			s.add("ALTER TABLE %s SET %s", name, mode)
		}
		if changed[ir.AttrRLS] {
			mode := "DISABLE"
			if to.BoolAttr(ir.AttrRLS) {
				mode = "ENABLE"
			}
			s.add("ALTER TABLE %s %s ROW LEVEL SECURITY", name, mode)
		}
		if changed[ir.AttrAccessMethod] {
			if !r.Version.AtLeast(15) {
				return "", errors.Errorf("changing the access method of %s requires PostgreSQL 15", to.Signature())
			}
			am := to.Attr(ir.AttrAccessMethod)
			if am == "" {
				am = "heap"
			}
			s.add("ALTER TABLE %s SET ACCESS METHOD %s", name, QuoteIdentifier(am))
		}
		r.changedOwnerAndComment(&s, to, changed)
	case ir.ObjectTypeColumn:
		table := refName(to.Parent)
		column := QuoteIdentifier(to.Name)
		if changed[ir.AttrType] || changed[ir.AttrCollation] {
			collate := ""
			if c := to.Attr(ir.AttrCollation); c != "" {
				collate = " COLLATE " + QuoteIdentifier(c)
			}
			s.add("ALTER TABLE %s ALTER COLUMN %s TYPE %s%s", table, column, to.Attr(ir.AttrType), collate)
		}
		if changed[ir.AttrDefault] {
			if def := to.Attr(ir.AttrDefault); def != "" {
				s.add("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", table, column, def)
			} else {
				s.add("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", table, column)
			}
		}
		if changed[ir.AttrNotNull] {
			if to.BoolAttr(ir.AttrNotNull) {
				s.add("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, column)
			} else {
				s.add("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", table, column)
			}
		}
		if changed[ir.AttrCompression] {
			compression := to.Attr(ir.AttrCompression)
			if compression == "" {
				compression = "default"
			}
			s.add("ALTER TABLE %s ALTER COLUMN %s SET COMPRESSION %s", table, column, compression)
		}
		if changed[ir.AttrComment] {
			s.add("%s", r.comment(to, to.Attr(ir.AttrComment)))
		}
	case ir.ObjectTypeIndex:
		if changed[ir.AttrTablespace] {
			ts := to.Attr(ir.AttrTablespace)
			if ts == "" {
				ts = "pg_default"
			}
			s.add("ALTER INDEX %s SET TABLESPACE %s", objectName(to), QuoteIdentifier(ts))
		}
		if changed[ir.AttrComment] {
			s.add("%s", r.comment(to, to.Attr(ir.AttrComment)))
		}
	case ir.ObjectTypeView:
		if changed[ir.AttrSecurityInvoker] {
			s.add("ALTER VIEW %s SET (security_invoker = %t)", objectName(to), to.BoolAttr(ir.AttrSecurityInvoker))
		}
		r.changedOwnerAndComment(&s, to, changed)
	case ir.ObjectTypePolicy:
		s.add("%s", alterPolicy(to))
	case ir.ObjectTypePermission:
		target, err := grantTarget(m, to)
		if err != nil {
			return "", err
		}
		s.add("%s", revoke(to, target, "ALL", false))
		s.add("%s", grant(to, target))
	case ir.ObjectTypeRelationship:
		return "", nil
	default:
		r.changedOwnerAndComment(&s, to, changed)
	}
	return s.String(), nil
}

// Drop renders the DDL that removes o as defined in m.
func (r *Renderer) Drop(m *ir.Model, o *ir.Object) (string, error) {
	cascade := ""
	if r.Cascade {
		cascade = " CASCADE"
	}
	var s statements
	switch o.Type {
	case ir.ObjectTypeDatabase:
		return "", errors.New("databases are never dropped by a diff")
	case ir.ObjectTypeRole:
		s.add("DROP ROLE %s", QuoteIdentifier(o.Name))
	case ir.ObjectTypeTablespace:
		s.add("DROP TABLESPACE %s", QuoteIdentifier(o.Name))
	case ir.ObjectTypeSchema:
		s.add("DROP SCHEMA %s%s", QuoteIdentifier(o.Name), cascade)
	case ir.ObjectTypeExtension:
		s.add("DROP EXTENSION %s%s", QuoteIdentifier(o.Name), cascade)
	case ir.ObjectTypeType:
		keyword := "TYPE"
		if typeKind(o) == "domain" {
			keyword = "DOMAIN"
		}
		s.add("DROP %s %s%s", keyword, objectName(o), cascade)
	case ir.ObjectTypeSequence:
		s.add("DROP SEQUENCE %s%s", objectName(o), cascade)
	case ir.ObjectTypeFunction:
		s.add("DROP FUNCTION %s%s", objectName(o), cascade)
	case ir.ObjectTypeProcedure:
		s.add("DROP PROCEDURE %s%s", objectName(o), cascade)
	case ir.ObjectTypeTable:
		s.add("DROP TABLE %s%s", objectName(o), cascade)
	case ir.ObjectTypeColumn:
		s.add("ALTER TABLE %s DROP COLUMN %s%s", refName(o.Parent), QuoteIdentifier(o.Name), cascade)
	case ir.ObjectTypeConstraint:
		s.add("ALTER TABLE %s DROP CONSTRAINT %s%s", refName(o.Parent), QuoteIdentifier(o.Name), cascade)
	case ir.ObjectTypeIndex:
		s.add("DROP INDEX %s%s", objectName(o), cascade)
	case ir.ObjectTypeView:
		s.add("DROP VIEW %s%s", objectName(o), cascade)
	case ir.ObjectTypeTrigger:
		s.add("DROP TRIGGER %s ON %s%s", QuoteIdentifier(o.Name), refName(o.Parent), cascade)
	case ir.ObjectTypePolicy:
		s.add("DROP POLICY %s ON %s", QuoteIdentifier(o.Name), refName(o.Parent))
	case ir.ObjectTypeRelationship:
		return "", nil
	case ir.ObjectTypePermission:
		target, err := grantTarget(m, o)
		if err != nil {
			return "", err
		}
		privileges := o.Attr(ir.AttrPrivileges)
		if privileges == "" {
			privileges = "ALL"
		}
		s.add("%s", revoke(o, target, privileges, r.Cascade))
	default:
		return "", errors.Errorf("cannot drop objects of type %s", o.Type)
	}
	return s.String(), nil
}

// DetachSequence renders the statement that releases a sequence from its
// owning column so that dropping the column keeps the sequence.
func (r *Renderer) DetachSequence(o *ir.Object) string {
	return ownedBy(o, "") + ";"
}
