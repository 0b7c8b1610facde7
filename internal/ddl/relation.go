package ddl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

func dollarQuote(body string) string {
	tag := "$function$"
	for i := 0; strings.Contains(body, tag); i++ {
		tag = fmt.Sprintf("$body%d$", i)
	}
	return tag + "\n" + strings.TrimSpace(body) + "\n" + tag
}

func (r *Renderer) routine(o *ir.Object, replace bool) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if replace {
		b.WriteString("OR REPLACE ")
	}
	b.WriteString(strings.ToUpper(o.Type.String()))
	b.WriteString(" ")
	b.WriteString(objectName(o))
	if o.Type == ir.ObjectTypeFunction {
		returns := o.Attr(ir.AttrReturns)
		if returns == "" {
			returns = "void"
		}
		b.WriteString(" RETURNS " + returns)
	}
	language := o.Attr(ir.AttrLanguage)
	if language == "" {
		language = "sql"
	}
	b.WriteString(" LANGUAGE " + language)
	if v := o.Attr(ir.AttrVolatility); v != "" && o.Type == ir.ObjectTypeFunction {
		b.WriteString(" " + strings.ToUpper(v))
	}
	if o.BoolAttr(ir.AttrSecurityDefiner) {
		b.WriteString(" SECURITY DEFINER")
	}
	b.WriteString(" AS " + dollarQuote(o.Attr(ir.AttrDefinition)))
	return b.String()
}

func (r *Renderer) columnDefinition(o *ir.Object) (string, error) {
	dataType := o.Attr(ir.AttrType)
	if dataType == "" {
		return "", errors.Errorf("column %s has no type", o.Signature())
	}
	parts := []string{QuoteIdentifier(o.Name), dataType}
	if c := o.Attr(ir.AttrCompression); c != "" && r.supports(o, ir.AttrCompression) {
		parts = append(parts, "COMPRESSION "+c)
	}
	if c := o.Attr(ir.AttrCollation); c != "" {
		parts = append(parts, "COLLATE "+QuoteIdentifier(c))
	}
	if g := o.Attr(ir.AttrGenerated); g != "" && r.supports(o, ir.AttrGenerated) {
		parts = append(parts, fmt.Sprintf("GENERATED ALWAYS AS (%s) STORED", g))
	} else if d := o.Attr(ir.AttrDefault); d != "" {
		parts = append(parts, "DEFAULT "+d)
	}
	if o.BoolAttr(ir.AttrNotNull) {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " "), nil
}

func (r *Renderer) createTable(s *statements, m *ir.Model, o *ir.Object) error {
	name := objectName(o)
	var columns []*ir.Object
	if m != nil {
		columns = m.Columns(o.Signature())
	}

	if o.PartitionOf != "" {
		bound := o.Attr(ir.AttrPartitionBound)
		if bound == "" {
			bound = "DEFAULT"
		}
		stmt := fmt.Sprintf("CREATE TABLE %s PARTITION OF %s %s", name, refName(o.PartitionOf), bound)
		if by := o.Attr(ir.AttrPartitionBy); by != "" {
			stmt += " PARTITION BY " + by
		}
		s.add("%s", stmt)
	} else {
		var b strings.Builder
		b.WriteString("CREATE ")
		if o.BoolAttr(ir.AttrUnlogged) {
			b.WriteString("UNLOGGED ")
		}
		b.WriteString("TABLE " + name + " (")
		for i, col := range columns {
			def, err := r.columnDefinition(col)
			if err != nil {
				return err
			}
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("\n    " + def)
		}
		if len(columns) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(")")
		if len(o.Inherits) > 0 {
			parents := make([]string, 0, len(o.Inherits))
			for _, p := range o.Inherits {
				parents = append(parents, refName(p))
			}
			b.WriteString(" INHERITS (" + strings.Join(parents, ", ") + ")")
		}
		if by := o.Attr(ir.AttrPartitionBy); by != "" {
			b.WriteString(" PARTITION BY " + by)
		}
		if am := o.Attr(ir.AttrAccessMethod); am != "" && r.supports(o, ir.AttrAccessMethod) {
			b.WriteString(" USING " + QuoteIdentifier(am))
		}
		if ts := o.Attr(ir.AttrTablespace); ts != "" {
			b.WriteString(" TABLESPACE " + QuoteIdentifier(ts))
		}
		s.add("%s", b.String())
	}

	if o.BoolAttr(ir.AttrRLS) {
		s.add("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", name)
	}
	r.ownerAndComment(s, o)
	for _, col := range columns {
		if c := col.Attr(ir.AttrComment); c != "" {
			s.add("%s", r.comment(col, c))
		}
		r.attachOwnedSequences(s, m, col)
	}
	return nil
}

func (r *Renderer) createIndex(o *ir.Object) (string, error) {
	columns := o.Attr(ir.AttrColumns)
	if columns == "" {
		return "", errors.Errorf("index %s has no columns", o.Signature())
	}
	var b strings.Builder
	b.WriteString("CREATE ")
	if o.BoolAttr(ir.AttrUnique) {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX " + QuoteIdentifier(o.Name) + " ON " + refName(o.Parent))
	if method := o.Attr(ir.AttrMethod); method != "" {
		b.WriteString(" USING " + method)
	}
	b.WriteString(" (" + columns + ")")
	if o.BoolAttr(ir.AttrNullsNotDistinct) && r.supports(o, ir.AttrNullsNotDistinct) {
		b.WriteString(" NULLS NOT DISTINCT")
	}
	if ts := o.Attr(ir.AttrTablespace); ts != "" {
		b.WriteString(" TABLESPACE " + QuoteIdentifier(ts))
	}
	if where := o.Attr(ir.AttrWhere); where != "" {
		b.WriteString(" WHERE " + where)
	}
	return b.String(), nil
}

func (r *Renderer) createTrigger(o *ir.Object) (string, error) {
	function := o.Attr(ir.AttrFunction)
	if function == "" {
		return "", errors.Errorf("trigger %s has no function", o.Signature())
	}
	if !strings.Contains(function, "(") {
		function += "()"
	}
	timing := strings.ToUpper(o.Attr(ir.AttrTiming))
	if timing == "" {
		timing = "AFTER"
	}
	events := strings.ToUpper(o.Attr(ir.AttrEvents))
	if events == "" {
		events = "INSERT"
	}
	level := strings.ToUpper(o.Attr(ir.AttrLevel))
	if level == "" {
		level = "ROW"
	}
	when := ""
	if w := o.Attr(ir.AttrWhen); w != "" {
		when = " WHEN (" + w + ")"
	}
	// EXECUTE FUNCTION was added in 11; 10 only understands EXECUTE PROCEDURE.
	execute := "FUNCTION"
	if !r.Version.AtLeast(11) {
		execute = "PROCEDURE"
	}
	return fmt.Sprintf("CREATE TRIGGER %s %s %s ON %s FOR EACH %s%s EXECUTE %s %s",
		QuoteIdentifier(o.Name), timing, events, refName(o.Parent), level, when, execute, function), nil
}
