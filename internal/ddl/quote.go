package ddl

import (
	"strings"
	"unicode"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// Keywords that PostgreSQL reserves (fully or as type/function names) and that
// therefore cannot appear unquoted as identifiers.
const reservedKeywords = `
all analyse analyze and any array as asc asymmetric authorization between bigint
binary boolean both case cast char character check collate collation column
concurrently constraint create cross current_catalog current_date current_role
current_schema current_time current_timestamp current_user default deferrable
delete desc distinct do else end except exists false fetch filter for foreign
freeze from full grant group having ilike in initially inner insert intersect
into is isnull join lateral leading left like limit localtime localtimestamp
natural not notnull null of offset on only or order outer overlaps placing
primary references returning right select session_user similar some symmetric
system_user table tablesample then to trailing true union unique update user
using variadic verbose when where window with within
`

var reservedWords = func() map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(reservedKeywords) {
		words[w] = true
	}
	return words
}()

// NeedsQuoting checks if an identifier must be double-quoted to survive
// PostgreSQL's case folding and keyword rules.
func NeedsQuoting(identifier string) bool {
	if identifier == "" {
		return false
	}
	if reservedWords[strings.ToLower(identifier)] {
		return true
	}
	for i, r := range identifier {
		if unicode.IsUpper(r) {
			return true
		}
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return true
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return true
		}
	}
	return false
}

// QuoteIdentifier adds quotes to an identifier if needed, doubling any
// embedded quote characters.
func QuoteIdentifier(identifier string) string {
	if NeedsQuoting(identifier) {
		return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
	}
	return identifier
}

// QualifiedName joins and quotes a schema-qualified name.
func QualifiedName(schema, name string) string {
	if schema == "" {
		return QuoteIdentifier(name)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(name)
}

// QuoteLiteral renders a string literal.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// quoteRole quotes a role name unless it is one of the role keywords.
func quoteRole(role string) string {
	switch strings.ToUpper(role) {
	case "PUBLIC", "CURRENT_USER", "SESSION_USER", "CURRENT_ROLE":
		return strings.ToUpper(role)
	}
	return QuoteIdentifier(role)
}

func quoteRoleList(roles string) string {
	var quoted []string
	for _, r := range splitList(roles) {
		quoted = append(quoted, quoteRole(r))
	}
	return strings.Join(quoted, ", ")
}

func splitList(list string) []string {
	var items []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// splitQualified splits "schema.name" at the first dot.
func splitQualified(qualified string) (string, string) {
	if schema, name, ok := strings.Cut(qualified, "."); ok {
		return schema, name
	}
	return "", qualified
}

// splitRoutine splits "name(args)" into the name and the argument list.
func splitRoutine(name string) (string, string) {
	if i := strings.Index(name, "("); i >= 0 {
		return name[:i], name[i:]
	}
	return name, "()"
}

// refName renders the quoted DDL name of the object a signature points to.
func refName(sig string) string {
	t := ir.TypeOf(sig)
	qualified := ir.QualifiedNameOf(sig)
	switch {
	case t == ir.ObjectTypeFunction || t == ir.ObjectTypeProcedure:
		schema, rest := splitQualified(qualified)
		name, args := splitRoutine(rest)
		return QualifiedName(schema, name) + args
	case t.IsSchemaScoped():
		schema, name := splitQualified(qualified)
		return QualifiedName(schema, name)
	case t == ir.ObjectTypeColumn:
		schema, rest := splitQualified(qualified)
		table, column := splitQualified(rest)
		return QualifiedName(schema, table) + "." + QuoteIdentifier(column)
	default:
		return QuoteIdentifier(qualified)
	}
}
