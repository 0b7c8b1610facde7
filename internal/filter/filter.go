// Package filter parses partial-diff filter expressions.
//
// An expression is a comma separated list of filters. Each filter is either
//
//	type:pattern[:mode]   objects of the source model whose name matches pattern
//	type:#oid             an object of the imported database, by catalog OID
//
// Patterns are matched against the object name and its qualified name. The
// mode is "wildcard" (default, * and ? globs), "exact" or "regexp". Patterns
// containing commas, colons or spaces must be double quoted.
package filter

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/diff"
	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// Mode selects how a pattern is matched.
type Mode string

const (
	ModeWildcard Mode = "wildcard"
	ModeExact    Mode = "exact"
	ModeRegexp   Mode = "regexp"
)

var (
	filterLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
		{Name: "OID", Pattern: `#[0-9]+`},
		{Name: "Punct", Pattern: `[:,]`},
		{Name: "Word", Pattern: `[^\s,:"#]+`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	parser = participle.MustBuild[expression](
		participle.Lexer(filterLexer),
		participle.Elide("Whitespace"),
		participle.Unquote("String"),
	)
)

type (
	expression struct {
		Filters []*filterNode `parser:"@@ ( ',' @@ )*"`
	}

	filterNode struct {
		Pos     lexer.Position
		Type    string  `parser:"@Word ':'"`
		OID     *string `parser:"( @OID"`
		Pattern *string `parser:"| @(Word | String) )"`
		Mode    string  `parser:"( ':' @Word )?"`
	}
)

// Filter is one parsed filter.
type Filter struct {
	Type    ir.ObjectType
	Pattern string
	Mode    Mode
	OID     uint32

	re *regexp.Regexp
}

// IsOID reports whether the filter selects an imported object by OID.
func (f Filter) IsOID() bool {
	return f.OID != 0
}

func (f Filter) String() string {
	if f.IsOID() {
		return f.Type.String() + ":#" + strconv.FormatUint(uint64(f.OID), 10)
	}
	return f.Type.String() + ":" + f.Pattern + ":" + string(f.Mode)
}

// Parse parses one filter expression.
func Parse(expr string) ([]Filter, error) {
	ast, err := parser.ParseString("", expr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid filter %q", expr)
	}

	filters := make([]Filter, 0, len(ast.Filters))
	for _, node := range ast.Filters {
		f, err := node.build()
		if err != nil {
			return nil, errors.Wrapf(err, "invalid filter %q at column %d", expr, node.Pos.Column)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// ParseAll parses several expressions, e.g. repeated command line flags.
func ParseAll(exprs []string) ([]Filter, error) {
	var all []Filter
	for _, expr := range exprs {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		filters, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		all = append(all, filters...)
	}
	return all, nil
}

func (n *filterNode) build() (Filter, error) {
	t, err := ir.ParseObjectType(n.Type)
	if err != nil {
		return Filter{}, err
	}
	f := Filter{Type: t}

	if n.OID != nil {
		if n.Mode != "" {
			return Filter{}, errors.New("OID filters take no mode")
		}
		oid, err := strconv.ParseUint(strings.TrimPrefix(*n.OID, "#"), 10, 32)
		if err != nil || oid == 0 {
			return Filter{}, errors.Errorf("invalid OID %q", *n.OID)
		}
		f.OID = uint32(oid)
		return f, nil
	}

	f.Pattern = *n.Pattern
	f.Mode = Mode(strings.ToLower(n.Mode))
	switch f.Mode {
	case "":
		f.Mode = ModeWildcard
		fallthrough
	case ModeWildcard:
		if _, err := path.Match(f.Pattern, ""); err != nil {
			return Filter{}, errors.Wrapf(err, "bad pattern %q", f.Pattern)
		}
	case ModeExact:
	case ModeRegexp:
		re, err := regexp.Compile("^(?:" + f.Pattern + ")$")
		if err != nil {
			return Filter{}, errors.Wrapf(err, "bad regexp %q", f.Pattern)
		}
		f.re = re
	default:
		return Filter{}, errors.Errorf("unknown mode %q", n.Mode)
	}
	return f, nil
}

// Matches reports whether the object is selected by a name filter.
func (f Filter) Matches(o *ir.Object) bool {
	if f.IsOID() {
		return o.Type == f.Type && o.OID == f.OID
	}
	if o.Type != f.Type {
		return false
	}
	for _, candidate := range []string{o.Name, o.QualifiedName()} {
		switch f.Mode {
		case ModeExact:
			if candidate == f.Pattern {
				return true
			}
		case ModeRegexp:
			if f.re != nil && f.re.MatchString(candidate) {
				return true
			}
		default:
			if ok, _ := path.Match(f.Pattern, candidate); ok {
				return true
			}
		}
	}
	return false
}

// Resolve turns filters into the engine's filter set. Name filters are
// resolved against the source model; OID filters are passed through for the
// engine to resolve against the imported model. A name filter that selects
// nothing is an error.
func Resolve(filters []Filter, source *ir.Model) (diff.FilterSet, error) {
	set := diff.FilterSet{}
	var result *multierror.Error
	seen := map[string]bool{}

	for _, f := range filters {
		if f.IsOID() {
			if set.OIDs == nil {
				set.OIDs = map[ir.ObjectType][]uint32{}
			}
			set.OIDs[f.Type] = append(set.OIDs[f.Type], f.OID)
			continue
		}
		matched := false
		for _, o := range source.ObjectsOfType(f.Type) {
			if !f.Matches(o) {
				continue
			}
			matched = true
			if sig := o.Signature(); !seen[sig] {
				seen[sig] = true
				set.Signatures = append(set.Signatures, sig)
			}
		}
		if !matched {
			result = multierror.Append(result, errors.Errorf("filter %s matches no object in model %s", f, source.Name))
		}
	}
	return set, result.ErrorOrNil()
}
