// Package ignore loads the ignore file and removes the objects it names from
// a model before comparison.
package ignore

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

const (
	// IgnoreFileName is the default name of the ignore file
	IgnoreFileName = ".pgmodeldiffignore"
)

// Section holds the patterns of one object type. A pattern starting with !
// keeps objects that an earlier pattern would ignore.
type Section struct {
	Patterns []string `toml:"patterns,omitempty"`
}

// Config maps object types to their ignore patterns
type Config struct {
	sections map[ir.ObjectType][]string
}

// LoadIgnoreFile loads the ignore file from the current directory.
// Returns nil if the file doesn't exist.
func LoadIgnoreFile() (*Config, error) {
	return LoadIgnoreFileFromPath(IgnoreFileName)
}

// LoadIgnoreFileFromPath loads an ignore file from the specified path.
// Returns nil if the file doesn't exist.
func LoadIgnoreFileFromPath(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var raw map[string]Section
	if _, err := toml.DecodeFile(filePath, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to parse ignore file %s", filePath)
	}
	return newConfig(raw)
}

// Parse reads an ignore configuration from TOML text
func Parse(data string) (*Config, error) {
	var raw map[string]Section
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse ignore configuration")
	}
	return newConfig(raw)
}

func newConfig(raw map[string]Section) (*Config, error) {
	byPlural := map[string]ir.ObjectType{}
	for _, t := range ir.ObjectTypes() {
		byPlural[t.Plural()] = t
	}
	c := &Config{sections: map[ir.ObjectType][]string{}}
	for key, section := range raw {
		t, ok := byPlural[key]
		if !ok {
			return nil, errors.Errorf("unknown ignore section [%s]", key)
		}
		if t == ir.ObjectTypeDatabase {
			return nil, errors.New("the database cannot be ignored")
		}
		c.sections[t] = section.Patterns
	}
	return c, nil
}

// Empty reports whether the configuration ignores nothing
func (c *Config) Empty() bool {
	if c == nil {
		return true
	}
	for _, patterns := range c.sections {
		if len(patterns) > 0 {
			return false
		}
	}
	return true
}

// ShouldIgnore checks the object name and qualified name against the
// patterns of its type.
func (c *Config) ShouldIgnore(o *ir.Object) bool {
	if c == nil {
		return false
	}
	patterns := c.sections[o.Type]
	return shouldIgnore(o.Name, patterns) || shouldIgnore(o.QualifiedName(), patterns)
}

// shouldIgnore matches name against the inclusion patterns, then lets
// negation patterns take it back.
func shouldIgnore(name string, patterns []string) bool {
	matched := false
	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, "!") {
			continue
		}
		if matchPattern(pattern, name) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, "!") && matchPattern(pattern[1:], name) {
			return false
		}
	}
	return true
}

// matchPattern matches a glob-style pattern; an invalid pattern matches literally
func matchPattern(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	if err != nil {
		return pattern == name
	}
	return matched
}

// Prune returns a sealed copy of m without the ignored objects and without
// everything that cannot exist without them: children, owned sequences,
// relationships and objects declaring them as dependencies. The signatures
// removed are returned sorted.
func (c *Config) Prune(m *ir.Model) (*ir.Model, []string, error) {
	if c.Empty() {
		return m, nil, nil
	}

	removed := map[string]bool{}
	for _, o := range m.Objects() {
		if o.Type != ir.ObjectTypeDatabase && c.ShouldIgnore(o) {
			removed[o.Signature()] = true
		}
	}
	for changed := len(removed) > 0; changed; {
		changed = false
		for _, o := range m.Objects() {
			sig := o.Signature()
			if removed[sig] {
				continue
			}
			if slices.ContainsFunc(requiredRefs(o), func(ref string) bool { return removed[ref] }) {
				removed[sig] = true
				changed = true
			}
		}
	}

	pruned := m.Clone()
	sigs := make([]string, 0, len(removed))
	for sig := range removed {
		if err := pruned.Remove(sig); err != nil {
			return nil, nil, err
		}
		sigs = append(sigs, sig)
	}
	if err := pruned.Seal(); err != nil {
		return nil, nil, errors.Wrapf(err, "model %s after applying ignore patterns", m.Name)
	}
	slices.SortFunc(sigs, ir.CompareSignatures)
	return pruned, sigs, nil
}

// requiredRefs lists the objects o cannot exist without
func requiredRefs(o *ir.Object) []string {
	refs := slices.Clone(o.DependsOn)
	refs = append(refs, o.Inherits...)
	if o.Parent != "" {
		refs = append(refs, o.Parent)
	}
	if o.PartitionOf != "" {
		refs = append(refs, o.PartitionOf)
	}
	if o.Type.IsSchemaScoped() {
		refs = append(refs, ir.Signature(ir.ObjectTypeSchema, o.Schema))
	}
	switch o.Type {
	case ir.ObjectTypeRelationship:
		for _, key := range []string{ir.AttrSource, ir.AttrTarget, ir.AttrJunction} {
			if sig := o.Attr(key); sig != "" {
				refs = append(refs, sig)
			}
		}
	case ir.ObjectTypeSequence:
		if col := o.Attr(ir.AttrOwnedBy); col != "" {
			refs = append(refs, col)
		}
	}
	return refs
}
