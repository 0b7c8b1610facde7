// Package include loads model documents that pull in other documents through
// their include list.
package include

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// Processor merges a model document with the documents it includes
type Processor struct {
	baseDir string
	visited map[string]bool
}

// NewProcessor creates a new include processor for the given base directory
func NewProcessor(baseDir string) *Processor {
	return &Processor{
		baseDir: baseDir,
		visited: make(map[string]bool),
	}
}

// LoadFile reads a model document with its includes, then builds and seals
// the model. Name and pg_version come from the top-level document.
func LoadFile(path string) (*ir.Model, *ir.Document, error) {
	doc, err := NewProcessor(filepath.Dir(path)).ProcessFile(path)
	if err != nil {
		return nil, nil, err
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	m, err := doc.Build()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid model file %s", path)
	}
	return m, doc, nil
}

// ProcessFile decodes a document and appends the objects of every included
// document, recursively. The returned document has no includes left.
func (p *Processor) ProcessFile(filename string) (*ir.Document, error) {
	p.visited = make(map[string]bool)

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get absolute path for %s", filename)
	}
	p.baseDir = filepath.Dir(absPath)

	return p.processFileRecursive(absPath)
}

func (p *Processor) processFileRecursive(filename string) (*ir.Document, error) {
	if p.visited[filename] {
		return nil, errors.Errorf("circular include detected: %s", filename)
	}
	p.visited[filename] = true
	// the same file may still be included from different branches
	defer delete(p.visited, filename)

	format, err := ir.FormatFromPath(filename)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read model file %s", filename)
	}
	doc, err := ir.Decode(content, format)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode model file %s", filename)
	}

	currentDir := filepath.Dir(filename)
	includes := doc.Include
	doc.Include = nil
	for _, includePath := range includes {
		paths, err := p.resolveIncludePath(includePath, currentDir)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: failed to resolve include %s", filename, includePath)
		}
		for _, path := range paths {
			included, err := p.processFileRecursive(path)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: failed to process included file %s", filename, path)
			}
			doc.Objects = append(doc.Objects, included.Objects...)
		}
	}
	return doc, nil
}

// resolveIncludePath resolves an include relative to the current directory.
// A directory expands to the model files it contains, sorted by name. Only
// files within the base directory and its subdirectories are allowed.
func (p *Processor) resolveIncludePath(includePath string, currentDir string) ([]string, error) {
	cleanPath := filepath.Clean(includePath)
	if strings.Contains(cleanPath, "..") {
		return nil, errors.Errorf("directory traversal not allowed: %s", includePath)
	}

	absPath, err := filepath.Abs(filepath.Join(currentDir, cleanPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get absolute path")
	}
	baseAbs, err := filepath.Abs(p.baseDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get absolute base path")
	}
	relPath, err := filepath.Rel(baseAbs, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return nil, errors.Errorf("include path %s is outside the base directory %s", includePath, p.baseDir)
	}

	info, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		return nil, errors.Errorf("included file does not exist: %s", absPath)
	} else if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{absPath}, nil
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", absPath)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := ir.FormatFromPath(entry.Name()); err != nil {
			continue
		}
		paths = append(paths, filepath.Join(absPath, entry.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}
