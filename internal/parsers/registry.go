// Package parsers selects a document parser by file extension.
package parsers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
)

// Registry maps file extensions to parsers.
type Registry struct {
	byExt map[string]driven.Parser
}

// NewRegistry builds a registry from the given parsers. A later parser
// claiming an already-registered extension wins.
func NewRegistry(list ...driven.Parser) *Registry {
	r := &Registry{byExt: make(map[string]driven.Parser)}
	for _, p := range list {
		for _, ext := range p.Extensions() {
			r.byExt[strings.ToLower(ext)] = p
		}
	}
	return r
}

// ForFile returns the parser for the file's extension, or an error
// wrapping domain.ErrUnsupportedType.
func (r *Registry) ForFile(path string) (driven.Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("no parser for %q: %w", ext, domain.ErrUnsupportedType)
	}
	return p, nil
}

// Extensions returns all registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether any registered parser handles the file.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}
