// Package tool tracks which tool names a session may dispatch.
package tool

import (
	"sort"
	"strings"
)

// Registry is the set of callable tool names. It is fixed at construction.
type Registry struct {
	names map[string]struct{}
}

func NewRegistry(names ...string) *Registry {
	r := &Registry{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		name = NormalizeToolName(name)
		if name == "" {
			continue
		}
		r.names[name] = struct{}{}
	}
	return r
}

func (r *Registry) Contains(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.names[NormalizeToolName(name)]
	return ok
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

func NormalizeToolName(name string) string {
	return strings.TrimSpace(name)
}
