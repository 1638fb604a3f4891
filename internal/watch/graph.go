package watch

import (
	"sort"
	"strings"
	"sync"
)

// Graph records which part files each root was built from, so a change can
// be traced back to the roots that need rebuilding. Names compare without
// case.
type Graph struct {
	mu   sync.RWMutex
	deps map[string]map[string]struct{} // root -> parts
}

func NewGraph() *Graph {
	return &Graph{deps: make(map[string]map[string]struct{})}
}

// Record replaces the dependencies of root. parts should include names that
// were missing, so their arrival triggers a rebuild.
func (g *Graph) Record(root string, parts ...[]string) {
	set := map[string]struct{}{strings.ToLower(root): {}}
	for _, list := range parts {
		for _, p := range list {
			set[strings.ToLower(p)] = struct{}{}
		}
	}
	g.mu.Lock()
	g.deps[root] = set
	g.mu.Unlock()
}

// Affected returns the sorted roots depending on any changed name.
func (g *Graph) Affected(changed []string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var roots []string
	for root, set := range g.deps {
		for _, c := range changed {
			if _, ok := set[strings.ToLower(c)]; ok {
				roots = append(roots, root)
				break
			}
		}
	}
	sort.Strings(roots)
	return roots
}

// Roots returns every recorded root, sorted.
func (g *Graph) Roots() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	roots := make([]string, 0, len(g.deps))
	for r := range g.deps {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}
