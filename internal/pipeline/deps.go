// Filename: pipeline/deps.go
package pipeline

import (
	"sort"
	"sync"

	"github.com/xkilldash9x/lancet/api/schemas"
)

// DepGraph is the reverse dependency map: module name to the files that
// import it. Registration runs concurrently with per-file analysis.
type DepGraph struct {
	mu      sync.RWMutex
	imports map[string][]string // file -> imported module names
	reverse map[string][]string // module -> importing files
}

func NewDepGraph() *DepGraph {
	return &DepGraph{
		imports: map[string][]string{},
		reverse: map[string][]string{},
	}
}

// RecordFile extracts the file's imported module names from its IR.
func (d *DepGraph) RecordFile(file string, g *schemas.Graph) {
	seen := map[string]bool{}
	var mods []string
	for _, n := range g.Nodes {
		if n.Kind != schemas.KindImport {
			continue
		}
		if mod := n.AttrString("module"); mod != "" && !seen[mod] {
			seen[mod] = true
			mods = append(mods, mod)
		}
		for _, name := range n.AttrStrings("names") {
			if n.AttrString("module") != "" {
				continue // from-import names are members, not modules
			}
			if !seen[name] {
				seen[name] = true
				mods = append(mods, name)
			}
		}
	}
	d.RecordImports(file, mods)
}

// RecordImports registers a file's imports directly, as when replaying a
// manifest from a prior run.
func (d *DepGraph) RecordImports(file string, mods []string) {
	mods = append([]string{}, mods...)
	sort.Strings(mods)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.imports[file] = mods
	for _, m := range mods {
		d.reverse[m] = append(d.reverse[m], file)
	}
}

// Imports returns the modules a file imports.
func (d *DepGraph) Imports(file string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.imports[file]
}

// Dependents returns the files importing a module, sorted.
func (d *DepGraph) Dependents(module string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := append([]string{}, d.reverse[module]...)
	sort.Strings(out)
	return out
}
