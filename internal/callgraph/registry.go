// Filename: callgraph/registry.go
// Package callgraph links call sites to function definitions across every
// analyzed file. Direct resolution handles qualified callees; everything
// else goes through the speculative resolver with a bounded, ranked
// candidate set.
package callgraph

import (
	"sort"
	"strings"
	"sync"

	"github.com/xkilldash9x/lancet/api/schemas"
)

// FuncRef locates one function definition.
type FuncRef struct {
	File     string
	Module   string
	Class    string // empty for module-level functions
	Name     string
	Qualname string
	NodeID   string
	Params   []string
}

// Registry indexes function and class definitions. Register runs
// concurrently during the per-file pipeline stage; resolution happens after
// all files are in.
type Registry struct {
	mu        sync.RWMutex
	byName    map[string][]FuncRef
	byQual    map[string]FuncRef
	classBase map[string][]string // class qualname -> base class paths
}

func NewRegistry() *Registry {
	return &Registry{
		byName:    map[string][]FuncRef{},
		byQual:    map[string]FuncRef{},
		classBase: map[string][]string{},
	}
}

// RegisterFile walks one file's IR and records every function and method
// definition.
func (r *Registry) RegisterFile(file, module string, g *schemas.Graph) {
	var refs []FuncRef
	var classes []struct {
		qual  string
		bases []string
	}

	// Class membership comes from parentage: a Function whose grandparent is
	// a Class is a method.
	classOfBlock := map[string]string{}
	for _, n := range g.Nodes {
		if n.Kind == schemas.KindClass {
			classOfBlock[n.AttrString("body_block_id")] = n.AttrString("name")
			classes = append(classes, struct {
				qual  string
				bases []string
			}{
				qual:  n.AttrString("qualname"),
				bases: n.AttrStrings("bases"),
			})
		}
	}
	for _, n := range g.Nodes {
		if n.Kind != schemas.KindFunction {
			continue
		}
		refs = append(refs, FuncRef{
			File:     file,
			Module:   module,
			Class:    classOfBlock[n.ParentID],
			Name:     n.AttrString("name"),
			Qualname: n.AttrString("qualname"),
			NodeID:   n.ID,
			Params:   n.AttrStrings("params"),
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range refs {
		r.byName[ref.Name] = append(r.byName[ref.Name], ref)
		r.byQual[ref.Qualname] = ref
	}
	for _, c := range classes {
		r.classBase[c.qual] = c.bases
	}
}

// Freeze sorts the index so later resolution sees a stable order regardless
// of file registration interleaving.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, refs := range r.byName {
		sort.Slice(refs, func(i, j int) bool {
			if refs[i].Qualname != refs[j].Qualname {
				return refs[i].Qualname < refs[j].Qualname
			}
			return refs[i].File < refs[j].File
		})
		r.byName[name] = refs
	}
}

// ancestors returns the transitive base-class qualnames of qual in
// breadth-first order, nearest base first. Bases recorded as bare names are
// qualified against the class's own module.
func (r *Registry) ancestors(qual string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{qual: true}
	var out []string
	queue := []string{qual}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		mod := ""
		if i := strings.LastIndexByte(cur, '.'); i >= 0 {
			mod = cur[:i]
		}
		for _, b := range r.classBase[cur] {
			bq := b
			if !strings.Contains(b, ".") && mod != "" {
				bq = mod + "." + b
			}
			if seen[bq] {
				continue
			}
			seen[bq] = true
			out = append(out, bq)
			queue = append(queue, bq)
		}
	}
	return out
}

func (r *Registry) lookupName(name string) []FuncRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

func (r *Registry) lookupQual(qual string) (FuncRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.byQual[qual]
	return ref, ok
}

// resolveDotted tries module.func and module.Class.method shapes against the
// qualname index.
func (r *Registry) resolveDotted(path string) (FuncRef, bool) {
	if ref, ok := r.lookupQual(path); ok {
		return ref, true
	}
	// "views.handler" where views is a module analyzed in this run.
	if i := strings.IndexByte(path, '.'); i >= 0 {
		if ref, ok := r.lookupQual(path[:i] + "." + path[i+1:]); ok {
			return ref, true
		}
	}
	return FuncRef{}, false
}
