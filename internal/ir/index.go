// Filename: ir/index.go
package ir

import "github.com/xkilldash9x/lancet/api/schemas"

// Index provides constant-time lookups over a built graph. The graph itself
// stays a flat, serializable structure; downstream stages (CFG, SSA, taint)
// build an Index once and share it.
type Index struct {
	graph    *schemas.Graph
	byID     map[string]*schemas.Node
	children map[string][]*schemas.Node
	symByKey map[string]*schemas.Symbol
}

// NewIndex builds lookup tables over g. Child order follows node insertion
// order, which the builder guarantees to be source order.
func NewIndex(g *schemas.Graph) *Index {
	ix := &Index{
		graph:    g,
		byID:     make(map[string]*schemas.Node, len(g.Nodes)),
		children: make(map[string][]*schemas.Node),
		symByKey: make(map[string]*schemas.Symbol, len(g.Symbols)),
	}
	for _, n := range g.Nodes {
		ix.byID[n.ID] = n
		if n.ParentID != "" {
			ix.children[n.ParentID] = append(ix.children[n.ParentID], n)
		}
	}
	for _, s := range g.Symbols {
		ix.symByKey[s.ScopeID+"\x00"+s.Name] = s
	}
	return ix
}

// Graph returns the underlying graph.
func (ix *Index) Graph() *schemas.Graph { return ix.graph }

// Node returns the node with the given id, or nil.
func (ix *Index) Node(id string) *schemas.Node { return ix.byID[id] }

// Children returns the direct children of id in source order.
func (ix *Index) Children(id string) []*schemas.Node { return ix.children[id] }

// Symbol returns the symbol bound to name in scope, or nil.
func (ix *Index) Symbol(scopeID, name string) *schemas.Symbol {
	return ix.symByKey[scopeID+"\x00"+name]
}

// Walk visits the subtree rooted at id in depth-first source order. The
// visitor returns false to prune descent below a node.
func (ix *Index) Walk(id string, fn func(*schemas.Node) bool) {
	n := ix.byID[id]
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range ix.children[n.ID] {
		ix.Walk(c.ID, fn)
	}
}
