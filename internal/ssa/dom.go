// Filename: ssa/dom.go
package ssa

import (
	"github.com/xkilldash9x/lancet/internal/cfg"
)

// domInfo holds the dominator tree and dominance frontiers of one CFG,
// computed with the Cooper-Harvey-Kennedy iterative algorithm over reverse
// postorder.
type domInfo struct {
	// rpo lists reachable block ids in reverse postorder; rpoIndex inverts it.
	rpo      []string
	rpoIndex map[string]int
	// idom maps a block to its immediate dominator. The entry maps to itself.
	idom map[string]string
	// children is the dominator tree in rpo order.
	children map[string][]string
	// frontier is the dominance frontier per block.
	frontier map[string][]string
}

func computeDominators(g *cfg.Graph) *domInfo {
	d := &domInfo{
		rpoIndex: map[string]int{},
		idom:     map[string]string{},
		children: map[string][]string{},
		frontier: map[string][]string{},
	}

	// Postorder DFS from the entry, then reverse.
	seen := map[string]bool{}
	var post []string
	var dfs func(id string)
	dfs = func(id string) {
		seen[id] = true
		for _, e := range g.Blocks[id].Succs {
			if !seen[e.To] {
				dfs(e.To)
			}
		}
		post = append(post, id)
	}
	dfs(g.Entry)

	for i := len(post) - 1; i >= 0; i-- {
		d.rpo = append(d.rpo, post[i])
	}
	for i, id := range d.rpo {
		d.rpoIndex[id] = i
	}

	// Predecessors restricted to reachable blocks.
	preds := map[string][]string{}
	for _, id := range d.rpo {
		for _, p := range g.Blocks[id].Preds {
			if seen[p] {
				preds[id] = append(preds[id], p)
			}
		}
	}

	d.idom[g.Entry] = g.Entry
	changed := true
	for changed {
		changed = false
		for _, id := range d.rpo {
			if id == g.Entry {
				continue
			}
			newIdom := ""
			for _, p := range preds[id] {
				if _, ok := d.idom[p]; !ok {
					continue
				}
				if newIdom == "" {
					newIdom = p
				} else {
					newIdom = d.intersect(p, newIdom)
				}
			}
			if newIdom != "" && d.idom[id] != newIdom {
				d.idom[id] = newIdom
				changed = true
			}
		}
	}

	for _, id := range d.rpo {
		if id == g.Entry {
			continue
		}
		d.children[d.idom[id]] = append(d.children[d.idom[id]], id)
	}

	// Dominance frontiers, per Cooper et al.
	inFrontier := map[string]map[string]bool{}
	for _, id := range d.rpo {
		if len(preds[id]) < 2 {
			continue
		}
		for _, p := range preds[id] {
			runner := p
			for runner != d.idom[id] {
				if inFrontier[runner] == nil {
					inFrontier[runner] = map[string]bool{}
				}
				if !inFrontier[runner][id] {
					inFrontier[runner][id] = true
					d.frontier[runner] = append(d.frontier[runner], id)
				}
				next, ok := d.idom[runner]
				if !ok || next == runner {
					break
				}
				runner = next
			}
		}
	}
	return d
}

// intersect walks two blocks up the dominator tree to their common ancestor
// using rpo numbering.
func (d *domInfo) intersect(a, b string) string {
	for a != b {
		for d.rpoIndex[a] > d.rpoIndex[b] {
			a = d.idom[a]
		}
		for d.rpoIndex[b] > d.rpoIndex[a] {
			b = d.idom[b]
		}
	}
	return a
}
