// Filename: cfg/cfg.go
// Package cfg derives per-scope control flow graphs from the IR. Each
// function, and the module top level, gets its own graph of basic blocks
// linked by typed edges. Block numbering follows IR visitation order, so two
// builds of the same source produce identical graphs.
package cfg

import (
	"fmt"

	"github.com/xkilldash9x/lancet/api/schemas"
)

// Block is one basic block: a maximal run of statements with a single entry
// and single exit.
type Block struct {
	ID    string
	Label schemas.BlockLabel
	// Stmts holds IR statement node ids in execution order.
	Stmts []string
	Succs []Edge
	Preds []string
}

// Edge is a typed successor link. Guard carries the IR id of the controlling
// expression for true/false edges, and the loop or try node id for
// break/continue/exception edges.
type Edge struct {
	To    string
	Type  schemas.EdgeType
	Guard string
}

// Graph is the CFG of one scope.
type Graph struct {
	// ScopeRoot is the Function, Lambda or Module node the graph belongs to.
	ScopeRoot string
	Entry     string
	Exit      string
	Blocks    map[string]*Block
	// Order lists block ids in creation order for deterministic iteration.
	Order []string
}

func (g *Graph) Block(id string) *Block {
	return g.Blocks[id]
}

// NewBlock allocates the next block in sequence.
func (g *Graph) newBlock(label schemas.BlockLabel) *Block {
	b := &Block{
		ID:    fmt.Sprintf("bb:%s:%d", g.ScopeRoot, len(g.Order)),
		Label: label,
	}
	g.Blocks[b.ID] = b
	g.Order = append(g.Order, b.ID)
	return b
}

func (g *Graph) link(from, to *Block, typ schemas.EdgeType, guard string) {
	if from == nil || to == nil {
		return
	}
	for _, e := range from.Succs {
		if e.To == to.ID && e.Type == typ && e.Guard == guard {
			return
		}
	}
	from.Succs = append(from.Succs, Edge{To: to.ID, Type: typ, Guard: guard})
	to.Preds = append(to.Preds, from.ID)
}

// Reachable reports whether the block can be reached from the entry. Blocks
// after a return or raise stay in the graph but unreachable, and SSA skips
// them.
func (g *Graph) Reachable() map[string]bool {
	seen := map[string]bool{}
	stack := []string{g.Entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, e := range g.Blocks[id].Succs {
			if !seen[e.To] {
				stack = append(stack, e.To)
			}
		}
	}
	return seen
}

// MirrorEdges exports the graph's block-to-block edges as IR edges between
// representative statement nodes, so a serialized graph carries the full
// typed edge set. An empty block is represented by its own id.
func (g *Graph) MirrorEdges() []schemas.Edge {
	rep := func(b *Block, first bool) string {
		if len(b.Stmts) == 0 {
			return b.ID
		}
		if first {
			return b.Stmts[0]
		}
		return b.Stmts[len(b.Stmts)-1]
	}
	var out []schemas.Edge
	for _, id := range g.Order {
		b := g.Blocks[id]
		for _, e := range b.Succs {
			out = append(out, schemas.Edge{
				From:    rep(b, false),
				To:      rep(g.Blocks[e.To], true),
				Type:    e.Type,
				GuardID: e.Guard,
			})
		}
	}
	return out
}
