// Filename: ssa/ssa.go
// Package ssa rewrites each CFG scope into SSA form: versioned values like
// x@1, phi nodes at join points, and def-use maps the taint engine walks.
// Version numbers are assigned in dominator-tree order, so they are a pure
// function of the input graph.
package ssa

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lancet/api/schemas"
	"github.com/xkilldash9x/lancet/internal/cfg"
	"github.com/xkilldash9x/lancet/internal/ir"
)

// Value is one SSA version of a variable. Version 0 is the implicit value a
// variable holds at scope entry (a parameter's incoming value, or
// use-before-def).
type Value struct {
	Var string
	Ver int
}

func (v Value) String() string { return fmt.Sprintf("%s@%d", v.Var, v.Ver) }

func (v Value) IsZero() bool { return v.Var == "" }

// PhiInput pairs a predecessor block with the value flowing in along it.
// Redundant inputs (same value on several edges) are kept as-is.
type PhiInput struct {
	Pred  string
	Value Value
}

// Phi merges variable versions at a CFG join.
type Phi struct {
	ID     string
	Block  string
	Var    string
	Result Value
	Inputs []PhiInput
}

// ScopeSSA is the SSA form of one scope.
type ScopeSSA struct {
	Graph *cfg.Graph
	// Phis lists phi nodes per block, ordered by variable name.
	Phis map[string][]*Phi
	// PhiByID resolves a synthesized phi id.
	PhiByID map[string]*Phi
	// UseValues maps a load Name node id to the value reaching it.
	UseValues map[string]Value
	// DefValues maps a def node id (store Name, param Name, Function or
	// Class node) to the value it creates.
	DefValues map[string]Value
	// DefNode maps a value back to its defining node id. Phi results map to
	// the phi id; version 0 values map to "".
	DefNode map[string]string
	// UsesOf lists use node ids per value string, in renaming order.
	UsesOf map[string][]string
	// useOrder preserves global use ordering for deterministic iteration.
	useOrder []string
}

// UseIDs returns all use node ids in renaming order.
func (s *ScopeSSA) UseIDs() []string { return s.useOrder }

// Transform converts one scope's CFG into SSA form.
func Transform(ix *ir.Index, g *cfg.Graph, logger *zap.Logger) *ScopeSSA {
	t := &transformer{
		ix:  ix,
		log: logger.Named("ssa"),
		out: &ScopeSSA{
			Graph:     g,
			Phis:      map[string][]*Phi{},
			PhiByID:   map[string]*Phi{},
			UseValues: map[string]Value{},
			DefValues: map[string]Value{},
			DefNode:   map[string]string{},
			UsesOf:    map[string][]string{},
		},
		dom:      computeDominators(g),
		counters: map[string]int{},
		stacks:   map[string][]Value{},
	}
	t.placePhis(g)
	t.rename(g.Entry)
	return t.out
}

type transformer struct {
	ix       *ir.Index
	log      *zap.Logger
	out      *ScopeSSA
	dom      *domInfo
	counters map[string]int
	stacks   map[string][]Value
}

// placePhis inserts phi nodes at the iterated dominance frontier of each
// variable's definition sites.
func (t *transformer) placePhis(g *cfg.Graph) {
	defBlocks := map[string][]string{}
	var varOrder []string
	seenVar := map[string]bool{}

	for _, bid := range t.dom.rpo {
		for _, stmtID := range g.Blocks[bid].Stmts {
			_, defs := t.stmtBindings(stmtID)
			for _, d := range defs {
				if !seenVar[d.name] {
					seenVar[d.name] = true
					varOrder = append(varOrder, d.name)
				}
				defBlocks[d.name] = append(defBlocks[d.name], bid)
			}
		}
	}
	sort.Strings(varOrder)

	for _, name := range varOrder {
		placed := map[string]bool{}
		inWork := map[string]bool{}
		work := append([]string{}, defBlocks[name]...)
		for _, b := range work {
			inWork[b] = true
		}
		for len(work) > 0 {
			b := work[0]
			work = work[1:]
			for _, f := range t.dom.frontier[b] {
				if placed[f] {
					continue
				}
				placed[f] = true
				phi := &Phi{
					ID:    fmt.Sprintf("phi:%s:%s", f, name),
					Block: f,
					Var:   name,
				}
				t.out.Phis[f] = append(t.out.Phis[f], phi)
				t.out.PhiByID[phi.ID] = phi
				if !inWork[f] {
					inWork[f] = true
					work = append(work, f)
				}
			}
		}
	}
	for _, phis := range t.out.Phis {
		sort.Slice(phis, func(i, j int) bool { return phis[i].Var < phis[j].Var })
	}
}

// top returns the live version of name, materializing the implicit entry
// version when the variable has not been assigned yet on this path.
func (t *transformer) top(name string) Value {
	stack := t.stacks[name]
	if len(stack) == 0 {
		v := Value{Var: name, Ver: 0}
		t.stacks[name] = append(stack, v)
		if _, ok := t.out.DefNode[v.String()]; !ok {
			t.out.DefNode[v.String()] = ""
		}
		return v
	}
	return stack[len(stack)-1]
}

func (t *transformer) newVersion(name string) Value {
	t.counters[name]++
	v := Value{Var: name, Ver: t.counters[name]}
	t.stacks[name] = append(t.stacks[name], v)
	return v
}

// rename walks the dominator tree assigning versions.
func (t *transformer) rename(blockID string) {
	g := t.out.Graph
	var pushed []string

	for _, phi := range t.out.Phis[blockID] {
		v := t.newVersion(phi.Var)
		phi.Result = v
		t.out.DefNode[v.String()] = phi.ID
		pushed = append(pushed, phi.Var)
	}

	for _, stmtID := range g.Blocks[blockID].Stmts {
		uses, defs := t.stmtBindings(stmtID)
		for _, u := range uses {
			v := t.top(u.name)
			t.out.UseValues[u.nodeID] = v
			t.out.UsesOf[v.String()] = append(t.out.UsesOf[v.String()], u.nodeID)
			t.out.useOrder = append(t.out.useOrder, u.nodeID)
		}
		for _, d := range defs {
			v := t.newVersion(d.name)
			t.out.DefValues[d.nodeID] = v
			t.out.DefNode[v.String()] = d.nodeID
			pushed = append(pushed, d.name)
		}
	}

	for _, e := range g.Blocks[blockID].Succs {
		for _, phi := range t.out.Phis[e.To] {
			phi.Inputs = append(phi.Inputs, PhiInput{
				Pred:  blockID,
				Value: t.top(phi.Var),
			})
		}
	}

	for _, child := range t.dom.children[blockID] {
		t.rename(child)
	}

	for _, name := range pushed {
		t.stacks[name] = t.stacks[name][:len(t.stacks[name])-1]
	}
}

type binding struct {
	name   string
	nodeID string
}

// stmtBindings extracts the loads and stores of one statement in evaluation
// order. The walk stays within the statement: nested Blocks and nested
// scopes belong to other statements or other CFGs.
func (t *transformer) stmtBindings(stmtID string) (uses, defs []binding) {
	root := t.ix.Node(stmtID)
	if root == nil {
		return nil, nil
	}

	switch root.Kind {
	case schemas.KindFunction, schemas.KindClass:
		// The definition binds its name; the body is a separate scope.
		return nil, []binding{{name: root.AttrString("name"), nodeID: root.ID}}
	case schemas.KindBlock:
		return nil, nil
	}

	t.ix.Walk(root.ID, func(n *schemas.Node) bool {
		if n.ID != root.ID {
			switch n.Kind {
			case schemas.KindBlock, schemas.KindFunction, schemas.KindClass, schemas.KindLambda:
				return false
			}
		}
		if n.Kind == schemas.KindName {
			name := n.AttrString("name")
			switch n.AttrString("ctx") {
			case "load":
				uses = append(uses, binding{name: name, nodeID: n.ID})
			case "store", "param":
				defs = append(defs, binding{name: name, nodeID: n.ID})
			}
		}
		return true
	})
	return uses, defs
}
