// Filename: taint/eval.go
package taint

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lancet/api/schemas"
	"github.com/xkilldash9x/lancet/internal/callgraph"
	"github.com/xkilldash9x/lancet/internal/ssa"
)

// scopeState is the in-flight analysis of one scope.
type scopeState struct {
	art         *FileArtifact
	ssa         *ssa.ScopeSSA
	valTaint    map[string]classMap
	returnTaint classMap
	depth       int
	speculative bool
}

// summary memoizes the return taint of a function under a given parameter
// taint signature.
type summary struct {
	returnTaint classMap
}

// analyzeScope runs forward propagation to a fixpoint over one scope.
// paramTaint seeds the version-0 values of named parameters. Returns the
// scope's return taint.
func (e *Engine) analyzeScope(art *FileArtifact, sc *ssa.ScopeSSA, paramTaint map[string]classMap, depth int, speculative bool) classMap {
	st := &scopeState{
		art:         art,
		ssa:         sc,
		valTaint:    map[string]classMap{},
		returnTaint: classMap{},
		depth:       depth,
		speculative: speculative,
	}
	for name, t := range paramTaint {
		if t.empty() {
			continue
		}
		st.valTaint[name+"@0"] = t.clone()
	}

	g := sc.Graph
	maxIters := 2*len(g.Order) + 2
	for iter := 0; iter < maxIters; iter++ {
		changed := false
		for _, bid := range g.Order {
			block := g.Blocks[bid]
			for _, phi := range sc.Phis[bid] {
				merged := classMap{}
				for _, in := range phi.Inputs {
					merged.merge(st.valTaint[in.Value.String()])
				}
				if merged.empty() {
					continue
				}
				cur := st.valTaint[phi.Result.String()]
				if cur == nil {
					cur = classMap{}
					st.valTaint[phi.Result.String()] = cur
				}
				if cur.merge(merged) {
					changed = true
				}
			}
			for _, stmtID := range block.Stmts {
				if e.evalStmt(st, stmtID) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
		if iter == maxIters-1 {
			e.logger.Debug("Taint fixpoint iteration cap reached",
				zap.String("file", art.File),
				zap.String("scope", g.ScopeRoot))
		}
	}
	return st.returnTaint
}

func (e *Engine) evalStmt(st *scopeState, stmtID string) bool {
	node := st.art.Index.Node(stmtID)
	if node == nil {
		return false
	}
	switch node.Kind {
	case schemas.KindAssign, schemas.KindAugAssign:
		t := e.evalExpr(st, node.AttrString("value_id"))
		if node.Kind == schemas.KindAugAssign {
			t = union(t, e.evalExpr(st, node.AttrString("target_use_id")))
		}
		return e.assignTargets(st, node, stmtID, t)

	case schemas.KindFor:
		// Iterating a tainted collection taints the loop targets.
		t := e.evalExpr(st, node.AttrString("iter_id"))
		return e.assignTargets(st, node, stmtID, t)

	case schemas.KindReturn:
		t := e.evalExpr(st, node.AttrString("value_id"))
		return st.returnTaint.merge(t)

	case schemas.KindFunction, schemas.KindClass, schemas.KindBlock,
		schemas.KindImport, schemas.KindPass, schemas.KindGlobal, schemas.KindNonlocal:
		return false

	default:
		e.evalExpr(st, stmtID)
		return false
	}
}

// assignTargets writes taint into every SSA value the statement defines.
func (e *Engine) assignTargets(st *scopeState, node *schemas.Node, stmtID string, t classMap) bool {
	if t.empty() {
		return false
	}
	stepped := e.extend(t, stmtID)
	changed := false
	for _, targetID := range node.AttrStrings("target_ids") {
		val, ok := st.ssa.DefValues[targetID]
		if !ok {
			continue
		}
		cur := st.valTaint[val.String()]
		if cur == nil {
			cur = classMap{}
			st.valTaint[val.String()] = cur
		}
		if cur.merge(stepped) {
			changed = true
		}
	}
	return changed
}

// evalExpr computes the taint of an expression tree. Unknown operations
// union their operands, so string formatting and concatenation conserve
// taint by default.
func (e *Engine) evalExpr(st *scopeState, nodeID string) classMap {
	if nodeID == "" {
		return nil
	}
	node := st.art.Index.Node(nodeID)
	if node == nil {
		return nil
	}
	switch node.Kind {
	case schemas.KindName:
		if node.AttrString("ctx") != "load" {
			return nil
		}
		if path, ok := nameAsSource(node); ok {
			return e.newSourceTaint(node.ID, path, st.speculative)
		}
		val, ok := st.ssa.UseValues[node.ID]
		if !ok {
			return nil
		}
		return st.valTaint[val.String()]

	case schemas.KindAttr:
		if src, ok := matchSource(node.AttrString("path")); ok {
			return e.newSourceTaint(node.ID, src.Label, st.speculative)
		}
		return e.evalExpr(st, node.AttrString("object_id"))

	case schemas.KindCall:
		return e.evalCall(st, node)

	case schemas.KindLambda:
		return nil

	default:
		// Everything else unions its sub-expressions, skipping nested
		// blocks and scopes.
		var out classMap
		for _, child := range st.art.Index.Children(nodeID) {
			switch child.Kind {
			case schemas.KindBlock, schemas.KindFunction, schemas.KindClass:
				continue
			}
			out = union(out, e.evalExpr(st, child.ID))
		}
		return out
	}
}

// nameAsSource recognizes bare-name sources like sys.argv's module or a
// direct "input" read used as a value rather than called.
func nameAsSource(node *schemas.Node) (string, bool) {
	name := node.AttrString("name")
	if src, ok := matchSource(name); ok && src.Prefix {
		return src.Label, true
	}
	return "", false
}

func (e *Engine) evalCall(st *scopeState, call *schemas.Node) classMap {
	callee := call.AttrString("callee")
	argIDs := call.AttrStrings("arg_ids")

	argTaints := make([]classMap, len(argIDs))
	var merged classMap
	for i, id := range argIDs {
		argTaints[i] = e.evalExpr(st, id)
		merged = union(merged, argTaints[i])
	}

	// Source call: the return value is attacker-controlled.
	if src, ok := matchSource(callee); ok {
		return e.newSourceTaint(call.ID, src.Label, st.speculative)
	}

	// Sanitizer call: clear exactly the listed classes, keep the rest.
	if e.sanitizers.IsSanitizer(callee) {
		return e.applySanitizer(merged, callee, call.ID)
	}

	// Sink check runs before propagation so x = os.popen(cmd) both reports
	// and stays tainted.
	if def, ok := matchSink(callee); ok && !merged.empty() {
		e.reportSink(st, call, def, argIDs, argTaints)
	}

	// Inter-procedural propagation along resolved call edges.
	if res, ok := st.art.Resolutions[call.ID]; ok && len(res.Edges) > 0 {
		var ret classMap
		for _, edge := range res.Edges {
			ret = union(ret, e.callSummary(edge.Target, argTaints, st.depth, st.speculative || edge.Speculative))
		}
		if res.Speculative {
			ret = markSpeculative(ret)
		}
		return union(ret, nil)
	}

	// Unknown callee: taint flows through. str.format, os.path.join and
	// friends all conserve taint this way.
	return e.extend(merged, call.ID)
}

func (e *Engine) applySanitizer(taint classMap, callee, callID string) classMap {
	if taint.empty() {
		return nil
	}
	out := classMap{}
	for class, p := range taint {
		if e.sanitizers.Sanitizes(callee, class) {
			continue
		}
		np := *p
		np.Sanitizers = append(append([]string{}, p.Sanitizers...), callee)
		out[class] = &np
	}
	if out.empty() {
		return nil
	}
	return e.extend(out, callID)
}

func (e *Engine) reportSink(st *scopeState, call *schemas.Node, def SinkDef, argIDs []string, argTaints []classMap) {
	for i, t := range argTaints {
		if t.empty() {
			continue
		}
		for _, class := range def.Classes {
			p, ok := t[class]
			if !ok {
				continue
			}
			e.report(st.art, st, call, def, class, p, argIDs[i], st.speculative)
		}
	}
}

// callSummary analyzes a callee under the caller's argument taint and
// returns its return taint. Summaries are memoized per taint signature;
// recursion and depth overruns degrade to conservative pass-through.
func (e *Engine) callSummary(ref callgraph.FuncRef, argTaints []classMap, depth int, speculative bool) classMap {
	var merged classMap
	for _, t := range argTaints {
		merged = union(merged, t)
	}
	if depth >= e.opts.MaxCallDepth {
		return merged
	}
	loc, ok := e.fnScope[ref.File+"\x00"+ref.NodeID]
	if !ok {
		return merged
	}
	sc := loc.art.ScopeByRoot[ref.NodeID]
	if sc == nil {
		return merged
	}

	params := ref.Params
	args := argTaints
	if ref.Class != "" && len(params) > 0 && params[0] == "self" {
		params = params[1:]
	}
	paramTaint := map[string]classMap{}
	for i, name := range params {
		if i < len(args) && !args[i].empty() {
			paramTaint[name] = args[i]
		}
	}

	key := summaryKey(ref, paramTaint, speculative)
	if s, ok := e.summaries[key]; ok {
		if s == nil {
			// Recursive cycle in progress; contribute nothing extra.
			return nil
		}
		return s.returnTaint
	}
	e.summaries[key] = nil

	ret := e.analyzeScope(loc.art, sc, paramTaint, depth+1, speculative)
	e.summaries[key] = &summary{returnTaint: ret}
	return ret
}

func summaryKey(ref callgraph.FuncRef, paramTaint map[string]classMap, speculative bool) string {
	names := make([]string, 0, len(paramTaint))
	for n := range paramTaint {
		names = append(names, n)
	}
	sort.Strings(names)
	sig := ""
	for _, n := range names {
		classes := make([]string, 0, len(paramTaint[n]))
		for c := range paramTaint[n] {
			classes = append(classes, string(c))
		}
		sort.Strings(classes)
		sig += n + "{" + fmt.Sprint(classes) + "}"
	}
	return fmt.Sprintf("%s|%s|%s|%v", ref.File, ref.NodeID, sig, speculative)
}

func markSpeculative(c classMap) classMap {
	if c.empty() {
		return c
	}
	out := classMap{}
	for class, p := range c {
		np := *p
		np.Speculative = true
		out[class] = &np
	}
	return out
}
