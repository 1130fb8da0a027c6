// Filename: taint/engine.go
// The taint engine runs forward propagation over SSA values, follows
// resolved and speculative call edges under a depth cap, and confirms each
// candidate finding with a backward walk from the sink to the source before
// emitting it.
package taint

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lancet/api/schemas"
	"github.com/xkilldash9x/lancet/internal/callgraph"
	"github.com/xkilldash9x/lancet/internal/ir"
	"github.com/xkilldash9x/lancet/internal/sanitize"
	"github.com/xkilldash9x/lancet/internal/ssa"
)

// FileArtifact bundles everything the engine needs about one analyzed file.
type FileArtifact struct {
	File        string
	Module      string
	Graph       *schemas.Graph
	Index       *ir.Index
	Scopes      []*ssa.ScopeSSA
	ScopeByRoot map[string]*ssa.ScopeSSA
	Resolutions map[string]callgraph.Resolution
}

// Options bound the engine's exploration.
type Options struct {
	MaxPathLength int
	MaxCallDepth  int
}

// Engine is a whole-run analysis over every file artifact.
type Engine struct {
	logger     *zap.Logger
	sanitizers *sanitize.Registry
	opts       Options

	artifacts map[string]*FileArtifact
	// fnScope locates the artifact and scope of a function definition.
	fnScope map[string]fnLocation

	findings  map[string]schemas.Finding
	summaries map[string]*summary
	truncated int
}

type fnLocation struct {
	art  *FileArtifact
	root string
}

// NewEngine builds an engine over the full artifact set.
func NewEngine(logger *zap.Logger, sanitizers *sanitize.Registry, opts Options, artifacts []*FileArtifact) *Engine {
	e := &Engine{
		logger:     logger.Named("taint_engine"),
		sanitizers: sanitizers,
		opts:       opts,
		artifacts:  map[string]*FileArtifact{},
		fnScope:    map[string]fnLocation{},
		findings:   map[string]schemas.Finding{},
		summaries:  map[string]*summary{},
	}
	for _, a := range artifacts {
		e.artifacts[a.File] = a
		for root := range a.ScopeByRoot {
			e.fnScope[a.File+"\x00"+root] = fnLocation{art: a, root: root}
		}
	}
	return e
}

// Run analyzes every scope of every file and returns findings in a stable
// order, plus the count of truncated taint paths.
func (e *Engine) Run(artifacts []*FileArtifact) ([]schemas.Finding, int) {
	for _, art := range artifacts {
		for _, scope := range art.Scopes {
			e.analyzeScope(art, scope, nil, 0, false)
		}
	}

	out := make([]schemas.Finding, 0, len(e.findings))
	for _, f := range e.findings {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		if out[i].Column != out[j].Column {
			return out[i].Column < out[j].Column
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out, e.truncated
}

// -- Taint lattice --

// prov tracks where a tainted value came from and how it got here.
type prov struct {
	SourceID    string
	SourceLabel string
	Path        []string
	Speculative bool
	Truncated   bool
	Sanitizers  []string
}

// classMap is the per-value taint state: one provenance per live class.
type classMap map[schemas.VulnClass]*prov

func (c classMap) empty() bool { return len(c) == 0 }

func (c classMap) clone() classMap {
	if c == nil {
		return nil
	}
	out := make(classMap, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// merge unions other into c, keeping c's provenance on conflict. Reports
// whether c changed.
func (c classMap) merge(other classMap) bool {
	changed := false
	for k, v := range other {
		if _, ok := c[k]; !ok {
			c[k] = v
			changed = true
		}
	}
	return changed
}

func union(a, b classMap) classMap {
	if a.empty() {
		return b.clone()
	}
	out := a.clone()
	out.merge(b)
	return out
}

var allClasses = []schemas.VulnClass{
	schemas.ClassXSS, schemas.ClassSQLI, schemas.ClassCMDI,
	schemas.ClassPath, schemas.ClassURL, schemas.ClassCode,
}

// newSourceTaint taints every class; sanitizers narrow it per class later.
func (e *Engine) newSourceTaint(nodeID, label string, speculative bool) classMap {
	p := &prov{SourceID: nodeID, SourceLabel: label, Path: []string{nodeID}, Speculative: speculative}
	out := make(classMap, len(allClasses))
	for _, c := range allClasses {
		out[c] = p
	}
	return out
}

// extend appends a step to every provenance path, marking truncation once
// the configured cap is hit.
func (e *Engine) extend(c classMap, nodeID string) classMap {
	if c.empty() {
		return nil
	}
	out := make(classMap, len(c))
	extended := map[*prov]*prov{}
	for class, p := range c {
		np, ok := extended[p]
		if !ok {
			np = &prov{
				SourceID:    p.SourceID,
				SourceLabel: p.SourceLabel,
				Speculative: p.Speculative,
				Truncated:   p.Truncated,
				Sanitizers:  p.Sanitizers,
			}
			if len(p.Path) >= e.opts.MaxPathLength {
				if !np.Truncated {
					np.Truncated = true
					e.truncated++
				}
				np.Path = p.Path
			} else {
				np.Path = append(append([]string{}, p.Path...), nodeID)
			}
			extended[p] = np
		}
		out[class] = np
	}
	return out
}

// -- Findings --

func ruleID(class schemas.VulnClass) string {
	return "PY.TAINT." + strings.ToUpper(string(class))
}

func (e *Engine) report(art *FileArtifact, st *scopeState, sink *schemas.Node, def SinkDef, class schemas.VulnClass, p *prov, sinkArgID string, speculative bool) {
	confirmed, exhausted := e.confirmBackward(art, st, sinkArgID, p)
	if !confirmed && !exhausted {
		// The backward walk ran to completion without reaching the source:
		// the two passes disagree and the forward result is discarded.
		return
	}

	conf := schemas.ConfidenceHigh
	switch {
	case !confirmed:
		conf = schemas.ConfidenceLow
	case speculative || p.Speculative || p.Truncated:
		conf = schemas.ConfidenceMedium
	}

	f := schemas.Finding{
		RuleID:          ruleID(class),
		Class:           class,
		File:            art.File,
		Line:            sink.Span.StartLine,
		Column:          sink.Span.StartCol,
		SourceLabel:     p.SourceLabel,
		SinkLabel:       def.Label,
		SanitizersFound: p.Sanitizers,
		PathLength:      len(p.Path),
		Confidence:      conf,
		Speculative:     speculative || p.Speculative,
		Truncated:       p.Truncated,
	}

	key := fmt.Sprintf("%s|%s|%s", f.RuleID, sink.ID, p.SourceID)
	if prev, ok := e.findings[key]; ok && confidenceRank(prev.Confidence) >= confidenceRank(f.Confidence) {
		return
	}
	e.findings[key] = f
}

func confidenceRank(c schemas.Confidence) int {
	switch c {
	case schemas.ConfidenceHigh:
		return 2
	case schemas.ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// confirmBackward re-derives the flow by walking def chains from the sink
// argument's value back toward the recorded source. confirmed reports
// whether the source was reached; exhausted reports whether the walk was cut
// off by the path budget before it could finish. A walk that completes
// unconfirmed and unexhausted means the passes disagree.
func (e *Engine) confirmBackward(art *FileArtifact, st *scopeState, sinkArgID string, p *prov) (confirmed, exhausted bool) {
	if p.SourceID == "" {
		return false, false
	}
	visited := map[string]bool{}
	budget := e.opts.MaxPathLength

	var walkValue func(val ssa.Value) bool
	var walkExpr func(nodeID string) bool

	walkExpr = func(nodeID string) bool {
		if budget <= 0 {
			exhausted = true
			return false
		}
		if nodeID == "" || visited[nodeID] {
			return false
		}
		visited[nodeID] = true
		budget--
		if nodeID == p.SourceID {
			return true
		}
		n := art.Index.Node(nodeID)
		if n == nil {
			return false
		}
		// Sources can match structurally too: the recorded node may be an
		// Attr inside this expression.
		found := false
		art.Index.Walk(nodeID, func(c *schemas.Node) bool {
			if c.ID == p.SourceID {
				found = true
				return false
			}
			switch c.Kind {
			case schemas.KindBlock, schemas.KindFunction, schemas.KindClass:
				return false
			}
			if c.Kind == schemas.KindName && c.AttrString("ctx") == "load" {
				if val, ok := st.ssa.UseValues[c.ID]; ok {
					if walkValue(val) {
						found = true
						return false
					}
				}
			}
			return true
		})
		return found
	}

	walkValue = func(val ssa.Value) bool {
		if budget <= 0 {
			exhausted = true
			return false
		}
		key := "v:" + val.String()
		if visited[key] {
			return false
		}
		visited[key] = true
		if val.Ver == 0 {
			return true // entered the scope from outside
		}
		defID := st.ssa.DefNode[val.String()]
		if defID == "" {
			return false
		}
		if phi, ok := st.ssa.PhiByID[defID]; ok {
			for _, in := range phi.Inputs {
				if walkValue(in.Value) {
					return true
				}
			}
			return false
		}
		def := art.Index.Node(defID)
		if def == nil {
			return false
		}
		// A store Name's assigned value lives on the enclosing statement.
		parent := art.Index.Node(def.ParentID)
		if parent == nil {
			return false
		}
		switch parent.Kind {
		case schemas.KindAssign, schemas.KindAugAssign:
			return walkExpr(parent.AttrString("value_id"))
		case schemas.KindFor:
			return walkExpr(parent.AttrString("iter_id"))
		default:
			return walkExpr(parent.ID)
		}
	}

	confirmed = walkExpr(sinkArgID)
	if confirmed {
		exhausted = false
	}
	return confirmed, exhausted
}
