// Filename: callgraph/resolver.go
package callgraph

import (
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lancet/api/schemas"
)

// CallEdge links a call site to one candidate target.
type CallEdge struct {
	CallID      string
	Target      FuncRef
	Speculative bool
}

// Resolution is the outcome for a single call site.
type Resolution struct {
	CallID      string
	Edges       []CallEdge
	Speculative bool
	Overflow    bool
	Unscannable bool
}

// Resolver ranks candidate targets for unresolved call sites. Candidate
// order is same class hierarchy first, then same-module, then everything
// else, with qualified-name order breaking ties inside each band.
type Resolver struct {
	registry      *Registry
	maxCandidates int
	logger        *zap.Logger
}

func NewResolver(registry *Registry, maxCandidates int, logger *zap.Logger) *Resolver {
	return &Resolver{
		registry:      registry,
		maxCandidates: maxCandidates,
		logger:        logger.Named("call_resolver"),
	}
}

// CallContext describes where a call site sits.
type CallContext struct {
	Module string
	Class  string // enclosing class name, empty outside methods
}

// Resolve classifies one Call node. Direct hits produce a single
// non-speculative edge; method-style calls without a known receiver type
// produce a ranked, capped speculative set; calls with no candidates at all
// are unscannable.
func (r *Resolver) Resolve(call *schemas.Node, ctx CallContext) Resolution {
	res := Resolution{CallID: call.ID}

	if call.AttrBool("dynamic") {
		res.Unscannable = true
		return res
	}

	callee := call.AttrString("callee")
	name := call.AttrString("callee_name")
	base := call.AttrString("callee_base")

	// Qualified path resolved against definitions from this run.
	if ref, ok := r.registry.resolveDotted(callee); ok {
		res.Edges = []CallEdge{{CallID: call.ID, Target: ref}}
		return res
	}
	// Bare name resolved within the caller's module.
	if base == "" {
		if ref, ok := r.registry.lookupQual(ctx.Module + "." + name); ok {
			res.Edges = []CallEdge{{CallID: call.ID, Target: ref}}
			return res
		}
	}
	// self.method() resolved within the enclosing class, then up its base
	// chain for inherited methods.
	if base == "self" && ctx.Class != "" {
		classQual := ctx.Module + "." + ctx.Class
		if ref, ok := r.registry.lookupQual(classQual + "." + name); ok {
			res.Edges = []CallEdge{{CallID: call.ID, Target: ref}}
			return res
		}
		for _, anc := range r.registry.ancestors(classQual) {
			if ref, ok := r.registry.lookupQual(anc + "." + name); ok {
				res.Edges = []CallEdge{{CallID: call.ID, Target: ref}}
				return res
			}
		}
	}

	// Speculative: every definition sharing the method name is a candidate.
	candidates := r.registry.lookupName(name)
	if len(candidates) == 0 {
		res.Unscannable = true
		return res
	}

	hier := map[string]bool{}
	if ctx.Class != "" {
		classQual := ctx.Module + "." + ctx.Class
		hier[classQual] = true
		for _, anc := range r.registry.ancestors(classQual) {
			hier[anc] = true
		}
	}

	ranked := make([]FuncRef, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return r.rank(ranked[i], ctx, hier) < r.rank(ranked[j], ctx, hier)
	})

	res.Speculative = true
	if len(ranked) > r.maxCandidates {
		ranked = ranked[:r.maxCandidates]
		res.Overflow = true
	}
	for _, ref := range ranked {
		res.Edges = append(res.Edges, CallEdge{CallID: call.ID, Target: ref, Speculative: true})
	}
	return res
}

func (r *Resolver) rank(ref FuncRef, ctx CallContext, hier map[string]bool) int {
	switch {
	case ref.Class != "" && hier[ref.Module+"."+ref.Class]:
		return 0
	case ref.Module == ctx.Module:
		return 1
	default:
		return 2
	}
}
