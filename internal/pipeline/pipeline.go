// Filename: pipeline/pipeline.go
// Package pipeline orchestrates a scan: discovery, per-file IR/CFG/SSA
// construction in parallel, cross-file call resolution, taint analysis, and
// result assembly. Per-file failures degrade to skip entries; only
// configuration errors abort the run.
package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/lancet/api/schemas"
	"github.com/xkilldash9x/lancet/internal/callgraph"
	"github.com/xkilldash9x/lancet/internal/cfg"
	"github.com/xkilldash9x/lancet/internal/config"
	"github.com/xkilldash9x/lancet/internal/ir"
	"github.com/xkilldash9x/lancet/internal/sanitize"
	"github.com/xkilldash9x/lancet/internal/ssa"
	"github.com/xkilldash9x/lancet/internal/taint"
)

// Pipeline runs whole scans.
type Pipeline struct {
	cfg        *config.Config
	logger     *zap.Logger
	sanitizers *sanitize.Registry
}

// New validates configuration and loads the sanitizer table.
func New(conf *config.Config, logger *zap.Logger) (*Pipeline, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	sanitizers := sanitize.NewRegistry()
	if conf.Registry.SanitizerTable != "" {
		loaded, err := sanitize.LoadTable(conf.Registry.SanitizerTable)
		if err != nil {
			return nil, err
		}
		sanitizers = loaded
	}
	return &Pipeline{
		cfg:        conf,
		logger:     logger.Named("pipeline"),
		sanitizers: sanitizers,
	}, nil
}

// fileInput is one discovered source file with its raw content.
type fileInput struct {
	path string
	data []byte
	hash string
}

// fileOutcome is the per-file phase result: either an artifact or a skip.
type fileOutcome struct {
	artifact *taint.FileArtifact
	skipped  *schemas.SkippedFile
	reused   bool
}

// Run scans the given roots and returns the aggregate result. A deadline
// expiring mid-run yields a partial result with the unprocessed files marked
// skipped, not an error.
func (p *Pipeline) Run(ctx context.Context, roots []string) (*schemas.Result, error) {
	if p.cfg.Pipeline.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Pipeline.Deadline)
		defer cancel()
	}

	result := &schemas.Result{ScanID: uuid.NewString()}

	paths, preSkipped := p.discover(roots)
	result.Skipped = append(result.Skipped, preSkipped...)

	var manifest *Manifest
	if p.cfg.Pipeline.Incremental {
		m, err := LoadManifest(p.cfg.Pipeline.ManifestPath)
		if err != nil {
			p.logger.Warn("Manifest unreadable; running full scan", zap.Error(err))
			m = newManifest()
		}
		manifest = m
	}

	inputs, readSkipped := p.readAll(ctx, paths)
	result.Skipped = append(result.Skipped, readSkipped...)

	reusable := p.reuseSet(inputs, manifest)

	registry := callgraph.NewRegistry()
	deps := NewDepGraph()
	outcomes := p.buildAll(ctx, inputs, registry, deps, reusable)

	registry.Freeze()
	resolver := callgraph.NewResolver(registry, p.cfg.Analysis.MaxSpeculativeCandidates, p.logger)

	var artifacts []*taint.FileArtifact
	var analyze []*taint.FileArtifact
	perFile := map[string]*schemas.FileResult{}

	for _, in := range inputs {
		out, ok := outcomes[in.path]
		if !ok {
			result.Skipped = append(result.Skipped, schemas.SkippedFile{
				File:   in.path,
				Reason: schemas.SkipDeadline,
			})
			continue
		}
		if out.skipped != nil {
			result.Skipped = append(result.Skipped, *out.skipped)
			continue
		}
		fr := &schemas.FileResult{
			File:        in.path,
			ContentHash: in.hash,
			Findings:    []schemas.Finding{},
			ReusedIR:    out.reused,
		}
		perFile[in.path] = fr
		result.Files = append(result.Files, fr)
		artifacts = append(artifacts, out.artifact)
		if out.reused {
			result.Stats.FilesReused++
			fr.Findings = append(fr.Findings, manifest.Entries[in.path].Findings...)
		} else {
			result.Stats.FilesAnalyzed++
			analyze = append(analyze, out.artifact)
		}
	}

	// Call resolution runs serially in file order after the registry is
	// complete; annotations and synthetic call edges land in each graph.
	for _, art := range artifacts {
		spec, unscannable := p.resolveCalls(art, resolver)
		if fr := perFile[art.File]; fr != nil {
			fr.SpeculativeCalls = spec
			fr.UnscannableCalls = unscannable
		}
		result.Stats.SpeculativeCalls += spec
		result.Stats.UnscannableCalls += unscannable
	}

	engine := taint.NewEngine(p.logger, p.sanitizers, taint.Options{
		MaxPathLength: p.cfg.Analysis.MaxTaintPathLength,
		MaxCallDepth:  p.cfg.Analysis.MaxCallDepth,
	}, artifacts)
	findings, truncated := engine.Run(analyze)
	result.Stats.TruncatedPaths = truncated

	for _, f := range findings {
		if fr := perFile[f.File]; fr != nil {
			fr.Findings = append(fr.Findings, f)
		}
	}
	for _, fr := range result.Files {
		result.Findings = append(result.Findings, fr.Findings...)
	}
	result.Stats.FilesSkipped = len(result.Skipped)

	if p.cfg.Pipeline.Incremental {
		p.saveManifest(manifest, inputs, outcomes, perFile, deps)
	}
	return result, nil
}

// discover walks the roots collecting Python files. Binary artifacts named
// directly as roots become explicit skip entries; inside directory walks
// they are ignored.
func (p *Pipeline) discover(roots []string) ([]string, []schemas.SkippedFile) {
	var paths []string
	var skipped []schemas.SkippedFile
	seen := map[string]bool{}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			skipped = append(skipped, schemas.SkippedFile{
				File:   root,
				Reason: schemas.SkipReadError,
				Detail: err.Error(),
			})
			continue
		}
		if !info.IsDir() {
			if ir.IsBinaryPath(root) {
				skipped = append(skipped, schemas.SkippedFile{File: root, Reason: schemas.SkipBinary})
				continue
			}
			if !seen[root] {
				seen[root] = true
				paths = append(paths, root)
			}
			continue
		}
		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			name := d.Name()
			if d.IsDir() {
				if strings.HasPrefix(name, ".") || name == "__pycache__" || name == "node_modules" || name == "venv" {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(name) == ".py" && !seen[path] {
				seen[path] = true
				paths = append(paths, path)
			}
			return nil
		})
	}
	sort.Strings(paths)
	return paths, skipped
}

// readAll loads and hashes every file under the concurrency limit.
func (p *Pipeline) readAll(ctx context.Context, paths []string) ([]fileInput, []schemas.SkippedFile) {
	inputs := make([]*fileInput, len(paths))
	skips := make([]*schemas.SkippedFile, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			data, err := os.ReadFile(path)
			if err != nil {
				skips[i] = &schemas.SkippedFile{
					File:   path,
					Reason: schemas.SkipReadError,
					Detail: err.Error(),
				}
				return nil
			}
			inputs[i] = &fileInput{path: path, data: data, hash: contentHash(data)}
			return nil
		})
	}
	err := g.Wait()

	var out []fileInput
	var skipped []schemas.SkippedFile
	for i, in := range inputs {
		if in != nil {
			out = append(out, *in)
			continue
		}
		if skips[i] != nil {
			skipped = append(skipped, *skips[i])
		} else if err != nil {
			skipped = append(skipped, schemas.SkippedFile{
				File:   paths[i],
				Reason: schemas.SkipDeadline,
			})
		}
	}
	return out, skipped
}

// reuseSet decides which files can replay cached findings: unchanged hash
// and no changed file among the modules they import.
func (p *Pipeline) reuseSet(inputs []fileInput, manifest *Manifest) map[string]bool {
	reusable := map[string]bool{}
	if manifest == nil {
		return reusable
	}
	hashByModule := map[string]string{}
	for _, in := range inputs {
		mod := strings.TrimSuffix(filepath.Base(in.path), ".py")
		hashByModule[mod] = in.hash
	}

	// Hash-stable files are reuse candidates.
	for _, in := range inputs {
		if entry, ok := manifest.Entries[in.path]; ok && entry.Hash == in.hash {
			reusable[in.path] = true
		}
	}

	// The prior run's import lists give the reverse dependency map; a
	// changed or new module knocks out every file importing it. Modules
	// absent from this scan are external and never invalidate.
	deps := NewDepGraph()
	prevHash := map[string]string{}
	for path, entry := range manifest.Entries {
		deps.RecordImports(path, entry.Imports)
		prevHash[entry.Module] = entry.Hash
	}
	for mod, cur := range hashByModule {
		if prev, ok := prevHash[mod]; ok && prev == cur {
			continue
		}
		for _, file := range deps.Dependents(mod) {
			delete(reusable, file)
		}
	}
	return reusable
}

// buildAll runs the per-file construction phase: gates, IR, CFG, SSA,
// registry and dependency registration.
func (p *Pipeline) buildAll(ctx context.Context, inputs []fileInput, registry *callgraph.Registry, deps *DepGraph, reusable map[string]bool) map[string]*fileOutcome {
	outs := make([]*fileOutcome, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.Concurrency)
	for i := range inputs {
		in := inputs[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			outs[i] = p.buildFile(ctx, in, registry, deps, reusable[in.path])
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		p.logger.Error("File construction phase failed", zap.Error(err))
	}

	outcomes := map[string]*fileOutcome{}
	for i, out := range outs {
		if out != nil {
			outcomes[inputs[i].path] = out
		}
	}
	return outcomes
}

func (p *Pipeline) buildFile(ctx context.Context, in fileInput, registry *callgraph.Registry, deps *DepGraph, reused bool) *fileOutcome {
	if ok, signals := ir.DetectObfuscation(string(in.data)); ok {
		p.logger.Info("Skipping obfuscated file",
			zap.String("file", in.path),
			zap.Strings("signals", signals))
		return &fileOutcome{skipped: &schemas.SkippedFile{
			File:    in.path,
			Reason:  schemas.SkipObfuscated,
			Reasons: signals,
		}}
	}

	builder := ir.NewBuilder(p.logger, p.cfg.Analysis.LiteralCap)
	built, err := builder.Build(ctx, in.path, in.data)
	if err != nil {
		return &fileOutcome{skipped: &schemas.SkippedFile{
			File:   in.path,
			Reason: schemas.SkipParseError,
			Detail: err.Error(),
		}}
	}

	ix := ir.NewIndex(built.Graph)
	cfgs := cfg.NewBuilder(ix, p.logger).BuildAll()

	art := &taint.FileArtifact{
		File:        in.path,
		Module:      built.Module,
		Graph:       built.Graph,
		Index:       ix,
		ScopeByRoot: map[string]*ssa.ScopeSSA{},
		Resolutions: map[string]callgraph.Resolution{},
	}
	for _, g := range cfgs {
		sc := ssa.Transform(ix, g, p.logger)
		art.Scopes = append(art.Scopes, sc)
		art.ScopeByRoot[g.ScopeRoot] = sc
		// Typed CFG edges become part of the serialized graph.
		built.Graph.Edges = append(built.Graph.Edges, g.MirrorEdges()...)
	}

	registry.RegisterFile(in.path, built.Module, built.Graph)
	deps.RecordFile(in.path, built.Graph)
	return &fileOutcome{artifact: art, reused: reused}
}

// resolveCalls classifies every call site in one file and annotates the
// graph. Returns the speculative and unscannable counts.
func (p *Pipeline) resolveCalls(art *taint.FileArtifact, resolver *callgraph.Resolver) (speculative, unscannable int) {
	classOfBlock := map[string]string{}
	for _, n := range art.Graph.Nodes {
		if n.Kind == schemas.KindClass {
			classOfBlock[n.AttrString("body_block_id")] = n.AttrString("name")
		}
	}
	enclosingClass := func(node *schemas.Node) string {
		cur := node
		for cur != nil {
			if c, ok := classOfBlock[cur.ParentID]; ok && cur.Kind == schemas.KindFunction {
				return c
			}
			cur = art.Index.Node(cur.ParentID)
		}
		return ""
	}

	for _, n := range art.Graph.Nodes {
		if n.Kind != schemas.KindCall {
			continue
		}
		res := resolver.Resolve(n, callgraph.CallContext{
			Module: art.Module,
			Class:  enclosingClass(n),
		})
		art.Resolutions[n.ID] = res

		if res.Unscannable {
			n.Attrs["unscannable"] = true
			unscannable++
		}
		if res.Speculative {
			speculative++
		}
		if res.Overflow {
			n.Attrs["speculative_overflow"] = true
		}
		for _, edge := range res.Edges {
			typ := schemas.EdgeCall
			art.Graph.Edges = append(art.Graph.Edges, schemas.Edge{
				From:    n.ID,
				To:      edge.Target.NodeID,
				Type:    typ,
				GuardID: "",
			})
		}
	}
	return speculative, unscannable
}

func (p *Pipeline) saveManifest(manifest *Manifest, inputs []fileInput, outcomes map[string]*fileOutcome, perFile map[string]*schemas.FileResult, deps *DepGraph) {
	if manifest == nil {
		manifest = newManifest()
	}
	for _, in := range inputs {
		out := outcomes[in.path]
		if out == nil || out.artifact == nil {
			continue
		}
		fr := perFile[in.path]
		findings := []schemas.Finding{}
		if fr != nil {
			findings = fr.Findings
		}
		manifest.Entries[in.path] = ManifestEntry{
			Hash:     in.hash,
			Module:   out.artifact.Module,
			Imports:  deps.Imports(in.path),
			Findings: findings,
		}
	}
	if err := manifest.Save(p.cfg.Pipeline.ManifestPath); err != nil {
		p.logger.Warn("Failed to persist manifest", zap.Error(err))
	}
}
