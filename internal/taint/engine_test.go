// Filename: taint/engine_test.go
package taint

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/lancet/api/schemas"
	"github.com/xkilldash9x/lancet/internal/callgraph"
	"github.com/xkilldash9x/lancet/internal/cfg"
	"github.com/xkilldash9x/lancet/internal/ir"
	"github.com/xkilldash9x/lancet/internal/sanitize"
	"github.com/xkilldash9x/lancet/internal/ssa"
)

// -- Test Helpers --

func defaultOpts() Options {
	return Options{MaxPathLength: 50, MaxCallDepth: 5}
}

// analyze runs the per-file build chain and the engine over a set of
// sources, mirroring what the pipeline does for a real scan.
func analyze(t *testing.T, files map[string]string, opts Options) ([]schemas.Finding, int) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	registry := callgraph.NewRegistry()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var arts []*FileArtifact
	for _, file := range names {
		res, err := ir.NewBuilder(logger, 200).Build(context.Background(), file, []byte(files[file]))
		require.NoError(t, err)
		ix := ir.NewIndex(res.Graph)
		art := &FileArtifact{
			File:        file,
			Module:      res.Module,
			Graph:       res.Graph,
			Index:       ix,
			ScopeByRoot: map[string]*ssa.ScopeSSA{},
			Resolutions: map[string]callgraph.Resolution{},
		}
		for _, g := range cfg.NewBuilder(ix, logger).BuildAll() {
			sc := ssa.Transform(ix, g, logger)
			art.Scopes = append(art.Scopes, sc)
			art.ScopeByRoot[g.ScopeRoot] = sc
		}
		registry.RegisterFile(file, res.Module, res.Graph)
		arts = append(arts, art)
	}
	registry.Freeze()

	resolver := callgraph.NewResolver(registry, 8, logger)
	for _, art := range arts {
		resolveArtifact(art, resolver)
	}

	eng := NewEngine(logger, sanitize.NewRegistry(), opts, arts)
	return eng.Run(arts)
}

func resolveArtifact(art *FileArtifact, resolver *callgraph.Resolver) {
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
		art.Resolutions[n.ID] = resolver.Resolve(n, callgraph.CallContext{
			Module: art.Module,
			Class:  enclosingClass(n),
		})
	}
}

func findingsFor(findings []schemas.Finding, rule string) []schemas.Finding {
	var out []schemas.Finding
	for _, f := range findings {
		if f.RuleID == rule {
			out = append(out, f)
		}
	}
	return out
}

// -- Tests --

func TestCommandInjectionFromInput(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import os
cmd = input()
os.system(cmd)
`,
	}, defaultOpts())

	cmdi := findingsFor(findings, "PY.TAINT.CMDI")
	require.Len(t, cmdi, 1)
	f := cmdi[0]
	require.Equal(t, schemas.ClassCMDI, f.Class)
	require.Equal(t, "app.py", f.File)
	require.Equal(t, "builtins.input", f.SourceLabel)
	require.Equal(t, "os.system", f.SinkLabel)
	require.Equal(t, schemas.ConfidenceHigh, f.Confidence)
	require.Positive(t, f.PathLength)
}

func TestConstantArgumentProducesNoFinding(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import os
os.system("ls -la")
`,
	}, defaultOpts())
	require.Empty(t, findings)
}

func TestSanitizerClearsOnlyMatchingClass(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import html
data = input()
clean = html.escape(data)
cursor.execute(clean)
`,
	}, defaultOpts())

	// html.escape stops XSS; the SQL injection class survives it.
	sqli := findingsFor(findings, "PY.TAINT.SQLI")
	require.Len(t, sqli, 1)
	require.Equal(t, "cursor.execute", sqli[0].SinkLabel)
	require.Contains(t, sqli[0].SanitizersFound, "html.escape")
	require.Empty(t, findingsFor(findings, "PY.TAINT.XSS"))
}

func TestSanitizerBlocksItsOwnClass(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import html
from flask import render_template_string
data = input()
clean = html.escape(data)
render_template_string(clean)
`,
	}, defaultOpts())
	require.Empty(t, findingsFor(findings, "PY.TAINT.XSS"))
}

func TestImportAliasStillMatchesSink(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import subprocess as sp
cmd = input()
sp.call(cmd)
`,
	}, defaultOpts())
	cmdi := findingsFor(findings, "PY.TAINT.CMDI")
	require.Len(t, cmdi, 1)
	require.Equal(t, "subprocess.call", cmdi[0].SinkLabel)
}

func TestTaintSurvivesStringConcatenation(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import os
name = input()
cmd = "cat " + name
os.system(cmd)
`,
	}, defaultOpts())
	require.Len(t, findingsFor(findings, "PY.TAINT.CMDI"), 1)
}

func TestBranchMergeKeepsTaintFromEitherArm(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import os
def f(cond):
    x = "safe"
    if cond:
        x = input()
    os.system(x)
`,
	}, defaultOpts())
	require.Len(t, findingsFor(findings, "PY.TAINT.CMDI"), 1)
}

func TestInterproceduralReturnFlow(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import os

def read_command():
    return input()

def run():
    cmd = read_command()
    os.system(cmd)
`,
	}, defaultOpts())

	cmdi := findingsFor(findings, "PY.TAINT.CMDI")
	require.Len(t, cmdi, 1)
	require.Equal(t, schemas.ConfidenceHigh, cmdi[0].Confidence)
	require.Equal(t, "builtins.input", cmdi[0].SourceLabel)
}

func TestInterproceduralParameterFlow(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import os

def launch(cmd):
    os.system(cmd)

def main():
    launch(input())
`,
	}, defaultOpts())

	cmdi := findingsFor(findings, "PY.TAINT.CMDI")
	require.Len(t, cmdi, 1)
}

func TestSpeculativeEdgeLowersConfidence(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"worker.py": `
import os

class Worker:
    def process(self, data):
        os.system(data)
`,
		"main.py": `
job.process(input())
`,
	}, defaultOpts())

	cmdi := findingsFor(findings, "PY.TAINT.CMDI")
	require.Len(t, cmdi, 1)
	require.Equal(t, "worker.py", cmdi[0].File)
	require.True(t, cmdi[0].Speculative)
	require.Equal(t, schemas.ConfidenceMedium, cmdi[0].Confidence)
}

func TestFlaskRequestSourceToSQLSink(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"views.py": `
from flask import request

def lookup(db):
    uid = request.args.get("id")
    cur = db.cursor()
    cur.execute("SELECT * FROM users WHERE id = " + uid)
`,
	}, defaultOpts())

	sqli := findingsFor(findings, "PY.TAINT.SQLI")
	require.Len(t, sqli, 1)
	require.Equal(t, "flask.request", sqli[0].SourceLabel)
}

func TestPathTruncationCountsAndMarks(t *testing.T) {
	findings, truncated := analyze(t, map[string]string{
		"app.py": `
import os
a = input()
b = a
c = b
os.system(c)
`,
	}, Options{MaxPathLength: 2, MaxCallDepth: 5})

	cmdi := findingsFor(findings, "PY.TAINT.CMDI")
	require.Len(t, cmdi, 1)
	require.True(t, cmdi[0].Truncated)
	require.NotEqual(t, schemas.ConfidenceHigh, cmdi[0].Confidence)
	require.Positive(t, truncated)
}

func TestRecursionTerminates(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import os

def ping(x):
    os.system(x)
    return ping(x)

def main():
    ping(input())
`,
	}, defaultOpts())
	// The cycle must not hang, and the sink inside it still fires.
	require.Len(t, findingsFor(findings, "PY.TAINT.CMDI"), 1)
}

func TestFindingsSortedByLocation(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"a.py": "import os\nos.system(input())\n",
		"b.py": "import os\nos.system(input())\n",
	}, defaultOpts())

	require.Len(t, findings, 2)
	require.Equal(t, "a.py", findings[0].File)
	require.Equal(t, "b.py", findings[1].File)
}

func TestLoopIterationOverTaintedCollection(t *testing.T) {
	findings, _ := analyze(t, map[string]string{
		"app.py": `
import os
import sys

for arg in sys.argv:
    os.system(arg)
`,
	}, defaultOpts())
	require.Len(t, findingsFor(findings, "PY.TAINT.CMDI"), 1)
}

// buildArtifact runs the per-file chain without the resolver, for tests that
// poke at the engine's confirmation walk directly.
func buildArtifact(t *testing.T, file, code string) *FileArtifact {
	t.Helper()
	logger := zaptest.NewLogger(t)
	res, err := ir.NewBuilder(logger, 200).Build(context.Background(), file, []byte(code))
	require.NoError(t, err)
	ix := ir.NewIndex(res.Graph)
	art := &FileArtifact{
		File:        file,
		Module:      res.Module,
		Graph:       res.Graph,
		Index:       ix,
		ScopeByRoot: map[string]*ssa.ScopeSSA{},
		Resolutions: map[string]callgraph.Resolution{},
	}
	for _, g := range cfg.NewBuilder(ix, logger).BuildAll() {
		sc := ssa.Transform(ix, g, logger)
		art.Scopes = append(art.Scopes, sc)
		art.ScopeByRoot[g.ScopeRoot] = sc
	}
	return art
}

func sinkArgOf(t *testing.T, art *FileArtifact, callee string) string {
	t.Helper()
	for _, n := range art.Graph.Nodes {
		if n.Kind == schemas.KindCall && n.AttrString("callee") == callee {
			args := n.AttrStrings("arg_ids")
			require.NotEmpty(t, args)
			return args[0]
		}
	}
	t.Fatalf("no call to %s", callee)
	return ""
}

func TestBackwardWalkDisagreementSuppressesFinding(t *testing.T) {
	art := buildArtifact(t, "app.py", `
import os
safe = "constant"
os.system(safe)
`)
	eng := NewEngine(zaptest.NewLogger(t), sanitize.NewRegistry(), defaultOpts(), []*FileArtifact{art})
	st := &scopeState{art: art, ssa: art.Scopes[0], valTaint: map[string]classMap{}}

	// The claimed source sits nowhere on the argument's def chain, so the
	// walk completes without reaching it and without spending its budget.
	p := &prov{SourceID: art.Graph.Nodes[0].ID, SourceLabel: "builtins.input", Path: []string{art.Graph.Nodes[0].ID}}
	confirmed, exhausted := eng.confirmBackward(art, st, sinkArgOf(t, art, "os.system"), p)
	require.False(t, confirmed)
	require.False(t, exhausted)

	eng.report(art, st, art.Index.Node(sinkArgOf(t, art, "os.system")), SinkDef{Label: "os.system"}, schemas.ClassCMDI, p, sinkArgOf(t, art, "os.system"), false)
	require.Empty(t, eng.findings, "an unconfirmed, unexhausted walk must not produce a finding")
}

func TestBackwardWalkBudgetExhaustionKeepsFindingAtLow(t *testing.T) {
	art := buildArtifact(t, "app.py", `
import os
a = input()
b = a
c = b
os.system(c)
`)
	eng := NewEngine(zaptest.NewLogger(t), sanitize.NewRegistry(), Options{MaxPathLength: 2, MaxCallDepth: 5}, []*FileArtifact{art})
	st := &scopeState{art: art, ssa: art.Scopes[0], valTaint: map[string]classMap{}}

	p := &prov{SourceID: art.Graph.Nodes[0].ID, SourceLabel: "builtins.input", Path: []string{art.Graph.Nodes[0].ID}}
	confirmed, exhausted := eng.confirmBackward(art, st, sinkArgOf(t, art, "os.system"), p)
	require.False(t, confirmed)
	require.True(t, exhausted, "budget must run out before the chain ends")

	eng.report(art, st, art.Index.Node(sinkArgOf(t, art, "os.system")), SinkDef{Label: "os.system"}, schemas.ClassCMDI, p, sinkArgOf(t, art, "os.system"), false)
	require.Len(t, eng.findings, 1)
	for _, f := range eng.findings {
		require.Equal(t, schemas.ConfidenceLow, f.Confidence)
	}
}
