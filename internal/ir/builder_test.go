package ir

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/lancet/api/schemas"
)

// -- Test Helpers --

func buildGraph(t *testing.T, code string) *Result {
	t.Helper()
	b := NewBuilder(zaptest.NewLogger(t), 200)
	res, err := b.Build(context.Background(), "app.py", []byte(code))
	require.NoError(t, err)
	return res
}

func nodesOfKind(g *schemas.Graph, kind schemas.NodeKind) []*schemas.Node {
	var out []*schemas.Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// -- Tests --

func TestBuildDeterministic(t *testing.T) {
	t.Parallel()
	code := `
import os

def run(cmd):
    if cmd:
        os.system(cmd)
    return 0
`
	a := buildGraph(t, code)
	b := buildGraph(t, code)
	if diff := cmp.Diff(a.Graph, b.Graph); diff != "" {
		t.Errorf("Graphs differ between identical builds:\n%s", diff)
	}
}

func TestNodeIDShape(t *testing.T) {
	t.Parallel()
	res := buildGraph(t, "x = 1\n")
	for _, n := range res.Graph.Nodes {
		parts := strings.Split(n.ID, ":")
		require.GreaterOrEqual(t, len(parts), 5, "id %q should carry kind:file:line:col:index", n.ID)
		require.Equal(t, string(n.Kind), parts[0])
	}
}

func TestModuleOwnsTopLevelBlock(t *testing.T) {
	t.Parallel()
	res := buildGraph(t, "a = 1\nb = a\n")
	mods := nodesOfKind(res.Graph, schemas.KindModule)
	require.Len(t, mods, 1)
	require.Equal(t, "app", mods[0].AttrString("name"))

	blockID := mods[0].AttrString("body_block_id")
	require.NotEmpty(t, blockID)
	block := res.Graph.NodeByID(blockID)
	require.NotNil(t, block)
	require.Equal(t, string(schemas.BlockModule), block.AttrString("label"))
	require.Len(t, block.AttrStrings("stmt_ids"), 2)
}

func TestFlowEdgesLinkAdjacentStatements(t *testing.T) {
	t.Parallel()
	res := buildGraph(t, "a = 1\nb = 2\nc = 3\n")
	flow := 0
	for _, e := range res.Graph.Edges {
		if e.Type == schemas.EdgeFlow {
			flow++
		}
	}
	require.Equal(t, 2, flow, "three statements need exactly two flow edges")
}

func TestImportAliasCanonicalizesCallee(t *testing.T) {
	t.Parallel()
	res := buildGraph(t, `
import subprocess as sp
from os import system

sp.call("ls")
system("ls")
`)
	calls := nodesOfKind(res.Graph, schemas.KindCall)
	require.Len(t, calls, 2)
	require.Equal(t, "subprocess.call", calls[0].AttrString("callee"))
	require.Equal(t, "os.system", calls[1].AttrString("callee"))
}

func TestAssignmentRecordsDefsAndUses(t *testing.T) {
	t.Parallel()
	res := buildGraph(t, "x = 1\ny = x\n")
	var xSym *schemas.Symbol
	for _, s := range res.Graph.Symbols {
		if s.Name == "x" {
			xSym = s
		}
	}
	require.NotNil(t, xSym)
	require.Len(t, xSym.Defs, 1)
	require.Len(t, xSym.Uses, 1)
}

func TestDocstringSkipped(t *testing.T) {
	t.Parallel()
	res := buildGraph(t, `
def f():
    """Docs live here."""
    return 1
`)
	fns := nodesOfKind(res.Graph, schemas.KindFunction)
	require.Len(t, fns, 1)
	body := res.Graph.NodeByID(fns[0].AttrString("body_block_id"))
	require.NotNil(t, body)
	require.Len(t, body.AttrStrings("stmt_ids"), 1, "docstring must not appear as a statement")
}

func TestUnsupportedStatementDegradesToTaggedLiteral(t *testing.T) {
	t.Parallel()
	res := buildGraph(t, `
match command:
    case "go":
        pass
x = 1
`)
	tagged := 0
	for _, n := range res.Graph.Nodes {
		if n.AttrBool("unsupported") {
			tagged++
		}
	}
	require.Greater(t, tagged, 0, "unsupported construct should be tagged, not dropped")

	// The rest of the module still builds.
	assigns := nodesOfKind(res.Graph, schemas.KindAssign)
	require.NotEmpty(t, assigns)
}

func TestLongLiteralTruncatedWithHash(t *testing.T) {
	t.Parallel()
	payload := strings.Repeat("A", 600)
	res := buildGraph(t, "s = \""+payload+"\"\n")
	var lit *schemas.Node
	for _, n := range nodesOfKind(res.Graph, schemas.KindLiteral) {
		if n.AttrBool("truncated") {
			lit = n
		}
	}
	require.NotNil(t, lit)
	require.Len(t, lit.AttrString("value"), 200)
	require.Len(t, lit.AttrString("value_hash"), 64)
}

func TestAugmentedAssignmentReadsTarget(t *testing.T) {
	t.Parallel()
	res := buildGraph(t, "x = 1\nx += 2\n")
	augs := nodesOfKind(res.Graph, schemas.KindAugAssign)
	require.Len(t, augs, 1)
	require.NotEmpty(t, augs[0].AttrString("target_use_id"))
}

func TestAsyncConstructsTagged(t *testing.T) {
	t.Parallel()
	res := buildGraph(t, `
async def fetch(url):
    data = await get(url)
    return data
`)
	fns := nodesOfKind(res.Graph, schemas.KindFunction)
	require.Len(t, fns, 1)
	require.True(t, fns[0].AttrBool("is_async"))

	awaits := nodesOfKind(res.Graph, schemas.KindAwait)
	require.Len(t, awaits, 1)

	assigns := nodesOfKind(res.Graph, schemas.KindAssign)
	require.Len(t, assigns, 1)
	require.True(t, assigns[0].AttrBool("has_await"))
}

func TestClassRecordsMethodsAndBases(t *testing.T) {
	t.Parallel()
	res := buildGraph(t, `
class Handler(Base):
    def process(self, data):
        return data

    def shutdown(self):
        pass
`)
	classes := nodesOfKind(res.Graph, schemas.KindClass)
	require.Len(t, classes, 1)
	require.Equal(t, []string{"Base"}, classes[0].AttrStrings("bases"))
	require.Equal(t, []string{"process", "shutdown"}, classes[0].AttrStrings("methods"))
}
