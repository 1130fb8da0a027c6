// Filename: ir/index_test.go
package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/lancet/api/schemas"
)

func TestIndexResolvesNodesAndChildren(t *testing.T) {
	res := buildGraph(t, "x = 1\ny = x + 1\n")
	ix := NewIndex(res.Graph)

	root := ix.Node(res.Root)
	require.NotNil(t, root)
	require.Equal(t, schemas.KindModule, root.Kind)

	kids := ix.Children(root.ID)
	require.NotEmpty(t, kids)
	require.Equal(t, schemas.KindBlock, kids[0].Kind)

	require.Nil(t, ix.Node("missing:id"))
	require.Empty(t, ix.Children("missing:id"))
}

func TestWalkStopsDescendingOnFalse(t *testing.T) {
	res := buildGraph(t, `
def f():
    hidden = 1
x = 2
`)
	ix := NewIndex(res.Graph)

	sawHidden := false
	sawAssignOutside := false
	ix.Walk(res.Root, func(n *schemas.Node) bool {
		if n.Kind == schemas.KindFunction {
			return false
		}
		if n.Kind == schemas.KindName && n.AttrString("name") == "hidden" {
			sawHidden = true
		}
		if n.Kind == schemas.KindName && n.AttrString("name") == "x" {
			sawAssignOutside = true
		}
		return true
	})
	require.False(t, sawHidden, "pruned subtree must not be visited")
	require.True(t, sawAssignOutside)
}

func TestSymbolTableTracksDefsAndUses(t *testing.T) {
	res := buildGraph(t, "x = 1\ny = x\n")
	ix := NewIndex(res.Graph)

	var load *schemas.Node
	for _, n := range res.Graph.Nodes {
		if n.Kind == schemas.KindName && n.AttrString("name") == "x" && n.AttrString("ctx") == "load" {
			load = n
		}
	}
	require.NotNil(t, load)

	sym := ix.Symbol(load.ScopeID, "x")
	require.NotNil(t, sym)
	require.Len(t, sym.Defs, 1)
	require.Len(t, sym.Uses, 1)
	require.Equal(t, load.ID, sym.Uses[0])
}
