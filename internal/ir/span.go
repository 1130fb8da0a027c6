// Filename: ir/span.go
// Span and identity allocation. Node ids are a pure function of
// (kind, file, position, visitation index): repeated builds over identical
// bytes produce byte-identical ids, which the caching and diffing layers
// depend on.
package ir

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/lancet/api/schemas"
)

// sentinelCoord marks a coordinate tree-sitter could not recover or a node
// synthesized without a source location.
const sentinelCoord = -1

// spanOf converts a tree-sitter node location to an IR span. A nil node
// yields the sentinel span; callers tag such nodes missing_span=true.
func spanOf(file string, node *sitter.Node) schemas.Span {
	if node == nil {
		return sentinelSpan(file)
	}
	start := node.StartPoint()
	end := node.EndPoint()
	return schemas.Span{
		File:      file,
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

func sentinelSpan(file string) schemas.Span {
	return schemas.Span{
		File:      file,
		StartLine: sentinelCoord,
		StartCol:  sentinelCoord,
		EndLine:   sentinelCoord,
		EndCol:    sentinelCoord,
	}
}

// identity allocates deterministic node ids. The visitation index breaks ties
// between distinct nodes sharing a position (e.g. a call and its callee
// attribute starting at the same byte).
type identity struct {
	file  string
	index int
}

func (a *identity) next(kind schemas.NodeKind, span schemas.Span) string {
	idx := a.index
	a.index++
	return fmt.Sprintf("%s:%s:%d:%d:%d", kind, a.file, span.StartLine, span.StartCol, idx)
}
