// Package schemas defines the data transfer objects shared between the
// analysis core and its external consumers (reporting, graph visualization,
// incremental diffing). Everything here is plain data: construction and
// invariant enforcement live in the internal packages.
package schemas

// Span locates a syntactic unit inside its source file. Sentinel value -1 is
// used for coordinates tree-sitter could not recover; such nodes also carry
// the missing_span attr.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// NodeKind is the fixed vocabulary of IR node kinds.
type NodeKind string

const (
	KindModule    NodeKind = "Module"
	KindFunction  NodeKind = "Function"
	KindClass     NodeKind = "Class"
	KindBlock     NodeKind = "Block"
	KindAssign    NodeKind = "Assign"
	KindIf        NodeKind = "If"
	KindWhile     NodeKind = "While"
	KindFor       NodeKind = "For"
	KindTry       NodeKind = "Try"
	KindWith      NodeKind = "With"
	KindReturn    NodeKind = "Return"
	KindRaise     NodeKind = "Raise"
	KindImport    NodeKind = "Import"
	KindBreak     NodeKind = "Break"
	KindContinue  NodeKind = "Continue"
	KindCall      NodeKind = "Call"
	KindName      NodeKind = "Name"
	KindAttr      NodeKind = "Attribute"
	KindLiteral   NodeKind = "Literal"
	KindBinOp     NodeKind = "BinOp"
	KindBoolOp    NodeKind = "BoolOp"
	KindUnaryOp   NodeKind = "UnaryOp"
	KindCompare   NodeKind = "Compare"
	KindAwait     NodeKind = "Await"
	KindYield     NodeKind = "Yield"
	KindLambda    NodeKind = "Lambda"
	KindIfExp     NodeKind = "IfExp"
	KindSubscr    NodeKind = "Subscript"
	KindPass      NodeKind = "Pass"
	KindAugAssign NodeKind = "AugAssign"
	KindDelete    NodeKind = "Delete"
	KindAssert    NodeKind = "Assert"
	KindGlobal    NodeKind = "Global"
	KindNonlocal  NodeKind = "Nonlocal"
)

// EdgeType is the fixed vocabulary of IR/CFG edge types.
type EdgeType string

const (
	EdgeFlow      EdgeType = "flow"
	EdgeTrue      EdgeType = "true"
	EdgeFalse     EdgeType = "false"
	EdgeException EdgeType = "exception"
	EdgeCall      EdgeType = "call"
	EdgeReturn    EdgeType = "return"
	EdgeAwait     EdgeType = "await"
	EdgeYield     EdgeType = "yield"
	EdgeBreak     EdgeType = "break"
	EdgeContinue  EdgeType = "continue"
)

// BlockLabel classifies the role of a synthetic Block node within its owning
// control construct.
type BlockLabel string

const (
	BlockBody    BlockLabel = "body"
	BlockOrelse  BlockLabel = "orelse"
	BlockHandler BlockLabel = "handler"
	BlockFinally BlockLabel = "finally"
	BlockLoop    BlockLabel = "loop"
	BlockModule  BlockLabel = "module"
	BlockExit    BlockLabel = "exit"
)

// SymbolKind classifies a symbol table entry.
type SymbolKind string

const (
	SymVar      SymbolKind = "var"
	SymParam    SymbolKind = "param"
	SymFunction SymbolKind = "function"
	SymClass    SymbolKind = "class"
	SymImport   SymbolKind = "import"
)

// Node is a single typed IR node. ID is derived deterministically from
// (kind, file, line, col, visitation index), never generated randomly, so two
// runs over identical input yield byte-identical graphs.
type Node struct {
	ID       string         `json:"id"`
	Kind     NodeKind       `json:"kind"`
	Span     Span           `json:"span"`
	ParentID string         `json:"parent_id,omitempty"`
	ScopeID  string         `json:"scope_id,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

// Edge is a directed, typed edge between two IR nodes or Blocks. GuardID, when
// set, references the expression node controlling the branch.
type Edge struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Type    EdgeType `json:"type"`
	GuardID string   `json:"guard_id,omitempty"`
}

// Symbol is one identifier binding within one scope.
type Symbol struct {
	Name    string     `json:"name"`
	Kind    SymbolKind `json:"kind"`
	ScopeID string     `json:"scope_id"`
	Defs    []string   `json:"defs"`
	Uses    []string   `json:"uses"`
}

// Graph is the serializable IR for a single file: the structure consumed by
// the reporting, visualization and incremental-diff collaborators.
type Graph struct {
	Nodes   []*Node   `json:"nodes"`
	Edges   []Edge    `json:"edges"`
	Symbols []*Symbol `json:"symbols"`
}

// NodeByID performs a linear scan; callers that need repeated lookups should
// build their own index (see internal/ir.Index).
func (g *Graph) NodeByID(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// AttrString reads a string attr, tolerating absent or mistyped values.
func (n *Node) AttrString(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	if s, ok := n.Attrs[key].(string); ok {
		return s
	}
	return ""
}

// AttrBool reads a boolean attr, defaulting to false.
func (n *Node) AttrBool(key string) bool {
	if n == nil || n.Attrs == nil {
		return false
	}
	b, _ := n.Attrs[key].(bool)
	return b
}

// AttrStrings reads a string-slice attr. Both live []string values and
// JSON-decoded []any values are accepted.
func (n *Node) AttrStrings(key string) []string {
	if n == nil || n.Attrs == nil {
		return nil
	}
	switch v := n.Attrs[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
