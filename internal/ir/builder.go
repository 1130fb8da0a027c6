// Filename: ir/builder.go
// Converts a parsed Python syntax tree into typed IR nodes, flow-adjacency
// edges and symbol-table entries. Node and edge ordering is a stable function
// of source span order; nothing in this package consults a clock, a map
// iteration order, or randomness.
package ir

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lancet/api/schemas"
)

// Builder constructs IR graphs from Python source. Safe for concurrent use:
// each Build call creates its own parser and walker state.
type Builder struct {
	logger     *zap.Logger
	literalCap int
}

// NewBuilder creates an IR builder. literalCap bounds retained string
// literal length; longer literals keep a content hash in attrs.
func NewBuilder(logger *zap.Logger, literalCap int) *Builder {
	return &Builder{
		logger:     logger.Named("ir_builder"),
		literalCap: literalCap,
	}
}

// Result is the per-file output of the IR builder.
type Result struct {
	Graph  *schemas.Graph
	Module string // module name derived from the file path
	Root   string // id of the Module node
}

// Build parses source and produces the IR graph. A file that fails to parse
// outright returns an error (recoverable-per-file); within a parsable file,
// unsupported or damaged constructs degrade per-node instead.
func (b *Builder) Build(ctx context.Context, file string, source []byte) (*Result, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter failed to parse %s: %w", file, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.Type() != "module" {
		return nil, fmt.Errorf("unexpected parse root for %s", file)
	}
	if root.HasError() {
		b.logger.Warn("Syntax errors detected; building partial IR",
			zap.String("file", file))
	}

	w := &walker{
		file:       file,
		module:     moduleName(file),
		source:     source,
		logger:     b.logger,
		literalCap: b.literalCap,
		graph:      &schemas.Graph{},
		ident:      identity{file: file},
		scopeStack: []string{"scope:module"},
		symbols:    make(map[string]*schemas.Symbol),
		aliases:    make(map[string]string),
		lastStmt:   make(map[string]string),
	}

	moduleID := w.visitModule(root)
	w.finalizeSymbols()

	return &Result{Graph: w.graph, Module: w.module, Root: moduleID}, nil
}

// moduleName maps "pkg/app/views.py" to "views". Import resolution across
// files keys off this name.
func moduleName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// walker carries the per-build mutable state.
type walker struct {
	file       string
	module     string
	source     []byte
	logger     *zap.Logger
	literalCap int

	graph      *schemas.Graph
	ident      identity
	scopeStack []string
	scopeIndex int

	// symbols keeps insertion order via symbolOrder so finalizeSymbols emits
	// a deterministic table.
	symbols     map[string]*schemas.Symbol
	symbolOrder []string

	// aliases rewrites imported names to qualified paths ("sp" ->
	// "subprocess", "system" -> "os.system") so sink and sanitizer matching
	// sees canonical identities.
	aliases map[string]string

	// lastStmt tracks the previous statement per block for flow-adjacency
	// edges.
	lastStmt map[string]string

	loopStack []loopInfo
	curStmt   *stmtFlags
}

type loopInfo struct {
	loopID  string
	guardID string
}

type stmtFlags struct {
	hasAwait bool
	hasYield bool
}

func (w *walker) currentScope() string {
	return w.scopeStack[len(w.scopeStack)-1]
}

func (w *walker) pushScope(label string) string {
	w.scopeIndex++
	id := fmt.Sprintf("%s/%s#%d", w.currentScope(), label, w.scopeIndex)
	w.scopeStack = append(w.scopeStack, id)
	return id
}

func (w *walker) popScope() {
	w.scopeStack = w.scopeStack[:len(w.scopeStack)-1]
}

// addNode allocates an id and appends the node to the graph.
func (w *walker) addNode(kind schemas.NodeKind, ts *sitter.Node, parentID string, attrs map[string]any) string {
	span := spanOf(w.file, ts)
	if attrs == nil {
		attrs = map[string]any{}
	}
	if ts == nil {
		// Synthesized node without a source location. Must never abort.
		attrs["missing_span"] = true
	}
	id := w.ident.next(kind, span)
	w.graph.Nodes = append(w.graph.Nodes, &schemas.Node{
		ID:       id,
		Kind:     kind,
		Span:     span,
		ParentID: parentID,
		ScopeID:  w.currentScope(),
		Attrs:    attrs,
	})
	return id
}

func (w *walker) node(id string) *schemas.Node {
	// Nodes are appended only; scan from the tail where recent ids live.
	for i := len(w.graph.Nodes) - 1; i >= 0; i-- {
		if w.graph.Nodes[i].ID == id {
			return w.graph.Nodes[i]
		}
	}
	return nil
}

func (w *walker) setAttr(id, key string, value any) {
	if n := w.node(id); n != nil {
		n.Attrs[key] = value
	}
}

func (w *walker) addEdge(from, to string, typ schemas.EdgeType, guardID string) {
	w.graph.Edges = append(w.graph.Edges, schemas.Edge{From: from, To: to, Type: typ, GuardID: guardID})
}

// recordBlockFlow links statements within one block in source order. This is
// the only intra-block ordering rule; no other heuristic is permitted.
func (w *walker) recordBlockFlow(blockID, stmtID string) {
	if prev := w.lastStmt[blockID]; prev != "" {
		w.addEdge(prev, stmtID, schemas.EdgeFlow, "")
	}
	w.lastStmt[blockID] = stmtID
}

// -- Symbol table --

func (w *walker) symbolKey(scopeID, name string) string {
	return scopeID + "\x00" + name
}

func (w *walker) getSymbol(name string, kind schemas.SymbolKind, scopeID string) *schemas.Symbol {
	key := w.symbolKey(scopeID, name)
	sym := w.symbols[key]
	if sym == nil {
		sym = &schemas.Symbol{Name: name, Kind: kind, ScopeID: scopeID, Defs: []string{}, Uses: []string{}}
		w.symbols[key] = sym
		w.symbolOrder = append(w.symbolOrder, key)
	}
	return sym
}

func (w *walker) addSymbolDef(name string, kind schemas.SymbolKind, scopeID, nodeID string) {
	sym := w.getSymbol(name, kind, scopeID)
	sym.Defs = append(sym.Defs, nodeID)
}

func (w *walker) addSymbolUse(name string, kind schemas.SymbolKind, scopeID, nodeID string) {
	sym := w.getSymbol(name, kind, scopeID)
	sym.Uses = append(sym.Uses, nodeID)
}

func (w *walker) finalizeSymbols() {
	for _, key := range w.symbolOrder {
		w.graph.Symbols = append(w.graph.Symbols, w.symbols[key])
	}
}

// -- Source helpers --

func (w *walker) content(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.source)
}

// namedChildren returns all named children, skipping comments; tree-sitter
// exposes comments as named nodes interleaved with statements.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// hasAsyncKeyword reports whether the construct carries the "async" token
// (async def / async for / async with share their sync node kinds).
func hasAsyncKeyword(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.Type() == "async" {
			return true
		}
		if c != nil && c.IsNamed() {
			break
		}
	}
	return false
}

// resolveAlias rewrites the first path segment through the import alias map,
// canonicalizing "sp.call" to "subprocess.call".
func (w *walker) resolveAlias(path string) string {
	if path == "" {
		return path
	}
	head := path
	rest := ""
	if i := strings.IndexByte(path, '.'); i >= 0 {
		head = path[:i]
		rest = path[i:]
	}
	if qualified, ok := w.aliases[head]; ok {
		return qualified + rest
	}
	return path
}

// flattenAccess turns an identifier/attribute chain into a dotted path.
// Computed accesses (calls, subscripts in the chain) cannot be flattened and
// return "".
func (w *walker) flattenAccess(n *sitter.Node) string {
	var parts []string
	current := n
	for {
		if current == nil {
			return ""
		}
		switch current.Type() {
		case "identifier":
			parts = append([]string{w.content(current)}, parts...)
			return strings.Join(parts, ".")
		case "attribute":
			obj := current.ChildByFieldName("object")
			attr := current.ChildByFieldName("attribute")
			if obj == nil || attr == nil {
				return ""
			}
			parts = append([]string{w.content(attr)}, parts...)
			current = obj
		default:
			return ""
		}
	}
}
