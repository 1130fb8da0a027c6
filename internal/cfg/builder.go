// Filename: cfg/builder.go
package cfg

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/lancet/api/schemas"
	"github.com/xkilldash9x/lancet/internal/ir"
)

// Builder turns the structured IR of one file into per-scope CFGs.
type Builder struct {
	ix     *ir.Index
	logger *zap.Logger
}

func NewBuilder(ix *ir.Index, logger *zap.Logger) *Builder {
	return &Builder{ix: ix, logger: logger.Named("cfg_builder")}
}

// BuildAll constructs a CFG for the module scope and every function and
// class body, in IR node order.
func (b *Builder) BuildAll() []*Graph {
	var graphs []*Graph
	for _, n := range b.ix.Graph().Nodes {
		switch n.Kind {
		case schemas.KindModule, schemas.KindFunction, schemas.KindClass:
			if g := b.buildScope(n); g != nil {
				graphs = append(graphs, g)
			}
		}
	}
	return graphs
}

type loopFrame struct {
	loopID string
	header *Block
	exit   *Block
}

type scopeCtx struct {
	g        *Graph
	funcExit *Block
	loops    []loopFrame
	// guards tracks the test expressions of the enclosing conditionals and
	// loops; suspension edges inside them carry the innermost one.
	guards []string
}

func (c *scopeCtx) innerGuard() string {
	if len(c.guards) == 0 {
		return ""
	}
	return c.guards[len(c.guards)-1]
}

func (b *Builder) buildScope(root *schemas.Node) *Graph {
	bodyID := root.AttrString("body_block_id")
	body := b.ix.Node(bodyID)
	if body == nil {
		return nil
	}
	g := &Graph{ScopeRoot: root.ID, Blocks: map[string]*Block{}}
	entry := g.newBlock(schemas.BlockBody)
	exit := g.newBlock(schemas.BlockExit)
	ctx := &scopeCtx{g: g, funcExit: exit}

	end := b.buildSuite(body, entry, ctx)
	g.link(end, exit, schemas.EdgeFlow, "")

	g.Entry = entry.ID
	g.Exit = exit.ID
	return g
}

// buildSuite lays the block's statements into the graph starting at cur.
// Returns the block where control continues, or nil when every path out of
// the suite terminated (return, raise, break, continue).
func (b *Builder) buildSuite(irBlock *schemas.Node, cur *Block, ctx *scopeCtx) *Block {
	if irBlock == nil {
		return cur
	}
	for _, stmtID := range irBlock.AttrStrings("stmt_ids") {
		if cur == nil {
			// Dead statements after a terminator still get a home so SSA and
			// taint can see them; the block is simply unreachable.
			cur = ctx.g.newBlock(schemas.BlockBody)
		}
		stmt := b.ix.Node(stmtID)
		if stmt == nil {
			continue
		}
		cur = b.buildStmt(stmt, cur, ctx)
	}
	return cur
}

func (b *Builder) buildStmt(stmt *schemas.Node, cur *Block, ctx *scopeCtx) *Block {
	g := ctx.g
	switch stmt.Kind {
	case schemas.KindIf:
		return b.buildIf(stmt, cur, ctx)

	case schemas.KindWhile, schemas.KindFor:
		return b.buildLoop(stmt, cur, ctx)

	case schemas.KindTry:
		return b.buildTry(stmt, cur, ctx)

	case schemas.KindWith:
		cur.Stmts = append(cur.Stmts, stmt.ID)
		bodyEntry := g.newBlock(schemas.BlockBody)
		g.link(cur, bodyEntry, schemas.EdgeFlow, "")
		bodyExit := b.buildSuite(b.ix.Node(stmt.AttrString("body_block_id")), bodyEntry, ctx)
		if bodyExit == nil {
			return nil
		}
		after := g.newBlock(schemas.BlockBody)
		g.link(bodyExit, after, schemas.EdgeFlow, "")
		return after

	case schemas.KindReturn:
		cur.Stmts = append(cur.Stmts, stmt.ID)
		g.link(cur, ctx.funcExit, schemas.EdgeReturn, stmt.ID)
		return nil

	case schemas.KindRaise:
		cur.Stmts = append(cur.Stmts, stmt.ID)
		g.link(cur, ctx.funcExit, schemas.EdgeException, stmt.ID)
		return nil

	case schemas.KindBreak:
		cur.Stmts = append(cur.Stmts, stmt.ID)
		if f := innermostLoop(ctx); f != nil {
			g.link(cur, f.exit, schemas.EdgeBreak, "")
		}
		return nil

	case schemas.KindContinue:
		cur.Stmts = append(cur.Stmts, stmt.ID)
		if f := innermostLoop(ctx); f != nil {
			g.link(cur, f.header, schemas.EdgeContinue, "")
		}
		return nil

	default:
		cur.Stmts = append(cur.Stmts, stmt.ID)
		// Suspension points split the block so resumption order is explicit.
		// The guard is the enclosing conditional's test, if any; a suspension
		// in straight-line code is unguarded.
		if stmt.AttrBool("has_await") {
			next := g.newBlock(schemas.BlockBody)
			g.link(cur, next, schemas.EdgeAwait, ctx.innerGuard())
			return next
		}
		if stmt.AttrBool("has_yield") {
			next := g.newBlock(schemas.BlockBody)
			g.link(cur, next, schemas.EdgeYield, ctx.innerGuard())
			return next
		}
		return cur
	}
}

func innermostLoop(ctx *scopeCtx) *loopFrame {
	if len(ctx.loops) == 0 {
		return nil
	}
	return &ctx.loops[len(ctx.loops)-1]
}

func (b *Builder) buildIf(stmt *schemas.Node, cur *Block, ctx *scopeCtx) *Block {
	g := ctx.g
	cur.Stmts = append(cur.Stmts, stmt.ID)
	guard := stmt.AttrString("test_id")

	bodyEntry := g.newBlock(schemas.BlockBody)
	g.link(cur, bodyEntry, schemas.EdgeTrue, guard)
	ctx.guards = append(ctx.guards, guard)
	bodyExit := b.buildSuite(b.ix.Node(stmt.AttrString("body_block_id")), bodyEntry, ctx)

	var elseExit *Block
	hasElse := false
	if orelseID := stmt.AttrString("orelse_block_id"); orelseID != "" {
		hasElse = true
		elseEntry := g.newBlock(schemas.BlockOrelse)
		g.link(cur, elseEntry, schemas.EdgeFalse, guard)
		elseExit = b.buildSuite(b.ix.Node(orelseID), elseEntry, ctx)
	}
	ctx.guards = ctx.guards[:len(ctx.guards)-1]

	join := g.newBlock(schemas.BlockBody)
	g.link(bodyExit, join, schemas.EdgeFlow, "")
	if hasElse {
		g.link(elseExit, join, schemas.EdgeFlow, "")
	} else {
		g.link(cur, join, schemas.EdgeFalse, guard)
	}
	if len(join.Preds) == 0 {
		return nil
	}
	return join
}

// buildLoop covers both while and for. The header block holds the loop
// statement itself: condition evaluation for while, iterator advance and
// target binding for for.
func (b *Builder) buildLoop(stmt *schemas.Node, cur *Block, ctx *scopeCtx) *Block {
	g := ctx.g
	guard := stmt.AttrString("test_id")
	if stmt.Kind == schemas.KindFor {
		guard = stmt.AttrString("iter_id")
	}

	header := g.newBlock(schemas.BlockLoop)
	header.Stmts = append(header.Stmts, stmt.ID)
	g.link(cur, header, schemas.EdgeFlow, "")

	bodyEntry := g.newBlock(schemas.BlockLoop)
	g.link(header, bodyEntry, schemas.EdgeTrue, guard)

	exit := g.newBlock(schemas.BlockExit)

	ctx.loops = append(ctx.loops, loopFrame{loopID: stmt.ID, header: header, exit: exit})
	ctx.guards = append(ctx.guards, guard)
	bodyExit := b.buildSuite(b.ix.Node(stmt.AttrString("body_block_id")), bodyEntry, ctx)
	ctx.guards = ctx.guards[:len(ctx.guards)-1]
	ctx.loops = ctx.loops[:len(ctx.loops)-1]

	g.link(bodyExit, header, schemas.EdgeFlow, "")

	// The else suite runs on normal exhaustion; break edges bypass it.
	if orelseID := stmt.AttrString("orelse_block_id"); orelseID != "" {
		elseEntry := g.newBlock(schemas.BlockOrelse)
		g.link(header, elseEntry, schemas.EdgeFalse, guard)
		elseExit := b.buildSuite(b.ix.Node(orelseID), elseEntry, ctx)
		g.link(elseExit, exit, schemas.EdgeFlow, "")
	} else {
		g.link(header, exit, schemas.EdgeFalse, guard)
	}
	return exit
}

func (b *Builder) buildTry(stmt *schemas.Node, cur *Block, ctx *scopeCtx) *Block {
	g := ctx.g
	cur.Stmts = append(cur.Stmts, stmt.ID)

	bodyEntry := g.newBlock(schemas.BlockBody)
	g.link(cur, bodyEntry, schemas.EdgeFlow, "")
	bodyExit := b.buildSuite(b.ix.Node(stmt.AttrString("body_block_id")), bodyEntry, ctx)

	after := g.newBlock(schemas.BlockBody)

	// Handlers are reachable from the protected region's entry; exceptions
	// may fire before any statement completes.
	var handlerExits []*Block
	for _, hid := range stmt.AttrStrings("handler_block_ids") {
		handlerEntry := g.newBlock(schemas.BlockHandler)
		g.link(bodyEntry, handlerEntry, schemas.EdgeException, stmt.ID)
		handlerExits = append(handlerExits, b.buildSuite(b.ix.Node(hid), handlerEntry, ctx))
	}

	normalExit := bodyExit
	if orelseID := stmt.AttrString("orelse_block_id"); orelseID != "" && bodyExit != nil {
		elseEntry := g.newBlock(schemas.BlockOrelse)
		g.link(bodyExit, elseEntry, schemas.EdgeFlow, "")
		normalExit = b.buildSuite(b.ix.Node(orelseID), elseEntry, ctx)
	}

	if finID := stmt.AttrString("finally_block_id"); finID != "" {
		finEntry := g.newBlock(schemas.BlockFinally)
		g.link(normalExit, finEntry, schemas.EdgeFlow, "")
		for _, hx := range handlerExits {
			g.link(hx, finEntry, schemas.EdgeFlow, "")
		}
		if len(finEntry.Preds) == 0 {
			// Finally still runs when the body always raises.
			g.link(bodyEntry, finEntry, schemas.EdgeException, stmt.ID)
		}
		finExit := b.buildSuite(b.ix.Node(finID), finEntry, ctx)
		g.link(finExit, after, schemas.EdgeFlow, "")
	} else {
		g.link(normalExit, after, schemas.EdgeFlow, "")
		for _, hx := range handlerExits {
			g.link(hx, after, schemas.EdgeFlow, "")
		}
	}
	if len(after.Preds) == 0 {
		return nil
	}
	return after
}
