// Filename: ir/stmt.go
package ir

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lancet/api/schemas"
)

// visitModule builds the Module node and its top-level Block.
func (w *walker) visitModule(root *sitter.Node) string {
	moduleID := w.addNode(schemas.KindModule, root, "", map[string]any{
		"name": w.module,
	})
	blockID := w.visitBlock(namedChildren(root), moduleID, schemas.BlockModule, root)
	w.setAttr(moduleID, "body_block_id", blockID)
	return moduleID
}

// visitBlock creates a Block node owning a statement list and wires the
// intra-block flow edges. Returns the Block's id even when the list is empty.
func (w *walker) visitBlock(stmts []*sitter.Node, parentID string, label schemas.BlockLabel, ts *sitter.Node) string {
	blockID := w.addNode(schemas.KindBlock, ts, parentID, map[string]any{
		"label": string(label),
	})
	var stmtIDs []string
	for i, stmt := range stmts {
		id := w.visitStmt(stmt, blockID, i)
		if id == "" {
			continue
		}
		stmtIDs = append(stmtIDs, id)
		w.recordBlockFlow(blockID, id)
	}
	w.setAttr(blockID, "stmt_ids", stmtIDs)
	return blockID
}

// bodyStatements unwraps a "block" grammar node into its statement list; a
// one-line suite comes through as the statement itself.
func bodyStatements(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "block" {
		return namedChildren(n)
	}
	return []*sitter.Node{n}
}

// visitStmt dispatches a single statement. position is the statement's index
// within its block, used for docstring stripping. Returns "" when the
// statement produces no IR node.
func (w *walker) visitStmt(n *sitter.Node, parentID string, position int) string {
	flags := &stmtFlags{}
	prev := w.curStmt
	w.curStmt = flags
	defer func() { w.curStmt = prev }()

	id := w.dispatchStmt(n, parentID, position)
	if id == "" {
		return ""
	}
	if flags.hasAwait {
		w.setAttr(id, "has_await", true)
	}
	if flags.hasYield {
		w.setAttr(id, "has_yield", true)
	}
	return id
}

func (w *walker) dispatchStmt(n *sitter.Node, parentID string, position int) string {
	switch n.Type() {
	case "function_definition":
		return w.visitFunctionDef(n, parentID, nil)
	case "decorated_definition":
		return w.visitDecorated(n, parentID)
	case "class_definition":
		return w.visitClassDef(n, parentID)
	case "if_statement":
		return w.visitIf(n, parentID)
	case "while_statement":
		return w.visitWhile(n, parentID)
	case "for_statement":
		return w.visitFor(n, parentID)
	case "try_statement":
		return w.visitTry(n, parentID)
	case "with_statement":
		return w.visitWith(n, parentID)
	case "expression_statement":
		return w.visitExprStmt(n, parentID, position)
	case "return_statement":
		return w.visitReturn(n, parentID)
	case "raise_statement":
		return w.visitRaise(n, parentID)
	case "import_statement":
		return w.visitImport(n, parentID)
	case "import_from_statement":
		return w.visitImportFrom(n, parentID)
	case "break_statement":
		return w.visitBreak(n, parentID)
	case "continue_statement":
		return w.visitContinue(n, parentID)
	case "pass_statement":
		return w.addNode(schemas.KindPass, n, parentID, nil)
	case "global_statement", "nonlocal_statement":
		return w.visitScopeDecl(n, parentID)
	case "delete_statement":
		id := w.addNode(schemas.KindDelete, n, parentID, nil)
		var targets []string
		for _, c := range namedChildren(n) {
			targets = append(targets, w.visitExpr(c, id))
		}
		w.setAttr(id, "target_ids", targets)
		return id
	case "assert_statement":
		id := w.addNode(schemas.KindAssert, n, parentID, nil)
		children := namedChildren(n)
		if len(children) > 0 {
			w.setAttr(id, "test_id", w.visitExpr(children[0], id))
		}
		return id
	case "future_import_statement":
		return "" // no runtime effect
	default:
		// Unknown or unparsable statement kinds degrade to a tagged Literal
		// so the block completes instead of aborting the file.
		w.logger.Debug("Unsupported statement construct",
			zap.String("file", w.file),
			zap.String("construct", n.Type()))
		return w.addNode(schemas.KindLiteral, n, parentID, map[string]any{
			"unsupported": true,
			"construct":   n.Type(),
		})
	}
}

// -- Definitions --

func (w *walker) visitFunctionDef(n *sitter.Node, parentID string, decorators []string) string {
	nameNode := n.ChildByFieldName("name")
	name := w.content(nameNode)

	attrs := map[string]any{
		"name":     name,
		"qualname": w.qualify(name),
	}
	if hasAsyncKeyword(n) {
		attrs["is_async"] = true
	}
	if len(decorators) > 0 {
		attrs["decorators"] = decorators
	}
	fnID := w.addNode(schemas.KindFunction, n, parentID, attrs)

	// The function name binds in the enclosing scope.
	w.addSymbolDef(name, schemas.SymFunction, w.currentScope(), fnID)

	w.pushScope("fn:" + name)
	defer w.popScope()

	var params []string
	if plist := n.ChildByFieldName("parameters"); plist != nil {
		for _, p := range namedChildren(plist) {
			pname := w.paramName(p)
			if pname == "" {
				continue
			}
			params = append(params, pname)
			pid := w.addNode(schemas.KindName, p, fnID, map[string]any{
				"name": pname,
				"ctx":  "param",
			})
			w.addSymbolDef(pname, schemas.SymParam, w.currentScope(), pid)
		}
	}
	w.setAttr(fnID, "params", params)

	body := bodyStatements(n.ChildByFieldName("body"))
	blockID := w.visitBlock(body, fnID, schemas.BlockBody, n.ChildByFieldName("body"))
	w.setAttr(fnID, "body_block_id", blockID)
	return fnID
}

func (w *walker) paramName(p *sitter.Node) string {
	switch p.Type() {
	case "identifier":
		return w.content(p)
	case "typed_parameter", "default_parameter", "typed_default_parameter":
		for _, c := range namedChildren(p) {
			if c.Type() == "identifier" {
				return w.content(c)
			}
		}
	case "list_splat_pattern", "dictionary_splat_pattern":
		for _, c := range namedChildren(p) {
			if c.Type() == "identifier" {
				return w.content(c)
			}
		}
	}
	return ""
}

func (w *walker) visitDecorated(n *sitter.Node, parentID string) string {
	var decorators []string
	var def *sitter.Node
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "decorator":
			decorators = append(decorators, strings.TrimPrefix(w.content(c), "@"))
		case "function_definition":
			def = c
		case "class_definition":
			def = c
		}
	}
	if def == nil {
		return w.addNode(schemas.KindLiteral, n, parentID, map[string]any{
			"unsupported": true,
			"construct":   "decorated_definition",
		})
	}
	if def.Type() == "class_definition" {
		return w.visitClassDef(def, parentID)
	}
	return w.visitFunctionDef(def, parentID, decorators)
}

func (w *walker) visitClassDef(n *sitter.Node, parentID string) string {
	nameNode := n.ChildByFieldName("name")
	name := w.content(nameNode)

	var bases []string
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, s := range namedChildren(supers) {
			if path := w.flattenAccess(s); path != "" {
				bases = append(bases, w.resolveAlias(path))
			}
		}
	}

	bodyNode := n.ChildByFieldName("body")
	stmts := bodyStatements(bodyNode)
	var methods []string
	for _, s := range stmts {
		target := s
		if s.Type() == "decorated_definition" {
			for _, c := range namedChildren(s) {
				if c.Type() == "function_definition" {
					target = c
				}
			}
		}
		if target.Type() == "function_definition" {
			methods = append(methods, w.content(target.ChildByFieldName("name")))
		}
	}

	classID := w.addNode(schemas.KindClass, n, parentID, map[string]any{
		"name":     name,
		"qualname": w.qualify(name),
		"bases":    bases,
		"methods":  methods,
	})
	w.addSymbolDef(name, schemas.SymClass, w.currentScope(), classID)

	w.pushScope("cls:" + name)
	defer w.popScope()

	blockID := w.visitBlock(stmts, classID, schemas.BlockBody, bodyNode)
	w.setAttr(classID, "body_block_id", blockID)
	return classID
}

// qualify builds "module.Class.method" style names from the scope stack.
func (w *walker) qualify(name string) string {
	parts := []string{w.module}
	for _, s := range w.scopeStack[1:] {
		// scope ids look like "scope:module/cls:Foo#2"; extract the label.
		seg := s[strings.LastIndexByte(s, '/')+1:]
		seg = strings.TrimSuffix(seg[strings.IndexByte(seg, ':')+1:], seg[strings.LastIndexByte(seg, '#'):])
		parts = append(parts, seg)
	}
	parts = append(parts, name)
	return strings.Join(parts, ".")
}

// -- Control flow --

func (w *walker) visitIf(n *sitter.Node, parentID string) string {
	ifID := w.addNode(schemas.KindIf, n, parentID, nil)
	testID := w.visitExpr(n.ChildByFieldName("condition"), ifID)
	w.setAttr(ifID, "test_id", testID)

	bodyNode := n.ChildByFieldName("consequence")
	bodyID := w.visitBlock(bodyStatements(bodyNode), ifID, schemas.BlockBody, bodyNode)
	w.setAttr(ifID, "body_block_id", bodyID)

	// elif chains appear as repeated alternative children; an elif becomes a
	// nested If inside the orelse block.
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "elif_clause":
			elseBlock := w.addNode(schemas.KindBlock, c, ifID, map[string]any{
				"label": string(schemas.BlockOrelse),
			})
			nestedID := w.visitElif(c, elseBlock)
			w.setAttr(elseBlock, "stmt_ids", []string{nestedID})
			w.setAttr(ifID, "orelse_block_id", elseBlock)
			return ifID
		case "else_clause":
			elseBody := c.ChildByFieldName("body")
			elseID := w.visitBlock(bodyStatements(elseBody), ifID, schemas.BlockOrelse, c)
			w.setAttr(ifID, "orelse_block_id", elseID)
			return ifID
		}
	}
	return ifID
}

// visitElif treats an elif clause as an If statement of its own.
func (w *walker) visitElif(c *sitter.Node, parentID string) string {
	ifID := w.addNode(schemas.KindIf, c, parentID, nil)
	testID := w.visitExpr(c.ChildByFieldName("condition"), ifID)
	w.setAttr(ifID, "test_id", testID)

	bodyNode := c.ChildByFieldName("consequence")
	bodyID := w.visitBlock(bodyStatements(bodyNode), ifID, schemas.BlockBody, bodyNode)
	w.setAttr(ifID, "body_block_id", bodyID)

	parent := c.Parent()
	if parent == nil {
		return ifID
	}
	// The chain continues with siblings that follow this clause.
	seen := false
	for _, sib := range namedChildren(parent) {
		if sib.Equal(c) {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		switch sib.Type() {
		case "elif_clause":
			elseBlock := w.addNode(schemas.KindBlock, sib, ifID, map[string]any{
				"label": string(schemas.BlockOrelse),
			})
			nestedID := w.visitElif(sib, elseBlock)
			w.setAttr(elseBlock, "stmt_ids", []string{nestedID})
			w.setAttr(ifID, "orelse_block_id", elseBlock)
			return ifID
		case "else_clause":
			elseBody := sib.ChildByFieldName("body")
			elseID := w.visitBlock(bodyStatements(elseBody), ifID, schemas.BlockOrelse, sib)
			w.setAttr(ifID, "orelse_block_id", elseID)
			return ifID
		}
	}
	return ifID
}

func (w *walker) visitWhile(n *sitter.Node, parentID string) string {
	whileID := w.addNode(schemas.KindWhile, n, parentID, nil)
	testID := w.visitExpr(n.ChildByFieldName("condition"), whileID)
	w.setAttr(whileID, "test_id", testID)

	w.loopStack = append(w.loopStack, loopInfo{loopID: whileID, guardID: testID})
	bodyNode := n.ChildByFieldName("body")
	bodyID := w.visitBlock(bodyStatements(bodyNode), whileID, schemas.BlockLoop, bodyNode)
	w.loopStack = w.loopStack[:len(w.loopStack)-1]
	w.setAttr(whileID, "body_block_id", bodyID)

	if alt := n.ChildByFieldName("alternative"); alt != nil {
		elseBody := alt.ChildByFieldName("body")
		elseID := w.visitBlock(bodyStatements(elseBody), whileID, schemas.BlockOrelse, alt)
		w.setAttr(whileID, "orelse_block_id", elseID)
	}
	return whileID
}

func (w *walker) visitFor(n *sitter.Node, parentID string) string {
	attrs := map[string]any{}
	if hasAsyncKeyword(n) {
		attrs["is_async"] = true
	}
	forID := w.addNode(schemas.KindFor, n, parentID, attrs)

	iterID := w.visitExpr(n.ChildByFieldName("right"), forID)
	w.setAttr(forID, "iter_id", iterID)

	targetIDs, targetNames := w.visitAssignTargets(n.ChildByFieldName("left"), forID)
	w.setAttr(forID, "target_ids", targetIDs)
	w.setAttr(forID, "target_names", targetNames)

	w.loopStack = append(w.loopStack, loopInfo{loopID: forID, guardID: iterID})
	bodyNode := n.ChildByFieldName("body")
	bodyID := w.visitBlock(bodyStatements(bodyNode), forID, schemas.BlockLoop, bodyNode)
	w.loopStack = w.loopStack[:len(w.loopStack)-1]
	w.setAttr(forID, "body_block_id", bodyID)

	if alt := n.ChildByFieldName("alternative"); alt != nil {
		elseBody := alt.ChildByFieldName("body")
		elseID := w.visitBlock(bodyStatements(elseBody), forID, schemas.BlockOrelse, alt)
		w.setAttr(forID, "orelse_block_id", elseID)
	}
	return forID
}

func (w *walker) visitTry(n *sitter.Node, parentID string) string {
	tryID := w.addNode(schemas.KindTry, n, parentID, nil)

	bodyNode := n.ChildByFieldName("body")
	bodyID := w.visitBlock(bodyStatements(bodyNode), tryID, schemas.BlockBody, bodyNode)
	w.setAttr(tryID, "body_block_id", bodyID)

	var handlerIDs []string
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "except_clause", "except_group_clause":
			handlerIDs = append(handlerIDs, w.visitExcept(c, tryID))
		case "else_clause":
			elseBody := c.ChildByFieldName("body")
			elseID := w.visitBlock(bodyStatements(elseBody), tryID, schemas.BlockOrelse, c)
			w.setAttr(tryID, "orelse_block_id", elseID)
		case "finally_clause":
			var finBody *sitter.Node
			for _, fc := range namedChildren(c) {
				if fc.Type() == "block" {
					finBody = fc
				}
			}
			finID := w.visitBlock(bodyStatements(finBody), tryID, schemas.BlockFinally, c)
			w.setAttr(tryID, "finally_block_id", finID)
		}
	}
	w.setAttr(tryID, "handler_block_ids", handlerIDs)
	return tryID
}

// visitExcept builds the handler Block. The bound exception name ("as e")
// defines a symbol scoped to the handler's enclosing scope, matching Python's
// actual (leaky) binding semantics minus the end-of-handler unbinding.
func (w *walker) visitExcept(c *sitter.Node, tryID string) string {
	children := namedChildren(c)
	var body *sitter.Node
	var excType string
	var excName string
	for _, cc := range children {
		switch cc.Type() {
		case "block":
			body = cc
		case "as_pattern":
			inner := namedChildren(cc)
			if len(inner) > 0 {
				excType = w.resolveAlias(w.flattenAccess(inner[0]))
			}
			if target := cc.ChildByFieldName("alias"); target != nil {
				tc := namedChildren(target)
				if len(tc) > 0 {
					excName = w.content(tc[0])
				} else {
					excName = w.content(target)
				}
			}
		case "identifier", "attribute", "tuple":
			excType = w.resolveAlias(w.flattenAccess(cc))
		}
	}
	handlerID := w.visitBlock(bodyStatements(body), tryID, schemas.BlockHandler, c)
	if excType != "" {
		w.setAttr(handlerID, "exc_type", excType)
	}
	if excName != "" {
		w.setAttr(handlerID, "exc_name", excName)
		w.addSymbolDef(excName, schemas.SymVar, w.currentScope(), handlerID)
	}
	return handlerID
}

func (w *walker) visitWith(n *sitter.Node, parentID string) string {
	attrs := map[string]any{}
	if hasAsyncKeyword(n) {
		attrs["is_async"] = true
	}
	withID := w.addNode(schemas.KindWith, n, parentID, attrs)

	var itemIDs []string
	for _, c := range namedChildren(n) {
		if c.Type() != "with_clause" {
			continue
		}
		for _, item := range namedChildren(c) {
			if item.Type() != "with_item" {
				continue
			}
			value := item.ChildByFieldName("value")
			if value != nil && value.Type() == "as_pattern" {
				inner := namedChildren(value)
				var ctxID string
				if len(inner) > 0 {
					ctxID = w.visitExpr(inner[0], withID)
				}
				itemIDs = append(itemIDs, ctxID)
				if target := value.ChildByFieldName("alias"); target != nil {
					tids, _ := w.visitAssignTargets(target, withID)
					if len(tids) > 0 {
						w.setAttr(tids[0], "value_id", ctxID)
					}
				}
			} else if value != nil {
				itemIDs = append(itemIDs, w.visitExpr(value, withID))
			}
		}
	}
	w.setAttr(withID, "item_ids", itemIDs)

	bodyNode := n.ChildByFieldName("body")
	bodyID := w.visitBlock(bodyStatements(bodyNode), withID, schemas.BlockBody, bodyNode)
	w.setAttr(withID, "body_block_id", bodyID)
	return withID
}

func (w *walker) visitBreak(n *sitter.Node, parentID string) string {
	attrs := map[string]any{}
	if len(w.loopStack) > 0 {
		attrs["loop_id"] = w.loopStack[len(w.loopStack)-1].loopID
	}
	return w.addNode(schemas.KindBreak, n, parentID, attrs)
}

func (w *walker) visitContinue(n *sitter.Node, parentID string) string {
	attrs := map[string]any{}
	if len(w.loopStack) > 0 {
		attrs["loop_id"] = w.loopStack[len(w.loopStack)-1].loopID
	}
	return w.addNode(schemas.KindContinue, n, parentID, attrs)
}

// -- Simple statements --

func (w *walker) visitExprStmt(n *sitter.Node, parentID string, position int) string {
	children := namedChildren(n)
	if len(children) == 0 {
		return ""
	}
	inner := children[0]
	switch inner.Type() {
	case "assignment":
		return w.visitAssignment(inner, parentID, false)
	case "augmented_assignment":
		return w.visitAssignment(inner, parentID, true)
	case "string":
		// A bare string as the first statement of a suite is a docstring and
		// carries no dataflow.
		if position == 0 {
			return ""
		}
	}
	return w.visitExpr(inner, parentID)
}

func (w *walker) visitAssignment(n *sitter.Node, parentID string, augmented bool) string {
	kind := schemas.KindAssign
	attrs := map[string]any{}
	if augmented {
		kind = schemas.KindAugAssign
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c != nil && !c.IsNamed() && c.Type() != "=" {
				attrs["op"] = c.Type()
				break
			}
		}
	}
	assignID := w.addNode(kind, n, parentID, attrs)

	// Right side first so uses precede the def, matching evaluation order.
	var valueID string
	if right := n.ChildByFieldName("right"); right != nil {
		valueID = w.visitExpr(right, assignID)
	}
	w.setAttr(assignID, "value_id", valueID)

	left := n.ChildByFieldName("left")
	if augmented && left != nil {
		// Augmented targets are read before written.
		useID := w.visitExpr(left, assignID)
		w.setAttr(assignID, "target_use_id", useID)
	}
	targetIDs, targetNames := w.visitAssignTargets(left, assignID)
	w.setAttr(assignID, "target_ids", targetIDs)
	w.setAttr(assignID, "target_names", targetNames)
	return assignID
}

// visitAssignTargets records store-context Name nodes and symbol defs for an
// assignment target expression. Non-name targets (attributes, subscripts)
// are visited as loads of their base so taint through obj.attr writes still
// sees the object.
func (w *walker) visitAssignTargets(target *sitter.Node, parentID string) ([]string, []string) {
	if target == nil {
		return nil, nil
	}
	var ids []string
	var names []string
	var walk func(t *sitter.Node)
	walk = func(t *sitter.Node) {
		switch t.Type() {
		case "identifier":
			name := w.content(t)
			id := w.addNode(schemas.KindName, t, parentID, map[string]any{
				"name": name,
				"ctx":  "store",
			})
			w.addSymbolDef(name, schemas.SymVar, w.currentScope(), id)
			ids = append(ids, id)
			names = append(names, name)
		case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list":
			for _, c := range namedChildren(t) {
				walk(c)
			}
		case "list_splat_pattern":
			for _, c := range namedChildren(t) {
				walk(c)
			}
		case "typed_parameter":
			for _, c := range namedChildren(t) {
				if c.Type() == "identifier" {
					walk(c)
				}
			}
		default:
			// obj.attr = x, d[k] = x: the base object is both read and
			// (conceptually) written.
			id := w.visitExpr(t, parentID)
			w.setAttr(id, "ctx", "store")
			ids = append(ids, id)
			if path := w.flattenAccess(t); path != "" {
				names = append(names, path)
			}
		}
	}
	walk(target)
	return ids, names
}

func (w *walker) visitReturn(n *sitter.Node, parentID string) string {
	retID := w.addNode(schemas.KindReturn, n, parentID, nil)
	children := namedChildren(n)
	if len(children) > 0 {
		w.setAttr(retID, "value_id", w.visitExpr(children[0], retID))
	}
	return retID
}

func (w *walker) visitRaise(n *sitter.Node, parentID string) string {
	raiseID := w.addNode(schemas.KindRaise, n, parentID, nil)
	children := namedChildren(n)
	if len(children) > 0 {
		w.setAttr(raiseID, "value_id", w.visitExpr(children[0], raiseID))
	}
	return raiseID
}

func (w *walker) visitScopeDecl(n *sitter.Node, parentID string) string {
	kind := schemas.KindGlobal
	if n.Type() == "nonlocal_statement" {
		kind = schemas.KindNonlocal
	}
	var names []string
	for _, c := range namedChildren(n) {
		if c.Type() == "identifier" {
			names = append(names, w.content(c))
		}
	}
	return w.addNode(kind, n, parentID, map[string]any{"names": names})
}

// -- Imports --

func (w *walker) visitImport(n *sitter.Node, parentID string) string {
	importID := w.addNode(schemas.KindImport, n, parentID, nil)
	var names []string
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "dotted_name":
			mod := w.content(c)
			names = append(names, mod)
			// "import a.b" binds "a".
			head := mod
			if i := strings.IndexByte(mod, '.'); i >= 0 {
				head = mod[:i]
			}
			w.aliases[head] = head
			w.addSymbolDef(head, schemas.SymImport, w.currentScope(), importID)
		case "aliased_import":
			mod := w.content(c.ChildByFieldName("name"))
			alias := w.content(c.ChildByFieldName("alias"))
			names = append(names, mod)
			if alias != "" {
				w.aliases[alias] = mod
				w.addSymbolDef(alias, schemas.SymImport, w.currentScope(), importID)
			}
		}
	}
	w.setAttr(importID, "names", names)
	return importID
}

func (w *walker) visitImportFrom(n *sitter.Node, parentID string) string {
	importID := w.addNode(schemas.KindImport, n, parentID, nil)
	module := w.content(n.ChildByFieldName("module_name"))
	w.setAttr(importID, "module", module)

	var names []string
	seenModule := false
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "dotted_name", "relative_import":
			if !seenModule {
				seenModule = true
				continue
			}
			name := w.content(c)
			names = append(names, name)
			w.aliases[name] = module + "." + name
			w.addSymbolDef(name, schemas.SymImport, w.currentScope(), importID)
		case "aliased_import":
			name := w.content(c.ChildByFieldName("name"))
			alias := w.content(c.ChildByFieldName("alias"))
			names = append(names, name)
			if alias != "" {
				w.aliases[alias] = module + "." + name
				w.addSymbolDef(alias, schemas.SymImport, w.currentScope(), importID)
			}
		case "wildcard_import":
			w.setAttr(importID, "wildcard", true)
		}
	}
	w.setAttr(importID, "names", names)
	return importID
}
