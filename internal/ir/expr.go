// Filename: ir/expr.go
package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/lancet/api/schemas"
)

// visitExpr dispatches an expression node and returns the resulting IR node
// id. Every path returns a valid id; damaged or unknown constructs produce a
// tagged Literal rather than failing the build.
func (w *walker) visitExpr(n *sitter.Node, parentID string) string {
	if n == nil {
		return w.addNode(schemas.KindLiteral, nil, parentID, map[string]any{
			"unsupported": true,
		})
	}

	switch n.Type() {
	case "identifier":
		return w.visitName(n, parentID)
	case "attribute":
		return w.visitAttribute(n, parentID)
	case "call":
		return w.visitCall(n, parentID)
	case "string", "concatenated_string":
		return w.visitString(n, parentID)
	case "integer", "float":
		return w.addNode(schemas.KindLiteral, n, parentID, map[string]any{
			"value": w.content(n),
		})
	case "true", "false", "none", "ellipsis":
		return w.addNode(schemas.KindLiteral, n, parentID, map[string]any{
			"value": n.Type(),
		})
	case "binary_operator":
		return w.visitBinary(n, parentID, schemas.KindBinOp)
	case "boolean_operator":
		return w.visitBinary(n, parentID, schemas.KindBoolOp)
	case "comparison_operator":
		return w.visitCompare(n, parentID)
	case "not_operator", "unary_operator":
		id := w.addNode(schemas.KindUnaryOp, n, parentID, nil)
		children := namedChildren(n)
		if len(children) > 0 {
			w.setAttr(id, "operand_id", w.visitExpr(children[0], id))
		}
		return id
	case "await":
		return w.visitAwait(n, parentID)
	case "yield":
		return w.visitYield(n, parentID)
	case "lambda":
		return w.visitLambda(n, parentID)
	case "conditional_expression":
		return w.visitConditional(n, parentID)
	case "subscript":
		return w.visitSubscript(n, parentID)
	case "parenthesized_expression":
		children := namedChildren(n)
		if len(children) == 1 {
			return w.visitExpr(children[0], parentID)
		}
		return w.visitGeneric(n, parentID, false)
	case "named_expression":
		// walrus: target := value. The target is a def fed by the value.
		id := w.addNode(schemas.KindAssign, n, parentID, nil)
		valueID := w.visitExpr(n.ChildByFieldName("value"), id)
		w.setAttr(id, "value_id", valueID)
		targetIDs, targetNames := w.visitAssignTargets(n.ChildByFieldName("name"), id)
		w.setAttr(id, "target_ids", targetIDs)
		w.setAttr(id, "target_names", targetNames)
		return id
	case "list", "tuple", "set", "dictionary", "pair", "slice", "expression_list",
		"list_comprehension", "set_comprehension", "dictionary_comprehension",
		"generator_expression", "for_in_clause", "if_clause", "keyword_argument",
		"list_splat", "dictionary_splat", "interpolation", "format_expression",
		"type", "generic_type":
		return w.visitGeneric(n, parentID, false)
	default:
		return w.visitGeneric(n, parentID, true)
	}
}

// visitGeneric covers container and comprehension expressions with a single
// structural rule: record the construct kind and visit every named child so
// identifier uses inside are not lost. unsupported marks kinds outside the
// recognized vocabulary (including ERROR nodes from damaged source).
func (w *walker) visitGeneric(n *sitter.Node, parentID string, unsupported bool) string {
	attrs := map[string]any{"construct": n.Type()}
	if unsupported {
		attrs["unsupported"] = true
	}
	id := w.addNode(schemas.KindLiteral, n, parentID, attrs)
	var childIDs []string
	for _, c := range namedChildren(n) {
		childIDs = append(childIDs, w.visitExpr(c, id))
	}
	if len(childIDs) > 0 {
		w.setAttr(id, "elt_ids", childIDs)
	}
	return id
}

func (w *walker) visitName(n *sitter.Node, parentID string) string {
	name := w.content(n)
	id := w.addNode(schemas.KindName, n, parentID, map[string]any{
		"name": name,
		"ctx":  "load",
	})
	w.addSymbolUse(name, schemas.SymVar, w.currentScope(), id)
	return id
}

func (w *walker) visitAttribute(n *sitter.Node, parentID string) string {
	attrName := w.content(n.ChildByFieldName("attribute"))
	attrs := map[string]any{"attr": attrName}
	if path := w.flattenAccess(n); path != "" {
		attrs["path"] = w.resolveAlias(path)
	}
	id := w.addNode(schemas.KindAttr, n, parentID, attrs)
	objID := w.visitExpr(n.ChildByFieldName("object"), id)
	w.setAttr(id, "object_id", objID)
	return id
}

func (w *walker) visitCall(n *sitter.Node, parentID string) string {
	fn := n.ChildByFieldName("function")
	attrs := map[string]any{}
	if path := w.flattenAccess(fn); path != "" {
		resolved := w.resolveAlias(path)
		attrs["callee"] = resolved
		if i := strings.LastIndexByte(resolved, '.'); i >= 0 {
			attrs["callee_base"] = resolved[:i]
			attrs["callee_name"] = resolved[i+1:]
		} else {
			attrs["callee_name"] = resolved
		}
	} else {
		// f()() or d[k]() style: the callee is computed at runtime.
		attrs["dynamic"] = true
	}
	id := w.addNode(schemas.KindCall, n, parentID, attrs)

	fnID := w.visitExpr(fn, id)
	w.setAttr(id, "func_id", fnID)

	var argIDs []string
	if args := n.ChildByFieldName("arguments"); args != nil {
		for _, a := range namedChildren(args) {
			argIDs = append(argIDs, w.visitExpr(a, id))
		}
	}
	w.setAttr(id, "arg_ids", argIDs)
	return id
}

// visitString records the literal's value up to the configured cap. Past the
// cap only the prefix and a content hash remain, so giant inlined blobs do
// not dominate the graph.
func (w *walker) visitString(n *sitter.Node, parentID string) string {
	raw := w.content(n)
	attrs := map[string]any{"type": "str"}
	if len(raw) > w.literalCap {
		sum := sha256.Sum256([]byte(raw))
		attrs["value"] = raw[:w.literalCap]
		attrs["truncated"] = true
		attrs["value_hash"] = hex.EncodeToString(sum[:])
	} else {
		attrs["value"] = raw
	}
	id := w.addNode(schemas.KindLiteral, n, parentID, attrs)
	// f-string interpolations carry dataflow.
	for _, c := range namedChildren(n) {
		if c.Type() == "interpolation" {
			w.visitExpr(c, id)
		}
	}
	return id
}

func (w *walker) visitBinary(n *sitter.Node, parentID string, kind schemas.NodeKind) string {
	var op string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() {
			op = c.Type()
			break
		}
	}
	id := w.addNode(kind, n, parentID, map[string]any{"op": op})
	leftID := w.visitExpr(n.ChildByFieldName("left"), id)
	rightID := w.visitExpr(n.ChildByFieldName("right"), id)
	w.setAttr(id, "left_id", leftID)
	w.setAttr(id, "right_id", rightID)
	return id
}

func (w *walker) visitCompare(n *sitter.Node, parentID string) string {
	id := w.addNode(schemas.KindCompare, n, parentID, nil)
	var operandIDs []string
	for _, c := range namedChildren(n) {
		operandIDs = append(operandIDs, w.visitExpr(c, id))
	}
	w.setAttr(id, "operand_ids", operandIDs)
	return id
}

func (w *walker) visitAwait(n *sitter.Node, parentID string) string {
	if w.curStmt != nil {
		w.curStmt.hasAwait = true
	}
	id := w.addNode(schemas.KindAwait, n, parentID, nil)
	children := namedChildren(n)
	if len(children) > 0 {
		w.setAttr(id, "value_id", w.visitExpr(children[0], id))
	}
	return id
}

func (w *walker) visitYield(n *sitter.Node, parentID string) string {
	if w.curStmt != nil {
		w.curStmt.hasYield = true
	}
	attrs := map[string]any{}
	id := w.addNode(schemas.KindYield, n, parentID, attrs)
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && c.Type() == "from" {
			w.setAttr(id, "is_from", true)
		}
	}
	children := namedChildren(n)
	if len(children) > 0 {
		w.setAttr(id, "value_id", w.visitExpr(children[0], id))
	}
	return id
}

// visitLambda builds a nested anonymous scope. The body is a single
// expression, so no Block node is created.
func (w *walker) visitLambda(n *sitter.Node, parentID string) string {
	id := w.addNode(schemas.KindLambda, n, parentID, nil)

	w.pushScope("lambda")
	defer w.popScope()

	var params []string
	if plist := n.ChildByFieldName("parameters"); plist != nil {
		for _, p := range namedChildren(plist) {
			pname := w.paramName(p)
			if pname == "" {
				continue
			}
			params = append(params, pname)
			pid := w.addNode(schemas.KindName, p, id, map[string]any{
				"name": pname,
				"ctx":  "param",
			})
			w.addSymbolDef(pname, schemas.SymParam, w.currentScope(), pid)
		}
	}
	w.setAttr(id, "params", params)
	if body := n.ChildByFieldName("body"); body != nil {
		w.setAttr(id, "body_id", w.visitExpr(body, id))
	}
	return id
}

func (w *walker) visitConditional(n *sitter.Node, parentID string) string {
	// Grammar order: consequence, condition, alternative.
	id := w.addNode(schemas.KindIfExp, n, parentID, nil)
	children := namedChildren(n)
	if len(children) == 3 {
		bodyID := w.visitExpr(children[0], id)
		testID := w.visitExpr(children[1], id)
		elseID := w.visitExpr(children[2], id)
		w.setAttr(id, "body_id", bodyID)
		w.setAttr(id, "test_id", testID)
		w.setAttr(id, "orelse_id", elseID)
	} else {
		for _, c := range children {
			w.visitExpr(c, id)
		}
	}
	return id
}

func (w *walker) visitSubscript(n *sitter.Node, parentID string) string {
	id := w.addNode(schemas.KindSubscr, n, parentID, nil)
	valueID := w.visitExpr(n.ChildByFieldName("value"), id)
	w.setAttr(id, "value_id", valueID)
	var indexIDs []string
	for _, c := range namedChildren(n) {
		if value := n.ChildByFieldName("value"); value != nil && c.Equal(value) {
			continue
		}
		indexIDs = append(indexIDs, w.visitExpr(c, id))
	}
	w.setAttr(id, "index_ids", indexIDs)
	return id
}
