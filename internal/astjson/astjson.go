// Package astjson is the boundary-only JSON pretty-printer over an
// already-built syntax tree (spec §4.5). It is a pure depth-first walk:
// it never looks anything up in a symbol table and never reports an
// error of its own, since by the time a tree reaches here it has
// already parsed successfully.
package astjson

import (
	"encoding/json"

	"github.com/wholemars/minicc/internal/ast"
)

// Marshal renders prog as indented JSON. No example in the retrieval
// pack pulls in a third-party JSON library; encoding/json's escaping of
// quote, backslash, newline, carriage return, and tab already satisfies
// the string-field requirement, so there is nothing a library would add
// here.
func Marshal(prog *ast.Program) ([]byte, error) {
	return json.MarshalIndent(node(prog), "", "  ")
}

func node(n ast.Node) map[string]any {
	switch v := n.(type) {
	case *ast.Program:
		globals := make([]map[string]any, 0, len(v.Globals))
		for _, g := range v.Globals {
			globals = append(globals, node(g))
		}
		funcs := make([]map[string]any, 0, len(v.Funcs))
		for _, f := range v.Funcs {
			funcs = append(funcs, node(f))
		}
		return obj("Program", "globals", globals, "functions", funcs)

	case *ast.GlobalVar:
		m := obj("GlobalVar", "name", v.Name, "isArray", v.IsArray, "size", v.Size)
		if v.Init != nil {
			m["init"] = node(v.Init)
		} else {
			m["init"] = nil
		}
		return m

	case *ast.Function:
		params := make([]map[string]any, 0, len(v.Params))
		for _, p := range v.Params {
			params = append(params, map[string]any{"name": p.Name})
		}
		ret := "int"
		if v.Ret == ast.RetVoid {
			ret = "void"
		}
		return obj("Function", "name", v.Name, "returns", ret, "params", params, "body", node(v.Body))

	case *ast.Block:
		stmts := make([]map[string]any, 0, len(v.Stmts))
		for _, s := range v.Stmts {
			stmts = append(stmts, node(s))
		}
		return obj("Block", "statements", stmts)

	case *ast.VarDecl:
		m := obj("VarDecl", "name", v.Name, "isArray", v.IsArray, "size", v.Size)
		if v.Init != nil {
			m["init"] = node(v.Init)
		} else {
			m["init"] = nil
		}
		return m

	case *ast.ExprStmt:
		return obj("ExprStatement", "expression", node(v.X))

	case *ast.If:
		m := obj("IfStatement", "condition", node(v.Cond), "then", node(v.Then))
		if v.Else != nil {
			m["else"] = node(v.Else)
		} else {
			m["else"] = nil
		}
		return m

	case *ast.While:
		return obj("WhileStatement", "condition", node(v.Cond), "body", node(v.Body))

	case *ast.For:
		m := obj("ForStatement", "body", node(v.Body))
		if v.Init != nil {
			m["init"] = node(v.Init)
		} else {
			m["init"] = nil
		}
		if v.Cond != nil {
			m["condition"] = node(v.Cond)
		} else {
			m["condition"] = nil
		}
		if v.Post != nil {
			m["post"] = node(v.Post)
		} else {
			m["post"] = nil
		}
		return m

	case *ast.Return:
		m := obj("ReturnStatement")
		if v.Value != nil {
			m["value"] = node(v.Value)
		} else {
			m["value"] = nil
		}
		return m

	case *ast.NumLiteral:
		return obj("IntLiteral", "value", v.Value)

	case *ast.StringLiteral:
		return obj("StringLiteral", "value", v.Text)

	case *ast.Variable:
		return obj("Variable", "name", v.Name)

	case *ast.Binary:
		return obj("BinaryOp", "operator", binOpSym[v.Op], "left", node(v.Left), "right", node(v.Right))

	case *ast.Unary:
		return obj("UnaryOp", "operator", unOpSym[v.Op], "operand", node(v.Operand))

	case *ast.Assign:
		return obj("Assignment", "operator", compoundSym[v.Compound], "target", node(v.Target), "value", node(v.Value))

	case *ast.Call:
		args := make([]map[string]any, 0, len(v.Args))
		for _, a := range v.Args {
			args = append(args, node(a))
		}
		return obj("CallExpr", "name", v.Name, "args", args)

	case *ast.ArrayAccess:
		return obj("ArrayAccess", "name", v.Name, "index", node(v.Index))

	case *ast.AddressOf:
		return obj("AddressOf", "name", v.Name)

	default:
		return obj("Unknown")
	}
}

func obj(typ string, kv ...any) map[string]any {
	m := map[string]any{"type": typ}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

var binOpSym = map[ast.BinOp]string{
	ast.OpOr: "||", ast.OpAnd: "&&",
	ast.OpEq: "==", ast.OpNe: "!=",
	ast.OpLt: "<", ast.OpLe: "<=", ast.OpGt: ">", ast.OpGe: ">=",
	ast.OpAdd: "+", ast.OpSub: "-", ast.OpMul: "*", ast.OpDiv: "/", ast.OpMod: "%",
}

var unOpSym = map[ast.UnOp]string{
	ast.OpNeg: "-", ast.OpNot: "!",
}

var compoundSym = map[ast.CompoundOp]string{
	ast.CompoundPlain: "=", ast.CompoundAdd: "+=", ast.CompoundSub: "-=",
}
