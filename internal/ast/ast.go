// Package ast defines the syntax tree produced by the parser and consumed
// by the code generator and the JSON dumper. Every node exclusively owns
// its children; the Program node is exclusively owned by the parser and
// handed to the code generator by move.
package ast

import "github.com/wholemars/minicc/internal/lexer"

// BinOp enumerates binary operators.
type BinOp int

const (
	OpOr BinOp = iota
	OpAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

// UnOp enumerates unary prefix operators. ++/-- are desugared at parse
// time into Assign nodes and never appear as UnOp.
type UnOp int

const (
	OpNeg UnOp = iota
	OpNot
)

// CompoundOp tags an Assign as plain `=`, `+=`, or `-=`.
type CompoundOp int

const (
	CompoundPlain CompoundOp = iota
	CompoundAdd
	CompoundSub
)

// RetKind is a function's declared return kind.
type RetKind int

const (
	RetInt RetKind = iota
	RetVoid
)

// Node is implemented by every syntax-tree variant.
type Node interface {
	Position() lexer.Position
}

// Base carries the source position every node is tagged with. Embed it
// with a struct literal: Base{Pos: pos}.
type Base struct{ Pos lexer.Position }

func (b Base) Position() lexer.Position { return b.Pos }

// Expr is any expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is any statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is any top-level declaration.
type Decl interface {
	Node
	declNode()
}

type NumLiteral struct {
	Base
	Value int32
}

type StringLiteral struct {
	Base
	Text string
}

type Variable struct {
	Base
	Name string
}

type Binary struct {
	Base
	Op    BinOp
	Left  Expr
	Right Expr
}

type Unary struct {
	Base
	Op      UnOp
	Operand Expr
}

// AssignTarget is either a Variable or an ArrayAccess.
type AssignTarget interface {
	Expr
}

type Assign struct {
	Base
	Target   AssignTarget
	Value    Expr
	Compound CompoundOp
}

type Call struct {
	Base
	Name string
	Args []Expr
}

type ArrayAccess struct {
	Base
	Name  string
	Index Expr
}

type AddressOf struct {
	Base
	Name string
}

func (*NumLiteral) exprNode()    {}
func (*StringLiteral) exprNode() {}
func (*Variable) exprNode()      {}
func (*Binary) exprNode()        {}
func (*Unary) exprNode()         {}
func (*Assign) exprNode()        {}
func (*Call) exprNode()          {}
func (*ArrayAccess) exprNode()   {}
func (*AddressOf) exprNode()     {}

type If struct {
	Base
	Cond Expr
	Then Stmt
	Else Stmt // nil if absent
}

type While struct {
	Base
	Cond Expr
	Body Stmt
}

type For struct {
	Base
	Init Stmt // nil if absent
	Cond Expr // nil means unconditionally true
	Post Stmt // nil if absent
	Body Stmt
}

type Return struct {
	Base
	Value Expr // nil if absent
}

type Block struct {
	Base
	Stmts []Stmt
}

type VarDecl struct {
	Base
	Name    string
	IsArray bool
	Size    int // element count, only meaningful if IsArray
	Init    Expr
}

// ExprStmt wraps a bare expression used as a statement (e.g. a call, or
// an Assign produced by desugared ++/--).
type ExprStmt struct {
	Base
	X Expr
}

func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*For) stmtNode()      {}
func (*Return) stmtNode()   {}
func (*Block) stmtNode()    {}
func (*VarDecl) stmtNode()  {}
func (*ExprStmt) stmtNode() {}

type Param struct {
	Name string
}

type Function struct {
	Base
	Name   string
	Ret    RetKind
	Params []Param
	Body   *Block
}

type GlobalVar struct {
	Base
	Name    string
	IsArray bool
	Size    int
	Init    *NumLiteral // nil for arrays (zero-initialized) or uninitialized scalars
}

func (*Function) declNode()  {}
func (*GlobalVar) declNode() {}

// Program is the root node: global declarations in source order, then
// function definitions in source order.
type Program struct {
	Base
	Globals []*GlobalVar
	Funcs   []*Function
}
