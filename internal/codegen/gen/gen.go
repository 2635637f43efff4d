// Package gen holds the bookkeeping shared by both instruction-set
// back-ends: the symbol table lifecycle (seed globals once, push/pop a
// function's parameters and locals), the string-literal table, and
// label allocation. Instruction selection itself is not shared — each
// back-end in internal/codegen/arm64 and internal/codegen/x86_64 is its
// own syntax-directed walk.
package gen

import (
	"fmt"

	"github.com/wholemars/minicc/internal/ast"
	"github.com/wholemars/minicc/internal/lexer"
	"github.com/wholemars/minicc/internal/symtab"
)

// StringEntry is one entry of the string table, in first-seen order.
type StringEntry struct {
	Label string
	Text  string
}

// Context is passed down through a back-end's AST walk.
type Context struct {
	Sym     *symtab.Table
	Strings []StringEntry
	labelN  int
}

func NewContext() *Context {
	return &Context{Sym: symtab.New()}
}

// NewLabel allocates a fresh label, unique across the whole output file,
// named "." + prefix + a running counter (e.g. prefix "else" gives ".else3").
func (c *Context) NewLabel(prefix string) string {
	c.labelN++
	return fmt.Sprintf(".%s%d", prefix, c.labelN)
}

// InternString registers a string literal in first-seen order and
// returns the symbol it will be emitted under.
func (c *Context) InternString(text string) string {
	idx := len(c.Strings)
	label := fmt.Sprintf("str%d", idx)
	c.Strings = append(c.Strings, StringEntry{Label: label, Text: text})
	return label
}

// SeedGlobals inserts every global declaration into the symbol table.
// Called once, before any function body is walked.
func (c *Context) SeedGlobals(globals []*ast.GlobalVar) {
	for _, g := range globals {
		c.Sym.AddGlobal(g.Name, g.IsArray, g.Size)
	}
}

// BeginFunction pushes a function's parameters onto the symbol table and
// returns the mark EndFunction must be given to tear them (and any
// locals declared in the body) back down.
func (c *Context) BeginFunction(params []ast.Param) int {
	mark := c.Sym.Mark()
	c.Sym.ResetLocals(len(params))
	for i, p := range params {
		c.Sym.AddParam(p.Name, i)
	}
	return mark
}

func (c *Context) EndFunction(mark int) {
	c.Sym.Truncate(mark)
}

// SemError reports an undefined-name or bad-assignment-target error
// discovered during code generation.
type SemError struct {
	Pos lexer.Position
	Msg string
}

func (e *SemError) Error() string {
	return fmt.Sprintf("Error at line %d, col %d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}
