// Package x86_64 is the System V AMD64 back-end: a direct, one-pass walk
// of the syntax tree that never materializes an intermediate
// representation. Every expression leaves its 32-bit result in %eax
// (a string literal or an address-of leaves a 64-bit pointer in %rax
// instead); every statement form lowers straight to labeled jumps.
package x86_64

import (
	"fmt"

	"github.com/wholemars/minicc/internal/ast"
	"github.com/wholemars/minicc/internal/codegen/gen"
	"github.com/wholemars/minicc/internal/codegen/writer"
	"github.com/wholemars/minicc/internal/symtab"
	"github.com/wholemars/minicc/internal/target"
)

var argRegs64 = [6]string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
var argRegs32 = [6]string{"edi", "esi", "edx", "ecx", "r8d", "r9d"}

var setCC = map[ast.BinOp]string{
	ast.OpEq: "sete",
	ast.OpNe: "setne",
	ast.OpLt: "setl",
	ast.OpLe: "setle",
	ast.OpGt: "setg",
	ast.OpGe: "setge",
}

// frameSize is the fixed per-function stack reservation (spec §9): no
// frame-size computation, every function reserves the same 256 bytes
// regardless of how many locals it declares.
const frameSize = 256

type backend struct {
	ctx *gen.Context
	w   *writer.Writer
	tgt target.Target
}

// Emit generates a complete assembly file for prog under tgt.
func Emit(prog *ast.Program, tgt target.Target) (string, error) {
	b := &backend{ctx: gen.NewContext(), w: writer.New(), tgt: tgt}
	b.ctx.SeedGlobals(prog.Globals)

	b.w.Line(tgt.TextDirective())
	for _, fn := range prog.Funcs {
		if err := b.genFunction(fn); err != nil {
			return "", err
		}
	}

	if len(prog.Globals) > 0 {
		b.w.Blank()
		b.w.Line(tgt.DataDirective())
		for _, g := range prog.Globals {
			b.genGlobal(g)
		}
	}

	if len(b.ctx.Strings) > 0 {
		b.w.Blank()
		b.w.Line(tgt.RODataDirective())
		for _, s := range b.ctx.Strings {
			b.w.Label(s.Label)
			b.w.Inst(".asciz \"%s\"", s.Text)
		}
	}

	return b.w.String(), nil
}

func (b *backend) genGlobal(g *ast.GlobalVar) {
	name := b.tgt.Sym(g.Name)
	b.w.Line(".globl " + name)
	b.w.Label(name)
	if g.IsArray {
		b.w.Inst(".zero %d", symtab.ElemSize*g.Size)
		return
	}
	val := int32(0)
	if g.Init != nil {
		val = g.Init.Value
	}
	b.w.Inst(".long %d", val)
}

func (b *backend) genFunction(fn *ast.Function) error {
	mark := b.ctx.BeginFunction(fn.Params)
	defer b.ctx.EndFunction(mark)

	name := b.tgt.Sym(fn.Name)
	b.w.Line(".globl " + name)
	b.w.Label(name)
	b.w.Inst("pushq %%rbp")
	b.w.Inst("movq %%rsp, %%rbp")
	b.w.Inst("subq $%d, %%rsp", frameSize)

	for i, p := range fn.Params {
		if i >= 6 {
			break
		}
		sym, _ := b.ctx.Sym.Lookup(p.Name)
		b.w.Inst("movl %%%s, -%d(%%rbp)", argRegs32[i], sym.Offset)
	}

	for _, s := range fn.Body.Stmts {
		if err := b.genStmt(s); err != nil {
			return err
		}
	}

	// Fall-through epilogue: a non-void function whose body does not end
	// in an explicit return still returns cleanly, with whatever value
	// last happened to be in %eax.
	b.epilogue()
	b.w.Blank()
	return nil
}

func (b *backend) epilogue() {
	b.w.Inst("addq $%d, %%rsp", frameSize)
	b.w.Inst("popq %%rbp")
	b.w.Inst("ret")
}

func (b *backend) genStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Block:
		for _, inner := range st.Stmts {
			if err := b.genStmt(inner); err != nil {
				return err
			}
		}
		return nil
	case *ast.VarDecl:
		return b.genVarDecl(st)
	case *ast.ExprStmt:
		return b.genExpr(st.X)
	case *ast.If:
		return b.genIf(st)
	case *ast.While:
		return b.genWhile(st)
	case *ast.For:
		return b.genFor(st)
	case *ast.Return:
		return b.genReturn(st)
	default:
		return fmt.Errorf("x86_64: unhandled statement %T", s)
	}
}

func (b *backend) genVarDecl(vd *ast.VarDecl) error {
	if vd.IsArray {
		b.ctx.Sym.AddLocalArray(vd.Name, vd.Size)
		return nil
	}
	sym := b.ctx.Sym.AddLocal(vd.Name)
	if vd.Init != nil {
		if err := b.genExpr(vd.Init); err != nil {
			return err
		}
		b.storeScalar(sym)
	}
	return nil
}

func (b *backend) genIf(n *ast.If) error {
	lelse := b.ctx.NewLabel("else")
	lend := b.ctx.NewLabel("endif")
	if err := b.genExpr(n.Cond); err != nil {
		return err
	}
	b.w.Inst("testl %%eax, %%eax")
	if n.Else != nil {
		b.w.Inst("je %s", lelse)
	} else {
		b.w.Inst("je %s", lend)
	}
	if err := b.genStmt(n.Then); err != nil {
		return err
	}
	if n.Else != nil {
		b.w.Inst("jmp %s", lend)
		b.w.Label(lelse)
		if err := b.genStmt(n.Else); err != nil {
			return err
		}
	}
	b.w.Label(lend)
	return nil
}

func (b *backend) genWhile(n *ast.While) error {
	lstart := b.ctx.NewLabel("wstart")
	lend := b.ctx.NewLabel("wend")
	b.w.Label(lstart)
	if err := b.genExpr(n.Cond); err != nil {
		return err
	}
	b.w.Inst("testl %%eax, %%eax")
	b.w.Inst("je %s", lend)
	if err := b.genStmt(n.Body); err != nil {
		return err
	}
	b.w.Inst("jmp %s", lstart)
	b.w.Label(lend)
	return nil
}

func (b *backend) genFor(n *ast.For) error {
	if n.Init != nil {
		if err := b.genStmt(n.Init); err != nil {
			return err
		}
	}
	lstart := b.ctx.NewLabel("fstart")
	lend := b.ctx.NewLabel("fend")
	b.w.Label(lstart)
	if n.Cond != nil {
		if err := b.genExpr(n.Cond); err != nil {
			return err
		}
		b.w.Inst("testl %%eax, %%eax")
		b.w.Inst("je %s", lend)
	}
	if err := b.genStmt(n.Body); err != nil {
		return err
	}
	if n.Post != nil {
		if err := b.genStmt(n.Post); err != nil {
			return err
		}
	}
	b.w.Inst("jmp %s", lstart)
	b.w.Label(lend)
	return nil
}

func (b *backend) genReturn(n *ast.Return) error {
	if n.Value != nil {
		if err := b.genExpr(n.Value); err != nil {
			return err
		}
	}
	b.epilogue()
	return nil
}

// genExpr evaluates e, leaving its value in %eax (or, for a pointer
// result, %rax).
func (b *backend) genExpr(e ast.Expr) error {
	switch ex := e.(type) {
	case *ast.NumLiteral:
		b.w.Inst("movl $%d, %%eax", ex.Value)
		return nil
	case *ast.StringLiteral:
		label := b.ctx.InternString(ex.Text)
		b.w.Inst("leaq %s(%%rip), %%rax", label)
		return nil
	case *ast.Variable:
		sym, ok := b.ctx.Sym.Lookup(ex.Name)
		if !ok {
			return &gen.SemError{Pos: ex.Position(), Msg: fmt.Sprintf("undefined name %q", ex.Name)}
		}
		if sym.IsArray {
			b.addressOf(sym)
		} else {
			b.loadScalar(sym)
		}
		return nil
	case *ast.AddressOf:
		sym, ok := b.ctx.Sym.Lookup(ex.Name)
		if !ok {
			return &gen.SemError{Pos: ex.Position(), Msg: fmt.Sprintf("undefined name %q", ex.Name)}
		}
		b.addressOf(sym)
		return nil
	case *ast.ArrayAccess:
		return b.genArrayLoad(ex)
	case *ast.Unary:
		return b.genUnary(ex)
	case *ast.Binary:
		return b.genBinary(ex)
	case *ast.Assign:
		return b.genAssign(ex)
	case *ast.Call:
		return b.genCall(ex)
	default:
		return fmt.Errorf("x86_64: unhandled expression %T", e)
	}
}

func (b *backend) loadScalar(sym symtab.Symbol) {
	if sym.Kind == symtab.Global {
		b.w.Inst("movl %s(%%rip), %%eax", b.tgt.Sym(sym.Name))
		return
	}
	b.w.Inst("movl -%d(%%rbp), %%eax", sym.Offset)
}

func (b *backend) storeScalar(sym symtab.Symbol) {
	if sym.Kind == symtab.Global {
		b.w.Inst("movl %%eax, %s(%%rip)", b.tgt.Sym(sym.Name))
		return
	}
	b.w.Inst("movl %%eax, -%d(%%rbp)", sym.Offset)
}

// addressOf leaves sym's effective address in %rax, whether sym is a
// scalar (used by &x) or an array (used by a bare array reference).
func (b *backend) addressOf(sym symtab.Symbol) {
	if sym.Kind == symtab.Global {
		b.w.Inst("leaq %s(%%rip), %%rax", b.tgt.Sym(sym.Name))
		return
	}
	b.w.Inst("leaq -%d(%%rbp), %%rax", sym.Offset)
}

// genArrayElemAddr leaves the effective address of ex in %rax.
func (b *backend) genArrayElemAddr(ex *ast.ArrayAccess) error {
	sym, ok := b.ctx.Sym.Lookup(ex.Name)
	if !ok {
		return &gen.SemError{Pos: ex.Position(), Msg: fmt.Sprintf("undefined name %q", ex.Name)}
	}
	if err := b.genExpr(ex.Index); err != nil {
		return err
	}
	b.w.Inst("pushq %%rax")
	b.addressOf(sym)
	b.w.Inst("popq %%rcx")
	b.w.Inst("leaq (%%rax,%%rcx,4), %%rax")
	return nil
}

func (b *backend) genArrayLoad(ex *ast.ArrayAccess) error {
	if err := b.genArrayElemAddr(ex); err != nil {
		return err
	}
	b.w.Inst("movl (%%rax), %%eax")
	return nil
}

func (b *backend) genUnary(ex *ast.Unary) error {
	if err := b.genExpr(ex.Operand); err != nil {
		return err
	}
	switch ex.Op {
	case ast.OpNeg:
		b.w.Inst("negl %%eax")
	case ast.OpNot:
		b.w.Inst("cmpl $0, %%eax")
		b.w.Inst("sete %%al")
		b.w.Inst("movzbl %%al, %%eax")
	}
	return nil
}

func (b *backend) genBinary(ex *ast.Binary) error {
	switch ex.Op {
	case ast.OpAnd:
		return b.genShortCircuit(ex, true)
	case ast.OpOr:
		return b.genShortCircuit(ex, false)
	}

	if err := b.genExpr(ex.Left); err != nil {
		return err
	}
	b.w.Inst("pushq %%rax")
	if err := b.genExpr(ex.Right); err != nil {
		return err
	}
	b.w.Inst("popq %%rcx") // %ecx = left, %eax = right

	switch ex.Op {
	case ast.OpAdd:
		b.w.Inst("addl %%ecx, %%eax")
	case ast.OpMul:
		b.w.Inst("imull %%ecx, %%eax")
	case ast.OpSub:
		b.w.Inst("movl %%eax, %%r10d")
		b.w.Inst("movl %%ecx, %%eax")
		b.w.Inst("subl %%r10d, %%eax")
	case ast.OpDiv, ast.OpMod:
		b.w.Inst("movl %%eax, %%r10d")
		b.w.Inst("movl %%ecx, %%eax")
		b.w.Inst("cltd")
		b.w.Inst("idivl %%r10d")
		if ex.Op == ast.OpMod {
			b.w.Inst("movl %%edx, %%eax")
		}
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		b.w.Inst("cmpl %%eax, %%ecx")
		b.w.Inst("%s %%al", setCC[ex.Op])
		b.w.Inst("movzbl %%al, %%eax")
	default:
		return fmt.Errorf("x86_64: unhandled binary operator %v", ex.Op)
	}
	return nil
}

// genShortCircuit implements true short-circuit evaluation: the right
// operand is never reached once the left operand alone decides the
// result.
func (b *backend) genShortCircuit(ex *ast.Binary, isAnd bool) error {
	lshort := b.ctx.NewLabel("lsc")
	lend := b.ctx.NewLabel("lend")
	cond, shortVal, fallVal := "je", int32(0), int32(1)
	if !isAnd {
		cond, shortVal, fallVal = "jne", 1, 0
	}

	if err := b.genExpr(ex.Left); err != nil {
		return err
	}
	b.w.Inst("testl %%eax, %%eax")
	b.w.Inst("%s %s", cond, lshort)

	if err := b.genExpr(ex.Right); err != nil {
		return err
	}
	b.w.Inst("testl %%eax, %%eax")
	b.w.Inst("%s %s", cond, lshort)

	b.w.Inst("movl $%d, %%eax", fallVal)
	b.w.Inst("jmp %s", lend)
	b.w.Label(lshort)
	b.w.Inst("movl $%d, %%eax", shortVal)
	b.w.Label(lend)
	return nil
}

func (b *backend) genCompoundCombine(op ast.CompoundOp) {
	switch op {
	case ast.CompoundAdd:
		b.w.Inst("addl %%ecx, %%eax")
	case ast.CompoundSub:
		b.w.Inst("movl %%eax, %%r10d")
		b.w.Inst("movl %%ecx, %%eax")
		b.w.Inst("subl %%r10d, %%eax")
	}
}

func (b *backend) genAssign(ex *ast.Assign) error {
	switch t := ex.Target.(type) {
	case *ast.Variable:
		sym, ok := b.ctx.Sym.Lookup(t.Name)
		if !ok {
			return &gen.SemError{Pos: t.Position(), Msg: fmt.Sprintf("undefined name %q", t.Name)}
		}
		if ex.Compound != ast.CompoundPlain {
			b.loadScalar(sym)
			b.w.Inst("pushq %%rax")
		}
		if err := b.genExpr(ex.Value); err != nil {
			return err
		}
		if ex.Compound != ast.CompoundPlain {
			b.w.Inst("popq %%rcx")
			b.genCompoundCombine(ex.Compound)
		}
		b.storeScalar(sym)
		return nil

	case *ast.ArrayAccess:
		if err := b.genArrayElemAddr(t); err != nil {
			return err
		}
		b.w.Inst("pushq %%rax")
		if ex.Compound != ast.CompoundPlain {
			b.w.Inst("movq (%%rsp), %%r11")
			b.w.Inst("movl (%%r11), %%eax")
			b.w.Inst("pushq %%rax")
		}
		if err := b.genExpr(ex.Value); err != nil {
			return err
		}
		if ex.Compound != ast.CompoundPlain {
			b.w.Inst("popq %%rcx")
			b.genCompoundCombine(ex.Compound)
		}
		b.w.Inst("popq %%r11")
		b.w.Inst("movl %%eax, (%%r11)")
		return nil

	default:
		return &gen.SemError{Pos: ex.Position(), Msg: "assignment target must be a variable or array element"}
	}
}

func (b *backend) genCall(ex *ast.Call) error {
	if len(ex.Args) > 6 {
		return &gen.SemError{Pos: ex.Position(), Msg: "call has more than 6 arguments"}
	}
	for i := len(ex.Args) - 1; i >= 0; i-- {
		if err := b.genExpr(ex.Args[i]); err != nil {
			return err
		}
		b.w.Inst("pushq %%rax")
	}
	for i := 0; i < len(ex.Args); i++ {
		b.w.Inst("popq %%%s", argRegs64[i])
	}
	// Save rsp in the callee-saved %rbx, round down to a 16-byte
	// boundary, and restore from %rbx afterward. This is exact
	// regardless of how many words we've pushed above the frame, unlike
	// nudging rsp by a fixed byte count.
	b.w.Inst("pushq %%rbx")
	b.w.Inst("movq %%rsp, %%rbx")
	b.w.Inst("andq $-16, %%rsp")
	b.w.Inst("xorl %%eax, %%eax")
	b.w.Inst("call %s", b.tgt.Sym(ex.Name))
	b.w.Inst("movq %%rbx, %%rsp")
	b.w.Inst("popq %%rbx")
	return nil
}
