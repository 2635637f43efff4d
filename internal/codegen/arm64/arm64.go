// Package arm64 is the AArch64 back-end: a direct, one-pass walk of the
// syntax tree, structurally mirroring internal/codegen/x86_64 but
// speaking ARM64 mnemonics and register names. The two back-ends do not
// share an instruction-emission interface; each is its own
// syntax-directed walk (spec §9).
//
// Every expression leaves its 32-bit result in w0 (a string literal or
// an address-of leaves a 64-bit pointer in x0 instead). The stack
// pointer stays 16-byte aligned at every statement boundary, per AAPCS64
// — every push/pop moves a full 16 bytes even when only 4 are live.
package arm64

import (
	"fmt"

	"github.com/wholemars/minicc/internal/ast"
	"github.com/wholemars/minicc/internal/codegen/gen"
	"github.com/wholemars/minicc/internal/codegen/writer"
	"github.com/wholemars/minicc/internal/symtab"
	"github.com/wholemars/minicc/internal/target"
)

var argRegsX = [8]string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"}
var argRegsW = [6]string{"w0", "w1", "w2", "w3", "w4", "w5"}

var condCode = map[ast.BinOp]string{
	ast.OpEq: "eq",
	ast.OpNe: "ne",
	ast.OpLt: "lt",
	ast.OpLe: "le",
	ast.OpGt: "gt",
	ast.OpGe: "ge",
}

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
	b.w.Inst("stp x29, x30, [sp, #-16]!")
	b.w.Inst("mov x29, sp")
	b.w.Inst("sub sp, sp, #%d", frameSize)

	for i, p := range fn.Params {
		if i >= 6 {
			break
		}
		sym, _ := b.ctx.Sym.Lookup(p.Name)
		b.w.Inst("str %s, [x29, #-%d]", argRegsW[i], sym.Offset)
	}

	for _, s := range fn.Body.Stmts {
		if err := b.genStmt(s); err != nil {
			return err
		}
	}

	b.epilogue()
	b.w.Blank()
	return nil
}

func (b *backend) epilogue() {
	b.w.Inst("add sp, sp, #%d", frameSize)
	b.w.Inst("ldp x29, x30, [sp], #16")
	b.w.Inst("ret")
}

func (b *backend) push(reg string) { b.w.Inst("str %s, [sp, #-16]!", reg) }
func (b *backend) pop(reg string)  { b.w.Inst("ldr %s, [sp], #16", reg) }

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
		return fmt.Errorf("arm64: unhandled statement %T", s)
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
	if n.Else != nil {
		b.w.Inst("cbz w0, %s", lelse)
	} else {
		b.w.Inst("cbz w0, %s", lend)
	}
	if err := b.genStmt(n.Then); err != nil {
		return err
	}
	if n.Else != nil {
		b.w.Inst("b %s", lend)
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
	b.w.Inst("cbz w0, %s", lend)
	if err := b.genStmt(n.Body); err != nil {
		return err
	}
	b.w.Inst("b %s", lstart)
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
		b.w.Inst("cbz w0, %s", lend)
	}
	if err := b.genStmt(n.Body); err != nil {
		return err
	}
	if n.Post != nil {
		if err := b.genStmt(n.Post); err != nil {
			return err
		}
	}
	b.w.Inst("b %s", lstart)
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

func (b *backend) genExpr(e ast.Expr) error {
	switch ex := e.(type) {
	case *ast.NumLiteral:
		b.w.Inst("mov w0, #%d", ex.Value)
		return nil
	case *ast.StringLiteral:
		label := b.ctx.InternString(ex.Text)
		b.loadAddrInto("x0", label)
		return nil
	case *ast.Variable:
		sym, ok := b.ctx.Sym.Lookup(ex.Name)
		if !ok {
			return &gen.SemError{Pos: ex.Position(), Msg: fmt.Sprintf("undefined name %q", ex.Name)}
		}
		if sym.IsArray {
			b.addressOf(sym, "x0")
		} else {
			b.loadScalar(sym)
		}
		return nil
	case *ast.AddressOf:
		sym, ok := b.ctx.Sym.Lookup(ex.Name)
		if !ok {
			return &gen.SemError{Pos: ex.Position(), Msg: fmt.Sprintf("undefined name %q", ex.Name)}
		}
		b.addressOf(sym, "x0")
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
		return fmt.Errorf("arm64: unhandled expression %T", e)
	}
}

// loadAddrInto emits the adrp/add pair that loads sym's page-relative
// address into reg, in whichever relocation syntax the active object
// file convention uses.
func (b *backend) loadAddrInto(reg, name string) {
	if b.tgt.IsLinux {
		b.w.Inst("adrp %s, %s", reg, name)
		b.w.Inst("add %s, %s, :lo12:%s", reg, reg, name)
		return
	}
	b.w.Inst("adrp %s, %s@PAGE", reg, name)
	b.w.Inst("add %s, %s, %s@PAGEOFF", reg, reg, name)
}

func (b *backend) loadScalar(sym symtab.Symbol) {
	if sym.Kind == symtab.Global {
		b.loadAddrInto("x9", b.tgt.Sym(sym.Name))
		b.w.Inst("ldr w0, [x9]")
		return
	}
	b.w.Inst("ldr w0, [x29, #-%d]", sym.Offset)
}

func (b *backend) storeScalar(sym symtab.Symbol) {
	if sym.Kind == symtab.Global {
		b.loadAddrInto("x9", b.tgt.Sym(sym.Name))
		b.w.Inst("str w0, [x9]")
		return
	}
	b.w.Inst("str w0, [x29, #-%d]", sym.Offset)
}

func (b *backend) addressOf(sym symtab.Symbol, reg string) {
	if sym.Kind == symtab.Global {
		b.loadAddrInto(reg, b.tgt.Sym(sym.Name))
		return
	}
	b.w.Inst("sub %s, x29, #%d", reg, sym.Offset)
}

// genArrayElemAddr leaves the effective address of ex in x9.
func (b *backend) genArrayElemAddr(ex *ast.ArrayAccess) error {
	sym, ok := b.ctx.Sym.Lookup(ex.Name)
	if !ok {
		return &gen.SemError{Pos: ex.Position(), Msg: fmt.Sprintf("undefined name %q", ex.Name)}
	}
	if err := b.genExpr(ex.Index); err != nil {
		return err
	}
	b.push("x0")
	b.addressOf(sym, "x9")
	b.pop("x10")
	b.w.Inst("add x9, x9, x10, lsl #2")
	return nil
}

func (b *backend) genArrayLoad(ex *ast.ArrayAccess) error {
	if err := b.genArrayElemAddr(ex); err != nil {
		return err
	}
	b.w.Inst("ldr w0, [x9]")
	return nil
}

func (b *backend) genUnary(ex *ast.Unary) error {
	if err := b.genExpr(ex.Operand); err != nil {
		return err
	}
	switch ex.Op {
	case ast.OpNeg:
		b.w.Inst("neg w0, w0")
	case ast.OpNot:
		b.w.Inst("cmp w0, #0")
		b.w.Inst("cset w0, eq")
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
	b.push("x0")
	if err := b.genExpr(ex.Right); err != nil {
		return err
	}
	b.pop("x9") // w9 = left, w0 = right

	switch ex.Op {
	case ast.OpAdd:
		b.w.Inst("add w0, w0, w9")
	case ast.OpMul:
		b.w.Inst("mul w0, w0, w9")
	case ast.OpSub:
		b.w.Inst("sub w0, w9, w0")
	case ast.OpDiv:
		b.w.Inst("sdiv w0, w9, w0")
	case ast.OpMod:
		b.w.Inst("sdiv w10, w9, w0")
		b.w.Inst("msub w0, w10, w0, w9")
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		b.w.Inst("cmp w9, w0")
		b.w.Inst("cset w0, %s", condCode[ex.Op])
	default:
		return fmt.Errorf("arm64: unhandled binary operator %v", ex.Op)
	}
	return nil
}

func (b *backend) genShortCircuit(ex *ast.Binary, isAnd bool) error {
	lshort := b.ctx.NewLabel("lsc")
	lend := b.ctx.NewLabel("lend")
	cond, shortVal, fallVal := "cbz", int32(0), int32(1)
	if !isAnd {
		cond, shortVal, fallVal = "cbnz", 1, 0
	}

	if err := b.genExpr(ex.Left); err != nil {
		return err
	}
	b.w.Inst("%s w0, %s", cond, lshort)

	if err := b.genExpr(ex.Right); err != nil {
		return err
	}
	b.w.Inst("%s w0, %s", cond, lshort)

	b.w.Inst("mov w0, #%d", fallVal)
	b.w.Inst("b %s", lend)
	b.w.Label(lshort)
	b.w.Inst("mov w0, #%d", shortVal)
	b.w.Label(lend)
	return nil
}

func (b *backend) genCompoundCombine(op ast.CompoundOp) {
	switch op {
	case ast.CompoundAdd:
		b.w.Inst("add w0, w0, w10")
	case ast.CompoundSub:
		b.w.Inst("sub w0, w10, w0")
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
			b.push("x0")
		}
		if err := b.genExpr(ex.Value); err != nil {
			return err
		}
		if ex.Compound != ast.CompoundPlain {
			b.pop("x10")
			b.genCompoundCombine(ex.Compound)
		}
		b.storeScalar(sym)
		return nil

	case *ast.ArrayAccess:
		if err := b.genArrayElemAddr(t); err != nil {
			return err
		}
		b.push("x9")
		if ex.Compound != ast.CompoundPlain {
			b.w.Inst("ldr w0, [x9]")
			b.push("x0")
		}
		if err := b.genExpr(ex.Value); err != nil {
			return err
		}
		if ex.Compound != ast.CompoundPlain {
			b.pop("x10")
			b.genCompoundCombine(ex.Compound)
		}
		b.pop("x9") // reload the address fresh: ex.Value may have called
		// through a volatile register and clobbered a stale copy.
		b.w.Inst("str w0, [x9]")
		return nil

	default:
		return &gen.SemError{Pos: ex.Position(), Msg: "assignment target must be a variable or array element"}
	}
}

func (b *backend) genCall(ex *ast.Call) error {
	if len(ex.Args) > 8 {
		return &gen.SemError{Pos: ex.Position(), Msg: "call has more than 8 arguments"}
	}
	for i := len(ex.Args) - 1; i >= 0; i-- {
		if err := b.genExpr(ex.Args[i]); err != nil {
			return err
		}
		b.push("x0")
	}
	for i := 0; i < len(ex.Args); i++ {
		b.pop(argRegsX[i])
	}
	b.w.Inst("bl %s", b.tgt.Sym(ex.Name))
	return nil
}
