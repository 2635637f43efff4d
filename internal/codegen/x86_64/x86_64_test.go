package x86_64

import (
	"strings"
	"testing"

	"github.com/wholemars/minicc/internal/parser"
	"github.com/wholemars/minicc/internal/target"
)

var linuxTarget = target.Target{IsARM64: false, IsLinux: true}
var macTarget = target.Target{IsARM64: false, IsLinux: false}

func mustEmit(t *testing.T, src string, tgt target.Target) string {
	prog, err := parser.ParseFile(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	asm, err := Emit(prog, tgt)
	if err != nil {
		t.Fatalf("codegen error: %v", err)
	}
	return asm
}

func TestReturnLiteralMovesIntoEax(t *testing.T) {
	asm := mustEmit(t, "int main() { return 42; }", linuxTarget)
	if !strings.Contains(asm, "movl $42, %eax") {
		t.Fatalf("expected an immediate load of 42, got:\n%s", asm)
	}
	if !strings.Contains(asm, "main:") {
		t.Fatalf("expected a main label, got:\n%s", asm)
	}
}

func TestMachOSymbolsGetLeadingUnderscore(t *testing.T) {
	asm := mustEmit(t, "int main() { return 0; }", macTarget)
	if !strings.Contains(asm, "_main:") {
		t.Fatalf("expected _main on the macOS convention, got:\n%s", asm)
	}
	if strings.Contains(asm, "\nmain:") {
		t.Fatalf("did not expect a bare main label on macOS, got:\n%s", asm)
	}
}

func TestDivisionUsesCltdAndIdivl(t *testing.T) {
	asm := mustEmit(t, "int f(int a, int b) { return a / b; }", linuxTarget)
	if !strings.Contains(asm, "cltd") || !strings.Contains(asm, "idivl") {
		t.Fatalf("expected cltd+idivl sequence, got:\n%s", asm)
	}
}

func TestShortCircuitAndSkipsRightOperandOnFalseLeft(t *testing.T) {
	asm := mustEmit(t, "int f(int a, int b) { return a && b; }", linuxTarget)
	if !strings.Contains(asm, "je ") {
		t.Fatalf("expected a conditional branch before the right operand, got:\n%s", asm)
	}
}

func TestUndefinedVariableIsASemanticError(t *testing.T) {
	prog, err := parser.ParseFile("int f() { return y; }")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := Emit(prog, linuxTarget); err == nil {
		t.Fatal("expected an undefined-name error")
	}
}

func TestCallWithMoreThanSixArgumentsIsRejected(t *testing.T) {
	prog, err := parser.ParseFile("int f() { return g(1,2,3,4,5,6,7); }")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := Emit(prog, linuxTarget); err == nil {
		t.Fatal("expected a too-many-arguments error")
	}
}

func TestGlobalArrayIsZeroFilled(t *testing.T) {
	asm := mustEmit(t, "int a[10]; int main() { return a[0]; }", linuxTarget)
	if !strings.Contains(asm, ".zero 40") {
		t.Fatalf("expected a 40-byte zero fill for a 10-element int array, got:\n%s", asm)
	}
}

func TestStringLiteralIsInternedIntoRodata(t *testing.T) {
	asm := mustEmit(t, `int main() { printf("hi"); return 0; }`, linuxTarget)
	if !strings.Contains(asm, ".rodata") || !strings.Contains(asm, `.asciz "hi"`) {
		t.Fatalf("expected an interned string literal, got:\n%s", asm)
	}
}
