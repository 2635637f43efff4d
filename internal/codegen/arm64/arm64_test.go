package arm64

import (
	"strings"
	"testing"

	"github.com/wholemars/minicc/internal/parser"
	"github.com/wholemars/minicc/internal/target"
)

var linuxTarget = target.Target{IsARM64: true, IsLinux: true}
var macTarget = target.Target{IsARM64: true, IsLinux: false}

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

func TestPrologueSavesFrameAndLinkRegisters(t *testing.T) {
	asm := mustEmit(t, "int main() { return 7; }", linuxTarget)
	if !strings.Contains(asm, "stp x29, x30, [sp, #-16]!") {
		t.Fatalf("expected a paired frame/link-register push, got:\n%s", asm)
	}
	if !strings.Contains(asm, "mov w0, #7") {
		t.Fatalf("expected an immediate load of 7, got:\n%s", asm)
	}
}

func TestELFUsesLo12Relocation(t *testing.T) {
	asm := mustEmit(t, "int x; int main() { return x; }", linuxTarget)
	if !strings.Contains(asm, ":lo12:") {
		t.Fatalf("expected a :lo12: relocation on Linux, got:\n%s", asm)
	}
}

func TestMachOUsesPageoffRelocation(t *testing.T) {
	asm := mustEmit(t, "int x; int main() { return x; }", macTarget)
	if !strings.Contains(asm, "@PAGEOFF") {
		t.Fatalf("expected a @PAGEOFF relocation on macOS, got:\n%s", asm)
	}
}

func TestModulusLowersToSdivAndMsub(t *testing.T) {
	asm := mustEmit(t, "int f(int a, int b) { return a % b; }", linuxTarget)
	if !strings.Contains(asm, "sdiv") || !strings.Contains(asm, "msub") {
		t.Fatalf("expected an sdiv+msub remainder sequence, got:\n%s", asm)
	}
}

func TestCallPassesUpToEightArgumentsInRegisters(t *testing.T) {
	prog, err := parser.ParseFile("int f() { return g(1,2,3,4,5,6,7,8); }")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	asm, err := Emit(prog, linuxTarget)
	if err != nil {
		t.Fatalf("expected ARM64 to accept an 8th call argument, got %v", err)
	}
	if !strings.Contains(asm, "ldr x7,") {
		t.Fatalf("expected the 8th argument popped into x7, got:\n%s", asm)
	}
}

func TestUndefinedVariableIsASemanticError(t *testing.T) {
	prog, err := parser.ParseFile("int f() { return z; }")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := Emit(prog, linuxTarget); err == nil {
		t.Fatal("expected an undefined-name error")
	}
}
