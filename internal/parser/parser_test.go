package parser

import (
	"testing"

	"github.com/wholemars/minicc/internal/ast"
)

func TestTopLevelDisambiguatesFunctionFromGlobal(t *testing.T) {
	prog, err := ParseFile("int x; int f() { return x; }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Globals) != 1 || prog.Globals[0].Name != "x" {
		t.Fatalf("expected one global x, got %+v", prog.Globals)
	}
	if len(prog.Funcs) != 1 || prog.Funcs[0].Name != "f" {
		t.Fatalf("expected one function f, got %+v", prog.Funcs)
	}
}

func TestDanglingElseBindsToNearestIf(t *testing.T) {
	prog, err := ParseFile(`int f() {
		if (1)
			if (0)
				return 1;
			else
				return 2;
		return 3;
	}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outer, ok := prog.Funcs[0].Body.Stmts[0].(*ast.If)
	if !ok {
		t.Fatalf("expected outer if, got %T", prog.Funcs[0].Body.Stmts[0])
	}
	if outer.Else != nil {
		t.Fatalf("expected outer if to have no else")
	}
	inner, ok := outer.Then.(*ast.If)
	if !ok {
		t.Fatalf("expected inner if, got %T", outer.Then)
	}
	if inner.Else == nil {
		t.Fatalf("expected inner if to carry the else")
	}
}

func TestPrecedenceLadder(t *testing.T) {
	prog, err := ParseFile("int f() { return 1 + 2 * 3 == 7 && 1; }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ret := prog.Funcs[0].Body.Stmts[0].(*ast.Return)
	top, ok := ret.Value.(*ast.Binary)
	if !ok || top.Op != ast.OpAnd {
		t.Fatalf("expected top-level &&, got %+v", ret.Value)
	}
	eq, ok := top.Left.(*ast.Binary)
	if !ok || eq.Op != ast.OpEq {
		t.Fatalf("expected == under &&, got %+v", top.Left)
	}
	add, ok := eq.Left.(*ast.Binary)
	if !ok || add.Op != ast.OpAdd {
		t.Fatalf("expected + under ==, got %+v", eq.Left)
	}
	mul, ok := add.Right.(*ast.Binary)
	if !ok || mul.Op != ast.OpMul {
		t.Fatalf("expected * nested under +, got %+v", add.Right)
	}
}

func TestAssignmentIsRightAssociative(t *testing.T) {
	prog, err := ParseFile("int f() { int a; int b; a = b = 5; }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outer := prog.Funcs[0].Body.Stmts[2].(*ast.ExprStmt).X.(*ast.Assign)
	if _, ok := outer.Target.(*ast.Variable); !ok || outer.Target.(*ast.Variable).Name != "a" {
		t.Fatalf("expected outer target a, got %+v", outer.Target)
	}
	inner, ok := outer.Value.(*ast.Assign)
	if !ok || inner.Target.(*ast.Variable).Name != "b" {
		t.Fatalf("expected inner assignment to b, got %+v", outer.Value)
	}
}

func TestInvalidAssignmentTargetIsAnError(t *testing.T) {
	_, err := ParseFile("int f() { 5 = 3; }")
	if err == nil {
		t.Fatal("expected an error for assigning to a literal")
	}
}

func TestPrefixIncrementDesugarsToCompoundAssign(t *testing.T) {
	prog, err := ParseFile("int f() { int i; ++i; --i; }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inc := prog.Funcs[0].Body.Stmts[1].(*ast.ExprStmt).X.(*ast.Assign)
	if inc.Compound != ast.CompoundAdd {
		t.Fatalf("expected ++i to desugar to +=, got %v", inc.Compound)
	}
	dec := prog.Funcs[0].Body.Stmts[2].(*ast.ExprStmt).X.(*ast.Assign)
	if dec.Compound != ast.CompoundSub {
		t.Fatalf("expected --i to desugar to -=, got %v", dec.Compound)
	}
}

func TestCallArgLimitIsEnforced(t *testing.T) {
	_, err := ParseFile("int f() { g(1,2,3,4,5,6,7,8,9); }")
	if err == nil {
		t.Fatal("expected an error for a call with more than 8 arguments")
	}
}

func TestFunctionParamLimitIsEnforced(t *testing.T) {
	_, err := ParseFile("int f(int a, int b, int c, int d, int e, int g, int h) { return 0; }")
	if err == nil {
		t.Fatal("expected an error for a function with more than 6 parameters")
	}
}

func TestGlobalArrayRejectsInitializerList(t *testing.T) {
	_, err := ParseFile("int a[4] = 1;")
	if err == nil {
		t.Fatal("expected an error for an initializer on a global array")
	}
}

func TestGlobalScalarInitializerMustBeLiteral(t *testing.T) {
	_, err := ParseFile("int x = 1 + 2;")
	if err == nil {
		t.Fatal("expected an error for a non-literal global initializer")
	}
}

func TestForLoopClausesMayBeEmpty(t *testing.T) {
	prog, err := ParseFile("int f() { for (;;) { } return 0; }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	forStmt := prog.Funcs[0].Body.Stmts[0].(*ast.For)
	if forStmt.Init != nil || forStmt.Cond != nil || forStmt.Post != nil {
		t.Fatalf("expected all clauses nil, got %+v", forStmt)
	}
}

func TestSyntaxErrorReportsExactWireFormat(t *testing.T) {
	_, err := ParseFile("int f() { return 1 }")
	if err == nil {
		t.Fatal("expected a missing-semicolon error")
	}
	want := "Error at line 1, col 20: expected ;, got }"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}
