// Package codegen selects between the two instruction-set back-ends
// based on the active target and exposes a single entry point to the
// rest of the compiler.
package codegen

import (
	"github.com/wholemars/minicc/internal/ast"
	"github.com/wholemars/minicc/internal/codegen/arm64"
	"github.com/wholemars/minicc/internal/codegen/x86_64"
	"github.com/wholemars/minicc/internal/target"
)

// Emit lowers prog to a complete assembly-source string for tgt.
func Emit(prog *ast.Program, tgt target.Target) (string, error) {
	if tgt.IsARM64 {
		return arm64.Emit(prog, tgt)
	}
	return x86_64.Emit(prog, tgt)
}
