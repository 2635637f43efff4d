// Package diag renders the compiler's fatal diagnostics. Every error in
// this pipeline is fatal: the first lexical, syntactic, semantic, or I/O
// error aborts compilation with exit status 1. diag owns only the
// presentation of that message in a pterm-colored style; it never rewrites
// the message text or changes the exit code.
package diag

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
)

var (
	errorColorFG = pterm.FgRed
	phaseColorFG = pterm.FgLightGreen
)

// Fatal prints err to stderr. err.Error() is expected to already read
// exactly "Error at line L, col C: <message>"; diag only adds color, it
// never rewrites the text.
func Fatal(err error) {
	fmt.Fprintln(os.Stderr, errorColorFG.Sprint(err.Error()))
	os.Exit(1)
}

// FatalIO reports an I/O error (cannot open input/output) in the same
// fatal style, without a source position.
func FatalIO(context string, err error) {
	fmt.Fprintln(os.Stderr, errorColorFG.Sprint(fmt.Sprintf("%s: %v", context, err)))
	os.Exit(1)
}

// Phase announces a pipeline stage when verbose output is requested. It
// is purely cosmetic and never affects control flow or exit status.
func Phase(verbose bool, name string) {
	if !verbose {
		return
	}
	phaseColorFG.Println("-- " + name)
}
