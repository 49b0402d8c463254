package codegen

import (
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/insn"
)

// Handler is an exception table entry. Exceptions raised between From and
// To transfer to Target. An empty Type catches everything.
type Handler struct {
	From   *insn.Label
	To     *insn.Label
	Target *insn.Label
	Type   string
	Var    string
}

// Function is a generated function body.
type Function struct {
	Code     *insn.List
	Scope    *Scope
	Name     string
	Handlers []Handler
	Problems errors.List
}

// Registers returns the number of registers the body uses.
func (f *Function) Registers() uint32 {
	return f.Scope.Registers()
}

// Err combines the diagnostics reported while generating the body.
func (f *Function) Err() error {
	return f.Problems.Err()
}
