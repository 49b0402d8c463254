package flow

import (
	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/binding"
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/insn"
)

// TryState is the position of generation within a try statement.
type TryState int

const (
	StateInitial TryState = iota
	StateTry
	StateFinally
	StateCatch
)

func (s TryState) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateTry:
		return "try"
	case StateFinally:
		return "finally"
	case StateCatch:
		return "catch"
	}
	return "unknown"
}

// FinallyReturn is one non-local exit routed through a finally block.
// Index is the value stored in the return-index temp before entering the
// finally; the dispatch switch sends that value to Label.
type FinallyReturn struct {
	Insns *insn.List
	Label *insn.Label
	Index int
}

// ExceptionContext is the context of a try statement.
//
// Exits leaving the try body or a catch body while a finally exists are
// redirected: each registers a FinallyReturn, stores its index and jumps to
// the finally block. Exits leaving a catch body also pop the catch scope.
// Index 0 is the finally's own fall-through and index len(Returns)+1 is the
// rethrow taken when the finally was entered by an exception.
type ExceptionContext struct {
	scope      Scope
	node       *ast.Try
	finally    *insn.Label
	fallThru   *insn.Label
	rethrow    *insn.Label
	returns    []FinallyReturn
	retStorage binding.Binding
	excStorage binding.Binding
	state      TryState
	hasFinally bool
}

func (e *ExceptionContext) Kind() Kind     { return KindException }
func (e *ExceptionContext) Node() ast.Node { return e.node }

// State returns the current state.
func (e *ExceptionContext) State() TryState {
	return e.state
}

// HasFinally reports whether the try statement has a finally block.
func (e *ExceptionContext) HasFinally() bool {
	return e.hasFinally
}

// FinallyLabel returns the entry label of the finally block.
func (e *ExceptionContext) FinallyLabel() *insn.Label {
	if e.finally == nil {
		e.finally = insn.NewLabel("finally")
	}
	return e.finally
}

// FallthroughLabel returns the target of dispatch index 0.
func (e *ExceptionContext) FallthroughLabel() *insn.Label {
	if e.fallThru == nil {
		e.fallThru = insn.NewLabel("fallthrough")
	}
	return e.fallThru
}

// RethrowLabel returns the target taken when the finally was entered by an
// exception.
func (e *ExceptionContext) RethrowLabel() *insn.Label {
	if e.rethrow == nil {
		e.rethrow = insn.NewLabel("rethrow")
	}
	return e.rethrow
}

// Returns returns the registered exits in registration order.
func (e *ExceptionContext) Returns() []FinallyReturn {
	return e.returns
}

// ReturnStorage returns the temp holding the dispatch index. Like the
// exception temp it is never taken from the free pool, since it is first
// requested after parts of the construct were generated.
func (e *ExceptionContext) ReturnStorage() binding.Binding {
	if !e.retStorage.IsValid() {
		e.retStorage = e.scope.AllocateFreshTemp()
	}
	return e.retStorage
}

// ExceptionStorage returns the temp holding the caught value or catch scope.
func (e *ExceptionContext) ExceptionStorage() binding.Binding {
	if !e.excStorage.IsValid() {
		e.excStorage = e.scope.AllocateFreshTemp()
	}
	return e.excStorage
}

// HasExceptionStorage reports whether the exception temp was allocated.
func (e *ExceptionContext) HasExceptionStorage() bool {
	return e.excStorage.IsValid()
}

// Switch returns the dispatch instruction ending the finally block.
// Its cases are the fall-through, every registered return in order and the
// rethrow; out-of-range indices also rethrow.
func (e *ExceptionContext) Switch() *insn.Instruction {
	cases := make([]*insn.Label, 0, len(e.returns)+2)
	cases = append(cases, e.FallthroughLabel())
	for _, r := range e.returns {
		cases = append(cases, r.Label)
	}
	cases = append(cases, e.RethrowLabel())
	return insn.New(insn.OpLookupSwitch, insn.SwitchImm{Default: e.RethrowLabel(), Cases: cases})
}

// FailSignal returns the dispatch index meaning "rethrow".
func (e *ExceptionContext) FailSignal() int {
	return len(e.returns) + 1
}

func (e *ExceptionContext) startTry() {
	if e.state != StateInitial {
		panic(errors.Protocol("start try in state %s", e.state))
	}
	e.state = StateTry
}

func (e *ExceptionContext) startFinally() {
	if e.state != StateTry {
		panic(errors.Protocol("start finally in state %s", e.state))
	}
	if !e.hasFinally {
		panic(errors.Protocol("start finally on a try without one"))
	}
	e.state = StateFinally
}

func (e *ExceptionContext) endFinally() {
	if e.state != StateFinally {
		panic(errors.Protocol("end finally in state %s", e.state))
	}
	e.state = StateCatch
}

func (e *ExceptionContext) startCatch() {
	e.state = StateCatch
}

func (e *ExceptionContext) endCatch() {
	if e.state != StateCatch {
		panic(errors.Protocol("end catch in state %s", e.state))
	}
}

func (e *ExceptionContext) addExitPath(exit *insn.List) *insn.List {
	result := exit
	if e.hasFinally && e.state != StateFinally {
		r := FinallyReturn{
			Index: len(e.returns) + 1,
			Label: exit.Label(),
			Insns: exit,
		}
		e.returns = append(e.returns, r)
		debugf("finally return %d registered", r.Index)

		result = insn.NewList()
		result.PushConstant(r.Index)
		result.AddInstruction(e.ReturnStorage().WriteInstruction())
		result.Jump(insn.OpJump, e.FinallyLabel())
	}
	if e.state == StateCatch {
		out := insn.NewList()
		out.Add(insn.OpPopScope)
		out.AddInstruction(e.ExceptionStorage().KillInstruction())
		result = out.AddAll(result)
	}
	return result
}

func (e *ExceptionContext) addHandlerEntry(out *insn.List) {
	if e.state == StateCatch {
		out.AddInstruction(e.ExceptionStorage().ReadInstruction())
		out.Add(insn.OpPushScope)
	}
}

func (e *ExceptionContext) release() {
	if e.retStorage.IsValid() {
		e.scope.ReleaseTemp(e.retStorage)
	}
	if e.excStorage.IsValid() {
		e.scope.ReleaseTemp(e.excStorage)
	}
}
