package flow

import (
	"slices"

	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/binding"
	"github.com/wippyai/flowgen/insn"
)

// Kind identifies a context variant.
type Kind int

const (
	KindLabelScope Kind = iota
	KindLoop
	KindSwitch
	KindLabeledStatement
	KindException
	KindWith
)

func (k Kind) String() string {
	switch k {
	case KindLabelScope:
		return "label-scope"
	case KindLoop:
		return "loop"
	case KindSwitch:
		return "switch"
	case KindLabeledStatement:
		return "labeled"
	case KindException:
		return "exception"
	case KindWith:
		return "with"
	}
	return "unknown"
}

// Context is one active control-flow region on the manager's stack.
// The variants are *LabelScope, *Loop, *Switch, *LabeledStatement,
// *ExceptionContext and *With.
type Context interface {
	Kind() Kind
	Node() ast.Node

	// addExitPath wraps exit with the cleanup needed to leave the context.
	addExitPath(exit *insn.List) *insn.List
	// addHandlerEntry appends the instructions that rebuild the context's
	// runtime scope after an exception handler is entered.
	addHandlerEntry(out *insn.List)
}

// breakTarget holds a lazily created break label.
type breakTarget struct {
	brk *insn.Label
}

// BreakLabel returns the break label, creating it on first use.
func (b *breakTarget) BreakLabel() *insn.Label {
	if b.brk == nil {
		b.brk = insn.NewLabel("break")
	}
	return b.brk
}

// HasBreakLabel reports whether the break label was ever requested.
func (b *breakTarget) HasBreakLabel() bool {
	return b.brk != nil
}

// labelChain is the set of statement labels directly wrapping a loop or switch.
type labelChain struct {
	labels []string
}

// Labels returns the statement labels wrapping the construct, innermost first.
func (c *labelChain) Labels() []string {
	return c.labels
}

// HasLabel reports whether text labels the construct.
func (c *labelChain) HasLabel(text string) bool {
	return slices.Contains(c.labels, text)
}

// Loop is the context of a while, do-while, for or for-in statement.
type Loop struct {
	node ast.Stmt
	labelChain
	breakTarget
	cont *insn.Label
}

func (l *Loop) Kind() Kind     { return KindLoop }
func (l *Loop) Node() ast.Node { return l.node }

// ContinueLabel returns the continue label, creating it on first use.
func (l *Loop) ContinueLabel() *insn.Label {
	if l.cont == nil {
		l.cont = insn.NewLabel("continue")
	}
	return l.cont
}

// HasContinueLabel reports whether the continue label was ever requested.
func (l *Loop) HasContinueLabel() bool {
	return l.cont != nil
}

func (l *Loop) addExitPath(exit *insn.List) *insn.List { return exit }
func (l *Loop) addHandlerEntry(*insn.List)             {}

// Switch is the context of a switch statement. It answers break but never
// continue.
type Switch struct {
	node ast.Stmt
	labelChain
	breakTarget
}

func (s *Switch) Kind() Kind     { return KindSwitch }
func (s *Switch) Node() ast.Node { return s.node }

func (s *Switch) addExitPath(exit *insn.List) *insn.List { return exit }
func (s *Switch) addHandlerEntry(*insn.List)             {}

// LabeledStatement is the context of a labeled statement. It answers a
// labeled break naming its label.
type LabeledStatement struct {
	node *ast.Labeled
	breakTarget
}

func (s *LabeledStatement) Kind() Kind     { return KindLabeledStatement }
func (s *LabeledStatement) Node() ast.Node { return s.node }

// Label returns the statement label.
func (s *LabeledStatement) Label() string {
	return s.node.Label
}

// wrapsBreakable reports whether the label sits directly on a loop or switch.
func (s *LabeledStatement) wrapsBreakable() bool {
	switch ast.Unlabel(s.node.Body).(type) {
	case *ast.While, *ast.DoWhile, *ast.For, *ast.ForIn, *ast.Switch:
		return true
	}
	return false
}

func (s *LabeledStatement) addExitPath(exit *insn.List) *insn.List { return exit }
func (s *LabeledStatement) addHandlerEntry(*insn.List)             {}

// With is the context of a with statement. The with value is kept in a temp
// so exception handlers can push it back, and killed on every exit.
type With struct {
	scope   Scope
	node    *ast.With
	storage binding.Binding
}

func (w *With) Kind() Kind     { return KindWith }
func (w *With) Node() ast.Node { return w.node }

// HasStorage reports whether the with value has been given a temp.
func (w *With) HasStorage() bool {
	return w.storage.IsValid()
}

// Storage returns the temp holding the with value, allocating it on first use.
// The temp is fresh: the body may already have released temps that are
// still live at this point of the code.
func (w *With) Storage() binding.Binding {
	if !w.storage.IsValid() {
		w.storage = w.scope.AllocateFreshTemp()
	}
	return w.storage
}

func (w *With) addExitPath(exit *insn.List) *insn.List {
	out := insn.NewList()
	out.Add(insn.OpPopScope)
	out.AddInstruction(w.Storage().KillInstruction())
	return out.AddAll(exit)
}

func (w *With) addHandlerEntry(out *insn.List) {
	out.AddInstruction(w.Storage().ReadInstruction())
	out.Add(insn.OpPushWith)
}

func (w *With) release() {
	if w.storage.IsValid() {
		w.scope.ReleaseTemp(w.storage)
	}
}
