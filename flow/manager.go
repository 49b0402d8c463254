package flow

import (
	"go.uber.org/zap"

	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/binding"
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/insn"
)

// Scope allocates temporaries for contexts that need storage. Context temps
// are requested lazily, after part of the construct was generated, so
// AllocateFreshTemp must never return a temp that was released earlier.
type Scope interface {
	AllocateFreshTemp() binding.Binding
	ReleaseTemp(binding.Binding)
}

// Manager owns the stack of active control-flow contexts of one function
// body. It is not safe for concurrent use.
type Manager struct {
	scope Scope
	stack []Context
	// dups lets the first of several visible labels take goto targets.
	dups bool
}

// NewManager creates a manager whose root label scope covers region,
// normally the function or its body.
func NewManager(scope Scope, region ast.Node) *Manager {
	m := &Manager{scope: scope}
	m.push(newLabelScope(region))
	return m
}

// Depth returns the number of active contexts, including the root.
func (m *Manager) Depth() int {
	return len(m.stack)
}

// Contexts returns the active contexts, outermost first.
// The slice must not be modified.
func (m *Manager) Contexts() []Context {
	return m.stack
}

// Top returns the innermost context.
func (m *Manager) Top() Context {
	return m.stack[len(m.stack)-1]
}

func (m *Manager) push(ctx Context) {
	m.stack = append(m.stack, ctx)
	debugf("push %s depth=%d", ctx.Kind(), len(m.stack))
}

func (m *Manager) pop(kind Kind) Context {
	if len(m.stack) <= 1 {
		panic(errors.Protocol("pop %s from the root context", kind))
	}
	top := m.stack[len(m.stack)-1]
	if top.Kind() != kind {
		panic(errors.Protocol("pop %s but the innermost context is %s", kind, top.Kind()))
	}
	m.stack = m.stack[:len(m.stack)-1]
	debugf("pop %s depth=%d", kind, len(m.stack))
	return top
}

// labelChain collects the labels of the labeled statements on top of the
// stack that directly wrap node.
func (m *Manager) labelChain(node ast.Stmt) []string {
	var labels []string
	var inner ast.Node = node
	for i := len(m.stack) - 1; i >= 0; i-- {
		ls, ok := m.stack[i].(*LabeledStatement)
		if !ok || ls.node.Body != inner {
			break
		}
		labels = append(labels, ls.Label())
		inner = ls.node
	}
	return labels
}

// Loops

// StartLoop pushes a loop context and a label scope for the loop body.
func (m *Manager) StartLoop(node ast.Stmt) *Loop {
	loop := &Loop{node: node, labelChain: labelChain{labels: m.labelChain(node)}}
	m.push(loop)
	m.push(newLabelScope(node))
	return loop
}

// CurrentLoop returns the innermost loop, or nil.
func (m *Manager) CurrentLoop() *Loop {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if loop, ok := m.stack[i].(*Loop); ok {
			return loop
		}
	}
	return nil
}

// ResolveContinueLabel attaches the continue label of the innermost loop to
// the start of target if any continue requested it.
func (m *Manager) ResolveContinueLabel(target *insn.List) {
	loop := m.CurrentLoop()
	if loop == nil {
		panic(errors.Protocol("resolve continue label outside a loop"))
	}
	if loop.HasContinueLabel() {
		target.LabelFirst(loop.ContinueLabel())
	}
}

// FinishLoop pops the loop and places its break label after out.
func (m *Manager) FinishLoop(out *insn.List) {
	m.pop(KindLabelScope)
	loop := m.pop(KindLoop).(*Loop)
	if loop.HasBreakLabel() {
		out.LabelNext(loop.BreakLabel())
	}
}

// Switches

// StartSwitch pushes a switch context.
func (m *Manager) StartSwitch(node ast.Stmt) *Switch {
	sw := &Switch{node: node, labelChain: labelChain{labels: m.labelChain(node)}}
	m.push(sw)
	return sw
}

// FinishSwitch pops the switch and places its break label after out.
func (m *Manager) FinishSwitch(out *insn.List) {
	sw := m.pop(KindSwitch).(*Switch)
	if sw.HasBreakLabel() {
		out.LabelNext(sw.BreakLabel())
	}
}

// Labeled statements

// StartLabeledStatement pushes a labeled statement context. If an enclosing
// statement already declares the label the context is still pushed and a
// duplicate label error is returned.
func (m *Manager) StartLabeledStatement(node *ast.Labeled) error {
	_, dupErr := m.Resolve(labelDeclared(node.Label))
	m.push(&LabeledStatement{node: node})
	if dupErr == nil {
		return errors.DuplicateLabel(node.Label).At(node.Position())
	}
	return nil
}

// FinishLabeledStatement pops the labeled statement and places its break
// label after out.
func (m *Manager) FinishLabeledStatement(out *insn.List) {
	ls := m.pop(KindLabeledStatement).(*LabeledStatement)
	if ls.HasBreakLabel() {
		out.LabelNext(ls.BreakLabel())
	}
}

// Try statements

// StartTry pushes an exception context for node and a label scope for its
// try body.
func (m *Manager) StartTry(node *ast.Try) *ExceptionContext {
	ctx := &ExceptionContext{scope: m.scope, node: node, hasFinally: node.Finally != nil}
	ctx.startTry()
	m.push(ctx)
	m.push(newLabelScope(node.Body))
	return ctx
}

// StartFinally replaces the try body's label scope with one for the finally
// body.
func (m *Manager) StartFinally() {
	m.pop(KindLabelScope)
	ctx := m.exceptionTop()
	ctx.startFinally()
	m.push(newLabelScope(ctx.node.Finally))
}

// EndFinally marks the finally body complete. Catch clauses follow it.
func (m *Manager) EndFinally() {
	m.exceptionBelowTop().endFinally()
}

// StartCatch replaces the current label scope with one for the catch body.
func (m *Manager) StartCatch(c *ast.Catch) {
	m.pop(KindLabelScope)
	ctx := m.exceptionTop()
	ctx.startCatch()
	m.push(newLabelScope(c))
}

// EndCatch marks a catch body complete.
func (m *Manager) EndCatch() {
	m.exceptionBelowTop().endCatch()
}

// FinishTry pops the try statement's contexts and releases its temps.
func (m *Manager) FinishTry() {
	m.pop(KindLabelScope)
	ctx := m.pop(KindException).(*ExceptionContext)
	ctx.release()
}

// exceptionTop returns the exception context after its label scope was popped.
func (m *Manager) exceptionTop() *ExceptionContext {
	ctx, ok := m.Top().(*ExceptionContext)
	if !ok {
		panic(errors.Protocol("innermost context is %s, not exception", m.Top().Kind()))
	}
	return ctx
}

// exceptionBelowTop returns the exception context under the current label scope.
func (m *Manager) exceptionBelowTop() *ExceptionContext {
	if len(m.stack) < 2 {
		panic(errors.Protocol("no active try statement"))
	}
	ctx, ok := m.stack[len(m.stack)-2].(*ExceptionContext)
	if !ok {
		panic(errors.Protocol("no active try statement"))
	}
	return ctx
}

// FinallyContext returns the innermost exception context.
func (m *Manager) FinallyContext() *ExceptionContext {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if ctx, ok := m.stack[i].(*ExceptionContext); ok {
			return ctx
		}
	}
	panic(errors.Protocol("no active try statement"))
}

// FinallySwitch returns the dispatch instruction of the innermost finally.
func (m *Manager) FinallySwitch() *insn.Instruction {
	return m.FinallyContext().Switch()
}

// FinallyAlternatives returns the exits registered with the innermost finally.
func (m *Manager) FinallyAlternatives() []FinallyReturn {
	return m.FinallyContext().Returns()
}

// FinallyFailSignal returns the dispatch index of the innermost finally's
// rethrow.
func (m *Manager) FinallyFailSignal() int {
	return m.FinallyContext().FailSignal()
}

// ScopeStackReinit returns the instructions rebuilding the runtime scope stack
// at entry to an exception handler. The two innermost contexts belong to the
// handler being entered and contribute nothing.
func (m *Manager) ScopeStackReinit() *insn.List {
	out := insn.NewList()
	for i := 0; i < len(m.stack)-2; i++ {
		m.stack[i].addHandlerEntry(out)
	}
	return out
}

// With statements

// StartWith pushes a with context and a label scope for its body.
func (m *Manager) StartWith(node *ast.With) *With {
	w := &With{scope: m.scope, node: node}
	m.push(w)
	m.push(newLabelScope(node))
	return w
}

// FinishWith pops the with statement's contexts and releases its temp.
func (m *Manager) FinishWith() {
	m.pop(KindLabelScope)
	w := m.pop(KindWith).(*With)
	w.release()
}

// CurrentWith returns the innermost with context.
func (m *Manager) CurrentWith() *With {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if w, ok := m.stack[i].(*With); ok {
			return w
		}
	}
	panic(errors.Protocol("no active with statement"))
}

// WithStorage returns the temp of the innermost with statement.
func (m *Manager) WithStorage() binding.Binding {
	return m.CurrentWith().Storage()
}

// HasWithStorage reports whether the innermost with statement needs its
// value kept in a temp.
func (m *Manager) HasWithStorage() bool {
	return m.CurrentWith().HasStorage()
}

// HasNontrivialFlow reports whether a with or try statement is active.
// Returns then stage their value in a temp before unwinding.
func (m *Manager) HasNontrivialFlow() bool {
	for _, ctx := range m.stack {
		switch ctx.(type) {
		case *With, *ExceptionContext:
			return true
		}
	}
	return false
}

// Resolution

// Resolve returns the index of the context matching c.
func (m *Manager) Resolve(c Criterion) (int, error) {
	n := len(m.stack)
	for k := 0; k < n; k++ {
		i := k
		if c.InnerToOuter {
			i = n - 1 - k
		}
		ctx := m.stack[i]
		if !c.Match(ctx) {
			continue
		}
		if c.check != nil {
			if err := c.check(ctx); err != nil {
				return -1, err
			}
		}
		Logger().Debug("resolved",
			zap.Stringer("criterion", c),
			zap.Int("index", i),
			zap.Stringer("context", ctx.Kind()))
		return i, nil
	}
	return -1, errors.UnknownTarget(c.Name, c.Text)
}

// BranchTarget returns the jump target of the context matching c.
func (m *Manager) BranchTarget(c Criterion) (*insn.Label, error) {
	i, err := m.Resolve(c)
	if err != nil {
		return nil, err
	}
	return c.Label(m.stack[i]), nil
}

// ExitPath resolves c and wraps continuation with the cleanup of every
// context from the target up to the innermost. The innermost cleanup runs
// first.
func (m *Manager) ExitPath(c Criterion, continuation *insn.List) (*insn.List, error) {
	target, err := m.Resolve(c)
	if err != nil {
		return nil, err
	}
	return m.exitPathFrom(target, continuation), nil
}

func (m *Manager) exitPathFrom(target int, continuation *insn.List) *insn.List {
	result := continuation
	for i := target; i < len(m.stack); i++ {
		result = m.stack[i].addExitPath(result)
	}
	return result
}

// Jump returns the instructions transferring control to the target of c.
func (m *Manager) Jump(c Criterion) (*insn.List, error) {
	if c.Label == nil {
		panic(errors.Protocol("criterion %s has no jump target", c))
	}
	target, err := m.Resolve(c)
	if err != nil {
		return nil, err
	}
	jump := insn.NewList()
	jump.Jump(insn.OpJump, c.Label(m.stack[target]))
	return m.exitPathFrom(target, jump), nil
}

// Goto support

// AllowDuplicateLabels makes GotoLabel give the goto target to the first
// of several statements sharing a label. Goto criteria built with
// allowDuplicates should be used together with it.
func (m *Manager) AllowDuplicateLabels(v bool) {
	m.dups = v
}

// GotoLabel returns the goto target of the labeled statement node, or nil
// when no goto can reach it unambiguously.
func (m *Manager) GotoLabel(node *ast.Labeled) *insn.Label {
	for i := len(m.stack) - 1; i >= 0; i-- {
		s, ok := m.stack[i].(*LabelScope)
		if !ok || !s.Contains(node) {
			continue
		}
		if seen := s.Visible(node.Label); len(seen) > 1 && (!m.dups || seen[0] != node) {
			return nil
		}
		return s.JumpLabel(node.Label)
	}
	return nil
}

// GotoLabels returns every labeled statement named text in the innermost
// label scope that sees one.
func (m *Manager) GotoLabels(text string) []*ast.Labeled {
	i, err := m.Resolve(Goto(text, true))
	if err != nil {
		return nil
	}
	return m.stack[i].(*LabelScope).Visible(text)
}
