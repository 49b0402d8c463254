package codegen

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/flow"
	"github.com/wippyai/flowgen/insn"
)

// generator reduces the statements of one function body.
type generator struct {
	sel   Selector
	scope *Scope
	flow  *flow.Manager
	fn    *Function
	cfg   Config
}

// Generate produces the body of fn.
//
// Unresolvable control flow and bad expressions are reported in
// Function.Problems and generation continues with the next statement.
// Misuse of the flow manager panics with a protocol error.
func Generate(fn *ast.Function, cfg Config) *Function {
	scope := NewScope(fn.Params, fn.NeedsActivation)
	g := &generator{
		sel:   cfg.selector(),
		scope: scope,
		flow:  flow.NewManager(scope, fn),
		fn:    &Function{Name: fn.Name, Scope: scope},
		cfg:   cfg,
	}
	g.flow.AllowDuplicateLabels(cfg.AllowDuplicateLabels)

	code := g.prologue()
	code.AddAll(g.block(fn.Body))
	if code.CanFallThrough() || code.HasPendingLabels() {
		code.Add(insn.OpReturnVoid)
	}
	if d := g.flow.Depth(); d != 1 {
		panic(errors.Protocol("%d control-flow contexts left open", d-1))
	}
	scope.AssignRegisters()
	g.fn.Code = code

	Logger().Debug("function generated",
		zap.String("function", fn.Name),
		zap.Int("instructions", code.Len()),
		zap.Int("handlers", len(g.fn.Handlers)),
		zap.Int("problems", g.fn.Problems.Len()))
	return g.fn
}

func (g *generator) prologue() *insn.List {
	out := insn.NewList()
	if g.cfg.NeedsThis {
		out.Add(insn.OpGetLocal0)
		out.Add(insn.OpPushScope)
	}
	if g.scope.NeedsActivation() {
		out.Add(insn.OpNewActivation)
		out.Add(insn.OpDup)
		out.AddInstruction(g.scope.ActivationStorage().WriteInstruction())
		out.Add(insn.OpPushScope)
		for i, p := range g.scope.Params() {
			name := insn.NameImm{Name: p}
			out.AddImm(insn.OpFindPropStrict, name)
			out.AddImm(insn.OpGetLocal, insn.LocalImm{Reg: uint32(i + 1)})
			out.AddImm(insn.OpSetProperty, name)
		}
	}
	return out
}

func (g *generator) report(err error, pos ast.Pos) {
	e, ok := err.(*errors.Error)
	if !ok {
		e = errors.Wrap(errors.PhaseGenerate, errors.KindInvalidInput, err, "statement generation failed")
	}
	if !e.Pos.IsValid() {
		e = e.At(pos)
	}
	g.fn.Problems.Add(e)
}

func (g *generator) value(e ast.Expr) *insn.List {
	out, err := g.sel.Value(g.scope, e)
	if err != nil {
		g.report(err, e.Position())
		return insn.NewList().Add(insn.OpPushUndefined)
	}
	return out
}

func (g *generator) effect(e ast.Expr) *insn.List {
	out, err := g.sel.Effect(g.scope, e)
	if err != nil {
		g.report(err, e.Position())
		return insn.NewList()
	}
	return out
}

func (g *generator) block(b *ast.Block) *insn.List {
	out := insn.NewList()
	if b == nil {
		return out
	}
	for _, s := range b.Stmts {
		out.AddAll(g.stmt(s))
	}
	return out
}

func (g *generator) stmt(s ast.Stmt) *insn.List {
	switch s := s.(type) {
	case nil:
		return insn.NewList()
	case *ast.Block:
		return g.block(s)
	case *ast.ExprStmt:
		return g.effect(s.X)
	case *ast.VarDecl:
		b := g.scope.Declare(s.Name, s)
		if s.Init == nil {
			return insn.NewList()
		}
		return g.value(s.Init).AddAll(Store(b))
	case *ast.If:
		return g.ifStmt(s)
	case *ast.While:
		return g.whileStmt(s)
	case *ast.DoWhile:
		return g.doStmt(s)
	case *ast.For:
		return g.forStmt(s)
	case *ast.ForIn:
		return g.forInStmt(s)
	case *ast.Switch:
		return g.switchStmt(s)
	case *ast.Labeled:
		return g.labeledStmt(s)
	case *ast.Break:
		c := flow.Break
		if s.Label != "" {
			c = flow.LabeledBreak(s.Label)
		}
		return g.jump(c, s.Position())
	case *ast.Continue:
		c := flow.Continue
		if s.Label != "" {
			c = flow.LabeledContinue(s.Label)
		}
		return g.jump(c, s.Position())
	case *ast.Goto:
		return g.gotoStmt(s)
	case *ast.Return:
		return g.returnStmt(s)
	case *ast.Throw:
		return g.value(s.Value).Add(insn.OpThrow)
	case *ast.With:
		return g.withStmt(s)
	case *ast.Try:
		return g.tryStmt(s)
	}
	panic(errors.Protocol("unsupported statement %T", s))
}

func (g *generator) ifStmt(s *ast.If) *insn.List {
	out := g.value(s.Cond)
	then := g.stmt(s.Then)
	end := insn.NewLabel("endif")

	if s.Else == nil {
		out.Jump(insn.OpIfFalse, end)
		out.AddAll(then)
		out.LabelNext(end)
		return out
	}

	els := g.stmt(s.Else)
	elseLabel := insn.NewLabel("else")
	out.Jump(insn.OpIfFalse, elseLabel)
	out.AddAll(then)
	if then.CanFallThrough() || then.HasPendingLabels() {
		out.Jump(insn.OpJump, end)
	}
	out.LabelNext(elseLabel)
	out.AddAll(els)
	out.LabelNext(end)
	return out
}

// Loops branch backwards to an OpLabel so the verifier sees the target.

func (g *generator) whileStmt(s *ast.While) *insn.List {
	g.flow.StartLoop(s)
	body := g.stmt(s.Body)
	cond := g.value(s.Cond)
	g.flow.ResolveContinueLabel(cond)

	out := insn.NewList()
	out.Jump(insn.OpJump, cond.Label())
	out.Add(insn.OpLabel)
	head := out.LastLabel()
	out.AddAll(body)
	out.AddAll(cond)
	out.Jump(insn.OpIfTrue, head)
	g.flow.FinishLoop(out)
	return out
}

func (g *generator) doStmt(s *ast.DoWhile) *insn.List {
	g.flow.StartLoop(s)
	body := g.stmt(s.Body)
	cond := g.value(s.Cond)
	g.flow.ResolveContinueLabel(cond)

	out := insn.NewList()
	if body.IsEmpty() || body.At(0).Opcode != insn.OpLabel {
		out.Add(insn.OpLabel)
	}
	out.AddAll(body)
	head := out.Label()
	out.AddAll(cond)
	out.Jump(insn.OpIfTrue, head)
	g.flow.FinishLoop(out)
	return out
}

func (g *generator) forStmt(s *ast.For) *insn.List {
	out := g.stmt(s.Init)
	g.flow.StartLoop(s)
	body := g.stmt(s.Body)

	update := insn.NewList()
	if s.Update != nil {
		update = g.effect(s.Update)
	}

	head := insn.NewLabel("loop")
	test := insn.NewList()
	if s.Cond != nil {
		test.AddAll(g.value(s.Cond))
		test.Jump(insn.OpIfTrue, head)
	} else {
		test.Jump(insn.OpJump, head)
	}

	if !update.IsEmpty() {
		g.flow.ResolveContinueLabel(update)
	} else {
		g.flow.ResolveContinueLabel(test)
	}

	out.Jump(insn.OpJump, test.Label())
	out.LabelNext(head)
	out.Add(insn.OpLabel)
	out.AddAll(body)
	out.AddAll(update)
	out.AddAll(test)
	g.flow.FinishLoop(out)
	return out
}

// forInStmt walks property names with hasnext. The object and the cursor
// live in two fresh temps for the duration of the loop.
func (g *generator) forInStmt(s *ast.ForIn) *insn.List {
	obj := g.value(s.Obj)
	v, ok := g.scope.Lookup(s.Var)
	if !ok {
		v = g.scope.Declare(s.Var, s)
	}
	stem := g.scope.AllocateFreshTemp()
	index := g.scope.AllocateFreshTemp()

	g.flow.StartLoop(s)
	body := g.stmt(s.Body)

	head := insn.NewLabel("loop")
	test := insn.NewList()
	test.AddInstruction(stem.ReadInstruction())
	test.AddInstruction(index.ReadInstruction())
	test.Add(insn.OpHasNext)
	test.Add(insn.OpDup)
	test.AddInstruction(index.WriteInstruction())
	test.Jump(insn.OpIfTrue, head)
	g.flow.ResolveContinueLabel(test)

	out := insn.NewList()
	out.PushConstant(0)
	out.AddInstruction(index.WriteInstruction())
	out.AddAll(obj)
	out.AddInstruction(stem.WriteInstruction())
	out.Jump(insn.OpJump, test.Label())
	out.LabelNext(head)
	out.Add(insn.OpLabel)
	out.AddInstruction(stem.ReadInstruction())
	out.AddInstruction(index.ReadInstruction())
	out.Add(insn.OpNextName)
	out.AddAll(Store(v))
	out.AddAll(body)
	out.AddAll(test)
	g.flow.FinishLoop(out)

	g.scope.ReleaseTemp(index)
	g.scope.ReleaseTemp(stem)
	return out
}

// switchStmt stages the discriminant in a temp, lays out the case bodies in
// source order and dispatches with a chain of strict-equality branches
// placed after them.
func (g *generator) switchStmt(s *ast.Switch) *insn.List {
	out := g.value(s.Disc)
	if len(s.Cases) == 0 {
		return out.Add(insn.OpPop)
	}
	disc := g.scope.AllocateTemp()
	out.AddInstruction(disc.WriteInstruction())
	g.flow.StartSwitch(s)

	bodies := insn.NewList()
	dispatch := insn.NewList()
	var def *insn.Label
	for _, c := range s.Cases {
		body := insn.NewList()
		for _, st := range c.Body {
			body.AddAll(g.stmt(st))
		}
		if body.IsEmpty() || body.At(0).Opcode != insn.OpLabel {
			body = insn.NewList().Add(insn.OpLabel).AddAll(body)
		}
		entry := body.Label()

		if c.Test == nil {
			if def != nil {
				g.report(errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
					Detail("multiple default cases in switch").
					Build(), c.Position())
			} else {
				def = entry
			}
		} else {
			dispatch.AddAll(g.value(c.Test))
			dispatch.AddInstruction(disc.ReadInstruction())
			dispatch.Jump(insn.OpIfStrictEq, entry)
		}
		bodies.AddAll(body)
	}
	if def != nil {
		dispatch.Jump(insn.OpJump, def)
	}

	tail := insn.NewLabel("endswitch")
	out.Jump(insn.OpJump, dispatch.Label())
	out.AddAll(bodies)
	if bodies.CanFallThrough() || bodies.HasPendingLabels() {
		out.Jump(insn.OpJump, tail)
	}
	out.AddAll(dispatch)
	out.LabelNext(tail)

	g.scope.ReleaseTemp(disc)
	g.flow.FinishSwitch(out)
	return out
}

func (g *generator) labeledStmt(s *ast.Labeled) *insn.List {
	if err := g.flow.StartLabeledStatement(s); err != nil {
		g.report(err, s.Position())
	}
	body := g.stmt(s.Body)

	out := insn.NewList()
	// Duplicate labels are invisible to goto and get no entry.
	if lbl := g.flow.GotoLabel(s); lbl != nil {
		out.LabelNext(lbl)
		out.Add(insn.OpLabel)
	}
	out.AddAll(body)
	g.flow.FinishLabeledStatement(out)
	return out
}

func (g *generator) jump(c flow.Criterion, pos ast.Pos) *insn.List {
	out, err := g.flow.Jump(c)
	if err != nil {
		g.report(err, pos)
		return insn.NewList()
	}
	return out
}

func (g *generator) gotoStmt(s *ast.Goto) *insn.List {
	out, err := g.flow.Jump(flow.Goto(s.Label, g.cfg.AllowDuplicateLabels))
	if err == nil {
		return out
	}
	if seen := g.flow.GotoLabels(s.Label); len(seen) > 1 {
		at := make([]string, len(seen))
		for i, l := range seen {
			at[i] = l.Position().String()
		}
		err = errors.New(errors.PhaseResolve, errors.KindAmbiguousGoto).
			Criterion("goto").
			Label(s.Label).
			Value(len(seen)).
			Detail("labels at %s", strings.Join(at, ", ")).
			Build()
	}
	g.report(err, s.Position())
	return insn.NewList()
}

// returnStmt routes the return through every active context. When a with
// or try statement is active the value is staged in a temp so unwinding
// code can run with an empty stack. That temp is never released: the
// finally dispatch may read it after later statements were generated.
func (g *generator) returnStmt(s *ast.Return) *insn.List {
	out := insn.NewList()
	var stub *insn.List
	switch {
	case s.Value == nil:
		stub = insn.NewList().Add(insn.OpReturnVoid)
	case g.flow.HasNontrivialFlow():
		t := g.scope.AllocateTemp()
		out.AddAll(g.value(s.Value))
		out.AddInstruction(t.WriteInstruction())
		stub = insn.NewList().AddInstruction(t.ReadInstruction()).Add(insn.OpReturnValue)
	default:
		stub = g.value(s.Value).Add(insn.OpReturnValue)
	}

	exit, err := g.flow.ExitPath(flow.AllContexts, stub)
	if err != nil {
		g.report(errors.UnexpectedReturn(), s.Position())
		return insn.NewList()
	}
	return out.AddAll(exit)
}

func (g *generator) withStmt(s *ast.With) *insn.List {
	out := g.value(s.Obj)
	g.flow.StartWith(s)
	body := g.stmt(s.Body)

	if g.flow.HasWithStorage() {
		out.Add(insn.OpDup)
		out.AddInstruction(g.flow.WithStorage().WriteInstruction())
	}
	out.Add(insn.OpPushWith)
	out.AddAll(body)
	out.Add(insn.OpPopScope)
	g.flow.FinishWith()
	return out
}
