package codegen

import (
	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/flow"
	"github.com/wippyai/flowgen/insn"
)

type catchClause struct {
	node *ast.Catch
	body *insn.List
}

// tryStmt generates the try body, then the finally body, then the catch
// bodies, so exits from a catch are routed through the finally.
func (g *generator) tryStmt(s *ast.Try) *insn.List {
	ctx := g.flow.StartTry(s)
	body := g.block(s.Body)

	var fin *insn.List
	if s.Finally != nil {
		g.flow.StartFinally()
		fin = g.block(s.Finally)
		g.flow.EndFinally()
	}

	catches := make([]catchClause, 0, len(s.Catches))
	for _, c := range s.Catches {
		g.flow.StartCatch(c)
		restore := func() {}
		if c.Param != "" {
			restore = g.scope.Shadow(c.Param, c)
		}
		cb := g.block(c.Body)
		restore()
		g.flow.EndCatch()
		catches = append(catches, catchClause{node: c, body: cb})
	}

	var out *insn.List
	if fin == nil {
		out = g.tryCatch(ctx, body, catches)
	} else {
		out = g.tryCatchFinally(ctx, body, catches, fin)
	}
	g.flow.FinishTry()
	return out
}

// handlerEntry rebuilds the scope stack at the start of a handler.
func (g *generator) handlerEntry() *insn.List {
	out := insn.NewList()
	if g.cfg.NeedsThis {
		out.Add(insn.OpGetLocal0)
		out.Add(insn.OpPushScope)
	}
	if g.scope.NeedsActivation() {
		out.AddInstruction(g.scope.ActivationStorage().ReadInstruction())
		out.Add(insn.OpPushScope)
	}
	return out.AddAll(g.flow.ScopeStackReinit())
}

// catchBlock registers a handler for [from, to) and wraps the catch body
// with the catch scope. The exception temp is only written when something
// inside the body needs it.
func (g *generator) catchBlock(ctx *flow.ExceptionContext, from, to *insn.Label, c catchClause) *insn.List {
	out := g.handlerEntry()
	index := len(g.fn.Handlers)
	g.fn.Handlers = append(g.fn.Handlers, Handler{
		From:   from,
		To:     to,
		Target: out.Label(),
		Type:   c.node.Type,
		Var:    c.node.Param,
	})

	out.AddImm(insn.OpNewCatch, insn.IndexImm{Index: uint32(index)})
	out.Add(insn.OpDup)
	if ctx.HasExceptionStorage() {
		out.AddInstruction(ctx.ExceptionStorage().WriteInstruction())
		out.Add(insn.OpDup)
	}
	out.Add(insn.OpPushScope)
	out.Add(insn.OpSwap)
	out.AddImm(insn.OpSetSlot, insn.IndexImm{Index: 1})
	out.AddAll(c.body)
	if out.CanFallThrough() || out.HasPendingLabels() {
		out.Add(insn.OpPopScope)
	}
	return out
}

func (g *generator) tryCatch(ctx *flow.ExceptionContext, body *insn.List, catches []catchClause) *insn.List {
	if body.IsEmpty() {
		body.Add(insn.OpNop)
	}
	tail := insn.NewLabel("endtry")

	out := insn.NewList()
	out.AddAll(body)
	out.Jump(insn.OpJump, tail)
	from := out.Label()
	to := out.LastLabel()

	for i, c := range catches {
		cb := g.catchBlock(ctx, from, to, c)
		if i < len(catches)-1 && cb.CanFallThrough() {
			cb.Jump(insn.OpJump, tail)
		}
		out.AddAll(cb)
	}
	out.LabelNext(tail)
	return out
}

// tryCatchFinally lays out
//
//	pushbyte 0; setlocal ret
//	try body; jump finally
//	catch blocks, each ending in pushbyte 0; setlocal ret; jump finally
//	catch-all: setlocal exc; push rethrow index; setlocal ret
//	finally: finally body; getlocal ret; convert_i; lookupswitch
//	rethrow: getlocal exc; throw
//	registered exits
//	nop
//
// and leaves the fall-through label pending.
func (g *generator) tryCatchFinally(ctx *flow.ExceptionContext, body *insn.List, catches []catchClause, fin *insn.List) *insn.List {
	exc := ctx.ExceptionStorage()
	ret := ctx.ReturnStorage()
	finalCatch := insn.NewList()
	finalTarget := finalCatch.Label()

	pending := body.StripPendingLabels()
	fixup := insn.NewList()
	if body.CanFallThrough() || len(pending) > 0 {
		fixup.Jump(insn.OpJump, ctx.FinallyLabel())
	} else {
		// Keeps the protected region open past a trailing throw.
		fixup.Add(insn.OpNop)
	}
	from := body.Label()
	to := fixup.LastLabel()
	end := to

	catchInsns := insn.NewList()
	for i, c := range catches {
		cb := g.catchBlock(ctx, from, to, c)
		last := i == len(catches)-1
		if cb.CanFallThrough() {
			cb.PushConstant(0)
			cb.AddInstruction(ret.WriteInstruction())
			cb.Jump(insn.OpJump, ctx.FinallyLabel())
		} else if last {
			cb.Add(insn.OpNop)
		}
		if last {
			end = cb.LastLabel()
		}
		catchInsns.AddAll(cb)
	}

	g.fn.Handlers = append(g.fn.Handlers, Handler{From: from, To: end, Target: finalTarget})
	finalCatch.AddAll(g.handlerEntry())
	finalCatch.AddInstruction(exc.WriteInstruction())
	finalCatch.PushConstant(ctx.FailSignal())
	finalCatch.AddInstruction(ret.WriteInstruction())

	dispatch := insn.NewList()
	dispatch.AddInstruction(ret.ReadInstruction())
	dispatch.Add(insn.OpConvertI)
	dispatch.AddInstruction(ctx.Switch())
	if !fin.IsEmpty() {
		fin.LabelFirst(ctx.FinallyLabel())
	} else {
		dispatch.LabelFirst(ctx.FinallyLabel())
	}

	rethrow := insn.NewList()
	rethrow.AddInstruction(exc.ReadInstruction())
	rethrow.LabelCurrent(ctx.RethrowLabel())
	rethrow.Add(insn.OpThrow)

	out := insn.NewList()
	out.PushConstant(0)
	out.AddInstruction(ret.WriteInstruction())
	out.AddAll(body)
	out.AddPendingLabels(pending)
	out.AddAll(fixup)
	out.AddAll(catchInsns)
	out.AddAll(finalCatch)
	out.AddAll(fin)
	out.AddAll(dispatch)
	out.AddAll(rethrow)
	for _, r := range ctx.Returns() {
		out.AddAll(r.Insns)
	}
	out.Add(insn.OpNop)
	out.LabelNext(ctx.FallthroughLabel())
	return out
}
